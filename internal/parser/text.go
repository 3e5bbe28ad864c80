package parser

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// TextParser handles plain text files of unknown encoding.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return DecodeText(data), nil
}

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// DecodeText tries UTF-8, UTF-16 (with a byte order mark), Latin-1 and
// Windows-1252 in that order, and finally UTF-8 with invalid bytes
// replaced by U+FFFD. Latin-1 is skipped when the data holds C1 control
// bytes, which in practice means Windows-1252 text.
func DecodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, utf8BOM))
	}
	if len(data)%2 == 0 && (bytes.HasPrefix(data, utf16LEBOM) || bytes.HasPrefix(data, utf16BEBOM)) {
		if s, ok := decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), data); ok {
			return s
		}
	}
	if !hasC1(data) {
		if s, ok := decodeWith(charmap.ISO8859_1, data); ok {
			return s
		}
	}
	if !hasUndefinedCP1252(data) {
		if s, ok := decodeWith(charmap.Windows1252, data); ok {
			return s
		}
	}
	return strings.ToValidUTF8(string(data), "\uFFFD")
}

func decodeWith(enc encoding.Encoding, data []byte) (string, bool) {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil || !utf8.Valid(out) {
		return "", false
	}
	return string(out), true
}

func hasC1(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 && b <= 0x9F {
			return true
		}
	}
	return false
}

// hasUndefinedCP1252 reports bytes Windows-1252 leaves unassigned.
func hasUndefinedCP1252(data []byte) bool {
	for _, b := range data {
		switch b {
		case 0x81, 0x8D, 0x8F, 0x90, 0x9D:
			return true
		}
	}
	return false
}
