package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidConfig is returned for chunk settings that cannot make progress.
var ErrInvalidConfig = errors.New("invalid chunk config")

// Config controls chunking behavior. Sizes are in bytes of UTF-8 text;
// boundaries never split a rune.
type Config struct {
	ChunkSize    int // Window size.
	ChunkOverlap int // Bytes shared by consecutive windows.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

// Validate rejects sizes that would stall or reverse the window.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidConfig, c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// Chunk is a trimmed window of the source text. Text == source[Start:End].
type Chunk struct {
	Index  int
	Text   string
	Start  int
	End    int
	Tokens int
}

// Split slides a ChunkSize window over text. A window that does not reach
// the end of the text is cut after its last period when that period lies in
// the back half of the window. The next window starts Overlap bytes before
// the previous cut. Windows that are blank after trimming are dropped.
func Split(text string, cfg Config) ([]Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var chunks []Chunk
	start := 0
	for start < len(text) {
		end := start + cfg.ChunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = runeFloor(text, start, end)
			if p := strings.LastIndexByte(text[start:end], '.'); p > cfg.ChunkSize/2 {
				end = start + p + 1
			}
		}

		if c, ok := trimmed(text, start, end); ok {
			c.Index = len(chunks)
			chunks = append(chunks, c)
		}
		if end >= len(text) {
			break
		}

		next := runeCeil(text, end-cfg.ChunkOverlap)
		if next <= start {
			// A short sentence cut left less than Overlap bytes; continue
			// from the cut so the window always advances.
			next = end
		}
		start = next
	}
	return chunks, nil
}

func trimmed(text string, start, end int) (Chunk, bool) {
	s := text[start:end]
	lead := len(s) - len(strings.TrimLeftFunc(s, unicode.IsSpace))
	rest := strings.TrimRightFunc(s, unicode.IsSpace)
	if lead >= len(rest) {
		return Chunk{}, false
	}
	body := s[lead:len(rest)]
	return Chunk{
		Text:   body,
		Start:  start + lead,
		End:    start + len(rest),
		Tokens: EstimateTokens(body),
	}, true
}

// runeFloor moves end back onto a rune start, keeping at least one rune.
func runeFloor(text string, start, end int) int {
	for end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	if end == start {
		_, n := utf8.DecodeRuneInString(text[start:])
		end = start + n
	}
	return end
}

// runeCeil moves i forward onto a rune start.
func runeCeil(text string, i int) int {
	if i < 0 {
		return 0
	}
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}
