package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Body paragraphs come first in document
// order, then table cells row by row.
type DOCXParser struct {
	TempDir string
}

func (p *DOCXParser) Parse(r io.Reader, filename string) (string, error) {
	// go-docx needs a ReaderAt+size, so write to temp file.
	f, size, cleanup, err := spool(r, p.TempDir, "lexdoc-docx-*.docx")
	defer cleanup()
	if err != nil {
		return "", err
	}

	doc, err := docx.Parse(f, size)
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}

	var parts, cells []string
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			if t := docxParagraphText(it); t != "" {
				parts = append(parts, t)
			}
		case *docx.Table:
			cells = append(cells, docxTableText(it)...)
		}
	}
	return strings.Join(append(parts, cells...), "\n"), nil
}

func docxTableText(tbl *docx.Table) []string {
	var out []string
	for _, row := range tbl.TableRows {
		for _, cell := range row.TableCells {
			var paras []string
			for _, para := range cell.Paragraphs {
				if t := docxParagraphText(para); t != "" {
					paras = append(paras, t)
				}
			}
			if len(paras) > 0 {
				out = append(out, strings.Join(paras, "\n"))
			}
		}
	}
	return out
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
