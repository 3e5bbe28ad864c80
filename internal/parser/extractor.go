package parser

import (
	"bytes"
	"fmt"
	"log/slog"
)

// Extractor dispatches on file extension and never fails: unsupported
// types, parse errors and parser panics all produce empty text. Callers
// treat empty text as an extraction failure.
type Extractor struct {
	opts   Options
	log    *slog.Logger
	lookup func(filename string, opts Options) (Parser, error)
}

func NewExtractor(log *slog.Logger, opts Options) *Extractor {
	return &Extractor{
		opts:   opts,
		log:    log.With("component", "extractor"),
		lookup: ForFile,
	}
}

// Extract returns the plain text of data, or "" when nothing could be read.
func (e *Extractor) Extract(data []byte, filename string) (text string) {
	log := e.log.With("filename", filename, "bytes", len(data))
	defer func() {
		if r := recover(); r != nil {
			log.Error("parser panicked", "panic", fmt.Sprint(r))
			text = ""
		}
	}()

	p, err := e.lookup(filename, e.opts)
	if err != nil {
		log.Warn("cannot extract", "error", err)
		return ""
	}
	text, err = p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		log.Warn("extraction failed", "error", err)
		return ""
	}
	return text
}
