package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// wordsPerMinute drives the reading time estimate.
const wordsPerMinute = 200

// Document is an uploaded, extracted and classified document.
type Document struct {
	ID          string        `json:"document_id"`
	Filename    string        `json:"filename"`
	Type        DocumentType  `json:"document_type"`
	Text        string        `json:"-"`
	ContentHash string        `json:"content_hash"`
	SizeBytes   int           `json:"size_bytes"`
	UploadedAt  time.Time     `json:"uploaded_at"`
	Stats       DocumentStats `json:"stats"`
}

// DocumentStats are cheap text statistics shown next to the analysis.
type DocumentStats struct {
	WordCount      int `json:"word_count"`
	CharacterCount int `json:"character_count"`
	ReadingMinutes int `json:"estimated_reading_minutes"`
}

// ComputeStats counts words and characters of text.
func ComputeStats(text string) DocumentStats {
	words := len(strings.Fields(text))
	return DocumentStats{
		WordCount:      words,
		CharacterCount: utf8.RuneCountInString(text),
		ReadingMinutes: words / wordsPerMinute,
	}
}
