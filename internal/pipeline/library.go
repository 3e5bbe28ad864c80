package pipeline

import (
	"cmp"
	"crypto/sha256"
	"fmt"
	"slices"
	"sync"

	"github.com/dgallion1/lexdoc/internal/domain"
)

// Session is everything held for one document: the extracted document,
// its current analysis and the question history.
type Session struct {
	Document domain.Document
	Analysis domain.AnalysisResult
	History  []domain.QAExchange
}

func (s *Session) clone() Session {
	return Session{
		Document: s.Document,
		Analysis: s.Analysis.Clone(),
		History:  slices.Clone(s.History),
	}
}

// Library is a thread-safe in-memory registry of analysed documents.
// Readers always get copies.
type Library struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewLibrary() *Library {
	return &Library{sessions: make(map[string]*Session)}
}

// Put stores a new session, replacing any with the same document id.
func (l *Library) Put(doc domain.Document, analysis domain.AnalysisResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions[doc.ID] = &Session{Document: doc, Analysis: analysis.Clone()}
}

func (l *Library) Get(id string) (Session, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.sessions[id]
	if !ok {
		return Session{}, false
	}
	return s.clone(), true
}

// List returns all sessions, newest upload first.
func (l *Library) List() []Session {
	l.mu.RLock()
	out := make([]Session, 0, len(l.sessions))
	for _, s := range l.sessions {
		out = append(out, s.clone())
	}
	l.mu.RUnlock()

	slices.SortFunc(out, func(a, b Session) int {
		if c := b.Document.UploadedAt.Compare(a.Document.UploadedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Document.ID, b.Document.ID)
	})
	return out
}

// SetAnalysis replaces the analysis of id wholesale.
func (l *Library) SetAnalysis(id string, analysis domain.AnalysisResult) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sessions[id]
	if ok {
		s.Analysis = analysis.Clone()
	}
	return ok
}

// AppendQA adds an exchange to the history of id.
func (l *Library) AppendQA(id string, qa domain.QAExchange) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sessions[id]
	if ok {
		s.History = append(s.History, qa)
	}
	return ok
}

func (l *Library) History(id string) ([]domain.QAExchange, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.sessions[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(s.History), true
}

func (l *Library) Delete(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.sessions[id]
	delete(l.sessions, id)
	return ok
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sessions)
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
