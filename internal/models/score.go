package models

import (
	"sync"
	"time"

	"score-viewer/internal/config"
	"score-viewer/internal/score"
)

// ScoreDocument is a loaded score: its files and the index built from them.
type ScoreDocument struct {
	Files     config.Score
	Index     *score.Index
	PageCount int
	LoadedAt  time.Time
	Warnings  []string
}

// ScoreRepository holds the document currently open in the viewer. The index
// is replaced as a whole when the data files are reloaded.
type ScoreRepository struct {
	mu       sync.RWMutex
	document *ScoreDocument
	reloads  int
}

// NewScoreRepository creates an empty repository.
func NewScoreRepository() *ScoreRepository {
	return &ScoreRepository{}
}

// SetDocument stores a freshly opened document.
func (r *ScoreRepository) SetDocument(doc *ScoreDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.document = doc
	r.reloads = 0
}

// Document returns the open document, nil when none is open.
func (r *ScoreRepository) Document() *ScoreDocument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.document
}

// ReplaceIndex swaps the index and warnings of the open document after a
// reload and returns the updated document. It returns nil when no document
// is open.
func (r *ScoreRepository) ReplaceIndex(idx *score.Index, warnings []string) *ScoreDocument {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.document == nil {
		return nil
	}
	updated := *r.document
	updated.Index = idx
	updated.Warnings = warnings
	updated.LoadedAt = time.Now()
	r.document = &updated
	r.reloads++
	return r.document
}

// Reloads returns how many times the index was replaced since the document
// was opened.
func (r *ScoreRepository) Reloads() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reloads
}

// Clear closes the document.
func (r *ScoreRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.document = nil
	r.reloads = 0
}
