package services

import (
	"context"
	"fmt"
	"time"

	"score-viewer/internal/config"
	"score-viewer/internal/logger"
	"score-viewer/internal/models"
	"score-viewer/internal/render"
	"score-viewer/internal/score"
)

// DefaultPageCache is how many rendered pages the viewer keeps.
const DefaultPageCache = 4

// RendererOpener opens the page source of a score.
type RendererOpener func(path string) (render.PageRenderer, error)

// OpenFitz is the RendererOpener used by the viewer.
func OpenFitz(path string) (render.PageRenderer, error) {
	return render.OpenPDF(path)
}

// ScoreService opens scores and rebuilds their index when the data files
// change.
type ScoreService struct {
	repo      *models.ScoreRepository
	open      RendererOpener
	cacheSize int
	logger    logger.Logger
}

func NewScoreService(repo *models.ScoreRepository, open RendererOpener, log logger.Logger) *ScoreService {
	return &ScoreService{
		repo:      repo,
		open:      open,
		cacheSize: DefaultPageCache,
		logger:    log,
	}
}

// Load builds the index and opens the PDF. Nothing is stored unless both
// succeed.
func (s *ScoreService) Load(ctx context.Context, files config.Score) (*models.ScoreDocument, render.PageRenderer, error) {
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	default:
	}

	start := time.Now()
	idx, err := score.LoadIndex(files.Layout, files.Timestamps)
	if err != nil {
		return nil, nil, err
	}

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	default:
	}

	pages, err := s.open(files.PDF)
	if err != nil {
		return nil, nil, fmt.Errorf("open score PDF: %w", err)
	}

	doc := &models.ScoreDocument{
		Files:     files,
		Index:     idx,
		PageCount: pages.PageCount(),
		LoadedAt:  time.Now(),
		Warnings:  s.check(idx, pages.PageCount()),
	}
	s.repo.SetDocument(doc)

	s.logger.Info("score loaded", map[string]interface{}{
		"pdf":       files.PDF,
		"pages":     doc.PageCount,
		"measures":  idx.TotalMeasures(),
		"synced":    idx.SyncedMeasures(),
		"warnings":  len(doc.Warnings),
		"load_time": time.Since(start).String(),
	})
	return doc, render.NewCachedRenderer(pages, s.cacheSize, s.logger), nil
}

// Reload rebuilds the index of the open document from its data files. On
// failure the previous index stays in place.
func (s *ScoreService) Reload() (*models.ScoreDocument, error) {
	current := s.repo.Document()
	if current == nil {
		return nil, fmt.Errorf("no score open")
	}

	idx, err := score.LoadIndex(current.Files.Layout, current.Files.Timestamps)
	if err != nil {
		return nil, err
	}

	doc := s.repo.ReplaceIndex(idx, s.check(idx, current.PageCount))
	if doc == nil {
		return nil, fmt.Errorf("score closed during reload")
	}

	s.logger.Info("score index reloaded", map[string]interface{}{
		"measures": idx.TotalMeasures(),
		"synced":   idx.SyncedMeasures(),
		"reloads":  s.repo.Reloads(),
	})
	return doc, nil
}

// Document returns the open score, nil when none is open.
func (s *ScoreService) Document() *models.ScoreDocument {
	return s.repo.Document()
}

func (s *ScoreService) check(idx *score.Index, pdfPages int) []string {
	var warnings []string
	if pdfPages != idx.PageCount() {
		warnings = append(warnings, fmt.Sprintf("PDF has %d pages, layout describes %d", pdfPages, idx.PageCount()))
	}
	if !idx.Monotonic() {
		warnings = append(warnings, "timestamps decrease between consecutive measures")
	}
	if missing := idx.TotalMeasures() - idx.SyncedMeasures(); missing > 0 {
		warnings = append(warnings, fmt.Sprintf("%d measures have no timestamp", missing))
	}
	for _, w := range warnings {
		s.logger.Warning(w, nil)
	}
	return warnings
}
