package models

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"score-viewer/internal/config"
	"score-viewer/internal/score"
)

func page(i int) *RenderedPage {
	return &RenderedPage{
		Index:      i,
		Image:      image.NewRGBA(image.Rect(0, 0, 10, 20)),
		Width:      10,
		Height:     20,
		RenderTime: time.Duration(i+1) * time.Millisecond,
	}
}

func TestPageRepositoryEvictsLeastRecentlyUsed(t *testing.T) {
	repo := NewPageRepository(2)
	repo.Put(page(0))
	repo.Put(page(1))

	_, ok := repo.Get(0) // 1 is now the oldest
	require.True(t, ok)

	repo.Put(page(2))

	_, ok = repo.Get(1)
	assert.False(t, ok)
	_, ok = repo.Get(0)
	assert.True(t, ok)
	_, ok = repo.Get(2)
	assert.True(t, ok)

	stats := repo.Stats()
	assert.Equal(t, 2, stats.Cached)
	assert.Equal(t, int64(3), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(2*10*20*4), stats.TotalMemoryUsage)
}

func TestPageRepositoryReplaceKeepsSize(t *testing.T) {
	repo := NewPageRepository(2)
	repo.Put(page(0))
	repo.Put(page(0))
	repo.Put(nil)
	assert.Equal(t, 1, repo.Stats().Cached)

	repo.Shutdown()
	assert.Equal(t, 0, repo.Stats().Cached)
}

func TestScoreRepositoryReplaceIndex(t *testing.T) {
	repo := NewScoreRepository()
	assert.Nil(t, repo.ReplaceIndex(nil, nil))

	first, err := score.NewIndex(score.Layout{Pages: []score.Page{{Measures: []score.Rect{{}}}}}, nil)
	require.NoError(t, err)
	second, err := score.NewIndex(score.Layout{Pages: []score.Page{{Measures: []score.Rect{{}, {}}}}}, nil)
	require.NoError(t, err)

	repo.SetDocument(&ScoreDocument{Files: config.Score{PDF: "a.pdf"}, Index: first, PageCount: 1})
	doc := repo.ReplaceIndex(second, nil)

	require.NotNil(t, doc)
	assert.Equal(t, "a.pdf", doc.Files.PDF)
	assert.Same(t, second, repo.Document().Index)
	assert.Equal(t, 1, repo.Reloads())

	repo.Clear()
	assert.Nil(t, repo.Document())
}
