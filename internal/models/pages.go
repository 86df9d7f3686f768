package models

import (
	"image"
	"sync"
	"time"
)

// RenderedPage is a page bitmap at its layout size.
type RenderedPage struct {
	Index      int
	Image      image.Image
	Width      int
	Height     int
	RenderTime time.Duration
	RenderedAt time.Time
}

// PageRepository keeps the most recently rendered pages. Pages beyond
// maxSize are evicted oldest first.
type PageRepository struct {
	mu      sync.RWMutex
	pages   map[int]*RenderedPage
	history []int
	maxSize int

	hits   int64
	misses int64
}

// NewPageRepository creates a repository holding at most maxSize pages.
func NewPageRepository(maxSize int) *PageRepository {
	if maxSize < 1 {
		maxSize = 1
	}
	return &PageRepository{
		pages:   make(map[int]*RenderedPage),
		history: make([]int, 0, maxSize),
		maxSize: maxSize,
	}
}

// Get returns a cached page and refreshes its position in the history.
func (r *PageRepository) Get(index int) (*RenderedPage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	page, ok := r.pages[index]
	if !ok {
		r.misses++
		return nil, false
	}
	r.hits++
	r.touch(index)
	return page, true
}

// Put stores a rendered page, evicting the least recently used one if needed.
func (r *PageRepository) Put(page *RenderedPage) {
	if page == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pages[page.Index]; exists {
		r.pages[page.Index] = page
		r.touch(page.Index)
		return
	}

	r.pages[page.Index] = page
	r.history = append(r.history, page.Index)

	for len(r.history) > r.maxSize {
		oldest := r.history[0]
		delete(r.pages, oldest)
		r.history = r.history[1:]
	}
}

// Clear removes all pages.
func (r *PageRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pages = make(map[int]*RenderedPage)
	r.history = r.history[:0]
}

// PageStats contains statistics about the repository.
type PageStats struct {
	Cached            int
	Hits              int64
	Misses            int64
	TotalMemoryUsage  int64
	AverageRenderTime time.Duration
}

// Stats returns cache statistics.
func (r *PageRepository) Stats() PageStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := PageStats{
		Cached: len(r.pages),
		Hits:   r.hits,
		Misses: r.misses,
	}
	var total time.Duration
	for _, p := range r.pages {
		stats.TotalMemoryUsage += int64(p.Width * p.Height * 4)
		total += p.RenderTime
	}
	if len(r.pages) > 0 {
		stats.AverageRenderTime = total / time.Duration(len(r.pages))
	}
	return stats
}

// Shutdown releases all pages.
func (r *PageRepository) Shutdown() {
	r.Clear()
}

func (r *PageRepository) touch(index int) {
	for i, v := range r.history {
		if v == index {
			r.history = append(r.history[:i], r.history[i+1:]...)
			break
		}
	}
	r.history = append(r.history, index)
}
