// Package render turns score pages into bitmaps for display and export.
package render

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gen2brain/go-fitz"

	"score-viewer/internal/logger"
	"score-viewer/internal/models"
	"score-viewer/internal/opencv/conversion"
)

// ErrClosed is returned by a renderer used after Close.
var ErrClosed = errors.New("renderer closed")

// PageRenderer rasterises document pages. A width or height of zero keeps the
// page's natural size.
type PageRenderer interface {
	PageCount() int
	Render(page, width, height int) (image.Image, error)
	Close() error
}

// FitzRenderer renders PDF pages with MuPDF and scales them with OpenCV.
type FitzRenderer struct {
	mu    sync.Mutex
	doc   *fitz.Document
	path  string
	pages int
}

// OpenPDF opens the document at path.
func OpenPDF(path string) (*FitzRenderer, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &FitzRenderer{doc: doc, path: path, pages: doc.NumPage()}, nil
}

func (r *FitzRenderer) PageCount() int { return r.pages }

func (r *FitzRenderer) Render(page, width, height int) (image.Image, error) {
	if page < 0 || page >= r.pages {
		return nil, fmt.Errorf("page %d out of range [0, %d)", page, r.pages)
	}

	r.mu.Lock()
	if r.doc == nil {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	img, err := r.doc.Image(page)
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("render page %d of %s: %w", page, r.path, err)
	}

	if width <= 0 || height <= 0 {
		return img, nil
	}
	scaled, err := conversion.ResizeImage(img, width, height)
	if err != nil {
		return nil, fmt.Errorf("scale page %d to %dx%d: %w", page, width, height, err)
	}
	return scaled, nil
}

func (r *FitzRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.doc == nil {
		return nil
	}
	err := r.doc.Close()
	r.doc = nil
	return err
}

// CachedRenderer keeps recently rendered pages in a PageRepository.
type CachedRenderer struct {
	next  PageRenderer
	pages *models.PageRepository
	log   logger.Logger
}

// NewCachedRenderer wraps next with a cache of size pages.
func NewCachedRenderer(next PageRenderer, size int, log logger.Logger) *CachedRenderer {
	return &CachedRenderer{
		next:  next,
		pages: models.NewPageRepository(size),
		log:   log,
	}
}

func (c *CachedRenderer) PageCount() int { return c.next.PageCount() }

func (c *CachedRenderer) Render(page, width, height int) (image.Image, error) {
	if cached, ok := c.pages.Get(page); ok && cached.Width == width && cached.Height == height {
		return cached.Image, nil
	}

	start := time.Now()
	img, err := c.next.Render(page, width, height)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	c.pages.Put(&models.RenderedPage{
		Index:      page,
		Image:      img,
		Width:      width,
		Height:     height,
		RenderTime: elapsed,
		RenderedAt: time.Now(),
	})
	c.log.Debug("page rendered", map[string]interface{}{
		"page":      page,
		"width":     width,
		"height":    height,
		"render_ms": elapsed.Milliseconds(),
	})
	return img, nil
}

// Stats exposes the cache statistics.
func (c *CachedRenderer) Stats() models.PageStats { return c.pages.Stats() }

func (c *CachedRenderer) Close() error {
	c.pages.Shutdown()
	return c.next.Close()
}
