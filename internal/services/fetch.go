package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"score-viewer/internal/concurrent"
	"score-viewer/internal/logger"
	"score-viewer/internal/opencv/conversion"
)

// ErrNothingDownloaded is returned when no page could be fetched.
var ErrNothingDownloaded = errors.New("no images downloaded")

// maxPageBytes caps a single page download.
const maxPageBytes = 64 << 20

// FetchRequest describes the pages to download.
type FetchRequest struct {
	ScoreID     int
	Pages       int
	URLTemplate string
	Workers     int
}

// PageURL expands the {id} and {page} placeholders.
func (r FetchRequest) PageURL(page int) string {
	return strings.NewReplacer(
		"{id}", strconv.Itoa(r.ScoreID),
		"{page}", strconv.Itoa(page),
	).Replace(r.URLTemplate)
}

// FetchedPage is a downloaded page ready for assembly.
type FetchedPage struct {
	Page int
	URL  string
	JPEG []byte
	Size image.Point
}

// Normalizer converts downloaded image bytes to an RGB JPEG.
type Normalizer interface {
	Normalize(data []byte) ([]byte, image.Point, error)
}

// JPEGNormalizer re-encodes pages with OpenCV.
type JPEGNormalizer struct {
	Quality int
}

func (n JPEGNormalizer) Normalize(data []byte) ([]byte, image.Point, error) {
	q := n.Quality
	if q <= 0 {
		q = conversion.DefaultJPEGQuality
	}
	return conversion.NormalizeToJPEG(data, q)
}

// FetchService downloads score pages concurrently.
type FetchService struct {
	client     *http.Client
	normalizer Normalizer
	logger     logger.Logger
}

func NewFetchService(client *http.Client, normalizer Normalizer, log logger.Logger) *FetchService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &FetchService{client: client, normalizer: normalizer, logger: log}
}

// Fetch downloads pages 0..Pages-1. Pages that fail are logged and skipped;
// the rest are returned in page order.
func (s *FetchService) Fetch(ctx context.Context, req FetchRequest) ([]FetchedPage, error) {
	if req.Pages <= 0 {
		return nil, ErrNothingDownloaded
	}

	pages := make([]int, req.Pages)
	for i := range pages {
		pages[i] = i
	}

	runner := concurrent.NewRunner[int, FetchedPage](concurrent.RunnerConfig{
		MaxConcurrency: req.Workers,
		Component:      "fetch",
		Logger:         s.logger,
	})

	res := runner.Run(ctx, pages, func(ctx context.Context, page int, messages chan<- string, results chan<- FetchedPage, errs chan<- error) {
		url := req.PageURL(page)
		fetched, err := s.fetchPage(ctx, page, url)
		if err != nil {
			s.logger.Warning("failed to download page", map[string]interface{}{
				"page":  page,
				"url":   url,
				"error": err.Error(),
			})
			errs <- fmt.Errorf("page %d: %w", page, err)
			return
		}
		s.logger.Info("downloaded page", map[string]interface{}{
			"page":   page,
			"bytes":  len(fetched.JPEG),
			"width":  fetched.Size.X,
			"height": fetched.Size.Y,
		})
		messages <- fmt.Sprintf("page %d done", page)
		results <- fetched
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(res.Results) == 0 {
		return nil, ErrNothingDownloaded
	}

	sort.Slice(res.Results, func(i, j int) bool {
		return res.Results[i].Page < res.Results[j].Page
	})
	return res.Results, nil
}

func (s *FetchService) fetchPage(ctx context.Context, page int, url string) (FetchedPage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FetchedPage{}, err
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return FetchedPage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FetchedPage{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return FetchedPage{}, fmt.Errorf("read body: %w", err)
	}

	jpeg, size, err := s.normalizer.Normalize(data)
	if err != nil {
		return FetchedPage{}, fmt.Errorf("normalise: %w", err)
	}
	return FetchedPage{Page: page, URL: url, JPEG: jpeg, Size: size}, nil
}
