package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"score-viewer/internal/config"
	"score-viewer/internal/logger"
	"score-viewer/internal/models"
	"score-viewer/internal/render"
	"score-viewer/internal/score"
)

type stubPages struct {
	count int
}

func (s stubPages) PageCount() int { return s.count }
func (s stubPages) Render(page, width, height int) (image.Image, error) {
	return image.NewNRGBA(image.Rect(0, 0, width, height)), nil
}
func (s stubPages) Close() error { return nil }

func stubOpener(count int) RendererOpener {
	return func(string) (render.PageRenderer, error) { return stubPages{count: count}, nil }
}

const (
	layoutJSON = `{"pages": [
		{"size": {"width": 600, "height": 800}, "measures": [
			{"left": 0, "top": 0, "right": 100, "bottom": 100},
			{"left": 100, "top": 0, "right": 200, "bottom": 100},
			{"left": 200, "top": 0, "right": 300, "bottom": 100}
		]},
		{"size": {"width": 600, "height": 800}, "measures": [
			{"left": 0, "top": 0, "right": 100, "bottom": 100},
			{"left": 100, "top": 0, "right": 200, "bottom": 100}
		]}
	]}`
	timestampsTxt = "1 0.0\n2 1.0\n3 2.0\n4 3.5\n5 5.0\n"
)

func writeScore(t *testing.T, dir string) config.Score {
	t.Helper()
	files := config.Score{
		PDF:        filepath.Join(dir, "score.pdf"),
		Layout:     filepath.Join(dir, "measure_boxes.json"),
		Timestamps: filepath.Join(dir, "timestamps.txt"),
		Audio:      filepath.Join(dir, "audio.mp3"),
	}
	require.NoError(t, os.WriteFile(files.Layout, []byte(layoutJSON), 0o644))
	require.NoError(t, os.WriteFile(files.Timestamps, []byte(timestampsTxt), 0o644))
	return files
}

func TestScoreServiceLoad(t *testing.T) {
	repo := models.NewScoreRepository()
	svc := NewScoreService(repo, stubOpener(2), logger.NopLogger{})

	doc, pages, err := svc.Load(context.Background(), writeScore(t, t.TempDir()))
	require.NoError(t, err)
	require.NotNil(t, pages)

	assert.Equal(t, 2, doc.PageCount)
	assert.Equal(t, 5, doc.Index.TotalMeasures())
	assert.Empty(t, doc.Warnings)
	assert.Same(t, doc, repo.Document())
}

func TestScoreServiceLoadWarnsOnPageMismatch(t *testing.T) {
	svc := NewScoreService(models.NewScoreRepository(), stubOpener(3), logger.NopLogger{})

	doc, _, err := svc.Load(context.Background(), writeScore(t, t.TempDir()))
	require.NoError(t, err)
	require.Len(t, doc.Warnings, 1)
	assert.Contains(t, doc.Warnings[0], "3 pages")
}

func TestScoreServiceLoadFailsWhole(t *testing.T) {
	dir := t.TempDir()
	files := writeScore(t, dir)
	require.NoError(t, os.WriteFile(files.Timestamps, []byte("1 0.0\n9 1.0\n"), 0o644))

	repo := models.NewScoreRepository()
	svc := NewScoreService(repo, stubOpener(2), logger.NopLogger{})

	_, _, err := svc.Load(context.Background(), files)
	assert.ErrorIs(t, err, score.ErrMalformedInput)
	assert.Nil(t, repo.Document())

	openErr := errors.New("no pdf")
	svc = NewScoreService(repo, func(string) (render.PageRenderer, error) { return nil, openErr }, logger.NopLogger{})
	require.NoError(t, os.WriteFile(files.Timestamps, []byte(timestampsTxt), 0o644))
	_, _, err = svc.Load(context.Background(), files)
	assert.ErrorIs(t, err, openErr)
	assert.Nil(t, repo.Document())
}

func TestScoreServiceReloadKeepsOldIndexOnError(t *testing.T) {
	files := writeScore(t, t.TempDir())
	repo := models.NewScoreRepository()
	svc := NewScoreService(repo, stubOpener(2), logger.NopLogger{})

	doc, _, err := svc.Load(context.Background(), files)
	require.NoError(t, err)
	original := doc.Index

	require.NoError(t, os.WriteFile(files.Timestamps, []byte("1 0.0\n2 broken\n"), 0o644))
	_, err = svc.Reload()
	assert.Error(t, err)
	assert.Same(t, original, repo.Document().Index)

	require.NoError(t, os.WriteFile(files.Timestamps, []byte("1 0.0\n2 0.5\n"), 0o644))
	doc, err = svc.Reload()
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Index.SyncedMeasures())
	assert.Len(t, doc.Warnings, 1)
	assert.Equal(t, 1, repo.Reloads())
}

func TestScoreWatcherReloadsOnChange(t *testing.T) {
	files := writeScore(t, t.TempDir())
	svc := NewScoreService(models.NewScoreRepository(), stubOpener(2), logger.NopLogger{})
	_, _, err := svc.Load(context.Background(), files)
	require.NoError(t, err)

	reloaded := make(chan *models.ScoreDocument, 4)
	w, err := NewScoreWatcher(svc, 20*time.Millisecond, func(doc *models.ScoreDocument) { reloaded <- doc }, logger.NopLogger{})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(files.Timestamps, []byte("1 0.0\n2 1.0\n3 2.0\n"), 0o644))

	select {
	case doc := <-reloaded:
		assert.Equal(t, 3, doc.Index.SyncedMeasures())
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after timestamps changed")
	}
}

func TestScoreWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	files := writeScore(t, dir)
	svc := NewScoreService(models.NewScoreRepository(), stubOpener(2), logger.NopLogger{})
	_, _, err := svc.Load(context.Background(), files)
	require.NoError(t, err)

	var reloads int32
	w, err := NewScoreWatcher(svc, 10*time.Millisecond, func(*models.ScoreDocument) { atomic.AddInt32(&reloads, 1) }, logger.NopLogger{})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&reloads))
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

// passthrough trusts the payload to be a JPEG already.
type passthrough struct{}

func (passthrough) Normalize(data []byte) ([]byte, image.Point, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, image.Point{}, err
	}
	return data, image.Pt(cfg.Width, cfg.Height), nil
}

func TestFetchRequestPageURL(t *testing.T) {
	req := FetchRequest{ScoreID: 68, URLTemplate: config.DefaultURLTemplate}
	assert.Equal(t, "https://weefeen-user-data.eu-central-1.linodeobjects.com/staging/score/68/3.jpg", req.PageURL(3))
}

func TestFetchSkipsFailedPagesAndKeepsOrder(t *testing.T) {
	page := jpegBytes(t, 30, 40)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/score/7/0.jpg", "/score/7/2.jpg", "/score/7/3.jpg":
			w.Write(page)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	svc := NewFetchService(srv.Client(), passthrough{}, logger.NopLogger{})
	pages, err := svc.Fetch(context.Background(), FetchRequest{
		ScoreID:     7,
		Pages:       4,
		URLTemplate: srv.URL + "/score/{id}/{page}.jpg",
		Workers:     2,
	})
	require.NoError(t, err)

	require.Len(t, pages, 3)
	assert.Equal(t, []int{0, 2, 3}, []int{pages[0].Page, pages[1].Page, pages[2].Page})
	assert.Equal(t, image.Pt(30, 40), pages[0].Size)
	assert.True(t, strings.HasSuffix(pages[1].URL, "/score/7/2.jpg"))
}

func TestFetchNothingDownloaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	svc := NewFetchService(srv.Client(), passthrough{}, logger.NopLogger{})
	_, err := svc.Fetch(context.Background(), FetchRequest{Pages: 3, URLTemplate: srv.URL + "/{page}", Workers: 3})
	assert.ErrorIs(t, err, ErrNothingDownloaded)

	_, err = svc.Fetch(context.Background(), FetchRequest{Pages: 0, URLTemplate: srv.URL + "/{page}"})
	assert.ErrorIs(t, err, ErrNothingDownloaded)
}

func TestFetchSkipsUndecodablePages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not an image"))
	}))
	defer srv.Close()

	svc := NewFetchService(srv.Client(), passthrough{}, logger.NopLogger{})
	_, err := svc.Fetch(context.Background(), FetchRequest{Pages: 2, URLTemplate: srv.URL + "/{page}", Workers: 1})
	assert.ErrorIs(t, err, ErrNothingDownloaded)
}

func TestAssemblerWritesOnePagePerImage(t *testing.T) {
	pages := []FetchedPage{
		{Page: 0, JPEG: jpegBytes(t, 30, 40), Size: image.Pt(30, 40)},
		{Page: 1, JPEG: jpegBytes(t, 50, 20), Size: image.Pt(50, 20)},
	}

	var buf bytes.Buffer
	require.NoError(t, Assembler{Title: "score 7"}.Write(&buf, pages))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "%PDF-"))
	assert.Len(t, regexp.MustCompile(`/Type /Page[^s]`).FindAllString(out, -1), 2)
}

func TestAssemblerRejectsEmptyInput(t *testing.T) {
	assert.ErrorIs(t, Assembler{}.Write(&bytes.Buffer{}, nil), ErrNothingDownloaded)

	path := filepath.Join(t.TempDir(), "out.pdf")
	assert.Error(t, Assembler{}.WriteFile(path, []FetchedPage{{Page: 0}}))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
