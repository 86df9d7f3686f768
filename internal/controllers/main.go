package controllers

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"

	"score-viewer/internal/config"
	"score-viewer/internal/highlight"
	"score-viewer/internal/logger"
	"score-viewer/internal/models"
	"score-viewer/internal/playback"
	"score-viewer/internal/render"
	"score-viewer/internal/score"
	"score-viewer/internal/services"
	"score-viewer/internal/views"
)

// PlayerOpener loads the recording of a score.
type PlayerOpener func(path string) (playback.Player, error)

// Options are the viewer settings the controller acts on.
type Options struct {
	Follow       bool
	PollInterval time.Duration
	Watch        bool
	Debounce     time.Duration
	ExportStyle  render.Style
}

// OptionsFromConfig derives controller options from the merged configuration.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	active, err := config.ParseColor(cfg.Highlight.ActiveColor)
	if err != nil {
		return Options{}, err
	}
	inactive, err := config.ParseColor(cfg.Highlight.InactiveColor)
	if err != nil {
		return Options{}, err
	}
	style := render.DefaultStyle()
	style.Active = active
	style.Inactive = inactive
	style.StrokeWidth = float64(cfg.Highlight.StrokeWidth)

	return Options{
		Follow:       cfg.Highlight.Follow,
		PollInterval: cfg.Playback.PollInterval,
		Watch:        cfg.Watch.Enabled,
		Debounce:     cfg.Watch.Debounce,
		ExportStyle:  style,
	}, nil
}

// MainController connects the score view to the highlighter and the player.
// Apart from OpenScore, its methods run on the UI thread.
type MainController struct {
	scoreService *services.ScoreService
	openPlayer   PlayerOpener
	logger       logger.Logger
	opts         Options

	mainView *views.MainView

	doc         *models.ScoreDocument
	pages       render.PageRenderer
	player      playback.Player
	highlighter *highlight.Highlighter
	watcher     *services.ScoreWatcher
	stopWatch   context.CancelFunc

	page   int
	follow bool
}

func NewMainController(scoreService *services.ScoreService, openPlayer PlayerOpener, opts Options, log logger.Logger) *MainController {
	return &MainController{
		scoreService: scoreService,
		openPlayer:   openPlayer,
		logger:       log,
		opts:         opts,
		follow:       opts.Follow,
	}
}

// SetMainView associates the view and registers its handlers.
func (mc *MainController) SetMainView(view *views.MainView) {
	mc.mainView = view

	view.SetOpenHandler(mc.ChooseScore)
	view.SetPrevPageHandler(mc.PreviousPage)
	view.SetNextPageHandler(mc.NextPage)
	view.SetPlayHandler(mc.Play)
	view.SetPauseHandler(mc.Pause)
	view.SetFollowHandler(mc.SetFollow)
	view.SetExportHandler(mc.ExportPage)
	view.SetMeasureTapHandler(mc.OnMeasureTapped)
	view.SetFollow(mc.follow)
}

// ChooseScore asks for a score folder and opens it in the background.
func (mc *MainController) ChooseScore() {
	mc.mainView.ShowFolderDialog(func(uri fyne.ListableURI, err error) {
		if err != nil {
			mc.handleError("folder selection failed", err)
			return
		}
		if uri == nil {
			return
		}
		files := config.ScoreInDir(uri.Path())
		mc.mainView.UpdateStatus("Opening " + filepath.Base(uri.Path()) + "...")
		go func() {
			if err := mc.OpenScore(context.Background(), files); err != nil {
				mc.handleError("open score failed", err)
			}
		}()
	})
}

// OpenScore loads files and replaces the current score. Loading runs on the
// calling goroutine; the switch happens on the UI thread.
func (mc *MainController) OpenScore(ctx context.Context, files config.Score) error {
	doc, pages, err := mc.scoreService.Load(ctx, files)
	if err != nil {
		return err
	}
	player, err := mc.openPlayer(files.Audio)
	if err != nil {
		pages.Close()
		return fmt.Errorf("open audio: %w", err)
	}

	fyne.DoAndWait(func() {
		mc.install(doc, pages, player)
	})
	return nil
}

func (mc *MainController) install(doc *models.ScoreDocument, pages render.PageRenderer, player playback.Player) {
	mc.closeScore()

	mc.doc = doc
	mc.pages = pages
	mc.player = player
	mc.highlighter = highlight.New(doc.Index)

	watchCtx, cancel := context.WithCancel(context.Background())
	mc.stopWatch = cancel
	go playback.Watch(watchCtx, player, mc.opts.PollInterval, func(seconds float64) {
		fyne.Do(func() { mc.OnPosition(seconds) })
	})

	if mc.opts.Watch {
		w, err := services.NewScoreWatcher(mc.scoreService, mc.opts.Debounce, func(doc *models.ScoreDocument) {
			fyne.Do(func() { mc.ApplyReload(doc) })
		}, mc.logger)
		if err != nil {
			mc.logger.Warning("live reload disabled", map[string]interface{}{"error": err.Error()})
		} else {
			mc.watcher = w
			go w.Run(watchCtx)
		}
	}

	mc.mainView.SetWindowTitle(filepath.Base(filepath.Dir(doc.Files.PDF)) + " - Score Viewer")
	mc.mainView.EnableScoreOperations(true)
	mc.mainView.SetPlaying(false)
	mc.showPage(0)
	mc.mainView.ApplyHighlight(score.NoMeasure)

	status := fmt.Sprintf("%d measures, %d with timestamps", doc.Index.TotalMeasures(), doc.Index.SyncedMeasures())
	if len(doc.Warnings) > 0 {
		status = doc.Warnings[0]
	}
	mc.mainView.UpdateStatus(status)
}

// OnPosition applies a playback position: the page is switched first when
// following playback, then the highlight is repainted.
func (mc *MainController) OnPosition(seconds float64) {
	if mc.highlighter == nil {
		return
	}
	mc.mainView.SetPosition(time.Duration(seconds * float64(time.Second)))

	d, changed := mc.highlighter.Resolve(seconds)
	if !changed {
		return
	}
	if d.TargetPage != mc.page && mc.follow {
		mc.showPage(d.TargetPage)
	}
	mc.mainView.ApplyHighlight(d.Active)
}

// OnMeasureTapped seeks playback to the start of m.
func (mc *MainController) OnMeasureTapped(m score.Measure) {
	if mc.highlighter == nil {
		return
	}

	req, err := mc.highlighter.ResolveClick(m)
	if err != nil {
		if errors.Is(err, score.ErrNoTimestamp) {
			mc.mainView.UpdateStatus(fmt.Sprintf("Measure %d has no timestamp", m))
			return
		}
		mc.handleError("measure click rejected", err)
		return
	}

	if req.TargetPage != mc.page {
		mc.showPage(req.TargetPage)
	}
	mc.mainView.ApplyHighlight(req.Measure)

	if err := mc.player.SeekAndPlay(req.Millis); err != nil {
		mc.handleError("seek failed", err)
		return
	}
	mc.mainView.SetPlaying(true)
	mc.logger.Debug("measure clicked", map[string]interface{}{
		"measure": int(m),
		"ms":      req.Millis,
	})
}

// NextPage and PreviousPage do nothing at the ends of the score.
func (mc *MainController) NextPage()     { mc.turnPage(mc.page + 1) }
func (mc *MainController) PreviousPage() { mc.turnPage(mc.page - 1) }

func (mc *MainController) turnPage(p int) {
	if mc.highlighter == nil || p < 0 || p >= mc.doc.Index.PageCount() {
		return
	}
	if err := mc.highlighter.ShowPage(p); err != nil {
		mc.handleError("page change failed", err)
		return
	}
	mc.showPage(p)
	mc.mainView.ApplyHighlight(score.NoMeasure)
}

func (mc *MainController) Play() {
	if mc.player == nil {
		return
	}
	mc.player.Play()
	mc.mainView.SetPlaying(true)
}

func (mc *MainController) Pause() {
	if mc.player == nil {
		return
	}
	mc.player.Pause()
	mc.mainView.SetPlaying(false)
}

// SetFollow turns automatic page turning on or off.
func (mc *MainController) SetFollow(on bool) {
	mc.follow = on
	mc.logger.Debug("follow playback", map[string]interface{}{"enabled": on})
}

// ApplyReload switches to a rebuilt index, keeping the page when it still
// exists.
func (mc *MainController) ApplyReload(doc *models.ScoreDocument) {
	if mc.doc == nil || doc == nil {
		return
	}
	mc.doc = doc
	mc.highlighter = highlight.New(doc.Index)

	p := mc.page
	if p >= doc.Index.PageCount() {
		p = 0
	}
	if err := mc.highlighter.ShowPage(p); err != nil {
		p = 0
	}
	mc.showPage(p)
	mc.mainView.ApplyHighlight(score.NoMeasure)
	mc.mainView.UpdateStatus(fmt.Sprintf("Reloaded: %d measures, %d with timestamps", doc.Index.TotalMeasures(), doc.Index.SyncedMeasures()))
}

// ExportPage saves the shown page with its boxes as PNG.
func (mc *MainController) ExportPage() {
	if mc.doc == nil {
		return
	}
	name := fmt.Sprintf("page-%d.png", mc.page+1)
	mc.mainView.ShowSaveDialog(name, func(w fyne.URIWriteCloser, err error) {
		if err != nil {
			mc.handleError("export failed", err)
			return
		}
		if w == nil {
			return
		}
		defer w.Close()
		if err := mc.WritePage(w); err != nil {
			mc.handleError("export failed", err)
			return
		}
		mc.mainView.UpdateStatus("Exported " + w.URI().Name())
	})
}

// WritePage encodes the shown page, boxes and highlight as PNG.
func (mc *MainController) WritePage(w io.Writer) error {
	if mc.doc == nil {
		return fmt.Errorf("no score open")
	}
	page, err := mc.doc.Index.Page(mc.page)
	if err != nil {
		return err
	}
	boxes, err := mc.doc.Index.PageMeasures(mc.page)
	if err != nil {
		return err
	}
	img, err := mc.renderPage(mc.page, page.Size)
	if err != nil {
		return err
	}
	return render.ExportPNG(w, img, page.Size, boxes, mc.highlighter.Active(), mc.opts.ExportStyle)
}

// Page returns the page shown.
func (mc *MainController) Page() int { return mc.page }

// Active returns the highlighted measure.
func (mc *MainController) Active() score.Measure {
	if mc.highlighter == nil {
		return score.NoMeasure
	}
	return mc.highlighter.Active()
}

func (mc *MainController) showPage(p int) {
	page, err := mc.doc.Index.Page(p)
	if err != nil {
		mc.handleError("show page failed", err)
		return
	}
	boxes, err := mc.doc.Index.PageMeasures(p)
	if err != nil {
		mc.handleError("show page failed", err)
		return
	}

	img, err := mc.renderPage(p, page.Size)
	if err != nil {
		// boxes stay usable without the bitmap
		mc.logger.Error("page render failed", err, map[string]interface{}{"page": p})
		mc.mainView.UpdateStatus(fmt.Sprintf("Page %d could not be rendered", p+1))
	}

	mc.page = p
	mc.mainView.ShowPage(p, mc.doc.Index.PageCount(), img, page.Size, boxes)
}

func (mc *MainController) renderPage(p int, size score.Size) (image.Image, error) {
	if p >= mc.pages.PageCount() {
		return nil, fmt.Errorf("PDF has no page %d", p+1)
	}
	return mc.pages.Render(p, int(size.Width), int(size.Height))
}

func (mc *MainController) closeScore() {
	if mc.stopWatch != nil {
		mc.stopWatch()
		mc.stopWatch = nil
	}
	if mc.watcher != nil {
		mc.watcher.Close()
		mc.watcher = nil
	}
	if mc.player != nil {
		if err := mc.player.Close(); err != nil {
			mc.logger.Error("close audio", err, nil)
		}
		mc.player = nil
	}
	if mc.pages != nil {
		if err := mc.pages.Close(); err != nil {
			mc.logger.Error("close PDF", err, nil)
		}
		mc.pages = nil
	}
	mc.doc = nil
	mc.highlighter = nil
	mc.page = 0
}

// Shutdown releases the open score. It is called once the event loop has
// stopped.
func (mc *MainController) Shutdown() {
	mc.closeScore()
}

func (mc *MainController) handleError(msg string, err error) {
	mc.logger.Error(msg, err, nil)
	if mc.mainView != nil {
		mc.mainView.ShowError(err)
		mc.mainView.UpdateStatus(msg)
	}
}
