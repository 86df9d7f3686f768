package views

import (
	"image"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"

	"score-viewer/internal/score"
	"score-viewer/internal/views/components"
)

// MainView is the score window: toolbar, page and status bar.
type MainView struct {
	window        fyne.Window
	mainContainer *fyne.Container
	toolbar       *components.Toolbar
	pageView      *components.PageView
	statusBar     *components.StatusBar
}

func NewMainView(window fyne.Window, style components.BoxStyle) *MainView {
	view := &MainView{window: window}

	view.toolbar = components.NewToolbar()
	view.pageView = components.NewPageView(style)
	view.statusBar = components.NewStatusBar()

	view.mainContainer = container.NewBorder(
		view.toolbar.GetContainer(),
		view.statusBar.GetContainer(),
		nil,
		nil,
		view.pageView.GetContainer(),
	)
	window.SetContent(view.mainContainer)
	return view
}

// Handler setters, called by the controller. Handlers run on the UI thread.

func (mv *MainView) SetOpenHandler(handler func())       { mv.toolbar.SetOpenHandler(handler) }
func (mv *MainView) SetPrevPageHandler(handler func())   { mv.toolbar.SetPrevPageHandler(handler) }
func (mv *MainView) SetNextPageHandler(handler func())   { mv.toolbar.SetNextPageHandler(handler) }
func (mv *MainView) SetPlayHandler(handler func())       { mv.toolbar.SetPlayHandler(handler) }
func (mv *MainView) SetPauseHandler(handler func())      { mv.toolbar.SetPauseHandler(handler) }
func (mv *MainView) SetFollowHandler(handler func(bool)) { mv.toolbar.SetFollowHandler(handler) }
func (mv *MainView) SetExportHandler(handler func())     { mv.toolbar.SetExportHandler(handler) }
func (mv *MainView) SetMeasureTapHandler(handler func(score.Measure)) {
	mv.pageView.SetTapHandler(handler)
}

// ShowPage displays a page bitmap with its boxes and updates the page label.
func (mv *MainView) ShowPage(page, total int, img image.Image, size score.Size, boxes []score.MeasureBox) {
	fyne.Do(func() {
		mv.pageView.SetPage(img, size, boxes)
		mv.statusBar.SetPage(page, total)
	})
}

// ApplyHighlight marks active as the playing measure.
func (mv *MainView) ApplyHighlight(active score.Measure) {
	fyne.Do(func() {
		mv.pageView.ApplyHighlight(active)
		mv.statusBar.SetMeasure(active)
	})
}

func (mv *MainView) SetPosition(d time.Duration) {
	fyne.Do(func() {
		mv.statusBar.SetPosition(d)
	})
}

func (mv *MainView) SetPlaying(playing bool) {
	fyne.Do(func() {
		mv.toolbar.SetPlaying(playing)
	})
}

func (mv *MainView) SetFollow(on bool) {
	fyne.Do(func() {
		mv.toolbar.SetFollow(on)
	})
}

func (mv *MainView) UpdateStatus(status string) {
	fyne.Do(func() {
		mv.statusBar.SetStatus(status)
	})
}

// EnableScoreOperations enables the controls that need an open score.
func (mv *MainView) EnableScoreOperations(enabled bool) {
	fyne.Do(func() {
		mv.toolbar.EnableScoreOperations(enabled)
	})
}

func (mv *MainView) ShowError(err error) {
	fyne.Do(func() {
		dialog.ShowError(err, mv.window)
	})
}

func (mv *MainView) ShowInfo(title, message string) {
	fyne.Do(func() {
		dialog.ShowInformation(title, message, mv.window)
	})
}

// ShowFolderDialog asks for a score folder.
func (mv *MainView) ShowFolderDialog(callback func(fyne.ListableURI, error)) {
	fyne.Do(func() {
		dialog.ShowFolderOpen(callback, mv.window)
	})
}

func (mv *MainView) ShowSaveDialog(name string, callback func(fyne.URIWriteCloser, error)) {
	fyne.Do(func() {
		d := dialog.NewFileSave(callback, mv.window)
		d.SetFileName(name)
		d.Show()
	})
}

func (mv *MainView) SetWindowTitle(title string) {
	fyne.Do(func() {
		mv.window.SetTitle(title)
	})
}

// ResetView returns to the empty state.
func (mv *MainView) ResetView() {
	fyne.Do(func() {
		mv.pageView.Clear()
		mv.statusBar.Reset()
		mv.toolbar.EnableScoreOperations(false)
	})
}

func (mv *MainView) GetWindow() fyne.Window              { return mv.window }
func (mv *MainView) GetContainer() *fyne.Container       { return mv.mainContainer }
func (mv *MainView) GetPageView() *components.PageView   { return mv.pageView }
func (mv *MainView) GetToolbar() *components.Toolbar     { return mv.toolbar }
func (mv *MainView) GetStatusBar() *components.StatusBar { return mv.statusBar }
