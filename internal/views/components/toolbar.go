package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Toolbar holds the score, navigation and playback controls.
type Toolbar struct {
	container    *fyne.Container
	openButton   *widget.Button
	prevButton   *widget.Button
	nextButton   *widget.Button
	playButton   *widget.Button
	pauseButton  *widget.Button
	followCheck  *widget.Check
	exportButton *widget.Button

	openHandler   func()
	prevHandler   func()
	nextHandler   func()
	playHandler   func()
	pauseHandler  func()
	followHandler func(bool)
	exportHandler func()
}

func NewToolbar() *Toolbar {
	t := &Toolbar{}
	t.createComponents()
	t.buildLayout()
	t.setupEventHandlers()
	t.EnableScoreOperations(false)
	return t
}

func (t *Toolbar) createComponents() {
	t.openButton = widget.NewButtonWithIcon("Open", theme.FolderOpenIcon(), nil)
	t.openButton.Importance = widget.HighImportance

	t.prevButton = widget.NewButtonWithIcon("Previous Page", theme.NavigateBackIcon(), nil)
	t.nextButton = widget.NewButtonWithIcon("Next Page", theme.NavigateNextIcon(), nil)

	t.playButton = widget.NewButtonWithIcon("Play", theme.MediaPlayIcon(), nil)
	t.playButton.Importance = widget.HighImportance
	t.pauseButton = widget.NewButtonWithIcon("Pause", theme.MediaPauseIcon(), nil)

	t.followCheck = widget.NewCheck("Follow", nil)
	t.followCheck.SetChecked(true)

	t.exportButton = widget.NewButtonWithIcon("Export Page", theme.DocumentSaveIcon(), nil)
}

func (t *Toolbar) buildLayout() {
	t.container = container.NewHBox(
		t.openButton,
		widget.NewSeparator(),
		t.prevButton,
		t.nextButton,
		widget.NewSeparator(),
		t.playButton,
		t.pauseButton,
		t.followCheck,
		widget.NewSeparator(),
		t.exportButton,
	)
}

func (t *Toolbar) setupEventHandlers() {
	t.openButton.OnTapped = func() { call(t.openHandler) }
	t.prevButton.OnTapped = func() { call(t.prevHandler) }
	t.nextButton.OnTapped = func() { call(t.nextHandler) }
	t.playButton.OnTapped = func() { call(t.playHandler) }
	t.pauseButton.OnTapped = func() { call(t.pauseHandler) }
	t.exportButton.OnTapped = func() { call(t.exportHandler) }
	t.followCheck.OnChanged = func(on bool) {
		if t.followHandler != nil {
			t.followHandler(on)
		}
	}
}

func call(handler func()) {
	if handler != nil {
		handler()
	}
}

func (t *Toolbar) SetOpenHandler(handler func())       { t.openHandler = handler }
func (t *Toolbar) SetPrevPageHandler(handler func())   { t.prevHandler = handler }
func (t *Toolbar) SetNextPageHandler(handler func())   { t.nextHandler = handler }
func (t *Toolbar) SetPlayHandler(handler func())       { t.playHandler = handler }
func (t *Toolbar) SetPauseHandler(handler func())      { t.pauseHandler = handler }
func (t *Toolbar) SetFollowHandler(handler func(bool)) { t.followHandler = handler }
func (t *Toolbar) SetExportHandler(handler func())     { t.exportHandler = handler }

// EnableScoreOperations enables the controls that need an open score.
func (t *Toolbar) EnableScoreOperations(enabled bool) {
	for _, b := range []*widget.Button{t.prevButton, t.nextButton, t.playButton, t.pauseButton, t.exportButton} {
		if enabled {
			b.Enable()
		} else {
			b.Disable()
		}
	}
}

// SetFollow updates the check box without notifying the handler.
func (t *Toolbar) SetFollow(on bool) {
	handler := t.followCheck.OnChanged
	t.followCheck.OnChanged = nil
	t.followCheck.SetChecked(on)
	t.followCheck.OnChanged = handler
}

func (t *Toolbar) Follow() bool { return t.followCheck.Checked }

// SetPlaying swaps which of Play and Pause is emphasised.
func (t *Toolbar) SetPlaying(playing bool) {
	if playing {
		t.playButton.Importance = widget.MediumImportance
		t.pauseButton.Importance = widget.HighImportance
	} else {
		t.playButton.Importance = widget.HighImportance
		t.pauseButton.Importance = widget.MediumImportance
	}
	t.playButton.Refresh()
	t.pauseButton.Refresh()
}

func (t *Toolbar) GetContainer() *fyne.Container {
	return t.container
}
