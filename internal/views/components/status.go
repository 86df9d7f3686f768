package components

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"score-viewer/internal/score"
)

// StatusBar shows the page, the highlighted measure and the playback time.
type StatusBar struct {
	container     *fyne.Container
	statusLabel   *widget.Label
	pageLabel     *widget.Label
	measureLabel  *widget.Label
	positionLabel *widget.Label
}

func NewStatusBar() *StatusBar {
	sb := &StatusBar{}
	sb.createComponents()
	sb.buildLayout()
	return sb
}

func (sb *StatusBar) createComponents() {
	sb.statusLabel = widget.NewLabel("Ready")
	sb.pageLabel = widget.NewLabel("No score loaded")
	sb.measureLabel = widget.NewLabel("Measure: --")
	sb.positionLabel = widget.NewLabel(FormatPosition(0))
}

func (sb *StatusBar) buildLayout() {
	sb.container = container.NewHBox(
		sb.statusLabel,
		widget.NewSeparator(),
		sb.pageLabel,
		widget.NewSeparator(),
		sb.measureLabel,
		widget.NewSeparator(),
		sb.positionLabel,
	)
}

func (sb *StatusBar) SetStatus(status string) {
	sb.statusLabel.SetText(status)
}

func (sb *StatusBar) GetStatus() string {
	return sb.statusLabel.Text
}

// SetPage shows a 0-based page as "Page n/N".
func (sb *StatusBar) SetPage(page, total int) {
	sb.pageLabel.SetText(fmt.Sprintf("Page %d/%d", page+1, total))
}

func (sb *StatusBar) SetMeasure(m score.Measure) {
	if m == score.NoMeasure {
		sb.measureLabel.SetText("Measure: --")
		return
	}
	sb.measureLabel.SetText(fmt.Sprintf("Measure: %d", m))
}

func (sb *StatusBar) SetPosition(d time.Duration) {
	sb.positionLabel.SetText(FormatPosition(d))
}

// Texts returns the label texts in display order.
func (sb *StatusBar) Texts() []string {
	return []string{sb.statusLabel.Text, sb.pageLabel.Text, sb.measureLabel.Text, sb.positionLabel.Text}
}

func (sb *StatusBar) Reset() {
	sb.statusLabel.SetText("Ready")
	sb.pageLabel.SetText("No score loaded")
	sb.measureLabel.SetText("Measure: --")
	sb.positionLabel.SetText(FormatPosition(0))
}

func (sb *StatusBar) GetContainer() *fyne.Container {
	return sb.container
}

// FormatPosition renders d as m:ss.t.
func FormatPosition(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	tenths := d.Milliseconds() / 100
	return fmt.Sprintf("%d:%02d.%d", tenths/600, tenths/10%60, tenths%10)
}
