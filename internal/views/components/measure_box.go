package components

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"score-viewer/internal/score"
)

// BoxStyle holds the outline colours of measure boxes.
type BoxStyle struct {
	Active      color.Color
	Inactive    color.Color
	StrokeWidth float32
}

// DefaultBoxStyle draws green boxes with the playing one in red.
func DefaultBoxStyle() BoxStyle {
	return BoxStyle{
		Active:      color.NRGBA{R: 0xff, A: 0xff},
		Inactive:    color.NRGBA{G: 0xff, A: 0xff},
		StrokeWidth: 2,
	}
}

// MeasureBox is a transparent, tappable outline over one measure.
type MeasureBox struct {
	widget.BaseWidget

	measure score.Measure
	active  bool
	style   BoxStyle
	outline *canvas.Rectangle

	onTapped func(score.Measure)
}

func NewMeasureBox(m score.Measure, style BoxStyle, onTapped func(score.Measure)) *MeasureBox {
	b := &MeasureBox{
		measure:  m,
		style:    style,
		outline:  canvas.NewRectangle(color.Transparent),
		onTapped: onTapped,
	}
	b.outline.StrokeWidth = style.StrokeWidth
	b.outline.StrokeColor = style.Inactive
	b.ExtendBaseWidget(b)
	return b
}

func (b *MeasureBox) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(b.outline)
}

func (b *MeasureBox) Tapped(*fyne.PointEvent) {
	if b.onTapped != nil {
		b.onTapped(b.measure)
	}
}

// SetActive switches the outline colour. Nothing is redrawn when the state
// does not change.
func (b *MeasureBox) SetActive(active bool) {
	if b.active == active {
		return
	}
	b.active = active
	if active {
		b.outline.StrokeColor = b.style.Active
	} else {
		b.outline.StrokeColor = b.style.Inactive
	}
	b.outline.Refresh()
}

func (b *MeasureBox) Measure() score.Measure { return b.measure }
func (b *MeasureBox) IsActive() bool         { return b.active }

// StrokeColor is the colour currently drawn.
func (b *MeasureBox) StrokeColor() color.Color { return b.outline.StrokeColor }
