package components

import (
	"image"
	"sort"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"

	"score-viewer/internal/score"
)

// PageView shows one page bitmap with a MeasureBox over every measure.
type PageView struct {
	scroll  *container.Scroll
	image   *canvas.Image
	overlay *fyne.Container

	style BoxStyle
	boxes map[score.Measure]*MeasureBox

	active     score.Measure
	tapHandler func(score.Measure)
}

func NewPageView(style BoxStyle) *PageView {
	pv := &PageView{
		style: style,
		boxes: make(map[score.Measure]*MeasureBox),
	}

	pv.image = canvas.NewImageFromImage(nil)
	pv.image.FillMode = canvas.ImageFillStretch
	pv.image.ScaleMode = canvas.ImageScaleSmooth

	pv.overlay = container.NewWithoutLayout()
	pv.scroll = container.NewScroll(container.NewStack(pv.image, pv.overlay))
	return pv
}

// SetTapHandler sets the callback for taps on any measure box.
func (pv *PageView) SetTapHandler(handler func(score.Measure)) {
	pv.tapHandler = handler
}

// SetPage replaces the bitmap and rebuilds the boxes. The bitmap is shown at
// size; when size is zero the bitmap's own size is used.
func (pv *PageView) SetPage(img image.Image, size score.Size, boxes []score.MeasureBox) {
	w, h := float32(size.Width), float32(size.Height)
	if (w <= 0 || h <= 0) && img != nil {
		w, h = float32(img.Bounds().Dx()), float32(img.Bounds().Dy())
	}

	pv.image.Image = img
	pv.image.SetMinSize(fyne.NewSize(w, h))
	pv.image.Refresh()

	pv.boxes = make(map[score.Measure]*MeasureBox, len(boxes))
	objects := make([]fyne.CanvasObject, 0, len(boxes))
	for _, mb := range boxes {
		box := NewMeasureBox(mb.Measure, pv.style, pv.onTapped)
		box.Move(fyne.NewPos(float32(mb.Rect.Left), float32(mb.Rect.Top)))
		box.Resize(fyne.NewSize(float32(mb.Rect.Width()), float32(mb.Rect.Height())))
		pv.boxes[mb.Measure] = box
		objects = append(objects, box)
	}
	pv.overlay.Objects = objects
	pv.overlay.Refresh()

	pv.active = score.NoMeasure
	pv.scroll.ScrollToTop()
}

// ApplyHighlight makes active the only highlighted box. A measure that is not
// on this page leaves every box inactive.
func (pv *PageView) ApplyHighlight(active score.Measure) {
	for m, box := range pv.boxes {
		box.SetActive(m == active)
	}
	pv.active = active
}

// Clear removes the page.
func (pv *PageView) Clear() {
	pv.SetPage(nil, score.Size{}, nil)
}

func (pv *PageView) onTapped(m score.Measure) {
	if pv.tapHandler != nil {
		pv.tapHandler(m)
	}
}

// Active returns the measure last passed to ApplyHighlight.
func (pv *PageView) Active() score.Measure { return pv.active }

// Box returns the box of measure m, nil when m is not on the page.
func (pv *PageView) Box(m score.Measure) *MeasureBox { return pv.boxes[m] }

// Measures lists the measures on the page in ascending order.
func (pv *PageView) Measures() []score.Measure {
	out := make([]score.Measure, 0, len(pv.boxes))
	for m := range pv.boxes {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (pv *PageView) Image() image.Image { return pv.image.Image }

func (pv *PageView) GetContainer() fyne.CanvasObject { return pv.scroll }
