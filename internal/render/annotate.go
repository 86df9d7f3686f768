package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"score-viewer/internal/score"
)

// Style controls how measure boxes are drawn onto an exported page.
type Style struct {
	Active      color.Color
	Inactive    color.Color
	StrokeWidth float64
	FontSize    float64
	Numbers     bool
}

// DefaultStyle matches the viewer: green boxes, the playing one in red.
func DefaultStyle() Style {
	return Style{
		Active:      color.NRGBA{R: 0xff, A: 0xff},
		Inactive:    color.NRGBA{G: 0xff, A: 0xff},
		StrokeWidth: 2,
		FontSize:    14,
		Numbers:     true,
	}
}

var (
	fontOnce sync.Once
	fontErr  error
	regular  *truetype.Font
)

func loadFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		regular, fontErr = truetype.Parse(goregular.TTF)
	})
	return regular, fontErr
}

// Annotate draws boxes over a copy of page. Box coordinates are in the
// layout's page size and are scaled when the bitmap has a different size.
func Annotate(page image.Image, size score.Size, boxes []score.MeasureBox, active score.Measure, style Style) (image.Image, error) {
	if page == nil {
		return nil, fmt.Errorf("no page image")
	}

	bounds := page.Bounds()
	sx, sy := 1.0, 1.0
	if size.Width > 0 && size.Height > 0 {
		sx = float64(bounds.Dx()) / size.Width
		sy = float64(bounds.Dy()) / size.Height
	}

	dc := gg.NewContextForImage(page)
	if style.Numbers {
		f, err := loadFont()
		if err != nil {
			return nil, fmt.Errorf("load font: %w", err)
		}
		dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: style.FontSize}))
	}

	// the active box is drawn last so it stays on top of overlapping neighbours
	ordered := make([]score.MeasureBox, 0, len(boxes))
	var activeBox *score.MeasureBox
	for i := range boxes {
		if boxes[i].Measure == active {
			activeBox = &boxes[i]
			continue
		}
		ordered = append(ordered, boxes[i])
	}
	if activeBox != nil {
		ordered = append(ordered, *activeBox)
	}

	for _, b := range ordered {
		c := style.Inactive
		if b.Measure == active {
			c = style.Active
		}
		x, y := b.Rect.Left*sx, b.Rect.Top*sy
		w, h := b.Rect.Width()*sx, b.Rect.Height()*sy

		dc.SetColor(c)
		dc.SetLineWidth(style.StrokeWidth)
		dc.DrawRectangle(x, y, w, h)
		dc.Stroke()

		if style.Numbers {
			dc.DrawStringAnchored(fmt.Sprint(int(b.Measure)), x+style.StrokeWidth+2, y+style.StrokeWidth+2, 0, 1)
		}
	}
	return dc.Image(), nil
}

// ExportPNG annotates page and writes it as PNG.
func ExportPNG(w io.Writer, page image.Image, size score.Size, boxes []score.MeasureBox, active score.Measure, style Style) error {
	img, err := Annotate(page, size, boxes, active, style)
	if err != nil {
		return err
	}
	dc := gg.NewContextForImage(img)
	return dc.EncodePNG(w)
}
