package score

// Measure is a document-wide, 1-based measure number.
type Measure int

// NoMeasure marks the absence of an active measure.
const NoMeasure Measure = 0

// Rect is a measure rectangle in page pixel coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Size is the expected render size of a page.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Page is one page of the layout document.
type Page struct {
	Size     Size
	Measures []Rect
}

// Layout is the decoded measure-box document.
type Layout struct {
	Pages []Page
}

// TimestampEntry pairs a measure with its start time in seconds.
type TimestampEntry struct {
	Measure Measure
	Seconds float64
}

// MeasureBox is a rectangle annotated with its global measure number.
type MeasureBox struct {
	Measure Measure
	Page    int
	Rect    Rect
}
