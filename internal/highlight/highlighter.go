// Package highlight turns playback positions and measure clicks into the
// smallest set of changes the page view has to apply.
package highlight

import (
	"math"

	"score-viewer/internal/score"
)

// Decision is the outcome of resolving a playback position.
type Decision struct {
	// Active is the measure to highlight, score.NoMeasure for none.
	Active      score.Measure
	PageChanged bool
	TargetPage  int
}

// SeekRequest asks the playback collaborator to jump to a measure.
type SeekRequest struct {
	Measure     score.Measure
	Seconds     float64
	Millis      int64
	TargetPage  int
	PageChanged bool
}

// Highlighter owns the highlight state for one score. It is not safe for
// concurrent use; callers serialise calls on the UI thread.
type Highlighter struct {
	index *score.Index

	active score.Measure
	page   int

	// memo is the measure returned by the last Resolve; memoValid is cleared
	// whenever the state is changed by something other than Resolve.
	memo      score.Measure
	memoValid bool
}

// New returns a highlighter positioned on page 0 with nothing active.
func New(index *score.Index) *Highlighter {
	h := &Highlighter{index: index}
	h.Reset()
	return h
}

// Reset returns to the state of a freshly loaded document.
func (h *Highlighter) Reset() {
	h.active = score.NoMeasure
	h.page = 0
	h.memo = score.NoMeasure
	h.memoValid = false
}

// Index returns the score index the highlighter resolves against.
func (h *Highlighter) Index() *score.Index { return h.index }

// Active returns the highlighted measure, score.NoMeasure for none.
func (h *Highlighter) Active() score.Measure { return h.active }

// Page returns the page currently shown.
func (h *Highlighter) Page() int { return h.page }

// Resolve maps an elapsed time to the active measure. The boolean is false
// when nothing changed since the previous call, in which case the returned
// decision carries PageChanged=false for the current page.
func (h *Highlighter) Resolve(seconds float64) (Decision, bool) {
	active := score.NoMeasure
	if seconds >= 0 && !math.IsNaN(seconds) {
		if m, ok := h.index.MeasureAt(seconds); ok {
			active = m
		}
	}

	if h.memoValid && active == h.memo {
		return Decision{Active: h.active, TargetPage: h.page}, false
	}
	h.memo = active
	h.memoValid = true

	d := Decision{Active: active, TargetPage: h.page}
	if active != score.NoMeasure {
		// MeasureAt only returns measures the index accepted, PageOf cannot fail
		if p, err := h.index.PageOf(active); err == nil {
			d.TargetPage = p
		}
	}
	d.PageChanged = d.TargetPage != h.page

	h.active = active
	h.page = d.TargetPage
	return d, true
}

// ResolveClick validates a clicked measure and returns where playback should
// jump. The measure becomes active immediately, before playback catches up.
func (h *Highlighter) ResolveClick(m score.Measure) (SeekRequest, error) {
	page, err := h.index.PageOf(m)
	if err != nil {
		return SeekRequest{}, err
	}
	seconds, err := h.index.Timestamp(m)
	if err != nil {
		return SeekRequest{}, err
	}

	req := SeekRequest{
		Measure:     m,
		Seconds:     seconds,
		Millis:      int64(seconds * 1000),
		TargetPage:  page,
		PageChanged: page != h.page,
	}

	h.active = m
	h.page = page
	h.memoValid = false
	return req, nil
}

// ShowPage switches to page p on user request and clears the highlight.
func (h *Highlighter) ShowPage(p int) error {
	if _, err := h.index.Page(p); err != nil {
		return err
	}
	h.page = p
	h.active = score.NoMeasure
	h.memoValid = false
	return nil
}
