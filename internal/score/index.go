package score

import (
	"fmt"
	"math"
	"os"
	"sort"
)

type timedMeasure struct {
	seconds float64
	measure Measure
}

// Index is the immutable lookup structure built from a layout and a timestamp
// table. All methods are safe for concurrent readers.
type Index struct {
	pages      []Page
	counts     []int
	cumulative []int // cumulative[p] = measures on pages before p; len = pages+1
	times      map[Measure]float64
	table      []timedMeasure
}

// NewIndex builds an index. Either a complete index or an error is returned.
func NewIndex(layout Layout, entries []TimestampEntry) (*Index, error) {
	idx := &Index{
		pages:      make([]Page, len(layout.Pages)),
		counts:     make([]int, len(layout.Pages)),
		cumulative: make([]int, len(layout.Pages)+1),
		times:      make(map[Measure]float64, len(entries)),
	}

	for p, page := range layout.Pages {
		if page.Measures == nil {
			return nil, malformed("page %d has no measures list", p)
		}
		idx.pages[p] = Page{Size: page.Size, Measures: append([]Rect(nil), page.Measures...)}
		idx.counts[p] = len(page.Measures)
		idx.cumulative[p+1] = idx.cumulative[p] + len(page.Measures)
	}

	total := idx.TotalMeasures()
	for _, e := range entries {
		if e.Measure < 1 || int(e.Measure) > total {
			return nil, malformed("timestamp for measure %d outside layout [1, %d]", e.Measure, total)
		}
		if math.IsNaN(e.Seconds) || math.IsInf(e.Seconds, 0) {
			return nil, malformed("timestamp for measure %d is not finite", e.Measure)
		}
		// a repeated measure keeps its last record
		idx.times[e.Measure] = e.Seconds
	}

	idx.table = make([]timedMeasure, 0, len(idx.times))
	for m, s := range idx.times {
		idx.table = append(idx.table, timedMeasure{seconds: s, measure: m})
	}
	sort.Slice(idx.table, func(i, j int) bool {
		if idx.table[i].seconds != idx.table[j].seconds {
			return idx.table[i].seconds < idx.table[j].seconds
		}
		return idx.table[i].measure < idx.table[j].measure
	})

	return idx, nil
}

// LoadIndex reads the layout document and the timestamp table from disk.
func LoadIndex(layoutPath, timestampsPath string) (*Index, error) {
	lf, err := os.Open(layoutPath)
	if err != nil {
		return nil, fmt.Errorf("open layout: %w", err)
	}
	defer lf.Close()

	layout, err := LoadLayout(lf)
	if err != nil {
		return nil, fmt.Errorf("load layout %s: %w", layoutPath, err)
	}

	tf, err := os.Open(timestampsPath)
	if err != nil {
		return nil, fmt.Errorf("open timestamps: %w", err)
	}
	defer tf.Close()

	entries, err := ParseTimestamps(tf)
	if err != nil {
		return nil, fmt.Errorf("load timestamps %s: %w", timestampsPath, err)
	}

	return NewIndex(layout, entries)
}

// PageCount returns the number of pages in the layout.
func (idx *Index) PageCount() int { return len(idx.pages) }

// TotalMeasures returns the number of measures across all pages.
func (idx *Index) TotalMeasures() int { return idx.cumulative[len(idx.pages)] }

// MeasureCounts returns a copy of the per-page measure counts.
func (idx *Index) MeasureCounts() []int {
	return append([]int(nil), idx.counts...)
}

// SyncedMeasures returns how many measures have a timestamp.
func (idx *Index) SyncedMeasures() int { return len(idx.table) }

// Page returns the page at p.
func (idx *Index) Page(p int) (Page, error) {
	if err := idx.checkPage(p); err != nil {
		return Page{}, err
	}
	return idx.pages[p], nil
}

// GlobalNumber returns the document-wide number of the measure at 1-based
// position on page. This is the only place the page offset is computed.
func (idx *Index) GlobalNumber(page, position int) (Measure, error) {
	if err := idx.checkPage(page); err != nil {
		return NoMeasure, err
	}
	if position < 1 || position > idx.counts[page] {
		return NoMeasure, &RangeError{What: "position", Value: position, Min: 1, Max: idx.counts[page]}
	}
	return Measure(idx.cumulative[page] + position), nil
}

// PageOf returns the page holding measure m.
func (idx *Index) PageOf(m Measure) (int, error) {
	if err := idx.CheckMeasure(m); err != nil {
		return 0, err
	}
	// first p with cumulative[p+1] >= m
	p := sort.Search(len(idx.pages), func(p int) bool {
		return idx.cumulative[p+1] >= int(m)
	})
	return p, nil
}

// CheckMeasure returns a *RangeError when m is not in [1, TotalMeasures].
func (idx *Index) CheckMeasure(m Measure) error {
	if m < 1 || int(m) > idx.TotalMeasures() {
		return &RangeError{What: "measure", Value: int(m), Min: 1, Max: idx.TotalMeasures()}
	}
	return nil
}

// Timestamp returns the start time in seconds of measure m.
func (idx *Index) Timestamp(m Measure) (float64, error) {
	if err := idx.CheckMeasure(m); err != nil {
		return 0, err
	}
	s, ok := idx.times[m]
	if !ok {
		return 0, fmt.Errorf("measure %d: %w", m, ErrNoTimestamp)
	}
	return s, nil
}

// MeasureAt returns the measure reached at the given time: the entry with the
// greatest start time not after seconds, the higher measure on equal times.
// It reports false before the first entry.
func (idx *Index) MeasureAt(seconds float64) (Measure, bool) {
	if math.IsNaN(seconds) {
		return NoMeasure, false
	}
	i := sort.Search(len(idx.table), func(i int) bool {
		return idx.table[i].seconds > seconds
	})
	if i == 0 {
		return NoMeasure, false
	}
	return idx.table[i-1].measure, true
}

// PageMeasures returns the boxes of page p tagged with their global numbers.
func (idx *Index) PageMeasures(p int) ([]MeasureBox, error) {
	if err := idx.checkPage(p); err != nil {
		return nil, err
	}
	boxes := make([]MeasureBox, 0, idx.counts[p])
	for i, r := range idx.pages[p].Measures {
		m, err := idx.GlobalNumber(p, i+1)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, MeasureBox{Measure: m, Page: p, Rect: r})
	}
	return boxes, nil
}

// Monotonic reports whether start times never decrease as measure numbers
// increase. The source data is expected to be, but is not guaranteed to be.
func (idx *Index) Monotonic() bool {
	prev := math.Inf(-1)
	for m := Measure(1); int(m) <= idx.TotalMeasures(); m++ {
		s, ok := idx.times[m]
		if !ok {
			continue
		}
		if s < prev {
			return false
		}
		prev = s
	}
	return true
}

func (idx *Index) checkPage(p int) error {
	if p < 0 || p >= len(idx.pages) {
		return &RangeError{What: "page", Value: p, Min: 0, Max: len(idx.pages) - 1}
	}
	return nil
}
