package score

import (
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func layoutWithCounts(counts ...int) Layout {
	var l Layout
	for _, c := range counts {
		p := Page{Size: Size{Width: 800, Height: 1000}, Measures: []Rect{}}
		for i := 0; i < c; i++ {
			x := float64(i * 100)
			p.Measures = append(p.Measures, Rect{Left: x, Top: 10, Right: x + 90, Bottom: 90})
		}
		l.Pages = append(l.Pages, p)
	}
	return l
}

func exampleIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := LoadIndex("testdata/measure_boxes.json", "testdata/timestamps.txt")
	require.NoError(t, err)
	return idx
}

func TestLoadIndexFromFiles(t *testing.T) {
	idx := exampleIndex(t)

	assert.Equal(t, 2, idx.PageCount())
	assert.Equal(t, 5, idx.TotalMeasures())
	assert.Equal(t, []int{3, 2}, idx.MeasureCounts())
	assert.Equal(t, 5, idx.SyncedMeasures())
	assert.True(t, idx.Monotonic())

	page, err := idx.Page(1)
	require.NoError(t, err)
	assert.Equal(t, Size{Width: 1240, Height: 1754}, page.Size)
	assert.Equal(t, Rect{Left: 100, Top: 180, Right: 600, Bottom: 400}, page.Measures[0])
}

func TestGlobalNumbersAreContiguousAcrossPages(t *testing.T) {
	layouts := []Layout{
		layoutWithCounts(3, 2),
		layoutWithCounts(1),
		layoutWithCounts(4, 0, 7, 1),
		layoutWithCounts(0, 2, 0),
	}

	for _, l := range layouts {
		idx, err := NewIndex(l, nil)
		require.NoError(t, err)

		want := Measure(1)
		for p := 0; p < idx.PageCount(); p++ {
			boxes, err := idx.PageMeasures(p)
			require.NoError(t, err)
			for _, b := range boxes {
				assert.Equal(t, want, b.Measure, "page %d", p)
				got, err := idx.PageOf(b.Measure)
				require.NoError(t, err)
				assert.Equal(t, p, got)
				want++
			}
		}
		assert.Equal(t, idx.TotalMeasures(), int(want-1))
	}
}

func TestGlobalNumberFirstMeasureIsOne(t *testing.T) {
	idx, err := NewIndex(layoutWithCounts(3, 2), nil)
	require.NoError(t, err)

	m, err := idx.GlobalNumber(0, 1)
	require.NoError(t, err)
	assert.Equal(t, Measure(1), m)

	m, err = idx.GlobalNumber(1, 2)
	require.NoError(t, err)
	assert.Equal(t, Measure(5), m)

	_, err = idx.GlobalNumber(1, 3)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = idx.GlobalNumber(2, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestPageOfOutOfRange(t *testing.T) {
	idx := exampleIndex(t)

	for _, m := range []Measure{0, -1, 6, 100} {
		_, err := idx.PageOf(m)
		require.Error(t, err, "measure %d", m)

		var rangeErr *RangeError
		require.True(t, errors.As(err, &rangeErr))
		assert.Equal(t, int(m), rangeErr.Value)
		assert.Equal(t, 5, rangeErr.Max)
	}
}

func TestTimestampLookup(t *testing.T) {
	idx := exampleIndex(t)

	s, err := idx.Timestamp(4)
	require.NoError(t, err)
	assert.Equal(t, 3.5, s)

	_, err = idx.Timestamp(0)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = idx.Timestamp(6)
	assert.ErrorIs(t, err, ErrOutOfRange)

	partial, err := NewIndex(layoutWithCounts(3), []TimestampEntry{{Measure: 1, Seconds: 0}})
	require.NoError(t, err)
	_, err = partial.Timestamp(2)
	assert.ErrorIs(t, err, ErrNoTimestamp)
}

func TestMeasureAt(t *testing.T) {
	idx := exampleIndex(t)

	cases := []struct {
		seconds float64
		want    Measure
		ok      bool
	}{
		{-0.001, NoMeasure, false},
		{0.0, 1, true},
		{0.99, 1, true},
		{1.0, 2, true},
		{2.5, 3, true},
		{3.5, 4, true},
		{4.99, 4, true},
		{5.0, 5, true},
		{1000, 5, true},
		{math.NaN(), NoMeasure, false},
	}
	for _, tc := range cases {
		got, ok := idx.MeasureAt(tc.seconds)
		assert.Equal(t, tc.ok, ok, "t=%v", tc.seconds)
		assert.Equal(t, tc.want, got, "t=%v", tc.seconds)
	}
}

func TestMeasureAtIsAStepFunction(t *testing.T) {
	idx := exampleIndex(t)

	prev, _ := idx.MeasureAt(0)
	for ts := 0.0; ts < 6; ts += 0.05 {
		m, ok := idx.MeasureAt(ts)
		require.True(t, ok)
		assert.GreaterOrEqual(t, m, prev, "t=%v", ts)
		start, err := idx.Timestamp(m)
		require.NoError(t, err)
		assert.LessOrEqual(t, start, ts)
		prev = m
	}
}

func TestMeasureAtTieBreakPrefersHigherMeasure(t *testing.T) {
	idx, err := NewIndex(layoutWithCounts(4), []TimestampEntry{
		{Measure: 1, Seconds: 0},
		{Measure: 3, Seconds: 2},
		{Measure: 2, Seconds: 2},
		{Measure: 4, Seconds: 3},
	})
	require.NoError(t, err)

	m, ok := idx.MeasureAt(2)
	require.True(t, ok)
	assert.Equal(t, Measure(3), m)

	m, _ = idx.MeasureAt(2.9)
	assert.Equal(t, Measure(3), m)
}

func TestNewIndexRejectsTimestampsOutsideLayout(t *testing.T) {
	_, err := NewIndex(layoutWithCounts(2), []TimestampEntry{{Measure: 3, Seconds: 1}})
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = NewIndex(layoutWithCounts(2), []TimestampEntry{{Measure: 0, Seconds: 1}})
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestNewIndexDuplicateMeasureKeepsLastRecord(t *testing.T) {
	idx, err := NewIndex(layoutWithCounts(2), []TimestampEntry{
		{Measure: 1, Seconds: 0},
		{Measure: 2, Seconds: 1},
		{Measure: 2, Seconds: 1.5},
	})
	require.NoError(t, err)

	s, err := idx.Timestamp(2)
	require.NoError(t, err)
	assert.Equal(t, 1.5, s)
	assert.Equal(t, 2, idx.SyncedMeasures())

	m, _ := idx.MeasureAt(1.2)
	assert.Equal(t, Measure(1), m)
}

func TestMonotonicDetectsInversions(t *testing.T) {
	idx, err := NewIndex(layoutWithCounts(3), []TimestampEntry{
		{Measure: 1, Seconds: 0},
		{Measure: 2, Seconds: 4},
		{Measure: 3, Seconds: 2},
	})
	require.NoError(t, err)
	assert.False(t, idx.Monotonic())
}

func TestLoadLayoutMissingMeasures(t *testing.T) {
	f, err := os.Open("testdata/missing_measures.json")
	require.NoError(t, err)
	defer f.Close()

	_, err = LoadLayout(f)
	require.ErrorIs(t, err, ErrMalformedInput)
	assert.Contains(t, err.Error(), "page 1")
}

func TestLoadLayoutErrors(t *testing.T) {
	inputs := []string{
		`not json`,
		`{}`,
		`{"pages": [{"size": {"width": -1, "height": 10}, "measures": []}]}`,
	}
	for _, in := range inputs {
		_, err := LoadLayout(strings.NewReader(in))
		assert.ErrorIs(t, err, ErrMalformedInput, in)
	}
}

func TestParseTimestamps(t *testing.T) {
	entries, err := ParseTimestamps(strings.NewReader("1 0.0\n\n2\t1.25\n  3   2  \n"))
	require.NoError(t, err)
	assert.Equal(t, []TimestampEntry{
		{Measure: 1, Seconds: 0},
		{Measure: 2, Seconds: 1.25},
		{Measure: 3, Seconds: 2},
	}, entries)
}

func TestParseTimestampsMalformed(t *testing.T) {
	inputs := []string{
		"1\n",
		"1 2 3\n",
		"one 2.0\n",
		"1.5 2.0\n",
		"1 soon\n",
		"1 NaN\n",
		"1 0.0\n2 x\n",
	}
	for _, in := range inputs {
		entries, err := ParseTimestamps(strings.NewReader(in))
		assert.ErrorIs(t, err, ErrMalformedInput, "%q", in)
		assert.Nil(t, entries)
	}
}

func TestLoadIndexAbortsOnMalformedTimestamps(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/timestamps.txt"
	require.NoError(t, os.WriteFile(path, []byte("1 0.0\n2 oops\n"), 0o644))

	idx, err := LoadIndex("testdata/measure_boxes.json", path)
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.Nil(t, idx)
}

func TestRangeErrorMessage(t *testing.T) {
	err := &RangeError{What: "measure", Value: 6, Min: 1, Max: 5}
	assert.Equal(t, "measure 6 out of range [1, 5]", err.Error())
	assert.True(t, errors.Is(err, ErrOutOfRange))
}
