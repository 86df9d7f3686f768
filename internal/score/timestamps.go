package score

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ParseTimestamps reads "<measure> <seconds>" records, one per line. Blank
// lines are ignored; anything else that is not exactly one integer followed by
// one float fails the whole parse.
func ParseTimestamps(r io.Reader) ([]TimestampEntry, error) {
	var entries []TimestampEntry

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, malformed("timestamps line %d: expected 2 fields, got %d", line, len(fields))
		}
		measure, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, malformed("timestamps line %d: measure %q is not an integer", line, fields[0])
		}
		seconds, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
			return nil, malformed("timestamps line %d: time %q is not a number", line, fields[1])
		}

		entries = append(entries, TimestampEntry{Measure: Measure(measure), Seconds: seconds})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read timestamps: %w", err)
	}
	return entries, nil
}
