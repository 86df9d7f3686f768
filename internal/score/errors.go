package score

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput reports layout or timestamp data that cannot be used to
	// build an index. Loading aborts as a whole when it is returned.
	ErrMalformedInput = errors.New("malformed score input")

	// ErrOutOfRange is matched by every *RangeError through errors.Is.
	ErrOutOfRange = errors.New("out of range")

	// ErrNoTimestamp is returned for a measure that exists in the layout but
	// has no timestamp record.
	ErrNoTimestamp = errors.New("measure has no timestamp")
)

// RangeError describes a measure or page number outside the document.
type RangeError struct {
	What  string
	Value int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [%d, %d]", e.What, e.Value, e.Min, e.Max)
}

// Is lets callers test with errors.Is(err, ErrOutOfRange).
func (e *RangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}
