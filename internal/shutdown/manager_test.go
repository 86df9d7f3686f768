package shutdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"score-viewer/internal/logger"
)

func TestShutdownRunsComponentsInReverseOrder(t *testing.T) {
	m := NewManager(logger.NopLogger{})

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		m.Register(Func(func() { order = append(order, i) }))
	}

	m.Shutdown()
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.Error(t, m.Context().Err())

	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	m := NewManager(logger.NopLogger{})
	calls := 0
	m.Register(Func(func() { calls++ }))

	m.Shutdown()
	m.Shutdown()
	assert.Equal(t, 1, calls)
}

func TestShutdownDoesNotWaitForeverOnStuckComponent(t *testing.T) {
	m := NewManager(logger.NopLogger{})
	m.SetTimeout(20 * time.Millisecond)

	block := make(chan struct{})
	defer close(block)
	m.Register(Func(func() { <-block }))

	finished := make(chan struct{})
	go func() {
		m.Shutdown()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown blocked on stuck component")
	}
}
