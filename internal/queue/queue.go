// Package queue decouples action invocations from the transmitter loop
// with a bounded FIFO of pending LED-update intents.
package queue

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/solr2/lightserver/internal/effects"
	"github.com/solr2/lightserver/internal/leds"
)

// ErrFull is returned when the queue is at capacity. The producer is
// never blocked and existing entries are never displaced; the caller
// decides whether to drop or retry.
var ErrFull = errors.New("command queue full")

// Intent is one unit of work: apply an effect to a resolved target set.
// Immutable after creation. ID exists only to correlate telemetry.
type Intent struct {
	ID       string
	Targets  leds.TargetSet
	Spec     effects.Spec
	Enqueued time.Time
}

func NewIntent(targets leds.TargetSet, spec effects.Spec) Intent {
	return Intent{
		ID:       uuid.NewString(),
		Targets:  targets,
		Spec:     spec,
		Enqueued: time.Now(),
	}
}

// Queue is a bounded one-way buffer: many producers, one consumer.
type Queue struct {
	ch chan Intent
}

func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Intent, capacity)}
}

// Enqueue adds an intent without ever blocking the caller.
func (q *Queue) Enqueue(intent Intent) error {
	select {
	case q.ch <- intent:
		return nil
	default:
		return ErrFull
	}
}

// Dequeue removes the oldest intent, if any. Non-blocking; consumed
// only by the transmitter loop.
func (q *Queue) Dequeue() (Intent, bool) {
	select {
	case intent := <-q.ch:
		return intent, true
	default:
		return Intent{}, false
	}
}

func (q *Queue) Len() int {
	return len(q.ch)
}
