package effects

import (
	"time"

	"github.com/solr2/lightserver/internal/leds"
)

// State is the animation state of one LED under one effect. Owned
// exclusively by the transmitter goroutine; producers never touch it.
type State struct {
	ID     leds.ID
	Spec   Spec
	start  time.Time
	offset time.Duration
	stage  string
}

// elapsed includes the sequential phase offset so staggered LEDs run
// the same cycle shifted in time.
func (st *State) elapsed(now time.Time) time.Duration {
	e := now.Sub(st.start) + st.offset
	if e < 0 {
		e = 0
	}
	return e
}

// Sample is one LED's computed output for the current instant.
type Sample struct {
	Color    Color
	SendMode SendMode
}

// Frame maps every active LED to its output at one instant.
type Frame map[leds.ID]Sample

// Engine holds all active animation states. Not safe for concurrent
// use: only the transmitter loop calls into it.
type Engine struct {
	states map[leds.ID]*State

	// OnTransition, when set, is called whenever an effect crosses a
	// discrete stage boundary (blink ON/OFF, fade RISING/FALLING).
	OnTransition func(id leds.ID, kind Kind, from, to string)
}

func NewEngine() *Engine {
	return &Engine{states: make(map[leds.ID]*State)}
}

// Apply starts spec on every LED in targets, replacing any prior state
// for those LEDs in one step; no frame can mix an old and a new effect
// on the same LED. With sequential send mode the i-th target in layout
// order starts with a phase offset of i*Delay, producing the
// caterpillar visual.
func (e *Engine) Apply(targets leds.TargetSet, spec Spec, now time.Time) {
	for i, id := range targets.IDs() {
		st := &State{
			ID:    id,
			Spec:  spec,
			start: now,
			stage: spec.Stage(0),
		}
		if spec.SendMode == Sequential {
			st.offset = time.Duration(i) * spec.Delay
		}
		e.states[id] = st
	}
}

// Advance computes the frame for every active state at now, reporting
// stage transitions along the way.
func (e *Engine) Advance(now time.Time) Frame {
	frame := make(Frame, len(e.states))
	for id, st := range e.states {
		elapsed := st.elapsed(now)
		color, brightness := st.Spec.Advance(elapsed)

		if stage := st.Spec.Stage(elapsed); stage != st.stage {
			if e.OnTransition != nil {
				e.OnTransition(id, st.Spec.Kind, st.stage, stage)
			}
			st.stage = stage
		}

		frame[id] = Sample{
			Color:    color.Scale(brightness),
			SendMode: st.Spec.SendMode,
		}
	}
	return frame
}

// ClearSide drops every state on one side. Called after a device gives
// up retrying; the other side keeps animating.
func (e *Engine) ClearSide(side leds.Side) {
	for id := range e.states {
		if id.Side == side {
			delete(e.states, id)
		}
	}
}

// Animated reports whether any active state changes over time.
func (e *Engine) Animated() bool {
	for _, st := range e.states {
		if st.Spec.Kind.Animated() {
			return true
		}
	}
	return false
}

func (e *Engine) Len() int {
	return len(e.states)
}
