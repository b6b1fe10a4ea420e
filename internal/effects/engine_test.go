package effects

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solr2/lightserver/internal/leds"
)

func mustResolve(t *testing.T, expr string, side leds.Side) leds.TargetSet {
	t.Helper()
	ts, err := leds.Resolve(expr, side)
	require.NoError(t, err)
	return ts
}

func TestEngineAppliesToAllTargets(t *testing.T) {
	engine := NewEngine()
	now := time.Now()

	engine.Apply(mustResolve(t, "LED1/LED3", leds.Both), Spec{Kind: Static, Color: red}, now)
	assert.Equal(t, 6, engine.Len())

	frame := engine.Advance(now)
	require.Len(t, frame, 6)
	for id, sample := range frame {
		assert.Equal(t, red, sample.Color, "%s", id)
	}
}

func TestEngineReplacesOverlappingStates(t *testing.T) {
	engine := NewEngine()
	now := time.Now()
	green := Color{G: 255}

	engine.Apply(mustResolve(t, "LED1/LED3", leds.Left), Spec{Kind: Blink, Color: red, Delay: 100 * time.Millisecond}, now)
	engine.Apply(mustResolve(t, "LED2", leds.Left), Spec{Kind: Static, Color: green}, now)
	assert.Equal(t, 3, engine.Len())

	// even mid-blink LED2 shows only the new effect
	for _, at := range []time.Duration{0, 100 * time.Millisecond, 250 * time.Millisecond} {
		frame := engine.Advance(now.Add(at))
		sample := frame[leds.ID{Side: leds.Left, Index: 1}]
		assert.Equal(t, green, sample.Color, "at %v", at)
	}
}

func TestEngineSequentialPhaseOffsets(t *testing.T) {
	engine := NewEngine()
	now := time.Now()
	spec := Spec{Kind: Blink, Color: red, Delay: 100 * time.Millisecond, SendMode: Sequential}

	engine.Apply(mustResolve(t, "LED1/LED3", leds.Left), spec, now)

	// offsets 0ms/100ms/200ms: the middle LED starts in its off half
	frame := engine.Advance(now)
	assert.Equal(t, red, frame[leds.ID{Side: leds.Left, Index: 0}].Color)
	assert.Equal(t, Color{}, frame[leds.ID{Side: leds.Left, Index: 1}].Color)
	assert.Equal(t, red, frame[leds.ID{Side: leds.Left, Index: 2}].Color)
}

func TestEngineClearSide(t *testing.T) {
	engine := NewEngine()
	now := time.Now()

	engine.Apply(mustResolve(t, "LED1,LED2", leds.Both), Spec{Kind: Static, Color: red}, now)
	engine.ClearSide(leds.Right)

	frame := engine.Advance(now)
	assert.Len(t, frame, 2)
	for id := range frame {
		assert.Equal(t, leds.Left, id.Side)
	}
}

func TestEngineAnimated(t *testing.T) {
	engine := NewEngine()
	now := time.Now()

	assert.False(t, engine.Animated())
	engine.Apply(mustResolve(t, "LED1", leds.Left), Spec{Kind: Static, Color: red}, now)
	assert.False(t, engine.Animated())
	engine.Apply(mustResolve(t, "LED2", leds.Left), Spec{Kind: Rainbow, Delay: time.Second}, now)
	assert.True(t, engine.Animated())
}

func TestEngineReportsTransitions(t *testing.T) {
	engine := NewEngine()
	now := time.Now()

	var transitions []string
	engine.OnTransition = func(id leds.ID, kind Kind, from, to string) {
		transitions = append(transitions, id.String()+" "+from+">"+to)
	}

	engine.Apply(mustResolve(t, "LED1", leds.Left), Spec{Kind: Blink, Color: red, Delay: 100 * time.Millisecond}, now)
	engine.Advance(now.Add(50 * time.Millisecond))
	assert.Empty(t, transitions)

	engine.Advance(now.Add(150 * time.Millisecond))
	assert.Equal(t, []string{"left:LED1 ON>OFF"}, transitions)
}
