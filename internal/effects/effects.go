package effects

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the closed set of supported effects. Advancing a state
// switches exhaustively over it, so adding a kind is a compile-time
// checked change.
type Kind uint8

const (
	Static Kind = iota
	Blink
	Fade
	Rainbow
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "STATIC"
	case Blink:
		return "BLINK"
	case Fade:
		return "FADE"
	case Rainbow:
		return "RAINBOW"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STATIC", "":
		return Static, nil
	case "BLINK":
		return Blink, nil
	case "FADE":
		return Fade, nil
	case "RAINBOW":
		return Rainbow, nil
	}
	return Static, fmt.Errorf("unknown effect: %q", s)
}

// Animated reports whether the kind changes output over time.
func (k Kind) Animated() bool {
	return k != Static
}

// SendMode controls how a target set reaches the device: merged into as
// few packets as possible, or one LED at a time with a stagger.
type SendMode uint8

const (
	AllAtOnce SendMode = iota
	Sequential
)

func (m SendMode) String() string {
	if m == Sequential {
		return "SEQ"
	}
	return "BATCH"
}

type Color struct {
	R, G, B uint8
}

func (c Color) Scale(k float64) Color {
	if k <= 0 {
		return Color{}
	}
	if k >= 1 {
		return c
	}
	return Color{
		R: uint8(float64(c.R) * k),
		G: uint8(float64(c.G) * k),
		B: uint8(float64(c.B) * k),
	}
}

// Spec describes one effect as requested by an action invocation.
// Immutable once the action fires.
type Spec struct {
	Kind     Kind
	Color    Color
	Delay    time.Duration
	SendMode SendMode
}

// Advance computes the output of spec after elapsed time. Phase wraps
// within the effect cycle; elapsed may be arbitrarily large.
func (s Spec) Advance(elapsed time.Duration) (Color, float64) {
	switch s.Kind {
	case Static:
		return s.Color, 1

	case Blink:
		if s.Delay <= 0 {
			return s.Color, 1
		}
		if (elapsed/s.Delay)%2 == 0 {
			return s.Color, 1
		}
		return s.Color, 0

	case Fade:
		if s.Delay <= 0 {
			return s.Color, 1
		}
		period := 2 * s.Delay
		phase := elapsed % period
		if phase < s.Delay {
			return s.Color, float64(phase) / float64(s.Delay)
		}
		return s.Color, float64(period-phase) / float64(s.Delay)

	case Rainbow:
		delay := s.Delay
		if delay <= 0 {
			delay = time.Second
		}
		hue := 360 * float64(elapsed%delay) / float64(delay)
		return hsvToRGB(hue, 1, 1), 1
	}
	return s.Color, 1
}

// Stage names the discrete phase the effect is in after elapsed time.
// Used for state transition telemetry; continuous effects have a single
// stage.
func (s Spec) Stage(elapsed time.Duration) string {
	switch s.Kind {
	case Blink:
		if s.Delay <= 0 || (elapsed/s.Delay)%2 == 0 {
			return "ON"
		}
		return "OFF"
	case Fade:
		if s.Delay <= 0 || (elapsed%(2*s.Delay)) < s.Delay {
			return "RISING"
		}
		return "FALLING"
	}
	return s.Kind.String()
}
