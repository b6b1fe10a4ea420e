package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/solr2/lightserver/internal/effects"
	"github.com/solr2/lightserver/internal/leds"
)

// The TCP wire format, one command per line:
//
//	[left:|right:]LEDx R G B [BLINK|FADE|RAINBOW <ms>]
//
// No prefix targets both sides. A line without an effect suffix is a
// static set, which also stops any running effect on that LED.

// parseLine decodes one command line into a side selector, an LED
// expression and the effect to run on it.
func parseLine(line string) (leds.Side, string, effects.Spec, error) {
	raw := strings.TrimSpace(strings.Trim(strings.TrimSpace(line), `"`))
	if raw == "" {
		return leds.Both, "", effects.Spec{}, fmt.Errorf("empty command")
	}

	side := leds.Both
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "left:"):
		side = leds.Left
		raw = strings.TrimSpace(raw[len("left:"):])
	case strings.HasPrefix(lower, "right:"):
		side = leds.Right
		raw = strings.TrimSpace(raw[len("right:"):])
	}

	tokens := strings.Fields(strings.ReplaceAll(raw, ",", " "))

	spec := effects.Spec{Kind: effects.Static, SendMode: effects.AllAtOnce}
	if len(tokens) >= 6 {
		if kind, err := effects.ParseKind(tokens[len(tokens)-2]); err == nil && kind.Animated() {
			spec.Kind = kind
			// a malformed period degrades to 0 rather than rejecting the line
			ms, _ := strconv.Atoi(tokens[len(tokens)-1])
			spec.Delay = time.Duration(ms) * time.Millisecond
			tokens = tokens[:len(tokens)-2]
		}
	}

	if len(tokens) != 4 {
		return side, "", spec, fmt.Errorf("expected [left:|right:]LEDx R G B, got %q", line)
	}

	expression := strings.ToUpper(tokens[0])
	channels := make([]uint8, 3)
	for i, tok := range tokens[1:] {
		v, err := strconv.Atoi(tok)
		if err != nil || v < 0 || v > 255 {
			return side, "", spec, fmt.Errorf("color channel out of range 0..255: %q", tok)
		}
		channels[i] = uint8(v)
	}
	spec.Color = effects.Color{R: channels[0], G: channels[1], B: channels[2]}

	return side, expression, spec, nil
}
