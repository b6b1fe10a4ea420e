package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solr2/lightserver/internal/effects"
	"github.com/solr2/lightserver/internal/leds"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		side leds.Side
		expr string
		spec effects.Spec
	}{
		{
			name: "static both sides",
			line: "LED1 255 0 0",
			side: leds.Both,
			expr: "LED1",
			spec: effects.Spec{Kind: effects.Static, Color: effects.Color{R: 255}},
		},
		{
			name: "left prefix with blink",
			line: "left:LED9 0 255 0 BLINK 500",
			side: leds.Left,
			expr: "LED9",
			spec: effects.Spec{Kind: effects.Blink, Color: effects.Color{G: 255}, Delay: 500 * time.Millisecond},
		},
		{
			name: "right prefix with rainbow",
			line: "right:LED10A 10 20 30 RAINBOW 1500",
			side: leds.Right,
			expr: "LED10A",
			spec: effects.Spec{Kind: effects.Rainbow, Color: effects.Color{R: 10, G: 20, B: 30}, Delay: 1500 * time.Millisecond},
		},
		{
			name: "quoted comma separated",
			line: `"LED2,0,0,255"`,
			side: leds.Both,
			expr: "LED2",
			spec: effects.Spec{Kind: effects.Static, Color: effects.Color{B: 255}},
		},
		{
			name: "lowercase led name",
			line: "led3 1 2 3",
			side: leds.Both,
			expr: "LED3",
			spec: effects.Spec{Kind: effects.Static, Color: effects.Color{R: 1, G: 2, B: 3}},
		},
		{
			name: "malformed period degrades to zero",
			line: "LED1 255 0 0 FADE abc",
			side: leds.Both,
			expr: "LED1",
			spec: effects.Spec{Kind: effects.Fade, Color: effects.Color{R: 255}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			side, expr, spec, err := parseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.side, side)
			assert.Equal(t, tt.expr, expr)
			assert.Equal(t, tt.spec, spec)
		})
	}
}

func TestParseLineErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"missing channel", "LED1 255 0"},
		{"extra token without effect", "LED1 255 0 0 NOPE"},
		{"channel above range", "LED1 300 0 0"},
		{"channel below range", "LED1 -1 0 0"},
		{"channel not numeric", "LED1 red 0 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := parseLine(tt.line)
			assert.Error(t, err)
		})
	}
}
