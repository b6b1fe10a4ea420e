package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solr2/lightserver/internal/device"
	"github.com/solr2/lightserver/internal/effects"
	"github.com/solr2/lightserver/internal/leds"
	"github.com/solr2/lightserver/internal/queue"
	"github.com/solr2/lightserver/internal/telemetry"
)

type fakeLink struct {
	mu   sync.Mutex
	sent map[leds.Side][][]byte
	fail map[leds.Side]error
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		sent: make(map[leds.Side][][]byte),
		fail: make(map[leds.Side]error),
	}
}

func (f *fakeLink) Send(side leds.Side, packet device.Packet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[side]; err != nil {
		return err
	}
	f.sent[side] = append(f.sent[side], append([]byte(nil), packet...))
	return nil
}

func (f *fakeLink) Close() error { return nil }

func (f *fakeLink) packets(side leds.Side) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent[side]...)
}

func testConfig() Config {
	return Config{
		ListenAddr:       "127.0.0.1:0",
		StreamIntervalMs: 1,
		IdleTimeoutMs:    3000,
		MaxEntries:       8,
		USBTimeoutMs:     1000,
	}
}

func enqueue(t *testing.T, q *queue.Queue, expr string, side leds.Side, spec effects.Spec) {
	t.Helper()
	targets, err := leds.Resolve(expr, side)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(queue.NewIntent(targets, spec)))
}

func runTransmitter(cfg Config, q *queue.Queue, link device.Link) {
	tx := newTransmitter(cfg, q, link, telemetry.NewSink(false))
	tx.run(context.Background())
}

func TestTransmitterSendsStaticFrameOnce(t *testing.T) {
	cfg := testConfig()
	cfg.Repeat = 3
	q := queue.New(cfg.MaxEntries)
	link := newFakeLink()

	enqueue(t, q, "LED1", leds.Both, effects.Spec{Kind: effects.Static, Color: effects.Color{R: 255}})
	runTransmitter(cfg, q, link)

	want := []byte{0x01, 0x08, 0x05, 0xFF, 0x11, 0xFF, 0x00, 0x00}
	for _, side := range []leds.Side{leds.Left, leds.Right} {
		packets := link.packets(side)
		// unchanged frames are not resent on later cycles
		require.Len(t, packets, 1, "%s", side)
		assert.Equal(t, want, packets[0])
	}
}

func TestTransmitterSequentialSendsOnePacketPerLED(t *testing.T) {
	cfg := testConfig()
	cfg.Repeat = 2
	q := queue.New(cfg.MaxEntries)
	link := newFakeLink()

	enqueue(t, q, "LED1/LED3", leds.Left, effects.Spec{
		Kind:     effects.Static,
		Color:    effects.Color{B: 255},
		SendMode: effects.Sequential,
	})
	runTransmitter(cfg, q, link)

	packets := link.packets(leds.Left)
	require.Len(t, packets, 3)
	// one LED per packet, in layout order
	assert.Equal(t, byte(0x11), packets[0][4])
	assert.Equal(t, byte(0x10), packets[1][4])
	assert.Equal(t, byte(0x12), packets[2][4])
	for _, pkt := range packets {
		assert.Len(t, pkt, 8)
	}
	assert.Empty(t, link.packets(leds.Right))
}

func TestTransmitterFailedSideDoesNotHaltOther(t *testing.T) {
	cfg := testConfig()
	cfg.Repeat = 3
	q := queue.New(cfg.MaxEntries)
	link := newFakeLink()
	link.fail[leds.Right] = device.ErrTransferTimeout

	enqueue(t, q, "LED1,LED2", leds.Both, effects.Spec{Kind: effects.Static, Color: effects.Color{G: 255}})
	runTransmitter(cfg, q, link)

	assert.Empty(t, link.packets(leds.Right))
	packets := link.packets(leds.Left)
	require.Len(t, packets, 1)
	assert.Len(t, packets[0], 4+4*2)
}

func TestTransmitterMergesBatchIntoOnePacket(t *testing.T) {
	cfg := testConfig()
	cfg.Repeat = 2
	q := queue.New(cfg.MaxEntries)
	link := newFakeLink()

	enqueue(t, q, "LED1/LED8", leds.Left, effects.Spec{Kind: effects.Static, Color: effects.Color{R: 1}})
	runTransmitter(cfg, q, link)

	packets := link.packets(leds.Left)
	require.Len(t, packets, 1)
	assert.Len(t, packets[0], 4+4*8)
}

func TestTransmitterActive(t *testing.T) {
	cfg := testConfig()
	tx := newTransmitter(cfg, queue.New(1), newFakeLink(), telemetry.NewSink(false))
	now := time.Now()

	assert.False(t, tx.active(now), "empty engine is never active")

	targets, err := leds.Resolve("LED1", leds.Left)
	require.NoError(t, err)

	tx.engine.Apply(targets, effects.Spec{Kind: effects.Static, Color: effects.Color{R: 1}}, now)
	tx.lastCommand = now
	assert.True(t, tx.active(now))

	// static-only state past the idle timeout stops streaming
	assert.False(t, tx.active(now.Add(4*time.Second)))

	// an animated effect keeps streaming forever
	tx.engine.Apply(targets, effects.Spec{Kind: effects.Blink, Color: effects.Color{R: 1}, Delay: time.Millisecond}, now)
	assert.True(t, tx.active(now.Add(time.Hour)))
}
