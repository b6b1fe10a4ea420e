package server

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/solr2/lightserver/internal/device"
	"github.com/solr2/lightserver/internal/effects"
	"github.com/solr2/lightserver/internal/leds"
	"github.com/solr2/lightserver/internal/queue"
	"github.com/solr2/lightserver/internal/telemetry"
)

// sendRetries bounds how often a packet write is retried before the
// side's animation states are dropped.
const sendRetries = 3

// transmitter is the single consumer of the command queue. It owns the
// effect engine, the previous-frame diff state and the device link; no
// other goroutine touches them.
type transmitter struct {
	cfg    Config
	queue  *queue.Queue
	link   device.Link
	sink   *telemetry.Sink
	engine *effects.Engine

	prev        effects.Frame
	lastCommand time.Time
	lastTx      time.Time
	lastWarning time.Time
}

func newTransmitter(cfg Config, q *queue.Queue, link device.Link, sink *telemetry.Sink) *transmitter {
	t := &transmitter{
		cfg:         cfg,
		queue:       q,
		link:        link,
		sink:        sink,
		engine:      effects.NewEngine(),
		lastCommand: time.Now(),
	}
	t.engine.OnTransition = func(id leds.ID, kind effects.Kind, from, to string) {
		sink.StateTransition(id.String(), kind.String(), from, to)
	}
	return t
}

func (t *transmitter) run(ctx context.Context) {
	cycles := 0
	for {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()

		if intent, ok := t.queue.Dequeue(); ok {
			t.engine.Apply(intent.Targets, intent.Spec, start)
			t.lastCommand = start
		}

		if t.active(start) {
			frame := t.engine.Advance(start)
			changed := diffFrames(t.prev, frame)
			t.prev = frame
			t.transmit(ctx, leds.Left, frame, changed)
			t.transmit(ctx, leds.Right, frame, changed)
		}

		if t.cfg.Repeat > 0 {
			cycles++
			if cycles >= t.cfg.Repeat {
				logger.With(zap.Int("cycles", cycles)).Info("Transmitter finished configured cycles")
				return
			}
		}

		totalDuration := time.Since(start)
		if untilNextTick := t.cfg.StreamInterval() - totalDuration; untilNextTick > 0 {
			sleepCtx(ctx, untilNextTick)
		} else if t.cfg.StreamIntervalMs > 0 && time.Since(t.lastWarning) > 10*time.Second {
			logger.With(zap.Stringer("totalDuration", totalDuration)).
				Warn("Cannot keep up with STREAM_INTERVAL_MS. Consider increasing it or lowering TX_DELAY_MS.")
			t.lastWarning = time.Now()
		}
	}
}

// active reports whether this cycle should compute and transmit a
// frame. With nothing but unchanged static state past the idle timeout
// the loop only sleeps; animated effects keep it streaming forever.
func (t *transmitter) active(now time.Time) bool {
	if t.engine.Len() == 0 {
		return false
	}
	if t.engine.Animated() {
		return true
	}
	if idle := t.cfg.IdleTimeout(); idle > 0 && now.Sub(t.lastCommand) > idle {
		return false
	}
	return true
}

// transmit sends one side's changed LEDs. Batch samples merge into as
// few packets as the INDEX grouping allows; sequential samples go one
// packet per LED in layout order, the tx-delay pacing acting as the
// caterpillar stagger. A side that keeps failing is cleared without
// touching the other side.
func (t *transmitter) transmit(ctx context.Context, side leds.Side, frame effects.Frame, changed []leds.ID) {
	var batch, sequential []device.Entry
	for _, id := range changed {
		if id.Side != side {
			continue
		}
		sample := frame[id]
		entry := device.Entry{Index: id.Index, R: sample.Color.R, G: sample.Color.G, B: sample.Color.B}
		if sample.SendMode == effects.Sequential {
			sequential = append(sequential, entry)
		} else {
			batch = append(batch, entry)
		}
	}
	if len(batch)+len(sequential) == 0 {
		return
	}

	for _, pkt := range device.BuildPackets(batch, device.MaxEntriesLimit) {
		if err := t.send(ctx, side, pkt); err != nil {
			t.dropSide(side, err)
			return
		}
	}
	for _, entry := range sequential {
		for _, pkt := range device.BuildPackets([]device.Entry{entry}, device.MaxEntriesLimit) {
			if err := t.send(ctx, side, pkt); err != nil {
				t.dropSide(side, err)
				return
			}
		}
	}
}

// send writes one packet, honoring the pacing floor between successive
// transmissions and retrying a bounded number of times.
func (t *transmitter) send(ctx context.Context, side leds.Side, pkt device.Packet) error {
	if delay := t.cfg.TxDelay(); delay > 0 {
		if since := time.Since(t.lastTx); since < delay {
			sleepCtx(ctx, delay-since)
		}
	}

	var err error
	for attempt := 0; attempt < sendRetries; attempt++ {
		if err = t.link.Send(side, pkt); err == nil {
			t.lastTx = time.Now()
			t.sink.PacketSent(side.String(), pkt)
			return nil
		}
	}
	return err
}

// dropSide clears a failing side's animation states and diff history so
// a later command starts clean. The loop itself never terminates on a
// failed packet.
func (t *transmitter) dropSide(side leds.Side, err error) {
	logger.With(zap.Stringer("side", side), zap.Error(err)).
		Error("Giving up on device side after repeated transfer failures")
	t.sink.Error("transmit:"+side.String(), err)

	t.engine.ClearSide(side)
	for id := range t.prev {
		if id.Side == side {
			delete(t.prev, id)
		}
	}
}

// diffFrames lists the LEDs whose output changed since the previous
// frame, in deterministic layout order. Unchanged LEDs are not resent.
func diffFrames(prev, cur effects.Frame) []leds.ID {
	changed := make([]leds.ID, 0, len(cur))
	for id, sample := range cur {
		if old, ok := prev[id]; !ok || old != sample {
			changed = append(changed, id)
		}
	}
	sort.Slice(changed, func(i, j int) bool {
		if changed[i].Side != changed[j].Side {
			return changed[i].Side < changed[j].Side
		}
		return changed[i].Index < changed[j].Index
	})
	return changed
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
