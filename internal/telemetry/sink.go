// Package telemetry records what the server does, in the order it does
// it. Every component reports here; nothing depends on it being on.
package telemetry

import (
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/solr2/lightserver/internal/logging"
)

// Sink writes debug events synchronously in call order, so a session's
// log replays deterministically. All methods are no-ops when debug mode
// is off.
type Sink struct {
	enabled bool

	mu     sync.Mutex
	logger *zap.SugaredLogger
}

func NewSink(enabled bool) *Sink {
	return &Sink{
		enabled: enabled,
		logger:  logging.New("debug"),
	}
}

func (s *Sink) Enabled() bool {
	return s.enabled
}

func (s *Sink) CommandReceived(intentID, source, side, expression, effect string, delay time.Duration, mode string) {
	if !s.enabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.With(
		zap.String("intent", intentID),
		zap.String("source", source),
		zap.String("side", side),
		zap.String("expression", expression),
		zap.String("effect", effect),
		zap.Stringer("delay", delay),
		zap.String("mode", mode)).
		Info("RX command")
}

func (s *Sink) StateTransition(led, kind, from, to string) {
	if !s.enabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.With(
		zap.String("led", led),
		zap.String("kind", kind),
		zap.String("from", from),
		zap.String("to", to)).
		Info("FX transition")
}

func (s *Sink) PacketSent(side string, packet []byte) {
	if !s.enabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.With(
		zap.String("side", side),
		zap.Int("len", len(packet)),
		zap.String("hex", hex.EncodeToString(packet))).
		Info("TX packet")
}

func (s *Sink) Error(scope string, err error) {
	if !s.enabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.With(zap.String("scope", scope), zap.Error(err)).Error("error")
}
