// Package server owns the running light server: the command queue, the
// transmitter loop and the TCP command listener, behind an explicit
// start/stop lifecycle for the host to drive.
package server

import (
	"context"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/solr2/lightserver/internal/device"
	"github.com/solr2/lightserver/internal/effects"
	"github.com/solr2/lightserver/internal/leds"
	"github.com/solr2/lightserver/internal/logging"
	"github.com/solr2/lightserver/internal/queue"
	"github.com/solr2/lightserver/internal/telemetry"
)

var logger = logging.New("server")

// Server is the handle the host collaborator holds. There is no
// package-level running instance; everything hangs off this struct.
type Server struct {
	cfg   Config
	link  device.Link
	queue *queue.Queue
	sink  *telemetry.Sink

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	listener net.Listener
	done     chan struct{}
}

func New(cfg Config, link device.Link) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Server{
		cfg:   cfg,
		link:  link,
		queue: queue.New(cfg.MaxEntries),
		sink:  telemetry.NewSink(cfg.Debug),
	}, nil
}

// Start spins up the transmitter loop and the TCP listener. Device
// handles are acquired lazily by the link on first send.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.listener = listener
	s.done = make(chan struct{})
	s.running = true

	tx := newTransmitter(s.cfg, s.queue, s.link, s.sink)
	go func() {
		defer close(s.done)
		tx.run(ctx)
	}()
	go s.acceptLoop(ctx)

	logger.With(
		zap.String("listen", s.cfg.ListenAddr),
		zap.Int("streamIntervalMs", s.cfg.StreamIntervalMs),
		zap.Int("txDelayMs", s.cfg.TxDelayMs),
		zap.Int("maxEntries", s.cfg.MaxEntries),
		zap.Int("repeat", s.cfg.Repeat),
		zap.Bool("debug", s.cfg.Debug)).
		Info("Light server started")
	return nil
}

// Stop signals cooperative shutdown, waits for the transmitter loop to
// observe it at the top of its cycle, then releases the device handles.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	s.cancel()
	s.listener.Close()
	<-s.done

	if err := s.link.Close(); err != nil {
		logger.With(zap.Error(err)).Warn("Failed to close device link")
	}
	s.running = false
	logger.Info("Light server stopped")
}

// Addr returns the bound TCP listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Done reports transmitter completion, which with repeat > 0 can happen
// before Stop is called.
func (s *Server) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Invoke is the direct action invocation path: resolve the expression,
// enqueue the intent, return immediately. The returned error is either
// a *leds.ParseError or queue.ErrFull; the caller decides what to do
// with a full queue.
func (s *Server) Invoke(side leds.Side, expression string, spec effects.Spec) error {
	return s.invoke("action", side, expression, spec)
}

func (s *Server) invoke(source string, side leds.Side, expression string, spec effects.Spec) error {
	targets, err := leds.Resolve(expression, side)
	if err != nil {
		return err
	}
	intent := queue.NewIntent(targets, spec)
	if err := s.queue.Enqueue(intent); err != nil {
		return err
	}
	s.sink.CommandReceived(intent.ID, source, side.String(), expression,
		spec.Kind.String(), spec.Delay, spec.SendMode.String())
	return nil
}
