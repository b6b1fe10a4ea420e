package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"github.com/solr2/lightserver/internal/leds"
	"github.com/solr2/lightserver/internal/logging"
)

var logger = logging.New("device")

// USBLink drives the LEFT/RIGHT pair over their bulk OUT endpoints.
// Handles open lazily on the first send to a side and stay open until
// Close. Single writer: only the transmitter loop calls Send.
type USBLink struct {
	usb     *gousb.Context
	timeout time.Duration
	sides   map[leds.Side]*usbSide
}

type usbSide struct {
	device *gousb.Device
	config *gousb.Config
	intf   *gousb.Interface
	out    *gousb.OutEndpoint
}

func NewUSB(timeout time.Duration) *USBLink {
	return &USBLink{
		usb:     gousb.NewContext(),
		timeout: timeout,
		sides:   make(map[leds.Side]*usbSide),
	}
}

func productID(side leds.Side) gousb.ID {
	if side == leds.Left {
		return ProductLeft
	}
	return ProductRight
}

func (l *USBLink) side(side leds.Side) (*usbSide, error) {
	if s, ok := l.sides[side]; ok {
		return s, nil
	}

	dev, err := l.usb.OpenDeviceWithVIDPID(VendorID, productID(side))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotConnected, side, err)
	}
	if dev == nil {
		return nil, fmt.Errorf("%w: %s (VID=%04x PID=%04x)", ErrNotConnected, side, VendorID, uint16(productID(side)))
	}

	if err := dev.SetAutoDetach(true); err != nil {
		logger.With(zap.Stringer("side", side), zap.Error(err)).Warn("Failed to enable kernel driver auto-detach")
	}

	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("%w: %s: open config: %v", ErrNotConnected, side, err)
	}
	intf, err := cfg.Interface(usbInterface, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		return nil, fmt.Errorf("%w: %s: claim interface %d: %v", ErrNotConnected, side, usbInterface, err)
	}
	out, err := intf.OutEndpoint(endpointOut)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		return nil, fmt.Errorf("%w: %s: endpoint 0x%02x: %v", ErrNotConnected, side, endpointOut, err)
	}

	logger.With(
		zap.Stringer("side", side),
		zap.Int("interface", usbInterface),
		zap.Int("endpoint", endpointOut),
		zap.Stringer("timeout", l.timeout)).
		Info("USB device opened")

	s := &usbSide{device: dev, config: cfg, intf: intf, out: out}
	l.sides[side] = s
	return s, nil
}

func (l *USBLink) Send(side leds.Side, packet Packet) error {
	s, err := l.side(side)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	n, err := s.out.WriteContext(ctx, packet)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", ErrTransferTimeout, side)
		}
		return &TransferError{Err: err}
	}
	if n != len(packet) {
		return &TransferError{Code: n, Err: fmt.Errorf("short write: %d/%d bytes", n, len(packet))}
	}
	return nil
}

func (l *USBLink) Close() error {
	for side, s := range l.sides {
		s.intf.Close()
		s.config.Close()
		s.device.Close()
		delete(l.sides, side)
		logger.With(zap.Stringer("side", side)).Info("USB device released")
	}
	return l.usb.Close()
}
