package device

import (
	"encoding/hex"

	"go.uber.org/zap"

	"github.com/solr2/lightserver/internal/leds"
)

// DryRunLink logs packet payloads instead of touching USB. Useful when
// the hardware is not attached or when inspecting the generated frames.
type DryRunLink struct{}

func NewDryRun() *DryRunLink {
	logger.Info("Dry run: USB writes are simulated")
	return &DryRunLink{}
}

func (l *DryRunLink) Send(side leds.Side, packet Packet) error {
	logger.With(
		zap.Stringer("side", side),
		zap.Int("len", len(packet)),
		zap.String("hex", hex.EncodeToString(packet))).
		Info("DRY packet")
	return nil
}

func (l *DryRunLink) Close() error {
	return nil
}
