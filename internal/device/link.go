// Package device turns frames into the fixed bulk-transfer byte layout
// of the SOL-R2 pair and carries them to the hardware.
package device

import (
	"errors"
	"fmt"

	"github.com/solr2/lightserver/internal/leds"
)

const (
	VendorID     = 0x044F
	ProductLeft  = 0x042A
	ProductRight = 0x0422

	usbInterface = 1
	endpointOut  = 2

	// MaxEntriesLimit keeps a packet within the 64-byte bulk frame:
	// 4 header bytes + 4 bytes per entry.
	MaxEntriesLimit = 15
)

var (
	ErrNotConnected    = errors.New("device not connected")
	ErrTransferTimeout = errors.New("bulk transfer timed out")
)

// TransferError is a failed or short bulk write. Fatal only to the
// current send attempt.
type TransferError struct {
	Code int
	Err  error
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bulk transfer failed (code %d): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("bulk transfer failed (code %d)", e.Code)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Packet is one fixed-layout bulk OUT frame. Never mutated after send.
type Packet []byte

// Link carries packets to one side of the device pair. Implementations
// hold one handle per side, acquired lazily on first send and released
// by Close. Accessed only from the transmitter loop.
type Link interface {
	Send(side leds.Side, packet Packet) error
	Close() error
}

// Entry is one LED update destined for a packet: the LED's layout index
// and its raw color bytes.
type Entry struct {
	Index   uint8
	R, G, B byte
}

// BuildPackets maps a side's changed LEDs into packets: entries sharing
// an INDEX header are grouped, each group is chunked at maxEntries, and
// the order of entries within a packet follows the input order. LED11's
// distinct header keeps it in its own packet.
func BuildPackets(entries []Entry, maxEntries int) []Packet {
	if maxEntries < 1 || maxEntries > MaxEntriesLimit {
		maxEntries = MaxEntriesLimit
	}

	var order [][4]byte
	groups := make(map[[4]byte][]Entry)
	for _, e := range entries {
		h := leds.Header(e.Index)
		if _, seen := groups[h]; !seen {
			order = append(order, h)
		}
		groups[h] = append(groups[h], e)
	}

	var packets []Packet
	for _, h := range order {
		group := groups[h]
		for i := 0; i < len(group); i += maxEntries {
			n := min(maxEntries, len(group)-i)
			pkt := make(Packet, 0, 4+4*n)
			pkt = append(pkt, h[:]...)
			for _, e := range group[i : i+n] {
				pkt = append(pkt, leds.Address(e.Index), e.R, e.G, e.B)
			}
			packets = append(packets, pkt)
		}
	}
	return packets
}
