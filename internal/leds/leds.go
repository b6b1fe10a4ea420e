package leds

import "fmt"

// Side selects which physical device a command targets. Both is only a
// selector for resolution; a resolved ID always carries Left or Right.
type Side uint8

const (
	Left Side = iota
	Right
	Both
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	case Both:
		return "both"
	}
	return fmt.Sprintf("side(%d)", uint8(s))
}

// ID identifies one physical LED on one device side.
type ID struct {
	Side  Side
	Index uint8
}

func (id ID) Name() string {
	if int(id.Index) < len(names) {
		return names[id.Index]
	}
	return fmt.Sprintf("LED?%d", id.Index)
}

func (id ID) String() string {
	return id.Side.String() + ":" + id.Name()
}

// Fixed hardware layout of one device side. The address byte and the
// 4-byte packet index header come from the vendor map; LED11 lives on a
// different index header than everything else.
var names = [...]string{
	"LED1", "LED2", "LED3", "LED4", "LED5", "LED6", "LED7", "LED8",
	"LED9A", "LED9B", "LED9C", "LED9D", "LED9E", "LED9F", "LED9G", "LED9H",
	"LED10A", "LED10B", "LED10C",
	"LED11",
}

var addresses = [...]byte{
	0x11, 0x10, 0x12, 0x13, 0x08, 0x07, 0x09, 0x0A,
	0x04, 0x05, 0x06, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F,
	0x01, 0x02, 0x03,
	0x00,
}

var (
	headerDefault = [4]byte{0x01, 0x08, 0x05, 0xFF}
	headerLED11   = [4]byte{0x01, 0x88, 0x01, 0xFF}
)

const led11Index = 19

// Count returns the number of physical LEDs per side.
func Count() int {
	return len(names)
}

// Address returns the hardware address byte for a layout index.
func Address(index uint8) byte {
	return addresses[index]
}

// Header returns the packet index header for a layout index.
func Header(index uint8) [4]byte {
	if index == led11Index {
		return headerLED11
	}
	return headerDefault
}

var nameIndex = func() map[string]uint8 {
	m := make(map[string]uint8, len(names))
	for i, n := range names {
		m[n] = uint8(i)
	}
	return m
}()

// Group aliases expand to their fixed sub-members in layout order.
var groups = map[string][]uint8{
	"LED9":  {8, 9, 10, 11, 12, 13, 14, 15},
	"LED10": {16, 17, 18},
}

// logicalMembers maps a numeric LED position (the "n" in LEDn) to the
// physical layout indices it stands for. Used by range expansion, where
// LED9 and LED10 mean the whole group.
func logicalMembers(n int) ([]uint8, bool) {
	switch {
	case n >= 1 && n <= 8:
		return []uint8{uint8(n - 1)}, true
	case n == 9:
		return groups["LED9"], true
	case n == 10:
		return groups["LED10"], true
	case n == 11:
		return []uint8{led11Index}, true
	}
	return nil, false
}
