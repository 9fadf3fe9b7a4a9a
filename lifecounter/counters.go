package lifecounter

import (
	"encoding/json"
	"fmt"
	"strings"
)

type CounterType int

const (
	Life CounterType = iota
	Poison
	Energy
	Experience
	Rad
	Bounty

	counterTypeCount
)

var counterNames = [...]string{"life", "poison", "energy", "experience", "rad", "bounty"}

var counterLabels = [...]string{
	"Life Points",
	"Poison Counters",
	"Energy Counters",
	"Experience Counters",
	"Rad Counters",
	"Bounty Counters",
}

// CounterTypes lists every counter in display order.
func CounterTypes() []CounterType {
	out := make([]CounterType, counterTypeCount)
	for i := range out {
		out[i] = CounterType(i)
	}
	return out
}

func (c CounterType) Valid() bool {
	return c >= 0 && c < counterTypeCount
}

func (c CounterType) Label() string {
	if !c.Valid() {
		return ""
	}
	return counterLabels[c]
}

func (c CounterType) String() string {
	if !c.Valid() {
		return fmt.Sprintf("CounterType(%d)", int(c))
	}
	return counterNames[c]
}

// Next and Prev cycle through the counters, wrapping at both ends.
func (c CounterType) Next() CounterType {
	return (c + 1) % counterTypeCount
}

func (c CounterType) Prev() CounterType {
	return (c - 1 + counterTypeCount) % counterTypeCount
}

func ParseCounterType(s string) (CounterType, error) {
	for i, name := range counterNames {
		if strings.EqualFold(s, name) {
			return CounterType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCounter, s)
}

func (c CounterType) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCounter, int(c))
	}
	return []byte(c.String()), nil
}

func (c *CounterType) UnmarshalText(b []byte) error {
	parsed, err := ParseCounterType(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Color is a 0xAARRGGBB value.
type Color uint32

func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("#%08X", uint32(c)))
}

var palette = [...]Color{
	0xFFE57373, // red
	0xFF64B5F6, // blue
	0xFF81C784, // green
	0xFFFFF176, // yellow
	0xFFBA68C8, // purple
	0xFF4DD0E1, // cyan
}
