package protocol

import (
	"strconv"

	"github.com/k0rventen/avea/common"
)

// Bounds of every channel and brightness value accepted by the bulb
const (
	MinValue = 0
	MaxValue = 4095
)

// Clamp forces v into the [MinValue, MaxValue] range the bulb accepts.  All
// public setters pass their inputs through here before anything reaches the
// codec.
func Clamp(v int) uint16 {
	if v > MaxValue {
		return MaxValue
	}
	if v < MinValue {
		return MinValue
	}
	return uint16(v)
}

// ParseValue interprets s as a channel or brightness value and clamps it.
// Input that does not parse as an integer is resolved to 0 with a logged
// warning, never an error.
func ParseValue(s string) uint16 {
	v, err := strconv.Atoi(s)
	if err != nil {
		common.Log.Warnf(`value %q is not a number, using default value of 0`, s)
		return 0
	}
	return Clamp(v)
}
