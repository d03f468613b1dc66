// Package canbus packs drive commands and status into CAN frames.
//
// Duty command, ID 0x100, 7 bytes, little-endian:
//
//	bits  0-15  d_a in 1/65535
//	bits 16-31  d_b in 1/65535
//	bits 32-47  d_c in 1/65535
//	bits 48-55  tick counter
//
// Drive status, ID 0x101, 8 bytes, little-endian:
//
//	bits  0-15  electrical speed, signed, 0.1 rad/s
//	bits 16-31  torque estimate, signed, 0.01 N·m
//	bits 32-47  flux magnitude, unsigned, 1e-4 Wb
//	bits 48-63  DC-bus voltage, unsigned, 0.1 V
package canbus

import (
	"errors"
	"fmt"
	"math"

	"go.einride.tech/can"
)

const (
	DutyFrameID   uint32 = 0x100
	StatusFrameID uint32 = 0x101

	dutyLength   = 7
	statusLength = 8
	dutyScale    = 65535
)

// Status signal resolutions.
const (
	SpeedFactor   = 0.1
	TorqueFactor  = 0.01
	FluxFactor    = 1e-4
	VoltageFactor = 0.1
)

var ErrFrame = errors.New("canbus: unexpected frame")

type DutyCommand struct {
	Duty    [3]float64
	Counter uint8
}

type Status struct {
	Speed     float64
	Torque    float64
	Flux      float64
	DCVoltage float64
}

// Encode quantizes the duty ratios, clamped to [0, 1].
func (c DutyCommand) Encode() can.Frame {
	f := can.Frame{ID: DutyFrameID, Length: dutyLength}
	for k, d := range c.Duty {
		raw := uint64(math.Round(clamp(d, 0, 1) * dutyScale))
		f.Data.SetUnsignedBitsLittleEndian(uint8(16*k), 16, raw)
	}
	f.Data.SetUnsignedBitsLittleEndian(48, 8, uint64(c.Counter))
	return f
}

func DecodeDutyCommand(f can.Frame) (DutyCommand, error) {
	if f.ID != DutyFrameID || f.Length != dutyLength {
		return DutyCommand{}, fmt.Errorf("%w: id 0x%X length %d, want duty command", ErrFrame, f.ID, f.Length)
	}
	var c DutyCommand
	for k := range c.Duty {
		c.Duty[k] = float64(f.Data.UnsignedBitsLittleEndian(uint8(16*k), 16)) / dutyScale
	}
	c.Counter = uint8(f.Data.UnsignedBitsLittleEndian(48, 8))
	return c, nil
}

// Encode saturates each signal at its range.
func (s Status) Encode() can.Frame {
	f := can.Frame{ID: StatusFrameID, Length: statusLength}
	f.Data.SetSignedBitsLittleEndian(0, 16, signedRaw(s.Speed, SpeedFactor))
	f.Data.SetSignedBitsLittleEndian(16, 16, signedRaw(s.Torque, TorqueFactor))
	f.Data.SetUnsignedBitsLittleEndian(32, 16, unsignedRaw(s.Flux, FluxFactor))
	f.Data.SetUnsignedBitsLittleEndian(48, 16, unsignedRaw(s.DCVoltage, VoltageFactor))
	return f
}

func DecodeStatus(f can.Frame) (Status, error) {
	if f.ID != StatusFrameID || f.Length != statusLength {
		return Status{}, fmt.Errorf("%w: id 0x%X length %d, want status", ErrFrame, f.ID, f.Length)
	}
	return Status{
		Speed:     float64(f.Data.SignedBitsLittleEndian(0, 16)) * SpeedFactor,
		Torque:    float64(f.Data.SignedBitsLittleEndian(16, 16)) * TorqueFactor,
		Flux:      float64(f.Data.UnsignedBitsLittleEndian(32, 16)) * FluxFactor,
		DCVoltage: float64(f.Data.UnsignedBitsLittleEndian(48, 16)) * VoltageFactor,
	}, nil
}

func signedRaw(v, factor float64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	return int64(clamp(math.Round(v/factor), math.MinInt16, math.MaxInt16))
}

func unsignedRaw(v, factor float64) uint64 {
	if math.IsNaN(v) {
		return 0
	}
	return uint64(clamp(math.Round(v/factor), 0, math.MaxUint16))
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
