// Package hw defines the capability surface the schedule engine drives: the
// LabJack digital/analog I/O, the SSV controller, the Omega flow controller,
// the pressure transducer and the PFP serial protocol, behind one interface.
package hw

import (
	"context"
	"errors"
	"math"
)

// ErrUnknown is returned by a reading operation when the hardware declined
// to answer (a transient read failure). Callers treat it as "skip update
// this iteration" rather than propagating a fatal error.
var ErrUnknown = errors.New("hw: reading unavailable")

// ErrNoHardware is returned by every method of Instrument: serial-port
// autodetection and the wire protocols themselves are out of scope for this
// repository (see Non-goals), so Instrument exists only as a documented,
// honest placeholder for a future port to the real serial drivers.
var ErrNoHardware = errors.New("hw: no hardware backend wired in this build")

// PFPValve identifies one of the two evacuation/fill lines on a flask
// package, paired with the SSV position that selects it.
type PFPValve struct {
	SSV   int
	Valve int
}

// Interface is the polymorphic capability surface. Every operation may
// suspend (serialized behind the owning hardware channel's own queue — see
// Simulated and the design note on a single executor goroutine) and every
// reading operation returns ErrUnknown rather than panicking when the
// hardware has nothing to report.
type Interface interface {
	// Readings (no side effects).
	GetPressure(ctx context.Context) (float64, error)
	GetPFPPressure(ctx context.Context, ssv *int) (float64, error)
	GetFlowSignal(ctx context.Context) (float64, error)
	GetFlowControlOutput(ctx context.Context) (float64, error)
	GetOvenTemperatureSignal(ctx context.Context) (float64, error)
	GetThermocoupleTemperature(ctx context.Context, index int) (float64, error)
	GetSSVPosition(ctx context.Context) (int, error)

	// Actuations.
	SetCryogen(ctx context.Context, enable bool) error
	SetGCCryogen(ctx context.Context, enable bool) error
	SetVacuum(ctx context.Context, enable bool) error
	SetSample(ctx context.Context, enable bool) error
	SetCryoHeater(ctx context.Context, enable bool) error
	SetOverflow(ctx context.Context, enable bool) error
	SetEvacuationValve(ctx context.Context, enable bool) error
	SetHighPressureValve(ctx context.Context, enable bool) error
	SetFlow(ctx context.Context, flow float64) error
	SetPFPValve(ctx context.Context, v PFPValve, open bool) (string, error)

	// Pulses (self-timed two-state sequences).
	ValveLoad(ctx context.Context) error
	ValveInject(ctx context.Context) error
	PrecolumnIn(ctx context.Context) error
	PrecolumnOut(ctx context.Context) error

	// Procedures.
	SetSSV(ctx context.Context, index int, manual bool) error
	AdjustFlow(ctx context.Context, target float64) error
	IncrementFlow(ctx context.Context, target, multiplier float64) error
	ReadyGCMS(ctx context.Context) error
	TriggerGCMS(ctx context.Context) error
	Initialization(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ClampFlowControlVoltage restricts a flow-control output to the safe
// actuation range, mirroring the instrument's analog output limits.
func ClampFlowControlVoltage(v float64) float64 {
	const min, max = 0.0, 5.0
	if math.IsNaN(v) {
		return min
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// FlowControlVoltage converts a requested flow (arbitrary units) into the
// clamped analog output voltage the flow controller expects.
func FlowControlVoltage(flow float64) float64 {
	return ClampFlowControlVoltage(flow*0.05 + 2.6)
}
