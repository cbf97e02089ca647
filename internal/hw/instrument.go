package hw

import "context"

// Digital output line names on the LabJack U6, carried over from
// instrument.py for documentation purposes. Serial-port autodetection and
// the wire protocol itself are out of scope here (see Non-goals); Instrument
// exists so a future port has a named, honest extension point instead of a
// silent no-op.
const (
	DOTCryogen        = "FIO0"
	DOTGCCryogen      = "FIO1"
	DOTVacuum         = "FIO2"
	DOTSample         = "FIO3"
	DOTCryoHeater     = "FIO4"
	DOTOverflow       = "FIO5"
	DOTEvacuationValve = "FIO6"
	DOTHighPressure   = "FIO7"
)

// Analog channel indices, carried over from instrument.py.
const (
	AINOvenTemperature = 11
	AINFlow            = 12
	AOTFlow            = 1
)

// HighPressureValves maps an SSV index to the LabJack digital channel that
// selects it, matching instrument.py's HIGH_PRESSURE_VALVES table.
var HighPressureValves = map[int]int{1: 0, 2: 1, 3: 2, 4: 3}

// EvacuationValves mirrors HighPressureValves for the evacuation side of
// each SSV position.
var EvacuationValves = map[int]int{1: 4, 2: 5, 3: 6, 4: 7}

// Instrument is the real-hardware Interface implementation. Every method
// returns ErrNoHardware: wiring it to an actual LabJack U6 and the PFP/SSV
// serial protocols is future work this repository does not attempt.
type Instrument struct{}

// NewInstrument constructs the placeholder real-hardware backend.
func NewInstrument() *Instrument { return &Instrument{} }

func (i *Instrument) GetPressure(ctx context.Context) (float64, error)      { return 0, ErrNoHardware }
func (i *Instrument) GetPFPPressure(ctx context.Context, ssv *int) (float64, error) {
	return 0, ErrNoHardware
}
func (i *Instrument) GetFlowSignal(ctx context.Context) (float64, error)        { return 0, ErrNoHardware }
func (i *Instrument) GetFlowControlOutput(ctx context.Context) (float64, error) { return 0, ErrNoHardware }
func (i *Instrument) GetOvenTemperatureSignal(ctx context.Context) (float64, error) {
	return 0, ErrNoHardware
}
func (i *Instrument) GetThermocoupleTemperature(ctx context.Context, index int) (float64, error) {
	return 0, ErrNoHardware
}
func (i *Instrument) GetSSVPosition(ctx context.Context) (int, error) { return 0, ErrNoHardware }

func (i *Instrument) SetCryogen(ctx context.Context, enable bool) error        { return ErrNoHardware }
func (i *Instrument) SetGCCryogen(ctx context.Context, enable bool) error      { return ErrNoHardware }
func (i *Instrument) SetVacuum(ctx context.Context, enable bool) error         { return ErrNoHardware }
func (i *Instrument) SetSample(ctx context.Context, enable bool) error         { return ErrNoHardware }
func (i *Instrument) SetCryoHeater(ctx context.Context, enable bool) error     { return ErrNoHardware }
func (i *Instrument) SetOverflow(ctx context.Context, enable bool) error       { return ErrNoHardware }
func (i *Instrument) SetEvacuationValve(ctx context.Context, enable bool) error { return ErrNoHardware }
func (i *Instrument) SetHighPressureValve(ctx context.Context, enable bool) error {
	return ErrNoHardware
}
func (i *Instrument) SetFlow(ctx context.Context, flow float64) error { return ErrNoHardware }
func (i *Instrument) SetPFPValve(ctx context.Context, v PFPValve, open bool) (string, error) {
	return "", ErrNoHardware
}

func (i *Instrument) ValveLoad(ctx context.Context) error    { return ErrNoHardware }
func (i *Instrument) ValveInject(ctx context.Context) error  { return ErrNoHardware }
func (i *Instrument) PrecolumnIn(ctx context.Context) error  { return ErrNoHardware }
func (i *Instrument) PrecolumnOut(ctx context.Context) error { return ErrNoHardware }

func (i *Instrument) SetSSV(ctx context.Context, index int, manual bool) error { return ErrNoHardware }
func (i *Instrument) AdjustFlow(ctx context.Context, target float64) error     { return ErrNoHardware }
func (i *Instrument) IncrementFlow(ctx context.Context, target, multiplier float64) error {
	return ErrNoHardware
}
func (i *Instrument) ReadyGCMS(ctx context.Context) error    { return ErrNoHardware }
func (i *Instrument) TriggerGCMS(ctx context.Context) error  { return ErrNoHardware }
func (i *Instrument) Initialization(ctx context.Context) error { return ErrNoHardware }
func (i *Instrument) Shutdown(ctx context.Context) error       { return ErrNoHardware }
