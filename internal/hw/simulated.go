package hw

import (
	"context"
	"math"
	"sync"
	"time"
)

// Simulated is an in-memory stand-in for the LabJack U6 digital/analog I/O,
// the SSV controller, the Omega flow controller, the pressure transducer
// and the PFP serial protocol. It is used whenever the process is started
// with --simulate, and by every test that exercises a procedure without
// real hardware attached.
//
// Grounded on gspc/control.py's Simulator: a plain struct of actuator state
// with a little physical plausibility (pressure rises while the sample
// valve is open, flow tracks the commanded voltage) rather than a bare
// no-op mock, so the closed-loop procedures (AdjustFlow, SetSSV) actually
// converge during tests.
type Simulated struct {
	mu sync.Mutex

	pressure        float64
	ovenTemperature float64
	thermocouples   [4]float64
	ssvPosition     int
	flowSignal      float64
	flowControl     float64

	cryogen      bool
	gcCryogen    bool
	vacuum       bool
	sample       bool
	cryoHeater   bool
	overflow     bool
	evacuation   bool
	highPressure bool

	pfpPressure map[int]float64
	pfpOpen     map[int]bool

	pfpHandshakeDone bool
}

// NewSimulated constructs a Simulated instrument in a quiescent, safe
// state: oven warm, no flow, atmospheric pressure.
func NewSimulated() *Simulated {
	return &Simulated{
		pressure:        760,
		ovenTemperature: 3.0,
		thermocouples:   [4]float64{-35, -35, -35, -35},
		pfpPressure:     make(map[int]float64),
		pfpOpen:         make(map[int]bool),
	}
}

func (s *Simulated) GetPressure(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sample {
		s.pressure += 5
	}
	return s.pressure, nil
}

func (s *Simulated) GetPFPPressure(ctx context.Context, ssv *int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := 0
	if ssv != nil {
		idx = *ssv
	}
	if s.pfpOpen[idx] {
		s.pfpPressure[idx] += 2
	}
	return s.pfpPressure[idx], nil
}

func (s *Simulated) GetFlowSignal(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flowSignal, nil
}

func (s *Simulated) GetFlowControlOutput(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flowControl, nil
}

func (s *Simulated) GetOvenTemperatureSignal(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ovenTemperature, nil
}

func (s *Simulated) GetThermocoupleTemperature(ctx context.Context, index int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.thermocouples) {
		return 0, ErrUnknown
	}
	return s.thermocouples[index], nil
}

func (s *Simulated) GetSSVPosition(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ssvPosition, nil
}

func (s *Simulated) SetCryogen(ctx context.Context, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cryogen = enable
	if enable {
		s.thermocouples[0] = -190
	} else {
		s.thermocouples[0] = -35
	}
	return nil
}

func (s *Simulated) SetGCCryogen(ctx context.Context, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gcCryogen = enable
	return nil
}

func (s *Simulated) SetVacuum(ctx context.Context, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vacuum = enable
	if enable {
		s.pressure = 0.01
	}
	return nil
}

func (s *Simulated) SetSample(ctx context.Context, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sample = enable
	return nil
}

func (s *Simulated) SetCryoHeater(ctx context.Context, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cryoHeater = enable
	if enable {
		s.thermocouples[0] = -10
	}
	return nil
}

func (s *Simulated) SetOverflow(ctx context.Context, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overflow = enable
	return nil
}

func (s *Simulated) SetEvacuationValve(ctx context.Context, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evacuation = enable
	return nil
}

func (s *Simulated) SetHighPressureValve(ctx context.Context, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.highPressure = enable
	return nil
}

func (s *Simulated) SetFlow(ctx context.Context, flow float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flowControl = FlowControlVoltage(flow)
	s.flowSignal = (s.flowControl - 2.6) / 0.05
	return nil
}

func (s *Simulated) SetPFPValve(ctx context.Context, v PFPValve, open bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pfpHandshakeDone {
		if _, err := pfpHandshake(func(cmd string) (string, bool) { return "UNLOAD>", true }); err != nil {
			return "", err
		}
		s.pfpHandshakeDone = true
	}
	s.pfpOpen[v.SSV] = open
	if open {
		return "OPEN", nil
	}
	return "CLOSE", nil
}

func (s *Simulated) ValveLoad(ctx context.Context) error {
	return sleepCtx(ctx, 10*time.Millisecond)
}

func (s *Simulated) ValveInject(ctx context.Context) error {
	return sleepCtx(ctx, 10*time.Millisecond)
}

func (s *Simulated) PrecolumnIn(ctx context.Context) error {
	return sleepCtx(ctx, 10*time.Millisecond)
}

func (s *Simulated) PrecolumnOut(ctx context.Context) error {
	return sleepCtx(ctx, 10*time.Millisecond)
}

// SetSSV polls the simulated controller until it reports the requested
// position, mirroring instrument.py's up-to-30-second convergence wait.
func (s *Simulated) SetSSV(ctx context.Context, index int, manual bool) error {
	if err := s.SetOverflow(ctx, true); err != nil {
		return err
	}
	s.mu.Lock()
	s.ssvPosition = index
	s.mu.Unlock()
	for i := 0; i < 30; i++ {
		s.mu.Lock()
		pos := s.ssvPosition
		s.mu.Unlock()
		if pos == index {
			break
		}
		if err := sleepCtx(ctx, time.Second); err != nil {
			return err
		}
	}
	return s.SetOverflow(ctx, false)
}

// AdjustFlow ratchets the flow-control voltage toward the target flow over
// up to 15 iterations with a 0.15 deadband, matching instrument.py's closed
// loop.
func (s *Simulated) AdjustFlow(ctx context.Context, target float64) error {
	for i := 0; i < 15; i++ {
		current, err := s.GetFlowSignal(ctx)
		if err != nil {
			return err
		}
		delta := target - current
		if math.Abs(delta) <= 0.15 {
			return nil
		}
		increment := (math.Abs(delta)*2 + 1) * 0.01
		voltage, err := s.GetFlowControlOutput(ctx)
		if err != nil {
			return err
		}
		if delta > 0 {
			voltage += increment
		} else {
			voltage -= increment
		}
		s.mu.Lock()
		s.flowControl = ClampFlowControlVoltage(voltage)
		s.flowSignal = (s.flowControl - 2.6) / 0.05
		s.mu.Unlock()
		if err := sleepCtx(ctx, 100*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulated) IncrementFlow(ctx context.Context, target, multiplier float64) error {
	current, err := s.GetFlowSignal(ctx)
	if err != nil {
		return err
	}
	return s.SetFlow(ctx, current+(target-current)*multiplier)
}

func (s *Simulated) ReadyGCMS(ctx context.Context) error {
	return sleepCtx(ctx, 10*time.Millisecond)
}

func (s *Simulated) TriggerGCMS(ctx context.Context) error {
	return sleepCtx(ctx, 10*time.Millisecond)
}

func (s *Simulated) Initialization(ctx context.Context) error { return nil }
func (s *Simulated) Shutdown(ctx context.Context) error       { return nil }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
