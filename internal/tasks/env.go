package tasks

import (
	"github.com/atmoslab/gspc/internal/cycledata"
	"github.com/atmoslab/gspc/internal/logging"
)

// Env carries the application-level collaborators a Task closes over at
// construction time (distinct from schedule.Context, which the engine
// builds fresh per cycle): the output sink and the structured logger.
type Env struct {
	Sink *cycledata.Sink
	Log  *logging.Logger
}

// Cycle timing constants. const.py, which defined these in the original
// project, was not part of the retrieved source; these values are chosen
// to satisfy every ordering constraint the choreography requires (e.g.
// Q+360 = O+860 < O+900, with margin to spare).
const (
	CycleSeconds  = 900.0
	SampleOpenAt  = 200.0
	SampleSeconds = 300.0
)

// SSV positions used by the zero-gas line and the low-flow/high-pressure
// thresholds shared across variants.
const (
	ZeroSSVPosition = 16

	// InitialFlow is zero.go's own baseline setpoint. sample.go's Q+2
	// static-flow-reset step uses the distinct SampleInitialFlow instead.
	InitialFlow       = 6.9
	SampleInitialFlow = 3
	SampleFlow        = 7.2
	UpperSampleFlow  = 1.3
	LowerSampleFlow  = 0.5
	LowFlowThreshold = 0.2

	RequiredOvenSignal     = 2.5
	RequiredPFPPressureMax = 2.5
	RequiredTrapTemp       = -30.0
)
