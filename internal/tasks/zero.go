package tasks

import (
	"context"

	"github.com/atmoslab/gspc/internal/schedule"
)

// NewZeroTask builds the Zero variant: draws zero-gas from the dedicated
// SSV position at a fixed, low setpoint rather than ramping toward
// SampleFlow, since the zero line has no ambient-pressure variation to
// correct for.
//
// Grounded on gspc/tasks/zero.py's Zero.schedule.
func NewZeroTask(env *Env) *SampleTask {
	return &SampleTask{Opts: SampleOptions{
		Env:         env,
		Type:        SampleZero,
		SSVPosition: ZeroSSVPosition,
		Flow:        zeroFlowProfile(env),
	}}
}

func zeroFlowProfile(env *Env) FlowProfile {
	return func(sc *schedule.Context, result *FlowGuardResult) []schedule.Runnable {
		O := sc.Origin
		P := O + SampleOpenAt
		return []schedule.Runnable{
			NewStep(sc, P+2, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
				logErr(env.Log, "zero-set-flow", sc.Interface.SetFlow(ctx, InitialFlow))
				return false
			}),
		}
	}
}
