package tasks

import (
	"context"
	"math"

	"github.com/atmoslab/gspc/internal/schedule"
)

// NewTankTask builds the Tank variant: draws from a pressurized tank at a
// fixed SSV position, running fully open rather than Flask's closed-loop
// ramp toward a setpoint.
//
// Grounded on gspc/tasks/flow.py's FullFlow.execute, which sets the flow
// controller to math.inf.
func NewTankTask(env *Env, ssvPosition int) *SampleTask {
	return &SampleTask{Opts: SampleOptions{
		Env:         env,
		Type:        SampleTank,
		SSVPosition: ssvPosition,
		Flow:        tankFlowProfile(env),
	}}
}

func tankFlowProfile(env *Env) FlowProfile {
	return func(sc *schedule.Context, result *FlowGuardResult) []schedule.Runnable {
		O := sc.Origin
		P := O + SampleOpenAt
		return []schedule.Runnable{
			NewStep(sc, P+2, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
				logErr(env.Log, "tank-set-flow", sc.Interface.SetFlow(ctx, math.Inf(1)))
				return false
			}),
		}
	}
}
