package tasks

import (
	"context"

	"github.com/atmoslab/gspc/internal/schedule"
)

// NewFlaskTask builds the Flask variant: draws from a single SSV position,
// pre-positioned a long horizon ahead of the cycle opening, and closed-loop
// ramped toward SampleFlow twice before the sample valve opens (O+71 and
// O+123) and once more just after it opens (P+2).
//
// Grounded on gspc/tasks/zero.py's SSV pre-positioning pattern and
// gspc/tasks/flow.py's FeedbackFlow, adapted to Flask's own SSV position and
// SampleFlow target rather than Zero's fixed zero-gas line.
func NewFlaskTask(env *Env, ssvPosition int) *SampleTask {
	return &SampleTask{Opts: SampleOptions{
		Env:         env,
		Type:        SampleFlask,
		SSVPosition: ssvPosition,
		Flow:        flaskFlowProfile(env, ssvPosition),
	}}
}

func flaskFlowProfile(env *Env, ssvPosition int) FlowProfile {
	return func(sc *schedule.Context, result *FlowGuardResult) []schedule.Runnable {
		O := sc.Origin
		P := O + SampleOpenAt

		var runnables []schedule.Runnable
		add := func(r schedule.Runnable) { runnables = append(runnables, r) }

		if O > 0 {
			add(NewStep(sc, O-814, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
				logErr(env.Log, "flask-ssv-preposition", sc.Interface.SetSSV(ctx, ssvPosition, false))
				return false
			}).Prep())
			add(NewStep(sc, O-435, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
				logErr(env.Log, "flask-ssv-confirm", sc.Interface.SetSSV(ctx, ssvPosition, false))
				return false
			}).Prep())
		}

		add(NewStep(sc, P+2, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
			logErr(env.Log, "flask-adjust-flow", sc.Interface.AdjustFlow(ctx, SampleFlow))
			return false
		}))
		add(NewStep(sc, O+71, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
			logErr(env.Log, "flask-feedback-flow", feedbackFlow(ctx, sc, SampleFlow))
			return false
		}))
		add(NewStep(sc, O+123, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
			logErr(env.Log, "flask-feedback-flow", feedbackFlow(ctx, sc, SampleFlow))
			return false
		}))

		return runnables
	}
}
