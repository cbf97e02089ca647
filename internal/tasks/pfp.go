package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/atmoslab/gspc/internal/cycledata"
	"github.com/atmoslab/gspc/internal/hw"
	"github.com/atmoslab/gspc/internal/schedule"
)

// PFPOptions configures the PFPFlask variant's extra choreography: which
// PFP flask to open/close, and the index passed to GetPFPPressure. EvacSSV
// is the SSV position holding the prior cycle's flask on the evacuation
// line; it defaults to SSV-1, matching pfpflask.py's self._evac_ssv.
//
// Grounded on gspc/tasks/pfpflask.py's PFPFlask.schedule, which layers a
// flask-specific open/close pulse pair, a pre-cycle evacuation check and a
// pair of settling-pressure measurements, plus a hand-off that starts
// evacuating the prior cycle's flask, onto the base Sample timeline.
type PFPOptions struct {
	SSV     int
	EvacSSV int
}

// buildPFP appends the PFPFlask variant's Runnables: open the flask at
// Q-120 (overlapping precolumn-in), measure its settling pressure, close it
// at Q+57 (alongside the valve-load switch), and run a guard that aborts
// the cycle if sample flow goes negative. For a non-first cycle it also
// pre-positions the SSV and confirms the flask is evacuated before the open
// pulse (O-123/O-108 pressure readings, O-120 CheckPFPEvacuated, per
// pfpflask.py), and, earlier still, selects the evacuation SSV (EvacSSV)
// and opens the evacuation valve (O-218/O-202, adapted from pfpflask.py's
// prior_post_origin+182/+198 hand-off).
func buildPFP(sc *schedule.Context, opts SampleOptions, rec *cycledata.Record) []schedule.Runnable {
	O := sc.Origin
	P := O + SampleOpenAt
	Q := P + SampleSeconds
	ssv := opts.PFP.SSV
	evacSSV := opts.PFP.EvacSSV
	if evacSSV == 0 {
		evacSSV = ssv - 1
	}

	var runnables []schedule.Runnable
	add := func(r schedule.Runnable) { runnables = append(runnables, r) }

	if O > 0 {
		add(NewStep(sc, O-123, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
			p, err := sc.Interface.GetPFPPressure(ctx, &ssv)
			if err == nil {
				rec.SetFloat("PFPPress1", p, 3)
			}
			return false
		}).Prep())
		add(NewStep(sc, O-120, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
			p, err := sc.Interface.GetPFPPressure(ctx, &ssv)
			if err == nil && p > RequiredPFPPressureMax {
				sc.Engine.Abort("PFP flask was not evacuated before its turn")
			}
			return false
		}).Prep())
		add(NewStep(sc, O-115, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
			logErr(opts.Env.Log, "pfp-ssv-select", sc.Interface.SetSSV(ctx, ssv, false))
			return false
		}).Prep())
		add(NewStep(sc, O-108, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
			p, err := sc.Interface.GetPFPPressure(ctx, &ssv)
			if err == nil {
				rec.SetFloat("PFPPress2", p, 3)
			}
			return false
		}).Prep())

		add(NewStep(sc, O-218, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
			logErr(opts.Env.Log, "pfp-overflow-off-prep", sc.Interface.SetOverflow(ctx, false))
			logErr(opts.Env.Log, "pfp-evac-ssv-select", sc.Interface.SetSSV(ctx, evacSSV, false))
			return false
		}).Prep())
		add(NewStep(sc, O-202, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
			logErr(opts.Env.Log, "pfp-evacuate-on", sc.Interface.SetEvacuationValve(ctx, true))
			return false
		}).Prep())
	}

	add(NewStep(sc, Q-120, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		prompt, err := sc.Interface.SetPFPValve(ctx, hw.PFPValve{SSV: ssv}, true)
		logErr(opts.Env.Log, "pfp-open", err)
		rec.Set("pfpFlask", fmt.Sprintf("%d", ssv))
		rec.Set("pfpOPEN", prompt)
		return false
	}))

	add(NewMeasurePressure(sc, Q-90, 10*time.Second, &ssv, func(mean, stdev, rsd float64, series []float64) {
		rec.SetFloat("PRESS#1", mean, 3)
	}))

	add(NewStep(sc, Q-30, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		p, err := sc.Interface.GetPFPPressure(ctx, &ssv)
		if err == nil {
			rec.SetFloat("PRESS#2", p, 3)
		}
		return false
	}))

	add(NewStep(sc, Q+57, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		prompt, err := sc.Interface.SetPFPValve(ctx, hw.PFPValve{SSV: ssv}, false)
		logErr(opts.Env.Log, "pfp-close", err)
		rec.Set("pfpCLOSE", prompt)
		p, perr := sc.Interface.GetPFPPressure(ctx, &ssv)
		if perr == nil {
			rec.SetFloat("PRESS#3", p, 3)
		}
		return false
	}))

	add(NewStep(sc, Q+10, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		flow, err := sc.Interface.GetFlowSignal(ctx)
		if err == nil && flow < 0 {
			sc.Engine.Abort("sample flow went negative during PFP draw")
		}
		return false
	}))

	return runnables
}
