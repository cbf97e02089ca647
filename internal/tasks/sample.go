package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/atmoslab/gspc/internal/cycledata"
	"github.com/atmoslab/gspc/internal/schedule"
)

// SampleType names the sample source column recorded for each cycle.
type SampleType string

const (
	SampleFlask SampleType = "flask"
	SampleTank  SampleType = "tank"
	SampleZero  SampleType = "zero"
)

// FlowProfile lets each variant contribute its own flow-ramp Runnables
// (flask feedback ramps, tank full-open, zero's fixed setpoint) into the
// base choreography at the points the base composition reserves for them.
type FlowProfile func(sc *schedule.Context, result *FlowGuardResult) []schedule.Runnable

// SampleOptions configures one cycle of the base choreography for a
// particular variant.
type SampleOptions struct {
	Env         *Env
	Type        SampleType
	SSVPosition int
	Flow        FlowProfile
	// PFP, when non-nil, augments the cycle with PFP pressure measurements,
	// valve open/close and the evacuation guard (the PFPFlask variant).
	PFP *PFPOptions
}

// SampleTask implements the base sample choreography (§4.6.1) and is
// reused, with different SampleOptions, by every variant.
type SampleTask struct {
	Opts SampleOptions
}

func (t *SampleTask) OriginAdvance() float64 { return CycleSeconds }

func (t *SampleTask) Schedule(sc *schedule.Context) []schedule.Runnable {
	return buildSample(sc, t.Opts)
}

// buildSample assembles the Runnables named in the component design's base
// choreography, at O, P = O+SampleOpenAt, Q = P+SampleSeconds, grounded on
// gspc/tasks/sample.py's Sample.schedule.
func buildSample(sc *schedule.Context, opts SampleOptions) []schedule.Runnable {
	O := sc.Origin
	P := O + SampleOpenAt
	Q := P + SampleSeconds

	rec := cycledata.NewRecord(opts.Env.Sink, opts.Env.Sink.CurrentFileName())
	flowResult := &FlowGuardResult{}
	abortMsg := new(string)

	var runnables []schedule.Runnable
	add := func(r schedule.Runnable) { runnables = append(runnables, r) }

	// Preparation window: only materializes for a non-first cycle.
	if O > 0 {
		add(NewStep(sc, O-435, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
			logErr(opts.Env.Log, "overflow-off-prep", sc.Interface.SetOverflow(ctx, false))
			return false
		}).Prep())
		add(NewStep(sc, O-300, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
			logErr(opts.Env.Log, "cryo-heater-off-prep", sc.Interface.SetCryoHeater(ctx, false))
			return false
		}).Prep())
		add(NewStep(sc, O-230, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
			logErr(opts.Env.Log, "zero-flow-prep", sc.Interface.SetFlow(ctx, 0))
			return false
		}).Prep())
		add(NewStep(sc, O-100, []string{"cryogen"}, nil, func(ctx context.Context, sc *schedule.Context) bool {
			logErr(opts.Env.Log, "cryogen-on-prep", sc.Interface.SetCryogen(ctx, true))
			return false
		}).Prep())
		add(NewStep(sc, O-50, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
			logErr(opts.Env.Log, "overflow-on-prep", sc.Interface.SetOverflow(ctx, true))
			return false
		}).Prep())
	}

	add(NewStep(sc, O, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		sc.MarkStarted()
		rec.Set("SSVPos", fmt.Sprintf("%d", opts.SSVPosition))
		rec.Set("SampType", string(opts.Type))
		sc.Engine.StartBackground("temperature-log", func(bgCtx context.Context) {
			logTemperatures(bgCtx, sc, Q+360-O)
		})
		return false
	}))

	add(NewStep(sc, O+1, []string{"cryogen"}, nil, func(ctx context.Context, sc *schedule.Context) bool {
		logErr(opts.Env.Log, "cryogen-on", sc.Interface.SetCryogen(ctx, true))
		return false
	}))

	add(NewStep(sc, O+120, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		logErr(opts.Env.Log, "vacuum-on", sc.Interface.SetVacuum(ctx, true))
		return false
	}))

	var initP float64
	add(NewMeasurePressure(sc, P-8, 7*time.Second, nil, func(mean, stdev, rsd float64, series []float64) {
		initP = mean
		rec.SetFloat("InitP", mean, 3)
		rec.SetScientific("InitP_RSD", rsd)
	}))

	var lastFlow float64
	add(NewStep(sc, P-1, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		v, err := sc.Interface.GetFlowSignal(ctx)
		logErr(opts.Env.Log, "log-flow", err)
		lastFlow = v
		return false
	}))

	add(NewStep(sc, P, []string{"sample_open"}, nil, func(ctx context.Context, sc *schedule.Context) bool {
		logErr(opts.Env.Log, "sample-open", sc.Interface.SetSample(ctx, true))
		return false
	}))

	if opts.Flow != nil {
		for _, r := range opts.Flow(sc, flowResult) {
			add(r)
		}
	}
	add(StartFlowGuard(sc, P+1, time.Duration(Q-P-1)*time.Second, LowerSampleFlow, UpperSampleFlow, LowFlowThreshold, flowResult))

	add(NewStep(sc, Q-240, []string{"gc_cryogen"}, nil, func(ctx context.Context, sc *schedule.Context) bool {
		logErr(opts.Env.Log, "gc-cryogen-on", sc.Interface.SetGCCryogen(ctx, true))
		return false
	}))

	add(NewStep(sc, Q-120, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		logErr(opts.Env.Log, "precolumn-in", sc.Interface.PrecolumnIn(ctx))
		return false
	}))

	cryoExtra := 0
	add(NewStep(sc, Q-15, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		ok := waitForOvenCool(ctx, sc, opts.Env, &cryoExtra)
		if !ok {
			Raise(abortMsg, "oven did not cool before injection")
		}
		return false
	}))

	add(NewStep(sc, Q-5, []string{"cryogen"}, nil, func(ctx context.Context, sc *schedule.Context) bool {
		logErr(opts.Env.Log, "cryogen-off", sc.Interface.SetCryogen(ctx, false))
		return false
	}))

	var lastVFlow float64
	add(NewStep(sc, Q-2, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		lastFlow, _ = sc.Interface.GetFlowSignal(ctx)
		lastVFlow, _ = sc.Interface.GetFlowControlOutput(ctx)
		return false
	}))

	add(NewStep(sc, Q, []string{"sample_close"}, nil, func(ctx context.Context, sc *schedule.Context) bool {
		logErr(opts.Env.Log, "sample-close", sc.Interface.SetSample(ctx, false))
		rec.SetFloat("LastFlow", lastFlow, 3)
		rec.SetFloat("LastVFlow", lastVFlow, 3)
		return false
	}))

	add(NewStep(sc, Q+1, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		logErr(opts.Env.Log, "gc-ready", sc.Interface.ReadyGCMS(ctx))
		logErr(opts.Env.Log, "valve-inject", sc.Interface.ValveInject(ctx))
		return false
	}))

	add(NewStep(sc, Q+2, []string{"gc_trigger"}, nil, func(ctx context.Context, sc *schedule.Context) bool {
		logErr(opts.Env.Log, "gc-trigger", sc.Interface.TriggerGCMS(ctx))
		logErr(opts.Env.Log, "cryo-heater-on", sc.Interface.SetCryoHeater(ctx, true))
		logErr(opts.Env.Log, "static-flow-reset", sc.Interface.SetFlow(ctx, SampleInitialFlow))
		return false
	}))

	add(NewStep(sc, Q+3, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		logErr(opts.Env.Log, "high-pressure-off", sc.Interface.SetHighPressureValve(ctx, false))
		logErr(opts.Env.Log, "overflow-off", sc.Interface.SetOverflow(ctx, false))
		return false
	}))

	add(NewMeasurePressure(sc, Q+4, 16*time.Second, nil, func(mean, stdev, rsd float64, series []float64) {
		rec.SetFloat("FinalP", mean, 3)
		rec.SetScientific("FinalP_RSD", rsd)
		if !isNaNf(mean) && !isNaNf(initP) {
			rec.SetFloat("NetPressure", mean-initP, 3)
		}
	}))

	add(NewAbortPoint(sc, Q+8, abortMsg))

	add(NewStep(sc, Q+57, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		logErr(opts.Env.Log, "valve-load", sc.Interface.ValveLoad(ctx))
		return false
	}))
	add(NewStep(sc, Q+59, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		logErr(opts.Env.Log, "vacuum-off", sc.Interface.SetVacuum(ctx, false))
		return false
	}))

	add(NewStep(sc, Q+69, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		v, err := sc.Interface.GetOvenTemperatureSignal(ctx)
		if err == nil && v < RequiredOvenSignal {
			sc.Engine.Abort("sample temperature did not rise after injection")
		}
		return false
	}))

	add(NewStep(sc, Q+150, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		logErr(opts.Env.Log, "precolumn-out", sc.Interface.PrecolumnOut(ctx))
		return false
	}))

	add(NewStep(sc, Q+360, []string{"gc_cryogen"}, nil, func(ctx context.Context, sc *schedule.Context) bool {
		logErr(opts.Env.Log, "gc-cryogen-off", sc.Interface.SetGCCryogen(ctx, false))
		return false
	}))

	if opts.PFP != nil {
		runnables = append(runnables, buildPFP(sc, opts, rec)...)
	}

	add(NewStep(sc, O+CycleSeconds, []string{"cycle_end"}, nil, func(ctx context.Context, sc *schedule.Context) bool {
		rec.SetInt("cryocount", cryoExtra)
		rec.SetInt("loflocount", flowResult.LowFlowCount)
		if flowResult.LowFlow {
			rec.Set("LowFlow?", "Y")
		} else {
			rec.Set("LowFlow?", "N")
		}
		sc.MarkCompleted()
		if err := rec.Finish(); err != nil {
			logErr(opts.Env.Log, "record-finish", err)
		}
		return false
	}))

	return runnables
}

func isNaNf(v float64) bool { return v != v }

// waitForOvenCool polls the oven signal up to 4 times, 15 seconds apart,
// counting each retry toward the cycle's cryocount column. The oven has
// cooled once the signal drops to or below RequiredOvenSignal; the engine's
// main loop tolerates this step running long, so the retries simply push
// back the steps that follow rather than needing to fit inside any fixed
// window. Grounded on gspc/tasks/temperature.py's WaitForOvenCool.execute.
func waitForOvenCool(ctx context.Context, sc *schedule.Context, env *Env, extra *int) bool {
	for attempt := 0; attempt < 4; attempt++ {
		if attempt > 0 {
			*extra++
			time.Sleep(15 * time.Second)
		}
		v, err := sc.Interface.GetOvenTemperatureSignal(ctx)
		if err == nil && v <= RequiredOvenSignal {
			return true
		}
	}
	return false
}

func logTemperatures(ctx context.Context, sc *schedule.Context, d float64) {
	deadline := time.Now().Add(time.Duration(d) * time.Second)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		_, _ = sc.Interface.GetOvenTemperatureSignal(ctx)
	}
}
