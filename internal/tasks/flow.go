package tasks

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/atmoslab/gspc/internal/schedule"
)

// feedbackFlowDeadband and feedbackFlowAttempts match gspc/tasks/flow.py's
// FeedbackFlow: set the target, then retry adjusting toward it every 0.3
// seconds until the signal settles within the deadband, giving up after
// feedbackFlowAttempts with an error the caller logs, rather than aborting
// the cycle.
const (
	feedbackFlowDeadband = 0.15
	feedbackFlowAttempts = 15
	feedbackFlowSettling = 300 * time.Millisecond
)

// feedbackFlow runs one closed-loop ramp toward target, grounded on
// gspc/tasks/flow.py's FeedbackFlow.execute/_feedback_loop.
func feedbackFlow(ctx context.Context, sc *schedule.Context, target float64) error {
	if err := sc.Interface.AdjustFlow(ctx, target); err != nil {
		return err
	}
	for attempt := 0; attempt < feedbackFlowAttempts; attempt++ {
		v, err := sc.Interface.GetFlowSignal(ctx)
		if err == nil && math.Abs(v-target) <= feedbackFlowDeadband {
			return nil
		}
		if err := sc.Interface.AdjustFlow(ctx, target); err != nil {
			return err
		}
		time.Sleep(feedbackFlowSettling)
	}
	return fmt.Errorf("flow did not settle within %v of %v after %d attempts", feedbackFlowDeadband, target, feedbackFlowAttempts)
}

// FlowGuardResult accumulates what the flow guard observes over its
// window, read by the record-building steps once the window has closed.
type FlowGuardResult struct {
	LowFlow      bool
	LowFlowCount int
}

// StartFlowGuard launches the background task that keeps flow within
// [lower, upper] for the sample-open window and watches for sustained low
// flow, combining gspc/tasks/flow.py's MaintainFlow and DetectLowFlow into
// one monitor: both poll the same flow signal on the same cadence, so one
// background goroutine serves both concerns.
//
// On the first strike (flow below threshold for TriggerSeconds) it nudges
// the setpoint up by 0.1 V and counts it; on a second strike it stops
// maintaining flow and marks LowFlow.
func StartFlowGuard(sc *schedule.Context, origin float64, window time.Duration, lower, upper, threshold float64, result *FlowGuardResult) *Step {
	const triggerSeconds = 2
	return NewStep(sc, origin, nil, nil, func(ctx context.Context, sc *schedule.Context) bool {
		sc.Engine.StartBackground("flow-guard", func(bgCtx context.Context) {
			deadline := time.Now().Add(window)
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			belowCount := 0
			stopped := false
			for time.Now().Before(deadline) {
				select {
				case <-bgCtx.Done():
					return
				case <-ticker.C:
				}
				current, err := sc.Interface.GetFlowSignal(bgCtx)
				if err != nil {
					continue
				}
				if current < threshold {
					belowCount++
				} else {
					belowCount = 0
				}
				if belowCount >= triggerSeconds {
					belowCount = 0
					if !stopped {
						result.LowFlowCount++
						_ = sc.Interface.IncrementFlow(bgCtx, current+0.1, 1.0)
						if result.LowFlowCount >= 2 {
							stopped = true
							result.LowFlow = true
						}
						continue
					}
				}
				if stopped {
					continue
				}
				if current < lower {
					_ = sc.Interface.IncrementFlow(bgCtx, upper, 0.5)
				} else if current > upper {
					_ = sc.Interface.IncrementFlow(bgCtx, lower, 0.5)
				}
			}
		})
		return false
	})
}
