package tasks

import (
	"context"
	"time"

	"github.com/atmoslab/gspc/internal/cycledata"
	"github.com/atmoslab/gspc/internal/schedule"
)

// MeasurePressure samples the pressure transducer once a second for a fixed
// duration and reports the mean, standard deviation and raw series to
// record. Grounded on gspc/tasks/pressure.py's background sampling loop;
// re-expressed as a blocking Runnable since Execute is permitted to suspend
// for a deterministic duration (§4.2c), which removes the need for a
// separate background task for this one bounded window.
type MeasurePressure struct {
	schedule.Base
	sc       *schedule.Context
	duration time.Duration
	pfp      *int
	record   func(mean, stdev, rsd float64, series []float64)
}

// NewMeasurePressure schedules a pressure-measurement window at origin,
// lasting duration, reporting results through record when it completes. If
// pfp is non-nil, the PFP inlet pressure is sampled instead of the main
// line.
func NewMeasurePressure(sc *schedule.Context, origin float64, duration time.Duration, pfp *int, record func(mean, stdev, rsd float64, series []float64)) *MeasurePressure {
	return &MeasurePressure{
		Base:     schedule.NewBase(sc.TaskIndex, origin, nil, nil),
		sc:       sc,
		duration: duration,
		pfp:      pfp,
		record:   record,
	}
}

func (m *MeasurePressure) Execute() bool {
	ctx := context.Background()
	var series []float64
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	deadline := time.Now().Add(m.duration)
	for time.Now().Before(deadline) {
		var (
			v   float64
			err error
		)
		if m.pfp != nil {
			v, err = m.sc.Interface.GetPFPPressure(ctx, m.pfp)
		} else {
			v, err = m.sc.Interface.GetPressure(ctx)
		}
		if err == nil {
			series = append(series, v)
		}
		<-ticker.C
	}
	if m.record != nil {
		m.record(cycledata.Mean(series), cycledata.Stdev(series), cycledata.RelativeStdev(series), series)
	}
	return false
}
