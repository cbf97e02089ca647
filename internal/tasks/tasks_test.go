package tasks

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmoslab/gspc/internal/cycledata"
	"github.com/atmoslab/gspc/internal/hw"
	"github.com/atmoslab/gspc/internal/logging"
	"github.com/atmoslab/gspc/internal/schedule"
)

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	dir := t.TempDir()
	sink := cycledata.NewSink(dir)
	t.Cleanup(func() { _ = sink.Close() })
	return &Env{Sink: sink, Log: logging.New(false, nil)}
}

// newTestContext builds a Context as the engine would, without driving a
// real-time Run loop: buildSample only needs the fields it reads.
func newTestContext(origin float64) *schedule.Context {
	eng := schedule.New(hw.NewSimulated(), nil, nil)
	return &schedule.Context{
		Interface: hw.NewSimulated(),
		Engine:    eng,
		Origin:    origin,
		TaskIndex: 0,
		TaskName:  "test",
	}
}

func sortedOrigins(rs []schedule.Runnable) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.Origin()
	}
	sort.Float64s(out)
	return out
}

func TestBaseSampleLastRunnableIsCycleEnd(t *testing.T) {
	env := newTestEnv(t)
	task := NewFlaskTask(env, 4)
	sc := newTestContext(0)

	rs := task.Schedule(sc)
	require.NotEmpty(t, rs)

	origins := sortedOrigins(rs)
	assert.Equal(t, CycleSeconds, origins[len(origins)-1])
}

func TestBaseSamplePreparationWindowOnlyForNonFirstCycle(t *testing.T) {
	env := newTestEnv(t)

	first := (&SampleTask{Opts: SampleOptions{Env: env, Type: SampleFlask, SSVPosition: 4, Flow: flaskFlowProfile(env, 4)}}).Schedule(newTestContext(0))
	later := (&SampleTask{Opts: SampleOptions{Env: env, Type: SampleFlask, SSVPosition: 4, Flow: flaskFlowProfile(env, 4)}}).Schedule(newTestContext(CycleSeconds))

	assert.Less(t, len(first), len(later), "a non-first cycle should contribute the preparation steps")
	// 5 from buildSample's own preparation window, plus Flask's own
	// SSV pre-positioning pair (O-814/O-435).
	assert.Equal(t, 7, len(later)-len(first))
}

func TestPFPFlaskAddsPFPChoreographyOnTopOfFlask(t *testing.T) {
	env := newTestEnv(t)
	flask := NewFlaskTask(env, 4).Schedule(newTestContext(0))
	pfpFlask := NewPFPFlaskTask(env, 4, 9).Schedule(newTestContext(0))

	assert.Equal(t, 5, len(pfpFlask)-len(flask), "buildPFP contributes 5 extra runnables")
}

func TestPFPFlaskAddsEvacuationChoreographyForNonFirstCycle(t *testing.T) {
	env := newTestEnv(t)
	first := NewPFPFlaskTask(env, 4, 9).Schedule(newTestContext(0))
	later := NewPFPFlaskTask(env, 4, 9).Schedule(newTestContext(CycleSeconds))

	// buildSample's 5 prep steps, Flask's 2 SSV pre-position steps, and
	// buildPFP's 6 pre-cycle evacuation/measurement steps.
	assert.Equal(t, 13, len(later)-len(first))
}

// ovenFake fixes GetOvenTemperatureSignal so waitForOvenCool's
// threshold comparison can be tested without real sleeps.
type ovenFake struct {
	*hw.Simulated
	signal float64
}

func (f *ovenFake) GetOvenTemperatureSignal(ctx context.Context) (float64, error) {
	return f.signal, nil
}

func TestWaitForOvenCoolReturnsTrueOnceSignalDropsToThreshold(t *testing.T) {
	env := newTestEnv(t)
	fake := &ovenFake{Simulated: hw.NewSimulated(), signal: RequiredOvenSignal}
	sc := &schedule.Context{Interface: fake, Engine: schedule.New(fake, nil, nil), Origin: 0}
	extra := 0

	ok := waitForOvenCool(context.Background(), sc, env, &extra)

	assert.True(t, ok)
	assert.Equal(t, 0, extra)
}

func TestBaseSampleOriginStepMarksTaskStarted(t *testing.T) {
	env := newTestEnv(t)
	sc := newTestContext(0)
	task := NewZeroTask(env)
	rs := task.Schedule(sc)

	var originStep schedule.Runnable
	for _, r := range rs {
		if r.Origin() == sc.Origin {
			originStep = r
			break
		}
	}
	require.NotNil(t, originStep)
	assert.False(t, sc.Started())
	originStep.Execute()
	assert.True(t, sc.Started())
}

func TestBaseSampleCycleEndMarksTaskCompleted(t *testing.T) {
	env := newTestEnv(t)
	sc := newTestContext(0)
	task := NewTankTask(env, 7)
	rs := task.Schedule(sc)

	var last schedule.Runnable
	for _, r := range rs {
		if last == nil || r.Origin() > last.Origin() {
			last = r
		}
	}
	require.NotNil(t, last)
	assert.False(t, sc.Completed())
	last.Execute()
	assert.True(t, sc.Completed())
}

func TestRegistryKnowsEveryVariant(t *testing.T) {
	for _, name := range []string{"Flask", "Tank", "Zero", "PFPFlask"} {
		_, ok := Registry[name]
		assert.True(t, ok, "registry missing %s", name)
	}
	assert.ElementsMatch(t, []string{"Flask", "Tank", "Zero", "PFPFlask"}, KnownTaskNames())
}

func TestFlaskFactoryParsesSSVPosition(t *testing.T) {
	env := newTestEnv(t)
	task, err := Registry["Flask"](env, "4")
	require.NoError(t, err)
	st, ok := task.(*SampleTask)
	require.True(t, ok)
	assert.Equal(t, 4, st.Opts.SSVPosition)
	assert.Equal(t, SampleFlask, st.Opts.Type)
}

func TestFlaskFactoryRejectsMissingData(t *testing.T) {
	env := newTestEnv(t)
	_, err := Registry["Flask"](env, "")
	assert.Error(t, err)
}

func TestZeroFactoryIgnoresData(t *testing.T) {
	env := newTestEnv(t)
	task, err := Registry["Zero"](env, "")
	require.NoError(t, err)
	st := task.(*SampleTask)
	assert.Equal(t, ZeroSSVPosition, st.Opts.SSVPosition)
	assert.Equal(t, SampleZero, st.Opts.Type)
}

func TestPFPFlaskFactoryParsesBothPositions(t *testing.T) {
	env := newTestEnv(t)
	task, err := Registry["PFPFlask"](env, "4:9")
	require.NoError(t, err)
	st := task.(*SampleTask)
	assert.Equal(t, 4, st.Opts.SSVPosition)
	require.NotNil(t, st.Opts.PFP)
	assert.Equal(t, 9, st.Opts.PFP.SSV)
}

func TestPFPFlaskFactoryRejectsMalformedData(t *testing.T) {
	env := newTestEnv(t)
	_, err := Registry["PFPFlask"](env, "4")
	assert.Error(t, err)
	_, err = Registry["PFPFlask"](env, "a:b")
	assert.Error(t, err)
}

func TestTankFactoryRejectsNonNumericSSV(t *testing.T) {
	env := newTestEnv(t)
	_, err := Registry["Tank"](env, "not-a-number")
	assert.Error(t, err)
}

// flowFake fixes GetFlowSignal below a low-flow threshold, forwarding every
// other call to an embedded Simulated, so the guard's escalation logic runs
// against a controlled signal.
type flowFake struct {
	*hw.Simulated
	fixed float64
}

func (f *flowFake) GetFlowSignal(ctx context.Context) (float64, error) { return f.fixed, nil }

func TestFlowGuardMarksLowFlowAfterTwoStrikes(t *testing.T) {
	fake := &flowFake{Simulated: hw.NewSimulated(), fixed: 0.0}
	eng := schedule.New(fake, nil, nil)
	sc := &schedule.Context{Interface: fake, Engine: eng, Origin: 0}
	result := &FlowGuardResult{}

	step := StartFlowGuard(sc, 0, 6*time.Second, LowerSampleFlow, UpperSampleFlow, LowFlowThreshold, result)
	step.Execute()

	time.Sleep(7 * time.Second)
	assert.True(t, result.LowFlow)
	assert.GreaterOrEqual(t, result.LowFlowCount, 2)
}
