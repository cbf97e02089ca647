package hw

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowControlVoltageClamps(t *testing.T) {
	assert.Equal(t, 0.0, FlowControlVoltage(-1000))
	assert.Equal(t, 5.0, FlowControlVoltage(1000))
	assert.InDelta(t, 2.6, FlowControlVoltage(0), 1e-9)
}

func TestSimulatedAdjustFlowConverges(t *testing.T) {
	s := NewSimulated()
	err := s.AdjustFlow(context.Background(), 7.2)
	require.NoError(t, err)
	current, err := s.GetFlowSignal(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 7.2, current, 0.2)
}

func TestSimulatedSetSSVConverges(t *testing.T) {
	s := NewSimulated()
	err := s.SetSSV(context.Background(), 3, false)
	require.NoError(t, err)
	pos, err := s.GetSSVPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, pos)
}

func TestInstrumentReturnsErrNoHardware(t *testing.T) {
	i := NewInstrument()
	_, err := i.GetPressure(context.Background())
	assert.ErrorIs(t, err, ErrNoHardware)
	assert.ErrorIs(t, i.SetCryogen(context.Background(), true), ErrNoHardware)
}

func TestPFPHandshakeSucceedsOnBareProbe(t *testing.T) {
	state, err := pfpHandshake(func(cmd string) (string, bool) { return "UNLOAD>", true })
	require.NoError(t, err)
	assert.Equal(t, pfpStateReady, state)
}

func TestPFPHandshakeFallsThroughToUnloadCommand(t *testing.T) {
	calls := 0
	state, err := pfpHandshake(func(cmd string) (string, bool) {
		calls++
		if cmd == "U\r" {
			return "UNLOAD>", true
		}
		return "", false
	})
	require.NoError(t, err)
	assert.Equal(t, pfpStateReady, state)
	assert.Equal(t, 1+maxQuitAttempts+1, calls) // probe + 5 quits + final unload
}

func TestPFPHandshakeFailsAfterExhaustingAttempts(t *testing.T) {
	_, err := pfpHandshake(func(cmd string) (string, bool) { return "", false })
	assert.ErrorIs(t, err, ErrPFPUnreachable)
}

func TestSimulatedSetPFPValveTracksOpenState(t *testing.T) {
	s := NewSimulated()
	prompt, err := s.SetPFPValve(context.Background(), PFPValve{SSV: 2}, true)
	require.NoError(t, err)
	assert.Equal(t, "OPEN", prompt)

	prompt, err = s.SetPFPValve(context.Background(), PFPValve{SSV: 2}, false)
	require.NoError(t, err)
	assert.Equal(t, "CLOSE", prompt)
}

func TestSimulatedPFPPressureRisesWhileOpen(t *testing.T) {
	s := NewSimulated()
	_, err := s.SetPFPValve(context.Background(), PFPValve{SSV: 2}, true)
	require.NoError(t, err)

	ssv := 2
	first, err := s.GetPFPPressure(context.Background(), &ssv)
	require.NoError(t, err)
	second, err := s.GetPFPPressure(context.Background(), &ssv)
	require.NoError(t, err)
	assert.Greater(t, second, first)
}
