package console

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atmoslab/gspc/internal/logging"
	"github.com/atmoslab/gspc/internal/schedule"
)

func newTestConsole() (*Console, *schedule.Engine) {
	eng := schedule.New(nil, nil, nil)
	return New(eng, logging.New(false, nil)), eng
}

func TestExecutePauseAndResumeForwardToEngine(t *testing.T) {
	c, eng := newTestConsole()

	c.execute("pause")
	assert.True(t, eng.Paused())

	c.execute("resume")
	assert.False(t, eng.Paused())
}

func TestExecuteAbortWithMessageForwardsToEngine(t *testing.T) {
	c, eng := newTestConsole()

	c.execute("abort too hot")

	aborted, msg := eng.Aborted()
	assert.True(t, aborted)
	assert.Equal(t, "too hot", msg)
}

func TestExecuteAbortWithoutMessageUsesDefault(t *testing.T) {
	c, eng := newTestConsole()

	c.execute("abort")

	aborted, msg := eng.Aborted()
	assert.True(t, aborted)
	assert.Equal(t, "aborted from console", msg)
}

func TestExecuteQuitClosesTheQuitChannel(t *testing.T) {
	c, _ := newTestConsole()

	c.execute("quit")

	select {
	case <-c.quit:
	default:
		t.Fatal("expected quit channel to be closed")
	}
}

func TestExecuteUnknownCommandDoesNotPanic(t *testing.T) {
	c, _ := newTestConsole()
	assert.NotPanics(t, func() { c.execute("frobnicate") })
}

func TestExecuteBlankLineIsANoOp(t *testing.T) {
	c, eng := newTestConsole()
	c.execute("   ")
	assert.False(t, eng.Paused())
}

func TestStatusDoesNotPanicOnAFreshEngine(t *testing.T) {
	c, _ := newTestConsole()
	assert.NotPanics(t, c.status)
}
