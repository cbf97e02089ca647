// Package console implements the terminal front-end (C9) for the engine's
// control surface (C7): an interactive command line built on
// github.com/joeycumines/go-prompt, offering status/pause/resume/abort/quit
// over whichever cycle is currently running.
package console

import (
	"fmt"
	"strings"

	goprompt "github.com/joeycumines/go-prompt"
	pstrings "github.com/joeycumines/go-prompt/strings"

	"github.com/atmoslab/gspc/internal/logging"
	"github.com/atmoslab/gspc/internal/schedule"
)

var commands = []goprompt.Suggest{
	{Text: "status", Description: "print the current cycle's snapshot"},
	{Text: "pause", Description: "suspend the running cycle"},
	{Text: "resume", Description: "resume a paused cycle"},
	{Text: "abort", Description: "abort the running cycle, optionally with a message"},
	{Text: "quit", Description: "exit the console"},
}

// Console is the REPL bound to one running Engine.
type Console struct {
	engine *schedule.Engine
	log    *logging.Logger
	quit   chan struct{}
}

// New builds a Console over engine, logging through log.
func New(engine *schedule.Engine, log *logging.Logger) *Console {
	return &Console{engine: engine, log: log, quit: make(chan struct{})}
}

// Run blocks, driving the prompt until the user types "quit" or EOF.
func (c *Console) Run() {
	p := goprompt.New(
		c.execute,
		goprompt.WithPrefix("gspc> "),
		goprompt.WithTitle("gspc"),
		goprompt.WithCompleter(c.complete),
		goprompt.WithExitChecker(func(in string, breakline bool) bool {
			select {
			case <-c.quit:
				return true
			default:
				return false
			}
		}),
	)
	p.Run()
}

func (c *Console) execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "status":
		c.status()
	case "pause":
		c.engine.Pause()
	case "resume":
		c.engine.Resume()
	case "abort":
		msg := "aborted from console"
		if len(fields) > 1 {
			msg = strings.Join(fields[1:], " ")
		}
		c.engine.Abort(msg)
	case "quit", "exit":
		close(c.quit)
	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}
}

func (c *Console) status() {
	paused := c.engine.Paused()
	aborted, msg := c.engine.Aborted()
	fmt.Printf("paused=%v aborted=%v", paused, aborted)
	if aborted && msg != "" {
		fmt.Printf(" (%s)", msg)
	}
	fmt.Println()
	for _, id := range c.engine.ActiveBackground() {
		fmt.Printf("  background: %s\n", id)
	}
}

func (c *Console) complete(in goprompt.Document) ([]goprompt.Suggest, pstrings.RuneNumber, pstrings.RuneNumber) {
	end := in.CurrentRuneIndex()
	w := in.GetWordBeforeCursor()
	start := end - pstrings.RuneCountInString(w)
	return goprompt.FilterHasPrefix(commands, w, true), start, end
}
