package tasks

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atmoslab/gspc/internal/schedule"
)

// Factory builds a fresh Task for one entry in a loaded task list. data is
// the optional second CSV field (e.g. an SSV position), empty if the line
// carried only a name.
type Factory func(env *Env, data string) (schedule.Task, error)

// Registry maps task-list names to the Factory that builds them, the Go
// equivalent of gspc/tasks/__init__.py's known_tasks table that
// internal/settings consults to validate and load a task-list file.
var Registry = map[string]Factory{
	"Flask":    flaskFactory,
	"Tank":     tankFactory,
	"Zero":     zeroFactory,
	"PFPFlask": pfpFlaskFactory,
}

// KnownTaskNames lists the registry's keys for diagnostics.
func KnownTaskNames() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	return names
}

func flaskFactory(env *Env, data string) (schedule.Task, error) {
	ssv, err := parseSSV(data)
	if err != nil {
		return nil, fmt.Errorf("flask task: %w", err)
	}
	return NewFlaskTask(env, ssv), nil
}

func tankFactory(env *Env, data string) (schedule.Task, error) {
	ssv, err := parseSSV(data)
	if err != nil {
		return nil, fmt.Errorf("tank task: %w", err)
	}
	return NewTankTask(env, ssv), nil
}

func zeroFactory(env *Env, data string) (schedule.Task, error) {
	return NewZeroTask(env), nil
}

func pfpFlaskFactory(env *Env, data string) (schedule.Task, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 2 {
		return nil, fmt.Errorf("pfpflask task: expected \"ssv:pfpSSV\", got %q", data)
	}
	ssv, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("pfpflask task: %w", err)
	}
	pfpSSV, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("pfpflask task: %w", err)
	}
	return NewPFPFlaskTask(env, ssv, pfpSSV), nil
}

func parseSSV(data string) (int, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return 0, fmt.Errorf("missing SSV position")
	}
	return strconv.Atoi(data)
}
