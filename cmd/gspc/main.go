// Command gspc drives the gas-sampling process controller: either one
// task-list file run unattended, or the interactive console.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/atmoslab/gspc/internal/console"
	"github.com/atmoslab/gspc/internal/cycledata"
	"github.com/atmoslab/gspc/internal/hw"
	"github.com/atmoslab/gspc/internal/logging"
	"github.com/atmoslab/gspc/internal/schedule"
	"github.com/atmoslab/gspc/internal/settings"
	"github.com/atmoslab/gspc/internal/tasks"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug-level logging")
	simulate := flag.Bool("simulate", false, "run against the simulated instrument instead of real hardware")
	configPath := flag.String("config", defaultConfigPath(), "path to the TOML settings file")
	taskListPath := flag.String("task-list", "", "load and run one task-list file non-interactively, then exit")
	flag.Parse()

	cfg, err := settings.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gspc: loading settings: %v\n", err)
		os.Exit(1)
	}

	var iface hw.Interface
	if *simulate {
		iface = hw.NewSimulated()
	} else {
		iface = hw.NewInstrument()
	}

	dir, base := ".", ""
	if cfg.OutputName != "" {
		dir, base = filepath.Split(cfg.OutputName)
		if dir == "" {
			dir = "."
		}
	}
	sink := cycledata.NewSink(dir)
	if base != "" {
		if err := sink.SetOutputName(base); err != nil {
			fmt.Fprintf(os.Stderr, "gspc: setting output name: %v\n", err)
			os.Exit(1)
		}
	}
	defer sink.Close()

	log := logging.New(*debug, sink)

	env := &tasks.Env{Sink: sink, Log: log}

	var paths []string
	if *taskListPath != "" {
		paths = []string{*taskListPath}
	} else {
		paths = cfg.TaskFiles
	}

	taskList, err := loadTaskLists(paths, env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gspc: %v\n", err)
		os.Exit(1)
	}

	engine := schedule.New(iface, taskList, nil)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Interactive console: run the schedule in the background, driven by
	// the user's pause/resume/abort commands at the prompt.
	if *taskListPath == "" {
		done := make(chan struct{})
		go func() {
			defer close(done)
			if _, err := engine.Run(ctx); err != nil {
				log.Err().Err(err).Log("schedule run ended in error")
			}
		}()
		console.New(engine, log).Run()
		cancel()
		<-done
		return
	}

	// --task-list: run once, unattended, then exit.
	if _, err := engine.Run(ctx); err != nil {
		log.Err().Err(err).Log("schedule run ended in error")
		os.Exit(1)
	}
}

func loadTaskLists(paths []string, env *tasks.Env) ([]schedule.Task, error) {
	var taskList []schedule.Task
	for _, path := range paths {
		entries, err := settings.LoadTaskList(path, func(name string) bool {
			_, ok := tasks.Registry[name]
			return ok
		})
		if err != nil {
			return nil, fmt.Errorf("loading task list %s: %w", path, err)
		}
		for _, e := range entries {
			t, err := tasks.Registry[e.Name](env, e.Data)
			if err != nil {
				return nil, fmt.Errorf("building task %q from %s: %w", e.Name, path, err)
			}
			taskList = append(taskList, t)
		}
	}
	return taskList, nil
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "gspc.toml"
	}
	return filepath.Join(dir, "gspc", "gspc.toml")
}

