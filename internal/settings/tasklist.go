package settings

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// TaskEntry is one line of a task-list file: a name that must resolve
// against tasks.Registry, plus its optional data field.
type TaskEntry struct {
	Name string
	Data string
}

// LoadTaskList reads a task-list file: lines of CSV with one or two
// fields, `name[,data]`. Blank lines, and lines whose first field is empty
// after trimming, are ignored. known reports whether a name is valid;
// encountering an unknown name rejects the whole file, matching
// gspc/util.py's load_task_list, which aborts the load on the first bad
// entry rather than skipping it.
func LoadTaskList(path string, known func(name string) bool) ([]TaskEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var entries []TaskEntry
	lineNum := 0
	for {
		record, err := r.Read()
		lineNum++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("task list %s: line %d: %w", path, lineNum, err)
		}
		if len(record) == 0 {
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		if !known(name) {
			return nil, fmt.Errorf("task list %s: line %d: unknown task %q", path, lineNum, name)
		}
		data := ""
		if len(record) > 1 {
			data = strings.TrimSpace(record[1])
		}
		entries = append(entries, TaskEntry{Name: name, Data: data})
	}
	return entries, nil
}

// SaveTaskList writes entries back to path, one per line, the task's data
// comma-joined after its name when present.
func SaveTaskList(path string, entries []TaskEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, e := range entries {
		record := []string{e.Name}
		if e.Data != "" {
			record = append(record, e.Data)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
