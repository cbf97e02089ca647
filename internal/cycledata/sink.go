// Package cycledata implements the Cycle Data Sink: the process-wide
// output module that appends one tab-delimited row per completed cycle to
// a data file, and forwards every structured log line to a matching log
// file, both named after the configured output base name.
//
// Grounded on gspc/output.py's module-level _log_file/_data_file pair and
// its begin_cycle/complete_cycle/abort_cycle functions; re-expressed as an
// explicit object passed around rather than module globals (see the
// component design's Sink-as-explicit-object note).
package cycledata

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const none = "NONE"

// Sink serializes every write to the log file and the data file behind one
// mutex, matching output.py's single global lock (concurrent cycles never
// run, but background tasks within a cycle may log from other goroutines).
type Sink struct {
	mu sync.Mutex

	dir        string
	outputName string

	logFile  *os.File
	dataFile *os.File

	dataHeader       []string
	dataHeaderWritten bool
}

// NewSink constructs a Sink rooted at dir, with no output name set yet
// (SetOutputName must be called, or CurrentFileName returns "(unset)").
func NewSink(dir string) *Sink {
	return &Sink{dir: dir}
}

// SetOutputName changes the base name used for the log and data files. A
// new name takes effect the next time a file is opened; already-open files
// are closed first.
func (s *Sink) SetOutputName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outputName == name {
		return nil
	}
	if err := s.closeLocked(); err != nil {
		return err
	}
	s.outputName = name
	s.dataHeaderWritten = false
	return nil
}

// CurrentFileName reports the base name currently in effect.
func (s *Sink) CurrentFileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outputName == "" {
		return "(unset)"
	}
	return s.outputName
}

func (s *Sink) closeLocked() error {
	var err error
	if s.logFile != nil {
		err = s.logFile.Close()
		s.logFile = nil
	}
	if s.dataFile != nil {
		if cerr := s.dataFile.Close(); cerr != nil && err == nil {
			err = cerr
		}
		s.dataFile = nil
	}
	return err
}

// Close releases any open file handles.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Sink) openLogLocked() (*os.File, error) {
	if s.logFile != nil {
		return s.logFile, nil
	}
	if s.outputName == "" {
		return nil, fmt.Errorf("cycledata: output name not set")
	}
	f, err := os.OpenFile(filepath.Join(s.dir, s.outputName+".txt"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	s.logFile = f
	return f, nil
}

func (s *Sink) openDataLocked() (*os.File, error) {
	if s.dataFile != nil {
		return s.dataFile, nil
	}
	if s.outputName == "" {
		return nil, fmt.Errorf("cycledata: output name not set")
	}
	path := filepath.Join(s.dir, s.outputName+".xl")
	_, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	s.dataFile = f
	s.dataHeaderWritten = statErr == nil
	return f, nil
}

// Write implements io.Writer, appending raw log lines to the log file. It
// is handed to the structured logger as one of its output sinks.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.openLogLocked()
	if err != nil {
		// No output name configured yet (e.g. before a cycle has ever
		// run): silently drop rather than fail the whole logger.
		return len(p), nil
	}
	return f.Write(p)
}

// writeHeaderLocked writes the column header exactly once per data file,
// skipping it if the file already existed (so repeated cycles append to
// the same sheet without duplicate headers).
func (s *Sink) writeHeaderLocked(header []string) error {
	if s.dataHeaderWritten {
		return nil
	}
	f, err := s.openDataLocked()
	if err != nil {
		return err
	}
	if s.dataHeaderWritten {
		return nil
	}
	if _, err := fmt.Fprintln(f, strings.Join(header, "\t")); err != nil {
		return err
	}
	s.dataHeaderWritten = true
	return nil
}

// WriteRecord appends one tab-delimited row, writing the header first if
// this is the first row written to a newly created file.
func (s *Sink) WriteRecord(header, fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeHeaderLocked(header); err != nil {
		return err
	}
	f, err := s.openDataLocked()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, strings.Join(fields, "\t"))
	return err
}

// FormatFloat renders v to the given number of decimals, or the NONE
// sentinel if v is NaN (the convention sample.py uses for a reading that
// was never taken).
func FormatFloat(v float64, decimals int) string {
	if isNaN(v) {
		return none
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// FormatScientific renders v in scientific notation, as sample.py does for
// relative standard deviations, or NONE if v is NaN.
func FormatScientific(v float64) string {
	if isNaN(v) {
		return none
	}
	return strconv.FormatFloat(v, 'e', 3, 64)
}

func isNaN(v float64) bool { return v != v }

// Timestamp formats t as one combined date and time string. A data row's
// Date and Time columns are formatted separately, by NewRecord.
func Timestamp(t time.Time) string { return t.Format("2006-01-02 15:04:05") }
