package cycledata

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// DataColumns is the fixed, ordered column set of the `.xl` output file.
var DataColumns = []string{
	"Filename", "Date", "Time", "Sample#", "SSVPos", "SampType",
	"NetPressure", "InitP", "FinalP", "InitP_RSD", "FinalP_RSD",
	"LowFlow?", "cryocount", "loflocount", "LastFlow", "LastVFlow",
	"pfpFlask", "pfpOPEN", "pfpCLOSE", "PRESS#1", "PRESS#2", "PRESS#3",
}

// Record is one row of the data output file: the fixed column set named in
// the external interface, accumulated field by field as a cycle proceeds
// and flushed once, on Finish.
//
// Grounded on gspc/tasks/sample.py's Data dataclass (record_fields/finish)
// and its pfpflask.py PFPData subclass (the pfp* columns).
type Record struct {
	sink     *Sink
	cycleID  uuid.UUID
	began    time.Time
	finished bool
	aborted  bool

	values map[string]string
}

// NewRecord begins accumulating a row for filename, stamped with the
// moment the cycle began.
func NewRecord(sink *Sink, filename string) *Record {
	r := &Record{
		sink:    sink,
		cycleID: uuid.New(),
		began:   time.Now(),
		values:  make(map[string]string, len(DataColumns)),
	}
	for _, c := range DataColumns {
		r.values[c] = none
	}
	r.values["Filename"] = filename
	r.values["Date"] = r.began.Format("2006-01-02")
	r.values["Time"] = r.began.Format("15:04:05")
	return r
}

// CycleID is the correlation id logged alongside every message this cycle
// produces.
func (r *Record) CycleID() uuid.UUID { return r.cycleID }

// Set overwrites a named column with a literal string (used for the
// non-numeric columns: Sample#, SSVPos, SampType, LowFlow?, pfpFlask).
func (r *Record) Set(column, value string) {
	if _, ok := r.values[column]; !ok {
		return
	}
	r.values[column] = value
}

// SetFloat writes a fixed-precision numeric column, or the NONE sentinel
// for NaN.
func (r *Record) SetFloat(column string, v float64, decimals int) {
	r.Set(column, FormatFloat(v, decimals))
}

// SetScientific writes a numeric column in scientific notation (used for
// the *_RSD columns).
func (r *Record) SetScientific(column string, v float64) {
	r.Set(column, FormatScientific(v))
}

// SetInt writes an integer-valued column (cryocount, loflocount).
func (r *Record) SetInt(column string, v int) {
	r.Set(column, intToString(v))
}

// Finish writes the accumulated row, preceded by the header if this is the
// first row written to a newly created data file. Finish/Abort are each
// idempotent and mutually exclusive.
func (r *Record) Finish() error {
	if r.finished || r.aborted {
		return nil
	}
	r.finished = true
	fields := make([]string, len(DataColumns))
	for i, c := range DataColumns {
		fields[i] = r.values[c]
	}
	return r.sink.WriteRecord(DataColumns, fields)
}

// Abort marks the record as not to be written, logging the banner line
// sample.py writes to the cycle's log file ("SAMPLING ABORTED: <msg>").
func (r *Record) Abort(w interface{ Write([]byte) (int, error) }, msg string) {
	if r.finished || r.aborted {
		return
	}
	r.aborted = true
	_, _ = w.Write([]byte("SAMPLING ABORTED: " + msg + "\n"))
}

func intToString(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Mean and Stdev implement the plain two-pass statistics sample.py computes
// via statistics.mean/statistics.stdev for a pressure-measurement window.
func Mean(samples []float64) float64 {
	if len(samples) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}

func Stdev(samples []float64) float64 {
	if len(samples) < 2 {
		return math.NaN()
	}
	m := Mean(samples)
	var sumSq float64
	for _, v := range samples {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(samples)-1))
}

// RelativeStdev is the RSD sample.py records alongside each pressure mean.
func RelativeStdev(samples []float64) float64 {
	m := Mean(samples)
	if m == 0 {
		return math.NaN()
	}
	return Stdev(samples) / m
}
