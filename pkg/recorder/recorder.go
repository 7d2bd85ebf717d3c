// Package recorder buffers conditioned samples in memory and periodically
// appends them to a CSV file.
package recorder

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/itohio/goaqua/pkg/channel"
	"github.com/itohio/goaqua/pkg/sample"
)

// TimestampLayout is the layout of the timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// DefaultInterval is how often buffered records are written by Run.
const DefaultInterval = 5 * time.Minute

// Header returns the CSV column names.
func Header() []string {
	header := []string{"timestamp"}
	for _, q := range channel.Quantities {
		header = append(header, q.String()+"_raw")
	}
	for _, q := range channel.Quantities {
		header = append(header, q.String())
	}
	for _, q := range channel.Quantities {
		header = append(header, q.String()+"_filtered")
	}
	return header
}

// Recorder appends samples to a CSV file in batches.
type Recorder struct {
	file     string
	interval time.Duration

	mu      sync.Mutex
	records []sample.Sample

	// output wraps the opened file; nil writes to the file directly.
	output func(f *os.File) io.Writer
}

// New creates a recorder writing to file every interval.
func New(file string, interval time.Duration) *Recorder {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Recorder{
		file:     file,
		interval: interval,
	}
}

// Add buffers a sample.
func (r *Recorder) Add(s sample.Sample) {
	r.mu.Lock()
	r.records = append(r.records, s)
	r.mu.Unlock()
}

// Len returns the number of buffered samples.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Flush appends the buffered samples to the file and clears the buffer.
// The header is written only when the file is new or empty. On error the
// file is truncated back to its size before the flush and the samples stay
// buffered for the next attempt, so no row is written twice.
func (r *Recorder) Flush() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) == 0 {
		log.Debug("recorder: no new records to save")
		return 0, nil
	}

	var size int64
	if fi, err := os.Stat(r.file); err == nil {
		size = fi.Size()
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("failed to stat %s: %w", r.file, err)
	}

	f, err := os.OpenFile(r.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", r.file, err)
	}

	if err := r.write(f, size == 0); err != nil {
		if terr := f.Truncate(size); terr != nil {
			log.Errorf("recorder: failed to roll back %s: %v", r.file, terr)
		}
		f.Close()
		return 0, fmt.Errorf("failed to write %s: %w", r.file, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to close %s: %w", r.file, err)
	}

	n := len(r.records)
	logSummary(r.file, r.records)
	r.records = r.records[:0]

	return n, nil
}

func (r *Recorder) write(f *os.File, header bool) error {
	var out io.Writer = f
	if r.output != nil {
		out = r.output(f)
	}

	w := csv.NewWriter(out)
	if header {
		if err := w.Write(Header()); err != nil {
			return err
		}
	}
	for _, s := range r.records {
		if err := w.Write(row(s)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Run buffers samples from in and flushes them every interval. It flushes
// once more and returns when in is closed or ctx is cancelled.
func (r *Recorder) Run(ctx context.Context, in <-chan sample.Sample) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case s, ok := <-in:
			if !ok {
				return r.final()
			}
			r.Add(s)

		case <-ticker.C:
			if _, err := r.Flush(); err != nil {
				log.Errorf("recorder: %v", err)
			}

		case <-ctx.Done():
			return r.final()
		}
	}
}

func (r *Recorder) final() error {
	log.Info("recorder: saving final records")
	_, err := r.Flush()
	return err
}

func row(s sample.Sample) []string {
	out := make([]string, 0, 1+3*channel.NumQuantities)
	out = append(out, s.Timestamp.Format(TimestampLayout))
	for _, v := range s.Raw {
		out = append(out, strconv.FormatUint(uint64(v), 10))
	}
	for _, v := range s.Calibrated {
		out = append(out, formatValue(v))
	}
	for _, v := range s.Filtered {
		out = append(out, formatValue(v))
	}
	return out
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Summary holds the mean and standard deviation of one quantity's filtered
// values over a batch.
type Summary struct {
	Quantity channel.Quantity
	Mean     float64
	StdDev   float64
}

// Summarize computes per-quantity statistics of the filtered values.
func Summarize(records []sample.Sample) []Summary {
	if len(records) == 0 {
		return nil
	}

	values := make([]float64, len(records))
	out := make([]Summary, 0, channel.NumQuantities)
	for _, q := range channel.Quantities {
		for i, s := range records {
			values[i] = s.Filtered[q]
		}
		mean, std := stat.MeanStdDev(values, nil)
		out = append(out, Summary{Quantity: q, Mean: mean, StdDev: std})
	}
	return out
}

func logSummary(file string, records []sample.Sample) {
	fields := log.Fields{"file": file, "records": len(records)}
	for _, s := range Summarize(records) {
		fields[s.Quantity.String()] = fmt.Sprintf("%.3f±%.3f", s.Mean, s.StdDev)
	}
	log.WithFields(fields).Info("recorder: saved records")
}
