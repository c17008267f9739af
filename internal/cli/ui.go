// Package cli renders benchmark progress and results on the terminal: a
// spinner with a progress bar, human-readable durations, result tables and
// the sweep chart.
package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
)

const (
	// ProgressRefreshRate is the spinner and bar refresh period.
	ProgressRefreshRate = 200 * time.Millisecond
	// ProgressBarWidth is the bar width in characters.
	ProgressBarWidth = 40
)

// ProgressUpdate reports the completed fraction of one strategy's runs.
type ProgressUpdate struct {
	// Index identifies the strategy in the benchmark order.
	Index int
	// Value is in [0, 1].
	Value float64
}

// FormatHumanDuration renders d the way the benchmark report prints it:
// "<n> us" below a millisecond, then milliseconds, seconds and minutes with
// two decimals. An hour or more falls back to whole microseconds.
func FormatHumanDuration(d time.Duration) string {
	us := d.Microseconds()
	switch {
	case us < 1e3:
		return fmt.Sprintf("%d us", us)
	case us < 1e6:
		return fmt.Sprintf("%.2f ms", float64(us)/1e3)
	case us < 1e9:
		return fmt.Sprintf("%.2f s", float64(us)/1e6)
	case us < 1e9*60:
		return fmt.Sprintf("%.2f min", float64(us)/1e6/60)
	}
	return fmt.Sprintf("%d us", us)
}

// Spinner abstracts the terminal spinner so DisplayProgress can be tested.
type Spinner interface {
	Start()
	Stop()
	UpdateSuffix(suffix string)
}

type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start()                     { rs.s.Start() }
func (rs *realSpinner) Stop()                      { rs.s.Stop() }
func (rs *realSpinner) UpdateSuffix(suffix string) { rs.s.Suffix = suffix }

var newSpinner = func(options ...spinner.Option) Spinner {
	return &realSpinner{spinner.New(spinner.CharSets[11], ProgressRefreshRate, options...)}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ProgressState tracks per-strategy progress and derives an average and
// an ETA from the elapsed time.
type ProgressState struct {
	progresses []float64
	start      time.Time
}

func NewProgressState(n int) *ProgressState {
	return &ProgressState{progresses: make([]float64, n), start: time.Now()}
}

// Update records value for index; out-of-range indices are ignored.
func (ps *ProgressState) Update(index int, value float64) {
	if index >= 0 && index < len(ps.progresses) {
		ps.progresses[index] = value
	}
}

// Average is the mean progress over all strategies.
func (ps *ProgressState) Average() float64 {
	if len(ps.progresses) == 0 {
		return 0
	}
	var total float64
	for _, p := range ps.progresses {
		total += p
	}
	return total / float64(len(ps.progresses))
}

// ETA extrapolates the remaining time linearly. It is zero until some
// progress has been made.
func (ps *ProgressState) ETA() time.Duration {
	p := ps.Average()
	if p <= 0.001 || p >= 1 {
		return 0
	}
	elapsed := time.Since(ps.start)
	return time.Duration(float64(elapsed) * (1 - p) / p)
}

// FormatETA renders an ETA for the progress line.
func FormatETA(eta time.Duration) string {
	switch {
	case eta <= 0:
		return "calculating..."
	case eta < time.Second:
		return "< 1s"
	case eta < time.Minute:
		return fmt.Sprintf("%ds", int(eta.Seconds()))
	case eta < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(eta.Minutes()), int(eta.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(eta.Hours()), int(eta.Minutes())%60)
}

func progressBar(progress float64, length int) string {
	progress = min(max(progress, 0), 1)
	count := int(progress * float64(length))
	var b strings.Builder
	b.Grow(length * 3)
	for i := 0; i < length; i++ {
		if i < count {
			b.WriteRune('█')
		} else {
			b.WriteRune('░')
		}
	}
	return b.String()
}

// DisplayProgress shows a spinner and the average progress of n strategies
// until progressChan is closed, then prints a final 100% line. It runs in
// its own goroutine and calls wg.Done on return. With n <= 0 it only drains
// the channel.
func DisplayProgress(wg *sync.WaitGroup, progressChan <-chan ProgressUpdate, n int, out io.Writer) {
	defer wg.Done()
	if n <= 0 {
		for range progressChan {
		}
		return
	}

	state := NewProgressState(n)
	label := "Progress"
	if n > 1 {
		label = "Avg progress"
	}
	s := newSpinner(spinner.WithWriter(out))
	s.Start()
	stopped := false
	defer func() {
		if !stopped {
			s.Stop()
		}
	}()

	ticker := time.NewTicker(ProgressRefreshRate)
	defer ticker.Stop()
	for {
		select {
		case update, ok := <-progressChan:
			if !ok {
				s.Stop()
				stopped = true
				fmt.Fprintf(out, "%s: %6.2f%% [%s]\n", label, 100.0, progressBar(1, ProgressBarWidth))
				return
			}
			state.Update(update.Index, update.Value)
		case <-ticker.C:
			avg := state.Average()
			s.UpdateSuffix(fmt.Sprintf(" %s: %6.2f%% [%s] ETA: %s",
				label, avg*100, progressBar(avg, ProgressBarWidth), FormatETA(state.ETA())))
		}
	}
}
