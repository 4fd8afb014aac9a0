// Package telemetry holds the live trend data of the plant. Every recorded
// value keeps multiple series of 601 samples, one series storing each sample,
// every second, every fifth and so on, so trends from one minute up to about
// fifty minutes can be drawn from the same recorder without resampling.
//
// Series arrays put the newest sample at index 0; time axes have 0.0 at
// index 0 and negative values after that, referring to past samples.
package telemetry

import (
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
)

// SeriesLength is the number of samples kept per resolution.
const SeriesLength = 601

// Dividers are the supported series resolutions: a divider n stores every
// n-th sample.
var Dividers = []int{1, 2, 5, 10, 20, 50}

// series keeps the per-resolution histories of one value. Unset positions
// hold NaN so consumers can tell apart "no data yet" from a real zero.
type series struct {
	latest float64

	countdown map[int]int
	values    map[int][]float64
}

func newSeries() *series {
	s := &series{
		countdown: make(map[int]int, len(Dividers)),
		values:    make(map[int][]float64, len(Dividers)),
	}
	for _, div := range Dividers {
		s.countdown[div] = 1
		buf := make([]float64, SeriesLength)
		for i := range buf {
			buf[i] = math.NaN()
		}
		s.values[div] = buf
	}
	return s
}

// shiftInsert moves every sample one position toward the past and stores v
// as the newest sample.
func shiftInsert(buf []float64, v float64) {
	copy(buf[1:], buf[:len(buf)-1])
	buf[0] = v
}

func (s *series) record(v float64) {
	s.latest = v
	for _, div := range Dividers {
		s.countdown[div]--
		if s.countdown[div] <= 0 {
			shiftInsert(s.values[div], v)
			s.countdown[div] = div
		}
	}
}

// Recorder receives named values and flags once per plant step and keeps
// their histories. All methods are safe for concurrent use; the plant loop
// writes while API readers snapshot.
type Recorder struct {
	mu       sync.RWMutex
	stepTime float64
	values   map[string]*series
	flags    map[string]bool
}

// NewRecorder creates a recorder for the given step time in seconds.
func NewRecorder(stepTime float64) *Recorder {
	if stepTime <= 0 {
		stepTime = 0.1
	}
	return &Recorder{
		stepTime: stepTime,
		values:   make(map[string]*series),
		flags:    make(map[string]bool),
	}
}

// StepTime returns the configured sample interval in seconds.
func (r *Recorder) StepTime() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stepTime
}

// RecordValue stores a sample for the named value, inserting it into every
// resolution that is due.
func (r *Recorder) RecordValue(name string, v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.values[name]
	if !ok {
		s = newSeries()
		r.values[name] = s
		log.Printf("telemetry: new value %s", name)
	}
	s.record(v)
}

// RecordFlag stores the latest state of the named flag.
func (r *Recorder) RecordFlag(name string, v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.flags[name]; !ok {
		log.Printf("telemetry: new flag %s", name)
	}
	r.flags[name] = v
}

// Latest returns the newest sample of the named value.
func (r *Recorder) Latest(name string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.values[name]
	if !ok {
		return 0, false
	}
	return s.latest, true
}

// Flag returns the latest state of the named flag.
func (r *Recorder) Flag(name string) (bool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.flags[name]
	return v, ok
}

// Names returns all recorded value names, sorted.
func (r *Recorder) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.values))
	for name := range r.values {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// FlagNames returns all recorded flag names, sorted.
func (r *Recorder) FlagNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.flags))
	for name := range r.flags {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LatestValues returns a snapshot of all newest samples.
func (r *Recorder) LatestValues() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]float64, len(r.values))
	for name, s := range r.values {
		out[name] = s.latest
	}
	return out
}

// LatestFlags returns a snapshot of all flag states.
func (r *Recorder) LatestFlags() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(r.flags))
	for name, v := range r.flags {
		out[name] = v
	}
	return out
}

// Series returns a copy of the named value's history at the given divider,
// newest sample at index 0. Positions never written hold NaN.
func (r *Recorder) Series(name string, div int) ([]float64, error) {
	if !validDivider(div) {
		return nil, fmt.Errorf("telemetry: unsupported divider %d", div)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.values[name]
	if !ok {
		return nil, fmt.Errorf("telemetry: unknown value %s", name)
	}
	out := make([]float64, SeriesLength)
	copy(out, s.values[div])
	return out, nil
}

// TimeAxis returns the time axis for the given divider in seconds: 0.0 at
// index 0, negative toward the past.
func (r *Recorder) TimeAxis(div int) ([]float64, error) {
	return r.timeAxis(div, 1)
}

// TimeAxisMinutes returns the time axis for the given divider in minutes.
func (r *Recorder) TimeAxisMinutes(div int) ([]float64, error) {
	return r.timeAxis(div, 60)
}

// TimeAxisHours returns the time axis for the given divider in hours.
func (r *Recorder) TimeAxisHours(div int) ([]float64, error) {
	return r.timeAxis(div, 3600)
}

func (r *Recorder) timeAxis(div int, unit float64) ([]float64, error) {
	if !validDivider(div) {
		return nil, fmt.Errorf("telemetry: unsupported divider %d", div)
	}
	r.mu.RLock()
	step := r.stepTime
	r.mu.RUnlock()

	out := make([]float64, SeriesLength)
	for i := 1; i < SeriesLength; i++ {
		out[i] = -float64(i) * step * float64(div) / unit
	}
	return out, nil
}

func validDivider(div int) bool {
	for _, d := range Dividers {
		if d == div {
			return true
		}
	}
	return false
}
