// Package indicator drives the tracker's status LED. Calibration uses it to
// signal phase changes to the person holding the device, so every operation
// is best-effort: a broken LED never blocks or fails the sensor core.
package indicator

import (
	"fmt"
	"sync"
	"time"
)

type Indicator interface {
	// On lights the LED until Off or a new pattern replaces it.
	On()
	// Off clears the LED and cancels a running pattern.
	Off()
	// Pattern blinks the LED count times, lit for duty out of each period.
	// It returns immediately; the blinking runs in the background.
	Pattern(count int, period, duty time.Duration)
	Close() error
}

// Nop satisfies Indicator when no LED is configured.
type Nop struct{}

func (Nop) On()                                       {}
func (Nop) Off()                                      {}
func (Nop) Pattern(int, time.Duration, time.Duration) {}
func (Nop) Close() error                              { return nil }

// Event is one recorded Indicator call.
type Event struct {
	Kind   string // "on", "off" or "pattern"
	Count  int
	Period time.Duration
	Duty   time.Duration
}

// Recorder captures Indicator calls for assertions in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) On()  { r.add(Event{Kind: "on"}) }
func (r *Recorder) Off() { r.add(Event{Kind: "off"}) }

func (r *Recorder) Pattern(count int, period, duty time.Duration) {
	r.add(Event{Kind: "pattern", Count: count, Period: period, Duty: duty})
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns just the event kinds, in order.
func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func (e Event) String() string {
	if e.Kind == "pattern" {
		return fmt.Sprintf("pattern(%d,%v,%v)", e.Count, e.Period, e.Duty)
	}
	return e.Kind
}
