package indicator

import (
	"sync"
	"time"

	"trackerd/internal/logging"
)

// driver is the digital output behind the LED. Platform backends live in
// gpio_linux.go; tests substitute their own.
type driver interface {
	set(v int) error
	Close() error
}

// Overridable in tests to avoid real delays.
var sleep = time.Sleep

// LED drives a single GPIO-backed status LED. A pattern runs on its own
// goroutine; On, Off and a new Pattern cancel whatever is still blinking.
type LED struct {
	log logging.Logger

	mu   sync.Mutex
	drv  driver
	stop chan struct{}
	wg   sync.WaitGroup
}

// New opens the GPIO line and returns an LED driving it. chip may be empty
// to search all GPIO chips for the line.
func New(chip string, pin int, log logging.Logger) (*LED, error) {
	drv, err := openDriverFn(chip, pin)
	if err != nil {
		return nil, err
	}
	return &LED{log: log, drv: drv}, nil
}

func (l *LED) set(v int) {
	if err := l.drv.set(v); err != nil {
		l.log.Debugf("led set %d: %v", v, err)
	}
}

// cancelPattern stops a running pattern. Callers hold l.mu.
func (l *LED) cancelPattern() {
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
}

func (l *LED) On() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelPattern()
	l.set(1)
}

func (l *LED) Off() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelPattern()
	l.set(0)
}

func (l *LED) Pattern(count int, period, duty time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelPattern()
	stop := make(chan struct{})
	l.stop = stop
	l.wg.Add(1)
	go l.runPattern(stop, count, period, duty)
}

func (l *LED) runPattern(stop chan struct{}, count int, period, duty time.Duration) {
	defer l.wg.Done()
	for i := 0; i < count; i++ {
		if !l.patternSet(stop, 1) {
			return
		}
		sleep(duty)
		if !l.patternSet(stop, 0) {
			return
		}
		if off := period - duty; off > 0 {
			sleep(off)
		}
	}
}

// patternSet writes v unless the pattern was cancelled. Taking l.mu here
// keeps a cancelled pattern from clobbering a state set by On or Off.
func (l *LED) patternSet(stop chan struct{}, v int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-stop:
		return false
	default:
	}
	l.set(v)
	return true
}

// Close cancels any pattern, waits for it to wind down and turns the LED off
// before releasing the line.
func (l *LED) Close() error {
	l.mu.Lock()
	l.cancelPattern()
	l.mu.Unlock()
	l.wg.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.drv == nil {
		return nil
	}
	l.set(0)
	err := l.drv.Close()
	l.drv = nil
	return err
}
