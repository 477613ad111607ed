package indicator

import (
	"errors"
	"sync"
	"testing"
	"time"

	"trackerd/internal/logging"
)

type fakeDriver struct {
	mu     sync.Mutex
	sets   []int
	setErr error
	closed bool
}

func (d *fakeDriver) set(v int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.setErr != nil {
		return d.setErr
	}
	d.sets = append(d.sets, v)
	return nil
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDriver) values() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.sets...)
}

func stubSleep(t *testing.T, fn func(time.Duration)) {
	t.Helper()
	prev := sleep
	sleep = fn
	t.Cleanup(func() { sleep = prev })
}

func TestNew_UsesOpenDriver(t *testing.T) {
	fd := &fakeDriver{}
	var gotChip string
	var gotPin int
	prev := openDriverFn
	openDriverFn = func(chip string, pin int) (driver, error) {
		gotChip, gotPin = chip, pin
		return fd, nil
	}
	t.Cleanup(func() { openDriverFn = prev })

	l, err := New("/dev/gpiochip0", 18, logging.NewRecorder())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if gotChip != "/dev/gpiochip0" || gotPin != 18 {
		t.Fatalf("opened chip=%q pin=%d want /dev/gpiochip0 18", gotChip, gotPin)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !fd.closed {
		t.Fatalf("driver not closed")
	}
}

func TestNew_OpenFailure(t *testing.T) {
	openErr := errors.New("no such line")
	prev := openDriverFn
	openDriverFn = func(chip string, pin int) (driver, error) {
		return nil, openErr
	}
	t.Cleanup(func() { openDriverFn = prev })

	if _, err := New("", 18, logging.NewRecorder()); !errors.Is(err, openErr) {
		t.Fatalf("err=%v want %v", err, openErr)
	}
}

func TestLED_OnOff(t *testing.T) {
	fd := &fakeDriver{}
	l := &LED{log: logging.NewRecorder(), drv: fd}

	l.On()
	l.Off()

	if got := fd.values(); len(got) != 2 || got[0] != 1 || got[1] != 0 {
		t.Fatalf("sets=%v want [1 0]", got)
	}
}

func TestLED_PatternBlinksCountTimes(t *testing.T) {
	fd := &fakeDriver{}
	l := &LED{log: logging.NewRecorder(), drv: fd}

	var mu sync.Mutex
	var slept []time.Duration
	stubSleep(t, func(d time.Duration) {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
	})

	l.Pattern(3, 315*time.Millisecond, 15*time.Millisecond)
	l.wg.Wait()

	want := []int{1, 0, 1, 0, 1, 0}
	got := fd.values()
	if len(got) != len(want) {
		t.Fatalf("sets=%v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sets=%v want %v", got, want)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(slept) != 6 {
		t.Fatalf("sleeps=%d want 6", len(slept))
	}
	for i, d := range slept {
		wantD := 15 * time.Millisecond
		if i%2 == 1 {
			wantD = 300 * time.Millisecond
		}
		if d != wantD {
			t.Fatalf("sleep[%d]=%v want %v", i, d, wantD)
		}
	}
}

func TestLED_OnCancelsPattern(t *testing.T) {
	fd := &fakeDriver{}
	l := &LED{log: logging.NewRecorder(), drv: fd}

	gate := make(chan struct{})
	stubSleep(t, func(time.Duration) { <-gate })

	l.Pattern(100, 10*time.Millisecond, 2*time.Millisecond)
	for len(fd.values()) == 0 {
		time.Sleep(time.Millisecond)
	}
	l.On()
	close(gate)
	l.wg.Wait()

	got := fd.values()
	if got[len(got)-1] != 1 {
		t.Fatalf("sets=%v want LED left on after cancel", got)
	}
}

func TestLED_CloseTurnsOff(t *testing.T) {
	fd := &fakeDriver{}
	l := &LED{log: logging.NewRecorder(), drv: fd}

	l.On()
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	got := fd.values()
	if got[len(got)-1] != 0 {
		t.Fatalf("sets=%v want trailing 0", got)
	}
	if !fd.closed {
		t.Fatalf("driver not closed")
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
}

func TestLED_SetErrorOnlyLogs(t *testing.T) {
	rec := logging.NewRecorder()
	fd := &fakeDriver{setErr: errors.New("line gone")}
	l := &LED{log: rec, drv: fd}

	l.On()
	l.Off()

	if !rec.Has("debug", "led set") {
		t.Fatalf("expected debug log for failed set, got %+v", rec.Entries())
	}
}
