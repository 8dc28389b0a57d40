package isp

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hubisp/glhub/pkg/devices"
)

func TestWaitRegister(t *testing.T) {
	for _, te := range []struct {
		attempts  int
		wantErr   error
		wantReads int
	}{
		{4, nil, 4},
		{3, devices.ErrTimedOut, 3},
		{10, nil, 4},
	} {
		f := newFakeHub()
		f.busy = []uint8{1, 1, 1}
		d := newTestDevice(t, f)
		var sleeps []time.Duration
		d.sleep = func(dur time.Duration) { sleeps = append(sleeps, dur) }

		err := d.waitRegister(statusRegister, 0, te.attempts)
		if !errors.Is(err, te.wantErr) {
			t.Errorf("%d attempts: wanted %v, got %v", te.attempts, te.wantErr, err)
		}
		if f.statusReads != te.wantReads {
			t.Errorf("%d attempts: wanted %d reads, got %d", te.attempts, te.wantReads, f.statusReads)
		}
		if want, got := te.wantReads-1, len(sleeps); want != got {
			t.Errorf("%d attempts: wanted %d sleeps, got %d", te.attempts, want, got)
		}
		for _, s := range sleeps {
			if s != 30*time.Millisecond {
				t.Errorf("slept %v", s)
			}
		}
	}
}

func TestWaitRegisterBusError(t *testing.T) {
	f := newFakeHub()
	f.busy = []uint8{1, 1, 1}
	f.fail = func(rType, request uint8, val, idx uint16) error {
		return fmt.Errorf("LIBUSB_ERROR_PIPE")
	}
	d := newTestDevice(t, f)
	err := d.waitRegister(statusRegister, 0, 5)
	if !errors.Is(err, devices.ErrBus) {
		t.Fatalf("wanted ErrBus, got %v", err)
	}
	if errors.Is(err, devices.ErrTimedOut) {
		t.Errorf("bus error should not be reported as a timeout")
	}
}

func TestAttempts(t *testing.T) {
	c := DefaultConfig()
	if want, got := 266, c.attempts(c.EraseDelay); want != got {
		t.Errorf("erase attempts: wanted %d, got %d", want, got)
	}
	if want, got := 16, c.attempts(c.WriteDelay); want != got {
		t.Errorf("write attempts: wanted %d, got %d", want, got)
	}
	if want, got := 1, c.attempts(time.Millisecond); want != got {
		t.Errorf("short budget: wanted %d, got %d", want, got)
	}
}
