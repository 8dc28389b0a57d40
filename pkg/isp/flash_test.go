package isp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hubisp/glhub/pkg/devices"
)

func enteredDevice(t *testing.T, f *fakeHub) *Device {
	t.Helper()
	d := newTestDevice(t, f)
	if err := d.Enter(); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	return d
}

func TestFlashRoundTrip(t *testing.T) {
	f := newFakeHub()
	for i := range f.flash {
		f.flash[i] = 0
	}
	d := enteredDevice(t, f)
	ctx := testContext(t)

	if err := d.Erase(ctx, 0x18000, 0x2000, nil); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if want, got := []uint16{0x0181, 0x0191}, f.erases; fmt.Sprint(want) != fmt.Sprint(got) {
		t.Errorf("erase commands: wanted %04x, got %04x", want, got)
	}
	if f.flash[0x17fff] != 0 || f.flash[0x18000] != 0xff || f.flash[0x19fff] != 0xff || f.flash[0x1a000] != 0 {
		t.Errorf("wrong range erased")
	}

	data := make([]byte, 0x1234)
	for i := range data {
		data[i] = byte(i * 13)
	}
	var reports []uint32
	if err := d.Write(ctx, 0x18000, data, func(done, total uint32) {
		if total != uint32(len(data)) {
			t.Errorf("progress total: got %d", total)
		}
		reports = append(reports, done)
	}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// 0x40 byte transfers.
	if want, got := (len(data)+0x3f)/0x40, len(reports); want != got {
		t.Errorf("wanted %d progress reports, got %d", want, got)
	}
	if reports[len(reports)-1] != uint32(len(data)) {
		t.Errorf("progress did not reach the end: %d", reports[len(reports)-1])
	}

	got, err := d.Read(ctx, 0x18000, uint32(len(data)), nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("read back differs")
	}

	empty, err := d.Read(ctx, 0x18000, 0, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty read: %v, %d bytes", err, len(empty))
	}
}

func TestWriteAcrossBlocks(t *testing.T) {
	f := newFakeHub()
	d := enteredDevice(t, f)
	data := bytes.Repeat([]byte{0xa5}, 0x100)
	if err := d.Write(testContext(t), 0xff80, data, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.Equal(f.flash[0xff80:0x10080], data) {
		t.Errorf("data not written across the block boundary")
	}
}

func TestFlashNotInISP(t *testing.T) {
	d := newTestDevice(t, newFakeHub())
	if _, err := d.Read(testContext(t), 0, 0x10, nil); err == nil {
		t.Errorf("Read outside of ISP mode should fail")
	}
	if err := d.Erase(testContext(t), 0, 0x1000, nil); err == nil {
		t.Errorf("Erase outside of ISP mode should fail")
	}
}

func TestFlashErrors(t *testing.T) {
	f := newFakeHub()
	d := enteredDevice(t, f)

	f.fail = func(rType, request uint8, val, idx uint16) error {
		if rType == devices.RequestTypeVendorIn && idx == 0x0100 {
			return fmt.Errorf("LIBUSB_ERROR_IO")
		}
		return nil
	}
	_, err := d.Read(testContext(t), 0x20000, 0x200, nil)
	if !errors.Is(err, devices.ErrBus) {
		t.Fatalf("wanted ErrBus, got %v", err)
	}
	if !strings.Contains(err.Error(), "0x020100") {
		t.Errorf("error does not name the address: %v", err)
	}
	f.fail = nil

	// Flash stays busy for longer than the erase budget.
	f.busy = bytes.Repeat([]byte{1}, 1000)
	f.statusReads = 0
	err = d.Erase(testContext(t), 0, 0x1000, nil)
	if !errors.Is(err, devices.ErrTimedOut) {
		t.Fatalf("wanted ErrTimedOut, got %v", err)
	}
	if want, got := 266, f.statusReads; want != got {
		t.Errorf("wanted %d status reads, got %d", want, got)
	}
	f.busy = nil

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Write(ctx, 0, []byte{1, 2, 3}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("wanted context.Canceled, got %v", err)
	}
}

func TestDetectFlash(t *testing.T) {
	f := newFakeHub()
	d := enteredDevice(t, f)
	id, p, err := d.detectFlash()
	if err != nil {
		t.Fatalf("detectFlash: %v", err)
	}
	if want, got := "C84013", id.String(); want != got {
		t.Errorf("ID: wanted %s, got %s", want, got)
	}
	if p.Size != fakeFlashSize {
		t.Errorf("size: got 0x%x", p.Size)
	}

	f.flashID = [3]byte{0x12, 0x34, 0x56}
	if _, _, err := d.detectFlash(); !errors.Is(err, devices.ErrNotSupported) {
		t.Errorf("unknown flash: wanted ErrNotSupported, got %v", err)
	}
}
