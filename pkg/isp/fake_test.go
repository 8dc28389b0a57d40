package isp

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/hubisp/glhub/pkg/devices"
	"github.com/hubisp/glhub/pkg/firmware"
	"github.com/hubisp/glhub/pkg/toolstring"
)

const fakeFlashSize = 512 * 1024

// fakeHub is an in-memory GL3523 hub with a 512KiB GD25Q40 flash. Writes
// behave like NOR flash: they can only clear bits.
type fakeHub struct {
	cfg     Config
	release uint16
	spec    uint16

	// toolStrings are decoded tool strings, by descriptor index.
	toolStrings map[uint8][]byte
	flash       []byte
	flashID     [3]byte

	// busy are status register values returned before it reads zero. It
	// is consumed by status reads.
	busy        []uint8
	statusReads int

	// stuck bytes ignore writes.
	stuck map[uint32]bool
	// fail is consulted before every transfer.
	fail func(rType, request uint8, val, idx uint16) error

	switches   []uint16
	erases     []uint16
	authStart  uint8
	authEnd    uint8
	authChecks int
	// authRelease, if set, replaces release when checking authentication
	// responses.
	authRelease uint16
	timeout     time.Duration
}

func staticToolString(icType string) []byte {
	s := &toolstring.Static{
		ToolStringVersion:      toolstring.VersionVendorSupport,
		MaskProjectCode:        "GLHB",
		MaskProjectHardware:    "1",
		MaskProjectFirmware:    "01",
		MaskProjectICType:      icType,
		RunningProjectCode:     "GLHB",
		RunningProjectHardware: "1",
		RunningProjectFirmware: "02",
		RunningProjectICType:   icType,
		FirmwareVersion:        "1234",
	}
	return s.Bytes()
}

func firmwareInfoToolString() []byte {
	buf := make([]byte, toolstring.FirmwareInfoSize)
	for i := range buf {
		buf[i] = byte(0x30 + i*3)
	}
	return buf
}

func vendorSupportToolString() []byte {
	buf := make([]byte, toolstring.VendorSupportSize)
	copy(buf, "01")
	copy(buf[10:], "ABCDE")
	return buf
}

func newFakeHub() *fakeHub {
	f := &fakeHub{
		cfg:     DefaultConfig(),
		release: 0x1234,
		spec:    0x0210,
		toolStrings: map[uint8][]byte{
			toolstring.StaticIndexUSB2:  staticToolString("352310"),
			toolstring.DynamicIndexUSB2: []byte{'B', '2', '4', '0', '0', '0', '0', '0', '0', '5'},
			toolstring.FirmwareInfo:     firmwareInfoToolString(),
			toolstring.VendorSupport:    vendorSupportToolString(),
		},
		flash:   make([]byte, fakeFlashSize),
		flashID: [3]byte{0xc8, 0x40, 0x13},
		stuck:   make(map[uint32]bool),
	}
	for i := range f.flash {
		f.flash[i] = 0xff
	}
	return f
}

// image returns a valid GL3523 hub firmware image.
func image(version uint16) []byte {
	t := firmware.NewTemplate()
	t.VersionRaw = version
	return t.Write()
}

func publicKey() []byte {
	return []byte("N = " + strings.Repeat("5a", 0x100) + "\r\nE = 010001\r\n")
}

func (f *fakeHub) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	if f.fail != nil {
		if err := f.fail(rType, request, val, idx); err != nil {
			return 0, err
		}
	}
	switch {
	case rType == 0x80 && request == 0x06:
		ts, ok := f.toolStrings[uint8(val)]
		if !ok {
			return 0, fmt.Errorf("no string descriptor 0x%02x", uint8(val))
		}
		raw := []byte{byte(2 + 2*len(ts)), 0x03}
		for _, b := range ts {
			raw = append(raw, b, 0x00)
		}
		return copy(data, raw), nil

	case rType == devices.RequestTypeVendorIn && request == requestVerify:
		if idx&0xff == 0 {
			f.authStart, f.authEnd = uint8(val), uint8(val>>8)
			data[0] = 0
			return 1, nil
		}
		f.authChecks++
		release := f.release
		if f.authRelease != 0 {
			release = f.authRelease
		}
		seed := uint8(release) ^ uint8(release>>8)
		want := fold(seed, f.toolStrings[toolstring.FirmwareInfo], f.authStart, f.authEnd)
		data[0] = 0
		if uint8(idx>>8) == want && val == uint16(f.authEnd)<<8|uint16(f.authStart) {
			data[0] = 1
		}
		return 1, nil

	case rType == devices.RequestTypeVendorIn && request == f.cfg.ReadRequest:
		if len(data) == 1 && val == uint16(statusRegister)<<8|0x02 {
			f.statusReads++
			data[0] = 0
			if len(f.busy) > 0 {
				data[0] = f.busy[0]
				f.busy = f.busy[1:]
			}
			return 1, nil
		}
		if val&0xff != 0 {
			// Flash ID, repeated.
			n := copy(data, f.flashID[:])
			copy(data[n:], f.flashID[:])
			return len(data), nil
		}
		addr := uint32(val)<<4 | uint32(idx)
		return copy(data, f.flash[addr:]), nil

	case rType == devices.RequestTypeVendorOut && request == f.cfg.SwitchRequest:
		f.switches = append(f.switches, val)
		return 0, nil

	case rType == devices.RequestTypeVendorOut && request == f.cfg.WriteRequest:
		if val == eraseValue {
			f.erases = append(f.erases, idx)
			sector := uint32(idx>>4) & 0xf
			block := uint32(idx) & 0xf
			addr := block*0x10000 + sector*0x1000
			for i := addr; i < addr+0x1000; i++ {
				f.flash[i] = 0xff
			}
			return 0, nil
		}
		addr := uint32(val>>12)<<16 | uint32(idx)
		for i, b := range data {
			if !f.stuck[addr+uint32(i)] {
				f.flash[addr+uint32(i)] &= b
			}
		}
		return len(data), nil
	}
	return 0, fmt.Errorf("unexpected request 0x%02x/0x%02x", rType, request)
}

func (f *fakeHub) SetControlTimeout(d time.Duration) error {
	f.timeout = d
	return nil
}

func (f *fakeHub) Release() uint16 { return f.release }
func (f *fakeHub) Spec() uint16    { return f.spec }
func (f *fakeHub) Close() error    { return nil }

func newTestDevice(t *testing.T, f *fakeHub) *Device {
	t.Helper()
	d, err := New(f, f.cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.sleep = func(time.Duration) {}
	d.rand = rand.New(rand.NewSource(1))
	return d
}

var testDescription = &devices.Descriptions[0]

func setupTestDevice(t *testing.T, f *fakeHub) (*Device, *Info) {
	t.Helper()
	d := newTestDevice(t, f)
	info, err := d.Setup(testContext(t), testDescription)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return d, info
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
