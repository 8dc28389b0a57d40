package toolstring

import (
	"fmt"
	"io"
)

const (
	FirmwareInfoSize  = 31
	VendorSupportSize = 30
)

// FirmwareInfoTS is the firmware info tool string, describing the ISP tool
// and when the running firmware was built and flashed.
type FirmwareInfoTS struct {
	ToolVersion [6]byte
	AddressMode byte
	BuildTime   string
	UpdateTime  string
	raw         []byte
}

func ParseFirmwareInfo(buf []byte) (*FirmwareInfoTS, error) {
	if len(buf) < FirmwareInfoSize {
		return nil, fmt.Errorf("firmware info tool string too short: %d bytes", len(buf))
	}
	fi := &FirmwareInfoTS{
		AddressMode: buf[6],
		BuildTime:   field(buf, 7, 12),
		UpdateTime:  field(buf, 19, 12),
		raw:         append([]byte(nil), buf[:FirmwareInfoSize]...),
	}
	copy(fi.ToolVersion[:], buf[0:6])
	return fi, nil
}

// Bytes returns the tool string as read from the device.
func (f *FirmwareInfoTS) Bytes() []byte {
	return append([]byte(nil), f.raw...)
}

// VendorSupportTS is the vendor support tool string. Only published by hubs
// with a tool string version of at least VersionVendorSupport.
type VendorSupportTS struct {
	Version  string
	Supports string
	raw      []byte
}

func ParseVendorSupport(buf []byte) (*VendorSupportTS, error) {
	if len(buf) < VendorSupportSize {
		return nil, fmt.Errorf("vendor support tool string too short: %d bytes", len(buf))
	}
	return &VendorSupportTS{
		Version:  field(buf, 0, 2),
		Supports: field(buf, 10, 5),
		raw:      append([]byte(nil), buf[:VendorSupportSize]...),
	}, nil
}

// NewVendorSupport returns an empty vendor support tool string, used for hubs
// which don't publish one.
func NewVendorSupport() *VendorSupportTS {
	return &VendorSupportTS{
		raw: make([]byte, VendorSupportSize),
	}
}

func (v *VendorSupportTS) Bytes() []byte {
	return append([]byte(nil), v.raw...)
}

func (f *FirmwareInfoTS) Debug(w io.Writer) {
	fmt.Fprintf(w, "  tool version: %x\n", f.ToolVersion[:])
	fmt.Fprintf(w, "  address mode: %d\n", f.AddressMode)
	fmt.Fprintf(w, "    build time: %s\n", f.BuildTime)
	fmt.Fprintf(w, "   update time: %s\n", f.UpdateTime)
}
