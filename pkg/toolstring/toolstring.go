// Package toolstring decodes the vendor specific string descriptors ("tool
// strings") that Genesys Logic hubs use to publish chip and firmware
// metadata.
package toolstring

import (
	"bytes"
	"fmt"

	"github.com/hubisp/glhub/pkg/devices"
)

// Descriptor indices of the tool strings.
const (
	StaticIndexUSB2  uint8 = 0x81
	DynamicIndexUSB2 uint8 = 0x82
	FirmwareInfo     uint8 = 0x83
	StaticIndexUSB3  uint8 = 0x84
	DynamicIndexUSB3 uint8 = 0x85
	VendorSupport    uint8 = 0x86
)

// Indices returns the static and dynamic tool string descriptor indices for
// a hub with a given bcdUSB.
func Indices(spec uint16) (static, dynamic uint8) {
	if spec >= 0x300 {
		return StaticIndexUSB3, DynamicIndexUSB3
	}
	return StaticIndexUSB2, DynamicIndexUSB2
}

// Size is the size of a decoded tool string buffer.
const Size = 0x20

// Decode turns a raw string descriptor (including its length/type header)
// into a tool string buffer by keeping the low byte of every UTF-16 code
// unit.
func Decode(raw []byte) ([]byte, error) {
	if len(raw) <= 2 {
		return nil, fmt.Errorf("descriptor too small (%d bytes)", len(raw))
	}
	res := make([]byte, Size)
	for i, j := 2, 0; i < len(raw) && j < Size; i, j = i+2, j+1 {
		res[j] = raw[i]
	}
	// Legacy hubs reply "USB2.0 Hub" or "USB3.0 Hub".
	if bytes.HasPrefix(res, []byte("USB")) {
		return nil, fmt.Errorf("%w: legacy tool string %q", devices.ErrNotSupported, string(bytes.TrimRight(res, "\x00")))
	}
	return res, nil
}

// Version is the tool string format version, as published in the first
// byte of the static tool string.
type Version byte

const (
	VersionDynamic9Byte  Version = '0'
	VersionBonding       Version = '1'
	VersionBondingQC     Version = '2'
	VersionVendorSupport Version = '3'
	VersionMultiHubSSID  Version = '4'
	VersionDynamic13Byte Version = '5'
	VersionBrandProject  Version = '6'
)

func (v Version) String() string {
	switch v {
	case VersionDynamic9Byte:
		return "dynamic-9-byte"
	case VersionBonding:
		return "bonding"
	case VersionBondingQC:
		return "bonding-qc"
	case VersionVendorSupport:
		return "vendor-support"
	case VersionMultiHubSSID:
		return "multi-hub-ssid"
	case VersionDynamic13Byte:
		return "dynamic-13-byte"
	case VersionBrandProject:
		return "brand-project"
	}
	return fmt.Sprintf("unknown-0x%02x", byte(v))
}

// digit decodes an alphanumeric tool string digit: 0-9, then A-Z (or a-z)
// for 10 to 35. Anything else is -1.
func digit(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	}
	return -1
}

func field(buf []byte, off, size int) string {
	return string(bytes.TrimRight(buf[off:off+size], "\x00"))
}
