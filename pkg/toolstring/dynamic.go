package toolstring

import (
	"encoding/binary"
	"fmt"

	"github.com/hubisp/glhub/pkg/devices"
)

// FwStatus is the bank a piece of firmware is running from.
type FwStatus byte

const (
	FwStatusMask  FwStatus = '0'
	FwStatusBank1 FwStatus = '1'
	FwStatusBank2 FwStatus = '2'
)

func (s FwStatus) String() string {
	switch s {
	case FwStatusMask:
		return "mask"
	case FwStatusBank1:
		return "bank1"
	case FwStatusBank2:
		return "bank2"
	}
	return fmt.Sprintf("unknown-0x%02x", byte(s))
}

// Bonding masks and flash dump location bits. These differ per model and are
// not derived from any formula.
const (
	gl3523BondingValid             = 0x0f
	gl3523BondingFlashDumpLocation = 1 << 4
	gl3590BondingValid             = 0x7f
	gl3590BondingFlashDumpLocation = 1 << 7
)

const (
	dynOffRunningMode = 0
	dynOffSSPorts     = 1
	dynOffHSPorts     = 2
	dynOffBonding     = 9
	dynOffHubStatus   = 10
	dynOffPDStatus    = 11
	dynOffPDVersion   = 12
	dynOffDevStatus   = 14
	dynOffDevVersion  = 15
	dynSizeGL3525     = 17
)

// Dynamic is the decoded dynamic tool string: the current running state of
// the hub.
type Dynamic struct {
	// RunningMode is 'M' when running from mask ROM.
	RunningMode byte
	SSPorts     int
	HSPorts     int
	// Bonding is the port configuration/option field, with model specific
	// flag bits already masked off.
	Bonding uint8
	// RunningBank is the bank the hub firmware is running from.
	RunningBank FwStatus

	// Only reported by GL3525.
	PDStatus         FwStatus
	PDVersion        uint16
	DeviceStatus     FwStatus
	DeviceVersion    uint16
	HasBridgeDetails bool
}

// PortNum packs the port counts the way they appear in instance IDs.
func (d *Dynamic) PortNum() uint8 {
	return uint8(d.SSPorts<<4 | d.HSPorts)
}

// ParseDynamic decodes a dynamic tool string. Its layout depends on the chip
// and on the tool string version published in the static tool string.
func ParseDynamic(buf []byte, chip devices.Chip, version Version) (*Dynamic, error) {
	if version < VersionBonding {
		return nil, fmt.Errorf("%w: legacy tool string version %s on %s", devices.ErrNotSupported, version, chip)
	}
	if len(buf) <= dynOffHubStatus {
		return nil, fmt.Errorf("dynamic tool string too short: %d bytes", len(buf))
	}

	d := &Dynamic{
		RunningMode: buf[dynOffRunningMode],
		SSPorts:     digit(buf[dynOffSSPorts]),
		HSPorts:     digit(buf[dynOffHSPorts]),
	}
	flashDumpLocation := false

	switch chip.Model {
	case devices.GL3523:
		bonding := uint8(digit(buf[dynOffBonding]))
		if version < VersionBondingQC {
			bonding <<= 1
		}
		d.Bonding = bonding & gl3523BondingValid
		flashDumpLocation = bonding&gl3523BondingFlashDumpLocation != 0
	case devices.GL3590:
		if chip.Revision == 30 {
			d.Bonding = buf[dynOffBonding]
			flashDumpLocation = FwStatus(buf[dynOffHubStatus]) == FwStatusBank2
		} else {
			bonding := buf[dynOffBonding]
			d.Bonding = bonding & gl3590BondingValid
			flashDumpLocation = bonding&gl3590BondingFlashDumpLocation != 0
		}
	case devices.GL3525:
		if len(buf) < dynSizeGL3525 {
			return nil, fmt.Errorf("dynamic tool string too short for %s: %d bytes", chip, len(buf))
		}
		d.Bonding = buf[dynOffBonding]
		flashDumpLocation = FwStatus(buf[dynOffHubStatus]) == FwStatusBank2
		d.PDStatus = FwStatus(buf[dynOffPDStatus])
		d.PDVersion = binary.LittleEndian.Uint16(buf[dynOffPDVersion:])
		d.DeviceStatus = FwStatus(buf[dynOffDevStatus])
		d.DeviceVersion = binary.LittleEndian.Uint16(buf[dynOffDevVersion:])
		d.HasBridgeDetails = true
	default:
		return nil, fmt.Errorf("%w: unsupported model %s", devices.ErrNotSupported, chip.Model)
	}

	switch {
	case d.RunningMode == 'M':
		d.RunningBank = FwStatusMask
	case flashDumpLocation:
		d.RunningBank = FwStatusBank2
	default:
		d.RunningBank = FwStatusBank1
	}
	return d, nil
}
