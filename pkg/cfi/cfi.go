// Package cfi identifies the SPI flash attached to a hub by its JEDEC ID.
package cfi

import (
	"fmt"

	"github.com/hubisp/glhub/pkg/devices"
)

// ID is the three byte JEDEC ID of a flash chip: manufacturer, memory type,
// capacity.
type ID [3]byte

func (i ID) String() string {
	return fmt.Sprintf("%02X%02X%02X", i[0], i[1], i[2])
}

// ReadIDCommands are the identification opcodes tried in order. Different
// vendors answer to different ones.
var ReadIDCommands = []uint8{0x9f, 0x90, 0xab, 0x1d, 0x15, 0x4d, 0x4b}

// DummyAddresses are the dummy address byte counts tried for each opcode.
var DummyAddresses = []uint8{1, 2}

// ReadIDLength is how many bytes are read back for each identification
// attempt. Only the first three form the ID.
const ReadIDLength = 6

// Params describes a flash chip.
type Params struct {
	Name string
	// Size is the capacity in bytes.
	Size       uint32
	BlockSize  uint32
	SectorSize uint32
}

const (
	kib = 1024
	mib = 1024 * kib
)

var knownFlash = map[ID]Params{
	{0xc8, 0x40, 0x12}: {Name: "GigaDevice GD25Q20", Size: 256 * kib, BlockSize: 64 * kib, SectorSize: 4 * kib},
	{0xc8, 0x40, 0x13}: {Name: "GigaDevice GD25Q40", Size: 512 * kib, BlockSize: 64 * kib, SectorSize: 4 * kib},
	{0xc8, 0x40, 0x14}: {Name: "GigaDevice GD25Q80", Size: 1 * mib, BlockSize: 64 * kib, SectorSize: 4 * kib},
	{0xef, 0x30, 0x13}: {Name: "Winbond W25X40", Size: 512 * kib, BlockSize: 64 * kib, SectorSize: 4 * kib},
	{0xef, 0x40, 0x13}: {Name: "Winbond W25Q40", Size: 512 * kib, BlockSize: 64 * kib, SectorSize: 4 * kib},
	{0xef, 0x40, 0x14}: {Name: "Winbond W25Q80", Size: 1 * mib, BlockSize: 64 * kib, SectorSize: 4 * kib},
	{0xc2, 0x20, 0x12}: {Name: "Macronix MX25L2006E", Size: 256 * kib, BlockSize: 64 * kib, SectorSize: 4 * kib},
	{0xc2, 0x20, 0x13}: {Name: "Macronix MX25L4006E", Size: 512 * kib, BlockSize: 64 * kib, SectorSize: 4 * kib},
	{0x1c, 0x30, 0x13}: {Name: "EON EN25Q40", Size: 512 * kib, BlockSize: 64 * kib, SectorSize: 4 * kib},
	{0x9d, 0x40, 0x13}: {Name: "ISSI IS25LQ040", Size: 512 * kib, BlockSize: 64 * kib, SectorSize: 4 * kib},
	{0x85, 0x60, 0x13}: {Name: "Puya P25Q40H", Size: 512 * kib, BlockSize: 64 * kib, SectorSize: 4 * kib},
	{0x0b, 0x40, 0x13}: {Name: "XTX XT25F04B", Size: 512 * kib, BlockSize: 64 * kib, SectorSize: 4 * kib},
}

// Lookup returns the parameters of a known flash chip.
func Lookup(id ID) (*Params, error) {
	p, ok := knownFlash[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown flash ID %s", devices.ErrNotSupported, id)
	}
	return &p, nil
}
