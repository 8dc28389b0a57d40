package devices

import "fmt"

type Bank int

const (
	Bank1 Bank = iota
	Bank2

	BankCount
)

func (b Bank) String() string {
	switch b {
	case Bank1:
		return "bank1"
	case Bank2:
		return "bank2"
	}
	return "UNKNOWN"
}

type FwType int

const (
	FwTypeHub FwType = iota
	FwTypeInternalPD
	FwTypeDeviceBridge

	FwTypeCount
)

func (t FwType) String() string {
	switch t {
	case FwTypeHub:
		return "hub"
	case FwTypeInternalPD:
		return "internal-pd"
	case FwTypeDeviceBridge:
		return "device-bridge"
	}
	return "UNKNOWN"
}

// Region is where a firmware type lives in flash, for each bank.
type Region struct {
	Base [BankCount]uint32
	Size uint32
}

// MemoryMap describes the flash layout of a hub model.
type MemoryMap struct {
	// DualBank is set if the hub boots from Bank1 and falls back to Bank2.
	DualBank bool
	// CodeSizeByte is set if the firmware stores its own size (in KiB) in
	// its header. Otherwise the code size is the region size.
	CodeSizeByte bool
	Regions      [FwTypeCount]Region
}

// Addr returns the base address of a firmware type in a given bank.
func (m *MemoryMap) Addr(b Bank, t FwType) uint32 {
	return m.Regions[t].Base[b]
}

// Size returns the total size reserved for a firmware type in each bank.
func (m *MemoryMap) Size(t FwType) uint32 {
	return m.Regions[t].Size
}

// Has returns whether the model programs a given firmware type at all.
func (m *MemoryMap) Has(t FwType) bool {
	return m.Regions[t].Size != 0
}

const anyRevision = -1

type memoryMapKey struct {
	model    Model
	revision int
}

var memoryMaps = map[memoryMapKey]MemoryMap{
	{GL3521, anyRevision}: {
		Regions: [FwTypeCount]Region{
			FwTypeHub: {Size: 0x5000},
		},
	},
	{GL3523, anyRevision}: {
		DualBank: true,
		Regions: [FwTypeCount]Region{
			FwTypeHub: {Base: [BankCount]uint32{0x0000, 0x8000}, Size: 0x6000},
		},
	},
	{GL3523, 50}: {
		DualBank:     true,
		CodeSizeByte: true,
		Regions: [FwTypeCount]Region{
			FwTypeHub: {Base: [BankCount]uint32{0x0000, 0x8000}, Size: 0x8000},
		},
	},
	{GL3590, anyRevision}: {
		DualBank:     true,
		CodeSizeByte: true,
		Regions: [FwTypeCount]Region{
			FwTypeHub:          {Base: [BankCount]uint32{0x00000, 0x10000}, Size: 0x10000},
			FwTypeDeviceBridge: {Base: [BankCount]uint32{0x20000, 0x30000}, Size: 0x10000},
		},
	},
	{GL3525, anyRevision}: {
		DualBank:     true,
		CodeSizeByte: true,
		Regions: [FwTypeCount]Region{
			FwTypeHub:          {Base: [BankCount]uint32{0x00000, 0x0b000}, Size: 0xb000},
			FwTypeInternalPD:   {Base: [BankCount]uint32{0x16000, 0x23000}, Size: 0xd000},
			FwTypeDeviceBridge: {Base: [BankCount]uint32{0x30000, 0x38000}, Size: 0x8000},
		},
	},
}

// MemoryMapFor returns the flash layout of a chip. Revision specific entries
// take precedence over per-model ones.
func MemoryMapFor(c Chip) (MemoryMap, error) {
	if m, ok := memoryMaps[memoryMapKey{c.Model, c.Revision}]; ok {
		return m, nil
	}
	if m, ok := memoryMaps[memoryMapKey{c.Model, anyRevision}]; ok {
		return m, nil
	}
	return MemoryMap{}, fmt.Errorf("%w: no memory map for %s", ErrNotSupported, c)
}
