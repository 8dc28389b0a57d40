package isp

import (
	"time"

	"github.com/hubisp/glhub/pkg/devices"
)

// Config is the per-device configuration of the ISP protocol. It must not be
// changed once a Device has been created from it.
type Config struct {
	// TransferSize is the payload size of a single flash read or write
	// control transfer.
	TransferSize uint32

	SwitchRequest uint8
	ReadRequest   uint8
	WriteRequest  uint8

	// EraseDelay and WriteDelay bound how long an erase or write command
	// may keep the flash busy. They are polled every PollDelay.
	EraseDelay time.Duration
	WriteDelay time.Duration
	PollDelay  time.Duration

	// BlockSize and SectorSize are the flash geometry. Overridden by the
	// detected flash chip, if it reports them.
	BlockSize  uint32
	SectorSize uint32

	// ControlTimeout is the timeout of every control transfer.
	ControlTimeout time.Duration

	// HasPublicKey enables authentication before entering ISP and the
	// public key trailer on firmware images.
	HasPublicKey bool
	// HasScaler marks hubs with an attached MStar scaler. Updating the
	// scaler itself is not supported.
	HasScaler bool
}

const (
	defaultSwitchRequest uint8 = 0x81
	defaultReadRequest   uint8 = 0x82
	defaultWriteRequest  uint8 = 0x83
)

func DefaultConfig() Config {
	return Config{
		TransferSize:   0x40,
		SwitchRequest:  defaultSwitchRequest,
		ReadRequest:    defaultReadRequest,
		WriteRequest:   defaultWriteRequest,
		EraseDelay:     8000 * time.Millisecond,
		WriteDelay:     500 * time.Millisecond,
		PollDelay:      30 * time.Millisecond,
		BlockSize:      0x10000,
		SectorSize:     0x1000,
		ControlTimeout: 5 * time.Second,
	}
}

// ForDescription returns a copy of the configuration with the quirks of a
// known hub applied.
func (c Config) ForDescription(d *devices.Description) Config {
	if d == nil {
		return c
	}
	if d.SwitchRequest != 0 {
		c.SwitchRequest = d.SwitchRequest
	}
	if d.ReadRequest != 0 {
		c.ReadRequest = d.ReadRequest
	}
	if d.WriteRequest != 0 {
		c.WriteRequest = d.WriteRequest
	}
	c.HasPublicKey = c.HasPublicKey || d.HasPublicKey
	c.HasScaler = c.HasScaler || d.HasScaler
	return c
}

// attempts converts a busy time budget into a number of status polls.
func (c *Config) attempts(budget time.Duration) int {
	if c.PollDelay <= 0 {
		return 1
	}
	n := int(budget / c.PollDelay)
	if n < 1 {
		n = 1
	}
	return n
}
