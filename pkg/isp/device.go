// Package isp implements the in-system programming protocol of Genesys Logic
// USB hubs: entering and leaving ISP mode, reading, erasing and writing the
// hub's SPI flash, and updating its firmware banks.
package isp

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/hubisp/glhub/pkg/devices"
)

// Mode is the state of the hub's ISP mode controller, as far as the host
// knows.
type Mode int

const (
	ModeNormal Mode = iota
	ModeAuthenticating
	ModeProgramming
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeAuthenticating:
		return "authenticating"
	case ModeProgramming:
		return "programming"
	}
	return "UNKNOWN"
}

// Device is a session with a single hub. It is not safe for concurrent use.
type Device struct {
	usb  devices.Usb
	cfg  Config
	mode Mode

	rand  *rand.Rand
	sleep func(time.Duration)

	// fwInfo is the raw firmware info tool string, used to authenticate.
	fwInfo []byte
	// info is set by Setup.
	info *Info
}

// New creates a session for a hub. cfg is copied.
func New(usb devices.Usb, cfg Config) (*Device, error) {
	switch {
	case cfg.TransferSize == 0:
		return nil, fmt.Errorf("transfer size must not be zero")
	case cfg.BlockSize == 0:
		return nil, fmt.Errorf("block size must not be zero")
	case cfg.SectorSize == 0:
		return nil, fmt.Errorf("sector size must not be zero")
	}
	if err := usb.SetControlTimeout(cfg.ControlTimeout); err != nil {
		return nil, fmt.Errorf("could not set control timeout: %w", err)
	}
	return &Device{
		usb:   usb,
		cfg:   cfg,
		rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: time.Sleep,
	}, nil
}

func (d *Device) Mode() Mode {
	return d.mode
}

func (d *Device) Config() Config {
	return d.cfg
}

// Info returns what Setup learned about the hub, or nil if Setup has not
// completed.
func (d *Device) Info() *Info {
	return d.info
}

func (d *Device) controlIn(request uint8, val, idx uint16, data []byte) error {
	if _, err := d.usb.Control(devices.RequestTypeVendorIn, request, val, idx, data); err != nil {
		return fmt.Errorf("%w: request 0x%02x (value 0x%04x, index 0x%04x): %v", devices.ErrBus, request, val, idx, err)
	}
	return nil
}

func (d *Device) controlOut(request uint8, val, idx uint16, data []byte) error {
	if _, err := d.usb.Control(devices.RequestTypeVendorOut, request, val, idx, data); err != nil {
		return fmt.Errorf("%w: request 0x%02x (value 0x%04x, index 0x%04x): %v", devices.ErrBus, request, val, idx, err)
	}
	return nil
}
