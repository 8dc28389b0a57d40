package isp

import (
	"fmt"

	"github.com/golang/glog"
)

// Values of the switch request.
const (
	ispEnter uint16 = 0x0001
	ispReset uint16 = 0x0003
)

const enterAttempts = 5

// Enter authenticates, if required, and switches the hub into ISP mode.
// Entering while already in ISP mode resends the switch command.
func (d *Device) Enter() error {
	if d.cfg.HasPublicKey {
		d.mode = ModeAuthenticating
		if err := d.authenticate(); err != nil {
			d.mode = ModeNormal
			return fmt.Errorf("could not authenticate: %w", err)
		}
	}
	if err := d.controlOut(d.cfg.SwitchRequest, ispEnter, 0, nil); err != nil {
		d.mode = ModeNormal
		return fmt.Errorf("could not switch to ISP mode: %w", err)
	}
	if err := d.waitRegister(statusRegister, 0, enterAttempts); err != nil {
		d.mode = ModeNormal
		return fmt.Errorf("could not switch to ISP mode: %w", err)
	}
	d.mode = ModeProgramming
	glog.V(1).Infof("Entered ISP mode")
	return nil
}

// Exit resets the hub. It will drop off the bus and re-enumerate, and this
// session becomes unusable.
func (d *Device) Exit() error {
	if err := d.controlOut(d.cfg.SwitchRequest, ispReset, 0, nil); err != nil {
		return fmt.Errorf("could not reset hub: %w", err)
	}
	d.mode = ModeNormal
	glog.Infof("Hub reset, waiting for it to re-enumerate")
	return nil
}
