package isp

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/hubisp/glhub/pkg/devices"
)

// statusRegister is the flash status register which reads zero once the
// flash is done with an erase or write, and once ISP mode is entered.
const statusRegister uint8 = 5

// waitRegister polls a flash status register until it reads expected, at most
// attempts times, sleeping PollDelay between attempts. Transport errors are
// not retried.
func (d *Device) waitRegister(reg, expected uint8, attempts int) error {
	var status [1]byte
	for i := 0; i < attempts; i++ {
		if i > 0 {
			d.sleep(d.cfg.PollDelay)
		}
		if err := d.controlIn(d.cfg.ReadRequest, uint16(reg)<<8|0x02, 0, status[:]); err != nil {
			return fmt.Errorf("reading flash status register 0x%02x: %w", reg, err)
		}
		if status[0] == expected {
			return nil
		}
		glog.V(2).Infof("Status register 0x%02x: 0x%02x, waiting for 0x%02x (%d/%d)", reg, status[0], expected, i+1, attempts)
	}
	return fmt.Errorf("%w: flash status register 0x%02x not 0x%02x after %d attempts", devices.ErrTimedOut, reg, expected, attempts)
}
