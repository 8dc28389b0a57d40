package isp

import (
	"fmt"
	"math/rand"

	"github.com/golang/glog"

	"github.com/hubisp/glhub/pkg/devices"
)

const requestVerify uint8 = 0x71

// The challenge range is picked from within these firmware info tool string
// offsets.
const (
	encryptRegionStart = 0x01
	encryptRegionEnd   = 0x15
)

type challenge struct {
	start, end uint8
	check      uint8
}

func (c challenge) value() uint16 {
	return uint16(c.end)<<8 | uint16(c.start)
}

// fold XORs seed with fwinfo[start] to fwinfo[end], inclusive.
func fold(seed uint8, fwinfo []byte, start, end uint8) uint8 {
	for i := int(start); i <= int(end) && i < len(fwinfo); i++ {
		seed ^= fwinfo[i]
	}
	return seed
}

// newChallenge picks a random range and computes the response the hub
// expects for it. The seed is derived from the bcdDevice of the hub.
func newChallenge(r *rand.Rand, release uint16, fwinfo []byte) challenge {
	seed := uint8(release) ^ uint8(release>>8)
	start := encryptRegionStart + r.Intn(encryptRegionEnd-1-encryptRegionStart)
	end := start + 1 + r.Intn(encryptRegionEnd-start-1)
	return challenge{
		start: uint8(start),
		end:   uint8(end),
		check: fold(seed, fwinfo, uint8(start), uint8(end)),
	}
}

// authenticate runs the challenge/response handshake required before hubs
// with a public key accept ISP commands.
func (d *Device) authenticate() error {
	if d.cfg.SwitchRequest == defaultSwitchRequest {
		return fmt.Errorf("%w: authentication with default vendor commands", devices.ErrNotSupported)
	}
	if d.fwInfo == nil {
		return fmt.Errorf("firmware info tool string not read yet")
	}
	c := newChallenge(d.rand, d.usb.Release(), d.fwInfo)
	glog.V(1).Infof("Authenticating with range [%d, %d]", c.start, c.end)

	var res [1]byte
	if err := d.controlIn(requestVerify, c.value(), 0, res[:]); err != nil {
		return fmt.Errorf("authentication challenge: %w", err)
	}
	if err := d.controlIn(requestVerify, c.value(), 1|uint16(c.check)<<8, res[:]); err != nil {
		return fmt.Errorf("authentication response: %w", err)
	}
	if res[0] != 1 {
		return fmt.Errorf("%w: hub replied 0x%02x", devices.ErrAuthFailed, res[0])
	}
	return nil
}
