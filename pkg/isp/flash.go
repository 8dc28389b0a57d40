package isp

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	"github.com/hubisp/glhub/pkg/cfi"
	"github.com/hubisp/glhub/pkg/chunk"
	"github.com/hubisp/glhub/pkg/devices"
)

// Progress is called after every chunk of a flash operation with the number
// of bytes done so far.
type Progress func(done, total uint32)

func (p Progress) report(done, total uint32) {
	if p != nil {
		p(done, total)
	}
}

const eraseValue uint16 = 0x2001

func (d *Device) checkMode() error {
	if d.mode != ModeProgramming {
		return fmt.Errorf("hub not in ISP mode (%s)", d.mode)
	}
	return nil
}

// Read reads length bytes of flash starting at addr. Cancellation is checked
// between transfers.
func (d *Device) Read(ctx context.Context, addr, length uint32, progress Progress) ([]byte, error) {
	if err := d.checkMode(); err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	var done uint32
	for _, c := range chunk.New(buf, addr, 0, d.cfg.TransferSize) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		val := uint16((c.Address & 0x0f0000) >> 4)
		idx := uint16(c.Address & 0xffff)
		if err := d.controlIn(d.cfg.ReadRequest, val, idx, c.Data); err != nil {
			return nil, fmt.Errorf("reading flash at 0x%06x: %w", c.Address, err)
		}
		done += c.Size
		progress.report(done, length)
	}
	return buf, nil
}

// Erase erases length bytes of flash starting at addr, one sector at a time.
// Both should be sector aligned.
func (d *Device) Erase(ctx context.Context, addr, length uint32, progress Progress) error {
	if err := d.checkMode(); err != nil {
		return err
	}
	attempts := d.cfg.attempts(d.cfg.EraseDelay)
	var done uint32
	for _, c := range chunk.NewEmpty(length, addr, d.cfg.BlockSize, d.cfg.SectorSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		sector := c.Offset / d.cfg.SectorSize
		block := c.Page
		idx := uint16(0x0100 | sector<<4 | block)
		if err := d.controlOut(d.cfg.WriteRequest, eraseValue, idx, nil); err != nil {
			return fmt.Errorf("erasing sector 0x%02x in block 0x%02x: %w", sector, block, err)
		}
		if err := d.waitRegister(statusRegister, 0, attempts); err != nil {
			return fmt.Errorf("erasing sector 0x%02x in block 0x%02x: %w", sector, block, err)
		}
		done += c.Size
		progress.report(done, length)
	}
	return nil
}

// Write programs data into flash starting at addr. The range must have been
// erased.
func (d *Device) Write(ctx context.Context, addr uint32, data []byte, progress Progress) error {
	if err := d.checkMode(); err != nil {
		return err
	}
	attempts := d.cfg.attempts(d.cfg.WriteDelay)
	total := uint32(len(data))
	var done uint32
	for _, c := range chunk.New(data, addr, d.cfg.BlockSize, d.cfg.TransferSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Copy, as the transport may modify the buffer.
		buf := append([]byte(nil), c.Data...)
		val := uint16(c.Page&0xf) << 12
		idx := uint16(c.Offset & 0xffff)
		if err := d.controlOut(d.cfg.WriteRequest, val, idx, buf); err != nil {
			return fmt.Errorf("writing flash at 0x%06x: %w", c.Address, err)
		}
		if err := d.waitRegister(statusRegister, 0, attempts); err != nil {
			return fmt.Errorf("writing flash at 0x%06x: %w", c.Address, err)
		}
		done += c.Size
		progress.report(done, total)
	}
	return nil
}

// detectFlash identifies the flash chip attached to the hub by trying every
// known identification command.
func (d *Device) detectFlash() (cfi.ID, *cfi.Params, error) {
	for _, cmd := range cfi.ReadIDCommands {
		for _, dummy := range cfi.DummyAddresses {
			buf := make([]byte, cfi.ReadIDLength)
			if err := d.controlIn(d.cfg.ReadRequest, uint16(cmd)<<8|uint16(dummy), 0, buf); err != nil {
				return cfi.ID{}, nil, fmt.Errorf("reading flash ID: %w", err)
			}
			var id cfi.ID
			copy(id[:], buf)
			params, err := cfi.Lookup(id)
			if err != nil {
				glog.V(2).Infof("Flash ID command 0x%02x/%d: %s not known", cmd, dummy, id)
				continue
			}
			glog.V(1).Infof("Flash ID % x: %s", buf, params.Name)
			return id, params, nil
		}
	}
	return cfi.ID{}, nil, fmt.Errorf("%w: no known flash chip found", devices.ErrNotSupported)
}
