package isp

import (
	"bytes"
	"context"
	"fmt"

	"github.com/golang/glog"

	"github.com/hubisp/glhub/pkg/devices"
	"github.com/hubisp/glhub/pkg/firmware"
)

// Phase is a step of writing a bank.
type Phase string

const (
	PhaseRead   Phase = "read"
	PhaseErase  Phase = "erase"
	PhaseWrite  Phase = "write"
	PhaseVerify Phase = "verify"
)

// PhaseProgress returns the progress callback for a phase of writing a bank.
// It may return nil.
type PhaseProgress func(bank devices.Bank, phase Phase) Progress

func (p PhaseProgress) get(bank devices.Bank, phase Phase) Progress {
	if p == nil {
		return nil
	}
	return p(bank, phase)
}

type PrepareOptions struct {
	// Force accepts images whose public key doesn't match the hub's.
	Force bool
	// IgnoreChecksum accepts images with a wrong checksum.
	IgnoreChecksum bool
}

// Prepare validates an image for the hub. Nothing is written to the hub.
func (d *Device) Prepare(data []byte, opts *PrepareOptions) (*firmware.Image, error) {
	if d.info == nil {
		return nil, fmt.Errorf("hub not set up")
	}
	if opts == nil {
		opts = &PrepareOptions{}
	}
	img, err := firmware.Parse(data, &firmware.ParseOptions{IgnoreChecksum: opts.IgnoreChecksum})
	if err != nil {
		return nil, err
	}

	if uint32(len(data)) >= img.CodeSize+firmware.PublicKeySize {
		key := data[img.CodeSize:]
		if (d.info.PublicKey == nil || !d.info.PublicKey.Equal(key)) && !opts.Force {
			return nil, fmt.Errorf("%w: public key mismatch", devices.ErrSignatureInvalid)
		}
	}

	if limit := d.info.FirmwareSizeMax(); uint32(len(data)) > limit {
		return nil, fmt.Errorf("%w: firmware too large, got 0x%x, expected <= 0x%x", devices.ErrInvalidFile, len(data), limit)
	}
	return img, nil
}

// WriteFirmware writes a prepared image to the hub according to the plan
// computed during Setup. The recovery bank, if written, is verified before
// Bank1 is touched.
func (d *Device) WriteFirmware(ctx context.Context, data []byte, progress PhaseProgress) error {
	info := d.info
	if info == nil {
		return fmt.Errorf("hub not set up")
	}
	if d.mode != ModeProgramming {
		if err := d.Enter(); err != nil {
			return err
		}
	}

	if info.Map.DualBank && info.Plan.WriteRecoveryFirst {
		if err := d.writeRecovery(ctx, data, progress); err != nil {
			return err
		}
	}
	return d.writeBank(ctx, devices.Bank1, data, progress)
}

func (d *Device) writeRecovery(ctx context.Context, data []byte, progress PhaseProgress) error {
	info := d.info
	src := data
	if info.Plan.ReuseFirstBank {
		if info.CodeSize == 0 {
			return fmt.Errorf("code size is zero")
		}
		glog.Infof("Copying bank1 to bank2")
		var err error
		src, err = d.Read(ctx, info.Map.Addr(devices.Bank1, devices.FwTypeHub), info.CodeSize, progress.get(devices.Bank2, PhaseRead))
		if err != nil {
			return fmt.Errorf("reading bank1: %w", err)
		}
	}
	return d.writeBank(ctx, devices.Bank2, src, progress)
}

// writeBank erases, writes and verifies the hub firmware of a bank.
func (d *Device) writeBank(ctx context.Context, bank devices.Bank, data []byte, progress PhaseProgress) error {
	addr := d.info.Map.Addr(bank, devices.FwTypeHub)
	size := uint32(len(data))
	glog.Infof("Writing 0x%x bytes to %s at 0x%06x", size, bank, addr)

	if err := d.Erase(ctx, addr, size, progress.get(bank, PhaseErase)); err != nil {
		return fmt.Errorf("erasing %s: %w", bank, err)
	}
	if err := d.Write(ctx, addr, data, progress.get(bank, PhaseWrite)); err != nil {
		return fmt.Errorf("writing %s: %w", bank, err)
	}
	got, err := d.Read(ctx, addr, size, progress.get(bank, PhaseVerify))
	if err != nil {
		return fmt.Errorf("verifying %s: %w", bank, err)
	}
	if !bytes.Equal(got, data) {
		var off int
		for off = range got {
			if got[off] != data[off] {
				break
			}
		}
		return fmt.Errorf("%w: %s differs at 0x%06x (0x%02x, wanted 0x%02x)", devices.ErrVerifyMismatch, bank, addr+uint32(off), got[off], data[off])
	}
	return nil
}
