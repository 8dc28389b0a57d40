package isp

import (
	"bytes"
	"context"
	"fmt"

	"github.com/golang/glog"

	"github.com/hubisp/glhub/pkg/cfi"
	"github.com/hubisp/glhub/pkg/devices"
	"github.com/hubisp/glhub/pkg/firmware"
	"github.com/hubisp/glhub/pkg/toolstring"
)

// Info is everything learned about a hub during Setup. It is valid until the
// hub is reset.
type Info struct {
	Chip devices.Chip
	Map  devices.MemoryMap

	Static        *toolstring.Static
	Dynamic       *toolstring.Dynamic
	FirmwareInfo  *toolstring.FirmwareInfoTS
	VendorSupport *toolstring.VendorSupportTS

	FlashID cfi.ID
	Flash   *cfi.Params

	// CodeSize is the size of the hub firmware in Bank1, as learned from
	// the hub. Zero if unknown.
	CodeSize uint32
	// ExtendSize is the size of the public key and signature trailing the
	// hub firmware, if any.
	ExtendSize uint32
	// Versions are the raw hub firmware versions in each bank, zero for
	// blank or corrupt banks.
	Versions [devices.BankCount]uint16
	Plan     Plan

	PublicKey   *firmware.PublicKey
	InstanceIDs []string

	// HasScaler is set for hubs with an attached scaler. Only the hub
	// firmware is updated on these.
	HasScaler bool
}

// FirmwareSizeMax is the largest image accepted for the hub.
func (i *Info) FirmwareSizeMax() uint32 {
	return i.Map.Size(devices.FwTypeHub) + i.ExtendSize
}

func (d *Device) readToolString(index uint8) ([]byte, error) {
	raw, err := devices.ReadStringDescriptor(d.usb, index)
	if err != nil {
		return nil, err
	}
	return toolstring.Decode(raw)
}

// Setup identifies the hub from its tool strings, switches it into ISP mode,
// identifies its flash and inspects both firmware banks to plan an update.
// The hub is left in ISP mode.
func (d *Device) Setup(ctx context.Context, desc *devices.Description) (*Info, error) {
	info := &Info{}
	staticIdx, dynamicIdx := toolstring.Indices(d.usb.Spec())

	buf, err := d.readToolString(staticIdx)
	if err != nil {
		return nil, fmt.Errorf("failed to get static tool string: %w", err)
	}
	if info.Static, err = toolstring.ParseStatic(buf); err != nil {
		return nil, err
	}
	if info.Chip, err = info.Static.Chip(); err != nil {
		return nil, err
	}
	if info.Map, err = devices.MemoryMapFor(info.Chip); err != nil {
		return nil, err
	}

	buf, err = d.readToolString(dynamicIdx)
	if err != nil {
		return nil, fmt.Errorf("failed to get dynamic tool string: %w", err)
	}
	if info.Dynamic, err = toolstring.ParseDynamic(buf, info.Chip, info.Static.ToolStringVersion); err != nil {
		return nil, err
	}

	buf, err = d.readToolString(toolstring.FirmwareInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to get firmware info tool string: %w", err)
	}
	if info.FirmwareInfo, err = toolstring.ParseFirmwareInfo(buf); err != nil {
		return nil, err
	}
	d.fwInfo = info.FirmwareInfo.Bytes()

	if info.Static.ToolStringVersion >= toolstring.VersionVendorSupport {
		buf, err = d.readToolString(toolstring.VendorSupport)
		if err != nil {
			return nil, fmt.Errorf("failed to get vendor support tool string: %w", err)
		}
		if info.VendorSupport, err = toolstring.ParseVendorSupport(buf); err != nil {
			return nil, err
		}
	} else {
		info.VendorSupport = toolstring.NewVendorSupport()
	}
	glog.Infof("Found %s, running from %s", info.Chip, info.Dynamic.RunningBank)
	if d.cfg.HasScaler {
		info.HasScaler = true
		glog.Infof("Hub has a scaler attached, scaler firmware will not be updated")
	}

	if err := d.Enter(); err != nil {
		return nil, err
	}

	info.FlashID, info.Flash, err = d.detectFlash()
	if err != nil {
		return nil, err
	}
	if info.Flash.BlockSize != 0 {
		d.cfg.BlockSize = info.Flash.BlockSize
	}
	if info.Flash.SectorSize != 0 {
		d.cfg.SectorSize = info.Flash.SectorSize
	}

	if d.cfg.HasPublicKey {
		info.ExtendSize = firmware.ExtendSize
	}

	var bank1 []byte
	if info.Map.DualBank {
		if info.CodeSize, err = d.readCodeSize(ctx, &info.Map); err != nil {
			return nil, err
		}
		for _, b := range []devices.Bank{devices.Bank1, devices.Bank2} {
			blob, err := d.Read(ctx, info.Map.Addr(b, devices.FwTypeHub), info.FirmwareSizeMax(), nil)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", b, err)
			}
			if b == devices.Bank1 {
				bank1 = blob
			}
			info.Versions[b] = bankVersion(b, blob)
		}
		info.Plan = ComputePlan(info.Chip.Model, info.Versions)
		glog.Infof("Bank1: %s, Bank2: %s, plan: %s", FormatVersion(info.Versions[devices.Bank1]), FormatVersion(info.Versions[devices.Bank2]), info.Plan)
	} else if info.Dynamic.RunningBank == toolstring.FwStatusBank1 {
		// Only single bank models get here, and all of those are EOL and
		// rejected by Static.Chip. Kept so a revived model keeps working.
		info.Versions[devices.Bank1] = d.usb.Release()
	}

	if d.cfg.HasPublicKey {
		if bank1 == nil {
			if bank1, err = d.Read(ctx, info.Map.Addr(devices.Bank1, devices.FwTypeHub), info.FirmwareSizeMax(), nil); err != nil {
				return nil, fmt.Errorf("reading bank1: %w", err)
			}
		}
		if info.PublicKey, err = firmware.ParsePublicKey(bank1[info.Map.Size(devices.FwTypeHub):]); err != nil {
			return nil, fmt.Errorf("public key in bank1: %w", err)
		}
		glog.V(2).Infof("Public key: N = %s, E = %s", info.PublicKey.Modulus(), info.PublicKey.Exponent())
	}

	if desc != nil {
		info.InstanceIDs = instanceIDs(desc, info)
	}
	d.info = info
	return info, nil
}

// readCodeSize returns the size of the hub firmware in Bank1. A missing
// signature is not fatal, as a blank Bank1 is a valid state to update from.
func (d *Device) readCodeSize(ctx context.Context, m *devices.MemoryMap) (uint32, error) {
	if !m.CodeSizeByte {
		return m.Size(devices.FwTypeHub), nil
	}
	base := m.Addr(devices.Bank1, devices.FwTypeHub)
	hdr, err := d.Read(ctx, base+firmware.CodeSizeOffset, 1+firmware.SignatureLength, nil)
	if err != nil {
		return 0, fmt.Errorf("reading code size: %w", err)
	}
	sig := hdr[1:]
	if !bytes.Equal(sig, firmware.SignatureHub) && !bytes.Equal(sig, firmware.SignatureHubSigned) {
		glog.Warningf("Bank1 signature %q invalid, code size unknown", sig)
		return 0, nil
	}
	return 1024 * uint32(hdr[0]), nil
}

// bankVersion returns the version of the hub firmware in a bank, or zero.
func bankVersion(b devices.Bank, blob []byte) uint16 {
	img, err := firmware.Parse(blob, nil)
	if err != nil {
		glog.Warningf("Ignoring firmware in %s: %v", b, err)
		return 0
	}
	if img.VersionRaw == blankVersion {
		return 0
	}
	return img.VersionRaw
}
