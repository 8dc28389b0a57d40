package main

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/hubisp/glhub/pkg/app"
	"github.com/hubisp/glhub/pkg/isp"
)

var (
	configFlags = isp.DefaultConfig()

	flagTransferSize  string
	flagSwitchRequest string
	flagReadRequest   string
	flagWriteRequest  string
	flagBlockSize     string
	flagSectorSize    string
)

func addConfigFlags(fs *pflag.FlagSet) {
	fs.StringVar(&flagTransferSize, "transfer-size", fmt.Sprintf("0x%x", configFlags.TransferSize), "Payload size of a single flash transfer")
	fs.StringVar(&flagSwitchRequest, "switch-request", fmt.Sprintf("0x%02x", configFlags.SwitchRequest), "Vendor request used to enter and leave ISP mode")
	fs.StringVar(&flagReadRequest, "read-request", fmt.Sprintf("0x%02x", configFlags.ReadRequest), "Vendor request used to read flash and registers")
	fs.StringVar(&flagWriteRequest, "write-request", fmt.Sprintf("0x%02x", configFlags.WriteRequest), "Vendor request used to write and erase flash")
	fs.StringVar(&flagBlockSize, "block-size", fmt.Sprintf("0x%x", configFlags.BlockSize), "Flash block size, unless reported by the flash chip")
	fs.StringVar(&flagSectorSize, "sector-size", fmt.Sprintf("0x%x", configFlags.SectorSize), "Flash sector size, unless reported by the flash chip")
	fs.DurationVar(&configFlags.EraseDelay, "erase-delay", configFlags.EraseDelay, "Longest time a sector erase may take")
	fs.DurationVar(&configFlags.WriteDelay, "write-delay", configFlags.WriteDelay, "Longest time a flash write may take")
	fs.DurationVar(&configFlags.PollDelay, "poll-delay", configFlags.PollDelay, "Interval between flash status polls")
	fs.DurationVar(&configFlags.ControlTimeout, "control-timeout", configFlags.ControlTimeout, "Timeout of a single control transfer")
	fs.BoolVar(&configFlags.HasPublicKey, "public-key", false, "Hub firmware carries a public key, authenticate before entering ISP mode")
	fs.BoolVar(&configFlags.HasScaler, "scaler", false, "Hub has an MStar scaler attached")
}

// buildConfig merges the built-in quirks of the hub with any configuration
// flags given explicitly.
func buildConfig(a *app.App) (isp.Config, error) {
	fs := rootCmd.PersistentFlags()
	cfg := configFlags.ForDescription(a.Desc)

	for _, f := range []struct {
		name string
		val  *string
		dest *uint8
	}{
		{"switch-request", &flagSwitchRequest, &cfg.SwitchRequest},
		{"read-request", &flagReadRequest, &cfg.ReadRequest},
		{"write-request", &flagWriteRequest, &cfg.WriteRequest},
	} {
		if !fs.Changed(f.name) {
			continue
		}
		v, err := parseNumber[uint8](*f.val)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", f.name, err)
		}
		*f.dest = v
	}
	for _, f := range []struct {
		name string
		val  *string
		dest *uint32
	}{
		{"transfer-size", &flagTransferSize, &cfg.TransferSize},
		{"block-size", &flagBlockSize, &cfg.BlockSize},
		{"sector-size", &flagSectorSize, &cfg.SectorSize},
	} {
		v, err := parseNumber[uint32](*f.val)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", f.name, err)
		}
		if v == 0 {
			return cfg, fmt.Errorf("invalid %s: must not be zero", f.name)
		}
		*f.dest = v
	}
	return cfg, nil
}

type hub struct {
	*app.App
	dev  *isp.Device
	info *isp.Info
}

// openHub finds a hub, and runs setup on it. The hub is left in ISP mode.
func openHub(ctx context.Context) (*hub, error) {
	a, err := app.New()
	if err != nil {
		return nil, err
	}
	cfg, err := buildConfig(a)
	if err != nil {
		a.Close()
		return nil, err
	}
	dev, err := isp.New(a.Usb, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	info, err := dev.Setup(ctx, a.Desc)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("setup failed: %w", err)
	}
	return &hub{
		App:  a,
		dev:  dev,
		info: info,
	}, nil
}
