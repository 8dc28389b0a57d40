// Package backup keeps copies of hub firmware banks on the host before they
// are overwritten.
package backup

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/golang/glog"

	"github.com/hubisp/glhub/pkg/devices"
	"github.com/hubisp/glhub/pkg/isp"
)

const timeFormat = "20060102-150405"

// Reader reads hub flash. Implemented by isp.Device.
type Reader interface {
	Read(ctx context.Context, addr, length uint32, progress isp.Progress) ([]byte, error)
}

func pathFor(chip devices.Chip, bank devices.Bank, t time.Time) string {
	parts := []string{
		xdg.DataHome,
		"glhub",
		fmt.Sprintf("%s-%s-%s.bin", chip.ICType(), bank, t.UTC().Format(timeFormat)),
	}
	return path.Join(parts...)
}

// Save writes the contents of a bank to the backup directory and returns
// the path written.
func Save(chip devices.Chip, bank devices.Bank, data []byte, t time.Time) (string, error) {
	fspath := pathFor(chip, bank, t)
	if err := os.MkdirAll(filepath.Dir(fspath), 0755); err != nil {
		return "", fmt.Errorf("could not create backup directory: %w", err)
	}
	if err := os.WriteFile(fspath, data, 0644); err != nil {
		return "", fmt.Errorf("could not write backup: %w", err)
	}
	return fspath, nil
}

// SaveBanks reads the hub firmware region of every bank the hub has and
// saves it.
func SaveBanks(ctx context.Context, r Reader, info *isp.Info, t time.Time) ([]string, error) {
	banks := []devices.Bank{devices.Bank1}
	if info.Map.DualBank {
		banks = append(banks, devices.Bank2)
	}
	var res []string
	for _, bank := range banks {
		data, err := r.Read(ctx, info.Map.Addr(bank, devices.FwTypeHub), info.FirmwareSizeMax(), nil)
		if err != nil {
			return res, fmt.Errorf("reading %s: %w", bank, err)
		}
		p, err := Save(info.Chip, bank, data, t)
		if err != nil {
			return res, err
		}
		glog.Infof("Saved %s to %s", bank, p)
		res = append(res, p)
	}
	return res, nil
}
