package isp

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Dump reads the whole flash chip. The hub is reset afterwards, even if the
// read fails.
func (d *Device) Dump(ctx context.Context, progress Progress) ([]byte, error) {
	if d.info == nil || d.info.Flash == nil {
		return nil, fmt.Errorf("hub not set up")
	}
	if err := d.Enter(); err != nil {
		return nil, err
	}

	var errs error
	data, err := d.Read(ctx, 0, d.info.Flash.Size, progress)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("reading flash: %w", err))
	}
	if err := d.Exit(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if errs != nil {
		return nil, errs
	}
	return data, nil
}
