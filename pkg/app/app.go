// Package app finds a supported hub on the host's USB buses and exposes it
// through devices.Usb.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/google/gousb"
	"github.com/hashicorp/go-multierror"

	"github.com/hubisp/glhub/pkg/devices"
)

// hostUsb is a hub opened through libusb.
type hostUsb struct {
	usb *gousb.Device
}

func (d *hostUsb) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	return d.usb.Control(rType, request, val, idx, data)
}

func (d *hostUsb) SetControlTimeout(dur time.Duration) error {
	d.usb.ControlTimeout = dur
	return nil
}

func (d *hostUsb) Release() uint16 {
	return uint16(d.usb.Desc.Device)
}

func (d *hostUsb) Spec() uint16 {
	return uint16(d.usb.Desc.Spec)
}

func (d *hostUsb) Close() error {
	return d.usb.Close()
}

type App struct {
	ctx  *gousb.Context
	Usb  devices.Usb
	Desc *devices.Description
}

func (a *App) Close() error {
	var errs error
	if a.Usb != nil {
		if err := a.Usb.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("when closing USB device: %w", err))
		}
		a.Usb = nil
	}
	if err := a.ctx.Close(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("when closing context: %w", err))
	}
	return errs
}

func newContext() (*gousb.Context, error) {
	resC := make(chan *gousb.Context)
	errC := make(chan error)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				errC <- fmt.Errorf("%v", r)
			}
		}()

		resC <- gousb.NewContext()
	}()

	select {
	case err := <-errC:
		return nil, err
	case res := <-resC:
		return res, nil
	}
}

// New opens the first known hub found on the bus.
func New() (*App, error) {
	ctx, err := newContext()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize USB: %w", err)
	}

	var errs error
	for i := range devices.Descriptions {
		desc := &devices.Descriptions[i]
		usb, err := ctx.OpenDeviceWithVIDPID(gousb.ID(desc.VID), gousb.ID(desc.PID))
		if err != nil {
			errs = multierror.Append(errs, err)
		}

		if usb == nil {
			continue
		}

		glog.V(1).Infof("Opened %s %s (%04x:%04x)", desc.Vendor, desc.Name, desc.VID, desc.PID)
		return &App{
			ctx:  ctx,
			Usb:  &hostUsb{usb: usb},
			Desc: desc,
		}, nil
	}
	ctx.Close()
	if errs == nil {
		return nil, fmt.Errorf("no device found")
	}
	return nil, errs
}

// WaitReplug waits for the hub to come back after a reset, and reopens it.
// The previous device handle is closed.
func (a *App) WaitReplug(ctx context.Context) error {
	if a.Usb != nil {
		a.Usb.Close()
		a.Usb = nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}

		usb, err := a.ctx.OpenDeviceWithVIDPID(gousb.ID(a.Desc.VID), gousb.ID(a.Desc.PID))
		if err != nil {
			glog.V(1).Infof("Waiting for hub: %v", err)
			continue
		}
		if usb != nil {
			a.Usb = &hostUsb{usb: usb}
			return nil
		}
	}
}
