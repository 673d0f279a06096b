package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/gousb"
	"github.com/hashicorp/go-multierror"

	"github.com/openburn/dfuburn/pkg/devices"
	"github.com/openburn/dfuburn/pkg/dfu"
	"github.com/openburn/dfuburn/pkg/flash"
)

type desktopApp struct {
	ctx  *gousb.Context
	usb  *desktopUsb
	desc *devices.Description
	sess *dfu.Session
}

// desktopUsb implements pkg/devices.Usb on top of gousb/libusb.
type desktopUsb struct {
	usb  *gousb.Device
	done func()
}

func (d *desktopUsb) UseDefaultInterface() error {
	// DefaultInterface selects the active configuration, claims interface 0
	// and sets alternate 0, skipping whatever is already in effect. That is
	// exactly the (sole) interface DFUSe bootloaders expose.
	_, done, err := d.usb.DefaultInterface()
	if err != nil {
		return err
	}
	d.done = done
	return nil
}

func (d *desktopUsb) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	n, err := d.usb.Control(rType, request, val, idx, data)
	return n, mapTransportErr(err)
}

// mapTransportErr translates libusb error codes into the typed transport
// errors the protocol layers dispatch on. NO_DEVICE and IO both mean the
// handle went away mid-transfer; PIPE is a stall and must stay a plain
// transport error so it walks the size ladder instead of passing for a
// post-flash reboot.
func mapTransportErr(err error) error {
	switch err {
	case gousb.ErrorTimeout:
		return devices.UsbTimeoutError
	case gousb.ErrorNoDevice, gousb.ErrorIO:
		return devices.UsbDisconnectedError
	}
	return err
}

func (d *desktopUsb) SetControlTimeout(dur time.Duration) error {
	d.usb.ControlTimeout = dur
	return nil
}

func (d *desktopUsb) Close() error {
	if d.done != nil {
		d.done()
		d.done = nil
	}
	return d.usb.Close()
}

// newContext runs gousb context setup in a goroutine because it panics on
// hosts without a usable libusb.
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

func newDFU() (*desktopApp, error) {
	ctx, err := newContext()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize USB: %w", err)
	}

	var errs error
	for _, deviceDesc := range devices.Descriptions {
		usb, err := ctx.OpenDeviceWithVIDPID(deviceDesc.VID, deviceDesc.PIDs[devices.DFU])
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		if usb == nil {
			continue
		}

		du := &desktopUsb{usb: usb}
		if err := du.UseDefaultInterface(); err != nil {
			usb.Close()
			ctx.Close()
			return nil, fmt.Errorf("failed to claim DFU interface: %w", err)
		}
		du.SetControlTimeout(5 * time.Second)
		return &desktopApp{
			ctx:  ctx,
			usb:  du,
			desc: &deviceDesc,
			sess: dfu.NewSession(du, devices.DFUInterface),
		}, nil
	}
	ctx.Close()
	if errs == nil {
		return nil, fmt.Errorf("no device in DFU mode found")
	}
	return nil, errs
}

func (a *desktopApp) Close() {
	// Best effort: the device frequently resets out from under us after a
	// successful flash.
	a.usb.Close()
	a.ctx.Close()
}

// transferSizes probes the device's preferred transfer size from its
// descriptors and builds the fallback ladder from it.
func (a *desktopApp) transferSizes() []int {
	size, err := a.sess.TransferSize(0)
	if err != nil {
		slog.Debug("Could not read transfer size from descriptors", "err", err)
		size = dfu.DefaultTransferSize
	}
	slog.Debug("Preferred transfer size", "size", size)
	return flash.SizeLadder(int(size))
}
