package devices

import (
	"errors"
	"time"
)

// Usb describes a common API to access a target (in application or DFU mode)
// over USB. The protocol layers only ever talk to this interface; the gousb
// adapter lives in the command-line frontend.
type Usb interface {
	// UseDefaultInterface requests the underlying provider to grant access to
	// control transfers on the default interface. This is all the DFU
	// protocol ever needs.
	UseDefaultInterface() error

	// Control sends a control request to the device.
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)

	SetControlTimeout(time.Duration) error

	// Close disposes of this device. No other functions may be called on the
	// interface afterwards.
	Close() error
}

var (
	UsbTimeoutError = errors.New("USB timeout error")

	// UsbDisconnectedError means the device handle went away mid-transfer.
	// After a download this is usually the device rebooting into its new
	// firmware rather than a fault; see pkg/flash for the disambiguation.
	UsbDisconnectedError = errors.New("USB device disconnected")
)
