package devices

import (
	"github.com/google/gousb"
)

// InterfaceKind distinguishes the two USB presentations of the same physical
// device: the application firmware and the resident DFUSe bootloader.
type InterfaceKind string

const (
	App InterfaceKind = "app"
	DFU InterfaceKind = "dfu"
)

// DFU class signature, as carried in interface descriptors.
const (
	DFUClass           = 0xfe
	DFUSubClass        = 0x01
	DFUProtocolRuntime = 0x01
	DFUProtocolMode    = 0x02
)

// DFUInterface is the interface number DFUSe bootloaders expose their
// functional descriptor on.
const DFUInterface uint16 = 0

type Kind string

const (
	F4 Kind = "stm32f4"
)

func (k Kind) String() string {
	switch k {
	case F4:
		return "STM32F4"
	}
	return "UNKNOWN"
}

type Description struct {
	VID  gousb.ID
	PIDs map[InterfaceKind]gousb.ID
	Kind Kind
}

var Descriptions = []Description{
	{
		VID: 0x0483,
		PIDs: map[InterfaceKind]gousb.ID{
			// CDC ACM in the application, the ST bootloader in DFU mode.
			App: 0x5740,
			DFU: 0xdf11,
		},
		Kind: F4,
	},
}
