package dfu

import (
	"fmt"
	"time"

	"github.com/openburn/dfuburn/pkg/devices"
)

type fakeBlock struct {
	num     uint16
	payload []byte
}

// fakeDevice emulates a DFUSe bootloader's state machine behind the
// devices.Usb interface.
type fakeDevice struct {
	state  State
	status Err

	// busyPolls makes every accepted data block report dfuDNBUSY this many
	// times before settling in dfuDNLOAD-IDLE.
	busyPolls   int
	pendingBusy int

	// errAtBlock, when non-negative, makes the data block with this number
	// be reported as failed (with failWith) on the following GETSTATUS.
	errAtBlock int
	failWith   Err
	errPending bool

	// disconnectAtBlock, when non-negative, drops the device off the bus on
	// the DNLOAD carrying this block number.
	disconnectAtBlock int

	// goneAfterManifest drops the device off the bus right after the
	// zero-length block, like a bootloader that resets on manifestation.
	goneAfterManifest bool

	// wedged keeps the device out of dfuIDLE even across ABORT/CLRSTATUS.
	wedged bool
	gone   bool

	// configDesc is served for standard GET_DESCRIPTOR reads.
	configDesc []byte

	pollTimeout  time.Duration
	blocks       []fakeBlock
	sawClrStatus bool
	sawDetach    bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		state:             StateIdle,
		errAtBlock:        -1,
		disconnectAtBlock: -1,
	}
}

func (f *fakeDevice) UseDefaultInterface() error            { return nil }
func (f *fakeDevice) SetControlTimeout(time.Duration) error { return nil }
func (f *fakeDevice) Close() error                          { return nil }

func (f *fakeDevice) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	if f.gone {
		return 0, devices.UsbDisconnectedError
	}
	switch rType {
	case requestTypeStandardIn:
		if request != requestGetDescriptor {
			return 0, fmt.Errorf("unexpected standard request %d", request)
		}
		return copy(data, f.configDesc), nil
	case requestTypeOut:
		return f.controlOut(Request(request), val, data)
	case requestTypeIn:
		return f.controlIn(Request(request), data)
	}
	return 0, fmt.Errorf("unexpected request type %#02x", rType)
}

func (f *fakeDevice) controlOut(req Request, val uint16, data []byte) (int, error) {
	switch req {
	case RequestDnload:
		if f.disconnectAtBlock >= 0 && int(val) == f.disconnectAtBlock {
			f.gone = true
			return 0, devices.UsbDisconnectedError
		}
		if f.state != StateIdle && f.state != StateDnloadIdle {
			f.status = ErrStalledPkt
			f.state = StateError
			return 0, fmt.Errorf("stall")
		}
		f.blocks = append(f.blocks, fakeBlock{num: val, payload: append([]byte(nil), data...)})
		if len(data) == 0 {
			f.state = StateManifestSync
			if f.goneAfterManifest {
				f.gone = true
			}
			return 0, nil
		}
		f.state = StateDnloadSync
		f.pendingBusy = f.busyPolls
		if f.errAtBlock >= 0 && int(val) == f.errAtBlock {
			f.errPending = true
		}
		return len(data), nil
	case RequestClrStatus:
		f.sawClrStatus = true
		if !f.wedged {
			f.status = ErrOk
			f.state = StateIdle
		}
		return 0, nil
	case RequestAbort:
		if !f.wedged && f.state != StateError {
			f.state = StateIdle
		}
		return 0, nil
	case RequestDetach:
		f.sawDetach = true
		return 0, nil
	}
	return 0, fmt.Errorf("unexpected OUT request %d", req)
}

func (f *fakeDevice) controlIn(req Request, data []byte) (int, error) {
	switch req {
	case RequestGetState:
		if len(data) < 1 {
			return 0, fmt.Errorf("short state read")
		}
		data[0] = byte(f.state)
		return 1, nil
	case RequestGetStatus:
		if len(data) < 6 {
			return 0, fmt.Errorf("short status read")
		}
		f.step()
		msec := uint32(f.pollTimeout / time.Millisecond)
		data[0] = byte(f.status)
		data[1] = byte(msec)
		data[2] = byte(msec >> 8)
		data[3] = byte(msec >> 16)
		data[4] = byte(f.state)
		data[5] = 0
		return 6, nil
	}
	return 0, fmt.Errorf("unexpected IN request %d", req)
}

// step advances the state machine the way a GETSTATUS read does on real
// hardware.
func (f *fakeDevice) step() {
	switch f.state {
	case StateDnloadSync, StateDnBusy:
		if f.pendingBusy > 0 {
			f.pendingBusy--
			f.state = StateDnBusy
			return
		}
		if f.errPending {
			f.errPending = false
			f.status = f.failWith
			f.state = StateError
			return
		}
		f.state = StateDnloadIdle
	case StateManifestSync, StateManifest:
		f.state = StateIdle
	}
}
