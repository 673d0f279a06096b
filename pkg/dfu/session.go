package dfu

import (
	"fmt"
	"time"

	"github.com/openburn/dfuburn/pkg/devices"
)

// bmRequestType values for class requests addressed to an interface.
const (
	requestTypeOut = 0x21
	requestTypeIn  = 0xa1
)

// Session owns an open device handle and the index of its DFU interface for
// the duration of a flashing run. All protocol traffic goes through it;
// nothing above this layer touches the transport directly. A session must
// not be shared between concurrent operations: DFU is a strictly half-duplex
// request/response protocol over one interface.
type Session struct {
	usb  devices.Usb
	intf uint16
}

func NewSession(usb devices.Usb, intf uint16) *Session {
	return &Session{usb: usb, intf: intf}
}

// Close releases the device handle. Best effort: a device that already
// dropped off the bus is not a close failure.
func (s *Session) Close() {
	s.usb.Close()
}

func (s *Session) requestOut(req Request, value uint16, data []byte) error {
	if _, err := s.usb.Control(requestTypeOut, uint8(req), value, s.intf, data); err != nil {
		return fmt.Errorf("control: %w", err)
	}
	return nil
}

func (s *Session) requestIn(req Request, value uint16, data []byte) (int, error) {
	n, err := s.usb.Control(requestTypeIn, uint8(req), value, s.intf, data)
	if err != nil {
		return 0, fmt.Errorf("control: %w", err)
	}
	return n, nil
}

func (s *Session) GetState() (State, error) {
	buf := make([]byte, 1)
	n, err := s.requestIn(RequestGetState, 0, buf)
	if err != nil {
		return StateError, err
	}
	if n != 1 {
		return StateError, fmt.Errorf("state returned %d bytes", n)
	}
	return State(buf[0]), nil
}

func (s *Session) GetStatus() (*Status, error) {
	buf := make([]byte, 6)
	n, err := s.requestIn(RequestGetStatus, 0, buf)
	if err != nil {
		return nil, err
	}
	if n != 6 {
		return nil, fmt.Errorf("status returned %d bytes", n)
	}
	timeoutMsec := uint32(buf[1]) | uint32(buf[2])<<8 | uint32(buf[3])<<16
	return &Status{
		Err:         Err(buf[0]),
		PollTimeout: time.Duration(timeoutMsec) * time.Millisecond,
		State:       State(buf[4]),
	}, nil
}

func (s *Session) ClearStatus() error {
	return s.requestOut(RequestClrStatus, 0, nil)
}

func (s *Session) Abort() error {
	return s.requestOut(RequestAbort, 0, nil)
}

// Detach asks the device to leave DFU mode. Bootloaders commonly reset
// instead of acking, so callers treat failure as advisory.
func (s *Session) Detach() error {
	return s.requestOut(RequestDetach, 0, nil)
}

// Dnload sends one download block. Payload semantics depend on the block
// number: in DFUSe mode block 0 carries vendor commands and image data
// starts at block 2.
func (s *Session) Dnload(blockNum uint16, data []byte) error {
	return s.requestOut(RequestDnload, blockNum, data)
}

// AbortToIdle is the canonical recovery path before starting any new command
// sequence: ABORT, then CLRSTATUS if the device sits in dfuERROR. Anything
// other than dfuIDLE afterwards means the device is wedged.
func (s *Session) AbortToIdle() error {
	if err := s.Abort(); err != nil {
		return fmt.Errorf("Abort: %w", err)
	}
	state, err := s.GetState()
	if err != nil {
		return fmt.Errorf("GetState: %w", err)
	}
	if state == StateError {
		if err := s.ClearStatus(); err != nil {
			return fmt.Errorf("ClrStatus: %w", err)
		}
		state, err = s.GetState()
		if err != nil {
			return fmt.Errorf("GetState: %w", err)
		}
	}
	if state != StateIdle {
		return &RecoveryError{State: state}
	}
	return nil
}

// PollUntil re-reads device status, sleeping the device-advertised poll
// timeout between reads, until the device reaches target or dfuERROR. The
// terminal status is returned either way; callers inspect Status.Err to tell
// success from a device-reported error. There is no bounded retry count
// here, wall-clock limits are imposed a layer up.
func (s *Session) PollUntil(target State) (*Status, error) {
	for {
		status, err := s.GetStatus()
		if err != nil {
			return nil, err
		}
		if status.State == target || status.State == StateError {
			return status, nil
		}
		time.Sleep(status.PollTimeout)
	}
}
