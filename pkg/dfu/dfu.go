// Package dfu implements the host side of the USB Device Firmware Update
// class protocol (DFU 1.1) together with the ST DFUSe vendor extension for
// addressable flash erase/program.
package dfu

import (
	"fmt"
	"time"
)

type Request uint8

const (
	RequestDetach    Request = 0
	RequestDnload    Request = 1
	RequestUpload    Request = 2
	RequestGetStatus Request = 3
	RequestClrStatus Request = 4
	RequestGetState  Request = 5
	RequestAbort     Request = 6
)

type Err uint8

const (
	ErrOk          Err = 0x00
	ErrTarget      Err = 0x01
	ErrFile        Err = 0x02
	ErrWrite       Err = 0x03
	ErrErase       Err = 0x04
	ErrCheckErased Err = 0x05
	ErrProg        Err = 0x06
	ErrVerify      Err = 0x07
	ErrAddress     Err = 0x08
	ErrNotDone     Err = 0x09
	ErrFirmware    Err = 0x0a
	ErrVendor      Err = 0x0b
	ErrUsbr        Err = 0x0c
	ErrPor         Err = 0x0d
	ErrUnknown     Err = 0x0e
	ErrStalledPkt  Err = 0x0f
)

func (e Err) String() string {
	switch e {
	case ErrOk:
		return "OK"
	case ErrTarget:
		return "errTARGET"
	case ErrFile:
		return "errFILE"
	case ErrWrite:
		return "errWRITE"
	case ErrErase:
		return "errERASE"
	case ErrCheckErased:
		return "errCHECK_ERASED"
	case ErrProg:
		return "errPROG"
	case ErrVerify:
		return "errVERIFY"
	case ErrAddress:
		return "errADDRESS"
	case ErrNotDone:
		return "errNOTDONE"
	case ErrFirmware:
		return "errFIRMWARE"
	case ErrVendor:
		return "errVENDOR"
	case ErrUsbr:
		return "errUSBR"
	case ErrPor:
		return "errPOR"
	case ErrUnknown:
		return "errUNKNOWN"
	case ErrStalledPkt:
		return "errSTALLEDPKT"
	}
	return "INVALID"
}

type State uint8

const (
	StateAppIdle           State = 0
	StateAppDetach         State = 1
	StateIdle              State = 2
	StateDnloadSync        State = 3
	StateDnBusy            State = 4
	StateDnloadIdle        State = 5
	StateManifestSync      State = 6
	StateManifest          State = 7
	StateManifestWaitReset State = 8
	StateUploadIdle        State = 9
	StateError             State = 10
)

func (d State) String() string {
	switch d {
	case StateAppIdle:
		return "appIDLE"
	case StateAppDetach:
		return "appDETACH"
	case StateIdle:
		return "dfuIDLE"
	case StateDnloadSync:
		return "dfuDNLOAD-SYNC"
	case StateDnBusy:
		return "dfuDNBUSY"
	case StateDnloadIdle:
		return "dfuDNLOAD-IDLE"
	case StateManifestSync:
		return "dfuMANIFEST-SYNC"
	case StateManifest:
		return "dfuMANIFEST"
	case StateManifestWaitReset:
		return "dfuMANIFEST-WAIT-RESET"
	case StateUploadIdle:
		return "dfuUPLOAD-IDLE"
	case StateError:
		return "dfuERROR"
	}
	return "UNKNOWN"
}

// Status is one GETSTATUS response. It reflects live device state and is
// read fresh on every call, never cached.
type Status struct {
	Err Err
	// PollTimeout is how long the device asks the host to wait before the
	// next GETSTATUS.
	PollTimeout time.Duration
	State       State
}

// ProtocolError is a device-reported failure: the transfer itself went
// through, but the device flagged a DFU-level error in its status.
type ProtocolError struct {
	State  State
	Status Err
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("device reported %s in state %s", e.Status, e.State)
}

// RecoveryError means the device would not return to dfuIDLE after
// ABORT/CLRSTATUS. Only a power cycle gets it unwedged.
type RecoveryError struct {
	State State
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("device stuck in state %s, power-cycle it and reconnect", e.State)
}
