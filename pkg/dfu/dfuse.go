package dfu

import (
	"encoding/binary"
	"fmt"
)

// DFUSe vendor opcodes, sent as pseudo downloads to block 0.
const (
	dfuseOpSetAddress byte = 0x21
	dfuseOpErase      byte = 0x41
)

// vendorCommand runs one 5-byte DFUSe command: recover to dfuIDLE, send
// {opcode, 32-bit LE address} as block 0, wait for the device to chew on it.
func (s *Session) vendorCommand(op byte, addr uint32) error {
	if err := s.AbortToIdle(); err != nil {
		return err
	}
	cmd := make([]byte, 5)
	cmd[0] = op
	binary.LittleEndian.PutUint32(cmd[1:], addr)
	if err := s.Dnload(0, cmd); err != nil {
		return err
	}
	status, err := s.PollUntil(StateDnloadIdle)
	if err != nil {
		return err
	}
	if status.Err != ErrOk {
		return &ProtocolError{State: status.State, Status: status.Err}
	}
	return nil
}

// SetAddress points the device's address pointer at addr. Data blocks sent
// afterwards land at addr + (blockNum-2)*transferSize. Must be issued after
// all erases for a region and immediately before streaming its data.
func (s *Session) SetAddress(addr uint32) error {
	if err := s.vendorCommand(dfuseOpSetAddress, addr); err != nil {
		return fmt.Errorf("set address 0x%08x: %w", addr, err)
	}
	return nil
}

// ErasePage erases the single flash page containing addr. There is no
// multi-page primitive; callers erase a region one page at a time.
func (s *Session) ErasePage(addr uint32) error {
	if err := s.vendorCommand(dfuseOpErase, addr); err != nil {
		return fmt.Errorf("erase 0x%08x: %w", addr, err)
	}
	return nil
}
