package dfu

import (
	"encoding/binary"
	"fmt"

	"github.com/openburn/dfuburn/pkg/devices"
)

// DefaultTransferSize is assumed when the device advertises no DFU
// functional descriptor.
const DefaultTransferSize = 2048

// Standard descriptor plumbing used to fetch the configuration descriptor.
const (
	requestTypeStandardIn = 0x80
	requestGetDescriptor  = 0x06

	descTypeConfiguration = 0x02
	descTypeInterface     = 0x04
	descTypeDFUFunctional = 0x21
)

// ParseTransferSize walks a raw configuration descriptor and returns the
// wTransferSize advertised by the DFU functional descriptor of the given
// interface/alternate. Each record self-describes its length and type; the
// walk tracks whether it is inside the target interface and picks up the
// first functional descriptor seen there. Malformed or truncated input, or
// no matching descriptor, yields DefaultTransferSize rather than an error.
func ParseTransferSize(desc []byte, intf, alt uint8) uint16 {
	inTarget := false
	for off := 0; off+2 <= len(desc); {
		length := int(desc[off])
		typ := desc[off+1]
		if length < 2 || off+length > len(desc) {
			break
		}
		switch typ {
		case descTypeInterface:
			if length < 8 {
				inTarget = false
				break
			}
			inTarget = desc[off+2] == intf &&
				desc[off+3] == alt &&
				desc[off+5] == devices.DFUClass &&
				desc[off+6] == devices.DFUSubClass &&
				desc[off+7] == devices.DFUProtocolMode
		case descTypeDFUFunctional:
			if inTarget {
				if length < 7 {
					return DefaultTransferSize
				}
				return binary.LittleEndian.Uint16(desc[off+5 : off+7])
			}
		}
		off += length
	}
	return DefaultTransferSize
}

// TransferSize reads the device's configuration descriptor and extracts the
// preferred transfer size for this session's interface at the given
// alternate setting. Two device reads: a 4-byte header to learn the total
// descriptor length, then the full thing.
func (s *Session) TransferSize(alt uint8) (uint16, error) {
	hdr := make([]byte, 4)
	if _, err := s.usb.Control(requestTypeStandardIn, requestGetDescriptor, descTypeConfiguration<<8, 0, hdr); err != nil {
		return 0, fmt.Errorf("descriptor header: %w", err)
	}
	totalLen := binary.LittleEndian.Uint16(hdr[2:4])
	if totalLen == 0 {
		return DefaultTransferSize, nil
	}
	full := make([]byte, totalLen)
	n, err := s.usb.Control(requestTypeStandardIn, requestGetDescriptor, descTypeConfiguration<<8, 0, full)
	if err != nil {
		return 0, fmt.Errorf("descriptor: %w", err)
	}
	return ParseTransferSize(full[:n], uint8(s.intf), alt), nil
}
