// Package image parses ST's DfuSe container format (UM0391): a "DfuSe"
// prefix, one or more targets made of {address, data} elements, and a
// CRC-protected DFU suffix.
package image

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

const (
	prefixLength       = 11
	targetPrefixLength = 274
	suffixLength       = 16

	prefixVersion = 0x01
)

var (
	prefixSignature = []byte("DfuSe")
	targetSignature = []byte("Target")
	suffixSignature = []byte("UFD")
)

// Element is one contiguous chunk of target memory.
type Element struct {
	Address uint32
	Data    []byte
}

// Target groups the elements destined for one alternate setting.
type Target struct {
	Alternate uint8
	Name      string
	Elements  []Element
}

// File is a parsed DfuSe container.
type File struct {
	Targets []Target
	// VID/PID from the suffix; 0xffff means "any device".
	VID, PID uint16
}

// IsDfuSe reports whether raw looks like a DfuSe container rather than a
// bare firmware image.
func IsDfuSe(raw []byte) bool {
	return bytes.HasPrefix(raw, prefixSignature)
}

// suffixCRC is the DFU suffix checksum: CRC-32 over everything but the CRC
// field itself, stored without the final inversion.
func suffixCRC(raw []byte) uint32 {
	return ^crc32.ChecksumIEEE(raw)
}

// Parse decodes a DfuSe container and verifies its suffix CRC.
func Parse(raw []byte) (*File, error) {
	if len(raw) < prefixLength+suffixLength {
		return nil, fmt.Errorf("file too short (%d bytes)", len(raw))
	}
	if !bytes.HasPrefix(raw, prefixSignature) {
		return nil, fmt.Errorf("missing DfuSe signature")
	}
	if raw[5] != prefixVersion {
		return nil, fmt.Errorf("unsupported DfuSe version %d", raw[5])
	}

	suffix := raw[len(raw)-suffixLength:]
	if !bytes.Equal(suffix[8:11], suffixSignature) {
		return nil, fmt.Errorf("missing DFU suffix")
	}
	wantCRC := binary.LittleEndian.Uint32(suffix[12:16])
	if gotCRC := suffixCRC(raw[:len(raw)-4]); gotCRC != wantCRC {
		return nil, fmt.Errorf("suffix CRC mismatch: got %08x, want %08x", gotCRC, wantCRC)
	}

	f := &File{
		PID: binary.LittleEndian.Uint16(suffix[2:4]),
		VID: binary.LittleEndian.Uint16(suffix[4:6]),
	}

	imageSize := binary.LittleEndian.Uint32(raw[6:10])
	if int(imageSize) > len(raw)-suffixLength {
		return nil, fmt.Errorf("image size %d exceeds file", imageSize)
	}
	numTargets := int(raw[10])

	off := prefixLength
	for i := 0; i < numTargets; i++ {
		if off+targetPrefixLength > int(imageSize) {
			return nil, fmt.Errorf("target %d: truncated target prefix", i)
		}
		tp := raw[off : off+targetPrefixLength]
		if !bytes.HasPrefix(tp, targetSignature) {
			return nil, fmt.Errorf("target %d: missing Target signature", i)
		}
		target := Target{
			Alternate: tp[6],
		}
		if named := binary.LittleEndian.Uint32(tp[7:11]); named != 0 {
			name := tp[11:266]
			if end := bytes.IndexByte(name, 0); end >= 0 {
				name = name[:end]
			}
			target.Name = string(name)
		}
		targetSize := int(binary.LittleEndian.Uint32(tp[266:270]))
		numElements := int(binary.LittleEndian.Uint32(tp[270:274]))
		off += targetPrefixLength

		end := off + targetSize
		if end > int(imageSize) {
			return nil, fmt.Errorf("target %d: size %d exceeds image", i, targetSize)
		}
		for j := 0; j < numElements; j++ {
			if off+8 > end {
				return nil, fmt.Errorf("target %d element %d: truncated element header", i, j)
			}
			addr := binary.LittleEndian.Uint32(raw[off : off+4])
			size := int(binary.LittleEndian.Uint32(raw[off+4 : off+8]))
			off += 8
			if off+size > end {
				return nil, fmt.Errorf("target %d element %d: %d data bytes exceed target", i, j, size)
			}
			target.Elements = append(target.Elements, Element{
				Address: addr,
				Data:    raw[off : off+size],
			})
			off += size
		}
		if off != end {
			return nil, fmt.Errorf("target %d: %d trailing bytes", i, end-off)
		}
		f.Targets = append(f.Targets, target)
	}

	return f, nil
}
