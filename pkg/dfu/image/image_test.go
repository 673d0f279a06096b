package image

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildTarget(alt uint8, name string, elements []Element) []byte {
	var elemBytes []byte
	for _, e := range elements {
		hdr := make([]byte, 8)
		binary.LittleEndian.PutUint32(hdr[0:4], e.Address)
		binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(e.Data)))
		elemBytes = append(elemBytes, hdr...)
		elemBytes = append(elemBytes, e.Data...)
	}
	tp := make([]byte, targetPrefixLength)
	copy(tp, targetSignature)
	tp[6] = alt
	if name != "" {
		binary.LittleEndian.PutUint32(tp[7:11], 1)
		copy(tp[11:266], name)
	}
	binary.LittleEndian.PutUint32(tp[266:270], uint32(len(elemBytes)))
	binary.LittleEndian.PutUint32(tp[270:274], uint32(len(elements)))
	return append(tp, elemBytes...)
}

func buildFile(targets ...[]byte) []byte {
	body := make([]byte, prefixLength)
	copy(body, prefixSignature)
	body[5] = prefixVersion
	for _, t := range targets {
		body = append(body, t...)
	}
	binary.LittleEndian.PutUint32(body[6:10], uint32(len(body)))
	body[10] = byte(len(targets))

	suffix := make([]byte, suffixLength)
	binary.LittleEndian.PutUint16(suffix[0:2], 0x2200)
	binary.LittleEndian.PutUint16(suffix[2:4], 0xdf11)
	binary.LittleEndian.PutUint16(suffix[4:6], 0x0483)
	binary.LittleEndian.PutUint16(suffix[6:8], 0x011a)
	copy(suffix[8:11], suffixSignature)
	suffix[11] = suffixLength

	full := append(body, suffix...)
	crc := suffixCRC(full[:len(full)-4])
	binary.LittleEndian.PutUint32(full[len(full)-4:], crc)
	return full
}

func TestParse(t *testing.T) {
	main := Element{Address: 0x08004000, Data: bytes.Repeat([]byte{0xaa}, 300)}
	stub := Element{Address: 0x08000000, Data: bytes.Repeat([]byte{0x55}, 64)}
	raw := buildFile(buildTarget(0, "Internal Flash", []Element{main, stub}))

	f, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.VID != 0x0483 || f.PID != 0xdf11 {
		t.Errorf("ids: got %04x:%04x, want 0483:df11", f.VID, f.PID)
	}
	if len(f.Targets) != 1 {
		t.Fatalf("targets: got %d, want 1", len(f.Targets))
	}
	tgt := f.Targets[0]
	if tgt.Alternate != 0 {
		t.Errorf("alternate: got %d, want 0", tgt.Alternate)
	}
	if tgt.Name != "Internal Flash" {
		t.Errorf("name: got %q, want %q", tgt.Name, "Internal Flash")
	}
	if len(tgt.Elements) != 2 {
		t.Fatalf("elements: got %d, want 2", len(tgt.Elements))
	}
	if e := tgt.Elements[0]; e.Address != 0x08004000 || !bytes.Equal(e.Data, main.Data) {
		t.Errorf("element 0: address %08x, %d bytes", e.Address, len(e.Data))
	}
	if e := tgt.Elements[1]; e.Address != 0x08000000 || !bytes.Equal(e.Data, stub.Data) {
		t.Errorf("element 1: address %08x, %d bytes", e.Address, len(e.Data))
	}
}

func TestParseMultipleTargets(t *testing.T) {
	raw := buildFile(
		buildTarget(0, "", []Element{{Address: 0x08000000, Data: []byte{1, 2, 3}}}),
		buildTarget(1, "Option Bytes", []Element{{Address: 0x1ffff800, Data: []byte{4}}}),
	)
	f, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.Targets) != 2 {
		t.Fatalf("targets: got %d, want 2", len(f.Targets))
	}
	if f.Targets[0].Name != "" {
		t.Errorf("unnamed target got name %q", f.Targets[0].Name)
	}
	if f.Targets[1].Alternate != 1 || f.Targets[1].Name != "Option Bytes" {
		t.Errorf("target 1: alt %d name %q", f.Targets[1].Alternate, f.Targets[1].Name)
	}
}

func TestParseRejectsBadCRC(t *testing.T) {
	raw := buildFile(buildTarget(0, "", []Element{{Address: 0x08000000, Data: []byte{1}}}))
	raw[20] ^= 0xff
	if _, err := Parse(raw); err == nil {
		t.Fatalf("Parse accepted corrupted file")
	}
}

func TestParseRejectsBadSignature(t *testing.T) {
	raw := buildFile(buildTarget(0, "", nil))
	copy(raw, "NotIt")
	if _, err := Parse(raw); err == nil {
		t.Fatalf("Parse accepted bad signature")
	}
}

func TestParseRejectsTruncated(t *testing.T) {
	raw := buildFile(buildTarget(0, "", []Element{{Address: 0x08000000, Data: []byte{1, 2, 3}}}))
	if _, err := Parse(raw[:len(raw)-suffixLength-2]); err == nil {
		t.Fatalf("Parse accepted truncated file")
	}
}

func TestIsDfuSe(t *testing.T) {
	if !IsDfuSe([]byte("DfuSe whatever")) {
		t.Errorf("IsDfuSe rejected DfuSe prefix")
	}
	if IsDfuSe([]byte{0x00, 0x20, 0x00, 0x20}) {
		t.Errorf("IsDfuSe accepted raw image")
	}
}
