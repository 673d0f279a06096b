package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/openburn/dfuburn/pkg/dfu/image"
	"github.com/openburn/dfuburn/pkg/flash"
)

// readImage reads a firmware image from disk, transparently decompressing
// .xz files.
func readImage(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".xz") {
		r, err := xz.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("bad xz stream: %w", err)
		}
		return io.ReadAll(r)
	}
	return raw, nil
}

// planFromDfuSe turns a DfuSe container into a flash plan: one step per
// element, erase sets derived from each element's footprint.
func planFromDfuSe(f *image.File) (flash.Plan, error) {
	var plan flash.Plan
	for _, target := range f.Targets {
		// Only the flash target (alternate 0) is flashable here; option
		// bytes and OTP areas need different handling.
		if target.Alternate != 0 {
			continue
		}
		for i, e := range target.Elements {
			name := fmt.Sprintf("element %d", i)
			if target.Name != "" {
				name = fmt.Sprintf("%s/%d", target.Name, i)
			}
			plan.Steps = append(plan.Steps, flash.Step{
				Name:   name,
				Region: flash.RegionFor(e.Address, len(e.Data)),
				Image:  e.Data,
			})
		}
	}
	if len(plan.Steps) == 0 {
		return plan, fmt.Errorf("no flashable elements in DfuSe file")
	}
	return plan, nil
}
