package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/openburn/dfuburn/pkg/flash"
)

var (
	downloadAddress string
	downloadTimeout time.Duration
	downloadNoErase bool
)

var downloadCmd = &cobra.Command{
	Use:   "download [image]",
	Short: "Download a single image to an address",
	Long:  "Streams one raw firmware image to the given flash address, erasing the pages it covers first unless told otherwise.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseNumber(downloadAddress)
		if err != nil {
			return fmt.Errorf("invalid address")
		}
		img, err := readImage(args[0])
		if err != nil {
			return fmt.Errorf("could not read image: %w", err)
		}

		region := flash.RegionFor(addr, len(img))
		if downloadNoErase {
			region.EraseAddresses = nil
		}
		plan := flash.Plan{
			Steps: []flash.Step{
				{Name: "image", Region: region, Image: img},
			},
			StepTimeout: downloadTimeout,
			Progress: func(step string, done, total int) {
				slog.Info("Progress", "done", done, "total", total)
			},
		}

		app, err := newDFU()
		if err != nil {
			return err
		}
		defer app.Close()

		if err := flash.Run(cmd.Context(), app.sess, plan, app.transferSizes()); err != nil {
			return err
		}
		slog.Info("Download complete.", "addr", fmt.Sprintf("0x%08x", addr), "bytes", len(img))
		return nil
	},
}
