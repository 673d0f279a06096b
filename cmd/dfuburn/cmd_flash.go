package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/openburn/dfuburn/pkg/dfu/image"
	"github.com/openburn/dfuburn/pkg/flash"
)

const defaultStepTimeout = 60 * time.Second

var flashStepTimeout time.Duration

var flashCmd = &cobra.Command{
	Use:   "flash [main.bin bootstub.bin | image.dfu]",
	Short: "Flash firmware onto a connected device",
	Long: `Flashes firmware onto a connected device in DFU mode. Takes either an
application/bootstub image pair for the stock flash layout, or a single DfuSe
container whose layout is taken from the file. Covered pages are erased
first. Expect the device to reboot on its own when done.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var plan flash.Plan
		if len(args) == 1 {
			raw, err := readImage(args[0])
			if err != nil {
				return fmt.Errorf("could not read image: %w", err)
			}
			f, err := image.Parse(raw)
			if err != nil {
				return fmt.Errorf("could not parse DfuSe file: %w", err)
			}
			plan, err = planFromDfuSe(f)
			if err != nil {
				return err
			}
		} else {
			mainImage, err := readImage(args[0])
			if err != nil {
				return fmt.Errorf("could not read main image: %w", err)
			}
			bootstub, err := readImage(args[1])
			if err != nil {
				return fmt.Errorf("could not read bootstub image: %w", err)
			}
			plan = flash.ReferencePlan(mainImage, bootstub)
		}
		plan.StepTimeout = flashStepTimeout
		plan.Progress = func(step string, done, total int) {
			slog.Info("Progress", "step", step, "done", done, "total", total)
		}

		app, err := newDFU()
		if err != nil {
			return err
		}
		defer app.Close()
		slog.Info("Found device in DFU mode", "device", app.desc.Kind)

		if err := flash.Run(cmd.Context(), app.sess, plan, app.transferSizes()); err != nil {
			return err
		}
		slog.Info("Flashing complete.")
		return nil
	},
}
