package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/openburn/dfuburn/pkg/flash"
)

var (
	eraseAddress string
	erasePages   int
)

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase flash pages",
	Long:  "Erases consecutive flash pages starting at the page containing the given address. The bootloader only erases one page per command, so this issues one erase per page.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseNumber(eraseAddress)
		if err != nil {
			return fmt.Errorf("invalid address")
		}
		if erasePages < 1 {
			return fmt.Errorf("invalid page count %d", erasePages)
		}

		app, err := newDFU()
		if err != nil {
			return err
		}
		defer app.Close()

		for i := 0; i < erasePages; i++ {
			pageAddr := addr + uint32(i*flash.PageSize)
			slog.Info("Erasing page", "addr", fmt.Sprintf("0x%08x", pageAddr))
			if err := app.sess.ErasePage(pageAddr); err != nil {
				return err
			}
		}
		slog.Info("Erase complete.", "pages", erasePages)
		return nil
	},
}
