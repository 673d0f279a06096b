package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var detachCmd = &cobra.Command{
	Use:   "detach",
	Short: "Ask the device to leave DFU mode",
	Long:  "Sends a DFU DETACH request. Most bootloaders reset into the application instead of acking, so a transfer error here usually means it worked.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newDFU()
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.sess.Detach(); err != nil {
			slog.Info("Detach not acked, device likely reset.", "err", err)
			return nil
		}
		slog.Info("Detach sent.")
		return nil
	},
}
