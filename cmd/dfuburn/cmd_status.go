package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show DFU state of a connected device",
	Long:  "Reads and prints the device's DFU state, last status and the transfer size it advertises in its descriptors.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newDFU()
		if err != nil {
			return err
		}
		defer app.Close()

		status, err := app.sess.GetStatus()
		if err != nil {
			return fmt.Errorf("could not get status: %w", err)
		}
		size, err := app.sess.TransferSize(0)
		if err != nil {
			return fmt.Errorf("could not get transfer size: %w", err)
		}

		fmt.Printf("      Device: %s\n", app.desc.Kind)
		fmt.Printf("       State: %s\n", status.State)
		fmt.Printf("      Status: %s\n", status.Err)
		fmt.Printf(" PollTimeout: %s\n", status.PollTimeout)
		fmt.Printf("TransferSize: %d\n", size)
		return nil
	},
}
