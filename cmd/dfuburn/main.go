package main

import (
	"flag"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   "dfuburn",
	Short: "dfuburn flashes firmware onto DFUSe-capable devices",
	Long: `Flashes firmware images onto devices running the ST DFUSe bootloader
(USB DFU 1.1 with the vendor erase/set-address extension), driving page
erase, address setup and block download over USB control transfers.`,
	SilenceUsage: true,
}

var verboseLog bool

func main() {
	flashCmd.Flags().DurationVarP(&flashStepTimeout, "timeout", "t", defaultStepTimeout, "Wall-clock budget per flashing phase")
	downloadCmd.Flags().StringVarP(&downloadAddress, "address", "a", "0x08004000", "Target base address")
	downloadCmd.Flags().DurationVarP(&downloadTimeout, "timeout", "t", defaultStepTimeout, "Wall-clock budget for the download")
	downloadCmd.Flags().BoolVarP(&downloadNoErase, "no-erase", "n", false, "Skip erasing the pages covering the image")
	eraseCmd.Flags().StringVarP(&eraseAddress, "address", "a", "0x08000000", "Address of the first page to erase")
	eraseCmd.Flags().IntVarP(&erasePages, "pages", "p", 1, "Number of consecutive pages to erase")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&verboseLog, "verbose", "v", false, "Enable verbose debug logging")
	cobra.OnInitialize(func() {
		if verboseLog {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	})
	rootCmd.AddCommand(flashCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(eraseCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(detachCmd)
	rootCmd.Execute()
}

func init() {
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
}

// parseNumber accepts 0x-prefixed or decimal addresses, falling back to
// bare hex ("df11", "0800C000") since that is how flash addresses are
// usually quoted.
func parseNumber(s string) (uint32, error) {
	res, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		res, err = strconv.ParseUint(s, 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", s)
		}
	}
	return uint32(res), nil
}
