package flash

import (
	"errors"
	"log/slog"

	"github.com/openburn/dfuburn/pkg/devices"
	"github.com/openburn/dfuburn/pkg/dfu"
)

// fallbackSizes are tried, in order, when a transfer with the device's
// advertised size fails. Some bootloaders stall on large blocks and only
// make progress with smaller ones.
var fallbackSizes = []int{1024, 512, 256}

// SizeLadder builds the descending list of candidate transfer sizes,
// seeded by the device-advertised preference. Each size appears once.
func SizeLadder(preferred int) []int {
	if preferred <= 0 {
		preferred = dfu.DefaultTransferSize
	}
	ladder := []int{preferred}
	for _, s := range fallbackSizes {
		if s < preferred {
			ladder = append(ladder, s)
		}
	}
	return ladder
}

// downloader lets tests substitute the block transfer engine.
type downloader interface {
	Download(image []byte, opts dfu.DownloadOptions) error
}

// Download streams image through sess, walking down the transfer size ladder
// on failure. Disconnects are ambiguous: once manifestation completes the
// device resets itself, which the host sees exactly like a fault. The rule,
// kept deliberately as-is: a disconnect on any size but the first means the
// device rebooted and the flash took; a disconnect on the very first attempt
// is treated as transient and the next smaller size is tried; once the
// ladder runs out, a final disconnect still counts as success provided more
// than one size was attempted. A disconnect on the first and only attempt,
// with no prior negotiated size, is a hard failure like anything else.
func Download(sess *dfu.Session, image []byte, sizes []int, opts dfu.DownloadOptions) error {
	return download(sess, image, sizes, opts)
}

func download(sess downloader, image []byte, sizes []int, opts dfu.DownloadOptions) error {
	var lastErr error
	for i, size := range sizes {
		opts.TransferSize = size
		err := sess.Download(image, opts)
		if err == nil {
			return nil
		}
		if errors.Is(err, devices.UsbDisconnectedError) && i > 0 {
			slog.Debug("Device disconnected after earlier attempts, assuming post-flash reboot", "size", size)
			return nil
		}
		slog.Debug("Transfer attempt failed", "size", size, "err", err)
		lastErr = err
	}
	if len(sizes) > 1 && errors.Is(lastErr, devices.UsbDisconnectedError) {
		return nil
	}
	return lastErr
}
