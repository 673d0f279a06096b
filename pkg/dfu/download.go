package dfu

import (
	"fmt"
)

// FirstDataBlock is where image data starts in DFUSe mode: blocks 0 and 1
// are reserved for vendor commands.
const FirstDataBlock uint16 = 2

type DownloadOptions struct {
	// TransferSize caps each DNLOAD payload. Must be positive; devices
	// advertise their preference in the DFU functional descriptor.
	TransferSize int

	// FirstBlock overrides the starting block number. Zero means
	// FirstDataBlock.
	FirstBlock uint16

	// ManifestationTolerant, when set, waits for the device to return to
	// dfuIDLE after the final zero-length block. When unset, a single
	// best-effort status read nudges manifestation along and its failure is
	// ignored: the device may reset and drop off the bus instead of
	// answering, which is expected.
	ManifestationTolerant bool

	// Progress, if non-nil, is called with (sent, total) bytes once up front
	// and after every block.
	Progress func(done, total int)
}

// Download streams image to the device in TransferSize'd blocks with
// monotonically increasing block numbers, then terminates the image with a
// zero-length block.
func (s *Session) Download(image []byte, opts DownloadOptions) error {
	if opts.TransferSize <= 0 {
		return fmt.Errorf("invalid transfer size %d", opts.TransferSize)
	}
	blockNum := opts.FirstBlock
	if blockNum == 0 {
		blockNum = FirstDataBlock
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(done, total int) {}
	}

	if err := s.AbortToIdle(); err != nil {
		return err
	}

	total := len(image)
	progress(0, total)

	sent := 0
	for sent < total {
		chunk := image[sent:]
		if len(chunk) > opts.TransferSize {
			chunk = chunk[:opts.TransferSize]
		}
		if err := s.Dnload(blockNum, chunk); err != nil {
			return fmt.Errorf("block %d: %w", blockNum, err)
		}
		status, err := s.PollUntil(StateDnloadIdle)
		if err != nil {
			return fmt.Errorf("block %d: %w", blockNum, err)
		}
		if status.Err != ErrOk {
			return fmt.Errorf("block %d: %w", blockNum, &ProtocolError{State: status.State, Status: status.Err})
		}
		sent += len(chunk)
		blockNum += 1
		progress(sent, total)
	}

	// Zero-length download, completing the image.
	if err := s.Dnload(blockNum, nil); err != nil {
		return fmt.Errorf("final block %d: %w", blockNum, err)
	}

	if opts.ManifestationTolerant {
		status, err := s.PollUntil(StateIdle)
		if err != nil {
			return fmt.Errorf("manifest: %w", err)
		}
		if status.Err != ErrOk {
			return fmt.Errorf("manifest: %w", &ProtocolError{State: status.State, Status: status.Err})
		}
		return nil
	}

	// Kick off manifestation with one status read. The device may already
	// be resetting.
	s.GetStatus()
	return nil
}
