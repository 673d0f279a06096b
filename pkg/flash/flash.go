// Package flash composes the DFU protocol primitives into full flashing
// runs: page erases, address setup and image download per region, with
// transfer size fallback and wall-clock bounds per step.
package flash

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openburn/dfuburn/pkg/dfu"
)

// Region describes one flash area: the page-aligned addresses to erase and
// the base address data is streamed to.
type Region struct {
	EraseAddresses []uint32
	Base           uint32
}

// Step pairs a region with the image that goes there.
type Step struct {
	Name   string
	Region Region
	Image  []byte
}

// Plan is an ordered list of flash steps, executed front to back. The order
// and addresses come from the target's flash layout, not from the engine.
type Plan struct {
	Steps []Step

	// ManifestationTolerant is passed through to the block transfer engine.
	// DFUSe bootloaders stay resident until detach, so it defaults off.
	ManifestationTolerant bool

	// StepTimeout bounds each step's wall-clock time. Zero means no bound
	// beyond the caller's context.
	StepTimeout time.Duration

	// Progress receives per-step byte counts after every block.
	Progress func(step string, done, total int)
}

// TimeoutError reports that a plan step exceeded its wall-clock budget. The
// device session is left as-is; reconnecting the device is the usual remedy,
// not re-sending the image.
type TimeoutError struct {
	Step string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("step %q timed out, reconnect the device and retry", e.Step)
}

// stepPause gives the bootloader a moment to settle between regions.
const stepPause = 500 * time.Millisecond

// Run executes the plan: per step, erase every page of the region, set the
// address pointer, stream the image down the transfer size ladder. After the
// last step a DETACH is attempted and its failure ignored, as devices
// commonly drop off the bus instead of acking it.
func Run(ctx context.Context, sess *dfu.Session, plan Plan, sizes []int) error {
	for i, step := range plan.Steps {
		if i > 0 {
			time.Sleep(stepPause)
		}
		if err := await(ctx, plan.StepTimeout, step.Name, func() error {
			return runStep(sess, step, plan, sizes)
		}); err != nil {
			return err
		}
	}

	if err := sess.Detach(); err != nil {
		slog.Debug("Detach failed, device probably reset already", "err", err)
	}
	return nil
}

func runStep(sess *dfu.Session, step Step, plan Plan, sizes []int) error {
	slog.Info("Flashing", "step", step.Name, "base", fmt.Sprintf("0x%08x", step.Region.Base), "bytes", len(step.Image))
	for _, addr := range step.Region.EraseAddresses {
		slog.Info("Erasing page", "addr", fmt.Sprintf("0x%08x", addr))
		if err := sess.ErasePage(addr); err != nil {
			return err
		}
	}
	if err := sess.SetAddress(step.Region.Base); err != nil {
		return err
	}

	opts := dfu.DownloadOptions{
		ManifestationTolerant: plan.ManifestationTolerant,
	}
	if plan.Progress != nil {
		name := step.Name
		opts.Progress = func(done, total int) {
			plan.Progress(name, done, total)
		}
	}
	if err := download(sess, step.Image, sizes, opts); err != nil {
		return fmt.Errorf("download to 0x%08x: %w", step.Region.Base, err)
	}
	return nil
}

// await races fn against the step's wall-clock budget. On timeout the
// pending operation is abandoned, not cancelled: the engine is synchronous
// and the session may be mid-transfer, so cleanup is the caller's problem.
func await(ctx context.Context, timeout time.Duration, step string, fn func() error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if ctx.Err() == context.Canceled {
			return ctx.Err()
		}
		return &TimeoutError{Step: step}
	}
}
