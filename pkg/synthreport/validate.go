package synthreport

import (
	"errors"
	"fmt"
	"regexp"
)

// Structural validation errors.
var (
	ErrNoFrames       = errors.New("report has no stack frames")
	ErrFrameIndex     = errors.New("frame indices are not exactly 0..n-1")
	ErrUnknownImage   = errors.New("frame references an image missing from the image table")
	ErrBadAddress     = errors.New("address is not fixed-width hex")
	ErrBadImageRange  = errors.New("image load range start is not below end")
	ErrMissingProcess = errors.New("report has no process name")
)

// hexAddrPattern is the fixed-width address format every address in a
// report must match.
var hexAddrPattern = regexp.MustCompile(`^0x[0-9a-f]{16}$`)

// Validate checks the structural invariants a report consumer relies
// on: a non-empty stack with gapless indices, an image table covering
// every frame, and fixed-width hex addresses throughout.
func (r *Report) Validate() error {
	if r.ProcessName == "" {
		return ErrMissingProcess
	}
	if len(r.StackFrames) == 0 {
		return ErrNoFrames
	}
	if !hexAddrPattern.MatchString(r.CrashAddress) {
		return fmt.Errorf("%w: crash address %q", ErrBadAddress, r.CrashAddress)
	}

	images := make(map[string]bool, len(r.BinaryImages))
	for _, img := range r.BinaryImages {
		if !hexAddrPattern.MatchString(img.LoadStart) || !hexAddrPattern.MatchString(img.LoadEnd) {
			return fmt.Errorf("%w: image %s range %s-%s", ErrBadAddress, img.ImageName, img.LoadStart, img.LoadEnd)
		}
		if img.LoadStart >= img.LoadEnd {
			// Fixed-width hex compares correctly as a string.
			return fmt.Errorf("%w: image %s", ErrBadImageRange, img.ImageName)
		}
		images[img.ImageName] = true
	}

	for i, frame := range r.StackFrames {
		if frame.Index != i {
			return fmt.Errorf("%w: frame %d has index %d", ErrFrameIndex, i, frame.Index)
		}
		if !images[frame.ImageName] {
			return fmt.Errorf("%w: frame %d image %q", ErrUnknownImage, i, frame.ImageName)
		}
		if !hexAddrPattern.MatchString(frame.Address) {
			return fmt.Errorf("%w: frame %d address %q", ErrBadAddress, i, frame.Address)
		}
	}
	return nil
}
