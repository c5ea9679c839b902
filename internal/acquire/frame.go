// Package acquire implements the streaming photon-counting pipeline: the
// dark-baseline calibration state machine, the centered-ROI reduction, the
// bounded history buffer consumed by the display, and the runner that drives
// one full pipeline pass per frame tick.
package acquire

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoFrame is returned by a FrameSource when no complete frame arrived
// within the acquire timeout. It is a transient miss, not a failure: the
// runner counts it and retries on the next tick.
var ErrNoFrame = errors.New("no frame available")

// Frame is one raw sensor readout: Pix holds Width*Height samples in ADU,
// row major. Ownership is transient; the pipeline must not hold a reference
// past the end of the tick that received it.
type Frame struct {
	Width  int
	Height int
	Pix    []uint16
}

// NewFrame allocates a zeroed frame of the given dimensions.
func NewFrame(width, height int) *Frame {
	return &Frame{Width: width, Height: height, Pix: make([]uint16, width*height)}
}

// At returns the sample at (x, y). No bounds check; callers stay in range.
func (f *Frame) At(x, y int) uint16 {
	return f.Pix[y*f.Width+x]
}

// ROI is a centered region-of-interest specification. Both dimensions must
// fit within the frame; that is validated at session setup, not per frame.
type ROI struct {
	Width  int
	Height int
}

// FitsWithin reports whether the ROI fits inside a frame of the given
// dimensions.
func (r ROI) FitsWithin(frameWidth, frameHeight int) bool {
	return r.Width <= frameWidth && r.Height <= frameHeight
}

// ReduceROI computes the arithmetic mean ADU over the centered ROI window of
// the frame. The frame is not mutated and no reference to it is retained, so
// frames can be recycled by the source as soon as the call returns.
func ReduceROI(f *Frame, roi ROI) float64 {
	x0 := (f.Width - roi.Width) / 2
	y0 := (f.Height - roi.Height) / 2

	var sum float64
	for y := y0; y < y0+roi.Height; y++ {
		row := f.Pix[y*f.Width+x0 : y*f.Width+x0+roi.Width]
		for _, v := range row {
			sum += float64(v)
		}
	}
	return sum / float64(roi.Width*roi.Height)
}

// FrameSource produces raw frames for the pipeline. Implementations live in
// internal/camera; the runner only depends on this interface.
type FrameSource interface {
	// Dims returns the fixed frame dimensions for the session.
	Dims() (width, height int)

	// Acquire blocks until a frame is available or the timeout elapses.
	// Returns ErrNoFrame on a transient miss; any other error is fatal to
	// the session (device disconnected, link closed).
	Acquire(timeout time.Duration) (*Frame, error)

	// Close releases the source. Must be safe to call more than once.
	Close() error
}

// validateFrameDims checks a received frame against the session dimensions.
// A camera that changes resolution mid-session is a fatal fault.
func validateFrameDims(f *Frame, width, height int) error {
	if f.Width != width || f.Height != height {
		return fmt.Errorf("frame dimensions %dx%d do not match session %dx%d",
			f.Width, f.Height, width, height)
	}
	return nil
}
