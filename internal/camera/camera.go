// Package camera provides the frame sources for the acquisition pipeline: a
// serial camera-link source for real hardware and a deterministic simulator
// for dev mode and tests.
package camera

import (
	"errors"
	"fmt"
)

// ErrLinkClosed is returned by Acquire once the camera link has shut down.
// Unlike a timeout it is fatal to the session.
var ErrLinkClosed = errors.New("camera link closed")

// dimsError reports a frame whose dimensions disagree with the configured
// sensor resolution. The driver treats this as a device fault.
func dimsError(gotW, gotH, wantW, wantH int) error {
	return fmt.Errorf("camera produced %dx%d frame, configured for %dx%d", gotW, gotH, wantW, wantH)
}
