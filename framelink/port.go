// Package framelink provides an abstraction over the serial camera link: it
// reframes the raw byte stream into sensor frames, fans them out to multiple
// subscribers, and serialises control commands onto the single port.
package framelink

import (
	"io"
)

// Porter defines the minimal interface needed for the camera-link port.
type Porter interface {
	io.ReadWriter
	io.Closer
}
