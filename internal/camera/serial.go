package camera

import (
	"fmt"
	"sync"
	"time"

	"github.com/photon-data/photon.report/framelink"
	"github.com/photon-data/photon.report/internal/acquire"
)

// Link is the slice of the framelink mux the serial source needs.
type Link interface {
	Subscribe() (string, chan *framelink.RawFrame)
	Unsubscribe(string)
	SendCommand(string) error
}

// Serial adapts a framelink mux into an acquire.FrameSource. The mux's
// Monitor loop must be running (the daemon owns that goroutine); Acquire
// simply waits on its subscription.
type Serial struct {
	link   Link
	width  int
	height int

	subID     string
	frames    chan *framelink.RawFrame
	closeOnce sync.Once
}

// NewSerial subscribes to the link and configures the camera exposure. The
// width and height are the configured sensor resolution; frames arriving
// with any other dimensions are a device fault.
func NewSerial(link Link, width, height int, exposureUS int) (*Serial, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid sensor resolution %dx%d", width, height)
	}
	if err := link.SendCommand(fmt.Sprintf("EXP %d", exposureUS)); err != nil {
		return nil, fmt.Errorf("configuring exposure: %w", err)
	}

	id, ch := link.Subscribe()
	return &Serial{
		link:   link,
		width:  width,
		height: height,
		subID:  id,
		frames: ch,
	}, nil
}

// Dims returns the configured sensor resolution.
func (s *Serial) Dims() (int, int) { return s.width, s.height }

// Acquire waits for the next frame from the link. A timeout is a transient
// miss; a closed link is fatal.
func (s *Serial) Acquire(timeout time.Duration) (*acquire.Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case raw, ok := <-s.frames:
		if !ok {
			return nil, ErrLinkClosed
		}
		if raw.Width != s.width || raw.Height != s.height {
			return nil, dimsError(raw.Width, raw.Height, s.width, s.height)
		}
		return &acquire.Frame{Width: raw.Width, Height: raw.Height, Pix: raw.Pix}, nil
	case <-timer.C:
		return nil, acquire.ErrNoFrame
	}
}

// Close unsubscribes from the link. The mux itself is owned by the daemon
// and closed during its teardown, after the source. Safe to call twice.
func (s *Serial) Close() error {
	s.closeOnce.Do(func() {
		s.link.Unsubscribe(s.subID)
	})
	return nil
}
