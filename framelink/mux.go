package framelink

import (
	"bufio"
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
)

var ErrWriteFailed = fmt.Errorf("failed to write to camera link")

// subscriberBuffer is the per-subscriber channel depth. A slow consumer
// drops frames rather than blocking the monitor loop.
const subscriberBuffer = 8

// Mux is a generic camera-link multiplexer: one goroutine owns the port and
// decodes the frame stream, while any number of clients subscribe to the
// decoded frames and send control commands through the same port.
type Mux[T Porter] struct {
	port         T
	subscribers  map[string]chan *RawFrame
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// LinkMux defines the interface for the Mux type.
type LinkMux interface {
	// Subscribe creates a new channel receiving decoded frames. The
	// returned ID identifies the channel when unsubscribing.
	Subscribe() (string, chan *RawFrame)
	// Unsubscribe removes and closes a subscriber channel.
	Unsubscribe(string)
	// SendCommand writes an ASCII control command to the camera link.
	SendCommand(string) error
	// Monitor decodes frames from the port and fans them out until the
	// context is cancelled or the port fails.
	Monitor(context.Context) error
	// Close closes all subscriber channels and the port.
	Close() error
}

// NewMux creates a Mux backed by the given port.
func NewMux[T Porter](port T) *Mux[T] {
	return &Mux[T]{
		port:        port,
		subscribers: make(map[string]chan *RawFrame),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (m *Mux[T]) Subscribe() (string, chan *RawFrame) {
	id := randomID()
	ch := make(chan *RawFrame, subscriberBuffer)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the mux.
func (m *Mux[T]) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// SendCommand sends an ASCII control command (exposure, trigger mode) to the
// camera link. Commands are newline terminated on the wire.
func (m *Mux[T]) SendCommand(command string) error {
	m.commandMu.Lock()
	defer m.commandMu.Unlock()
	if !bytes.HasSuffix([]byte(command), []byte("\n")) {
		command += "\n"
	}
	n, err := m.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor decodes frames from the port and sends them to subscribers.
func (m *Mux[T]) Monitor(ctx context.Context) error {
	reader := bufio.NewReaderSize(m.port, 1<<16)

	frameChan := make(chan *RawFrame)
	readErrChan := make(chan error, 1)

	// The blocking decode runs in its own goroutine so the outer loop can
	// await frames and context cancellation at the same time.
	go func() {
		defer close(frameChan)
		for {
			frame, err := ReadFrame(reader)
			if err != nil {
				select {
				case readErrChan <- err:
				case <-ctx.Done():
				}
				return
			}
			select {
			case frameChan <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErrChan:
			return err

		case frame, ok := <-frameChan:
			if !ok {
				return nil
			}
			m.closingMu.Lock()
			if m.closing {
				m.closingMu.Unlock()
				return nil
			}
			m.closingMu.Unlock()

			m.subscriberMu.Lock()
			for _, ch := range m.subscribers {
				select {
				case ch <- frame:
				default:
					// subscriber is full; drop rather than stall the link
				}
			}
			m.subscriberMu.Unlock()
		}
	}
}

func (m *Mux[T]) Close() error {
	m.closingMu.Lock()
	m.closing = true
	m.closingMu.Unlock()

	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	return m.port.Close()
}
