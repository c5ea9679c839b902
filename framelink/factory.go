package framelink

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.bug.st/serial"
)

// NewRealMux creates a Mux backed by a real serial camera link at the given
// path. The open is retried with exponential backoff because USB-serial
// adapters commonly take a moment to enumerate after plug-in.
func NewRealMux(path string) (*Mux[serial.Port], error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: 1,
	}

	var port serial.Port
	open := func() error {
		var err error
		port, err = serial.Open(path, mode)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 5 * time.Second
	if err := backoff.Retry(open, policy); err != nil {
		return nil, err
	}

	return NewMux[serial.Port](port), nil
}
