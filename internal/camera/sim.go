package camera

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/photon-data/photon.report/internal/acquire"
)

// SimConfig configures the simulated camera.
type SimConfig struct {
	Width  int
	Height int

	// DarkADU is the mean dark floor in ADU.
	DarkADU float64

	// NoiseADU is the Gaussian read-noise sigma in ADU.
	NoiseADU float64

	// SignalADU is added on top of the dark floor inside the illuminated
	// center region, emulating a beam on the sensor.
	SignalADU float64

	// MissEvery, when positive, makes every Nth acquire a transient miss.
	MissEvery int

	// Seed makes runs reproducible. Zero seeds from the clock.
	Seed int64
}

// Sim is a synthetic frame source for dev mode and tests: a flat dark floor
// with Gaussian noise and an optional illuminated center spot. Deterministic
// for a fixed seed.
type Sim struct {
	mu     sync.Mutex
	cfg    SimConfig
	rng    *rand.Rand
	count  int
	closed bool
}

// NewSim creates a simulated camera.
func NewSim(cfg SimConfig) *Sim {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Sim{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Dims returns the simulated sensor resolution.
func (s *Sim) Dims() (int, int) { return s.cfg.Width, s.cfg.Height }

// Acquire synthesises one frame. Never blocks.
func (s *Sim) Acquire(timeout time.Duration) (*acquire.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrLinkClosed
	}

	s.count++
	if s.cfg.MissEvery > 0 && s.count%s.cfg.MissEvery == 0 {
		return nil, acquire.ErrNoFrame
	}

	f := acquire.NewFrame(s.cfg.Width, s.cfg.Height)
	// Illuminated spot covers the centered half of each axis.
	x0, x1 := s.cfg.Width/4, 3*s.cfg.Width/4
	y0, y1 := s.cfg.Height/4, 3*s.cfg.Height/4
	for y := 0; y < s.cfg.Height; y++ {
		for x := 0; x < s.cfg.Width; x++ {
			v := s.cfg.DarkADU + s.rng.NormFloat64()*s.cfg.NoiseADU
			if s.cfg.SignalADU > 0 && x >= x0 && x < x1 && y >= y0 && y < y1 {
				v += s.cfg.SignalADU
			}
			f.Pix[y*s.cfg.Width+x] = clampADU(v)
		}
	}
	return f, nil
}

// Close marks the simulator shut down; later acquires fail like a
// disconnected device. Safe to call twice.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// clampADU clamps to the 12-bit ADC range of the simulated sensor.
func clampADU(v float64) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 4095 {
		return 4095
	}
	return uint16(math.Round(v))
}
