package acquire

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/photon-data/photon.report/internal/monitoring"
	"github.com/photon-data/photon.report/internal/photon"
)

// diagEvery controls how often a calibrated-phase diagnostic line is logged.
const diagEvery = 100

// Params configures a calibration session. All fields are validated by
// NewSession; a bad value is a configuration error and fatal to session
// construction.
type Params struct {
	// BaselineTarget is the number of frames averaged for the dark
	// baseline. Must be > 0.
	BaselineTarget int

	// Gain is the sensor system gain in electrons/ADU. Must be > 0.
	Gain float64

	// QuantumEfficiency is the fraction of incident photons converted to
	// electrons. Must be in (0, 1].
	QuantumEfficiency float64

	// ROI is the centered analysis window. Both dimensions must be > 0 and
	// fit within the source frame dimensions (checked by CheckFrameDims once
	// the source is known).
	ROI ROI
}

// Reading is the per-tick output of the session: the frame index it belongs
// to and the photon count per pixel. Calibrated is false for baseline-phase
// readings, which always carry zero photons and never reach the history
// buffer.
type Reading struct {
	FrameIndex int64
	Photons    float64
	Calibrated bool
}

// CalibrationResult summarises a completed dark-baseline calibration.
type CalibrationResult struct {
	SessionID      string
	BaselineTarget int
	MeanDark       float64 // ADU
	DarkStd        float64 // population std, ADU
	Gain           float64
	QE             float64
}

// Session is the acquisition state machine. It starts uncalibrated,
// accumulates baseline samples until BaselineTarget is reached, then
// converts every subsequent observation to photons. The transition happens
// exactly once per calibration and is atomic with the append that triggers
// it; no intermediate state is observable from other goroutines.
//
// The runner is the only writer, but the display server reads concurrently,
// so all state is guarded by a mutex.
type Session struct {
	mu sync.Mutex

	id         string
	params     Params
	frameIndex int64
	baseline   []float64
	meanDark   float64
	darkStd    float64
	calibrated bool
	missCount  int64
}

// NewSession validates the parameters and creates an uncalibrated session.
func NewSession(p Params) (*Session, error) {
	if p.BaselineTarget <= 0 {
		return nil, fmt.Errorf("baseline target must be positive, got %d", p.BaselineTarget)
	}
	if p.Gain <= 0 {
		return nil, fmt.Errorf("gain must be positive, got %f", p.Gain)
	}
	if p.QuantumEfficiency <= 0 || p.QuantumEfficiency > 1 {
		return nil, fmt.Errorf("quantum efficiency must be in (0, 1], got %f", p.QuantumEfficiency)
	}
	if p.ROI.Width <= 0 || p.ROI.Height <= 0 {
		return nil, fmt.Errorf("roi dimensions must be positive, got %dx%d", p.ROI.Width, p.ROI.Height)
	}
	return &Session{
		id:       uuid.New().String(),
		params:   p,
		baseline: make([]float64, 0, p.BaselineTarget),
	}, nil
}

// CheckFrameDims verifies the configured ROI fits within the source frame
// dimensions. Called once at session setup; a violation is a configuration
// error, never a per-frame one.
func (s *Session) CheckFrameDims(width, height int) error {
	if !s.params.ROI.FitsWithin(width, height) {
		return fmt.Errorf("roi %dx%d exceeds frame dimensions %dx%d",
			s.params.ROI.Width, s.params.ROI.Height, width, height)
	}
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// ROI returns the configured analysis window.
func (s *Session) ROI() ROI { return s.params.ROI }

// Observe feeds one reduced frame mean into the state machine and returns
// the Reading for this tick. During the baseline phase the sample is
// appended and a zero-photon uncalibrated Reading is emitted; the append
// that reaches the target also performs the calibration transition before
// the lock is released. Once calibrated, the mean is converted to photons.
func (s *Session) Observe(meanADU float64) Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.calibrated {
		s.baseline = append(s.baseline, meanADU)
		s.frameIndex++
		if len(s.baseline) == s.params.BaselineTarget {
			s.completeCalibrationLocked()
		}
		return Reading{FrameIndex: s.frameIndex, Photons: 0, Calibrated: false}
	}

	photons := photon.AduToPhotons(meanADU, s.meanDark, s.params.Gain, s.params.QuantumEfficiency)
	s.frameIndex++

	if s.frameIndex%diagEvery == 0 {
		monitoring.Logf("frame %d: %.1f photons/px | ADU: %.1f | dark: %.1f | delta: %.1f",
			s.frameIndex, photons, meanADU, s.meanDark, meanADU-s.meanDark)
	}

	return Reading{FrameIndex: s.frameIndex, Photons: photons, Calibrated: true}
}

// completeCalibrationLocked freezes the dark baseline. Caller holds the lock.
func (s *Session) completeCalibrationLocked() {
	s.meanDark = stat.Mean(s.baseline, nil)
	s.darkStd = stat.PopStdDev(s.baseline, nil)
	s.calibrated = true

	monitoring.Logf("baseline calibration complete: mean dark %.2f ADU, dark noise %.2f ADU (%.2f e-)",
		s.meanDark, s.darkStd, s.darkStd*s.params.Gain)
}

// Miss records a tick on which the source produced no frame. The frame
// index still advances, but no baseline sample is appended and no
// calibration transition can occur, even on the target-th tick.
func (s *Session) Miss() Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameIndex++
	s.missCount++
	return Reading{FrameIndex: s.frameIndex, Calibrated: false}
}

// Reset atomically returns the session to its initial uncalibrated state.
// This is the only state-undo transition; it is valid mid-calibration and
// post-calibration alike.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline = s.baseline[:0]
	s.meanDark = 0
	s.darkStd = 0
	s.calibrated = false
	s.frameIndex = 0
	s.missCount = 0
	monitoring.Logf("baseline calibration reset")
}

// Calibrated reports whether the dark baseline has been frozen.
func (s *Session) Calibrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calibrated
}

// FrameIndex returns the number of ticks processed, hits and misses alike.
func (s *Session) FrameIndex() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameIndex
}

// MeanDark returns the frozen dark baseline in ADU, 0 if uncalibrated.
func (s *Session) MeanDark() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meanDark
}

// MissCount returns the number of transient frame misses since start/reset.
func (s *Session) MissCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missCount
}

// Progress returns calibration progress in [0, 1].
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calibrated {
		return 1
	}
	return float64(len(s.baseline)) / float64(s.params.BaselineTarget)
}

// Result returns the calibration summary. Valid only once calibrated.
func (s *Session) Result() CalibrationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CalibrationResult{
		SessionID:      s.id,
		BaselineTarget: s.params.BaselineTarget,
		MeanDark:       s.meanDark,
		DarkStd:        s.darkStd,
		Gain:           s.params.Gain,
		QE:             s.params.QuantumEfficiency,
	}
}
