package acquire

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/photon-data/photon.report/internal/monitoring"
)

// Sink receives calibrated readings for display. Publish is called once per
// calibrated tick; Close is part of the runner's teardown sequence.
type Sink interface {
	Publish(frameIndex int64, photons float64)
	Close() error
}

// RunnerConfig tunes the tick loop.
type RunnerConfig struct {
	// FrameTimeout bounds each source pull. A pull that exceeds it is a
	// miss, not an error.
	FrameTimeout time.Duration

	// TickInterval optionally paces the loop; zero runs flat out (the
	// source pull is then the only blocking point).
	TickInterval time.Duration
}

// Runner owns the acquisition loop: one tick pulls a frame, reduces it,
// feeds the session, and forwards calibrated readings to the history buffer
// and the sink. Exactly one tick runs at a time; cancellation is only
// observed between ticks, which makes the cancellation points explicit.
type Runner struct {
	src  FrameSource
	sess *Session
	hist *History
	sink Sink
	cfg  RunnerConfig

	// OnCalibrated, if set, fires once each time the session completes a
	// dark-baseline calibration (including after a reset).
	OnCalibrated func(CalibrationResult)

	width  int
	height int

	stop     chan struct{}
	stopOnce sync.Once
	downOnce sync.Once
}

// NewRunner wires the pipeline. It validates the configured ROI against the
// source frame dimensions, the one setup-time check that needs both.
func NewRunner(src FrameSource, sess *Session, hist *History, sink Sink, cfg RunnerConfig) (*Runner, error) {
	if cfg.FrameTimeout < 0 {
		return nil, fmt.Errorf("frame timeout must be non-negative, got %v", cfg.FrameTimeout)
	}
	w, h := src.Dims()
	if err := sess.CheckFrameDims(w, h); err != nil {
		return nil, err
	}
	return &Runner{
		src:    src,
		sess:   sess,
		hist:   hist,
		sink:   sink,
		cfg:    cfg,
		width:  w,
		height: h,
		stop:   make(chan struct{}),
	}, nil
}

// Run drives ticks until the context is cancelled, Stop is called, or the
// source fails. Teardown always runs before Run returns, whichever path
// ended the loop. The returned error is nil on a clean stop.
func (r *Runner) Run(ctx context.Context) error {
	defer r.teardown()

	var ticker *time.Ticker
	if r.cfg.TickInterval > 0 {
		ticker = time.NewTicker(r.cfg.TickInterval)
		defer ticker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.stop:
			return nil
		default:
		}

		if err := r.tick(); err != nil {
			monitoring.Logf("acquisition fault: %v", err)
			return err
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-r.stop:
				return nil
			case <-ticker.C:
			}
		}
	}
}

// tick runs one full pipeline pass: pull, reduce, calibrate/convert, buffer.
func (r *Runner) tick() error {
	wasCalibrated := r.sess.Calibrated()

	frame, err := r.src.Acquire(r.cfg.FrameTimeout)
	if errors.Is(err, ErrNoFrame) {
		r.sess.Miss()
		return nil
	}
	if err != nil {
		return fmt.Errorf("frame source: %w", err)
	}
	if err := validateFrameDims(frame, r.width, r.height); err != nil {
		return err
	}

	meanADU := ReduceROI(frame, r.sess.ROI())
	// frame is dead after this point; the source may recycle it.

	reading := r.sess.Observe(meanADU)

	if !wasCalibrated && r.sess.Calibrated() && r.OnCalibrated != nil {
		r.OnCalibrated(r.sess.Result())
	}

	// Baseline-phase readings carry zero photons and never reach the
	// history buffer or the sink.
	if reading.Calibrated {
		r.hist.Append(reading.FrameIndex, reading.Photons)
		r.sink.Publish(reading.FrameIndex, reading.Photons)
	}
	return nil
}

// Stop requests the loop to halt before the next tick. Idempotent; safe to
// call concurrently with context cancellation, both paths converge on the
// same teardown sequence.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// teardown releases the source and the sink in order, exactly once. A
// failure in one step is logged and does not prevent the remaining steps
// from running.
func (r *Runner) teardown() {
	r.downOnce.Do(func() {
		if err := r.src.Close(); err != nil {
			monitoring.Logf("teardown: closing frame source: %v", err)
		}
		if err := r.sink.Close(); err != nil {
			monitoring.Logf("teardown: closing display sink: %v", err)
		}
		monitoring.Logf("acquisition stopped after %d frames (%d misses)",
			r.sess.FrameIndex(), r.sess.MissCount())
	})
}
