package acquire

import (
	"math"
	"testing"

	"github.com/photon-data/photon.report/internal/monitoring"
	"github.com/photon-data/photon.report/internal/photon"
)

func init() {
	monitoring.SetLogger(nil)
}

func testParams(target int) Params {
	return Params{
		BaselineTarget:    target,
		Gain:              photon.SystemGain,
		QuantumEfficiency: photon.QEAt525nm,
		ROI:               ROI{Width: 2, Height: 2},
	}
}

func TestNewSessionValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero baseline target", func(p *Params) { p.BaselineTarget = 0 }},
		{"negative baseline target", func(p *Params) { p.BaselineTarget = -1 }},
		{"zero gain", func(p *Params) { p.Gain = 0 }},
		{"negative gain", func(p *Params) { p.Gain = -0.35 }},
		{"zero qe", func(p *Params) { p.QuantumEfficiency = 0 }},
		{"qe above one", func(p *Params) { p.QuantumEfficiency = 1.5 }},
		{"zero roi width", func(p *Params) { p.ROI.Width = 0 }},
		{"zero roi height", func(p *Params) { p.ROI.Height = 0 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := testParams(3)
			c.mutate(&p)
			if _, err := NewSession(p); err == nil {
				t.Error("expected configuration error, got nil")
			}
		})
	}

	s, err := NewSession(testParams(3))
	if err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}
	if s.ID() == "" {
		t.Error("session should have an ID")
	}
}

func TestCheckFrameDims(t *testing.T) {
	p := testParams(3)
	p.ROI = ROI{Width: 200, Height: 200}
	s, err := NewSession(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.CheckFrameDims(720, 540); err != nil {
		t.Errorf("200x200 in 720x540 should pass: %v", err)
	}
	if err := s.CheckFrameDims(100, 540); err == nil {
		t.Error("oversized ROI should be a configuration error")
	}
}

func TestCalibrationTransition(t *testing.T) {
	s, err := NewSession(testParams(3))
	if err != nil {
		t.Fatal(err)
	}

	for i, adu := range []float64{100, 102} {
		r := s.Observe(adu)
		if r.Calibrated {
			t.Errorf("tick %d: should still be in baseline phase", i)
		}
		if r.Photons != 0 {
			t.Errorf("tick %d: baseline readings must carry 0 photons, got %f", i, r.Photons)
		}
		if s.Calibrated() {
			t.Errorf("tick %d: calibrated too early", i)
		}
	}

	// Third sample triggers the transition.
	r := s.Observe(98)
	if r.Calibrated {
		t.Error("the transition tick itself is still a baseline-phase reading")
	}
	if !s.Calibrated() {
		t.Error("session should be calibrated after the third sample")
	}
	if s.MeanDark() != 100.0 {
		t.Errorf("mean dark = %f, want 100.0", s.MeanDark())
	}

	res := s.Result()
	wantStd := math.Sqrt((0 + 4 + 4) / 3.0) // population std of {100,102,98}
	if math.Abs(res.DarkStd-wantStd) > 1e-12 {
		t.Errorf("dark std = %f, want %f", res.DarkStd, wantStd)
	}
}

func TestCalibratedConversion(t *testing.T) {
	s, err := NewSession(testParams(2))
	if err != nil {
		t.Fatal(err)
	}
	s.Observe(100)
	s.Observe(100)

	r := s.Observe(1000)
	if !r.Calibrated {
		t.Fatal("reading after calibration should be calibrated")
	}
	want := photon.AduToPhotons(1000, 100, photon.SystemGain, photon.QEAt525nm)
	if r.Photons != want {
		t.Errorf("photons = %f, want %f", r.Photons, want)
	}

	// Below-baseline signal clips to zero, still a valid calibrated reading.
	r = s.Observe(50)
	if !r.Calibrated || r.Photons != 0 {
		t.Errorf("below-baseline reading = %+v, want calibrated 0 photons", r)
	}
}

func TestFrameIndexStrictlyIncreasing(t *testing.T) {
	s, err := NewSession(testParams(2))
	if err != nil {
		t.Fatal(err)
	}

	var last int64
	step := func(r Reading) {
		if r.FrameIndex != last+1 {
			t.Errorf("frame index %d after %d, want +1 per tick", r.FrameIndex, last)
		}
		last = r.FrameIndex
	}

	step(s.Observe(100)) // baseline
	step(s.Miss())       // miss during calibration
	step(s.Observe(100)) // completes calibration
	step(s.Observe(500)) // calibrated
	step(s.Miss())       // miss post-calibration
	step(s.Observe(500))
}

func TestMissDoesNotAdvanceCalibration(t *testing.T) {
	s, err := NewSession(testParams(2))
	if err != nil {
		t.Fatal(err)
	}
	s.Observe(100)

	// A miss on the target-th tick must not trigger the transition.
	s.Miss()
	if s.Calibrated() {
		t.Error("miss must not count toward the baseline target")
	}
	if s.MissCount() != 1 {
		t.Errorf("miss count = %d, want 1", s.MissCount())
	}

	s.Observe(102)
	if !s.Calibrated() {
		t.Error("second real sample should complete calibration")
	}
	if s.MeanDark() != 101.0 {
		t.Errorf("mean dark = %f, want 101.0", s.MeanDark())
	}
}

func TestReset(t *testing.T) {
	s, err := NewSession(testParams(2))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("mid calibration", func(t *testing.T) {
		s.Observe(100)
		s.Reset()
		if s.Calibrated() || s.MeanDark() != 0 || s.FrameIndex() != 0 {
			t.Errorf("reset mid-calibration left state: calibrated=%v dark=%f idx=%d",
				s.Calibrated(), s.MeanDark(), s.FrameIndex())
		}
		if s.Progress() != 0 {
			t.Errorf("progress after reset = %f, want 0", s.Progress())
		}
	})

	t.Run("post calibration", func(t *testing.T) {
		s.Observe(100)
		s.Observe(102)
		if !s.Calibrated() {
			t.Fatal("setup: should be calibrated")
		}
		s.Reset()
		if s.Calibrated() || s.MeanDark() != 0 || s.FrameIndex() != 0 || s.MissCount() != 0 {
			t.Error("reset post-calibration did not restore initial state")
		}

		// The session is reusable: calibration works again after reset.
		s.Observe(10)
		s.Observe(20)
		if !s.Calibrated() || s.MeanDark() != 15 {
			t.Errorf("recalibration after reset: calibrated=%v dark=%f", s.Calibrated(), s.MeanDark())
		}
	})
}

func TestProgress(t *testing.T) {
	s, err := NewSession(testParams(4))
	if err != nil {
		t.Fatal(err)
	}
	if s.Progress() != 0 {
		t.Errorf("initial progress = %f", s.Progress())
	}
	s.Observe(100)
	if s.Progress() != 0.25 {
		t.Errorf("progress after 1/4 = %f", s.Progress())
	}
	s.Observe(100)
	s.Observe(100)
	s.Observe(100)
	if s.Progress() != 1 {
		t.Errorf("progress when calibrated = %f", s.Progress())
	}
}
