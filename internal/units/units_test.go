package units

import (
	"math"
	"testing"
)

func TestPhotonEnergy(t *testing.T) {
	// A 525 nm photon carries about 3.78e-19 J.
	got := PhotonEnergy(525)
	want := 3.783e-19
	if math.Abs(got-want)/want > 0.001 {
		t.Errorf("PhotonEnergy(525) = %e, want ~%e", got, want)
	}
}

func TestPhotonsToWatts(t *testing.T) {
	// 1e18 photons/s at 525 nm is roughly 0.378 W.
	got := PhotonsToWatts(1e18, 525)
	want := 0.3783
	if math.Abs(got-want)/want > 0.001 {
		t.Errorf("PhotonsToWatts(1e18, 525) = %f, want ~%f", got, want)
	}
}

func TestPhotonRate(t *testing.T) {
	// 500 photons over a 5000 us exposure is 100k photons/s.
	if got := PhotonRate(500, 5000); got != 1e5 {
		t.Errorf("PhotonRate(500, 5000us) = %f, want 1e5", got)
	}
	if got := PhotonRate(500, 0); got != 0 {
		t.Errorf("PhotonRate with zero exposure = %f, want 0", got)
	}
}

func TestFormatPhotons(t *testing.T) {
	if got := FormatPhotons(509.3); got != "509.3 photons/px" {
		t.Errorf("FormatPhotons(509.3) = %q", got)
	}
	if got := FormatPhotons(2.5e7); got != "2.500e+07 photons/px" {
		t.Errorf("FormatPhotons(2.5e7) = %q", got)
	}
}
