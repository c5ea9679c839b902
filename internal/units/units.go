// Package units provides shared radiometric conversions and formatting for
// photon-flux measurements.
package units

import "fmt"

// Physical constants (CODATA 2018).
const (
	PlanckConstant = 6.62607015e-34 // J·s
	SpeedOfLight   = 2.99792458e8   // m/s
)

// PhotonEnergy returns the energy of a single photon at the given wavelength
// in joules.
func PhotonEnergy(wavelengthNM float64) float64 {
	return PlanckConstant * SpeedOfLight / (wavelengthNM * 1e-9)
}

// PhotonsToWatts converts a photon arrival rate (photons per second) at the
// given wavelength to optical power in watts.
func PhotonsToWatts(photonsPerSecond, wavelengthNM float64) float64 {
	return photonsPerSecond * PhotonEnergy(wavelengthNM)
}

// PhotonRate converts a per-frame photon count and an exposure time in
// microseconds to photons per second. Returns 0 for a non-positive exposure.
func PhotonRate(photonsPerFrame float64, exposureUS float64) float64 {
	if exposureUS <= 0 {
		return 0
	}
	return photonsPerFrame / (exposureUS * 1e-6)
}

// FormatPhotons renders a photon count for the text summary, switching to
// scientific notation above a million.
func FormatPhotons(photons float64) string {
	if photons >= 1e6 {
		return fmt.Sprintf("%.3e photons/px", photons)
	}
	return fmt.Sprintf("%.1f photons/px", photons)
}
