// Package photon converts raw camera ADU readings into photoelectron and
// incident-photon counts using the EMVA 1288 linear sensor-response model.
package photon

import "math"

// EMVA 1288 measured parameters for the BFS-U3-04S2M-C (Sony IMX287).
// Source: FLIR published EMVA 1288 imaging performance data.
const (
	// SystemGain is the sensor system gain in electrons per ADU.
	SystemGain = 0.35

	// QEAt525nm is the quantum efficiency measured at 525 nm (monochrome).
	QEAt525nm = 0.6182

	// SaturationElectrons is the full-well capacity in electrons.
	SaturationElectrons = 22187

	// ReadNoiseElectrons is the temporal dark noise in electrons.
	ReadNoiseElectrons = 3.71

	// CalibrationWavelengthNM is the wavelength the QE value was measured at.
	CalibrationWavelengthNM = 525.0

	// QEBandNM is the half-width of the wavelength band around the
	// calibration wavelength inside which the measured QE is trusted.
	QEBandNM = 50.0
)

// AduToElectrons converts a signal level in ADU to photoelectrons by
// subtracting the dark baseline and applying the system gain. A signal below
// the baseline clips to zero electrons: that is defined behaviour meaning no
// detectable flux above baseline, not an error.
func AduToElectrons(signalADU, darkADU, gain float64) float64 {
	return math.Max(0, signalADU-darkADU) * gain
}

// ElectronsToPhotons converts photoelectrons to incident photons. The
// quantum efficiency must be in (0, 1]; callers enforce that at
// configuration time, not per call.
func ElectronsToPhotons(electrons, quantumEfficiency float64) float64 {
	return electrons / quantumEfficiency
}

// AduToPhotons converts a signal level in ADU directly to incident photons.
// It is the exact composition of AduToElectrons and ElectronsToPhotons with
// no intermediate rounding.
func AduToPhotons(signalADU, darkADU, gain, quantumEfficiency float64) float64 {
	return ElectronsToPhotons(AduToElectrons(signalADU, darkADU, gain), quantumEfficiency)
}

// SNR computes the signal-to-noise ratio of a photon measurement, combining
// shot noise and read noise:
//
//	SNR = S / sqrt(S + r²)   with S = photons × QE in electrons
//
// Returns 0 when the denominator is zero, which only happens when both the
// signal and the read noise are zero.
func SNR(signalPhotons, quantumEfficiency, readNoiseElectrons float64) float64 {
	signalElectrons := signalPhotons * quantumEfficiency
	noise := math.Sqrt(signalElectrons + readNoiseElectrons*readNoiseElectrons)
	if noise == 0 {
		return 0
	}
	return signalElectrons / noise
}

// QEForWavelength returns the quantum efficiency to use for the requested
// wavelength. Only the 525 nm value has been measured, so the same value is
// always returned; inBand reports whether the request falls within the
// ±QEBandNM tolerance band. Out-of-band requests should be logged by the
// caller as degraded accuracy but are never fatal.
func QEForWavelength(wavelengthNM float64) (qe float64, inBand bool) {
	return QEAt525nm, math.Abs(wavelengthNM-CalibrationWavelengthNM) < QEBandNM
}
