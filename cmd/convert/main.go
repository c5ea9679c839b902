// Command convert is a one-off ADU to photon calculator using the EMVA 1288
// model, handy for sanity-checking monitor output against bench readings.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/photon-data/photon.report/internal/photon"
)

var (
	adu        = flag.Float64("adu", 0, "Signal level in ADU")
	dark       = flag.Float64("dark", 0, "Dark baseline in ADU")
	gain       = flag.Float64("gain", photon.SystemGain, "System gain in e-/ADU")
	qe         = flag.Float64("qe", 0, "Quantum efficiency (0 looks it up by wavelength)")
	wavelength = flag.Float64("wavelength", photon.CalibrationWavelengthNM, "Wavelength in nm")
)

func main() {
	flag.Parse()

	if *gain <= 0 {
		fmt.Fprintln(os.Stderr, "gain must be positive")
		os.Exit(1)
	}

	quantumEff := *qe
	if quantumEff == 0 {
		var inBand bool
		quantumEff, inBand = photon.QEForWavelength(*wavelength)
		if !inBand {
			fmt.Fprintf(os.Stderr, "warning: QE requested at %.0f nm but only measured at %.0f nm; result may be inaccurate\n",
				*wavelength, photon.CalibrationWavelengthNM)
		}
	}
	if quantumEff <= 0 || quantumEff > 1 {
		fmt.Fprintln(os.Stderr, "quantum efficiency must be in (0, 1]")
		os.Exit(1)
	}

	electrons := photon.AduToElectrons(*adu, *dark, *gain)
	photons := photon.ElectronsToPhotons(electrons, quantumEff)
	snr := photon.SNR(photons, quantumEff, photon.ReadNoiseElectrons)

	fmt.Printf("electrons: %.2f e-\n", electrons)
	fmt.Printf("photons:   %.2f\n", photons)
	fmt.Printf("snr:       %.2f\n", snr)
	if electrons > photon.SaturationElectrons {
		fmt.Printf("note: signal exceeds the %d e- full-well capacity\n", photon.SaturationElectrons)
	}
}
