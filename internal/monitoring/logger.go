// Package monitoring carries the diagnostic loggers used by the acquisition
// pipeline. Keeping them as package variables lets tests mute or capture
// pipeline chatter without plumbing a logger through every constructor.
package monitoring

import "log"

// Logf is the diagnostic logger for routine pipeline output (calibration
// progress, per-100-frame statistics). Defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// Warnf is the logger for non-fatal degraded-accuracy conditions, such as a
// quantum-efficiency lookup outside the calibrated wavelength band. Defaults
// to log.Printf with a WARNING prefix.
var Warnf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	log.Printf("WARNING: "+format, v...)
}

// SetLogger replaces both loggers. Passing nil installs a no-op logger,
// which also mutes Warnf.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		nop := func(string, ...interface{}) {}
		Logf = nop
		Warnf = nop
		return
	}
	Logf = f
	Warnf = f
}
