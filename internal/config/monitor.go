// Package config loads and validates the monitor configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/photon-data/photon.report/internal/photon"
)

// MonitorConfig is the flat JSON schema for the photon monitor. All fields
// are pointers so a partial config file only overrides what it names; the
// Get* methods supply defaults (the EMVA 1288 values for the BFS-U3-04S2M-C
// where the sensor defines them).
type MonitorConfig struct {
	// Calibration params
	BaselineTarget *int     `json:"baseline_target,omitempty"`
	Gain           *float64 `json:"gain,omitempty"`
	QE             *float64 `json:"quantum_efficiency,omitempty"`
	WavelengthNM   *float64 `json:"wavelength_nm,omitempty"`

	// Geometry params
	ROIWidth    *int `json:"roi_width,omitempty"`
	ROIHeight   *int `json:"roi_height,omitempty"`
	FrameWidth  *int `json:"frame_width,omitempty"`
	FrameHeight *int `json:"frame_height,omitempty"`

	// Acquisition params
	FrameTimeoutMS *int `json:"frame_timeout_ms,omitempty"`
	ExposureUS     *int `json:"exposure_us,omitempty"`

	// Display params
	MaxPoints *int `json:"max_points,omitempty"`
}

// Defaults: 50 baseline frames and a 200x200 ROI as in the bench setup; the
// BFS-U3-04S2M-C native resolution; EMVA values for gain and QE.
const (
	defaultBaselineTarget = 50
	defaultROISize        = 200
	defaultFrameWidth     = 720
	defaultFrameHeight    = 540
	defaultFrameTimeoutMS = 1000
	defaultExposureUS     = 5000
	defaultMaxPoints      = 500
)

// EmptyMonitorConfig returns a MonitorConfig with all fields unset.
func EmptyMonitorConfig() *MonitorConfig {
	return &MonitorConfig{}
}

// LoadMonitorConfig loads a MonitorConfig from a JSON file. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadMonitorConfig(path string) (*MonitorConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyMonitorConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate rejects configuration errors. These are fatal at startup; there
// is no per-frame recovery from a bad configuration.
func (c *MonitorConfig) Validate() error {
	if c.GetBaselineTarget() <= 0 {
		return fmt.Errorf("baseline_target must be positive, got %d", c.GetBaselineTarget())
	}
	if c.GetGain() <= 0 {
		return fmt.Errorf("gain must be positive, got %f", c.GetGain())
	}
	if qe := c.GetQE(); qe <= 0 || qe > 1 {
		return fmt.Errorf("quantum_efficiency must be in (0, 1], got %f", qe)
	}
	if c.GetROIWidth() <= 0 || c.GetROIHeight() <= 0 {
		return fmt.Errorf("roi dimensions must be positive, got %dx%d", c.GetROIWidth(), c.GetROIHeight())
	}
	if c.GetFrameWidth() <= 0 || c.GetFrameHeight() <= 0 {
		return fmt.Errorf("frame dimensions must be positive, got %dx%d", c.GetFrameWidth(), c.GetFrameHeight())
	}
	if c.GetROIWidth() > c.GetFrameWidth() || c.GetROIHeight() > c.GetFrameHeight() {
		return fmt.Errorf("roi %dx%d exceeds frame %dx%d",
			c.GetROIWidth(), c.GetROIHeight(), c.GetFrameWidth(), c.GetFrameHeight())
	}
	if c.GetFrameTimeoutMS() < 0 {
		return fmt.Errorf("frame_timeout_ms must be non-negative, got %d", c.GetFrameTimeoutMS())
	}
	if c.GetExposureUS() <= 0 {
		return fmt.Errorf("exposure_us must be positive, got %d", c.GetExposureUS())
	}
	if c.GetMaxPoints() <= 0 {
		return fmt.Errorf("max_points must be positive, got %d", c.GetMaxPoints())
	}
	return nil
}

func (c *MonitorConfig) GetBaselineTarget() int {
	if c.BaselineTarget != nil {
		return *c.BaselineTarget
	}
	return defaultBaselineTarget
}

func (c *MonitorConfig) GetGain() float64 {
	if c.Gain != nil {
		return *c.Gain
	}
	return photon.SystemGain
}

// GetQE returns the configured quantum efficiency. When unset, the value
// for the configured wavelength is looked up from the sensor calibration;
// out-of-band wavelengths still use the 525 nm value (degraded accuracy,
// warned about by the caller, never fatal).
func (c *MonitorConfig) GetQE() float64 {
	if c.QE != nil {
		return *c.QE
	}
	qe, _ := photon.QEForWavelength(c.GetWavelengthNM())
	return qe
}

func (c *MonitorConfig) GetWavelengthNM() float64 {
	if c.WavelengthNM != nil {
		return *c.WavelengthNM
	}
	return photon.CalibrationWavelengthNM
}

func (c *MonitorConfig) GetROIWidth() int {
	if c.ROIWidth != nil {
		return *c.ROIWidth
	}
	return defaultROISize
}

func (c *MonitorConfig) GetROIHeight() int {
	if c.ROIHeight != nil {
		return *c.ROIHeight
	}
	return defaultROISize
}

func (c *MonitorConfig) GetFrameWidth() int {
	if c.FrameWidth != nil {
		return *c.FrameWidth
	}
	return defaultFrameWidth
}

func (c *MonitorConfig) GetFrameHeight() int {
	if c.FrameHeight != nil {
		return *c.FrameHeight
	}
	return defaultFrameHeight
}

func (c *MonitorConfig) GetFrameTimeoutMS() int {
	if c.FrameTimeoutMS != nil {
		return *c.FrameTimeoutMS
	}
	return defaultFrameTimeoutMS
}

func (c *MonitorConfig) GetExposureUS() int {
	if c.ExposureUS != nil {
		return *c.ExposureUS
	}
	return defaultExposureUS
}

func (c *MonitorConfig) GetMaxPoints() int {
	if c.MaxPoints != nil {
		return *c.MaxPoints
	}
	return defaultMaxPoints
}
