// Package display is the monitor's display sink: it serves the bounded
// photon time series as JSON, an HTML chart, and a PNG plot, together with a
// text summary and the clear/reset commands.
package display

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/photon-data/photon.report/internal/acquire"
	"github.com/photon-data/photon.report/internal/db"
	"github.com/photon-data/photon.report/internal/httputil"
	"github.com/photon-data/photon.report/internal/photon"
	"github.com/photon-data/photon.report/internal/units"
)

// Params carries the fixed optics/sensor values the summary needs.
type Params struct {
	QE           float64
	WavelengthNM float64
	ExposureUS   int
}

// Server renders the acquisition state over HTTP and implements the
// runner's sink interface. The calibration store is optional; without it
// the calibrations endpoint reports an empty list.
type Server struct {
	sess   *acquire.Session
	hist   *acquire.History
	store  *db.DB
	params Params

	mu      sync.Mutex
	current float64
	sum     float64
	count   int64
	closed  bool
}

// NewServer creates a display server over the given session and history.
// store may be nil.
func NewServer(sess *acquire.Session, hist *acquire.History, store *db.DB, params Params) *Server {
	return &Server{sess: sess, hist: hist, store: store, params: params}
}

// Publish receives one calibrated reading from the runner.
func (s *Server) Publish(frameIndex int64, photons float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = photons
	s.sum += photons
	s.count++
}

// Close marks the sink shut down. Part of the runner's teardown; safe to
// call more than once.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ServeMux returns the HTTP routes for the display server.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/points", s.handlePoints)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/clear", s.handleClear)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/calibrations", s.handleCalibrations)
	mux.HandleFunc("/chart", s.handleChart)
	mux.HandleFunc("/plot.png", s.handlePlotPNG)
	mux.HandleFunc("/", s.handleHome)
	return mux
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	current := s.current
	mean := 0.0
	if s.count > 0 {
		mean = s.sum / float64(s.count)
	}
	s.mu.Unlock()

	if !s.sess.Calibrated() {
		fmt.Fprintf(w, "Photon Count Monitor\ncalibrating dark baseline: %.0f%%\n", s.sess.Progress()*100)
		return
	}
	fmt.Fprintf(w, "Photon Count Monitor\ncurrent: %s\nrunning mean: %s\ndark baseline: %.2f ADU\n",
		units.FormatPhotons(current), units.FormatPhotons(mean), s.sess.MeanDark())
}

type summaryResponse struct {
	FrameIndex     int64   `json:"frame_index"`
	Calibrated     bool    `json:"calibrated"`
	Progress       float64 `json:"progress"`
	MeanDark       float64 `json:"mean_dark_adu"`
	Current        float64 `json:"current_photons"`
	RunningMean    float64 `json:"running_mean_photons"`
	SNR            float64 `json:"snr"`
	PhotonRate     float64 `json:"photon_rate_per_s"`
	OpticalPowerW  float64 `json:"optical_power_w"`
	MissCount      int64   `json:"miss_count"`
	BufferedPoints int     `json:"buffered_points"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	s.mu.Lock()
	resp := summaryResponse{
		Current: s.current,
	}
	if s.count > 0 {
		resp.RunningMean = s.sum / float64(s.count)
	}
	s.mu.Unlock()

	resp.FrameIndex = s.sess.FrameIndex()
	resp.Calibrated = s.sess.Calibrated()
	resp.Progress = s.sess.Progress()
	resp.MeanDark = s.sess.MeanDark()
	resp.MissCount = s.sess.MissCount()
	resp.BufferedPoints = s.hist.Len()
	resp.SNR = photon.SNR(resp.Current, s.params.QE, photon.ReadNoiseElectrons)
	rate := units.PhotonRate(resp.Current, float64(s.params.ExposureUS))
	resp.PhotonRate = rate
	resp.OpticalPowerW = units.PhotonsToWatts(rate, s.params.WavelengthNM)

	httputil.WriteJSONOK(w, resp)
}

type pointsResponse struct {
	X []int64   `json:"x"`
	Y []float64 `json:"y"`
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	xs, ys := s.hist.Snapshot()
	httputil.WriteJSONOK(w, pointsResponse{X: xs, Y: ys})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.hist.Clear()
	s.resetRunningStats()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.sess.Reset()
	s.hist.Clear()
	s.resetRunningStats()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resetRunningStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = 0
	s.sum = 0
	s.count = 0
}

func (s *Server) handleCalibrations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.store == nil {
		httputil.WriteJSONOK(w, []db.CalibrationRecord{})
		return
	}
	recs, err := s.store.ListCalibrations(50)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list calibrations: %v", err))
		return
	}
	if recs == nil {
		recs = []db.CalibrationRecord{}
	}
	httputil.WriteJSONOK(w, recs)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	xs, ys := s.hist.Snapshot()
	if err := renderChart(w, xs, ys); err != nil {
		http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
	}
}

func (s *Server) handlePlotPNG(w http.ResponseWriter, r *http.Request) {
	xs, ys := s.hist.Snapshot()
	w.Header().Set("Content-Type", "image/png")
	if err := renderPNG(w, xs, ys); err != nil {
		http.Error(w, fmt.Sprintf("failed to render plot: %v", err), http.StatusInternalServerError)
	}
}
