package display

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/photon-data/photon.report/internal/acquire"
	"github.com/photon-data/photon.report/internal/monitoring"
	"github.com/photon-data/photon.report/internal/photon"
)

func init() {
	monitoring.SetLogger(nil)
}

func testServer(t *testing.T) (*Server, *acquire.Session, *acquire.History) {
	t.Helper()
	sess, err := acquire.NewSession(acquire.Params{
		BaselineTarget:    2,
		Gain:              photon.SystemGain,
		QuantumEfficiency: photon.QEAt525nm,
		ROI:               acquire.ROI{Width: 2, Height: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	hist := acquire.NewHistory(100)
	srv := NewServer(sess, hist, nil, Params{
		QE:           photon.QEAt525nm,
		WavelengthNM: 525,
		ExposureUS:   5000,
	})
	return srv, sess, hist
}

// calibrate runs the session through its baseline phase and publishes one
// reading, mimicking the runner.
func calibrate(sess *acquire.Session, hist *acquire.History, srv *Server) {
	sess.Observe(100)
	sess.Observe(100)
	r := sess.Observe(1000)
	hist.Append(r.FrameIndex, r.Photons)
	srv.Publish(r.FrameIndex, r.Photons)
}

func TestHandlePoints(t *testing.T) {
	srv, sess, hist := testServer(t)
	calibrate(sess, hist, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/points", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		X []int64   `json:"x"`
		Y []float64 `json:"y"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.X) != 1 || resp.X[0] != 3 {
		t.Errorf("points x = %v, want [3]", resp.X)
	}
	if len(resp.Y) != 1 || resp.Y[0] == 0 {
		t.Errorf("points y = %v", resp.Y)
	}
}

func TestHandleSummary(t *testing.T) {
	srv, sess, hist := testServer(t)
	calibrate(sess, hist, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["calibrated"] != true {
		t.Error("summary should report calibrated")
	}
	if resp["frame_index"].(float64) != 3 {
		t.Errorf("frame_index = %v", resp["frame_index"])
	}
	if resp["mean_dark_adu"].(float64) != 100 {
		t.Errorf("mean_dark_adu = %v", resp["mean_dark_adu"])
	}
	if resp["current_photons"].(float64) <= 0 {
		t.Errorf("current_photons = %v", resp["current_photons"])
	}
	if resp["snr"].(float64) <= 0 {
		t.Errorf("snr = %v", resp["snr"])
	}
	if resp["optical_power_w"].(float64) <= 0 {
		t.Errorf("optical_power_w = %v", resp["optical_power_w"])
	}

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/summary", nil)
		w := httptest.NewRecorder()
		srv.ServeMux().ServeHTTP(w, req)
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d", w.Code)
		}
	})
}

func TestHandleClear(t *testing.T) {
	srv, sess, hist := testServer(t)
	calibrate(sess, hist, srv)

	req := httptest.NewRequest(http.MethodPost, "/api/clear", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}

	if hist.Len() != 0 {
		t.Error("history should be empty after clear")
	}
	// The session is untouched: still calibrated, index preserved.
	if !sess.Calibrated() || sess.FrameIndex() != 3 {
		t.Error("clear must not reset the session")
	}

	t.Run("get rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/clear", nil)
		w := httptest.NewRecorder()
		srv.ServeMux().ServeHTTP(w, req)
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d", w.Code)
		}
	})
}

func TestHandleReset(t *testing.T) {
	srv, sess, hist := testServer(t)
	calibrate(sess, hist, srv)

	req := httptest.NewRequest(http.MethodPost, "/api/reset", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}

	if sess.Calibrated() || sess.FrameIndex() != 0 || sess.MeanDark() != 0 {
		t.Error("reset should return the session to its initial state")
	}
	if hist.Len() != 0 {
		t.Error("reset should clear the history")
	}
}

func TestHandleCalibrationsWithoutStore(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/calibrations", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %q, want empty list", got)
	}
}

func TestHandleChart(t *testing.T) {
	srv, sess, hist := testServer(t)
	calibrate(sess, hist, srv)

	req := httptest.NewRequest(http.MethodGet, "/chart", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "echarts") {
		t.Error("chart response should embed an echarts chart")
	}
}

func TestHandlePlotPNG(t *testing.T) {
	srv, sess, hist := testServer(t)
	calibrate(sess, hist, srv)

	req := httptest.NewRequest(http.MethodGet, "/plot.png", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	// PNG signature.
	if !bytes.HasPrefix(w.Body.Bytes(), []byte{0x89, 'P', 'N', 'G'}) {
		t.Error("response is not a PNG")
	}
}

func TestHandleHome(t *testing.T) {
	srv, sess, hist := testServer(t)

	t.Run("calibrating", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		srv.ServeMux().ServeHTTP(w, req)
		if !strings.Contains(w.Body.String(), "calibrating") {
			t.Errorf("body = %q", w.Body.String())
		}
	})

	t.Run("calibrated", func(t *testing.T) {
		calibrate(sess, hist, srv)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		srv.ServeMux().ServeHTTP(w, req)
		body := w.Body.String()
		if !strings.Contains(body, "photons/px") || !strings.Contains(body, "dark baseline") {
			t.Errorf("body = %q", body)
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nope", nil)
		w := httptest.NewRecorder()
		srv.ServeMux().ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d", w.Code)
		}
	})
}

func TestRunningMean(t *testing.T) {
	srv, _, _ := testServer(t)
	srv.Publish(1, 100)
	srv.Publish(2, 200)

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	w := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(w, req)

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["running_mean_photons"].(float64) != 150 {
		t.Errorf("running mean = %v, want 150", resp["running_mean_photons"])
	}
	if resp["current_photons"].(float64) != 200 {
		t.Errorf("current = %v, want 200", resp["current_photons"])
	}
}
