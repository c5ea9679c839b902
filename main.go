// Command photon.report runs the real-time photon counting monitor: it pulls
// frames from a camera, calibrates a dark baseline from the first frames of
// the run, converts subsequent frames to incident photons per pixel, and
// serves the rolling time series over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/photon-data/photon.report/framelink"
	"github.com/photon-data/photon.report/internal/acquire"
	"github.com/photon-data/photon.report/internal/camera"
	"github.com/photon-data/photon.report/internal/config"
	"github.com/photon-data/photon.report/internal/db"
	"github.com/photon-data/photon.report/internal/display"
	"github.com/photon-data/photon.report/internal/monitoring"
	"github.com/photon-data/photon.report/internal/photon"
	"github.com/photon-data/photon.report/internal/version"
)

var (
	devMode    = flag.Bool("dev", false, "Run with a simulated camera instead of the serial link")
	listen     = flag.String("listen", ":8080", "Listen address")
	portPath   = flag.String("port", "/dev/ttyUSB0", "Serial camera-link device")
	configPath = flag.String("config", "", "Optional monitor config JSON")
	dbPath     = flag.String("db", "calibrations.db", "Calibration database path (empty to disable)")
	migrations = flag.String("migrations", "internal/db/migrations", "Migrations directory")
	simSignal  = flag.Float64("sim-signal", 800, "Simulated beam level in ADU (dev mode)")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

// run wires the pipeline and returns the process exit code. Startup
// failures (configuration, frame source, database) are fatal and non-zero;
// once acquisition has started, every shutdown path converges on the
// runner's teardown and exits zero.
func run() int {
	log.Printf("photon.report %s", version.String())

	cfg := config.EmptyMonitorConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadMonitorConfig(*configPath)
		if err != nil {
			log.Printf("failed to load config: %v", err)
			return 1
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("invalid configuration: %v", err)
		return 1
	}

	if _, inBand := photon.QEForWavelength(cfg.GetWavelengthNM()); !inBand {
		monitoring.Warnf("QE requested at %.0f nm but only measured at %.0f nm; using the measured value (inaccurate)",
			cfg.GetWavelengthNM(), photon.CalibrationWavelengthNM)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	// Frame source: simulated camera in dev mode, serial camera link
	// otherwise. A source that cannot be initialized is the one failure
	// that exits non-zero.
	var src acquire.FrameSource
	if *devMode {
		src = camera.NewSim(camera.SimConfig{
			Width:     cfg.GetFrameWidth(),
			Height:    cfg.GetFrameHeight(),
			DarkADU:   100,
			NoiseADU:  2,
			SignalADU: *simSignal,
		})
	} else {
		mux, err := framelink.NewRealMux(*portPath)
		if err != nil {
			log.Printf("failed to open camera link %s: %v", *portPath, err)
			return 1
		}
		defer mux.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := mux.Monitor(ctx); err != nil && err != context.Canceled {
				log.Printf("camera link monitor terminated: %v", err)
			}
		}()

		src, err = camera.NewSerial(mux, cfg.GetFrameWidth(), cfg.GetFrameHeight(), cfg.GetExposureUS())
		if err != nil {
			log.Printf("failed to initialize camera: %v", err)
			return 1
		}
	}

	sess, err := acquire.NewSession(acquire.Params{
		BaselineTarget:    cfg.GetBaselineTarget(),
		Gain:              cfg.GetGain(),
		QuantumEfficiency: cfg.GetQE(),
		ROI:               acquire.ROI{Width: cfg.GetROIWidth(), Height: cfg.GetROIHeight()},
	})
	if err != nil {
		log.Printf("invalid session parameters: %v", err)
		return 1
	}
	hist := acquire.NewHistory(cfg.GetMaxPoints())

	var store *db.DB
	if *dbPath != "" {
		store, err = db.NewDB(*dbPath)
		if err != nil {
			log.Printf("failed to open calibration database: %v", err)
			return 1
		}
		defer store.Close()
		if err := store.MigrateUp(*migrations); err != nil {
			log.Printf("failed to migrate calibration database: %v", err)
			return 1
		}
	}

	sink := display.NewServer(sess, hist, store, display.Params{
		QE:           cfg.GetQE(),
		WavelengthNM: cfg.GetWavelengthNM(),
		ExposureUS:   cfg.GetExposureUS(),
	})

	runner, err := acquire.NewRunner(src, sess, hist, sink, acquire.RunnerConfig{
		FrameTimeout: time.Duration(cfg.GetFrameTimeoutMS()) * time.Millisecond,
	})
	if err != nil {
		log.Printf("failed to start acquisition: %v", err)
		return 1
	}
	runner.OnCalibrated = func(res acquire.CalibrationResult) {
		if store == nil {
			return
		}
		_, err := store.RecordCalibration(&db.CalibrationRecord{
			SessionID:      res.SessionID,
			BaselineTarget: res.BaselineTarget,
			MeanDark:       res.MeanDark,
			DarkStd:        res.DarkStd,
			Gain:           res.Gain,
			QE:             res.QE,
			WavelengthNM:   cfg.GetWavelengthNM(),
		})
		if err != nil {
			log.Printf("failed to record calibration: %v", err)
		}
	}

	log.Printf("acquiring %d frames for dark baseline calibration...", cfg.GetBaselineTarget())

	// Acquisition loop. A fatal source fault cancels the shared context so
	// the HTTP server and the link monitor wind down with it.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := runner.Run(ctx); err != nil {
			log.Printf("acquisition terminated: %v", err)
		}
		stop()
	}()

	// HTTP server goroutine.
	wg.Add(1)
	go func() {
		defer wg.Done()

		server := &http.Server{
			Addr:    *listen,
			Handler: sink.ServeMux(),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server: %v", err)
				stop()
			}
		}()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("http server shutdown error: %v", err)
		}
	}()

	<-ctx.Done()
	runner.Stop()
	wg.Wait()

	log.Print("shutdown complete")
	return 0
}
