package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/goggybox/touchtypEd/internal/app"
	"github.com/goggybox/touchtypEd/internal/capture"
	"github.com/goggybox/touchtypEd/internal/config"
	"github.com/goggybox/touchtypEd/internal/detector"
	"github.com/goggybox/touchtypEd/internal/hook"
	"github.com/goggybox/touchtypEd/internal/logging"
	"github.com/goggybox/touchtypEd/internal/render"
	"github.com/goggybox/touchtypEd/internal/segment"
	"github.com/goggybox/touchtypEd/internal/server"
	"github.com/goggybox/touchtypEd/internal/store"
	"github.com/goggybox/touchtypEd/internal/tray"
)

type runFlags struct {
	video    string
	noServer bool
	withTray bool
	debug    bool
}

func newRunCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the placement guide",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath, root.envFile)
			if err != nil {
				return err
			}
			if flags.video != "" {
				cfg.Camera.File = flags.video
			}
			if flags.noServer {
				cfg.Server.Disabled = true
			}
			if flags.debug {
				cfg.Log.Level = "debug"
			}
			return run(cmd.Context(), cfg, flags.withTray)
		},
	}
	cmd.Flags().StringVar(&flags.video, "video", "", "replay a recorded video instead of the camera")
	cmd.Flags().BoolVar(&flags.noServer, "no-server", false, "do not start the HTTP server")
	cmd.Flags().BoolVar(&flags.withTray, "tray", false, "show the status in the system tray")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "log at debug level")
	return cmd
}

func run(parent context.Context, cfg *config.Config, withTray bool) error {
	log, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}

	if err := ensureDir(cfg.Store.Path); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	storeLog := logging.Component(log, "store")
	st, err := store.Open(cfg.Store.Path, storeLog)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	if v, _, err := st.Version(); err == nil {
		storeLog.WithFields(logrus.Fields{"path": st.Path(), "schema": v}).Debug("store ready")
	}

	calibration := segment.NewCalibration(cfg.Ranges())
	applyActiveProfile(st, calibration, storeLog)

	det := newDetector(cfg, logging.Component(log, "detector"))
	pipeline, err := app.NewPipeline(cfg, calibration, det, logging.Component(log, "pipeline"))
	if err != nil {
		det.Close()
		return err
	}

	camera := capture.NewCameraWithOptions(capture.Options{
		Device:   cfg.Camera.Device,
		File:     cfg.Camera.File,
		Realtime: cfg.Camera.Realtime,
		Width:    cfg.Camera.Width,
		Height:   cfg.Camera.Height,
		FPS:      cfg.Camera.FPS,
	})

	overlay := render.NewOverlay()
	hub := server.NewHub(logging.Component(log, "hub"))
	hub.Limit(cfg.Server.PlacementRate)
	renderers := []render.Renderer{
		overlay,
		render.NewLogRenderer(logging.Component(log, "feedback")),
		hub,
	}

	if len(cfg.Hooks.Commands) > 0 {
		notifier := hook.NewNotifier(cfg.Hooks.Commands, hook.NewExecutor(cfg.Hooks.Timeout), logging.Component(log, "hooks"))
		defer notifier.Wait()
		renderers = append(renderers, notifier)
	}

	var t *tray.Tray
	if withTray {
		t = tray.New()
		renderers = append(renderers, t)
	}

	application := app.New(camera, pipeline, renderers, logging.Component(log, "app"))

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Server.Disabled {
		srv := server.New(server.Config{
			StaticDir:   cfg.Server.StaticDir,
			Store:       st,
			Calibration: calibration,
			Frames:      overlay,
			Hub:         hub,
			Log:         logging.Component(log, "server"),
		})
		httpServer := srv.HTTPServer(cfg.Server.Addr)
		go func() {
			log.WithField("addr", cfg.Server.Addr).Info("starting server")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("server failed")
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
		}()
	}

	if t == nil {
		return application.Run(ctx)
	}

	// The tray must own the main goroutine, so the capture loop moves to
	// another one and either side can end the session.
	t.Bind(tray.Actions{
		Toggle:    application.SetEnabled,
		Calibrate: func() { openBrowser("http://"+cfg.Server.Addr, log) },
		Quit:      stop,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(ctx)
		t.Quit()
	}()
	t.Run()
	stop()
	return <-errCh
}

func applyActiveProfile(st *store.Store, c *segment.Calibration, log logrus.FieldLogger) {
	p, ranges, err := st.Profiles().Active()
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		log.WithError(err).Warn("could not load active profile")
		return
	}
	if err := c.Replace(ranges); err != nil {
		log.WithError(err).WithField("profile", p.Name).Warn("active profile has invalid ranges")
		return
	}
	log.WithField("profile", p.Name).Info("applied calibration profile")
}

// newDetector returns the configured detector. A MediaPipe service that
// cannot be found falls back to the mock detector, which reports no hands.
func newDetector(cfg *config.Config, log logrus.FieldLogger) detector.Detector {
	if cfg.Pipeline.Detector == config.DetectorMock {
		log.Info("using mock hand detector")
		return detector.NewMockDetector()
	}

	dcfg := detector.DefaultConfig()
	dcfg.ScriptPath = cfg.Pipeline.DetectorScript
	mp, err := detector.NewMediaPipeDetector(dcfg, log)
	if err != nil {
		log.WithError(err).Warn("MediaPipe not available, using mock detector")
		return detector.NewMockDetector()
	}
	log.Info("using MediaPipe hand detection")
	return mp
}

func openBrowser(url string, log logrus.FieldLogger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.WithError(err).WithField("url", url).Warn("could not open browser")
	}
}
