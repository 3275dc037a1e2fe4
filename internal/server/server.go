// Package server provides the HTTP server for live placement feedback and
// calibration.
package server

import (
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/goggybox/touchtypEd/internal/segment"
	"github.com/goggybox/touchtypEd/internal/server/api"
	"github.com/goggybox/touchtypEd/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FrameSource provides the latest encoded JPEG frame and a sequence number
// that changes whenever a new frame is available.
type FrameSource interface {
	Latest() ([]byte, uint64)
}

// Config holds the server configuration.
type Config struct {
	StaticDir   string
	Store       *store.Store
	Calibration *segment.Calibration
	Frames      FrameSource
	Hub         *Hub
	Log         logrus.FieldLogger
}

// Server serves the JSON API, the annotated video stream and the placement
// feed.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New builds the route table. Routes whose dependency is missing from
// config are left out and answer 404.
func New(config Config) *Server {
	if config.Log == nil {
		config.Log = logrus.StandardLogger()
	}
	s := &Server{config: config, mux: http.NewServeMux(), start: time.Now()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.health)

	if cal := s.config.Calibration; cal != nil {
		h := api.NewCalibrationHandler(cal)
		s.mux.Handle("/api/calibration", h)
		s.mux.Handle("/api/calibration/", h)

		// Applying a profile writes into the live calibration.
		if s.config.Store != nil {
			p := api.NewProfileHandler(s.config.Store, cal, s.config.Log)
			s.mux.Handle("/api/profiles", p)
			s.mux.Handle("/api/profiles/", p)
		}
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}

	if s.config.Hub != nil {
		s.mux.Handle("/api/placement", s.config.Hub)
		s.mux.HandleFunc("GET /api/placement/latest", s.latest)
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := healthResponse{Status: "ok", Uptime: time.Since(s.start).Round(time.Second).String()}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.config.Log.WithError(err).Debug("write health response")
	}
}

// latest returns the most recent placement message, or 204 before the
// first frame.
func (s *Server) latest(w http.ResponseWriter, _ *http.Request) {
	msg := s.config.Hub.Latest()
	if msg == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(msg)
}

// HTTPServer returns an http.Server for addr that the caller can shut down.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
