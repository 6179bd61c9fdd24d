// Package server exposes a live formation engine over HTTP.
//
// The inspector is meant for tooling and debugging: it lets a developer look
// at the current layout, render it, claim and release slots, change settings
// and move the host, all against one engine shared by every request.
//
// # Routes
//
//	GET  /healthz
//	GET  /v1/layout                 snapshot JSON
//	GET  /v1/layout/{format}        rendered snapshot (dot, svg, png, pdf)
//	GET  /v1/instances              instance offsets, spacing and bounds
//	GET  /v1/bounds                 containment diagnostic and slot counts
//	POST /v1/regenerate             run a pass now
//	GET  /v1/settings               current settings
//	PUT  /v1/settings               merge and apply settings
//	PUT  /v1/host                   move, turn or resize the host
//	GET  /v1/events                 drain buffered layout events
//	GET  /v1/slots                  ?available=true&instance=N
//	GET  /v1/slots/nearest          ?x=&y=&z=
//	GET  /v1/slots/{id}
//	POST /v1/slots/occupy           {"occupant":7,"instance":0|"slot":3|"near":{...}}
//	POST /v1/slots/release          {"slot":3} or {"occupant":7}
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/formation/pkg/engine"
	"github.com/matzehuels/formation/pkg/events"
	"github.com/matzehuels/formation/pkg/pipeline"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:8088"

// Config configures a Server.
type Config struct {
	// Options provide the initial settings, tuning and scene.
	Options pipeline.Options

	// Runner renders layouts. Nil uses an uncached runner.
	Runner *pipeline.Runner

	Logger *log.Logger

	// EventBuffer bounds the events held for GET /v1/events. Zero uses the
	// queue default.
	EventBuffer int
}

// Server owns one engine and its host.
type Server struct {
	engine *engine.Engine
	host   *engine.StaticHost
	runner *pipeline.Runner
	logger *log.Logger
	queue  *events.Queue
	router chi.Router
}

// New builds the engine, runs the first pass and wires the routes.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	opts := cfg.Options
	opts.Logger = logger
	if err := opts.ValidateForLayout(); err != nil {
		return nil, err
	}

	host := engine.SceneHost(opts.Scene)
	e, err := pipeline.NewEngine(opts, host)
	if err != nil {
		return nil, err
	}

	runner := cfg.Runner
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}

	s := &Server{
		engine: e,
		host:   host,
		runner: runner,
		logger: logger,
		queue:  events.NewQueue(cfg.EventBuffer),
	}
	e.Subscribe(s.queue.Listener())
	e.Regenerate(true)
	s.router = s.routes()
	return s, nil
}

// Engine returns the served engine.
func (s *Server) Engine() *engine.Engine { return s.engine }

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/layout", s.getLayout)
		r.Get("/layout/{format}", s.renderLayout)
		r.Get("/instances", s.listInstances)
		r.Get("/bounds", s.getBounds)
		r.Post("/regenerate", s.regenerate)
		r.Get("/settings", s.getSettings)
		r.Put("/settings", s.putSettings)
		r.Put("/host", s.putHost)
		r.Get("/events", s.drainEvents)

		r.Route("/slots", func(r chi.Router) {
			r.Get("/", s.listSlots)
			r.Get("/nearest", s.nearestSlot)
			r.Post("/occupy", s.occupy)
			r.Post("/release", s.release)
			r.Get("/{id}", s.getSlot)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("inspector listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
