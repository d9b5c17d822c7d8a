package webd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/olahol/melody"
	"github.com/rotblauer/skytile/params"
	"github.com/rotblauer/skytile/scene"
)

// WebDaemon serves previews of a scene over HTTP.
// Every handler touching the scene holds mu, so the scene sees
// exactly one render thread.
type WebDaemon struct {
	Config         *params.WebDaemonConfig
	logger         *slog.Logger
	melodyInstance *melody.Melody
	creditsSub     event.Subscription

	mu    sync.Mutex
	scene *scene.Scene

	started time.Time
}

func NewWebDaemon(config *params.WebDaemonConfig, sc *scene.Scene) *WebDaemon {
	if config == nil {
		config = params.DefaultWebDaemonConfig()
	}
	return &WebDaemon{
		Config:  config,
		logger:  slog.With("d", "web"),
		scene:   sc,
		started: time.Now(),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *WebDaemon) Run(ctx context.Context) error {
	ln, err := net.Listen(s.Config.Network, s.Config.Address)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.NewRouter()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Shutdown", "error", err)
		}
		s.Close()
	}()
	s.logger.Info("Starting web daemon", "network", s.Config.Network, "address", ln.Addr().String())
	err = srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *WebDaemon) NewRouter() *mux.Router {
	s.initMelody()

	router := mux.NewRouter().StrictSlash(false)
	router.Use(ghandlers.RecoveryHandler(ghandlers.PrintRecoveryStack(true)))
	router.Use(loggingMiddleware)

	router.Path("/socket").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = s.melodyInstance.HandleRequest(w, r)
	})

	apiRoutes := router.NewRoute().Subrouter()

	// All API routes use permissive CORS settings.
	apiRoutes.Use(permissiveCorsMiddleware)

	// /ping is a simple server healthcheck endpoint
	apiRoutes.Path("/ping").HandlerFunc(pingPong)
	apiRoutes.Path("/render.png").HandlerFunc(s.handleRender).Methods(http.MethodGet)

	apiJSONRoutes := apiRoutes.NewRoute().Subrouter()
	apiJSONRoutes.Use(contentTypeMiddlewareFunc("application/json"))
	apiJSONRoutes.Path("/status").HandlerFunc(s.statusReport).Methods(http.MethodGet)
	apiJSONRoutes.Path("/credits").HandlerFunc(s.handleCredits).Methods(http.MethodGet)
	apiJSONRoutes.Path("/tiles").HandlerFunc(s.handleTiles).Methods(http.MethodGet)

	geoJSONRoutes := apiRoutes.NewRoute().Subrouter()
	geoJSONRoutes.Use(contentTypeMiddlewareFunc("application/geo+json"))
	geoJSONRoutes.Path("/footprints.geojson").HandlerFunc(s.handleFootprints).Methods(http.MethodGet)

	return router
}

// Close disconnects websocket clients and stops forwarding credits.
func (s *WebDaemon) Close() {
	if s.creditsSub != nil {
		s.creditsSub.Unsubscribe()
	}
	if s.melodyInstance != nil && !s.melodyInstance.IsClosed() {
		_ = s.melodyInstance.Close()
	}
}

// View runs fn on the render thread.
func (s *WebDaemon) View(fn func(sc *scene.Scene)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.scene)
}
