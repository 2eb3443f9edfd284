// Package server provides the HTTP surface of the AppForge
// orchestration core: the bootstrap event stream, agent status and
// conversation endpoints, and the per-session websocket relay.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/appforge-ai/appforge/internal/actor"
	"github.com/appforge-ai/appforge/internal/event"
	"github.com/appforge-ai/appforge/internal/modelconfig"
	"github.com/appforge-ai/appforge/internal/project"
	"github.com/appforge-ai/appforge/internal/quota"
	"github.com/appforge-ai/appforge/internal/session"
	"github.com/appforge-ai/appforge/internal/template"
	"github.com/appforge-ai/appforge/pkg/types"
)

// Config holds server configuration.
type Config struct {
	Host string
	Port int

	// PublicURL is the externally reachable base URL used to derive the
	// status-polling and websocket URLs handed to clients.
	PublicURL string

	// PreviewDomain is the wildcard domain under which generated
	// applications are hosted.
	PreviewDomain string

	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:          "0.0.0.0",
		Port:          8080,
		PublicURL:     "http://localhost:8080",
		PreviewDomain: "preview.appforge.dev",
		EnableCORS:    true,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  0, // streaming responses stay open indefinitely
	}
}

// Dependencies are the collaborators the server dispatches into.
type Dependencies struct {
	Sessions   *session.Service
	Processor  *session.Processor
	ModelStore modelconfig.Store
	Templates  template.Resolver
	Quota      quota.Gate
	Dialer     actor.Dialer
	Bus        *event.Bus
	Projects   *project.Service
}

// Server is the HTTP server.
type Server struct {
	config    *Config
	router    *chi.Mux
	httpSrv   *http.Server
	appConfig *types.Config

	sessions   *session.Service
	processor  *session.Processor
	modelStore modelconfig.Store
	templates  template.Resolver
	quotaGate  quota.Gate
	dialer     actor.Dialer
	bus        *event.Bus
	projects   *project.Service

	// tasks supervises background work spawned by handlers, such as
	// agent initialization. Its lifetime is the server's, not any single
	// request's.
	tasks       *errgroup.Group
	tasksCtx    context.Context
	tasksCancel context.CancelFunc

	// agentStates tracks per-session initialization state for the status
	// endpoint. Sessions absent from the map predate this process.
	statesMu    sync.RWMutex
	agentStates map[string]string

	hub *wsHub
}

// Agent initialization states reported by the status endpoint.
const (
	agentStateInitializing = "initializing"
	agentStateReady        = "ready"
	agentStateFailed       = "failed"
)

func (s *Server) setAgentState(sessionID, state string) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	s.agentStates[sessionID] = state
}

func (s *Server) agentState(sessionID string) string {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()
	if state, ok := s.agentStates[sessionID]; ok {
		return state
	}
	return agentStateReady
}

// New creates a new Server instance.
func New(cfg *Config, appConfig *types.Config, deps Dependencies) *Server {
	tasksCtx, cancel := context.WithCancel(context.Background())
	tasks, tasksCtx := errgroup.WithContext(tasksCtx)

	s := &Server{
		config:      cfg,
		router:      chi.NewRouter(),
		appConfig:   appConfig,
		sessions:    deps.Sessions,
		processor:   deps.Processor,
		modelStore:  deps.ModelStore,
		templates:   deps.Templates,
		quotaGate:   deps.Quota,
		dialer:      deps.Dialer,
		bus:         deps.Bus,
		projects:    deps.Projects,
		tasks:       tasks,
		tasksCtx:    tasksCtx,
		tasksCancel: cancel,
		agentStates: make(map[string]string),
		hub:         newWSHub(),
	}

	if s.bus != nil {
		s.bus.SubscribeAll(s.hub.dispatch)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
			ExposedHeaders:   []string{"Link", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server, waiting for background
// tasks to settle.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}

	s.tasksCancel()
	if werr := s.tasks.Wait(); werr != nil && err == nil {
		err = werr
	}
	return err
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// statusURL derives the status-polling URL for a session.
func (s *Server) statusURL(sessionID string) string {
	return fmt.Sprintf("%s/agent/%s/status", strings.TrimSuffix(s.config.PublicURL, "/"), sessionID)
}

// websocketURL derives the realtime-channel URL for a session.
func (s *Server) websocketURL(sessionID string) string {
	base := strings.TrimSuffix(s.config.PublicURL, "/")
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return fmt.Sprintf("%s/agent/%s/ws", base, sessionID)
}

// hostname derives the preview hostname for a session.
func (s *Server) hostname(sessionID string) string {
	return fmt.Sprintf("%s.%s", sessionID, s.config.PreviewDomain)
}

// userID resolves the requesting user. Authentication is fronted by the
// gateway; an absent header maps to the anonymous user.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "anonymous"
}
