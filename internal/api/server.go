package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"social-report/internal/config"
	"social-report/internal/mailer"
	"social-report/internal/monitoring"
	"social-report/internal/refresh"
	"social-report/internal/reporting"
)

// Pinger is the health probe of an optional backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Reports   *reporting.Service
	Mailer    mailer.Sender
	Refresher *refresh.Refresher
	Monitor   *monitoring.Monitor
	DB        Pinger
	Logger    *logrus.Logger
}

type Server struct {
	cfg       config.ServerConfig
	reports   *reporting.Service
	mailer    mailer.Sender
	refresher *refresh.Refresher
	monitor   *monitoring.Monitor
	db        Pinger
	logger    *logrus.Logger
	validate  *validator.Validate
	router    chi.Router
	srv       *http.Server
	now       func() time.Time
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Count   int         `json:"count,omitempty"`
}

type ClientInfo struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ReportType   string `json:"report_type"`
	DefaultRange string `json:"default_range"`
	LastUpdate   string `json:"last_update,omitempty"`
}

func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		cfg:       cfg,
		reports:   deps.Reports,
		mailer:    deps.Mailer,
		refresher: deps.Refresher,
		monitor:   deps.Monitor,
		db:        deps.DB,
		logger:    deps.Logger,
		validate:  newValidator(),
		now:       time.Now,
	}
	s.setupRoutes()
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       seconds(cfg.ReadTimeout, 30),
		WriteTimeout:      seconds(cfg.WriteTimeout, 120),
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Infof("Starting API server on port %d", s.cfg.Port)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func seconds(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(s.requestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware())

	r.Get("/", s.handleRoot)
	r.Get("/reports/{client}", s.handleReportPage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/clients", s.handleClients)
		r.Post("/email", s.handleEmail)

		r.Route("/reports/{client}", func(r chi.Router) {
			r.Get("/", s.handleReport)
			r.Get("/export/csv", s.handleExportCSV)
			r.Get("/export/pdf", s.handleExportPDF)
			r.Post("/refresh", s.handleRefresh)
		})
	})

	s.router = r
}

func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{"Content-Disposition", requestIDHeader},
		MaxAge:         300,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	response := APIResponse{
		Success: true,
		Data: map[string]string{
			"message":   "Social Report API",
			"version":   "1.0.0",
			"endpoints": "/api/reports/{client}, /reports/{client}, /api/email, /api/metrics",
		},
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": s.now().Format(time.RFC3339),
		"clients":   len(s.reports.Clients()),
		"database":  "disabled",
	}

	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.logger.Errorf("Health check failed: %v", err)
			s.writeError(w, "Database connection failed", http.StatusServiceUnavailable)
			return
		}
		status["database"] = "connected"
	}
	if s.monitor != nil {
		status["monitor"] = s.monitor.GetHealthStatus()
	}

	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: status})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.monitor == nil {
		s.writeError(w, "Monitoring is disabled", http.StatusNotImplemented)
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.monitor.GetMetrics()})
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	clients := s.reports.Clients()
	infos := make([]ClientInfo, 0, len(clients))
	for _, c := range clients {
		infos = append(infos, ClientInfo{
			Name:         c.Name,
			Slug:         c.Slug,
			ReportType:   c.ReportType,
			DefaultRange: string(s.reports.RangeFor(c, "")),
			LastUpdate:   s.reports.LastUpdate(c.Slug),
		})
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: infos, Count: len(infos)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}
