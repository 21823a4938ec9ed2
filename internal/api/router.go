package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/Harshitk-cp/sovern/internal/api/handlers"
	mw "github.com/Harshitk-cp/sovern/internal/api/middleware"
	"github.com/Harshitk-cp/sovern/internal/buildconfig"
	"github.com/Harshitk-cp/sovern/internal/config"
	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/Harshitk-cp/sovern/internal/service"
	"github.com/Harshitk-cp/sovern/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Pinger reports database reachability for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries everything NewApp needs. Stores are interfaces so tests can run without Postgres.
type Options struct {
	DB             Pinger
	BeliefStore    domain.BeliefStore
	LogicStore     domain.LogicEntryStore
	MemoryStore    domain.MemoryRecordStore
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int
	DominanceCap   float64
	CacheSize      int
	SyncInterval   time.Duration
}

// App holds the router and background services for lifecycle management.
type App struct {
	Router     *chi.Mux
	Graph      *service.BeliefGraph
	BeliefSync *service.BeliefSyncService
	Turns      *service.TurnService
	metrics    *mw.MetricsCollector
	startTime  time.Time
	done       chan struct{}
}

// NewAppFromPool wires the Postgres stores and reads the remaining options from config.
func NewAppFromPool(db *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	return NewApp(Options{
		DB:             db,
		BeliefStore:    store.NewBeliefStore(db),
		LogicStore:     store.NewLogicEntryStore(db),
		MemoryStore:    store.NewMemoryRecordStore(db),
		APIKey:         config.APIKey(),
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
		DominanceCap:   config.DominanceCap(),
		CacheSize:      config.PatternCacheSize(),
		SyncInterval:   config.BeliefSyncInterval(),
	}, logger)
}

func NewApp(opts Options, logger *zap.Logger) (*App, error) {
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 100
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 20
	}
	if opts.DominanceCap <= 0 {
		opts.DominanceCap = service.DefaultDominanceCap
	}

	// Services
	graph := service.NewBeliefGraph(logger)
	strengthener := service.NewPerspectiveStrengthener(logger)
	scorer := service.NewInsightScorer(logger)
	patterns, err := service.NewPatternAggregator(service.NewKeywordCategoryClassifier(), opts.CacheSize, logger)
	if err != nil {
		return nil, err
	}
	emergence := service.NewEmergenceMonitor(service.SubstringStanceMatcher{}, service.NewKeywordDomainClassifier(), logger)
	pipeline := service.NewTurnPipeline(graph, strengthener, scorer, patterns, emergence, logger)
	turnSvc := service.NewTurnService(pipeline, scorer, patterns, emergence, graph, opts.LogicStore, opts.MemoryStore, logger)
	syncSvc := service.NewBeliefSyncService(graph, opts.BeliefStore, logger)
	if opts.SyncInterval > 0 {
		syncSvc.SetInterval(opts.SyncInterval)
	}

	// Handlers
	beliefHandler := handlers.NewBeliefHandler(graph, opts.DominanceCap)
	perspectiveHandler := handlers.NewPerspectiveHandler(strengthener, graph)
	deliberationHandler := handlers.NewDeliberationHandler(turnSvc)
	memoryHandler := handlers.NewMemoryHandler(turnSvc)
	patternHandler := handlers.NewPatternHandler(turnSvc, patterns)
	emergenceHandler := handlers.NewEmergenceHandler(turnSvc)
	streamHandler := handlers.NewStreamHandler(graph, logger)

	r := chi.NewRouter()

	app := &App{
		Router:     r,
		Graph:      graph,
		BeliefSync: syncSvc,
		Turns:      turnSvc,
		metrics:    mw.NewMetricsCollector(),
		startTime:  time.Now(),
		done:       make(chan struct{}),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst, app.done))

	// Health and metrics (no auth)
	r.Get("/health", healthHandler(opts.DB, graph))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(opts.APIKey))

		r.Route("/beliefs", func(r chi.Router) {
			r.Get("/", beliefHandler.List)
			r.Post("/", beliefHandler.Create)
			r.Get("/coherence", beliefHandler.Coherence)
			r.Get("/health", beliefHandler.Health)
			r.Get("/export", beliefHandler.Export)
			r.Post("/import", beliefHandler.Import)
			r.Get("/stream", streamHandler.Beliefs)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", beliefHandler.GetByID)
				r.Put("/weight", beliefHandler.UpdateWeight)
				r.Post("/{action}", beliefHandler.Revise)
				r.Put("/connections/{otherID}", beliefHandler.Connect)
				r.Delete("/connections/{otherID}", beliefHandler.Disconnect)
			})
		})

		r.Post("/perspectives/strengthen", perspectiveHandler.Strengthen)

		r.Post("/deliberations/score", deliberationHandler.Score)
		r.Get("/deliberations/{id}", deliberationHandler.GetByID)
		r.Post("/deliberations/{id}/steps/{index}/flag", deliberationHandler.FlagStep)
		r.Post("/turns", deliberationHandler.ProcessTurn)

		r.Route("/memories", func(r chi.Router) {
			r.Get("/", memoryHandler.List)
			r.Post("/", memoryHandler.Create)
			r.Get("/{id}", memoryHandler.GetByID)
		})

		r.Route("/patterns", func(r chi.Router) {
			r.Get("/", patternHandler.List)
			r.Post("/confirm", patternHandler.Confirm)
			r.Post("/reject", patternHandler.Reject)
		})

		r.Post("/emergence/scan", emergenceHandler.Scan)
	})

	return app, nil
}

// Close stops the rate limiter sweeper. Background sync is stopped separately by the caller.
func (app *App) Close() {
	select {
	case <-app.done:
	default:
		close(app.done)
	}
}

func healthHandler(db Pinger, graph *service.BeliefGraph) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"beliefs": graph.Len(),
		})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds":    uptime.Seconds(),
			"uptime_human":      uptime.Round(time.Second).String(),
			"requests":          app.metrics.Snapshot(),
			"goroutines":        runtime.NumGoroutine(),
			"belief_count":      app.Graph.Len(),
			"belief_version":    app.Graph.Version(),
			"network_coherence": app.Graph.NetworkCoherence(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores satisfy interfaces at compile time.
var (
	_ domain.BeliefStore       = (*store.BeliefStore)(nil)
	_ domain.LogicEntryStore   = (*store.LogicEntryStore)(nil)
	_ domain.MemoryRecordStore = (*store.MemoryRecordStore)(nil)
)
