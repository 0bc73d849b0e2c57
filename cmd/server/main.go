// Package main provides the position-sizing service:
// - Engine: streak, regime, compound and risk-adjusted sizing for one user
// - Feed (optional): WebSocket event stream for trade outcomes and regime signals
// - HTTP API: recommendations, configuration, resets, profit projections
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"position-sizing-engine/internal/domain"
	"position-sizing-engine/internal/engine"
	"position-sizing-engine/internal/feed"
	"position-sizing-engine/internal/observability"
	"position-sizing-engine/internal/storage"
	chstore "position-sizing-engine/internal/storage/clickhouse"
	"position-sizing-engine/internal/storage/memory"
	"position-sizing-engine/internal/storage/migrations"
	pgstore "position-sizing-engine/internal/storage/postgres"
)

// Server holds all components of the sizing service.
type Server struct {
	engine  *engine.Engine
	logger  *log.Logger
	started time.Time

	tickInterval time.Duration
	ticks        atomic.Int64
}

// allStores holds all storage implementations.
type allStores struct {
	configStore        storage.ConfigStore
	compoundStateStore storage.CompoundStateStore
	decisionLogStore   storage.DecisionLogStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	userID := flag.String("user-id", envOr("SIZING_USER_ID", "default"), "User whose sizing state this instance owns")
	feedEndpoint := flag.String("feed-endpoint", os.Getenv("FEED_WS_ENDPOINT"), "WebSocket event stream endpoint (optional)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	httpAddr := flag.String("http-addr", envOr("HTTP_ADDR", ":8080"), "HTTP API address")
	tickInterval := flag.Duration("tick-interval", 1*time.Minute, "Streak decay evaluation interval")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Create engine
	eng, err := engine.New(ctx, engine.Options{
		UserID:             *userID,
		ConfigStore:        stores.configStore,
		CompoundStateStore: stores.compoundStateStore,
		DecisionLog:        stores.decisionLogStore,
		Logger:             log.New(os.Stdout, "[engine] ", log.LstdFlags),
	})
	if err != nil {
		logger.Fatalf("Failed to create engine: %v", err)
	}
	logger.Printf("Engine ready for user %s", *userID)

	server := &Server{
		engine:       eng,
		logger:       logger,
		started:      time.Now(),
		tickInterval: *tickInterval,
	}

	// Connect the event feed when configured
	if *feedEndpoint != "" {
		client, err := feed.NewClient(ctx, *feedEndpoint, eng, nil, log.New(os.Stdout, "[feed] ", log.LstdFlags))
		if err != nil {
			logger.Fatalf("Failed to connect event feed: %v", err)
		}
		defer client.Close()
		logger.Printf("Connected to event feed %s", *feedEndpoint)
	}

	// Periodic streak decay
	go server.runTicker(ctx)

	// HTTP server
	httpServer := &http.Server{
		Addr:    *httpAddr,
		Handler: server.routes(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}()

	logger.Printf("Starting HTTP server on %s", *httpAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores and runs migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			configStore:        memory.NewConfigStore(),
			compoundStateStore: memory.NewCompoundStateStore(),
			decisionLogStore:   memory.NewDecisionLogStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		// PostgreSQL stores (configuration + compound state)
		configStore:        pgstore.NewConfigStore(pool),
		compoundStateStore: pgstore.NewCompoundStateStore(pool),

		// ClickHouse store (append-only decision log)
		decisionLogStore: chstore.NewDecisionLogStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// runTicker drives the idle streak decay.
func (s *Server) runTicker(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.engine.Tick()
			s.ticks.Add(1)
		}
	}
}

// routes builds the HTTP API mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/api/recommendation", s.instrument("recommendation", s.handleRecommendation))
	mux.HandleFunc("/api/risk-recommendation", s.instrument("risk_recommendation", s.handleRiskRecommendation))
	mux.HandleFunc("/api/snapshot", s.instrument("snapshot", s.handleSnapshot))
	mux.HandleFunc("/api/trade-closed", s.instrument("trade_closed", s.handleTradeClosed))
	mux.HandleFunc("/api/regime", s.instrument("regime", s.handleRegime))
	mux.HandleFunc("/api/config", s.instrument("config", s.handleConfig))
	mux.HandleFunc("/api/compound/reset", s.instrument("compound_reset", s.handleCompoundReset))
	mux.HandleFunc("/api/streak/reset", s.instrument("streak_reset", s.handleStreakReset))
	mux.HandleFunc("/api/profit-breakdown", s.instrument("profit_breakdown", s.handleProfitBreakdown))
	mux.HandleFunc("/api/status", s.handleStatus)

	return mux
}

// instrument wraps a handler with request metrics.
func (s *Server) instrument(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r)
		observability.DefaultMetrics.HTTPRequests.WithLabelValues(name, r.Method).Inc()
		observability.DefaultMetrics.HTTPRequestLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.engine.GetRecommendedSize(r.Context()))
}

func (s *Server) handleRiskRecommendation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.engine.GetRiskAdjustedSize())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.engine.Snapshot())
}

// tradeClosedRequest is the POST /api/trade-closed payload.
type tradeClosedRequest struct {
	Profit    float64 `json:"profit"`
	IsWin     bool    `json:"is_win"`
	Timestamp int64   `json:"timestamp"`
}

func (s *Server) handleTradeClosed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req tradeClosedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	outcome := domain.TradeOutcome{
		Profit:    req.Profit,
		IsWin:     req.IsWin,
		Timestamp: req.Timestamp,
	}
	if err := s.engine.OnTradeClosed(r.Context(), outcome); err != nil {
		s.logger.Printf("Trade outcome persistence error: %v", err)
	}

	writeJSON(w, s.engine.Snapshot())
}

// regimeRequest is the POST /api/regime payload.
type regimeRequest struct {
	Label     string  `json:"label"`
	Deviation float64 `json:"deviation"`
}

func (s *Server) handleRegime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req regimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	s.engine.OnRegimeSignal(domain.RegimeSignal{
		Label:     req.Label,
		Deviation: req.Deviation,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.engine.Config())

	case http.MethodPut:
		// The submitted record replaces the whole configuration.
		var cfg domain.Configuration
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		if err := s.engine.ApplyConfig(r.Context(), cfg); err != nil {
			if errors.Is(err, domain.ErrInvalidConfig) {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, s.engine.Config())

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCompoundReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.engine.ResetCompound(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.engine.Snapshot())
}

func (s *Server) handleStreakReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.engine.ResetStreak(r.Context())
	writeJSON(w, s.engine.Snapshot())
}

// profitBreakdownRequest is the POST /api/profit-breakdown payload.
type profitBreakdownRequest struct {
	Size                float64 `json:"size"`
	EntryPrice          float64 `json:"entry_price"`
	ExpectedMovePercent float64 `json:"expected_move_percent"`
	Direction           string  `json:"direction"`
	Leverage            float64 `json:"leverage"`
}

func (s *Server) handleProfitBreakdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req profitBreakdownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	b := s.engine.ComputeProfitBreakdown(req.Size, req.EntryPrice, req.ExpectedMovePercent, req.Direction, req.Leverage)
	writeJSON(w, b)
}

// StatusResponse is the JSON response for /api/status endpoint.
type StatusResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Ticks   int64  `json:"ticks"`
	Started string `json:"started"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StatusResponse{
		Status:  "running",
		Uptime:  time.Since(s.started).String(),
		Ticks:   s.ticks.Load(),
		Started: s.started.Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// envOr returns the environment value or a default.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
