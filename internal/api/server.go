package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/atlas-desktop/market-simulator/internal/engine"
	"github.com/atlas-desktop/market-simulator/pkg/types"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Server exposes a running simulation over HTTP and WebSocket.
type Server struct {
	mu         sync.RWMutex
	logger     *zap.Logger
	config     *types.ServerConfig
	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader
	hub        *Hub
	engine     *engine.TradingEngine
	result     *engine.Result
	started    time.Time
}

// NewServer creates an API server over the given engine.
func NewServer(logger *zap.Logger, config *types.ServerConfig, eng *engine.TradingEngine, registry *prometheus.Registry) *Server {
	s := &Server{
		logger:  logger,
		config:  config,
		router:  mux.NewRouter(),
		hub:     NewHub(logger),
		engine:  eng,
		started: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
	}
	s.setupRoutes(registry)
	return s
}

// Hub returns the WebSocket hub, for attaching to the event manager.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router exposes the route table for tests and embedding.
func (s *Server) Router() *mux.Router {
	return s.router
}

// SetResult publishes a finished run's result to the status endpoints.
func (s *Server) SetResult(r *engine.Result) {
	s.mu.Lock()
	s.result = r
	s.mu.Unlock()
	s.hub.Broadcast(MsgTypeRunComplete, r)
}

// setupRoutes configures HTTP routes.
func (s *Server) setupRoutes(registry *prometheus.Registry) {
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/v1/status", s.handleStatus).Methods("GET")
	s.router.HandleFunc("/api/v1/portfolio", s.handlePortfolio).Methods("GET")
	s.router.HandleFunc("/api/v1/transactions", s.handleTransactions).Methods("GET")
	s.router.HandleFunc("/api/v1/performance", s.handlePerformance).Methods("GET")
	s.router.HandleFunc("/api/v1/result", s.handleResult).Methods("GET")

	if s.config.EnableMetrics && registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	s.router.HandleFunc(s.config.WebSocketPath, s.handleWebSocket)
}

// Start starts the hub and the HTTP server. It blocks until the server
// stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go s.hub.Run()
	s.logger.Info("Starting API server", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.mu.Lock()
	for client := range s.hub.clients {
		client.conn.Close()
	}
	s.hub.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	em := s.engine.EventManager()
	s.respond(w, http.StatusOK, map[string]any{
		"simulationTime":   em.CurrentTime(),
		"endTime":          em.EndTime(),
		"eventsDispatched": em.EventsDispatched(),
		"pendingEvents":    em.Pending(),
	})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	p := s.engine.Portfolio.Portfolio()
	s.respond(w, http.StatusOK, map[string]any{
		"cash":           p.Cash(),
		"startingCash":   p.StartingCash(),
		"positionsValue": p.PositionsValue(),
		"portfolioValue": p.PortfolioValue(),
		"netPositions":   p.NetPositions(),
		"weights":        p.Weights(),
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.engine.Ledger.Transactions())
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]any{
		"records": s.engine.Performance.Records(),
		"summary": s.engine.Performance.Summarize(),
	})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	result := s.result
	s.mu.RUnlock()
	if result == nil {
		s.respond(w, http.StatusNotFound, map[string]string{"error": "run not finished"})
		return
	}
	s.respond(w, http.StatusOK, result)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:   uuid.New().String(),
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
