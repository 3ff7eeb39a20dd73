package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/chainpulse/signal-engine/pkg/models"
	"github.com/chainpulse/signal-engine/pkg/utils/config"
	"github.com/chainpulse/signal-engine/pkg/utils/logger"
)

// FeedProvider exposes the Clustering Engine's active clusters, ranked by
// priority.
type FeedProvider interface {
	Snapshot() []*models.Cluster
}

// Leaderboard exposes the Source Reputation Tracker's ranking and lookups.
type Leaderboard interface {
	Leaderboard(minCalls, limit int, includeFlagged bool) []models.SourceStats
	Get(sourceID string) (models.SourceStats, bool)
}

// ScanRequest is the body of POST /api/scan.
type ScanRequest struct {
	Messages []ScanMessage `json:"messages"`
	Limit    int           `json:"limit"`
}

// ScanMessage is one chat line supplied to an ad hoc scan.
type ScanMessage struct {
	Text       string    `json:"text"`
	SourceName string    `json:"source_name"`
	Time       time.Time `json:"time"`
}

// Scanner performs an ad hoc contextual scan over a batch of messages,
// independent of the live clustering pipeline. cmd/engine's scannerAdapter
// satisfies this by converting each ScanMessage for internal/scanner.Scanner.
type Scanner interface {
	Scan(ctx context.Context, messages []ScanMessage, limit int) []models.TokenDiscussion
}

// Server gère le serveur HTTP pour l'API
type Server struct {
	config     *config.APIConfig
	router     *mux.Router
	httpServer *http.Server
	logger     *logger.Logger

	feed        FeedProvider
	leaderboard Leaderboard
	scanner     Scanner
	hub         *Hub
}

// NewServer crée un nouveau serveur API
func NewServer(cfg *config.APIConfig, feed FeedProvider, leaderboard Leaderboard, scanner Scanner, hub *Hub, log *logger.Logger) *Server {
	router := mux.NewRouter()

	server := &Server{
		config:      cfg,
		router:      router,
		logger:      log,
		feed:        feed,
		leaderboard: leaderboard,
		scanner:     scanner,
		hub:         hub,
	}

	server.initializeRoutes()

	return server
}

// initializeRoutes configure toutes les routes de l'API
func (s *Server) initializeRoutes() {
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	s.router.HandleFunc("/api/health", s.HealthCheck).Methods("GET")
	s.router.HandleFunc("/api/feed", s.Feed).Methods("GET")
	s.router.HandleFunc("/api/sources/leaderboard", s.Leaderboard).Methods("GET")
	s.router.HandleFunc("/api/scan", s.Scan).Methods("POST")
	s.router.HandleFunc("/ws/feed", s.WebsocketFeed)

	s.router.Use(corsMiddleware.Handler)
	s.router.Use(s.loggingMiddleware)
}

// Router exposes the underlying mux.Router so the composition root can
// mount additional handlers (e.g. /metrics) before Start is called.
func (s *Server) Router() *mux.Router {
	return s.router
}

// HealthCheck est un endpoint pour vérifier l'état du serveur
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Feed returns the active clusters sorted by priority descending,
// optionally limited by ?limit=.
func (s *Server) Feed(w http.ResponseWriter, r *http.Request) {
	clusters := s.feed.Snapshot()
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Scores.Priority > clusters[j].Scores.Priority
	})

	limit := parseLimit(r, 50)
	if limit > 0 && limit < len(clusters) {
		clusters = clusters[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"clusters": clusters})
}

// Leaderboard returns ranked source reputations, optionally including
// flagged sources via ?include_flagged=true and filtered by ?min_calls=.
func (s *Server) Leaderboard(w http.ResponseWriter, r *http.Request) {
	minCalls := 0
	if v := r.URL.Query().Get("min_calls"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			minCalls = n
		}
	}
	includeFlagged := r.URL.Query().Get("include_flagged") == "true"
	limit := parseLimit(r, 100)

	sources := s.leaderboard.Leaderboard(minCalls, limit, includeFlagged)
	writeJSON(w, http.StatusOK, map[string]interface{}{"sources": sources})
}

// Scan runs an ad hoc contextual scan over the posted messages.
func (s *Server) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if s.scanner == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scanner not configured"})
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	discussions := s.scanner.Scan(r.Context(), req.Messages, limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{"discussions": discussions})
}

func parseLimit(r *http.Request, def int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// loggingMiddleware enregistre les informations sur les requêtes HTTP
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("HTTP Request",
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
				"user_agent":  r.UserAgent(),
				"duration_ms": time.Since(start).Milliseconds(),
			},
		)
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebsocketFeed upgrades the connection and registers it with the push
// hub, which fans out newly promoted or updated clusters.
func (s *Server) WebsocketFeed(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "push hub not configured", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warning("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	s.hub.Register(conn)
}

// Start démarre le serveur HTTP
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(s.config.WriteTimeout) * time.Second,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	s.logger.Info("Démarrage du serveur API", map[string]interface{}{
		"address": addr,
	})

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown arrête proprement le serveur HTTP
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Arrêt du serveur API")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
