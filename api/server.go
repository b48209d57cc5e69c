package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/SpherCodes/LaserStrike/game/player"
	"github.com/SpherCodes/LaserStrike/game/service"
	"github.com/SpherCodes/LaserStrike/game/session"
	"github.com/SpherCodes/LaserStrike/transport/realtime"
	"github.com/SpherCodes/LaserStrike/transport/websocket"
	"github.com/gorilla/mux"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	// Maximum accepted strike body (a base64 camera frame)
	maxStrikeBody = 8 << 20

	// How long ?wait=true strikes wait for the backend verdict
	strikeWait = 10 * time.Second

	// How long a verdict is awaited for the strike_result broadcast
	strikeResultTTL = time.Minute

	// How long register waits for the realtime connection
	connectWait = 5 * time.Second

	qrSize = 320
)

// Server represents the console REST API server
type Server struct {
	session *session.Session
	backend service.BackendService
	hub     *websocket.Hub
	router  *mux.Router

	mu        sync.RWMutex
	publicURL string
}

// NewServer creates a new API server. Session events are forwarded to
// player view clients of hub.
func NewServer(sess *session.Session, backend service.BackendService, hub *websocket.Hub) *Server {
	s := &Server{
		session: sess,
		backend: backend,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	if sess != nil && hub != nil {
		sess.Subscribe(func(ev session.Event) {
			hub.BroadcastToView(websocket.ViewPlayer, string(ev.Kind), ev)
		})
	}

	s.setupRoutes()
	return s
}

// SetPublicURL sets the URL encoded by /qr
func (s *Server) SetPublicURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publicURL = strings.TrimRight(url, "/")
}

// PublicURL returns the URL encoded by /qr
func (s *Server) PublicURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.publicURL
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/status", s.handleStatus).Methods("GET")

	// Local player
	api.HandleFunc("/player", s.handleGetPlayer).Methods("GET")
	api.HandleFunc("/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/strike", s.handleStrike).Methods("POST")
	api.HandleFunc("/exit", s.handleExit).Methods("POST")

	// Admin and spectator views
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")
	api.HandleFunc("/snapshots", s.handleSnapshots).Methods("GET")
	api.HandleFunc("/admin/reset", s.handleAdminReset).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/qr", s.handleQR).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var apiErr *service.APIError
	switch {
	case errors.Is(err, session.ErrNoPlayer), errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidPlayer):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrPlayerEliminated):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotConfigured), errors.Is(err, service.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Status

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	}

	if s.backend != nil {
		health, err := s.backend.Health(r.Context())
		if err != nil {
			resp["status"] = "degraded"
			resp["backend_error"] = err.Error()
		} else {
			resp["backend"] = health
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// StatusResponse is the body of GET /api/status
type StatusResponse struct {
	Player      *player.Player     `json:"player"`
	HealthLevel player.HealthLevel `json:"health_level,omitempty"`
	Route       session.Route      `json:"route"`
	Connected   bool               `json:"connected"`
	Clients     int                `json:"clients"`
	PublicURL   string             `json:"public_url,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Player:    s.session.Player(),
		Route:     s.session.Route(),
		Connected: s.session.Connected(),
		PublicURL: s.PublicURL(),
	}
	if resp.Player != nil {
		resp.HealthLevel = player.LevelFor(resp.Player.Health, player.MaxHealth)
	}
	if s.hub != nil {
		resp.Clients = s.hub.Clients()
	}

	respondJSON(w, http.StatusOK, resp)
}

// Player Handlers

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	p := s.session.Player()
	if p == nil {
		respondError(w, http.StatusNotFound, session.ErrNoPlayer.Error())
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := s.session.Register(r.Context(), req.ID, req.Name)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), connectWait)
	defer cancel()

	connected := true
	if _, err := s.session.Connect(ctx); err != nil {
		log.Printf("[api] Player %d registered but not connected: %v", p.ID, err)
		connected = false
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"player":    p,
		"connected": connected,
	})
}

// StrikeResult is the verdict for one capture
type StrikeResult struct {
	RequestID string `json:"request_id"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

func (s *Server) handleStrike(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image string `json:"image"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxStrikeBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	image, err := base64.StdEncoding.DecodeString(realtime.StripDataURI(req.Image))
	if err != nil || len(image) == 0 {
		respondError(w, http.StatusBadRequest, "image must be base64 encoded JPEG data")
		return
	}

	results := make(chan StrikeResult, 1)
	id, err := s.session.Strike(image, func(success bool, message string) {
		select {
		case results <- StrikeResult{Success: success, Message: message}:
		default:
		}
	})
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	if id == "" {
		respondError(w, http.StatusServiceUnavailable, realtime.NotConnectedMessage)
		return
	}

	verdicts := make(chan StrikeResult, 1)
	go s.publishStrike(id, results, verdicts)

	if r.URL.Query().Get("wait") != "true" {
		respondJSON(w, http.StatusAccepted, StrikeResult{RequestID: id, Message: "sent"})
		return
	}

	select {
	case res := <-verdicts:
		respondJSON(w, http.StatusOK, res)
	case <-time.After(strikeWait):
		respondError(w, http.StatusGatewayTimeout, fmt.Sprintf("no response for %s", id))
	case <-r.Context().Done():
	}
}

// publishStrike stamps the verdict for id and pushes it to player views.
// Dropped orphans never answer, so it gives up after strikeResultTTL.
func (s *Server) publishStrike(id string, results <-chan StrikeResult, verdicts chan<- StrikeResult) {
	select {
	case res := <-results:
		res.RequestID = id
		if s.hub != nil {
			s.hub.BroadcastToView(websocket.ViewPlayer, "strike_result", res)
		}
		verdicts <- res
	case <-time.After(strikeResultTTL):
	}
}

func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Exit(); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Player exited",
		"route":   string(s.session.Route()),
	})
}

// Admin Handlers

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.backend == nil {
		respondError(w, http.StatusServiceUnavailable, service.ErrNotConfigured.Error())
		return
	}

	standings, err := s.backend.Leaderboard(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(standings),
		"standings": standings,
	})
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.backend == nil {
		respondError(w, http.StatusServiceUnavailable, service.ErrNotConfigured.Error())
		return
	}

	snapshots, err := s.backend.ListSnapshots(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(snapshots),
		"snapshots": snapshots,
	})
}

func (s *Server) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	if s.backend == nil {
		respondError(w, http.StatusServiceUnavailable, service.ErrNotConfigured.Error())
		return
	}

	if err := s.backend.ResetGame(r.Context()); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Game reset"})
}

// WatchLeaderboard pushes standings to admin view clients every interval
// until ctx is done
func (s *Server) WatchLeaderboard(ctx context.Context, interval time.Duration) {
	if s.backend == nil || s.hub == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			standings, err := s.backend.Leaderboard(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("[api] Error fetching players: %v", err)
				}
				continue
			}
			s.hub.BroadcastToView(websocket.ViewAdmin, "leaderboard", standings)
		}
	}
}

// WebSocket and QR

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "WebSocket not available")
		return
	}

	s.hub.ServeWS(w, r, r.URL.Query().Get("view"))
}

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	target := s.PublicURL()
	if target == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		target = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	if view := r.URL.Query().Get("view"); view != "" {
		target += "/" + strings.TrimLeft(view, "/")
	}

	png, err := qrcode.Encode(target, qrcode.Medium, qrSize)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-QR-Target", target)
	w.Write(png)
}
