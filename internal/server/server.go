// Package server implements the strategy game command server.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"golang.org/x/time/rate"

	"grand-strategy/internal/config"
	"grand-strategy/internal/database"
	"grand-strategy/internal/game"
)

// Version is reported to clients on connect.
const Version = "0.1.0"

// Server is the main game server.
type Server struct {
	cfg      config.Config
	db       *database.DB
	repo     *database.Repository
	hub      *Hub
	renderer game.Renderer
	server   *http.Server

	// Commands touching the same game are serialized.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New opens the database and creates a server.
func New(cfg config.Config) (*Server, error) {
	db, err := database.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewWithDB(cfg, db), nil
}

// NewWithDB creates a server on an open database.
func NewWithDB(cfg config.Config, db *database.DB) *Server {
	s := &Server{
		cfg:      cfg,
		db:       db,
		repo:     database.NewRepository(db),
		renderer: &SVGRenderer{Dir: cfg.MapDir},
		locks:    make(map[string]*sync.Mutex),
	}
	s.hub = NewHub()
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/games", s.handleListGames)
	mux.HandleFunc("GET /api/games/{id}", s.handleGetGame)
	return mux
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
	}

	slog.Info("server listening",
		"addr", s.cfg.Addr,
		"db", s.cfg.DBPath,
		"workers", s.cfg.TurnWorkers,
	)

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.hub.CloseAll()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// lockGame serializes access to one game and returns the unlock function.
func (s *Server) lockGame(id string) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[id] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// handleWebSocket accepts a connection and runs it until it closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.AllowedOrigins,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(s.cfg.RateLimit), s.cfg.RateBurst)
	client := NewClient(conn, limiter, cancel)
	s.hub.Register(client)
	defer s.hub.Unregister(client)

	go client.WritePump(ctx)
	client.ReadPump(ctx, NewHandlers(s))
}

// handleListGames returns every stored game.
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.db.ListGames()
	if err != nil {
		slog.Error("failed to list games", "error", err)
		http.Error(w, "Failed to list games", http.StatusInternalServerError)
		return
	}
	writeJSON(w, games)
}

// gameView is the public JSON view of one game.
type gameView struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Ruleset   string         `json:"ruleset"`
	World     string         `json:"world"`
	Turn      int            `json:"turn"`
	Date      string         `json:"date"`
	Map       game.MapState  `json:"map"`
	Summaries []game.Summary `json:"summaries"`
}

// handleGetGame returns a summary of one game.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sg, err := s.repo.Game(r.PathValue("id"))
	if errors.Is(err, database.ErrGameNotFound) {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to load game", "game", r.PathValue("id"), "error", err)
		http.Error(w, "Failed to load game", http.StatusInternalServerError)
		return
	}
	writeJSON(w, gameView{
		ID:        sg.ID,
		Name:      sg.Name,
		Ruleset:   sg.Ruleset,
		World:     sg.World,
		Turn:      sg.Turn,
		Date:      sg.Date.String(),
		Map:       sg.Map,
		Summaries: sg.Summaries(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
