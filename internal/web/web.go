package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"countdown/internal/config"
	"countdown/internal/dashboard"
	appLog "countdown/internal/log"
	"countdown/internal/model"
	"countdown/internal/prefs"
)

// Server exposes the dashboard over HTTP and pushes ticks over a
// websocket.
type Server struct {
	cfg *config.Config
	svc *dashboard.Service
	mux *http.ServeMux
	hub *Hub

	ctxMu sync.RWMutex
	ctx   context.Context
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, svc *dashboard.Service) *Server {
	s := &Server{
		cfg: cfg,
		svc: svc,
		mux: http.NewServeMux(),
		hub: newHub(),
		ctx: context.Background(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves until ctx is canceled, then shuts down gracefully. It also
// drives the websocket hub and the tick loop.
func (s *Server) Run(ctx context.Context) error {
	s.startHub(ctx)
	go s.tickLoop(ctx, s.cfg.Tick())

	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	appLog.Info("HTTP server stopped")
	return nil
}

// startHub binds websocket clients to ctx and starts the fan-out loop.
func (s *Server) startHub(ctx context.Context) {
	s.ctxMu.Lock()
	s.ctx = ctx
	s.ctxMu.Unlock()
	go s.hub.run(ctx)
}

func (s *Server) lifetime() context.Context {
	s.ctxMu.RLock()
	defer s.ctxMu.RUnlock()
	return s.ctx
}

// tickLoop pushes the current view and any effect signals every interval.
// Ticks with no connected clients still feed the effect tracker so marks
// are not replayed late when a client connects.
func (s *Server) tickLoop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.tick()
		}
	}
}

func (s *Server) tick() {
	v, signals := s.svc.Tick()
	if s.hub.Clients() == 0 {
		return
	}
	s.hub.publish("tick", v)
	for _, sig := range signals {
		appLog.Debug("effect signal", "event", sig.EventID, "kind", string(sig.Kind), "seconds", sig.Seconds)
		s.hub.publish("signal", sig)
	}
}

// pushView sends an out-of-band frame after a change made over HTTP.
func (s *Server) pushView() {
	if s.hub.Clients() == 0 {
		return
	}
	s.hub.publish("tick", s.svc.Current())
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !passwordMatches(password, p) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Countdown", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// passwordMatches accepts either a bcrypt hash or a plain password in the
// config.
func passwordMatches(configured, given string) bool {
	if isBcryptHash(configured) {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(given)) == nil
	}
	return secureCompare(given, configured)
}

func isBcryptHash(s string) bool {
	for _, p := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	s.mux.HandleFunc("POST /api/preferences/reorder", s.handleReorder)
	s.mux.HandleFunc("POST /api/preferences/move", s.handleMove)
	s.mux.HandleFunc("POST /api/preferences/visibility", s.handleVisibility)
	s.mux.HandleFunc("POST /api/preferences/category", s.handleCategory)
	s.mux.HandleFunc("POST /api/preferences/reset", s.handleReset)
	s.mux.HandleFunc("POST /api/preferences/sort", s.handleSort)

	s.mux.HandleFunc("GET /ws", s.handleWS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Current())
}

type eventsResponse struct {
	Events     []dashboard.EventInfo `json:"events"`
	Categories []categoryDTO         `json:"categories"`
}

type categoryDTO struct {
	Category model.Category `json:"category"`
	Shown    bool           `json:"shown"`
}

// handleEvents lists the whole catalog for the settings screen.
func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	events := s.svc.Events()

	var cats []categoryDTO
	idx := make(map[model.Category]int)
	for _, ev := range events {
		i, ok := idx[ev.Category]
		if !ok {
			i = len(cats)
			idx[ev.Category] = i
			cats = append(cats, categoryDTO{Category: ev.Category})
		}
		if ev.Visible {
			cats[i].Shown = true
		}
	}
	if events == nil {
		events = []dashboard.EventInfo{}
	}
	if cats == nil {
		cats = []categoryDTO{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events, Categories: cats})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Refresh(r.Context()); err != nil {
		appLog.Error("manual refresh failed", err)
		writeError(w, http.StatusServiceUnavailable, "refresh failed")
		return
	}
	s.pushView()
	writeJSON(w, http.StatusOK, map[string]int{"events": s.svc.Catalog().Len()})
}

type snapshotResponse struct {
	Order      []string `json:"order"`
	VisibleIDs []string `json:"visible_ids"`
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldIndex *int `json:"old_index"`
		NewIndex *int `json:"new_index"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OldIndex == nil || req.NewIndex == nil {
		writeError(w, http.StatusBadRequest, "old_index and new_index are required")
		return
	}
	s.respondSnapshot(w, func() (prefs.Snapshot, error) {
		return s.svc.Reorder(*req.OldIndex, *req.NewIndex)
	})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActiveID string `json:"active_id"`
		OverID   string `json:"over_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.respondSnapshot(w, func() (prefs.Snapshot, error) {
		return s.svc.Move(req.ActiveID, req.OverID)
	})
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.respondSnapshot(w, func() (prefs.Snapshot, error) {
		return s.svc.ToggleVisibility(req.ID)
	})
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
		Show     bool   `json:"show"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Category == "" {
		writeError(w, http.StatusBadRequest, "category is required")
		return
	}
	s.respondSnapshot(w, func() (prefs.Snapshot, error) {
		return s.svc.ToggleCategory(model.Category(req.Category), req.Show)
	})
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.respondSnapshot(w, s.svc.Reset)
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	var desc bool
	switch strings.ToLower(req.Direction) {
	case "", "asc":
	case "desc":
		desc = true
	default:
		writeError(w, http.StatusBadRequest, "direction must be asc or desc")
		return
	}
	s.respondSnapshot(w, func() (prefs.Snapshot, error) {
		return s.svc.SortByDate(desc)
	})
}

// respondSnapshot runs a preference mutation and maps its outcome to a
// response.
func (s *Server) respondSnapshot(w http.ResponseWriter, fn func() (prefs.Snapshot, error)) {
	snap, err := fn()
	switch {
	case err == nil:
	case errors.Is(err, prefs.ErrIndexOutOfRange), errors.Is(err, prefs.ErrUnknownID):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, prefs.ErrNotAttached):
		writeError(w, http.StatusServiceUnavailable, "catalog not loaded yet")
		return
	default:
		appLog.Error("preference update failed", err)
		writeError(w, http.StatusInternalServerError, "preference update failed")
		return
	}

	s.pushView()
	writeJSON(w, http.StatusOK, snapshotResponse{Order: snap.Order(), VisibleIDs: snap.VisibleIDs()})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	first, err := encodeFrame("tick", s.svc.Current())
	if err != nil {
		appLog.Error("ws encode failed", err)
		first = nil
	}
	s.hub.serveWS(s.lifetime(), w, r, first)
}

const maxBodyBytes = 64 << 10

// decodeJSON reads a small JSON body into v, answering 400 itself on
// failure. An empty body decodes as {}.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
