package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"atelier/internal/store"
	"atelier/pkg/feed"
)

// Server provides the HTTP API over the feed engine.
type Server struct {
	store  store.Store
	engine *feed.Engine
	port   int
}

// New creates a new HTTP server.
func New(s store.Store, engine *feed.Engine, port int) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		store:  s,
		engine: engine,
		port:   port,
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/feed", s.handleFeed)
	mux.HandleFunc("/api/v1/feed/seen", s.handleMarkSeen)
	mux.HandleFunc("/api/v1/notes", s.handleNotes)

	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("atelier server listening on %s\n", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleFeed serves GET /api/v1/feed?user=&scope=&community=&offset=&limit=.
// An absent user parameter yields the public, non-personalized feed.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	req := feed.Request{
		UserID:      r.URL.Query().Get("user"),
		Scope:       feed.Scope(r.URL.Query().Get("scope")),
		CommunityID: r.URL.Query().Get("community"),
	}
	if req.Scope == "" {
		req.Scope = feed.ScopeAll
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		req.Offset, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		req.Limit, _ = strconv.Atoi(v)
	}

	page, err := s.engine.GetFeed(r.Context(), req)
	if err != nil {
		writeJSON(w, statusForFeedError(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// handleMarkSeen serves POST /api/v1/feed/seen. Callers treat it as
// fire-and-forget; a failure here never fails a feed read.
func (s *Server) handleMarkSeen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var body struct {
		UserID     string   `json:"user_id"`
		ContentIDs []string `json:"content_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request body"})
		return
	}
	if body.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id required"})
		return
	}

	if err := s.engine.MarkSeen(r.Context(), body.UserID, body.ContentIDs); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleNotes serves GET /api/v1/notes, the raw recent-notes listing.
func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	notes, err := s.store.RecentNotes(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  notes,
		"count": len(notes),
	})
}

func statusForFeedError(err error) int {
	switch {
	case errors.Is(err, feed.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, feed.ErrNotCommunity), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
