// Package httpstore exposes a remote store over HTTP and provides the
// matching client. The server wraps any remote.Store (SQLite for a
// single-host deployment, Postgres behind it for multi-host); pushes are
// streamed to clients as server-sent events.
package httpstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/duoplan/duoplan/internal/plan"
	"github.com/duoplan/duoplan/internal/remote"
)

// Server serves the document API for one backing store.
type Server struct {
	store  remote.Store
	token  string
	logger *slog.Logger
}

// NewServer wraps a store. When token is non-empty every request must carry
// it as a bearer token; unauthenticated requests get 401.
func NewServer(store remote.Store, token string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, token: token, logger: logger}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(s.auth)

	router.Route("/documents/{pairingID}", func(r chi.Router) {
		r.Get("/", s.getDocument)
		r.Put("/", s.putDocument)
		r.Get("/events", s.streamEvents)
	})
	return router
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	pairingID := chi.URLParam(r, "pairingID")

	env, err := s.store.Fetch(r.Context(), pairingID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if env == nil {
		http.Error(w, "no document", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) putDocument(w http.ResponseWriter, r *http.Request) {
	pairingID := chi.URLParam(r, "pairingID")

	var doc plan.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, fmt.Sprintf("decode document: %v", err), http.StatusBadRequest)
		return
	}

	rev, err := s.store.Upsert(r.Context(), pairingID, doc)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"rev": rev})
}

// streamEvents holds the connection open and writes one SSE message per
// upsert on the pairing. Each message's data line is a JSON envelope.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	pairingID := chi.URLParam(r, "pairingID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Envelope deliveries cross from the store's push goroutine to this
	// handler's goroutine. Buffered so a slow client cannot stall the
	// store's fanout; overflow drops the oldest pending snapshot, which is
	// safe because each envelope carries the full document.
	events := make(chan plan.Envelope, 8)
	unsub, err := s.store.Subscribe(pairingID, func(env plan.Envelope) {
		for {
			select {
			case events <- env:
				return
			default:
				select {
				case <-events:
				default:
				}
			}
		}
	})
	if err != nil {
		s.storeError(w, err)
		return
	}
	defer unsub()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case env := <-events:
			data, err := json.Marshal(env)
			if err != nil {
				s.logger.Warn("encode event", "pairing", pairingID, "err", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case remote.IsTransient(err):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.logger.Error("store failure", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
