// Package web exposes the card store over HTTP. It is deliberately a thin
// collaborator: request validation, auth resolution and one lock serializing
// store access live here; every scheduling decision stays in the engine.
package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/conorfennell/flashdeck/internal/auth"
	"github.com/conorfennell/flashdeck/internal/card"
	"github.com/conorfennell/flashdeck/internal/deck"
	"github.com/conorfennell/flashdeck/internal/store"
)

// Server holds the dependencies for the HTTP API.
type Server struct {
	mu       sync.Mutex // serializes all access to store and seeder
	store    *store.CardStore
	users    *auth.UserStore
	tokens   *auth.Tokens
	seeder   *deck.Seeder
	seedCfg  SeedConfig
	router   chi.Router
	validate *validator.Validate
	log      zerolog.Logger
}

// SeedConfig is what a POST /api/seed run uses.
type SeedConfig struct {
	Sources []string
	Tier    card.Tier
}

// NewServer wires up the router.
func NewServer(s *store.CardStore, users *auth.UserStore, tokens *auth.Tokens,
	seeder *deck.Seeder, seedCfg SeedConfig, logger zerolog.Logger) *Server {

	srv := &Server{
		store:    s,
		users:    users,
		tokens:   tokens,
		seeder:   seeder,
		seedCfg:  seedCfg,
		validate: validator.New(),
		log:      logger,
	}
	srv.routes()
	return srv
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/cards", s.handleListCards)
			r.Post("/cards", s.handleCreateCard)
			r.Get("/cards/due", s.handleDueCards)
			r.Get("/cards/{id}", s.handleGetCard)
			r.Put("/cards/{id}", s.handleUpdateCard)
			r.Delete("/cards/{id}", s.handleDeleteCard)
			r.Post("/cards/{id}/review", s.handleReviewCard)

			r.Get("/stats", s.handleStats)
			r.Get("/categories", s.handleCategories)
			r.Post("/seed", s.handleSeed)
		})
	})

	s.router = r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// requireAuth resolves the bearer token to an owner id and stores it in the
// request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, err := s.tokens.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.StoreUserInContext(r.Context(), userID)))
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// decodeValid decodes the JSON body into v and runs struct validation, so
// malformed input never reaches the engine.
func (s *Server) decodeValid(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return s.validate.Struct(v)
}

// cardVisibleTo reports whether a card belongs to the owner. Cards without
// an owner (seeded decks) are visible to everyone.
func cardVisibleTo(c *card.Card, owner string) bool {
	return c.Owner == "" || c.Owner == owner
}

// findCard looks up a card and enforces ownership. The caller must hold the
// lock.
func (s *Server) findCard(w http.ResponseWriter, r *http.Request) (*card.Card, bool) {
	c, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "card not found")
		return nil, false
	}
	if !cardVisibleTo(c, auth.UserFromContext(r.Context())) {
		respondError(w, http.StatusForbidden, "unauthorized access to this card")
		return nil, false
	}
	return c, true
}
