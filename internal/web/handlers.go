package web

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/conorfennell/flashdeck/internal/auth"
	"github.com/conorfennell/flashdeck/internal/card"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "username (min 3 chars) and password (min 6 chars) are required")
		return
	}

	u, err := s.users.Register(req.Username, req.Password)
	if errors.Is(err, auth.ErrUsernameTaken) {
		respondError(w, http.StatusConflict, "username already exists")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("registering user")
		respondError(w, http.StatusInternalServerError, "could not register user")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"message":  "user registered successfully",
		"user_id":  u.ID,
		"username": u.Username,
	})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	u, err := s.users.Authenticate(req.Username, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, err := s.tokens.Issue(u.ID, time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("issuing token")
		respondError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"user_id":      u.ID,
		"username":     u.Username,
	})
}

// visibleCards returns the owner's cards plus ownerless seeded cards, in
// insertion order, optionally restricted to one category.
func (s *Server) visibleCards(owner, category string) []*card.Card {
	var out []*card.Card
	for _, c := range s.store.All("") {
		if !cardVisibleTo(c, owner) {
			continue
		}
		if category != "" && c.Category != category {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := s.visibleCards(auth.UserFromContext(r.Context()), r.URL.Query().Get("category"))
	respondJSON(w, http.StatusOK, map[string]any{
		"cards": cards,
		"total": len(cards),
	})
}

type createCardRequest struct {
	Front    string `json:"front" validate:"required"`
	Back     string `json:"back" validate:"required"`
	Tier     string `json:"tier" validate:"omitempty,oneof=EASY MEDIUM HARD"`
	Category string `json:"category"`
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := s.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "front and back are required; tier must be EASY, MEDIUM or HARD")
		return
	}

	tier := card.Medium
	if req.Tier != "" {
		tier, _ = card.ParseTier(req.Tier)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.Add(req.Front, req.Back, tier, req.Category, auth.UserFromContext(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "card created but could not be persisted")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "flashcard created successfully",
		"card":    c,
	})
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.findCard(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"card": c})
}

type updateCardRequest struct {
	Tier string `json:"tier" validate:"required,oneof=EASY MEDIUM HARD"`
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var req updateCardRequest
	if err := s.decodeValid(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "tier must be EASY, MEDIUM or HARD")
		return
	}
	tier, _ := card.ParseTier(req.Tier)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.findCard(w, r)
	if !ok {
		return
	}
	if _, err := s.store.SetTier(c.ID, tier); err != nil {
		respondError(w, http.StatusInternalServerError, "tier updated but could not be persisted")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "card tier updated successfully",
		"card":    c,
	})
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.findCard(w, r)
	if !ok {
		return
	}
	if _, err := s.store.Remove(c.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "card deleted but the change could not be persisted")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "flashcard deleted successfully"})
}

type reviewRequest struct {
	Success *bool `json:"success"`
}

func (s *Server) handleReviewCard(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	// An empty or absent body means a successful review.
	_ = s.decodeValid(r, &req)
	success := req.Success == nil || *req.Success

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.findCard(w, r)
	if !ok {
		return
	}
	if _, err := s.store.Review(c.ID, success); err != nil {
		respondError(w, http.StatusInternalServerError, "review recorded but could not be persisted")
		return
	}

	message := "card marked as reviewed"
	if !success {
		message = "card needs more practice"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"card":    c,
		"streak":  c.SuccessStreak,
	})
}

func (s *Server) handleDueCards(w http.ResponseWriter, r *http.Request) {
	owner := auth.UserFromContext(r.Context())
	category := r.URL.Query().Get("category")
	shuffle := r.URL.Query().Get("shuffle") == "true"

	s.mu.Lock()
	defer s.mu.Unlock()

	var cards []*card.Card
	for _, c := range s.store.Due(shuffle, "") {
		if !cardVisibleTo(c, owner) {
			continue
		}
		if category != "" && c.Category != category {
			continue
		}
		cards = append(cards, c)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"cards": cards,
		"total": len(cards),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	respondJSON(w, http.StatusOK, s.store.Statistics(auth.UserFromContext(r.Context())))
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var categories []string
	for _, c := range s.visibleCards(auth.UserFromContext(r.Context()), "") {
		if c.Category != "" && !seen[c.Category] {
			seen[c.Category] = true
			categories = append(categories, c.Category)
		}
	}
	sort.Strings(categories)

	respondJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.seedCfg.Sources) == 0 {
		respondError(w, http.StatusBadRequest, "no seed sources configured")
		return
	}
	res := s.seeder.Seed(s.seedCfg.Sources, s.seedCfg.Tier)
	respondJSON(w, http.StatusOK, res)
}
