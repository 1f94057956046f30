package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashdeck/internal/auth"
	"github.com/conorfennell/flashdeck/internal/card"
	"github.com/conorfennell/flashdeck/internal/deck"
	"github.com/conorfennell/flashdeck/internal/store"
)

type testEnv struct {
	server  *Server
	deckDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cardStore := store.New(store.NewJSONFile(filepath.Join(dir, "flashcards.json")), zerolog.Nop())
	users := auth.NewUserStore(filepath.Join(dir, "users.json"), zerolog.Nop())
	tokens := auth.NewTokens("test-secret")
	deckDir := filepath.Join(dir, "decks")
	require.NoError(t, os.MkdirAll(deckDir, 0o755))
	seeder := deck.NewSeeder(cardStore, filepath.Join(dir, "repos"), zerolog.Nop())
	seedCfg := SeedConfig{Sources: []string{deckDir}, Tier: card.Medium}

	return &testEnv{
		server:  NewServer(cardStore, users, tokens, seeder, seedCfg, zerolog.Nop()),
		deckDir: deckDir,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (e *testEnv) registerAndLogin(t *testing.T, username string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username, "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username, "password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	token, _ := decodeBody(t, rec)["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (e *testEnv) createCard(t *testing.T, token string, body map[string]any) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/cards", token, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	c, _ := decodeBody(t, rec)["card"].(map[string]any)
	id, _ := c["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestRegisterValidation(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "ab", "password": "hunter22",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDuplicate(t *testing.T) {
	e := newTestEnv(t)
	e.registerAndLogin(t, "alice")

	rec := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "password": "hunter22",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e := newTestEnv(t)
	e.registerAndLogin(t, "alice")

	rec := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCardRoutesRequireAuth(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/cards", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/cards", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateCardValidation(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerAndLogin(t, "alice")

	rec := e.do(t, http.MethodPost, "/api/cards", token, map[string]any{"front": "only front"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/cards", token, map[string]any{
		"front": "f", "back": "b", "tier": "IMPOSSIBLE",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCardLifecycle(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerAndLogin(t, "alice")

	id := e.createCard(t, token, map[string]any{
		"front": "Capital of France?", "back": "Paris", "tier": "HARD", "category": "Geography",
	})

	rec := e.do(t, http.MethodGet, "/api/cards", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["total"])

	rec = e.do(t, http.MethodGet, "/api/cards/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	c, _ := decodeBody(t, rec)["card"].(map[string]any)
	assert.Equal(t, "HARD", c["tier"])

	// A failed review keeps the streak at zero.
	rec = e.do(t, http.MethodPost, "/api/cards/"+id+"/review", token, map[string]any{"success": false})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "card needs more practice", body["message"])
	assert.Equal(t, float64(0), body["streak"])

	rec = e.do(t, http.MethodPost, "/api/cards/"+id+"/review", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["streak"])

	rec = e.do(t, http.MethodPut, "/api/cards/"+id, token, map[string]any{"tier": "EASY"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/cards/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/cards/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCardOwnershipEnforced(t *testing.T) {
	e := newTestEnv(t)
	alice := e.registerAndLogin(t, "alice")
	bob := e.registerAndLogin(t, "bob")

	id := e.createCard(t, alice, map[string]any{"front": "f", "back": "b"})

	rec := e.do(t, http.MethodGet, "/api/cards/"+id, bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/cards/"+id, bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Bob's listing does not include Alice's card.
	rec = e.do(t, http.MethodGet, "/api/cards", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decodeBody(t, rec)["total"])
}

func TestDueCards(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerAndLogin(t, "alice")

	id := e.createCard(t, token, map[string]any{"front": "f", "back": "b", "category": "geo"})
	e.createCard(t, token, map[string]any{"front": "f2", "back": "b2"})

	rec := e.do(t, http.MethodGet, "/api/cards/due", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decodeBody(t, rec)["total"])

	rec = e.do(t, http.MethodGet, "/api/cards/due?category=geo", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["total"])

	// Reviewing pushes the card out of the due set.
	rec = e.do(t, http.MethodPost, "/api/cards/"+id+"/review", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/cards/due?shuffle=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["total"])
}

func TestStats(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerAndLogin(t, "alice")

	id1 := e.createCard(t, token, map[string]any{"front": "a", "back": "1"})
	id2 := e.createCard(t, token, map[string]any{"front": "b", "back": "2"})

	for i := 0; i < 3; i++ {
		rec := e.do(t, http.MethodPost, "/api/cards/"+id1+"/review", token, map[string]any{"success": true})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := e.do(t, http.MethodPost, "/api/cards/"+id2+"/review", token, map[string]any{"success": true})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodPost, "/api/cards/"+id2+"/review", token, map[string]any{"success": false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody(t, rec)
	assert.Equal(t, float64(2), stats["total_cards"])
	assert.Equal(t, float64(5), stats["total_reviews"])
	assert.Equal(t, float64(80.0), stats["overall_success_rate"])
	assert.Equal(t, float64(3), stats["best_streak"])
	assert.Equal(t, float64(1), stats["cards_with_streaks"])
}

func TestCategories(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerAndLogin(t, "alice")

	e.createCard(t, token, map[string]any{"front": "a", "back": "1", "category": "geo"})
	e.createCard(t, token, map[string]any{"front": "b", "back": "2", "category": "algebra"})
	e.createCard(t, token, map[string]any{"front": "c", "back": "3", "category": "geo"})
	e.createCard(t, token, map[string]any{"front": "d", "back": "4"})

	rec := e.do(t, http.MethodGet, "/api/categories", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"algebra", "geo"}, body.Categories)
}

func TestSeedEndpoint(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerAndLogin(t, "alice")

	content := "F: Capital of France?\nB: Paris\nC: Geography"
	require.NoError(t, os.WriteFile(filepath.Join(e.deckDir, "geo.md"), []byte(content), 0o644))

	rec := e.do(t, http.MethodPost, "/api/seed", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["added"])

	// Seeded cards have no owner and show up for everyone.
	rec = e.do(t, http.MethodGet, "/api/cards", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["total"])

	// Re-seeding is a no-op.
	rec = e.do(t, http.MethodPost, "/api/seed", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["skipped"])
}

func TestUnknownCardIs404(t *testing.T) {
	e := newTestEnv(t)
	token := e.registerAndLogin(t, "alice")

	for _, probe := range []struct {
		method, path string
	}{
		{http.MethodGet, "/api/cards/card_missing"},
		{http.MethodDelete, "/api/cards/card_missing"},
		{http.MethodPost, "/api/cards/card_missing/review"},
	} {
		rec := e.do(t, probe.method, probe.path, token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, fmt.Sprintf("%s %s", probe.method, probe.path))
	}
}
