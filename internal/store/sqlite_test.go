package store

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashdeck/internal/card"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "flashdeck.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteRoundTrip(t *testing.T) {
	db := openTestSQLite(t)

	c1 := card.New("first", "1", card.Easy, "geo", "alice")
	c1.RecordReview(true)
	c1.RecordReview(true)
	c2 := card.New("second", "2", card.Hard, "", "")

	require.NoError(t, db.Save([]*card.Card{c1, c2}))

	loaded, err := db.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	// Insertion order survives the round trip.
	assert.Equal(t, c1.ID, loaded[0].ID)
	assert.Equal(t, c2.ID, loaded[1].ID)

	got := loaded[0]
	assert.Equal(t, c1.Front, got.Front)
	assert.Equal(t, c1.Tier, got.Tier)
	assert.Equal(t, c1.Category, got.Category)
	assert.Equal(t, c1.Owner, got.Owner)
	assert.Equal(t, c1.ReviewCount, got.ReviewCount)
	assert.Equal(t, c1.ReviewHistory, got.ReviewHistory)
	assert.Equal(t, c1.SuccessStreak, got.SuccessStreak)
	assert.True(t, c1.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, c1.NextReviewAt.Equal(got.NextReviewAt))
	require.NotNil(t, got.LastReviewedAt)
	assert.True(t, c1.LastReviewedAt.Equal(*got.LastReviewedAt))

	// Nullable fields stay absent.
	assert.Nil(t, loaded[1].LastReviewedAt)
	assert.Nil(t, loaded[1].LastMandatoryReviewAt)
	assert.Empty(t, loaded[1].Category)
	assert.Empty(t, loaded[1].Owner)
}

func TestSQLiteSaveReplacesCollection(t *testing.T) {
	db := openTestSQLite(t)

	c1 := card.New("first", "1", card.Medium, "", "")
	c2 := card.New("second", "2", card.Medium, "", "")
	require.NoError(t, db.Save([]*card.Card{c1, c2}))
	require.NoError(t, db.Save([]*card.Card{c2}))

	loaded, err := db.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, c2.ID, loaded[0].ID)
}

func TestSQLiteEmptyDatabase(t *testing.T) {
	db := openTestSQLite(t)
	loaded, err := db.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteBackedStore(t *testing.T) {
	db := openTestSQLite(t)
	s := New(db, zerolog.Nop())

	c, err := s.Add("front", "back", card.Medium, "", "")
	require.NoError(t, err)
	found, err := s.Review(c.ID, true)
	require.NoError(t, err)
	require.True(t, found)

	reopened := New(db, zerolog.Nop())
	got, ok := reopened.Get(c.ID)
	require.True(t, ok)
	assert.Equal(t, 1, got.ReviewCount)
	assert.Equal(t, []bool{true}, got.ReviewHistory)
}
