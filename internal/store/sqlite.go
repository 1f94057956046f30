package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/conorfennell/flashdeck/internal/card"
)

// SQLite persists the collection in a single sqlite table. The store still
// loads everything at startup and writes the full collection back after each
// mutation; sqlite only changes where the records live.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and ensures the schema
// is in place.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLite{conn: db}, nil
}

// Close closes the database connection.
func (db *SQLite) Close() error {
	return db.conn.Close()
}

// Load reads all cards in insertion order.
func (db *SQLite) Load() ([]*card.Card, error) {
	rows, err := db.conn.Query(`
		SELECT id, front, back, tier, category, owner, created_at,
		       last_reviewed_at, next_review_at, review_count,
		       review_history, last_mandatory_review_at, success_streak
		FROM cards ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []*card.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cards: %w", err)
	}
	return cards, nil
}

func scanCard(rows *sql.Rows) (*card.Card, error) {
	var (
		c             card.Card
		tierName      string
		category      sql.NullString
		owner         sql.NullString
		createdAt     string
		lastReviewed  sql.NullString
		nextReview    string
		history       sql.NullString
		lastMandatory sql.NullString
	)
	err := rows.Scan(&c.ID, &c.Front, &c.Back, &tierName, &category, &owner,
		&createdAt, &lastReviewed, &nextReview, &c.ReviewCount,
		&history, &lastMandatory, &c.SuccessStreak)
	if err != nil {
		return nil, fmt.Errorf("failed to scan card row: %w", err)
	}

	tier, err := card.ParseTier(tierName)
	if err != nil {
		return nil, fmt.Errorf("card %s: %w", c.ID, err)
	}
	c.Tier = tier
	c.Category = category.String
	c.Owner = owner.String

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("card %s created_at: %w", c.ID, err)
	}
	if c.NextReviewAt, err = parseTime(nextReview); err != nil {
		return nil, fmt.Errorf("card %s next_review_at: %w", c.ID, err)
	}
	if c.LastReviewedAt, err = parseNullTime(lastReviewed); err != nil {
		return nil, fmt.Errorf("card %s last_reviewed_at: %w", c.ID, err)
	}
	if c.LastMandatoryReviewAt, err = parseNullTime(lastMandatory); err != nil {
		return nil, fmt.Errorf("card %s last_mandatory_review_at: %w", c.ID, err)
	}
	if history.Valid && history.String != "" {
		if err := json.Unmarshal([]byte(history.String), &c.ReviewHistory); err != nil {
			return nil, fmt.Errorf("card %s review_history: %w", c.ID, err)
		}
	}
	return &c, nil
}

// Save replaces the stored collection in a single transaction.
func (db *SQLite) Save(cards []*card.Card) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cards`); err != nil {
		return fmt.Errorf("failed to clear cards: %w", err)
	}

	for i, c := range cards {
		history, err := json.Marshal(c.ReviewHistory)
		if err != nil {
			return fmt.Errorf("failed to encode history for %s: %w", c.ID, err)
		}
		_, err = tx.Exec(`
			INSERT INTO cards (id, front, back, tier, category, owner,
				created_at, last_reviewed_at, next_review_at, review_count,
				review_history, last_mandatory_review_at, success_streak, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			c.ID, c.Front, c.Back, c.Tier.String(),
			nullString(c.Category), nullString(c.Owner),
			formatTime(c.CreatedAt), formatNullTime(c.LastReviewedAt),
			formatTime(c.NextReviewAt), c.ReviewCount,
			string(history), formatNullTime(c.LastMandatoryReviewAt),
			c.SuccessStreak, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert card %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cards: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
