// Package store owns the card collection: in-memory lookup and filtering,
// aggregate statistics, and write-through persistence after every mutation.
// All scheduling decisions are delegated to the card package.
package store

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/conorfennell/flashdeck/internal/card"
)

// Storage is the persistence boundary: a flat list of card records in, the
// full current collection out. Implementations decide format and location.
type Storage interface {
	Load() ([]*card.Card, error)
	Save(cards []*card.Card) error
}

// CardStore is the sole owner of the card collection. It is not safe for
// concurrent use; callers exposing it over a concurrent transport must
// serialize access themselves.
type CardStore struct {
	storage Storage
	cards   []*card.Card
	log     zerolog.Logger
}

// New loads the collection from storage. A load failure is logged at warn
// level and the store starts empty rather than failing.
func New(storage Storage, logger zerolog.Logger) *CardStore {
	s := &CardStore{storage: storage, log: logger}
	cards, err := storage.Load()
	if err != nil {
		s.log.Warn().Err(err).Msg("could not load cards, starting with an empty collection")
		cards = nil
	}
	s.cards = cards
	return s
}

// persist writes the full collection back. In-memory state stays correct on
// failure; the error is surfaced so a caller can retry or alert.
func (s *CardStore) persist() error {
	if err := s.storage.Save(s.cards); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist cards")
		return fmt.Errorf("persisting cards: %w", err)
	}
	return nil
}

// Add creates a new card, appends it and persists. Category and owner may be
// empty.
func (s *CardStore) Add(front, back string, tier card.Tier, category, owner string) (*card.Card, error) {
	c := card.New(front, back, tier, category, owner)
	s.cards = append(s.cards, c)
	if err := s.persist(); err != nil {
		return c, err
	}
	return c, nil
}

// Remove deletes a card by id, persisting on success. It reports whether the
// card was found.
func (s *CardStore) Remove(id string) (bool, error) {
	for i, c := range s.cards {
		if c.ID == id {
			s.cards = append(s.cards[:i], s.cards[i+1:]...)
			return true, s.persist()
		}
	}
	return false, nil
}

// Get returns the card with the given id.
func (s *CardStore) Get(id string) (*card.Card, bool) {
	for _, c := range s.cards {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// All returns every card in insertion order. A non-empty owner restricts the
// result to that owner's cards.
func (s *CardStore) All(owner string) []*card.Card {
	out := make([]*card.Card, 0, len(s.cards))
	for _, c := range s.cards {
		if owner != "" && c.Owner != owner {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Due returns the cards due for review right now, in insertion order unless
// shuffle asks for a fresh random permutation.
func (s *CardStore) Due(shuffle bool, owner string) []*card.Card {
	now := time.Now()
	var out []*card.Card
	for _, c := range s.All(owner) {
		if c.IsDue(now) {
			out = append(out, c)
		}
	}
	if shuffle {
		rand.Shuffle(len(out), func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})
	}
	return out
}

// ByCategory returns the cards labelled with the given category.
func (s *CardStore) ByCategory(category string) []*card.Card {
	var out []*card.Card
	for _, c := range s.cards {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out
}

// Categories returns the distinct non-empty categories, sorted.
func (s *CardStore) Categories() []string {
	seen := make(map[string]bool)
	for _, c := range s.cards {
		if c.Category != "" {
			seen[c.Category] = true
		}
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// Review records a review outcome on the card and persists. It reports
// whether the card was found.
func (s *CardStore) Review(id string, success bool) (bool, error) {
	c, ok := s.Get(id)
	if !ok {
		return false, nil
	}
	c.RecordReview(success)
	return true, s.persist()
}

// SetTier overrides a card's tier and persists. It reports whether the card
// was found.
func (s *CardStore) SetTier(id string, tier card.Tier) (bool, error) {
	c, ok := s.Get(id)
	if !ok {
		return false, nil
	}
	c.SetTier(tier)
	return true, s.persist()
}

// Statistics summarises the collection, optionally restricted to one owner.
type Statistics struct {
	TotalCards         int     `json:"total_cards"`
	DueForReview       int     `json:"due_for_review"`
	EasyCards          int     `json:"easy_cards"`
	MediumCards        int     `json:"medium_cards"`
	HardCards          int     `json:"hard_cards"`
	TotalReviews       int     `json:"total_reviews"`
	OverallSuccessRate float64 `json:"overall_success_rate"`
	BestStreak         int     `json:"best_streak"`
	CardsWithStreaks   int     `json:"cards_with_streaks"`
}

// Statistics computes aggregate numbers over the (optionally owner-filtered)
// collection. The success rate is a percentage rounded to one decimal.
func (s *CardStore) Statistics(owner string) Statistics {
	cards := s.All(owner)

	var stats Statistics
	stats.TotalCards = len(cards)

	now := time.Now()
	var successes, historyEntries int
	for _, c := range cards {
		if c.IsDue(now) {
			stats.DueForReview++
		}
		switch c.Tier {
		case card.Easy:
			stats.EasyCards++
		case card.Medium:
			stats.MediumCards++
		case card.Hard:
			stats.HardCards++
		}
		stats.TotalReviews += c.ReviewCount
		for _, ok := range c.ReviewHistory {
			if ok {
				successes++
			}
		}
		historyEntries += len(c.ReviewHistory)
		if c.SuccessStreak > stats.BestStreak {
			stats.BestStreak = c.SuccessStreak
		}
		if c.SuccessStreak > 0 {
			stats.CardsWithStreaks++
		}
	}
	if historyEntries > 0 {
		rate := float64(successes) / float64(historyEntries) * 100
		stats.OverallSuccessRate = math.Round(rate*10) / 10
	}
	return stats
}
