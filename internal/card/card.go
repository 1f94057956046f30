package card

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// mandatoryCycle is the hard ceiling on how long a card may go
	// unreviewed, independent of its tier schedule.
	mandatoryCycle = 14 * 24 * time.Hour

	// recentWindow is how many trailing reviews feed tier auto-adjustment.
	recentWindow = 5

	// maxIntervalDays caps the streak-extended interval.
	maxIntervalDays = 14
)

// Card is a single reviewable item. It owns its scheduling state: when it
// was last seen, when it comes due next, and how the learner has been doing
// with it. The front and back text are opaque to the scheduler.
type Card struct {
	ID       string `json:"id"`
	Front    string `json:"front"`
	Back     string `json:"back"`
	Tier     Tier   `json:"tier"`
	Category string `json:"category,omitempty"`
	Owner    string `json:"owner,omitempty"`

	CreatedAt             time.Time  `json:"created_at"`
	LastReviewedAt        *time.Time `json:"last_reviewed_at,omitempty"`
	NextReviewAt          time.Time  `json:"next_review_at"`
	ReviewCount           int        `json:"review_count"`
	ReviewHistory         []bool     `json:"review_history,omitempty"`
	LastMandatoryReviewAt *time.Time `json:"last_mandatory_review_at,omitempty"`
	SuccessStreak         int        `json:"success_streak,omitempty"`
}

// New creates a card that is immediately due for review. Category and owner
// may be empty.
func New(front, back string, tier Tier, category, owner string) *Card {
	now := time.Now()
	return &Card{
		ID:           newID(),
		Front:        front,
		Back:         back,
		Tier:         tier,
		Category:     category,
		Owner:        owner,
		CreatedAt:    now,
		NextReviewAt: now,
	}
}

func newID() string {
	return "card_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// RecordReview records one review outcome and reschedules the card.
func (c *Card) RecordReview(success bool) {
	c.recordReview(success, time.Now())
}

// recordReview applies the outcome at the given instant. The steps are
// ordered: tier adjustment reads the appended history, and the new interval
// reads both the adjusted tier and the updated streak.
func (c *Card) recordReview(success bool, now time.Time) {
	reviewed := now
	c.LastReviewedAt = &reviewed
	c.ReviewCount++
	c.ReviewHistory = append(c.ReviewHistory, success)

	// The mandatory marker only advances when this review lands on or after
	// the 14-day threshold; an early review earns no mandatory credit.
	if c.LastMandatoryReviewAt == nil {
		if !now.Before(c.CreatedAt.Add(mandatoryCycle)) {
			stamped := now
			c.LastMandatoryReviewAt = &stamped
		}
	} else if !now.Before(c.LastMandatoryReviewAt.Add(mandatoryCycle)) {
		stamped := now
		c.LastMandatoryReviewAt = &stamped
	}

	if success {
		c.SuccessStreak++
	} else {
		c.SuccessStreak = 0
	}

	c.adjustTier()

	c.NextReviewAt = now.Add(c.nextInterval(success))
}

// adjustTier moves the tier at most one step based on the success rate over
// the trailing window. Fewer than recentWindow reviews means no adjustment.
func (c *Card) adjustTier() {
	if len(c.ReviewHistory) < recentWindow {
		return
	}
	recent := c.ReviewHistory[len(c.ReviewHistory)-recentWindow:]
	hits := 0
	for _, ok := range recent {
		if ok {
			hits++
		}
	}
	rate := float64(hits) / float64(recentWindow)
	switch {
	case rate >= 0.8 && c.Tier != Easy:
		c.Tier = c.Tier.easier()
	case rate <= 0.4 && c.Tier != Hard:
		c.Tier = c.Tier.harder()
	}
}

// nextInterval computes how long until the card comes back. Failures halve
// the base interval (floored at one day); a streak of three or more earns a
// bonus day per three, capped at two extra days and fourteen days total.
func (c *Card) nextInterval(success bool) time.Duration {
	days := baseIntervalDays[c.Tier]
	switch {
	case !success:
		days /= 2
		if days < 1 {
			days = 1
		}
	case c.SuccessStreak >= 3:
		bonus := c.SuccessStreak / 3
		if bonus > 2 {
			bonus = 2
		}
		days += bonus
		if days > maxIntervalDays {
			days = maxIntervalDays
		}
	}
	return time.Duration(days) * 24 * time.Hour
}

// IsDue reports whether the card should be reviewed now, either because the
// normal schedule has elapsed or because the mandatory 14-day cycle is owed.
// The mandatory check can force due-ness even with NextReviewAt far away.
func (c *Card) IsDue(now time.Time) bool {
	if !now.Before(c.NextReviewAt) {
		return true
	}
	if c.LastMandatoryReviewAt == nil {
		return !now.Before(c.CreatedAt.Add(mandatoryCycle))
	}
	return !now.Before(c.LastMandatoryReviewAt.Add(mandatoryCycle))
}

// SetTier overrides the tier directly, bypassing auto-adjustment. If the
// card has been reviewed, the next review resets to the plain base interval
// from the last review; an unreviewed card stays immediately due.
func (c *Card) SetTier(t Tier) {
	c.Tier = t
	if c.LastReviewedAt != nil {
		c.NextReviewAt = c.LastReviewedAt.Add(t.BaseInterval())
	}
}

// SuccessRate returns the fraction of successful reviews over the full
// history. The second result is false when the card has never been reviewed.
func (c *Card) SuccessRate() (float64, bool) {
	if len(c.ReviewHistory) == 0 {
		return 0, false
	}
	hits := 0
	for _, ok := range c.ReviewHistory {
		if ok {
			hits++
		}
	}
	return float64(hits) / float64(len(c.ReviewHistory)), true
}
