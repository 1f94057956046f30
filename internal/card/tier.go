package card

import (
	"fmt"
	"time"
)

// Tier classifies how hard a card is to remember. Harder cards come back
// around sooner.
type Tier int

const (
	Easy Tier = iota + 1
	Medium
	Hard
)

// baseIntervalDays maps each tier to its fixed review interval in days.
var baseIntervalDays = map[Tier]int{
	Easy:   7,
	Medium: 3,
	Hard:   1,
}

// BaseInterval returns the tier's review interval.
func (t Tier) BaseInterval() time.Duration {
	return time.Duration(baseIntervalDays[t]) * 24 * time.Hour
}

func (t Tier) String() string {
	switch t {
	case Easy:
		return "EASY"
	case Medium:
		return "MEDIUM"
	case Hard:
		return "HARD"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// ParseTier converts a tier name to its Tier value.
func ParseTier(name string) (Tier, error) {
	switch name {
	case "EASY":
		return Easy, nil
	case "MEDIUM":
		return Medium, nil
	case "HARD":
		return Hard, nil
	}
	return 0, fmt.Errorf("unknown tier %q", name)
}

// easier moves one step down in severity (HARD -> MEDIUM -> EASY).
func (t Tier) easier() Tier {
	if t == Easy {
		return Easy
	}
	return t - 1
}

// harder moves one step up in severity (EASY -> MEDIUM -> HARD).
func (t Tier) harder() Tier {
	if t == Hard {
		return Hard
	}
	return t + 1
}

// MarshalText encodes the tier as its name so persisted records stay
// readable.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
