package deck

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// normalize cleans each field before hashing so that whitespace, case and
// line-ending differences do not produce distinct fingerprints.
func normalize(e Entry) string {
	clean := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	// Joined with newlines so adjacent fields cannot run together and
	// collide.
	return strings.Join([]string{clean(e.Front), clean(e.Back), clean(e.Category)}, "\n")
}

// Fingerprint returns a stable content hash for a deck entry, used to skip
// entries that were already seeded into the store.
func Fingerprint(e Entry) string {
	sum := sha256.Sum256([]byte(normalize(e)))
	return fmt.Sprintf("%x", sum)
}
