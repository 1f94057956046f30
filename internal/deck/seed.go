package deck

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/conorfennell/flashdeck/internal/card"
	"github.com/conorfennell/flashdeck/internal/store"
)

// Seeder imports deck entries into a card store without creating duplicates.
// Cards already in the store keep their scheduling state; only entries whose
// content fingerprint is unseen are added.
type Seeder struct {
	store    *store.CardStore
	reposDir string
	log      zerolog.Logger
}

// NewSeeder returns a Seeder that checks git sources out under reposDir.
func NewSeeder(s *store.CardStore, reposDir string, logger zerolog.Logger) *Seeder {
	return &Seeder{store: s, reposDir: reposDir, log: logger}
}

// Result summarises one seed run.
type Result struct {
	Parsed  int      `json:"parsed"`
	Added   int      `json:"added"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// IsGitSource reports whether a source string names a git repository rather
// than a local directory.
func IsGitSource(source string) bool {
	return strings.HasSuffix(source, ".git") ||
		strings.HasPrefix(source, "git@") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "http://")
}

// Seed walks every source and adds unseen entries as cards at the given
// tier. Per-source failures are collected in the result rather than aborting
// the run.
func (s *Seeder) Seed(sources []string, tier card.Tier) Result {
	var res Result

	// Fingerprints of everything already in the store, so re-running a seed
	// never duplicates a card.
	seen := make(map[string]bool)
	for _, c := range s.store.All("") {
		seen[Fingerprint(Entry{Front: c.Front, Back: c.Back, Category: c.Category})] = true
	}

	for _, source := range sources {
		dir := source
		if IsGitSource(source) {
			localPath, err := gitURLToLocalPath(s.reposDir, source)
			if err != nil {
				res.Errors = append(res.Errors, err.Error())
				continue
			}
			if err := fetchRepo(source, localPath, s.log); err != nil {
				res.Errors = append(res.Errors, err.Error())
				continue
			}
			dir = localPath
		}
		s.seedDir(dir, tier, seen, &res)
	}

	s.log.Info().
		Int("parsed", res.Parsed).
		Int("added", res.Added).
		Int("skipped", res.Skipped).
		Int("errors", len(res.Errors)).
		Msg("deck seed complete")
	return res
}

func (s *Seeder) seedDir(dir string, tier card.Tier, seen map[string]bool, res *Result) {
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		entries, parseErr := ParseFile(path)
		if parseErr != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("parsing %s: %v", path, parseErr))
			return nil
		}
		for _, entry := range entries {
			res.Parsed++
			fp := Fingerprint(entry)
			if seen[fp] {
				res.Skipped++
				continue
			}
			if _, err := s.store.Add(entry.Front, entry.Back, tier, entry.Category, ""); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("adding card from %s: %v", path, err))
				continue
			}
			seen[fp] = true
			res.Added++
		}
		return nil
	})
	if walkErr != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("walking %s: %v", dir, walkErr))
	}
}

// gitURLToLocalPath maps a repository URL to a stable checkout directory
// under baseDir.
func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") {
		// scp-style git@host:user/repo.git addresses.
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, hostAndUser[1], repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	return filepath.Join(baseDir, parsed.Host, strings.TrimSuffix(parsed.Path, ".git")), nil
}

// EnsureReposDir creates the checkout directory for git sources.
func EnsureReposDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating repos directory %s: %w", dir, err)
	}
	return nil
}
