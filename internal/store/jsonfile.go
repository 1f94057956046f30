package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/conorfennell/flashdeck/internal/card"
)

// JSONFile persists the collection as a flat JSON array in a single file,
// the original storage format. Records written before the history, mandatory
// marker, streak, category or owner fields existed load with their zero
// defaults.
type JSONFile struct {
	path string
}

// NewJSONFile returns a Storage backed by the file at path. The file is
// created on first save.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Load reads the full card list. A missing file is an empty collection, not
// an error.
func (f *JSONFile) Load() ([]*card.Card, error) {
	bts, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	var cards []*card.Card
	if err := json.Unmarshal(bts, &cards); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", f.path, err)
	}
	return cards, nil
}

// Save writes the full card list, replacing the file atomically so a crash
// mid-write never leaves a truncated collection behind.
func (f *JSONFile) Save(cards []*card.Card) error {
	if cards == nil {
		cards = []*card.Card{}
	}
	bts, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cards: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, bts, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing %s: %w", f.path, err)
	}
	return nil
}
