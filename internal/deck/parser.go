// Package deck seeds a card store from markdown deck files, either local
// directories or git repositories. A deck entry is an `F:` front block, a
// `B:` back block and an optional `C:` category, separated from the next
// entry by a blank line or `---`.
package deck

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const (
	frontPrefix    = "F:"
	backPrefix     = "B:"
	categoryPrefix = "C:"
)

// Entry is one card-to-be parsed out of a deck file. It carries no
// scheduling state; the store assigns that when the entry is added.
type Entry struct {
	Front    string
	Back     string
	Category string
}

type section int

const (
	seeking section = iota
	inFront
	inBack
	inCategory
)

// ParseFile reads the deck file at path and extracts all entries.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse extracts deck entries from r. Entries without a front and a back are
// dropped.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)

	var entries []Entry
	var current Entry
	var block []string
	state := seeking

	closeBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.Join(block, "\n")
		switch state {
		case inFront:
			current.Front = content
		case inBack:
			current.Back = content
		case inCategory:
			current.Category = content
		}
		block = nil
	}

	finishEntry := func() {
		closeBlock()
		if current.Front != "" && current.Back != "" {
			entries = append(entries, current)
		}
		current = Entry{}
		state = seeking
	}

	startBlock := func(next section, line, prefix string) {
		closeBlock()
		state = next
		block = append(block, strings.TrimPrefix(strings.TrimPrefix(line, prefix), " "))
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "---" || (strings.TrimSpace(line) == "" && state != seeking):
			finishEntry()
		case strings.HasPrefix(line, frontPrefix):
			// A new front always starts a new entry.
			if state != seeking {
				finishEntry()
			}
			startBlock(inFront, line, frontPrefix)
		case strings.HasPrefix(line, backPrefix):
			startBlock(inBack, line, backPrefix)
		case strings.HasPrefix(line, categoryPrefix):
			startBlock(inCategory, line, categoryPrefix)
		case state != seeking:
			block = append(block, line)
		}
	}
	finishEntry()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
