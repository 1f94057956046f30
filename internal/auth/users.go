// Package auth supplies the opaque owner identity the card store partitions
// by: a users.json-backed account registry and bearer tokens that resolve to
// a user id. The scheduling engine never sees any of this.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// User is a registered account. The password is stored as a bcrypt hash.
type User struct {
	ID           string    `json:"user_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserStore keeps accounts in memory, keyed by username, and writes the map
// back to its JSON file after every mutation.
type UserStore struct {
	path  string
	users map[string]*User
	log   zerolog.Logger
}

// NewUserStore loads the registry from path. A missing file is an empty
// registry; an unreadable one is logged and treated as empty.
func NewUserStore(path string, logger zerolog.Logger) *UserStore {
	s := &UserStore{path: path, users: make(map[string]*User), log: logger}
	bts, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("could not read users file, starting empty")
		return s
	}
	if err := json.Unmarshal(bts, &s.users); err != nil {
		s.log.Warn().Err(err).Msg("could not decode users file, starting empty")
		s.users = make(map[string]*User)
	}
	return s
}

func (s *UserStore) persist() error {
	bts, err := json.MarshalIndent(s.users, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding users: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, bts, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

// Register creates an account with a bcrypt-hashed password.
func (s *UserStore) Register(username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if _, exists := s.users[username]; exists {
		return nil, ErrUsernameTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	u := &User{
		ID:           "user_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	s.users[username] = u
	if err := s.persist(); err != nil {
		delete(s.users, username)
		return nil, err
	}
	return u, nil
}

// Authenticate checks the credentials and returns the matching user.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *UserStore) Authenticate(username, password string) (*User, error) {
	u, ok := s.users[strings.TrimSpace(username)]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Lookup finds a user by id.
func (s *UserStore) Lookup(id string) (*User, bool) {
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}
