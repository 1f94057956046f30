// Package config layers flashdeck's configuration: built-in defaults, an
// optional yaml file, FLASHDECK_ environment variables, then command-line
// flags, each overriding the last.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config is the full runtime configuration.
type Config struct {
	Listen    string  `koanf:"listen"`
	LogLevel  string  `koanf:"log_level" validate:"oneof=trace debug info warn error"`
	DataDir   string  `koanf:"data_dir" validate:"required"`
	JWTSecret string  `koanf:"jwt_secret" validate:"required"`
	Storage   Storage `koanf:"storage"`
	Seed      Seed    `koanf:"seed"`
}

// Storage selects and locates the persistence backend.
type Storage struct {
	Driver string `koanf:"driver" validate:"oneof=json sqlite"`
	Path   string `koanf:"path" validate:"required"`
}

// Seed configures startup deck seeding.
type Seed struct {
	Sources  []string `koanf:"sources"`
	Tier     string   `koanf:"tier" validate:"oneof=EASY MEDIUM HARD"`
	ReposDir string   `koanf:"repos_dir" validate:"required"`
}

// Load parses the given command-line arguments and resolves the final
// configuration.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("flashdeck", pflag.ContinueOnError)
	fs.String("config", "", "path to a yaml config file")
	fs.String("listen", ":8080", "address to listen on")
	fs.String("log_level", "info", "log level (trace|debug|info|warn|error)")
	fs.String("data_dir", ".", "directory holding flashdeck data files")
	fs.String("jwt_secret", "dev-secret-change-me", "secret used to sign auth tokens")
	fs.String("storage.driver", "json", "storage backend (json|sqlite)")
	fs.String("storage.path", "flashcards.json", "storage file, relative to data_dir")
	fs.StringSlice("seed.sources", nil, "deck directories or git URLs to seed from")
	fs.String("seed.tier", "MEDIUM", "tier assigned to seeded cards")
	fs.String("seed.repos_dir", "repos", "checkout directory for git deck sources, relative to data_dir")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	k := koanf.New(".")

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// FLASHDECK_LOG_LEVEL -> log_level, FLASHDECK_STORAGE__DRIVER ->
	// storage.driver.
	err := k.Load(env.Provider("FLASHDECK_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "FLASHDECK_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("loading flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
