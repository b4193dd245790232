package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the bot configuration, read from the environment.
type Config struct {
	DiscordToken        string  `env:"DISCORD_TOKEN,required"`
	CommandPrefix       string  `env:"COMMAND_PREFIX" envDefault:"!"`
	ManifestPath        string  `env:"MANIFEST_PATH"`
	DataFile            string  `env:"DATA_FILE"`
	LogLevel            string  `env:"LOG_LEVEL" envDefault:"info"`
	LogFile             string  `env:"LOG_FILE"`
	RemoteFetchRate     float64 `env:"REMOTE_FETCH_RATE" envDefault:"5"`
	RemoteFetchAttempts int     `env:"REMOTE_FETCH_ATTEMPTS" envDefault:"3"`
}

// Load reads the given .env files (default ".env"; missing files are
// skipped) and then the process environment. Variables already set in the
// environment win over .env values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.RemoteFetchRate <= 0 {
		return nil, fmt.Errorf("config: REMOTE_FETCH_RATE must be positive, got %v", cfg.RemoteFetchRate)
	}
	if cfg.RemoteFetchAttempts < 1 {
		return nil, fmt.Errorf("config: REMOTE_FETCH_ATTEMPTS must be at least 1, got %d", cfg.RemoteFetchAttempts)
	}
	return &cfg, nil
}
