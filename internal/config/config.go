package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// ErrConfig indicates an unusable runtime configuration. Every failure here
// happens before any network call is made.
var ErrConfig = errors.New("invalid smoke configuration")

// apiKeyVar is the key-value file entry carrying the service credential.
const apiKeyVar = "SERVICE_API_KEY"

// Config holds everything one pipeline run needs. It is built once by Load
// and passed by reference; nothing mutates it afterwards.
type Config struct {
	APIBaseURL     string        `env:"API" env-default:"http://localhost:8000"`
	EnvFile        string        `env:"ENV_FILE" env-default:".env"`
	StoryPath      string        `env:"STORY" env-default:"story.txt"`
	CharactersPath string        `env:"CHARA" env-default:"characters.txt"`
	ScenesPath     string        `env:"SCENE" env-default:"scenes.txt"`
	DataDir        string        `env:"DATA_DIR" env-default:"services/api/app/data/storyboard"`
	CaptureDir     string        `env:"CAPTURE_DIR" env-default:"."`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" env-default:"10m"`
	LogLevel       string        `env:"LOG_LEVEL" env-default:"info"`
	ComposeFile    string        `env:"COMPOSE_FILE" env-default:"docker-compose.yml"`

	// APIKey comes from the env file, never from the process environment.
	APIKey string
}

// Documents are the three input texts sent verbatim to the API.
type Documents struct {
	Story      string
	Characters string
	Scenes     string
}

// LoadEnv resolves only the environment-sourced options. The container
// lifecycle commands use this directly; the pipeline needs Load.
func LoadEnv() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if _, err := url.ParseRequestURI(cfg.APIBaseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid API base URL %q: %v", ErrConfig, cfg.APIBaseURL, err)
	}
	return &cfg, nil
}

// Load resolves the runtime configuration from environment variables plus the
// key-value env file. The credential must be present in the env file and the
// three input documents must exist on disk, otherwise the run aborts here.
func Load() (*Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}

	vars, err := godotenv.Read(cfg.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read env file %s: %v", ErrConfig, cfg.EnvFile, err)
	}
	key := strings.TrimSpace(vars[apiKeyVar])
	if key == "" {
		return nil, fmt.Errorf("%w: %s is missing or empty in %s", ErrConfig, apiKeyVar, cfg.EnvFile)
	}
	cfg.APIKey = key

	for _, p := range []string{cfg.StoryPath, cfg.CharactersPath, cfg.ScenesPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: input document %s: %v", ErrConfig, p, err)
		}
	}

	return cfg, nil
}

// LoadDocuments reads the story, characters and scenes texts. They are read
// once per run and passed to the API untransformed.
func (c *Config) LoadDocuments() (*Documents, error) {
	read := func(path string) (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("%w: input document %s: %v", ErrConfig, path, err)
		}
		return string(data), nil
	}

	var docs Documents
	var err error
	if docs.Story, err = read(c.StoryPath); err != nil {
		return nil, err
	}
	if docs.Characters, err = read(c.CharactersPath); err != nil {
		return nil, err
	}
	if docs.Scenes, err = read(c.ScenesPath); err != nil {
		return nil, err
	}
	return &docs, nil
}
