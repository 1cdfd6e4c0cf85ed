package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	// DefaultFile is read when no config path is given and it exists.
	DefaultFile = "cramly.yaml"
	// EnvPrefix prefixes environment overrides; "__" separates nested keys.
	EnvPrefix = "CRAMLY_"
)

// Database selects the deck store.
type Database struct {
	Driver   string `koanf:"driver" validate:"oneof=sqlite postgres"`
	DSN      string `koanf:"dsn" validate:"required"`
	LockFile string `koanf:"lock_file"`
}

// LLM contains the chat completion connection settings.
type LLM struct {
	APIKey         string `koanf:"api_key"`
	BaseURL        string `koanf:"base_url" validate:"omitempty,url"`
	Model          string `koanf:"model"`
	TimeoutSeconds int    `koanf:"timeout_seconds" validate:"gte=1"`
	MaxAttempts    int    `koanf:"max_attempts" validate:"gte=1,lte=10"`
}

// Extract configures text extraction tooling.
type Extract struct {
	Tesseract string `koanf:"tesseract" validate:"required"`
	Language  string `koanf:"language" validate:"required"`
	ReposDir  string `koanf:"repos_dir" validate:"required"`
}

// Log configures the process logger.
type Log struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `koanf:"addr" validate:"required"`
}

// Config is the full application configuration.
type Config struct {
	Database Database `koanf:"database"`
	LLM      LLM      `koanf:"llm"`
	Extract  Extract  `koanf:"extract"`
	Log      Log      `koanf:"log"`
	Server   Server   `koanf:"server"`
	User     string   `koanf:"user"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: Database{Driver: "sqlite", DSN: "cramly.db"},
		LLM: LLM{
			BaseURL:        "https://api.groq.com/openai/v1/chat/completions",
			Model:          "llama-3.3-70b-versatile",
			TimeoutSeconds: 60,
			MaxAttempts:    3,
		},
		Extract: Extract{Tesseract: "tesseract", Language: "eng", ReposDir: ".cramly/repos"},
		Log:     Log{Level: "info", Format: "text"},
		Server:  Server{Addr: "127.0.0.1:8080"},
	}
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"db":         "database.dsn",
	"db-driver":  "database.driver",
	"user":       "user",
	"log-level":  "log.level",
	"log-format": "log.format",
	"addr":       "server.addr",
}

var validate = validator.New()

// Load layers defaults, the YAML file at path (or DefaultFile when present),
// CRAMLY_ environment variables and any changed flags, then validates the
// result. A .env file in the working directory is loaded first.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	path = strings.TrimSpace(path)
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	// Empty variables are treated as unset.
	err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "__", "."), value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil)
		if err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	normalize(&cfg)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func normalize(cfg *Config) {
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.User = strings.TrimSpace(cfg.User)
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		cfg.LLM.APIKey = os.Getenv("GROQ_API_KEY")
	}
}
