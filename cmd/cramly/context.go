package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/pflag"

	"github.com/conorfennell/cramly/internal/auth"
	"github.com/conorfennell/cramly/internal/config"
	"github.com/conorfennell/cramly/internal/export"
	"github.com/conorfennell/cramly/internal/extract"
	"github.com/conorfennell/cramly/internal/gitsource"
	"github.com/conorfennell/cramly/internal/llm"
	"github.com/conorfennell/cramly/internal/logging"
	"github.com/conorfennell/cramly/internal/storage"
	decksync "github.com/conorfennell/cramly/internal/sync"
	"github.com/conorfennell/cramly/internal/workspace"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig(flags *pflag.FlagSet) (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path, flags)
		if err != nil {
			c.configErr = err
			return
		}
		logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

func (c *commandContext) session() auth.Session {
	return auth.Session{UserID: c.config.User}
}

// withStore opens the deck database for the duration of fn.
func (c *commandContext) withStore(fn func(*storage.DB) error) error {
	db, err := storage.Open(c.config.Database.Driver, c.config.Database.DSN)
	if err != nil {
		return fmt.Errorf("open %s database: %w", c.config.Database.Driver, err)
	}
	defer db.Close()
	return fn(db)
}

func (c *commandContext) llmClient() *llm.Client {
	cfg := c.config.LLM
	return llm.NewClient(llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		TimeoutSeconds: cfg.TimeoutSeconds,
		MaxAttempts:    cfg.MaxAttempts,
	})
}

func (c *commandContext) extractor() *extract.Extractor {
	repos := gitsource.New(c.config.Extract.ReposDir, c.logger)
	return extract.New(extract.Config{
		Tesseract: c.config.Extract.Tesseract,
		Language:  c.config.Extract.Language,
	}, repos, c.logger)
}

func (c *commandContext) saver(db *storage.DB) *decksync.Saver {
	return decksync.NewSaver(db,
		decksync.WithLogger(c.logger),
		decksync.WithLockFile(c.config.Database.LockFile),
	)
}

// newWorkspace wires every collaborator. db may be nil for commands that
// never load or save.
func (c *commandContext) newWorkspace(db *storage.DB) *workspace.Workspace {
	client := c.llmClient()
	deps := workspace.Deps{
		Generator: client,
		Refiner:   client,
		Extractor: c.extractor(),
		Exporter:  export.New(),
		Logger:    c.logger,
	}
	if db != nil {
		deps.Saver = c.saver(db)
		deps.Loader = db
	}
	return workspace.New(deps)
}
