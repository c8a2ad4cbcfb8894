package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"plexhush/internal/config"
	"plexhush/internal/logging"
	"plexhush/internal/notifications"
	"plexhush/internal/services/plex"
)

// commandContext lazily builds the pieces every command shares: the loaded
// config, the logger, and a run ID that tags all log lines of one invocation.
type commandContext struct {
	configFlag  *string
	verboseFlag *bool
	quietFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	runID string
}

func newCommandContext(configFlag *string, verboseFlag, quietFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
		quietFlag:   quietFlag,
		runID:       uuid.NewString()[:8],
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		opts := logging.Options{Level: "info", Format: "console"}
		if cfg, err := c.ensureConfig(); err == nil {
			opts.Level = cfg.Logging.Level
			opts.Format = cfg.Logging.Format
		}
		if c.quietFlag != nil && *c.quietFlag {
			opts.Level = "warn"
		}
		if c.verboseFlag != nil && *c.verboseFlag {
			// Verbose wins over quiet when both are given.
			opts.Level = "debug"
		}
		c.logger = logging.New(opts).With("run_id", c.runID)
	})
	return c.logger
}

func (c *commandContext) newPlexClient() (*plex.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return plex.NewClient(cfg.Plex.URL, cfg.Plex.Token, cfg.Plex.ClientID, cfg.Plex.Libraries, c.ensureLogger()), nil
}

func (c *commandContext) notifier() notifications.Service {
	cfg, err := c.ensureConfig()
	if err != nil {
		return notifications.NewService(&config.Config{})
	}
	return notifications.NewService(cfg)
}
