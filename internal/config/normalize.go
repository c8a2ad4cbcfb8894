package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

func (c *Config) normalize() error {
	if err := c.normalizePlex(); err != nil {
		return err
	}
	if err := c.normalizeRun(); err != nil {
		return err
	}
	c.normalizeHide()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePlex() error {
	c.Plex.URL = strings.TrimRight(strings.TrimSpace(c.Plex.URL), "/")
	c.Plex.Token = strings.TrimSpace(c.Plex.Token)
	if c.Plex.Token == "" {
		if value, ok := os.LookupEnv("PLEX_TOKEN"); ok {
			c.Plex.Token = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Plex.ClientID) == "" {
		c.Plex.ClientID = uuid.NewString()
	}

	libraries := make([]string, 0, len(c.Plex.Libraries))
	for _, name := range c.Plex.Libraries {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			libraries = append(libraries, trimmed)
		}
	}
	c.Plex.Libraries = libraries
	return nil
}

func (c *Config) normalizeRun() error {
	var err error
	if c.Run.CachePath, err = expandPath(c.Run.CachePath); err != nil {
		return fmt.Errorf("run.cache_path: %w", err)
	}
	if c.Run.LockPath, err = expandPath(c.Run.LockPath); err != nil {
		return fmt.Errorf("run.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeHide() {
	c.Hide.SummaryMarker = strings.TrimSpace(c.Hide.SummaryMarker)
	c.Hide.TitleMarker = strings.TrimSpace(c.Hide.TitleMarker)
	c.Hide.InProgressMarker = strings.TrimSpace(c.Hide.InProgressMarker)

	ignored := make([]string, 0, len(c.Hide.IgnoredItems))
	for _, name := range c.Hide.IgnoredItems {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			ignored = append(ignored, trimmed)
		}
	}
	c.Hide.IgnoredItems = ignored
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
