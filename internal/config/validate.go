package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePlex(); err != nil {
		return err
	}
	if err := c.validateHide(); err != nil {
		return err
	}
	if err := c.validateRun(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout <= 0 {
		return fmt.Errorf("%w: notifications.request_timeout must be positive", ErrInvalid)
	}
	return nil
}

func (c *Config) validatePlex() error {
	if c.Plex.URL == "" {
		return fmt.Errorf("%w: plex.url must be set", ErrMissingSetting)
	}
	if !strings.HasPrefix(c.Plex.URL, "http://") && !strings.HasPrefix(c.Plex.URL, "https://") {
		return fmt.Errorf("%w: plex.url must start with http:// or https://", ErrInvalid)
	}
	if c.Plex.Token == "" {
		return fmt.Errorf("%w: plex.token must be set (or export PLEX_TOKEN)", ErrMissingSetting)
	}
	if c.Plex.Token == placeholderToken {
		return fmt.Errorf("%w: plex.token still holds the sample placeholder", ErrMissingSetting)
	}
	if len(c.Plex.Libraries) == 0 {
		return fmt.Errorf("%w: plex.libraries must name at least one library", ErrMissingSetting)
	}
	return nil
}

func (c *Config) validateHide() error {
	if !c.Hide.Summaries && !c.Hide.Titles && !c.Hide.Thumbnails {
		return fmt.Errorf("%w: at least one of hide.summaries, hide.titles, hide.thumbnails must be enabled", ErrInvalid)
	}
	if c.Hide.Summaries && c.Hide.SummaryMarker == "" {
		return fmt.Errorf("%w: hide.hidden_summary_marker must be set when hide.summaries is enabled", ErrInvalid)
	}
	if c.Hide.Titles && c.Hide.TitleMarker == "" {
		return fmt.Errorf("%w: hide.hidden_title_marker must be set when hide.titles is enabled", ErrInvalid)
	}
	return nil
}

func (c *Config) validateRun() error {
	if c.Run.QuiescenceSeconds <= 0 {
		return fmt.Errorf("%w: run.quiescence_seconds must be positive", ErrInvalid)
	}
	if c.Run.MaxQuiesceSeconds < c.Run.QuiescenceSeconds {
		return fmt.Errorf("%w: run.max_quiesce_seconds must be at least run.quiescence_seconds", ErrInvalid)
	}
	if c.Run.RetryRounds < 0 {
		return fmt.Errorf("%w: run.retry_rounds must be >= 0", ErrInvalid)
	}
	if strings.TrimSpace(c.Run.CachePath) == "" {
		return fmt.Errorf("%w: run.cache_path must be set", ErrInvalid)
	}
	if strings.TrimSpace(c.Run.LockPath) == "" {
		return fmt.Errorf("%w: run.lock_path must be set", ErrInvalid)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format must be console or json", ErrInvalid)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level must be debug, info, warn, or error", ErrInvalid)
	}
	return nil
}
