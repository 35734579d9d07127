package config

import (
	"net/url"

	"github.com/grovetools/deckclock/errors"
)

// Validate checks the semantic constraints the schema cannot express.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.ConfigInvalid("api.base_url must be an absolute URL").
			WithDetail("base_url", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.ConfigInvalid("api.timeout must be positive")
	}
	if c.API.Retries < 0 {
		return errors.ConfigInvalid("api.retries cannot be negative")
	}
	if c.Polling.Interval <= 0 {
		return errors.ConfigInvalid("polling.interval must be positive")
	}
	if c.Polling.MaxConcurrentFetches < 1 {
		return errors.ConfigInvalid("polling.max_concurrent_fetches must be at least 1")
	}
	switch c.Prompt.Mode {
	case PromptModeInspector:
	case PromptModeCommand:
		if len(c.Prompt.Command) == 0 {
			return errors.ConfigInvalid("prompt.command is required when prompt.mode is command")
		}
	default:
		return errors.ConfigInvalid("prompt.mode must be inspector or command").
			WithDetail("mode", c.Prompt.Mode)
	}
	if c.Prompt.OnCancel != OnCancelStop && c.Prompt.OnCancel != OnCancelAbort {
		return errors.ConfigInvalid("prompt.on_cancel must be stop or abort").
			WithDetail("on_cancel", c.Prompt.OnCancel)
	}
	if c.Prompt.Timeout <= 0 {
		return errors.ConfigInvalid("prompt.timeout must be positive")
	}
	return nil
}
