package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Prompt modes.
const (
	PromptModeInspector = "inspector"
	PromptModeCommand   = "command"
)

// Policies applied when a stop prompt is cancelled, emptied or times out.
const (
	OnCancelStop  = "stop"
	OnCancelAbort = "abort"
)

// DefaultBaseURL is the Clockify REST API root.
const DefaultBaseURL = "https://api.clockify.me/api/v1"

// APIConfig controls requests to the time-tracking service.
type APIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// PollingConfig controls the reconciliation loop.
type PollingConfig struct {
	Interval             time.Duration `yaml:"interval"`
	MaxConcurrentFetches int           `yaml:"max_concurrent_fetches"`
}

// PromptConfig controls the stop-time description prompt.
type PromptConfig struct {
	// Mode is "inspector" (ask through the property inspector) or "command"
	// (run Command and read the answer from its stdout). The inspector is
	// only reachable while the key is selected in the Stream Deck
	// application; a press on any other key applies OnCancel at once.
	// Timeout bounds the wait either way.
	Mode     string        `yaml:"mode"`
	Command  []string      `yaml:"command"`
	Question string        `yaml:"question"`
	Timeout  time.Duration `yaml:"timeout"`
	// OnCancel is "stop" (stop with the original description) or "abort"
	// (leave the timer running).
	OnCancel string `yaml:"on_cancel"`
}

// StatusConfig controls the local status API.
type StatusConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SocketPath string `yaml:"socket_path"`
}

// Config is the deckclock configuration.
type Config struct {
	Version string        `yaml:"version"`
	API     APIConfig     `yaml:"api"`
	Polling PollingConfig `yaml:"polling"`
	Prompt  PromptConfig  `yaml:"prompt"`
	Status  StatusConfig  `yaml:"status"`

	// Extensions holds top-level sections owned by other packages (e.g. "logging").
	Extensions map[string]interface{} `yaml:"-"`

	// Path is the file the configuration was loaded from, empty for defaults.
	Path string `yaml:"-"`
}

// knownSections are the top-level keys decoded into Config itself.
var knownSections = map[string]bool{
	"version": true,
	"api":     true,
	"polling": true,
	"prompt":  true,
	"status":  true,
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Version: "1.0",
		API: APIConfig{
			BaseURL:      DefaultBaseURL,
			Timeout:      10 * time.Second,
			Retries:      2,
			RetryBackoff: 500 * time.Millisecond,
		},
		Polling: PollingConfig{
			Interval:             5 * time.Second,
			MaxConcurrentFetches: 4,
		},
		Prompt: PromptConfig{
			Mode:     PromptModeInspector,
			Question: "What did you work on?",
			Timeout:  60 * time.Second,
			OnCancel: OnCancelStop,
		},
		Status: StatusConfig{
			Enabled: true,
		},
		Extensions: map[string]interface{}{},
	}
}

// UnmarshalExtension decodes a specific extension's configuration into the
// provided target struct. The target must be a pointer.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// It's not an error if the key doesn't exist.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}

// Document renders the configuration as the map form it is written in,
// with durations as strings.
func (c *Config) Document() map[string]interface{} {
	doc := map[string]interface{}{
		"version": c.Version,
		"api": map[string]interface{}{
			"base_url":      c.API.BaseURL,
			"timeout":       c.API.Timeout.String(),
			"retries":       c.API.Retries,
			"retry_backoff": c.API.RetryBackoff.String(),
		},
		"polling": map[string]interface{}{
			"interval":               c.Polling.Interval.String(),
			"max_concurrent_fetches": c.Polling.MaxConcurrentFetches,
		},
		"prompt": map[string]interface{}{
			"mode":      c.Prompt.Mode,
			"command":   append([]string{}, c.Prompt.Command...),
			"question":  c.Prompt.Question,
			"timeout":   c.Prompt.Timeout.String(),
			"on_cancel": c.Prompt.OnCancel,
		},
		"status": map[string]interface{}{
			"enabled":     c.Status.Enabled,
			"socket_path": c.Status.SocketPath,
		},
	}
	for k, v := range c.Extensions {
		doc[k] = v
	}
	return doc
}
