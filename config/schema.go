package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

const durationPattern = `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

// schemaDocument mirrors Config as it is written on disk: durations are
// strings and known extension sections are free-form objects.
type schemaDocument struct {
	Version string `yaml:"version,omitempty" jsonschema:"description=Configuration version (e.g. '1.0')"`
	API     *struct {
		BaseURL      string `yaml:"base_url,omitempty" jsonschema:"description=Root URL of the Clockify REST API"`
		Timeout      string `yaml:"timeout,omitempty" jsonschema:"description=Per-request timeout (e.g. 10s)"`
		Retries      *int   `yaml:"retries,omitempty" jsonschema:"minimum=0,maximum=10,description=Retries for idempotent requests on network errors and 5xx"`
		RetryBackoff string `yaml:"retry_backoff,omitempty" jsonschema:"description=Initial retry delay; doubled on each attempt"`
	} `yaml:"api,omitempty" jsonschema:"description=Time-tracking API client settings"`
	Polling *struct {
		Interval             string `yaml:"interval,omitempty" jsonschema:"description=Delay between reconciliation ticks (e.g. 5s)"`
		MaxConcurrentFetches *int   `yaml:"max_concurrent_fetches,omitempty" jsonschema:"minimum=1,description=Credential groups fetched in parallel per tick"`
	} `yaml:"polling,omitempty" jsonschema:"description=Reconciliation loop settings"`
	Prompt *struct {
		Mode     string   `yaml:"mode,omitempty" jsonschema:"enum=inspector,enum=command,description=How to ask for a description when stopping"`
		Command  []string `yaml:"command,omitempty" jsonschema:"description=Command run in command mode; its stdout is the answer"`
		Question string   `yaml:"question,omitempty" jsonschema:"description=Question shown to the user"`
		Timeout  string   `yaml:"timeout,omitempty" jsonschema:"description=How long to wait for an answer"`
		OnCancel string   `yaml:"on_cancel,omitempty" jsonschema:"enum=stop,enum=abort,description=What to do when the prompt is cancelled or empty"`
	} `yaml:"prompt,omitempty" jsonschema:"description=Stop-time description prompt"`
	Status *struct {
		Enabled    *bool  `yaml:"enabled,omitempty" jsonschema:"description=Serve the local status API"`
		SocketPath string `yaml:"socket_path,omitempty" jsonschema:"description=Unix socket of the status API"`
	} `yaml:"status,omitempty" jsonschema:"description=Local status API"`
	Logging map[string]interface{} `yaml:"logging,omitempty" jsonschema:"description=Logging configuration"`
	TUI     *struct {
		Theme string `yaml:"theme,omitempty" jsonschema:"enum=kanagawa,enum=terminal,description=Color palette for terminal output"`
	} `yaml:"tui,omitempty" jsonschema:"description=Terminal output settings"`
}

// GenerateSchema returns the JSON Schema for deckclock configuration files.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}

	schema := r.Reflect(&schemaDocument{})
	schema.Title = "deckclock configuration"
	schema.Description = "Schema for deckclock.yml and deckclock.toml."

	for _, section := range []string{"api", "polling", "prompt"} {
		prop, ok := schema.Properties.Get(section)
		if !ok || prop.Properties == nil {
			continue
		}
		for pair := prop.Properties.Oldest(); pair != nil; pair = pair.Next() {
			if isDurationField(section, pair.Key) {
				pair.Value.Pattern = durationPattern
			}
		}
	}

	return json.MarshalIndent(schema, "", "  ")
}

func isDurationField(section, key string) bool {
	switch section + "." + key {
	case "api.timeout", "api.retry_backoff", "polling.interval", "prompt.timeout":
		return true
	}
	return false
}
