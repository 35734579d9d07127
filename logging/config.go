package logging

// Config is the `logging` section of deckclock.yml. It is applied when the
// plugin starts and again on every config reload.
type Config struct {
	// Level is the lowest level written: debug, info, warn or error.
	// DECKCLOCK_LOG_LEVEL wins over it. Unknown values fall back to info.
	Level string `yaml:"level"`

	// ReportCaller adds the calling function and line to every entry.
	// DECKCLOCK_LOG_CALLER=true turns it on as well.
	ReportCaller bool `yaml:"report_caller"`

	File FileSinkConfig `yaml:"file"`

	Format FormatConfig `yaml:"format"`
}

// FileSinkConfig is where the plugin keeps its log. `deckclock logs` reads the
// same file.
type FileSinkConfig struct {
	// Disabled drops the file sink. Warnings still reach the Stream Deck
	// log through the host hook.
	Disabled bool `yaml:"disabled"`
	// Path replaces <state>/logs/deckclock-YYYY-MM-DD.log with a fixed file.
	// ~ and $VARS are expanded.
	Path string `yaml:"path"`
}

// FormatConfig selects how entries are rendered.
type FormatConfig struct {
	// Preset is "default", "simple" (level and message only) or "json",
	// the last one being what `deckclock logs` pretty-prints.
	Preset string `yaml:"preset"`
	// DisableTimestamp and DisableComponent trim the default preset.
	DisableTimestamp bool `yaml:"disable_timestamp"`
	DisableComponent bool `yaml:"disable_component"`
	// StructuredToStderr is "auto", "always" or "never". The Stream Deck
	// application starts the plugin without a terminal, so auto echoes to
	// stderr when stderr is not a TTY or the level is debug.
	StructuredToStderr string `yaml:"structured_to_stderr"`
}
