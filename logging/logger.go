package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/deckclock/config"
	"github.com/grovetools/deckclock/pkg/paths"
	"github.com/grovetools/deckclock/util/pathutil"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	activeConfig *Config
	logFile      *os.File
	hooks        []logrus.Hook
)

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	if activeConfig == nil {
		activeConfig = loadConfig()
	}

	logger := logrus.New()
	apply(logger, *activeConfig)

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// Configure replaces the logging configuration and reapplies it to every
// logger created so far.
func Configure(cfg Config) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	activeConfig = &cfg
	closeLogFile()
	for _, entry := range loggers {
		apply(entry.Logger, cfg)
	}
}

// ConfigureFrom decodes the `logging` extension of cfg and applies it.
func ConfigureFrom(cfg *config.Config) error {
	var logCfg Config
	if cfg != nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			return err
		}
	}
	Configure(logCfg)
	return nil
}

// AddHook attaches a hook to every current and future logger.
func AddHook(hook logrus.Hook) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	hooks = append(hooks, hook)
	for _, entry := range loggers {
		entry.Logger.AddHook(hook)
	}
}

// RemoveHook detaches a hook previously passed to AddHook.
func RemoveHook(hook logrus.Hook) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	kept := hooks[:0]
	for _, h := range hooks {
		if h != hook {
			kept = append(kept, h)
		}
	}
	hooks = kept
	for _, entry := range loggers {
		entry.Logger.ReplaceHooks(make(logrus.LevelHooks))
		for _, h := range hooks {
			entry.Logger.AddHook(h)
		}
	}
}

// CurrentLogFile returns the file today's log lines are written to.
func CurrentLogFile() string {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	cfg := activeConfig
	if cfg == nil {
		cfg = loadConfig()
	}
	return logFilePath(*cfg, time.Now())
}

// LogFilePath returns today's log file for the logging section of cfg.
func LogFilePath(cfg *config.Config) (string, error) {
	var logCfg Config
	if cfg != nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			return "", err
		}
	}
	return logFilePath(logCfg, time.Now()), nil
}

func loadConfig() *Config {
	var logCfg Config
	cfg, err := config.LoadDefault()
	if err == nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			// Log a warning if parsing fails, but continue with defaults
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	}
	return &logCfg
}

func logFilePath(cfg Config, now time.Time) string {
	if cfg.File.Path != "" {
		return pathutil.MustExpand(cfg.File.Path)
	}
	dir := paths.LogDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, fmt.Sprintf("deckclock-%s.log", now.Format("2006-01-02")))
}

// apply configures level, formatter and sinks. Callers hold loggersMu.
func apply(logger *logrus.Logger, cfg Config) {
	levelStr := "info"
	if env := os.Getenv("DECKCLOCK_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if cfg.Level != "" {
		levelStr = cfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.SetReportCaller(os.Getenv("DECKCLOCK_LOG_CALLER") == "true" || cfg.ReportCaller)

	isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	switch cfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{Config: cfg.Format})
	}

	var writers []io.Writer
	if !cfg.File.Disabled {
		if f := openLogFile(cfg); f != nil {
			writers = append(writers, f)
		}
	}

	stderrMode := "auto"
	if cfg.Format.StructuredToStderr != "" {
		stderrMode = cfg.Format.StructuredToStderr
	}
	switch stderrMode {
	case "always":
		writers = append(writers, os.Stderr)
	case "auto":
		// The host launches the plugin without a terminal; only echo to
		// stderr when debugging or when stderr is captured.
		if logger.GetLevel() >= logrus.DebugLevel || !isInteractive {
			writers = append(writers, os.Stderr)
		}
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	logger.ReplaceHooks(make(logrus.LevelHooks))
	for _, hook := range hooks {
		logger.AddHook(hook)
	}
}

func openLogFile(cfg Config) *os.File {
	if logFile != nil {
		return logFile
	}
	path := logFilePath(cfg, time.Now())
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}
	logFile = f
	return f
}

func closeLogFile() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}
