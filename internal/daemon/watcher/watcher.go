// Package watcher reloads configuration when its file changes on disk.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/deckclock/config"
	"github.com/grovetools/deckclock/logging"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// Watcher watches a config directory and calls onChange once per burst of
// writes to a matching file.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	matcher  *patternmatcher.PatternMatcher
	debounce time.Duration
	onChange func(path string)
	logger   *logrus.Entry

	mu           sync.Mutex
	targetToLink map[string]string // symlink target path -> link name in dir
}

// New watches dir for files matching patterns (config.ConfigNames when
// empty). fsnotify does not follow symlinks, so the directories of linked
// config files are watched too.
func New(dir string, patterns []string, debounce time.Duration, onChange func(path string)) (*Watcher, error) {
	if len(patterns) == 0 {
		patterns = config.ConfigNames
	}
	matcher, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:      fw,
		dir:          dir,
		matcher:      matcher,
		debounce:     debounce,
		onChange:     onChange,
		logger:       logging.NewLogger("config-watcher"),
		targetToLink: make(map[string]string),
	}
	w.watchSymlinkTargets()
	return w, nil
}

func (w *Watcher) watchSymlinkTargets() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	watched := map[string]bool{w.dir: true}
	for _, entry := range entries {
		if !w.matches(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		target, err := filepath.EvalSymlinks(filepath.Join(w.dir, entry.Name()))
		if err != nil {
			w.logger.WithError(err).Warnf("Failed to resolve symlink %s", entry.Name())
			continue
		}
		w.mu.Lock()
		w.targetToLink[target] = entry.Name()
		w.mu.Unlock()

		targetDir := filepath.Dir(target)
		if watched[targetDir] {
			continue
		}
		if err := w.watcher.Add(targetDir); err != nil {
			w.logger.WithError(err).Warnf("Failed to watch symlink target dir %s", targetDir)
			continue
		}
		watched[targetDir] = true
		w.logger.Debugf("Watching symlink target directory: %s", targetDir)
	}
}

func (w *Watcher) matches(name string) bool {
	ok, err := w.matcher.MatchesOrParentMatches(name)
	return err == nil && ok
}

// resolve maps an event path to the config file path it concerns, or "".
func (w *Watcher) resolve(name string) string {
	w.mu.Lock()
	link, ok := w.targetToLink[name]
	w.mu.Unlock()
	if ok {
		return filepath.Join(w.dir, link)
	}
	if filepath.Dir(name) == w.dir && w.matches(filepath.Base(name)) {
		return name
	}
	return ""
}

// Run processes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	pending := ""

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			file := w.resolve(event.Name)
			if file == "" {
				continue
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			pending = file
			timer.Reset(w.debounce)

		case <-timer.C:
			if pending == "" {
				continue
			}
			w.logger.Infof("Config changed: %s", filepath.Base(pending))
			if w.onChange != nil {
				w.onChange(pending)
			}
			pending = ""

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Error("Watcher error")
		}
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
