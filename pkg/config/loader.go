package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Loader reads the configuration file and optionally watches it for changes.
type Loader struct {
	path string

	mu       sync.Mutex
	onChange func(*Config) error
}

// NewLoader creates a loader for the given config file path.
func NewLoader(path string) (*Loader, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	return &Loader{path: path}, nil
}

// Load parses, expands and validates the configuration file.
func (l *Loader) Load() (*Config, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", l.path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", l.path, err)
	}

	cfg.ExpandEnv()
	cfg.ResolveAPIKey()
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", l.path, err)
	}

	return cfg, nil
}

// SetOnChange registers a callback invoked with each successfully reloaded
// configuration.
func (l *Loader) SetOnChange(fn func(*Config) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// Watch blocks until ctx is done, reloading the file on write events.
// A reload that fails to parse or validate is logged and skipped; the
// previous configuration stays in effect.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which drops
	// watches registered on the file itself.
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", l.path, err)
	}

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(l.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, l.reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Config watcher error", "error", err)
		}
	}
}

func (l *Loader) reload() {
	cfg, err := l.Load()
	if err != nil {
		slog.Error("Config reload failed, keeping previous config", "error", err)
		return
	}

	l.mu.Lock()
	fn := l.onChange
	l.mu.Unlock()

	if fn != nil {
		if err := fn(cfg); err != nil {
			slog.Error("Config change handler failed", "error", err)
		}
	}
}
