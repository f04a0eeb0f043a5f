package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Load reads, expands, decodes, defaults and validates a config file.
// An empty path yields the default configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		var rawMap map[string]any
		if err := yaml.Unmarshal(data, &rawMap); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}

		expanded, _ := expandValue(rawMap).(map[string]any)
		if err := decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// decode maps the expanded document onto the Config struct, honoring yaml
// field tags and rejecting unknown keys.
func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      cfg,
		TagName:     "yaml",
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// Watch re-loads the config file whenever it changes and invokes onChange
// with each successfully validated document. It blocks until stop is closed.
// Editors replace files rather than writing in place, so the watch is on the
// parent directory.
func Watch(path string, onChange func(*Config), stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				slog.Warn("Ignoring config change", "path", path, "error", err)
				continue
			}
			slog.Info("Config reloaded", "path", path)
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Config watcher error", "error", err)
		}
	}
}
