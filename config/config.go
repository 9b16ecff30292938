// Package config loads the dev server configuration from devserver.yml or
// devserver.toml, applying defaults and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/favac/no-framework-starter/errors"
)

// DefaultPort is the dev server's default listen port, overridable with
// DEVSERVER_PORT.
const DefaultPort = 4173

// ConfigFileNames are probed in order when no explicit path is given.
var ConfigFileNames = []string{"devserver.yml", "devserver.yaml", "devserver.toml"}

// WatchConfig controls the file watcher.
type WatchConfig struct {
	// Ignore lists patterns excluded from watching (version control,
	// dependency directories).
	Ignore []string `yaml:"ignore" mapstructure:"ignore"`

	// DebounceMs is the per-file debounce window in milliseconds.
	DebounceMs int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// Config is the dev server configuration.
type Config struct {
	// Root is the directory served and watched. Defaults to the working
	// directory.
	Root string `yaml:"root" mapstructure:"root"`

	// Port is the TCP listen port.
	Port int `yaml:"port" mapstructure:"port"`

	// ViewsPath is the root-relative directory holding view modules.
	ViewsPath string `yaml:"views_path" mapstructure:"views_path"`

	Watch WatchConfig `yaml:"watch" mapstructure:"watch"`

	// extensions holds config sections this package does not interpret,
	// available to other components via UnmarshalExtension.
	extensions map[string]interface{}
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &Config{
		Root:      cwd,
		Port:      DefaultPort,
		ViewsPath: "js/views",
		Watch: WatchConfig{
			Ignore:     []string{".git", "node_modules"},
			DebounceMs: 100,
		},
	}
}

// FindConfigFile locates a config file in dir, probing the known names.
func FindConfigFile(dir string) (string, error) {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.ConfigNotFound(filepath.Join(dir, ConfigFileNames[0]))
}

// Load reads the config file at path (yaml or toml by extension), merges it
// over the defaults, and applies environment overrides. An empty path loads
// defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := parseFile(path)
		if err != nil {
			return nil, err
		}
		if err := decodeInto(raw, cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, fmt.Sprintf("failed to decode %s", path))
		}
		cfg.extensions = extractExtensions(raw)

		// Roots are anchored at the config file: an unset root serves the
		// file's directory, a relative one is resolved against it.
		if _, ok := raw["root"]; !ok {
			cfg.Root = filepath.Dir(path)
		} else if !filepath.IsAbs(cfg.Root) {
			cfg.Root = filepath.Join(filepath.Dir(path), cfg.Root)
		}
	}

	applyEnv(cfg)

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, errors.ConfigInvalid(fmt.Sprintf("port %d out of range", cfg.Port))
	}
	return cfg, nil
}

// UnmarshalExtension decodes an uninterpreted config section into out.
// Returns false if the section is absent.
func (c *Config) UnmarshalExtension(name string, out interface{}) (bool, error) {
	raw, ok := c.extensions[name]
	if !ok {
		return false, nil
	}
	if err := mapstructure.Decode(raw, out); err != nil {
		return true, errors.Wrap(err, errors.ErrCodeConfigInvalid, fmt.Sprintf("failed to decode %q section", name))
	}
	return true, nil
}

func parseFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, err
	}

	raw := make(map[string]interface{})
	switch filepath.Ext(path) {
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	default:
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, fmt.Sprintf("failed to parse %s", path))
	}
	return raw, nil
}

func decodeInto(raw map[string]interface{}, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// extractExtensions returns the top-level keys this package does not own.
func extractExtensions(raw map[string]interface{}) map[string]interface{} {
	known := map[string]struct{}{
		"root": {}, "port": {}, "views_path": {}, "watch": {},
	}
	out := make(map[string]interface{})
	for k, v := range raw {
		if _, ok := known[k]; !ok {
			out[k] = v
		}
	}
	return out
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DEVSERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("DEVSERVER_ROOT"); v != "" {
		cfg.Root = v
	}
}
