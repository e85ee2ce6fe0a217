package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	uberconfig "go.uber.org/config"
)

// Load reads and validates a descriptor. The format follows the file
// extension: .toml, .json, and anything else is treated as YAML.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, err
	}

	var (
		cfg Config
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		cfg, err = loadTOML(path)
	case ".json":
		cfg, err = loadJSON(path)
	default:
		cfg, err = loadYAML(path)
	}
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadTOML(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadJSON(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := checkDuplicateApps(b); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("json decode: %w", err)
	}
	return cfg, nil
}

func loadYAML(path string) (Config, error) {
	p, err := uberconfig.NewYAML(uberconfig.File(path))
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if v := p.Get("apps"); v.HasValue() {
		if err := v.Populate(&cfg.Apps); err != nil {
			return Config{}, fmt.Errorf("apps: %w", err)
		}
	}
	return cfg, nil
}

// checkDuplicateApps walks the top-level "apps" object and rejects repeated
// ids; encoding/json would otherwise keep the last one silently.
func checkDuplicateApps(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("json decode: descriptor must be an object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json decode: %w", err)
		}
		key, _ := tok.(string)
		if key != "apps" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return fmt.Errorf("json decode: %w", err)
			}
			continue
		}
		tok, err = dec.Token()
		if err != nil {
			return fmt.Errorf("json decode: %w", err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			// null or wrong type; json.Unmarshal reports the latter
			return nil
		}
		seen := map[string]struct{}{}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("json decode: %w", err)
			}
			id, _ := tok.(string)
			if _, dup := seen[id]; dup {
				return fmt.Errorf("duplicate app id %q", id)
			}
			seen[id] = struct{}{}
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return fmt.Errorf("json decode: %w", err)
			}
		}
		return nil
	}
	return nil
}
