package manifest

import (
	"fmt"
	"sort"
	"strings"
)

// Config is the top-level workload descriptor document:
//
//	apps:
//	  json_dumps_loads:
//	    runtime: python
//
// Each app maps an id to free-form metadata.
type Config struct {
	Apps map[string]map[string]any `json:"apps" toml:"apps" yaml:"apps"`
}

// Validate parses every app entry and rejects the whole document on the
// first bad one. Ids are compared exactly; whitespace is not trimmed.
func (c *Config) Validate() error {
	_, err := c.Parse()
	return err
}

// Parse turns the raw document into App values ordered by id.
func (c *Config) Parse() ([]App, error) {
	ids := make([]string, 0, len(c.Apps))
	for id := range c.Apps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]App, 0, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("app id must not be empty")
		}
		app, err := parseApp(id, c.Apps[id])
		if err != nil {
			return nil, fmt.Errorf("app %q: %w", id, err)
		}
		out = append(out, app)
	}
	return out, nil
}
