// Package registry holds the immutable table of workloads the host can bind.
// It is built once from the descriptor and only read afterwards, so it needs
// no locking.
package registry

import (
	"path/filepath"
	"sort"

	"github.com/joeydtaylor/steeze-runner/pkg/manifest"
)

// Descriptor is one invokable unit.
type Descriptor struct {
	ID          string
	EntryPath   string
	Runtime     manifest.Runtime
	Command     []string
	Env         map[string]string
	Interpreter string
	Metadata    map[string]any

	// Home is <appsDir>/<id> for in-process workloads, whose entry is a
	// handler name rather than a file.
	Home string
}

// Dir is the directory that owns the entry unit. Sibling files of the entry
// are resolved relative to it.
func (d Descriptor) Dir() string {
	if d.Runtime == manifest.RuntimeInproc {
		return d.Home
	}
	return dirOf(d.EntryPath)
}

type Registry struct {
	path  string
	byID  map[string]Descriptor
	order []string
}

// Load builds the registry from the descriptor at path. On any failure it
// returns an empty registry and a *ConfigError; callers may keep going.
func Load(path, appsDir string) (*Registry, error) {
	cfg, err := manifest.Load(path)
	if err != nil {
		return Empty(path), &ConfigError{Path: path, Err: err}
	}
	apps, err := cfg.Parse()
	if err != nil {
		return Empty(path), &ConfigError{Path: path, Err: err}
	}
	return fromApps(path, appsDir, apps), nil
}

// Empty returns a registry with no workloads.
func Empty(path string) *Registry {
	return &Registry{path: path, byID: map[string]Descriptor{}}
}

// New builds a registry from already-resolved descriptors. Later duplicates
// are ignored; it is meant for tests and embedding.
func New(ds ...Descriptor) *Registry {
	r := Empty("")
	for _, d := range ds {
		if _, dup := r.byID[d.ID]; dup {
			continue
		}
		if d.Metadata == nil {
			d.Metadata = map[string]any{}
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	sort.Strings(r.order)
	return r
}

func fromApps(path, appsDir string, apps []manifest.App) *Registry {
	r := Empty(path)
	for _, a := range apps {
		var home string
		if a.Runtime == manifest.RuntimeInproc {
			home = filepath.Join(appsDir, a.ID)
		}
		r.byID[a.ID] = Descriptor{
			Home:        home,
			ID:          a.ID,
			EntryPath:   a.ResolveEntry(appsDir),
			Runtime:     a.Runtime,
			Command:     a.Command,
			Env:         a.Env,
			Interpreter: a.Interpreter,
			Metadata:    a.Meta,
		}
		r.order = append(r.order, a.ID)
	}
	sort.Strings(r.order)
	return r
}

// Get looks an id up by exact, case-sensitive match.
func (r *Registry) Get(id string) (Descriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return Descriptor{}, &NotFoundError{ID: id, Available: r.IDs()}
	}
	return d, nil
}

// List returns every descriptor ordered by id.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) IDs() []string { return append([]string(nil), r.order...) }

func (r *Registry) Len() int { return len(r.order) }

func (r *Registry) Path() string { return r.path }

// Snapshot is the id -> metadata listing served by GET /functions. The maps
// are deep copies; mutating them does not reach the registry.
func (r *Registry) Snapshot() map[string]map[string]any {
	out := make(map[string]map[string]any, len(r.order))
	for _, id := range r.order {
		out[id] = copyMap(r.byID[id].Metadata)
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = copyValue(x)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
