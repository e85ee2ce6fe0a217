package manifest

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// App is one parsed entry of the descriptor.
type App struct {
	ID          string
	EntryPath   string // as written; empty means "derive from id"
	Runtime     Runtime
	Command     []string
	Env         map[string]string
	Interpreter string
	Meta        map[string]any
}

func parseApp(id string, meta map[string]any) (App, error) {
	meta = normalizeMap(meta)
	if meta == nil {
		meta = map[string]any{}
	}
	app := App{ID: id, Meta: meta}

	for _, k := range []string{KeyEntryPath, KeyEntryPathSnake, KeyEntry} {
		v, ok := meta[k]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return App{}, fmt.Errorf("%s must be a string", k)
		}
		if s = strings.TrimSpace(s); s != "" {
			app.EntryPath = s
			break
		}
	}

	if v, ok := meta[KeyRuntime]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return App{}, errors.New("runtime must be a string")
		}
		app.Runtime = Runtime(strings.ToLower(strings.TrimSpace(s)))
	}
	if app.Runtime == "" {
		app.Runtime = inferRuntime(app.EntryPath)
	}
	if !app.Runtime.Valid() {
		return App{}, fmt.Errorf("unknown runtime %q", app.Runtime)
	}

	cmd, err := stringList(meta[KeyCommand])
	if err != nil {
		return App{}, fmt.Errorf("command: %w", err)
	}
	app.Command = cmd
	if app.Runtime == RuntimeProcess && len(app.Command) == 0 {
		return App{}, errors.New("command required for process runtime")
	}

	if v, ok := meta[KeyEnv]; ok && v != nil {
		m, ok := v.(map[string]any)
		if !ok {
			return App{}, errors.New("env must be a mapping")
		}
		app.Env = make(map[string]string, len(m))
		for k, val := range m {
			app.Env[k] = fmt.Sprint(val)
		}
	}

	if v, ok := meta[KeyInterpreter].(string); ok {
		app.Interpreter = strings.TrimSpace(v)
	}
	return app, nil
}

func inferRuntime(entry string) Runtime {
	switch strings.ToLower(path.Ext(entry)) {
	case ".py":
		return RuntimePython
	case ".wasm":
		return RuntimeWasm
	default:
		return RuntimeInproc
	}
}

// ResolveEntry returns the concrete entry location for the app.
// File runtimes resolve relative paths against appsDir; inproc entries are
// handler names and are returned as-is.
func (a App) ResolveEntry(appsDir string) string {
	entry := a.EntryPath
	switch a.Runtime {
	case RuntimeInproc:
		if entry == "" {
			return a.ID + "/" + DefaultInprocEntry
		}
		return entry
	case RuntimePython:
		if entry == "" {
			entry = filepath.Join(a.ID, DefaultPythonEntry)
		}
	case RuntimeWasm:
		if entry == "" {
			entry = filepath.Join(a.ID, DefaultWasmEntry)
		}
	case RuntimeProcess:
		if entry == "" {
			entry = a.ID
		}
	}
	if filepath.IsAbs(entry) {
		return filepath.Clean(entry)
	}
	return filepath.Join(appsDir, entry)
}

func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		return []string{t}, nil
	case []string:
		return append([]string(nil), t...), nil
	case []any:
		out := make([]string, 0, len(t))
		for i, x := range t {
			s, ok := x.(string)
			if !ok {
				return nil, fmt.Errorf("element %d is not a string", i)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// normalizeMap converts yaml.v2 style map[interface{}]interface{} values into
// map[string]any so the metadata can be re-encoded as JSON.
func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeMap(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return v
	}
}
