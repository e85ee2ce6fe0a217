package loader

import (
	"context"
	_ "embed"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/joeydtaylor/steeze-runner/pkg/registry"
)

//go:embed shim/runner_shim.py
var pythonShim []byte

// bindPython runs a resident interpreter that imports the entry module once
// and then serves invoke frames. The module must define handler(context).
func (l *Loader) bindPython(ctx context.Context, d registry.Descriptor) (Entry, error) {
	if err := requireFile(d.EntryPath); err != nil {
		return nil, err
	}
	interp := d.Interpreter
	if interp == "" {
		interp = l.opts.PythonInterpreter
	}
	interpPath, err := exec.LookPath(interp)
	if err != nil {
		return nil, unresolvable("python interpreter: %w", err)
	}

	tmp, err := os.MkdirTemp("", "runner-shim-")
	if err != nil {
		return nil, unresolvable("shim dir: %w", err)
	}
	shim := filepath.Join(tmp, "runner_shim.py")
	if err := os.WriteFile(shim, pythonShim, 0o644); err != nil {
		_ = os.RemoveAll(tmp)
		return nil, unresolvable("write shim: %w", err)
	}

	entry, err := filepath.Abs(d.EntryPath)
	if err != nil {
		entry = d.EntryPath
	}
	return l.start(ctx, worker{
		argv:    []string{interpPath, "-u", shim, entry, d.ID},
		dir:     d.Dir(),
		env:     d.Env,
		cleanup: func() { _ = os.RemoveAll(tmp) },
	})
}
