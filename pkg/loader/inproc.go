package loader

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/joeydtaylor/steeze-runner/pkg/registry"
	"github.com/joeydtaylor/steeze-runner/pkg/workload"
)

type inprocEntry struct {
	h   workload.Handler
	dir string
}

func (e inprocEntry) Call(ctx context.Context, in json.RawMessage) (json.RawMessage, error) {
	if e.dir != "" {
		ctx = workload.WithDir(ctx, e.dir)
	}
	return e.h(ctx, in)
}

func (inprocEntry) Close(context.Context) error { return nil }

func (l *Loader) bindInproc(_ context.Context, d registry.Descriptor) (Entry, error) {
	h, ok := workload.Lookup(d.EntryPath)
	if !ok {
		return nil, unresolvable("no in-process handler %q (registered: %s)",
			d.EntryPath, strings.Join(workload.Names(), ", "))
	}
	return inprocEntry{h: h, dir: d.Dir()}, nil
}
