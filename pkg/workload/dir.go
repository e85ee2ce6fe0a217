package workload

import "context"

type dirKey struct{}

// WithDir records the workload's home directory for the handler.
func WithDir(ctx context.Context, dir string) context.Context {
	return context.WithValue(ctx, dirKey{}, dir)
}

// Dir is the home directory of the running workload, or "" outside one.
// Handlers resolve their sibling files against it.
func Dir(ctx context.Context) string {
	d, _ := ctx.Value(dirKey{}).(string)
	return d
}
