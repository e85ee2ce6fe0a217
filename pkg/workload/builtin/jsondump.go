package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joeydtaylor/steeze-runner/pkg/workload"
)

// DefaultJSONDumpFile is read when the input does not name a file. Relative
// paths resolve against the workload's home directory.
const DefaultJSONDumpFile = "search.json"

type JSONDumpInput struct {
	Path string `json:"path"`
}

type JSONDumpOutput struct {
	Latency float64 `json:"latency"` // seconds
	Bytes   int     `json:"bytes"`
}

// JSONDumpsLoads loads a JSON document and re-encodes it indented, timing
// only the load+dump portion.
func JSONDumpsLoads(ctx context.Context, in json.RawMessage) (json.RawMessage, error) {
	var input JSONDumpInput
	if len(in) > 0 && string(in) != "null" {
		if err := json.Unmarshal(in, &input); err != nil {
			return nil, fmt.Errorf("json_dumps_loads: input: %w", err)
		}
	}
	if input.Path == "" {
		input.Path = DefaultJSONDumpFile
	}
	if dir := workload.Dir(ctx); dir != "" && !filepath.IsAbs(input.Path) {
		input.Path = filepath.Join(dir, input.Path)
	}

	start := time.Now()
	b, err := os.ReadFile(input.Path)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("json_dumps_loads: %s: %w", input.Path, err)
	}
	out, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, err
	}
	latency := time.Since(start)

	return json.Marshal(JSONDumpOutput{Latency: latency.Seconds(), Bytes: len(out)})
}
