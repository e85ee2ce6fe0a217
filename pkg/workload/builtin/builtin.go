// Package builtin registers the workloads that ship inside the runner binary.
// Import it for side effects:
//
//	import _ "github.com/joeydtaylor/steeze-runner/pkg/workload/builtin"
package builtin

import "github.com/joeydtaylor/steeze-runner/pkg/workload"

const (
	EchoEntry     = "echo/handler"
	JSONDumpEntry = "json_dumps_loads/handler"
)

func init() {
	workload.Register(EchoEntry, Echo)
	workload.Register(JSONDumpEntry, JSONDumpsLoads)
}
