package manifest

// Runtime enumerates the supported entry-unit kinds.
type Runtime string

const (
	RuntimeInproc  Runtime = "inproc"
	RuntimeWasm    Runtime = "wasm"
	RuntimePython  Runtime = "python"
	RuntimeProcess Runtime = "process"
)

// Valid reports whether r is one of the known runtimes.
func (r Runtime) Valid() bool {
	switch r {
	case RuntimeInproc, RuntimeWasm, RuntimePython, RuntimeProcess:
		return true
	}
	return false
}

// Keys the host interprets inside an app's metadata mapping.
// Everything else is carried through untouched.
const (
	KeyEntryPath      = "entryPath"
	KeyEntryPathSnake = "entry_path"
	KeyEntry          = "entry"
	KeyRuntime        = "runtime"
	KeyCommand        = "command"
	KeyEnv            = "env"
	KeyInterpreter    = "interpreter"
)

// default entry file names under <appsDir>/<id>/
const (
	DefaultPythonEntry = "app.py"
	DefaultWasmEntry   = "handler.wasm"
	DefaultInprocEntry = "handler"
)
