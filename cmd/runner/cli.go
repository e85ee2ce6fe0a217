package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// ExitError carries the process exit code for a startup failure. An empty
// Message means the cause was already written.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Message
}

type config struct {
	WorkloadID   string
	Descriptor   string
	AppsDir      string
	Listen       string
	Timeout      time.Duration
	ReadyTimeout time.Duration
	Python       string
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envMillis(k string) time.Duration {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Millisecond
}

// parse reads flags over environment defaults. It returns shouldExit for -h.
func parse(args []string, out io.Writer) (config, bool, error) {
	fs := flag.NewFlagSet("runner", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprint(out, `
runner - load one function and serve invocations of it.

Usage:
  runner [options] <function_name>

Options:
`)
		fs.PrintDefaults()
	}

	var c config
	fs.StringVar(&c.Descriptor, "descriptor", envOr("RUNNER_DESCRIPTOR", "apps/functions_info.yaml"), "Function descriptor (.yaml, .json or .toml).")
	fs.StringVar(&c.AppsDir, "apps-dir", envOr("RUNNER_APPS_DIR", "apps"), "Base directory for relative entry paths.")
	fs.StringVar(&c.Listen, "listen", "", "Listen address (default $SERVER_LISTEN_ADDRESS or 0.0.0.0:12345).")
	fs.DurationVar(&c.Timeout, "timeout", envMillis("INVOKE_TIMEOUT_MS"), "Per-invocation timeout; 0 disables it.")
	fs.DurationVar(&c.ReadyTimeout, "ready-timeout", 60*time.Second, "How long a worker process may take to become ready.")
	fs.StringVar(&c.Python, "python", envOr("RUNNER_PYTHON", "python3"), "Interpreter for python workloads.")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return c, true, nil
		}
		return c, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return c, false, &ExitError{Code: 1}
	}
	c.WorkloadID = fs.Arg(0)
	return c, false, nil
}
