package loader

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joeydtaylor/steeze-runner/pkg/registry"
	"go.uber.org/zap"
)

// ErrWorkerGone is returned once a worker has exited or its stream is out of
// sync. The handle is unusable afterwards.
var ErrWorkerGone = errors.New("worker process is no longer usable")

type worker struct {
	argv    []string
	dir     string
	env     map[string]string
	cleanup func()
}

type processEntry struct {
	mu     sync.Mutex
	log    *zap.Logger
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	done   chan struct{}
	exit   error
	broken error

	cleanup func()
}

func (l *Loader) bindProcess(ctx context.Context, d registry.Descriptor) (Entry, error) {
	dir := d.Dir()
	if err := requireDir(dir); err != nil {
		return nil, err
	}
	if len(d.Command) == 0 {
		return nil, unresolvable("process runtime needs a command")
	}
	argv := append([]string(nil), d.Command...)
	if !filepath.IsAbs(argv[0]) && strings.ContainsRune(argv[0], filepath.Separator) {
		argv[0] = filepath.Join(dir, argv[0])
	}
	return l.start(ctx, worker{argv: argv, dir: dir, env: d.Env})
}

// start launches the worker and waits for its handshake frame.
func (l *Loader) start(ctx context.Context, w worker) (*processEntry, error) {
	cleanup := func() {}
	if w.cleanup != nil {
		cleanup = sync.OnceFunc(w.cleanup)
	}

	cmd := exec.Command(w.argv[0], w.argv[1:]...)
	cmd.Dir = w.dir
	cmd.Env = os.Environ()
	for k, v := range w.env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stderr = l.opts.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cleanup()
		return nil, unresolvable("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cleanup()
		return nil, unresolvable("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cleanup()
		return nil, unresolvable("start %s: %w", w.argv[0], err)
	}

	e := &processEntry{
		log:     l.log,
		cmd:     cmd,
		stdin:   stdin,
		stdout:  bufio.NewReader(stdout),
		done:    make(chan struct{}),
		cleanup: cleanup,
	}
	l.log.Info("worker started", zap.Strings("argv", w.argv), zap.Int("pid", cmd.Process.Pid))

	type hello struct {
		f   *Frame
		err error
	}
	ch := make(chan hello, 1)
	go func() {
		f, err := ReadFrame(e.stdout)
		ch <- hello{f, err}
	}()

	timer := time.NewTimer(l.opts.ReadyTimeout)
	defer timer.Stop()

	var lerr *LoadError
	select {
	case h := <-ch:
		switch {
		case h.err != nil:
			lerr = unresolvable("worker exited before ready: %w", h.err)
		case h.f.Type == FrameReady:
			go e.reap()
			return e, nil
		case h.f.Type == FrameContractError:
			lerr = contractMismatch("%s", h.f.Error)
			lerr.Trace = h.f.Trace
		case h.f.Type == FrameLoadError:
			lerr = unresolvable("%s", h.f.Error)
			lerr.Trace = h.f.Trace
		default:
			lerr = unresolvable("unexpected handshake frame %q", h.f.Type)
		}
	case <-timer.C:
		lerr = unresolvable("worker not ready after %s", l.opts.ReadyTimeout)
	case <-ctx.Done():
		lerr = unresolvable("bind canceled: %w", ctx.Err())
	}

	_ = stdin.Close()
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
	cleanup()
	return nil, lerr
}

func (e *processEntry) reap() {
	e.exit = e.cmd.Wait()
	close(e.done)
}

func (e *processEntry) Call(ctx context.Context, in json.RawMessage) (json.RawMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.broken != nil {
		return nil, e.broken
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(in) == 0 {
		in = json.RawMessage("null")
	}

	id := uuid.NewString()
	if err := WriteFrame(e.stdin, &Frame{Type: FrameInvoke, RequestID: id, Payload: in}); err != nil {
		return nil, e.breakWith(fmt.Errorf("write invoke: %w", err))
	}
	f, err := ReadFrame(e.stdout)
	if err != nil {
		return nil, e.breakWith(fmt.Errorf("read reply: %w", err))
	}
	if f.RequestID != id {
		return nil, e.breakWith(fmt.Errorf("reply for %q, want %q", f.RequestID, id))
	}

	switch f.Type {
	case FrameResult:
		if len(f.Payload) == 0 {
			return json.RawMessage("null"), nil
		}
		return f.Payload, nil
	case FrameError:
		return nil, &HandlerError{Message: f.Error, Trace: f.Trace}
	default:
		return nil, e.breakWith(fmt.Errorf("unexpected reply frame %q", f.Type))
	}
}

func (e *processEntry) breakWith(err error) error {
	e.broken = fmt.Errorf("%w: %v", ErrWorkerGone, err)
	e.log.Error("worker stream broken", zap.Int("pid", e.cmd.Process.Pid), zap.Error(err))
	return e.broken
}

// Close ends the worker by closing its stdin; it is killed if it has not
// exited when ctx is done.
func (e *processEntry) Close(ctx context.Context) error {
	defer e.cleanup()
	_ = e.stdin.Close()
	select {
	case <-e.done:
	case <-ctx.Done():
		_ = e.cmd.Process.Kill()
		<-e.done
	}
	var ee *exec.ExitError
	if errors.As(e.exit, &ee) {
		return nil
	}
	return e.exit
}
