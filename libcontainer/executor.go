package libcontainer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Executor runs the workload in place of the constructed process. Exec does
// not return on success; an error means the workload could not be started
// and the process must exit.
type Executor interface {
	Exec(args *ContainerArgs) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(args *ContainerArgs) error

func (f ExecutorFunc) Exec(args *ContainerArgs) error {
	return f(args)
}

// ExecError describes why a workload could not be launched.
type ExecError struct {
	Path string
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("exec %q: %v", e.Path, e.Err)
}

func (e *ExecError) Cause() error {
	return e.Err
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// DefaultExecutorName is the registry name of the exec(2) executor.
const DefaultExecutorName = "default"

const defaultPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

var (
	executorsMu sync.RWMutex
	executors   = map[string]Executor{
		DefaultExecutorName: ExecutorFunc(execProcess),
	}
)

// RegisterExecutor makes e available under name to container processes
// started by this binary. The re-executed init resolves the executor by the
// name it was started with, so registration has to happen in both the
// creator and init, typically from an init function.
func RegisterExecutor(name string, e Executor) {
	executorsMu.Lock()
	defer executorsMu.Unlock()
	executors[name] = e
}

// GetExecutor returns the executor registered under name.
func GetExecutor(name string) (Executor, error) {
	executorsMu.RLock()
	defer executorsMu.RUnlock()
	e, ok := executors[name]
	if !ok {
		return nil, newGenericError(fmt.Errorf("no executor registered as %q", name), ConfigInvalid)
	}
	return e, nil
}

// DefaultExecutor replaces the process image with Process.Args of the spec.
func DefaultExecutor() Executor {
	return ExecutorFunc(execProcess)
}

func execProcess(args *ContainerArgs) error {
	p := args.Spec.Process
	if len(p.Args) == 0 || p.Args[0] == "" {
		return &ExecError{Err: fmt.Errorf("empty argv")}
	}
	path, err := lookPath(p.Args[0], p.Env)
	if err != nil {
		return &ExecError{Path: p.Args[0], Err: err}
	}
	logrus.WithFields(logrus.Fields{
		"path": path,
		"args": p.Args,
	}).Debug("executing workload")
	if err := args.Syscall.Exec(path, p.Args, p.Env); err != nil {
		return &ExecError{Path: path, Err: err}
	}
	return nil
}

// lookPath resolves file against the PATH of the workload's environment,
// not the runtime's.
func lookPath(file string, env []string) (string, error) {
	if strings.Contains(file, "/") {
		if err := executable(file); err != nil {
			return "", err
		}
		return file, nil
	}
	path := defaultPath
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			path = strings.TrimPrefix(kv, "PATH=")
		}
	}
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if executable(candidate) == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("executable file not found in $PATH")
}

func executable(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return unix.EISDIR
	}
	return unix.Access(path, unix.X_OK)
}
