package libcontainer

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Process specifies a process started in a container by Run or Join.
type Process struct {
	// Spec overrides the process of the container's runtime spec. Nil runs
	// the spec's own process.
	Spec *specs.Process

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// ConsoleSocket receives the pty master when a terminal is requested.
	ConsoleSocket *OwnedFd

	// PreserveFds is the number of descriptors after stdio passed on from
	// the runtime's own process.
	PreserveFds int

	// Detached returns from Run without waiting for the process.
	Detached bool

	ops ParentProcess
}

// Pid returns the process id once the process was started.
func (p *Process) Pid() (int, error) {
	if p.ops == nil {
		return -1, newGenericError(fmt.Errorf("invalid process"), NoProcessOps)
	}
	return p.ops.Pid(), nil
}

func (p *Process) Signal(sig os.Signal) error {
	if p.ops == nil {
		return newGenericError(fmt.Errorf("invalid process"), NoProcessOps)
	}
	return p.ops.Signal(sig)
}

// Wait waits for the process to exit.
func (p *Process) Wait() (*os.ProcessState, error) {
	if p.ops == nil {
		return nil, newGenericError(fmt.Errorf("invalid process"), NoProcessOps)
	}
	return p.ops.Wait()
}

// ParentProcess is the creator's view of a forked container process.
type ParentProcess interface {
	Pid() int
	Signal(os.Signal) error
	Wait() (*os.ProcessState, error)
}

// Stdio are the standard streams of a forked process.
type Stdio struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Forker creates the new process. It takes ownership of args and of the
// child's end of the sync pair, and must release both on every path.
type Forker interface {
	Fork(args *ContainerArgs, sync *OwnedFd, stdio Stdio) (ParentProcess, error)
}

// StartOpts tune Start.
type StartOpts struct {
	// ReadyTimeout bounds the wait for the child's setup. Zero waits
	// forever.
	ReadyTimeout time.Duration

	// Executor is the registry name the child resolves its executor by.
	Executor string

	LogLevel logrus.Level

	Stdio Stdio

	// ApplyCgroup places the new process before it starts its setup.
	ApplyCgroup func(pid int) error

	// BeforeProceed runs once the child is ready. An error aborts the
	// child before it reaches its executor.
	BeforeProceed func(pid int) error
}

// Start forks the process described by args and runs the handshake with
// it. On return the child is past both phases; on error no child is left
// running. Start does not take ownership of args.
func Start(args *ContainerArgs, forker Forker, opts StartOpts) (ParentProcess, error) {
	childArgs, err := args.Clone()
	if err != nil {
		return nil, err
	}
	parent, childEnd, err := NewSyncPair("init")
	if err != nil {
		childArgs.Close()
		return nil, err
	}
	defer parent.Close()

	proc, err := forker.Fork(childArgs, childEnd, opts.Stdio)
	if err != nil {
		return nil, newSystemErrorWithCause(err, "starting container process")
	}
	log := logrus.WithFields(logrus.Fields{
		"pid":  proc.Pid(),
		"type": args.Type.String(),
	})
	log.Debug("container process forked")

	abort := func(err error) (ParentProcess, error) {
		parent.Abort()
		if kerr := proc.Signal(unix.SIGKILL); kerr != nil {
			log.Debugf("killing aborted process: %v", kerr)
		}
		if _, werr := proc.Wait(); werr != nil {
			log.Debugf("reaping aborted process: %v", werr)
		}
		return nil, err
	}

	if opts.ApplyCgroup != nil {
		if err := opts.ApplyCgroup(proc.Pid()); err != nil {
			return abort(newSystemErrorWithCause(err, "applying cgroup configuration"))
		}
	}
	if err := parent.SendBootstrap(newInitConfig(args, opts)); err != nil {
		return abort(newGenericError(err, SyncFailed))
	}
	if err := parent.WaitReady(opts.ReadyTimeout); err != nil {
		return abort(newGenericError(err, SyncFailed))
	}
	if opts.BeforeProceed != nil {
		if err := opts.BeforeProceed(proc.Pid()); err != nil {
			return abort(newSystemErrorWithCause(err, "preparing container process"))
		}
	}
	if err := parent.SignalProceed(); err != nil {
		return abort(newGenericError(err, SyncFailed))
	}
	return proc, nil
}
