// +build linux

package libcontainer

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nabla-containers/runllc/libcontainer/cgroups"
	"github.com/nabla-containers/runllc/libcontainer/configs"
	"github.com/opencontainers/runc/libcontainer/system"
	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	killPollInterval = 10 * time.Millisecond
	killPollAttempts = 100
)

type linuxContainer struct {
	id            string
	root          string
	config        *configs.Config
	factory       *LinuxFactory
	cgroupManager cgroups.Manager

	m     sync.Mutex
	state *State
}

func (c *linuxContainer) ID() string {
	return c.id
}

func (c *linuxContainer) Config() configs.Config {
	return *c.config
}

func (c *linuxContainer) Status() (Status, error) {
	c.m.Lock()
	defer c.m.Unlock()
	return c.refreshStatus()
}

func (c *linuxContainer) State() (*State, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if _, err := c.refreshStatus(); err != nil {
		return nil, err
	}
	st := *c.state
	return &st, nil
}

func (c *linuxContainer) log() *logrus.Entry {
	return logrus.WithField("id", c.id)
}

// refreshStatus notices an init process that exited behind our back.
func (c *linuxContainer) refreshStatus() (Status, error) {
	switch c.state.Status {
	case Created, Running:
	default:
		return c.state.Status, nil
	}
	if c.initAlive() {
		return c.state.Status, nil
	}
	next, err := Transition(c.state.Status, OpStop, false)
	if err != nil {
		return c.state.Status, err
	}
	c.state.Status = next
	if err := c.factory.Store.Save(c.state); err != nil {
		return next, err
	}
	return next, nil
}

func (c *linuxContainer) initAlive() bool {
	pid := c.state.InitProcessPid
	if pid <= 0 {
		return false
	}
	if err := c.factory.Syscall.Kill(pid, 0); err != nil {
		return false
	}
	if c.state.InitProcessStartTime == "" {
		return true
	}
	// A different start time means the pid was reused.
	st, err := system.GetProcessStartTime(pid)
	return err == nil && st == c.state.InitProcessStartTime
}

// processSpec returns the runtime spec a process runs with. The result is
// shared, never modified.
func (c *linuxContainer) processSpec(p *Process) *specs.Spec {
	if p.Spec == nil {
		return c.config.Spec
	}
	s := *c.config.Spec
	s.Process = p.Spec
	return &s
}

func dupConsole(p *Process) (*OwnedFd, error) {
	if p.ConsoleSocket == nil {
		return nil, nil
	}
	return p.ConsoleSocket.Dup()
}

func (c *linuxContainer) Start(process *Process) error {
	c.m.Lock()
	defer c.m.Unlock()
	next, err := Transition(c.state.Status, OpCreate, false)
	if err != nil {
		return err
	}
	if err := c.start(process, next); err != nil {
		c.log().WithError(err).Debug("container start failed, cleaning up")
		c.discard()
		return err
	}
	return nil
}

// discard removes the cgroup and state directory of a container whose init
// process never got past creation.
func (c *linuxContainer) discard() {
	if err := c.cgroupManager.Destroy(); err != nil {
		c.log().Warn(err)
	}
	if err := c.factory.Store.Delete(c.id); err != nil {
		c.log().Warn(err)
	}
}

func (c *linuxContainer) start(process *Process, next Status) error {
	executor, err := GetExecutor(c.factory.Executor)
	if err != nil {
		return err
	}
	listener, err := NewNotifyListener(notifySocketPath(c.root))
	if err != nil {
		return err
	}
	console, err := dupConsole(process)
	if err != nil {
		listener.Close()
		return err
	}
	args, err := NewContainerArgs(ContainerArgs{
		Type:           InitContainer(),
		Syscall:        c.factory.Syscall,
		Spec:           c.processSpec(process),
		Rootfs:         c.config.Rootfs,
		ConsoleSocket:  console,
		NotifyListener: listener,
		PreserveFds:    process.PreserveFds,
		UserNs:         c.config.UserNs,
		Cgroup:         c.config.Cgroup,
		Detached:       process.Detached,
		Executor:       executor,
	})
	if err != nil {
		closeAll(listener.Fd(), console)
		return err
	}
	defer args.Close()

	proc, err := Start(args, c.factory.Forker, StartOpts{
		ReadyTimeout: c.factory.ReadyTimeout,
		Executor:     c.factory.Executor,
		Stdio:        Stdio{Stdin: process.Stdin, Stdout: process.Stdout, Stderr: process.Stderr},
		ApplyCgroup:  c.cgroupManager.Apply,
		BeforeProceed: func(pid int) error {
			if c.config.Hooks == nil {
				return nil
			}
			s := c.state.OCIState()
			s.Pid = pid
			return runHooks("prestart", c.config.Hooks.Prestart, s)
		},
	})
	if err != nil {
		return err
	}
	process.ops = proc

	pid := proc.Pid()
	startTime, err := system.GetProcessStartTime(pid)
	if err != nil {
		c.killAndReap(proc)
		return newSystemErrorWithCause(err, "reading init process start time")
	}
	c.state.InitProcessPid = pid
	c.state.InitProcessStartTime = startTime
	c.state.Created = time.Now().UTC()
	c.state.NotifySocket = listener.Path()
	c.state.Status = next
	if err := c.factory.Store.Save(c.state); err != nil {
		c.state.Status = Creating
		c.killAndReap(proc)
		return err
	}
	c.log().WithField("pid", pid).Info("container created")
	return nil
}

func (c *linuxContainer) killAndReap(proc ParentProcess) {
	if err := proc.Signal(unix.SIGKILL); err != nil {
		c.log().Debugf("killing init: %v", err)
	}
	proc.Wait()
}

func (c *linuxContainer) Run(process *Process) error {
	if err := c.Start(process); err != nil {
		return err
	}
	if err := c.Exec(); err != nil {
		return err
	}
	if process.Detached {
		return nil
	}
	_, err := process.Wait()
	return err
}

func (c *linuxContainer) Exec() error {
	c.m.Lock()
	defer c.m.Unlock()
	status, err := c.refreshStatus()
	if err != nil {
		return err
	}
	next, err := Transition(status, OpStart, false)
	if err != nil {
		return err
	}
	ns := NewNotifySocket(c.state.NotifySocket)
	ns.Timeout = c.factory.StartTimeout
	if err := ns.NotifyContainerStart(); err != nil {
		return err
	}
	os.Remove(c.state.NotifySocket)
	c.state.Status = next
	if err := c.factory.Store.Save(c.state); err != nil {
		return err
	}
	if c.config.Hooks != nil {
		if err := runHooks("poststart", c.config.Hooks.Poststart, c.state.OCIState()); err != nil {
			c.log().Warn(err)
		}
	}
	return nil
}

func (c *linuxContainer) Join(process *Process) error {
	c.m.Lock()
	defer c.m.Unlock()
	status, err := c.refreshStatus()
	if err != nil {
		return err
	}
	if _, err := Transition(status, OpExec, false); err != nil {
		return err
	}
	executor, err := GetExecutor(c.factory.Executor)
	if err != nil {
		return err
	}

	execID := uuid.New().String()
	reader, writer, err := NewExecNotifyPair(execID)
	if err != nil {
		return err
	}
	console, err := dupConsole(process)
	if err != nil {
		closeAll(reader, writer)
		return err
	}
	st := *c.state
	args, err := NewContainerArgs(ContainerArgs{
		Type:          TenantContainer(writer),
		Syscall:       c.factory.Syscall,
		Spec:          c.processSpec(process),
		Rootfs:        c.config.Rootfs,
		ConsoleSocket: console,
		PreserveFds:   process.PreserveFds,
		Container:     &st,
		UserNs:        c.config.UserNs,
		Cgroup:        c.config.Cgroup,
		Detached:      process.Detached,
		Executor:      executor,
		ExecID:        execID,
	})
	if err != nil {
		closeAll(reader, writer, console)
		return err
	}

	log := c.log().WithField("exec_id", execID)
	proc, err := Start(args, c.factory.Forker, StartOpts{
		ReadyTimeout: c.factory.ReadyTimeout,
		Executor:     c.factory.Executor,
		Stdio:        Stdio{Stdin: process.Stdin, Stdout: process.Stdout, Stderr: process.Stderr},
		ApplyCgroup:  c.cgroupManager.Join,
	})
	// Our copy of the writer must be gone before waiting on the reader.
	args.Close()
	if err != nil {
		reader.Close()
		return err
	}
	if err := WaitExecNotify(reader, c.factory.ExecNotifyTimeout); err != nil {
		c.killAndReap(proc)
		return newGenericError(err, SyncFailed)
	}
	process.ops = proc
	log.WithField("pid", proc.Pid()).Info("tenant process joined")
	if process.Detached {
		return nil
	}
	// Waiting happens outside the lock of the container.
	c.m.Unlock()
	_, err = process.Wait()
	c.m.Lock()
	return err
}

func (c *linuxContainer) Pause() error {
	c.m.Lock()
	defer c.m.Unlock()
	status, err := c.refreshStatus()
	if err != nil {
		return err
	}
	next, err := Transition(status, OpPause, false)
	if err != nil {
		return err
	}
	if err := c.cgroupManager.Freeze(true); err != nil {
		return newSystemErrorWithCause(err, "freezing container")
	}
	c.state.Status = next
	return c.factory.Store.Save(c.state)
}

func (c *linuxContainer) Resume() error {
	c.m.Lock()
	defer c.m.Unlock()
	return c.resume()
}

func (c *linuxContainer) resume() error {
	next, err := Transition(c.state.Status, OpResume, false)
	if err != nil {
		return err
	}
	if err := c.cgroupManager.Freeze(false); err != nil {
		return newSystemErrorWithCause(err, "thawing container")
	}
	c.state.Status = next
	return c.factory.Store.Save(c.state)
}

func (c *linuxContainer) Signal(sig os.Signal, all bool) error {
	c.m.Lock()
	defer c.m.Unlock()
	s, ok := sig.(syscall.Signal)
	if !ok {
		return errors.New("os: unsupported signal type")
	}
	status, err := c.refreshStatus()
	if err != nil {
		return err
	}
	if _, err := Transition(status, OpKill, false); err != nil {
		return err
	}
	pid := c.state.InitProcessPid
	if all {
		pid = -pid
	}
	if err := c.factory.Syscall.Kill(pid, s); err != nil {
		return newSystemErrorWithCausef(err, "signaling %d", pid)
	}
	return nil
}

func (c *linuxContainer) Destroy(force bool) error {
	c.m.Lock()
	defer c.m.Unlock()
	status, err := c.refreshStatus()
	if err != nil {
		return err
	}
	if status == Creating {
		c.discard()
		c.log().Debug("discarded container that was never created")
		return nil
	}
	if status == Paused && force {
		if err := c.resume(); err != nil {
			return err
		}
		status = Running
	}
	next, err := Transition(status, OpDelete, force)
	if err != nil {
		return err
	}
	if status == Created || status == Running {
		if err := c.killInit(); err != nil {
			return err
		}
	}
	if err := c.cgroupManager.Destroy(); err != nil {
		return newSystemErrorWithCause(err, "removing cgroup")
	}
	if err := c.factory.Store.Delete(c.id); err != nil {
		return err
	}
	c.state.Status = next
	if c.config.Hooks != nil {
		st := c.state.OCIState()
		if err := runHooks("poststop", c.config.Hooks.Poststop, st); err != nil {
			c.log().Warn(err)
		}
	}
	c.log().Info("container deleted")
	return nil
}

func (c *linuxContainer) killInit() error {
	pid := c.state.InitProcessPid
	if err := c.factory.Syscall.Kill(pid, unix.SIGKILL); err != nil && err != unix.ESRCH {
		return newSystemErrorWithCausef(err, "killing init %d", pid)
	}
	for i := 0; i < killPollAttempts; i++ {
		if !c.initAlive() {
			return nil
		}
		time.Sleep(killPollInterval)
	}
	c.log().Warn(fmt.Sprintf("init %d still alive after SIGKILL", pid))
	return nil
}
