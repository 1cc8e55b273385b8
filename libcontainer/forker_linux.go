// +build linux

package libcontainer

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/nabla-containers/runllc/libcontainer/namespaces"
	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const stdioFdCount = 3

// Environment through which the re-executed init finds its descriptors.
const (
	envInitPipe   = "_LIBCONTAINER_INITPIPE"
	envNotifySock = "_LIBCONTAINER_NOTIFYSOCK"
	envConsole    = "_LIBCONTAINER_CONSOLE"
	envExecNotify = "_LIBCONTAINER_EXECNOTIFY"
)

// reexecForker starts the runtime binary again with the init argument.
type reexecForker struct {
	initPath string
	initArgs []string
}

// NewReexecForker returns a Forker running initArgs from initPath in the new
// process, normally /proc/self/exe init.
func NewReexecForker(initPath string, initArgs []string) Forker {
	return &reexecForker{initPath: initPath, initArgs: initArgs}
}

func (f *reexecForker) Fork(args *ContainerArgs, sync *OwnedFd, stdio Stdio) (ParentProcess, error) {
	var files []*os.File
	defer func() {
		for _, file := range files {
			file.Close()
		}
		closeAll(sync)
		args.Close()
	}()

	cmd, err := f.commandTemplate(args, stdio)
	if err != nil {
		return nil, err
	}

	for i := 0; i < args.PreserveFds; i++ {
		nfd, err := unix.FcntlInt(uintptr(stdioFdCount+i), unix.F_DUPFD_CLOEXEC, 0)
		if err != nil {
			return nil, newSystemErrorWithCausef(err, "preserving fd %d", stdioFdCount+i)
		}
		file := os.NewFile(uintptr(nfd), fmt.Sprintf("preserved-%d", stdioFdCount+i))
		files = append(files, file)
		cmd.ExtraFiles = append(cmd.ExtraFiles, file)
	}

	pass := func(fd *OwnedFd, env string) error {
		if fd == nil {
			return nil
		}
		file, err := fd.File()
		if err != nil {
			return err
		}
		files = append(files, file)
		cmd.ExtraFiles = append(cmd.ExtraFiles, file)
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%d", env, stdioFdCount+len(cmd.ExtraFiles)-1))
		return nil
	}
	if err := pass(sync, envInitPipe); err != nil {
		return nil, err
	}
	if args.Type.IsInit() {
		if err := pass(args.NotifyListener.Fd(), envNotifySock); err != nil {
			return nil, err
		}
	}
	if err := pass(args.ConsoleSocket, envConsole); err != nil {
		return nil, err
	}
	if err := pass(args.Type.ExecNotify(), envExecNotify); err != nil {
		return nil, err
	}

	if err := args.Syscall.StartProcess(cmd); err != nil {
		return nil, newSystemErrorWithCause(err, "starting init process command")
	}
	if cmd.Process == nil {
		return nil, errors.New("Cmd.Process is nil after starting")
	}
	return &initProcess{cmd: cmd}, nil
}

func (f *reexecForker) commandTemplate(args *ContainerArgs, stdio Stdio) (*exec.Cmd, error) {
	cmd := &exec.Cmd{
		Path:   f.initPath,
		Args:   f.initArgs,
		Stdin:  stdio.Stdin,
		Stdout: stdio.Stdout,
		Stderr: stdio.Stderr,
		Env:    []string{fmt.Sprintf("%s=%s", envLogLevel, logrus.GetLevel())},
	}
	attr := &syscall.SysProcAttr{Pdeathsig: syscall.SIGKILL}
	if args.Spec.Process.Terminal {
		attr.Setsid = true
	} else {
		attr.Setpgid = true
	}
	if args.Type.IsInit() && args.Spec.Linux != nil {
		flags, err := namespaces.CloneFlags(args.Spec.Linux.Namespaces)
		if err != nil {
			return nil, newGenericError(err, ConfigInvalid)
		}
		attr.Cloneflags = flags
		if namespaces.Creates(args.Spec.Linux.Namespaces, specs.UserNamespace) && args.UserNs != nil {
			attr.UidMappings = idMap(args.UserNs.UIDMappings)
			attr.GidMappings = idMap(args.UserNs.GIDMappings)
		}
	}
	cmd.SysProcAttr = attr
	return cmd, nil
}

func idMap(m []specs.LinuxIDMapping) []syscall.SysProcIDMap {
	out := make([]syscall.SysProcIDMap, 0, len(m))
	for _, e := range m {
		out = append(out, syscall.SysProcIDMap{
			ContainerID: int(e.ContainerID),
			HostID:      int(e.HostID),
			Size:        int(e.Size),
		})
	}
	return out
}

// initProcess is a container process started by reexecForker.
type initProcess struct {
	cmd *exec.Cmd
}

func (p *initProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *initProcess) Signal(sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return errors.New("os: unsupported signal type")
	}
	return unix.Kill(p.Pid(), s)
}

func (p *initProcess) Wait() (*os.ProcessState, error) {
	err := p.cmd.Wait()
	return p.cmd.ProcessState, err
}
