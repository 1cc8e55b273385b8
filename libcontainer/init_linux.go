// +build linux

package libcontainer

import (
	"fmt"
	"os"
	"strconv"

	"github.com/nabla-containers/runllc/libcontainer/configs"
	"github.com/nabla-containers/runllc/libcontainer/syscalls"
	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/sirupsen/logrus"
)

const envLogLevel = "_LIBCONTAINER_LOGLEVEL"

// initConfig is sent by the creator over the init pipe. Descriptors travel
// separately as inherited files.
type initConfig struct {
	Type         string                       `json:"type"`
	Spec         *specs.Spec                  `json:"spec"`
	Rootfs       string                       `json:"rootfs"`
	PreserveFds  int                          `json:"preserve_fds"`
	Container    *State                       `json:"container,omitempty"`
	UserNs       *configs.UserNamespaceConfig `json:"userns,omitempty"`
	Cgroup       *configs.CgroupConfig        `json:"cgroup"`
	Detached     bool                         `json:"detached"`
	Executor     string                       `json:"executor"`
	ExecID       string                       `json:"exec_id,omitempty"`
	NotifySocket string                       `json:"notify_socket,omitempty"`
}

func newInitConfig(args *ContainerArgs, opts StartOpts) *initConfig {
	cfg := &initConfig{
		Type:        args.Type.String(),
		Spec:        args.Spec,
		Rootfs:      args.Rootfs,
		PreserveFds: args.PreserveFds,
		Container:   args.Container,
		UserNs:      args.UserNs,
		Cgroup:      args.Cgroup,
		Detached:    args.Detached,
		Executor:    opts.Executor,
		ExecID:      args.ExecID,
	}
	if cfg.Executor == "" {
		cfg.Executor = DefaultExecutorName
	}
	if args.NotifyListener != nil {
		cfg.NotifySocket = args.NotifyListener.Path()
	}
	return cfg
}

// fdFromEnv adopts the inherited descriptor named by env. A missing variable
// returns nil.
func fdFromEnv(env, name string) (*OwnedFd, error) {
	v := os.Getenv(env)
	if v == "" {
		return nil, nil
	}
	fd, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("unable to convert %s=%s to int: %s", env, v, err)
	}
	return NewOwnedFd(fd, name), nil
}

// startInitialization runs in the re-executed init process. It only returns
// on failure.
func startInitialization(sys syscalls.Syscall, setup ProcessSetup) error {
	if lvl, err := logrus.ParseLevel(os.Getenv(envLogLevel)); err == nil {
		logrus.SetLevel(lvl)
	}
	pipe, err := fdFromEnv(envInitPipe, "init-c")
	if err != nil {
		return err
	}
	if pipe == nil {
		return newGenericError(fmt.Errorf("%s is not set", envInitPipe), ConfigInvalid)
	}
	sync, err := NewChildSync(pipe)
	if err != nil {
		return err
	}
	cfg, err := sync.ReadBootstrap(0)
	if err != nil {
		sync.Close()
		return err
	}

	args, err := argsFromConfig(cfg, sys)
	// Nothing below needs the runtime's environment.
	os.Clearenv()
	if err != nil {
		sync.ReportError(err)
		sync.Close()
		return err
	}
	return runInit(args, sync, setup)
}

func argsFromConfig(cfg *initConfig, sys syscalls.Syscall) (*ContainerArgs, error) {
	executor, err := GetExecutor(cfg.Executor)
	if err != nil {
		return nil, err
	}
	console, err := fdFromEnv(envConsole, "console-socket")
	if err != nil {
		return nil, err
	}
	execNotify, err := fdFromEnv(envExecNotify, "exec-notify-w-"+cfg.ExecID)
	if err != nil {
		closeAll(console)
		return nil, err
	}
	listenFd, err := fdFromEnv(envNotifySock, "notify-listener")
	if err != nil {
		closeAll(console, execNotify)
		return nil, err
	}

	a := ContainerArgs{
		Syscall:       sys,
		Spec:          cfg.Spec,
		Rootfs:        cfg.Rootfs,
		ConsoleSocket: console,
		PreserveFds:   cfg.PreserveFds,
		Container:     cfg.Container,
		UserNs:        cfg.UserNs,
		Cgroup:        cfg.Cgroup,
		Detached:      cfg.Detached,
		Executor:      executor,
		ExecID:        cfg.ExecID,
	}
	if listenFd != nil {
		a.NotifyListener = NotifyListenerFromFd(listenFd, cfg.NotifySocket)
	}
	switch cfg.Type {
	case "init":
		a.Type = InitContainer()
	case "tenant":
		a.Type = TenantContainer(execNotify)
	}
	args, err := NewContainerArgs(a)
	if err != nil {
		closeAll(console, execNotify, listenFd)
		return nil, err
	}
	return args, nil
}

// runInit is the child side of Start. It owns args and sync and only returns
// when the executor could not replace the process.
func runInit(args *ContainerArgs, sync *ChildSync, setup ProcessSetup) (err error) {
	ready := false
	defer func() {
		if err != nil && !ready {
			if rerr := sync.ReportError(err); rerr != nil {
				logrus.Debugf("reporting init error: %v", rerr)
			}
		}
		sync.Close()
		args.Close()
	}()

	if err := setup.Setup(args); err != nil {
		return err
	}
	if args.Spec.Process.Terminal {
		if err := setupConsole(args.ConsoleSocket); err != nil {
			return err
		}
	}
	if err := args.Syscall.CloseExecFrom(stdioFdCount + args.PreserveFds); err != nil {
		return newSystemErrorWithCause(err, "marking descriptors close-on-exec")
	}

	if err := sync.SignalReady(); err != nil {
		return err
	}
	ready = true
	if err := sync.WaitProceed(0); err != nil {
		return err
	}
	sync.Close()
	// The creator may exit from here on, before the container is started.
	if err := args.Syscall.ClearParentDeathSignal(); err != nil {
		return newSystemErrorWithCause(err, "clearing parent death signal")
	}

	if args.Type.IsTenant() {
		if err := notifyExec(args.Type.ExecNotify()); err != nil {
			return err
		}
	} else {
		if err := args.NotifyListener.WaitForContainerStart(0); err != nil {
			return err
		}
	}

	args.Close()
	if err := args.Executor.Exec(args); err != nil {
		return newGenericError(err, ExecFailed)
	}
	return nil
}
