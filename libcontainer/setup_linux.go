// +build linux

package libcontainer

import (
	"github.com/nabla-containers/runllc/libcontainer/namespaces"
	"github.com/nabla-containers/runllc/libcontainer/syscalls"
	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/pkg/errors"
)

// ProcessSetup prepares the new process before it reports ready: namespace
// entry, rootfs, user and working directory.
type ProcessSetup interface {
	Setup(args *ContainerArgs) error
}

// ProcessSetupFunc adapts a function to the ProcessSetup interface.
type ProcessSetupFunc func(args *ContainerArgs) error

func (f ProcessSetupFunc) Setup(args *ContainerArgs) error {
	return f(args)
}

type linuxSetup struct{}

// NewLinuxSetup returns the setup used by real container processes.
func NewLinuxSetup() ProcessSetup {
	return linuxSetup{}
}

func (linuxSetup) Setup(args *ContainerArgs) error {
	var nss []specs.LinuxNamespace
	if args.Spec.Linux != nil {
		nss = args.Spec.Linux.Namespaces
	}
	sys := args.Syscall
	cwd := args.Spec.Process.Cwd
	if cwd == "" {
		cwd = "/"
	}

	if args.Type.IsTenant() {
		if err := namespaces.EnterContainer(sys, args.Container.InitProcessPid, nss); err != nil {
			return newSystemErrorWithCause(err, "entering container namespaces")
		}
		return finalize(sys, args.Spec.Process.User, cwd)
	}

	if !namespaces.Creates(nss, specs.MountNamespace) {
		return newGenericError(errors.Errorf("rootfs %s requires a private mount namespace", args.Rootfs), ConfigInvalid)
	}
	if err := namespaces.Join(sys, nss); err != nil {
		return newSystemErrorWithCause(err, "joining namespaces")
	}
	if namespaces.Creates(nss, specs.NetworkNamespace) {
		if err := namespaces.SetupLoopback(); err != nil {
			return newSystemErrorWithCause(err, "setting up loopback")
		}
	}
	if h := args.Spec.Hostname; h != "" {
		if !namespaces.Has(nss, specs.UTSNamespace) {
			return newGenericError(errors.New("unable to set hostname without a private UTS namespace"), ConfigInvalid)
		}
		if err := sys.SetHostname(h); err != nil {
			return newSystemErrorWithCause(err, "setting hostname")
		}
	}
	if err := sys.PivotRoot(args.Rootfs); err != nil {
		return newSystemErrorWithCausef(err, "pivot root to %s", args.Rootfs)
	}
	return finalize(sys, args.Spec.Process.User, cwd)
}

// finalize drops to the process user and enters its working directory.
func finalize(sys syscalls.Syscall, user specs.User, cwd string) error {
	groups := make([]int, 0, len(user.AdditionalGids))
	for _, g := range user.AdditionalGids {
		groups = append(groups, int(g))
	}
	if err := sys.SetUser(int(user.UID), int(user.GID), groups); err != nil {
		return newSystemErrorWithCausef(err, "switching to user %d:%d", user.UID, user.GID)
	}
	if err := sys.Chdir(cwd); err != nil {
		return newSystemErrorWithCausef(err, "chdir to %s", cwd)
	}
	return nil
}
