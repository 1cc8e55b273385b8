package libcontainer

import (
	"fmt"
	"path/filepath"

	"github.com/nabla-containers/runllc/libcontainer/configs"
	"github.com/nabla-containers/runllc/libcontainer/syscalls"
	"github.com/opencontainers/runtime-spec/specs-go"
)

type containerKind int

const (
	initKind containerKind = iota + 1
	tenantKind
)

// ContainerType selects which kind of container process is constructed. The
// zero value is neither kind and is rejected by NewContainerArgs.
type ContainerType struct {
	kind       containerKind
	execNotify *OwnedFd
}

// InitContainer is the type of a container's first process.
func InitContainer() ContainerType {
	return ContainerType{kind: initKind}
}

// TenantContainer is the type of a process joining a running container.
// execNotify is written once the new process has finished its handshake.
func TenantContainer(execNotify *OwnedFd) ContainerType {
	return ContainerType{kind: tenantKind, execNotify: execNotify}
}

func (t ContainerType) IsInit() bool {
	return t.kind == initKind && t.execNotify == nil
}

func (t ContainerType) IsTenant() bool {
	return t.kind == tenantKind && t.execNotify != nil
}

// ExecNotify returns the exec notification handle of a tenant, nil for init.
func (t ContainerType) ExecNotify() *OwnedFd {
	return t.execNotify
}

func (t ContainerType) String() string {
	switch {
	case t.IsInit():
		return "init"
	case t.IsTenant():
		return "tenant"
	default:
		return "invalid"
	}
}

func (t ContainerType) validate() error {
	if t.IsInit() == t.IsTenant() {
		return fmt.Errorf("container type must be either init or tenant with an exec notify handle")
	}
	if t.IsTenant() && t.execNotify.Fd() < 0 {
		return fmt.Errorf("exec notify handle is closed")
	}
	return nil
}

// ContainerArgs describes one container process to construct. The spec and
// cgroup configuration are shared read-only between clones; every owned
// descriptor belongs to exactly one ContainerArgs.
type ContainerArgs struct {
	Type    ContainerType
	Syscall syscalls.Syscall

	// Spec must not be modified once the args are built.
	Spec   *specs.Spec
	Rootfs string

	// ConsoleSocket receives the pty master when Process.Terminal is set.
	ConsoleSocket *OwnedFd

	// NotifyListener is where the container's init waits for "start".
	// Tenants leave it nil.
	NotifyListener *NotifyListener

	// PreserveFds is the number of descriptors after stdio that survive
	// into the workload.
	PreserveFds int

	// Container is the state of the running container a tenant joins.
	Container *State

	UserNs *configs.UserNamespaceConfig
	Cgroup *configs.CgroupConfig

	Detached bool
	Executor Executor

	// ExecID names a tenant process.
	ExecID string
}

// NewContainerArgs validates a and returns it. Ownership of every handle in
// a passes to the result; on error the caller still owns them.
func NewContainerArgs(a ContainerArgs) (*ContainerArgs, error) {
	if err := a.validate(); err != nil {
		return nil, newGenericError(err, ConfigInvalid)
	}
	args := a
	return &args, nil
}

func (a *ContainerArgs) validate() error {
	if err := a.Type.validate(); err != nil {
		return err
	}
	switch {
	case a.Syscall == nil:
		return fmt.Errorf("syscall interface is required")
	case a.Spec == nil:
		return fmt.Errorf("runtime spec is required")
	case a.Spec.Process == nil:
		return fmt.Errorf("runtime spec has no process")
	case a.Executor == nil:
		return fmt.Errorf("executor is required")
	case a.Cgroup == nil:
		return fmt.Errorf("cgroup config is required")
	case !filepath.IsAbs(a.Rootfs):
		return fmt.Errorf("rootfs %q is not an absolute path", a.Rootfs)
	case a.PreserveFds < 0:
		return fmt.Errorf("preserved fd count %d is negative", a.PreserveFds)
	}
	if a.Type.IsInit() && a.NotifyListener == nil {
		return fmt.Errorf("init process requires a notify listener")
	}
	if a.Type.IsTenant() && a.Container == nil {
		return fmt.Errorf("tenant process requires the state of a running container")
	}
	if a.Spec.Process.Terminal && a.ConsoleSocket == nil {
		return fmt.Errorf("terminal requested but no console socket given")
	}
	return nil
}

// Clone returns a copy of a whose descriptors are duplicated. The runtime
// spec and cgroup configuration are shared with a.
func (a *ContainerArgs) Clone() (*ContainerArgs, error) {
	c := *a
	var made []*OwnedFd
	fail := func(err error) (*ContainerArgs, error) {
		closeAll(made...)
		return nil, err
	}

	if n := a.Type.ExecNotify(); n != nil {
		d, err := n.Dup()
		if err != nil {
			return fail(err)
		}
		made = append(made, d)
		c.Type = TenantContainer(d)
	}
	if a.ConsoleSocket != nil {
		d, err := a.ConsoleSocket.Dup()
		if err != nil {
			return fail(err)
		}
		made = append(made, d)
		c.ConsoleSocket = d
	}
	if a.NotifyListener != nil {
		l, err := a.NotifyListener.Dup()
		if err != nil {
			return fail(err)
		}
		made = append(made, l.fd)
		c.NotifyListener = l
	}
	if a.Container != nil {
		st := *a.Container
		c.Container = &st
	}
	return &c, nil
}

// Close releases every descriptor owned by a.
func (a *ContainerArgs) Close() error {
	var first error
	for _, fd := range a.ownedFds() {
		if err := fd.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (a *ContainerArgs) ownedFds() []*OwnedFd {
	var fds []*OwnedFd
	if n := a.Type.ExecNotify(); n != nil {
		fds = append(fds, n)
	}
	if a.ConsoleSocket != nil {
		fds = append(fds, a.ConsoleSocket)
	}
	if a.NotifyListener != nil {
		fds = append(fds, a.NotifyListener.fd)
	}
	return fds
}
