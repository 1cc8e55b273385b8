// Package syscalls is the capability boundary between the process
// construction code and the operating system. Everything that forks, execs
// or changes process-wide kernel state goes through Syscall so that tests can
// substitute TestSyscall.
package syscalls

import (
	"os/exec"

	"golang.org/x/sys/unix"
)

// Syscall is the set of operating system primitives used while a container
// process is constructed.
type Syscall interface {
	// StartProcess starts cmd as a new process. It is the clone point of the
	// runtime: everything after it runs in two independent processes.
	StartProcess(cmd *exec.Cmd) error

	// Exec replaces the current process image. It only returns on failure.
	Exec(path string, argv []string, env []string) error

	// CloseExecFrom marks every descriptor >= minFd close-on-exec.
	CloseExecFrom(minFd int) error

	// Setns joins the namespace referenced by path. nstype is one of the
	// CLONE_NEW* flags.
	Setns(path string, nstype int) error

	SetHostname(hostname string) error

	// PivotRoot makes rootfs the root of the current mount namespace and
	// detaches the old root.
	PivotRoot(rootfs string) error

	Chdir(path string) error

	// SetUser switches every thread of the process to uid and gid with the
	// given supplementary groups.
	SetUser(uid, gid int, groups []int) error

	Kill(pid int, sig unix.Signal) error

	// ClearParentDeathSignal stops the kernel from killing the process when
	// the thread that forked it exits.
	ClearParentDeathSignal() error
}
