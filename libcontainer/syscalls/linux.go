// +build linux

package syscalls

import (
	"os/exec"

	"github.com/opencontainers/runc/libcontainer/utils"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type linuxSyscall struct{}

// NewLinuxSyscall returns the Syscall backed by the running kernel.
func NewLinuxSyscall() Syscall {
	return &linuxSyscall{}
}

func (s *linuxSyscall) StartProcess(cmd *exec.Cmd) error {
	return cmd.Start()
}

func (s *linuxSyscall) Exec(path string, argv []string, env []string) error {
	return unix.Exec(path, argv, env)
}

func (s *linuxSyscall) CloseExecFrom(minFd int) error {
	return utils.CloseExecFrom(minFd)
}

func (s *linuxSyscall) Setns(path string, nstype int) error {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return errors.Wrapf(err, "open namespace %s", path)
	}
	defer unix.Close(fd)
	if err := unix.Setns(fd, nstype); err != nil {
		return errors.Wrapf(err, "setns %s", path)
	}
	return nil
}

func (s *linuxSyscall) SetHostname(hostname string) error {
	return unix.Sethostname([]byte(hostname))
}

func (s *linuxSyscall) PivotRoot(rootfs string) error {
	// Nothing done below may propagate back to the host.
	if err := unix.Mount("", "/", "", unix.MS_SLAVE|unix.MS_REC, ""); err != nil {
		return errors.Wrap(err, "make / rslave")
	}
	// pivot_root requires the new root to be a mount point.
	if err := unix.Mount(rootfs, rootfs, "bind", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return errors.Wrapf(err, "bind mount %s", rootfs)
	}

	oldroot, err := unix.Open("/", unix.O_DIRECTORY|unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(oldroot)

	newroot, err := unix.Open(rootfs, unix.O_DIRECTORY|unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(newroot)

	if err := unix.Fchdir(newroot); err != nil {
		return err
	}
	if err := unix.PivotRoot(".", "."); err != nil {
		return errors.Wrapf(err, "pivot_root %s", rootfs)
	}
	if err := unix.Fchdir(oldroot); err != nil {
		return err
	}
	if err := unix.Mount("", ".", "", unix.MS_SLAVE|unix.MS_REC, ""); err != nil {
		return err
	}
	if err := unix.Unmount(".", unix.MNT_DETACH); err != nil {
		return errors.Wrap(err, "unmount old root")
	}
	return unix.Chdir("/")
}

func (s *linuxSyscall) Chdir(path string) error {
	return unix.Chdir(path)
}

func (s *linuxSyscall) SetUser(uid, gid int, groups []int) error {
	// setgroups is denied in user namespaces without a gid mapping
	// privilege; dropping inherited groups is then best effort.
	if err := unix.Setgroups(groups); err != nil && (err != unix.EPERM || len(groups) > 0) {
		return errors.Wrap(err, "setgroups")
	}
	if err := unix.Setgid(gid); err != nil {
		return errors.Wrapf(err, "setgid %d", gid)
	}
	if err := unix.Setuid(uid); err != nil {
		return errors.Wrapf(err, "setuid %d", uid)
	}
	return nil
}

func (s *linuxSyscall) Kill(pid int, sig unix.Signal) error {
	return unix.Kill(pid, sig)
}

func (s *linuxSyscall) ClearParentDeathSignal() error {
	return unix.Prctl(unix.PR_SET_PDEATHSIG, 0, 0, 0, 0)
}
