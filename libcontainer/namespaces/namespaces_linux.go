// Package namespaces creates, joins and prepares the Linux namespaces of a
// container process.
package namespaces

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/nabla-containers/runllc/libcontainer/syscalls"
	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
)

type nsInfo struct {
	flag int
	file string
}

var nsTypes = map[specs.LinuxNamespaceType]nsInfo{
	specs.UserNamespace:    {unix.CLONE_NEWUSER, "user"},
	specs.IPCNamespace:     {unix.CLONE_NEWIPC, "ipc"},
	specs.UTSNamespace:     {unix.CLONE_NEWUTS, "uts"},
	specs.NetworkNamespace: {unix.CLONE_NEWNET, "net"},
	specs.CgroupNamespace:  {unix.CLONE_NEWCGROUP, "cgroup"},
	specs.PIDNamespace:     {unix.CLONE_NEWPID, "pid"},
	specs.MountNamespace:   {unix.CLONE_NEWNS, "mnt"},
}

// joinOrder is the order namespaces are entered in. The user namespace goes
// first so that the rest are joined with its privileges, mount goes last
// because it changes how later paths resolve.
var joinOrder = []specs.LinuxNamespaceType{
	specs.UserNamespace,
	specs.IPCNamespace,
	specs.UTSNamespace,
	specs.NetworkNamespace,
	specs.CgroupNamespace,
	specs.PIDNamespace,
	specs.MountNamespace,
}

// Supported returns the namespace types that can be created or joined.
func Supported() []specs.LinuxNamespaceType {
	return append([]specs.LinuxNamespaceType(nil), joinOrder...)
}

// joinNetns is swapped out in tests.
var joinNetns = func(path string) error {
	h, err := netns.GetFromPath(path)
	if err != nil {
		return errors.Wrapf(err, "open network namespace %s", path)
	}
	defer h.Close()
	return netns.Set(h)
}

// setupLoopback is swapped out in tests.
var setupLoopback = func() error {
	lo, err := netlink.LinkByName("lo")
	if err != nil {
		return errors.Wrap(err, "lookup loopback")
	}
	return netlink.LinkSetUp(lo)
}

// CloneFlags returns the CLONE_NEW* flags of every namespace the spec asks
// to create, that is every namespace without a path.
func CloneFlags(nss []specs.LinuxNamespace) (uintptr, error) {
	var flags uintptr
	for _, ns := range nss {
		info, ok := nsTypes[ns.Type]
		if !ok {
			return 0, fmt.Errorf("unknown namespace type %q", ns.Type)
		}
		if ns.Path == "" {
			flags |= uintptr(info.flag)
		}
	}
	return flags, nil
}

// Has reports whether the spec lists a namespace of type t.
func Has(nss []specs.LinuxNamespace, t specs.LinuxNamespaceType) bool {
	for _, ns := range nss {
		if ns.Type == t {
			return true
		}
	}
	return false
}

// Creates reports whether the spec asks for a new namespace of type t.
func Creates(nss []specs.LinuxNamespace, t specs.LinuxNamespaceType) bool {
	for _, ns := range nss {
		if ns.Type == t && ns.Path == "" {
			return true
		}
	}
	return false
}

// Join enters every namespace the spec references by path. Namespaces
// without a path have already been created by the clone flags.
func Join(sys syscalls.Syscall, nss []specs.LinuxNamespace) error {
	paths := map[specs.LinuxNamespaceType]string{}
	for _, ns := range nss {
		if _, ok := nsTypes[ns.Type]; !ok {
			return fmt.Errorf("unknown namespace type %q", ns.Type)
		}
		if ns.Path != "" {
			paths[ns.Type] = ns.Path
		}
	}
	return enter(sys, paths)
}

// EnterContainer joins the namespaces of a running container through the
// /proc entries of its init process. Only namespace types listed in the
// container's spec are joined; the rest are shared with the host.
func EnterContainer(sys syscalls.Syscall, pid int, nss []specs.LinuxNamespace) error {
	if pid <= 0 {
		return fmt.Errorf("invalid container init pid %d", pid)
	}
	paths := map[specs.LinuxNamespaceType]string{}
	for _, ns := range nss {
		info, ok := nsTypes[ns.Type]
		if !ok {
			return fmt.Errorf("unknown namespace type %q", ns.Type)
		}
		paths[ns.Type] = filepath.Join("/proc", strconv.Itoa(pid), "ns", info.file)
	}
	return enter(sys, paths)
}

func enter(sys syscalls.Syscall, paths map[specs.LinuxNamespaceType]string) error {
	for _, t := range joinOrder {
		p, ok := paths[t]
		if !ok {
			continue
		}
		logrus.WithFields(logrus.Fields{
			"type": t,
			"path": p,
		}).Debug("joining namespace")
		var err error
		if t == specs.NetworkNamespace {
			err = joinNetns(p)
		} else {
			err = sys.Setns(p, nsTypes[t].flag)
		}
		if err != nil {
			return errors.Wrapf(err, "joining %s namespace", t)
		}
	}
	return nil
}

// SetupLoopback brings the loopback device of a new network namespace up.
func SetupLoopback() error {
	return setupLoopback()
}
