package cgroups

import (
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	cgroupProcs  = "cgroup.procs"
	cgroupFreeze = "cgroup.freeze"

	dirPerm  = 0755
	filePerm = 0644
)

// fsManager drives a cgroup v2 directory through the filesystem.
type fsManager struct {
	path      string
	resources *specs.LinuxResources
}

var _ Manager = &fsManager{}

func (m *fsManager) Path() string {
	return m.path
}

func (m *fsManager) Apply(pid int) error {
	if err := os.MkdirAll(m.path, dirPerm); err != nil {
		return errors.Wrapf(err, "creating cgroup %s", m.path)
	}
	if err := m.Set(m.resources); err != nil {
		return err
	}
	return m.Join(pid)
}

func (m *fsManager) Join(pid int) error {
	logrus.WithFields(logrus.Fields{
		"cgroup": m.path,
		"pid":    pid,
	}).Debug("adding process to cgroup")
	return m.writeUint(cgroupProcs, uint64(pid))
}

func (m *fsManager) Set(r *specs.LinuxResources) error {
	if r == nil {
		return nil
	}
	if r.Memory != nil && r.Memory.Limit != nil {
		if err := m.writeLimit("memory.max", *r.Memory.Limit); err != nil {
			return err
		}
	}
	if r.Pids != nil {
		if err := m.writeLimit("pids.max", r.Pids.Limit); err != nil {
			return err
		}
	}
	if r.CPU != nil {
		if r.CPU.Quota != nil {
			quota := "max"
			if *r.CPU.Quota > 0 {
				quota = strconv.FormatInt(*r.CPU.Quota, 10)
			}
			period := uint64(100000)
			if r.CPU.Period != nil && *r.CPU.Period != 0 {
				period = *r.CPU.Period
			}
			if err := m.writeFile("cpu.max", []byte(quota+" "+strconv.FormatUint(period, 10))); err != nil {
				return err
			}
		}
		if r.CPU.Cpus != "" {
			if err := m.writeFile("cpuset.cpus", []byte(r.CPU.Cpus)); err != nil {
				return err
			}
		}
		if r.CPU.Mems != "" {
			if err := m.writeFile("cpuset.mems", []byte(r.CPU.Mems)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *fsManager) Freeze(frozen bool) error {
	v := "0"
	if frozen {
		v = "1"
	}
	return m.writeFile(cgroupFreeze, []byte(v))
}

func (m *fsManager) Destroy() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing cgroup %s", m.path)
	}
	return nil
}

// writeLimit writes a limit where non-positive values mean unlimited.
func (m *fsManager) writeLimit(name string, v int64) error {
	if v <= 0 {
		return m.writeFile(name, []byte("max"))
	}
	return m.writeFile(name, []byte(strconv.FormatInt(v, 10)))
}

func (m *fsManager) writeUint(name string, v uint64) error {
	return m.writeFile(name, []byte(strconv.FormatUint(v, 10)))
}

// writeFile retries on EINTR since cgroup files are slow devices.
func (m *fsManager) writeFile(name string, content []byte) error {
	p := filepath.Join(m.path, name)
	err := os.WriteFile(p, content, filePerm)
	for err != nil && errors.Is(err, syscall.EINTR) {
		err = os.WriteFile(p, content, filePerm)
	}
	if err != nil {
		return errors.Wrapf(err, "writing %s", p)
	}
	return nil
}
