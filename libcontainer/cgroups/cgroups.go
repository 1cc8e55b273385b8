// Package cgroups places container processes into a cgroup and applies the
// resource values handed over by the runtime spec.
package cgroups

import (
	"github.com/nabla-containers/runllc/libcontainer/configs"
	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/pkg/errors"
)

// Manager is the cgroup driver used by the runtime.
type Manager interface {
	// Apply creates the cgroup, writes its limits and moves pid into it.
	Apply(pid int) error

	// Join moves pid into an existing cgroup without touching its limits.
	Join(pid int) error

	// Set writes resource values into the cgroup.
	Set(r *specs.LinuxResources) error

	// Freeze stops (true) or thaws (false) every process of the cgroup.
	Freeze(frozen bool) error

	// Destroy removes the cgroup directory.
	Destroy() error

	Path() string
}

// NewManager returns the manager for cfg.
func NewManager(cfg *configs.CgroupConfig) (Manager, error) {
	if cfg == nil {
		return nil, errors.New("cgroup config is nil")
	}
	if cfg.Systemd {
		return nil, errors.New("systemd cgroup driver is not supported")
	}
	return &fsManager{path: cfg.Path, resources: cfg.Resources}, nil
}
