package configs

import (
	"path/filepath"

	"github.com/opencontainers/runtime-spec/specs-go"
)

// DefaultCgroupRoot is where the unified cgroup hierarchy is mounted.
const DefaultCgroupRoot = "/sys/fs/cgroup"

// CgroupConfig describes where a container's processes are placed and which
// limits apply to them. It is read-only once built.
type CgroupConfig struct {
	// Path is the absolute path of the container's cgroup directory.
	Path string `json:"path"`

	// Systemd selects the systemd driver instead of the cgroupfs one.
	Systemd bool `json:"systemd,omitempty"`

	Resources *specs.LinuxResources `json:"resources,omitempty"`
}

// NewCgroupConfig places the container at linux.cgroupsPath below root, or
// at /runllc/<id> when the spec leaves it empty.
func NewCgroupConfig(s *specs.Spec, root, id string) *CgroupConfig {
	if root == "" {
		root = DefaultCgroupRoot
	}
	rel := filepath.Join("/runllc", id)
	cfg := &CgroupConfig{}
	if s != nil && s.Linux != nil {
		if s.Linux.CgroupsPath != "" {
			rel = s.Linux.CgroupsPath
		}
		cfg.Resources = s.Linux.Resources
	}
	cfg.Path = filepath.Join(root, filepath.Clean("/"+rel))
	return cfg
}
