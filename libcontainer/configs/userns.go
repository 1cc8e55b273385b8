package configs

import (
	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/pkg/errors"
)

// UserNamespaceConfig holds what is needed to create or join a user
// namespace for the container process.
type UserNamespaceConfig struct {
	// Path of an existing user namespace to join; empty creates a new one.
	Path string `json:"path,omitempty"`

	UIDMappings []specs.LinuxIDMapping `json:"uid_mappings,omitempty"`
	GIDMappings []specs.LinuxIDMapping `json:"gid_mappings,omitempty"`
}

// NewUserNamespaceConfig returns nil when the spec does not ask for a user
// namespace.
func NewUserNamespaceConfig(s *specs.Spec) (*UserNamespaceConfig, error) {
	if s == nil || s.Linux == nil {
		return nil, nil
	}
	for _, ns := range s.Linux.Namespaces {
		if ns.Type != specs.UserNamespace {
			continue
		}
		cfg := &UserNamespaceConfig{
			Path:        ns.Path,
			UIDMappings: s.Linux.UIDMappings,
			GIDMappings: s.Linux.GIDMappings,
		}
		if cfg.Path == "" && (len(cfg.UIDMappings) == 0 || len(cfg.GIDMappings) == 0) {
			return nil, errors.New("user namespace enabled, but no uid or gid mappings found")
		}
		return cfg, nil
	}
	return nil, nil
}

// HostUID returns the host uid mapped to root inside the namespace.
func (c *UserNamespaceConfig) HostUID() (int, error) {
	return hostID(c.UIDMappings, "uid")
}

// HostGID returns the host gid mapped to root inside the namespace.
func (c *UserNamespaceConfig) HostGID() (int, error) {
	return hostID(c.GIDMappings, "gid")
}

func hostID(mappings []specs.LinuxIDMapping, kind string) (int, error) {
	if len(mappings) == 0 {
		return 0, nil
	}
	for _, m := range mappings {
		if m.ContainerID == 0 {
			return int(m.HostID), nil
		}
	}
	return -1, errors.Errorf("user namespaces enabled, but no root %s mapping found", kind)
}
