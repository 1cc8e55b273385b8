package configs

import (
	spec "github.com/opencontainers/runtime-spec/specs-go"
)

// Config is the part of a container's configuration that is persisted with
// its state so that later commands can act on it.
type Config struct {
	// Spec is the validated runtime spec the container was created from.
	Spec *spec.Spec `json:"spec"`

	// Rootfs is the absolute path of the container's root filesystem.
	Rootfs string `json:"rootfs"`

	// Bundle is the absolute path of the bundle directory.
	Bundle string `json:"bundle"`

	// Version is the version of opencontainer specification that is supported.
	Version string `json:"version"`

	// Labels are user defined metadata that is stored in the config and populated on the state
	Labels []string `json:"labels"`

	// Hooks configures callbacks for container lifecycle events.
	Hooks *spec.Hooks `json:"hooks,omitempty"`

	// Cgroup is the cgroup placement and limits of the container.
	Cgroup *CgroupConfig `json:"cgroup"`

	// UserNs is nil when the container shares the host user namespace.
	UserNs *UserNamespaceConfig `json:"userns,omitempty"`
}

// HostUID returns the UID that owns the container's state on the host.
func (c Config) HostUID() (int, error) {
	if c.UserNs == nil {
		return 0, nil
	}
	return c.UserNs.HostUID()
}

// HostGID returns the GID that owns the container's state on the host.
func (c Config) HostGID() (int, error) {
	if c.UserNs == nil {
		return 0, nil
	}
	return c.UserNs.HostGID()
}
