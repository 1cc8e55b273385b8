package libcontainer

import (
	"time"

	"github.com/nabla-containers/runllc/libcontainer/configs"
	"github.com/opencontainers/runc/libcontainer/utils"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// BaseState represents the platform agnostic pieces relating to a
// running container's state
type BaseState struct {
	// ID is the container ID.
	ID string `json:"id"`

	// InitProcessPid is the init process id in the parent namespace.
	InitProcessPid int `json:"init_process_pid"`

	// InitProcessStartTime is the init process start time in clock ticks
	// since boot, as read from /proc/<pid>/stat.
	InitProcessStartTime string `json:"init_process_start"`

	// Created is the unix timestamp for the creation time of the container in UTC
	Created time.Time `json:"created"`

	// Config is the container's configuration.
	Config configs.Config `json:"config"`
}

// State represents a running container's state
type State struct {
	BaseState

	Status Status `json:"status"`

	// NotifySocket is the path of the socket the init process waits on.
	NotifySocket string `json:"notify_socket"`

	// CgroupPath is the cgroup the container's processes are placed in.
	CgroupPath string `json:"cgroup_path"`
}

// OCIState returns the state in the format of the runtime spec, as fed to
// hooks and printed by the state command.
func (s *State) OCIState() specs.State {
	pid := 0
	if s.Status != Stopped && s.Status != Deleted {
		pid = s.InitProcessPid
	}
	var annotations map[string]string
	if s.Config.Spec != nil {
		annotations = s.Config.Spec.Annotations
	}
	return specs.State{
		Version:     specs.Version,
		ID:          s.ID,
		Status:      s.Status.String(),
		Pid:         pid,
		Bundle:      utils.SearchLabels(s.Config.Labels, "bundle"),
		Annotations: annotations,
	}
}
