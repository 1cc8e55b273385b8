package libcontainer

import (
	"os"

	"github.com/nabla-containers/runllc/libcontainer/configs"
)

// Container is a libcontainer container object.
//
// Each container is thread-safe within the same process. Since a container can
// be destroyed by a separate process, any function may return that the container
// was not found.
type Container interface {
	// ID returns the container's unique ID
	ID() string

	// Status returns the current status of the container.
	Status() (Status, error)

	// State returns the current container's state information.
	State() (*State, error)

	// Config returns the current config of the container.
	Config() configs.Config

	// Start constructs the container's init process. On success the
	// container is Created and its init waits for Exec.
	//
	// errors:
	// InvalidStateTransition - the container was already started
	// SyncFailed - the init process did not complete its setup
	// SystemError - System error
	Start(process *Process) error

	// Run starts the init process and lets it run its workload. Unless the
	// process is detached, Run waits for it to exit.
	Run(process *Process) error

	// Exec releases a Created container's init process into its workload.
	//
	// errors:
	// InvalidStateTransition - the container is not Created
	// SystemError - System error
	Exec() error

	// Join starts a tenant process inside the running container.
	//
	// errors:
	// InvalidStateTransition - the container cannot take new processes
	// SyncFailed - the process did not complete its setup
	// SystemError - System error
	Join(process *Process) error

	// Pause freezes every process of the container.
	Pause() error

	// Resume thaws a paused container.
	Resume() error

	// Signal sends sig to the init process, or to its whole process group
	// when all is set.
	Signal(sig os.Signal, all bool) error

	// Destroy kills the container's processes when force allows it and
	// removes every resource the container holds. A container whose init
	// process was never created only has its cgroup and state removed.
	//
	// errors:
	// InvalidStateTransition - the container runs and force is not set
	// SystemError - System error
	Destroy(force bool) error
}
