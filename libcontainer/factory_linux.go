// Copyright 2014 Docker, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// +build linux

package libcontainer

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/nabla-containers/runllc/libcontainer/cgroups"
	"github.com/nabla-containers/runllc/libcontainer/configs"
	"github.com/nabla-containers/runllc/libcontainer/syscalls"
)

var (
	idRegex  = regexp.MustCompile(`^[\w+-\.]+$`)
	maxIdLen = 1024
)

// New returns a linux based container factory based in the root directory and
// configures the factory with the provided option funcs.
func New(root string, options ...func(*LinuxFactory) error) (Factory, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0700); err != nil {
			return nil, newGenericError(err, SystemError)
		}
	}
	l := &LinuxFactory{
		Root:             root,
		InitPath:         "/proc/self/exe",
		InitArgs:         []string{os.Args[0], "init"},
		Syscall:          syscalls.NewLinuxSyscall(),
		Setup:            NewLinuxSetup(),
		Executor:         DefaultExecutorName,
		NewCgroupManager: cgroups.NewManager,
	}
	for _, opt := range options {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	if l.Store == nil {
		l.Store = NewFileStateStore(root)
	}
	if l.Forker == nil {
		l.Forker = NewReexecForker(l.InitPath, l.InitArgs)
	}
	return l, nil
}

// InitArgs sets the command the container process is re-executed with.
func InitArgs(args ...string) func(*LinuxFactory) error {
	return func(l *LinuxFactory) error {
		if len(args) == 0 {
			return fmt.Errorf("init args must not be empty")
		}
		l.InitArgs = args
		return nil
	}
}

// WithSyscall replaces the operating system backend.
func WithSyscall(s syscalls.Syscall) func(*LinuxFactory) error {
	return func(l *LinuxFactory) error {
		l.Syscall = s
		return nil
	}
}

func WithSetup(s ProcessSetup) func(*LinuxFactory) error {
	return func(l *LinuxFactory) error {
		l.Setup = s
		return nil
	}
}

func WithForker(f Forker) func(*LinuxFactory) error {
	return func(l *LinuxFactory) error {
		l.Forker = f
		return nil
	}
}

func WithStateStore(s StateStore) func(*LinuxFactory) error {
	return func(l *LinuxFactory) error {
		l.Store = s
		return nil
	}
}

func WithCgroupManager(fn func(*configs.CgroupConfig) (cgroups.Manager, error)) func(*LinuxFactory) error {
	return func(l *LinuxFactory) error {
		l.NewCgroupManager = fn
		return nil
	}
}

// WithExecutor selects the registered executor container processes run.
func WithExecutor(name string) func(*LinuxFactory) error {
	return func(l *LinuxFactory) error {
		if _, err := GetExecutor(name); err != nil {
			return err
		}
		l.Executor = name
		return nil
	}
}

// Timeouts bounds the wait for a process's setup and for a tenant's exec
// notification. Zero waits forever.
func Timeouts(ready, execNotify time.Duration) func(*LinuxFactory) error {
	return func(l *LinuxFactory) error {
		l.ReadyTimeout = ready
		l.ExecNotifyTimeout = execNotify
		return nil
	}
}

// StartTimeout bounds how long Exec tries to reach a created container's
// init process.
func StartTimeout(d time.Duration) func(*LinuxFactory) error {
	return func(l *LinuxFactory) error {
		l.StartTimeout = d
		return nil
	}
}

// LinuxFactory implements the default factory interface for linux based systems.
type LinuxFactory struct {
	// Root directory for the factory to store state.
	Root string

	// InitPath and InitArgs are how the runtime re-executes itself as a
	// container process.
	InitPath string
	InitArgs []string

	Syscall syscalls.Syscall
	Setup   ProcessSetup
	Forker  Forker
	Store   StateStore

	// Executor is the registry name of the executor container processes run.
	Executor string

	ReadyTimeout      time.Duration
	ExecNotifyTimeout time.Duration
	StartTimeout      time.Duration

	NewCgroupManager func(*configs.CgroupConfig) (cgroups.Manager, error)
}

func (l *LinuxFactory) Create(id string, config *configs.Config) (Container, error) {
	if l.Root == "" {
		return nil, newGenericError(fmt.Errorf("invalid root"), ConfigInvalid)
	}
	if err := l.validateID(id); err != nil {
		return nil, err
	}
	if config == nil || config.Spec == nil || config.Cgroup == nil {
		return nil, newGenericError(fmt.Errorf("incomplete container config"), ConfigInvalid)
	}
	uid, err := config.HostUID()
	if err != nil {
		return nil, newGenericError(err, ConfigInvalid)
	}
	gid, err := config.HostGID()
	if err != nil {
		return nil, newGenericError(err, ConfigInvalid)
	}
	mgr, err := l.NewCgroupManager(config.Cgroup)
	if err != nil {
		return nil, newGenericError(err, ConfigInvalid)
	}

	containerRoot := filepath.Join(l.Root, id)
	if _, err := os.Stat(containerRoot); err == nil {
		return nil, newGenericError(fmt.Errorf("container with id exists: %v", id), IdInUse)
	} else if !os.IsNotExist(err) {
		return nil, newGenericError(err, SystemError)
	}
	if err := os.MkdirAll(containerRoot, 0711); err != nil {
		return nil, newGenericError(err, SystemError)
	}
	if uid != 0 || gid != 0 {
		if err := os.Chown(containerRoot, uid, gid); err != nil {
			os.RemoveAll(containerRoot)
			return nil, newGenericError(err, SystemError)
		}
	}

	c := &linuxContainer{
		id:            id,
		root:          containerRoot,
		config:        config,
		factory:       l,
		cgroupManager: mgr,
		state: &State{
			BaseState: BaseState{
				ID:     id,
				Config: *config,
			},
			Status:     Creating,
			CgroupPath: mgr.Path(),
		},
	}
	return c, nil
}

func (l *LinuxFactory) Load(id string) (Container, error) {
	if l.Root == "" {
		return nil, newGenericError(fmt.Errorf("invalid root"), ConfigInvalid)
	}
	if err := l.validateID(id); err != nil {
		return nil, err
	}
	state, err := l.Store.Load(id)
	if err != nil {
		return nil, err
	}
	mgr, err := l.NewCgroupManager(state.Config.Cgroup)
	if err != nil {
		return nil, newGenericError(err, ConfigInvalid)
	}
	c := &linuxContainer{
		id:            id,
		root:          filepath.Join(l.Root, id),
		config:        &state.Config,
		factory:       l,
		cgroupManager: mgr,
		state:         state,
	}
	return c, nil
}

// StartInitialization runs the container process side after the re-exec.
// It returns only on failure; the caller must exit non-zero.
func (l *LinuxFactory) StartInitialization() error {
	return startInitialization(l.Syscall, l.Setup)
}

func (l *LinuxFactory) Type() string {
	return "runllc"
}

func (l *LinuxFactory) validateID(id string) error {
	if !idRegex.MatchString(id) || len(id) > maxIdLen {
		return newGenericError(fmt.Errorf("invalid id format: %v", id), InvalidIdFormat)
	}
	return nil
}
