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

package llcli

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/nabla-containers/runllc/libcontainer"
	"github.com/opencontainers/runtime-spec/specs-go"
)

type runner struct {
	shouldDestroy bool
	detach        bool
	preserveFds   int
	pidFile       string
	consoleSocket string
	container     libcontainer.Container
	create        bool
}

// run starts the container's init process and, unless the runner creates
// or detaches, waits for it and returns its exit status.
func (r *runner) run(config *specs.Process) (int, error) {
	process, err := newProcess(config, r.preserveFds, r.consoleSocket, r.detach || r.create)
	if err != nil {
		r.destroy()
		return -1, err
	}
	if process.ConsoleSocket != nil {
		defer process.ConsoleSocket.Close()
	}

	switch {
	case r.create:
		err = r.container.Start(process)
	case r.detach:
		err = r.container.Run(process)
	default:
		if err = r.container.Start(process); err == nil {
			err = r.container.Exec()
			if err != nil {
				r.terminate(process)
			}
		}
	}
	if err != nil {
		r.destroy()
		return -1, err
	}
	if r.pidFile != "" {
		if err := createPidFile(r.pidFile, process); err != nil {
			r.terminate(process)
			r.destroy()
			return -1, err
		}
	}
	if r.detach || r.create {
		return 0, nil
	}
	status, err := waitStatus(process)
	if err != nil {
		r.terminate(process)
	}
	r.destroy()
	return status, err
}

func (r *runner) destroy() {
	if r.shouldDestroy {
		destroy(r.container, true)
	}
}

func (r *runner) terminate(p *libcontainer.Process) {
	p.Signal(syscall.SIGKILL)
	p.Wait()
}

// newProcess returns a libcontainer Process running the spec's process
// with stdio from the current process.
func newProcess(p *specs.Process, preserveFds int, consoleSocket string, detach bool) (*libcontainer.Process, error) {
	lp := &libcontainer.Process{
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		PreserveFds: preserveFds,
		Detached:    detach,
	}
	if p.Terminal {
		if consoleSocket == "" {
			return nil, fmt.Errorf("a terminal needs --console-socket")
		}
		fd, err := openConsoleSocket(consoleSocket)
		if err != nil {
			return nil, err
		}
		lp.ConsoleSocket = fd
	} else if consoleSocket != "" && !detach {
		return nil, fmt.Errorf("--console-socket is only valid with a terminal")
	}
	return lp, nil
}

// waitStatus waits for p and converts its exit into a shell style status.
func waitStatus(p *libcontainer.Process) (int, error) {
	ps, err := p.Wait()
	if ps == nil {
		return -1, err
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal()), nil
	}
	return ps.ExitCode(), nil
}

// createPidFile creates a file with the processes pid inside it atomically
// it creates a temp file with the paths filename + '.' infront of it
// then renames the file
func createPidFile(path string, process *libcontainer.Process) error {
	pid, err := process.Pid()
	if err != nil {
		return err
	}
	var (
		tmpDir  = filepath.Dir(path)
		tmpName = filepath.Join(tmpDir, fmt.Sprintf(".%s", filepath.Base(path)))
	)
	f, err := os.OpenFile(tmpName, os.O_RDWR|os.O_CREATE|os.O_EXCL|os.O_SYNC, 0666)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(f, "%d", pid)
	f.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
