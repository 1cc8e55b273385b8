package libcontainer

import (
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nabla-containers/runllc/libcontainer/configs"
	"github.com/opencontainers/runtime-spec/specs-go"
)

// goroutineForker runs the child side of Start on a goroutine of the test
// process instead of a new process.
type goroutineForker struct {
	setup ProcessSetup

	mu    sync.Mutex
	procs []*goroutineProcess
}

func (f *goroutineForker) Fork(args *ContainerArgs, syncFd *OwnedFd, stdio Stdio) (ParentProcess, error) {
	p := &goroutineProcess{done: make(chan struct{})}
	f.mu.Lock()
	f.procs = append(f.procs, p)
	f.mu.Unlock()
	go func() {
		defer close(p.done)
		child, err := NewChildSync(syncFd)
		if err != nil {
			args.Close()
			p.err = err
			return
		}
		if _, err := child.ReadBootstrap(5 * time.Second); err != nil {
			child.Close()
			args.Close()
			p.err = err
			return
		}
		p.err = runInit(args, child, f.setup)
	}()
	return p, nil
}

func (f *goroutineForker) last() *goroutineProcess {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.procs) == 0 {
		return nil
	}
	return f.procs[len(f.procs)-1]
}

type goroutineProcess struct {
	done chan struct{}
	err  error
}

func (p *goroutineProcess) Pid() int {
	return os.Getpid()
}

func (p *goroutineProcess) Signal(os.Signal) error {
	return nil
}

func (p *goroutineProcess) Wait() (*os.ProcessState, error) {
	<-p.done
	return nil, p.err
}

// waitTimeout waits for p and fails the test if it takes too long.
func (p *goroutineProcess) waitTimeout(t *testing.T) error {
	t.Helper()
	select {
	case <-p.done:
		return p.err
	case <-time.After(10 * time.Second):
		t.Fatal("container process did not finish")
		return nil
	}
}

func noopSetup() ProcessSetup {
	return ProcessSetupFunc(func(*ContainerArgs) error { return nil })
}

func testSpec() *specs.Spec {
	return &specs.Spec{
		Version: specs.Version,
		Process: &specs.Process{
			Args: []string{"/bin/true"},
			Env:  []string{"PATH=/usr/bin:/bin"},
			Cwd:  "/",
		},
		Root: &specs.Root{Path: "rootfs"},
		Linux: &specs.Linux{
			Namespaces: []specs.LinuxNamespace{
				{Type: specs.PIDNamespace},
				{Type: specs.MountNamespace},
			},
		},
	}
}

func testCgroup() *configs.CgroupConfig {
	return &configs.CgroupConfig{Path: "/sys/fs/cgroup/runllc/test"}
}

// countFds returns the number of open descriptors of the test process.
func countFds(t *testing.T) int {
	t.Helper()
	d, err := os.Open("/proc/self/fd")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	names, err := d.Readdirnames(-1)
	if err != nil {
		t.Fatal(err)
	}
	return len(names)
}

// warmUpPoller makes the runtime open its network poller descriptors so
// they do not show up as leaks in countFds.
func warmUpPoller(t *testing.T) {
	t.Helper()
	ln, err := net.Listen("unix", filepath.Join(t.TempDir(), "warm.sock"))
	if err != nil {
		t.Fatal(err)
	}
	ln.Close()
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}
