package libcontainer

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nabla-containers/runllc/libcontainer/cgroups"
	"github.com/nabla-containers/runllc/libcontainer/configs"
	"github.com/nabla-containers/runllc/libcontainer/syscalls"
	"github.com/opencontainers/runtime-spec/specs-go"
	"golang.org/x/sys/unix"
)

type fakeCgroup struct {
	mu        sync.Mutex
	path      string
	applied   []int
	joined    []int
	frozen    bool
	destroyed bool
}

func (f *fakeCgroup) Apply(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, pid)
	return nil
}

func (f *fakeCgroup) Join(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, pid)
	return nil
}

func (f *fakeCgroup) Set(*specs.LinuxResources) error { return nil }

func (f *fakeCgroup) Freeze(frozen bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frozen = frozen
	return nil
}

func (f *fakeCgroup) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = true
	return nil
}

func (f *fakeCgroup) Path() string { return f.path }

type testEnv struct {
	root    string
	sys     *syscalls.TestSyscall
	forker  *goroutineForker
	cgroup  *fakeCgroup
	factory Factory
	execs   chan string
}

const testExecutorName = "container-test"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		root:   t.TempDir(),
		sys:    syscalls.NewTestSyscall(),
		forker: &goroutineForker{setup: noopSetup()},
		cgroup: &fakeCgroup{path: "/sys/fs/cgroup/runllc/test"},
		execs:  make(chan string, 8),
	}
	RegisterExecutor(testExecutorName, ExecutorFunc(func(a *ContainerArgs) error {
		env.execs <- a.Type.String()
		return nil
	}))
	f, err := New(env.root,
		WithSyscall(env.sys),
		WithForker(env.forker),
		WithExecutor(testExecutorName),
		WithCgroupManager(func(*configs.CgroupConfig) (cgroups.Manager, error) {
			return env.cgroup, nil
		}),
		Timeouts(5*time.Second, 5*time.Second),
	)
	if err != nil {
		t.Fatal(err)
	}
	env.factory = f
	return env
}

func (env *testEnv) config(t *testing.T, id string) *configs.Config {
	t.Helper()
	cfg, err := configs.ParseSpec(testSpec(), env.root, "", id)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func (env *testEnv) waitExec(t *testing.T) string {
	t.Helper()
	select {
	case kind := <-env.execs:
		return kind
	case <-time.After(10 * time.Second):
		t.Fatal("executor was not invoked")
		return ""
	}
}

func TestContainerLifecycle(t *testing.T) {
	env := newTestEnv(t)
	c, err := env.factory.Create("c1", env.config(t, "c1"))
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Exec(); err == nil {
		t.Fatal("start of a container that is still creating succeeded")
	} else if code, _ := ErrorCodeOf(err); code != InvalidStateTransition {
		t.Fatalf("got %v, want InvalidStateTransition", err)
	}

	p := &Process{Detached: true}
	if err := c.Start(p); err != nil {
		t.Fatal(err)
	}
	if s, _ := c.Status(); s != Created {
		t.Fatalf("status %s after create, want created", s)
	}
	if len(env.cgroup.applied) != 1 || env.cgroup.applied[0] != os.Getpid() {
		t.Fatalf("cgroup applied to %v", env.cgroup.applied)
	}

	loaded, err := env.factory.Load("c1")
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := loaded.Status(); s != Created {
		t.Fatalf("loaded status %s, want created", s)
	}

	if err := loaded.Exec(); err != nil {
		t.Fatal(err)
	}
	if kind := env.waitExec(t); kind != "init" {
		t.Fatalf("executor ran for %s", kind)
	}
	if err := env.forker.last().waitTimeout(t); err != nil {
		t.Fatal(err)
	}
	if s, _ := loaded.Status(); s != Running {
		t.Fatalf("status %s after start, want running", s)
	}
	if err := loaded.Exec(); err == nil {
		t.Fatal("second start succeeded")
	}

	if err := loaded.Pause(); err != nil {
		t.Fatal(err)
	}
	if !env.cgroup.frozen {
		t.Fatal("pause did not freeze the cgroup")
	}
	if err := loaded.Pause(); err == nil {
		t.Fatal("pausing a paused container succeeded")
	}
	if err := loaded.Resume(); err != nil {
		t.Fatal(err)
	}
	if env.cgroup.frozen {
		t.Fatal("resume did not thaw the cgroup")
	}

	if err := loaded.Signal(unix.SIGTERM, false); err != nil {
		t.Fatal(err)
	}
	kills := env.sys.CallsTo("Kill")
	last := kills[len(kills)-1]
	if last.Args[0] != os.Getpid() || last.Args[1] != unix.SIGTERM {
		t.Fatalf("unexpected kill %v", last)
	}

	before := len(env.sys.CallsTo("Kill"))
	if err := loaded.Destroy(false); err == nil {
		t.Fatal("delete of a running container without force succeeded")
	} else if code, _ := ErrorCodeOf(err); code != InvalidStateTransition {
		t.Fatalf("got %v, want InvalidStateTransition", err)
	}
	for _, k := range env.sys.CallsTo("Kill")[before:] {
		if k.Args[1] != unix.Signal(0) {
			t.Fatalf("refused delete sent %v", k)
		}
	}
	if _, err := os.Stat(filepath.Join(env.root, "c1", stateFilename)); err != nil {
		t.Fatal("state removed by a refused delete")
	}
}

func TestContainerJoin(t *testing.T) {
	env := newTestEnv(t)
	c, err := env.factory.Create("c2", env.config(t, "c2"))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Start(&Process{Detached: true}); err != nil {
		t.Fatal(err)
	}
	if err := c.Exec(); err != nil {
		t.Fatal(err)
	}
	env.waitExec(t)

	spec := *testSpec().Process
	spec.Args = []string{"/bin/ls"}
	if err := c.Join(&Process{Spec: &spec, Detached: true}); err != nil {
		t.Fatal(err)
	}
	if kind := env.waitExec(t); kind != "tenant" {
		t.Fatalf("executor ran for %s", kind)
	}
	if len(env.cgroup.joined) != 1 {
		t.Fatalf("tenant joined cgroup %v times", len(env.cgroup.joined))
	}
}

func TestCreateFailureLeavesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.forker.setup = ProcessSetupFunc(func(*ContainerArgs) error {
		return os.ErrPermission
	})
	c, err := env.factory.Create("c3", env.config(t, "c3"))
	if err != nil {
		t.Fatal(err)
	}
	err = c.Start(&Process{Detached: true})
	if code, _ := ErrorCodeOf(err); code != SyncFailed {
		t.Fatalf("got %v, want SyncFailed", err)
	}
	if _, err := os.Stat(filepath.Join(env.root, "c3")); !os.IsNotExist(err) {
		t.Fatalf("container directory left behind: %v", err)
	}
	if !env.cgroup.destroyed {
		t.Fatal("cgroup left behind")
	}
	if _, err := env.factory.Load("c3"); err == nil {
		t.Fatal("failed container can be loaded")
	}
	if err := c.Destroy(true); err != nil {
		t.Fatalf("destroying a container whose start failed: %v", err)
	}
}

func TestDestroyBeforeStart(t *testing.T) {
	env := newTestEnv(t)
	c, err := env.factory.Create("c6", env.config(t, "c6"))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Destroy(false); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(env.root, "c6")); !os.IsNotExist(err) {
		t.Fatalf("container directory left behind: %v", err)
	}
	if !env.cgroup.destroyed {
		t.Fatal("cgroup left behind")
	}
	if len(env.sys.CallsTo("Kill")) != 0 {
		t.Fatal("signalled a process that was never started")
	}
}

func TestCreateRejectsDuplicatesAndBadIDs(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.factory.Create("c4", env.config(t, "c4")); err != nil {
		t.Fatal(err)
	}
	_, err := env.factory.Create("c4", env.config(t, "c4"))
	if code, _ := ErrorCodeOf(err); code != IdInUse {
		t.Fatalf("got %v, want IdInUse", err)
	}
	_, err = env.factory.Create("../x", env.config(t, "x"))
	if code, _ := ErrorCodeOf(err); code != InvalidIdFormat {
		t.Fatalf("got %v, want InvalidIdFormat", err)
	}
}

func TestDeleteStoppedContainer(t *testing.T) {
	env := newTestEnv(t)
	c, err := env.factory.Create("c5", env.config(t, "c5"))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Start(&Process{Detached: true}); err != nil {
		t.Fatal(err)
	}
	if err := c.Exec(); err != nil {
		t.Fatal(err)
	}
	env.waitExec(t)

	// The init process is gone from now on.
	env.sys.Errors["Kill"] = unix.ESRCH
	if s, _ := c.Status(); s != Stopped {
		t.Fatalf("status %s, want stopped", s)
	}
	if err := c.Exec(); err == nil {
		t.Fatal("start of a stopped container succeeded")
	}
	if err := c.Destroy(false); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(env.root, "c5")); !os.IsNotExist(err) {
		t.Fatalf("container directory left behind: %v", err)
	}
}
