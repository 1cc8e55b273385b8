package libcontainer

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/nabla-containers/runllc/libcontainer/syscalls"
	"github.com/pkg/errors"
)

func TestDefaultExecutorResolvesPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "app")
	if err := ioutil.WriteFile(bin, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	sys := syscalls.NewTestSyscall()
	spec := testSpec()
	spec.Process.Args = []string{"app", "-v"}
	spec.Process.Env = []string{"PATH=/nonexistent:" + dir}
	args := &ContainerArgs{Syscall: sys, Spec: spec}

	if err := DefaultExecutor().Exec(args); err != nil {
		t.Fatal(err)
	}
	calls := sys.CallsTo("Exec")
	if len(calls) != 1 {
		t.Fatalf("exec calls %v", calls)
	}
	if calls[0].Args[0] != bin {
		t.Fatalf("exec path %v, want %s", calls[0].Args[0], bin)
	}
}

func TestDefaultExecutorErrors(t *testing.T) {
	sys := syscalls.NewTestSyscall()
	spec := testSpec()
	spec.Process.Args = []string{"does-not-exist"}
	spec.Process.Env = []string{"PATH=" + t.TempDir()}
	args := &ContainerArgs{Syscall: sys, Spec: spec}

	var ee *ExecError
	if err := DefaultExecutor().Exec(args); !errors.As(err, &ee) {
		t.Fatalf("missing binary: %v, want ExecError", err)
	}
	if len(sys.CallsTo("Exec")) != 0 {
		t.Fatal("exec attempted for a missing binary")
	}

	spec.Process.Args = []string{"/bin/sh"}
	sys.Errors["Exec"] = os.ErrPermission
	err := DefaultExecutor().Exec(args)
	if !errors.As(err, &ee) || !errors.Is(err, os.ErrPermission) {
		t.Fatalf("failed exec: %v", err)
	}

	spec.Process.Args = nil
	if err := DefaultExecutor().Exec(args); !errors.As(err, &ee) {
		t.Fatalf("empty argv: %v", err)
	}
}

func TestExecutorRegistry(t *testing.T) {
	var called int
	RegisterExecutor("registry-test", ExecutorFunc(func(*ContainerArgs) error {
		called++
		return nil
	}))
	e, err := GetExecutor("registry-test")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Exec(nil); err != nil {
		t.Fatal(err)
	}
	if called != 1 {
		t.Fatalf("called %d times", called)
	}
	if _, err := GetExecutor("missing"); err == nil {
		t.Fatal("expected error for unknown executor")
	}
	if _, err := GetExecutor(DefaultExecutorName); err != nil {
		t.Fatal(err)
	}
}
