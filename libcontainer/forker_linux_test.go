package libcontainer

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nabla-containers/runllc/libcontainer/syscalls"
	"golang.org/x/sys/unix"
)

// occupyFd makes sure fd is open in the test process, filling it with
// /dev/null if needed.
func occupyFd(t *testing.T, fd int) {
	t.Helper()
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err == nil {
		return
	}
	for {
		f, err := os.Open(os.DevNull)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { f.Close() })
		if int(f.Fd()) >= fd {
			return
		}
	}
}

type fileID struct {
	dev, ino uint64
}

func fdID(t *testing.T, fd int) fileID {
	t.Helper()
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		t.Fatalf("fstat %d: %v", fd, err)
	}
	return fileID{dev: uint64(st.Dev), ino: st.Ino}
}

func envFds(env []string) map[string]int {
	out := map[string]int{}
	for _, kv := range env {
		i := strings.IndexByte(kv, '=')
		if i < 0 || !strings.HasPrefix(kv, "_LIBCONTAINER_") {
			continue
		}
		if n, err := strconv.Atoi(kv[i+1:]); err == nil {
			out[kv[:i]] = n
		}
	}
	return out
}

func TestReexecForkerDescriptorLayout(t *testing.T) {
	occupyFd(t, stdioFdCount)
	occupyFd(t, stdioFdCount+1)

	consoleR, consoleW := newPipe(t)
	defer consoleR.Close()
	reader, writer, err := NewExecNotifyPair("layout")
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	parent, childEnd, err := NewSyncPair("layout")
	if err != nil {
		t.Fatal(err)
	}
	defer parent.Close()

	want := []fileID{
		fdID(t, stdioFdCount),
		fdID(t, stdioFdCount+1),
		fdID(t, childEnd.Fd()),
		fdID(t, consoleW.Fd()),
		fdID(t, writer.Fd()),
	}

	var (
		got []fileID
		env map[string]int
	)
	sys := syscalls.NewTestSyscall()
	sys.OnStartProcess = func(cmd *exec.Cmd) error {
		for _, f := range cmd.ExtraFiles {
			got = append(got, fdID(t, int(f.Fd())))
		}
		env = envFds(cmd.Env)
		p, err := os.FindProcess(os.Getpid())
		if err != nil {
			return err
		}
		cmd.Process = p
		return nil
	}

	args, err := NewContainerArgs(ContainerArgs{
		Type:          TenantContainer(writer),
		Syscall:       sys,
		Spec:          testSpec(),
		Rootfs:        "/run/rootfs",
		ConsoleSocket: consoleW,
		PreserveFds:   2,
		Container:     &State{BaseState: BaseState{ID: "c1", InitProcessPid: 1}, Status: Running},
		Cgroup:        testCgroup(),
		Executor:      ExecutorFunc(func(*ContainerArgs) error { return nil }),
		ExecID:        "layout",
	})
	if err != nil {
		t.Fatal(err)
	}

	forker := NewReexecForker("/proc/self/exe", []string{"runllc", "init"})
	if _, err := forker.Fork(args, childEnd, Stdio{}); err != nil {
		t.Fatal(err)
	}

	if len(got) != len(want) {
		t.Fatalf("%d extra files, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("extra file %d (fd %d) is not the expected descriptor", i, stdioFdCount+i)
		}
	}
	wantEnv := map[string]int{
		envInitPipe:   5,
		envConsole:    6,
		envExecNotify: 7,
	}
	if len(env) != len(wantEnv) {
		t.Errorf("descriptor env %v, want %v", env, wantEnv)
	}
	for k, v := range wantEnv {
		if env[k] != v {
			t.Errorf("%s=%d, want %d", k, env[k], v)
		}
	}
	if childEnd.Fd() >= 0 || writer.Fd() >= 0 || consoleW.Fd() >= 0 {
		t.Error("fork left child handles open in the creator")
	}
}

func TestRunInitKeepsPreservedFds(t *testing.T) {
	reader, writer, err := NewExecNotifyPair("preserve")
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	sys := syscalls.NewTestSyscall()
	args, err := NewContainerArgs(ContainerArgs{
		Type:        TenantContainer(writer),
		Syscall:     sys,
		Spec:        testSpec(),
		Rootfs:      "/run/rootfs",
		PreserveFds: 2,
		Container:   &State{BaseState: BaseState{ID: "c1", InitProcessPid: 1}, Status: Running},
		Cgroup:      testCgroup(),
		Executor:    ExecutorFunc(func(*ContainerArgs) error { return nil }),
		ExecID:      "preserve",
	})
	if err != nil {
		t.Fatal(err)
	}

	forker := &goroutineForker{setup: noopSetup()}
	_, err = Start(args, forker, StartOpts{ReadyTimeout: 5 * time.Second})
	args.Close()
	if err != nil {
		t.Fatal(err)
	}
	if err := WaitExecNotify(reader, 5*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := forker.last().waitTimeout(t); err != nil {
		t.Fatal(err)
	}
	calls := sys.CallsTo("CloseExecFrom")
	if len(calls) != 1 || calls[0].Args[0] != stdioFdCount+2 {
		t.Fatalf("CloseExecFrom calls %v, want one from fd %d", calls, stdioFdCount+2)
	}
}
