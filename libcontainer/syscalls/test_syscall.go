package syscalls

import (
	"fmt"
	"os/exec"
	"sync"

	"golang.org/x/sys/unix"
)

// Call is one recorded invocation on a TestSyscall.
type Call struct {
	Name string
	Args []interface{}
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Name, c.Args)
}

// TestSyscall records every call instead of touching the kernel. Errors
// keyed by method name are returned from the matching call.
type TestSyscall struct {
	mu    sync.Mutex
	calls []Call

	// Errors maps a method name ("Exec", "Setns", ...) to the error it
	// returns.
	Errors map[string]error

	// OnStartProcess, when set, runs in place of starting the command.
	OnStartProcess func(cmd *exec.Cmd) error
}

// NewTestSyscall returns an empty recording backend.
func NewTestSyscall() *TestSyscall {
	return &TestSyscall{Errors: map[string]error{}}
}

func (s *TestSyscall) record(name string, args ...interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Name: name, Args: args})
	return s.Errors[name]
}

// Calls returns a copy of the recorded calls in order.
func (s *TestSyscall) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns the recorded calls of one method.
func (s *TestSyscall) CallsTo(name string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (s *TestSyscall) StartProcess(cmd *exec.Cmd) error {
	if err := s.record("StartProcess", cmd.Path, cmd.Args); err != nil {
		return err
	}
	if s.OnStartProcess != nil {
		return s.OnStartProcess(cmd)
	}
	return nil
}

func (s *TestSyscall) Exec(path string, argv []string, env []string) error {
	return s.record("Exec", path, argv, env)
}

func (s *TestSyscall) CloseExecFrom(minFd int) error {
	return s.record("CloseExecFrom", minFd)
}

func (s *TestSyscall) Setns(path string, nstype int) error {
	return s.record("Setns", path, nstype)
}

func (s *TestSyscall) SetHostname(hostname string) error {
	return s.record("SetHostname", hostname)
}

func (s *TestSyscall) PivotRoot(rootfs string) error {
	return s.record("PivotRoot", rootfs)
}

func (s *TestSyscall) Chdir(path string) error {
	return s.record("Chdir", path)
}

func (s *TestSyscall) SetUser(uid, gid int, groups []int) error {
	return s.record("SetUser", uid, gid, groups)
}

func (s *TestSyscall) Kill(pid int, sig unix.Signal) error {
	return s.record("Kill", pid, sig)
}

func (s *TestSyscall) ClearParentDeathSignal() error {
	return s.record("ClearParentDeathSignal")
}
