package libcontainer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	spec "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// runHooks runs hooks in order with the container's state on stdin and
// stops at the first failure.
func runHooks(kind string, hooks []spec.Hook, state spec.State) error {
	for i, h := range hooks {
		logrus.WithFields(logrus.Fields{
			"kind":  kind,
			"index": i,
			"path":  h.Path,
		}).Debug("running hook")
		if err := runHook(h, state); err != nil {
			return newSystemErrorWithCausef(err, "running %s hook #%d", kind, i)
		}
	}
	return nil
}

func runHook(hook spec.Hook, state spec.State) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return err
	}

	var stdout, stderr bytes.Buffer
	cmd := &exec.Cmd{
		Path:   hook.Path,
		Args:   hook.Args,
		Env:    hook.Env,
		Stdin:  bytes.NewReader(stateJSON),
		Stdout: &stdout,
		Stderr: &stderr,
	}
	if len(cmd.Args) == 0 {
		cmd.Args = []string{hook.Path}
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var timeout <-chan time.Time
	if hook.Timeout != nil {
		timeout = time.After(time.Duration(*hook.Timeout) * time.Second)
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s: stdout: %s, stderr: %s", err, stdout.String(), stderr.String())
		}
		return nil
	case <-timeout:
		if err := unix.Kill(cmd.Process.Pid, unix.SIGKILL); err != nil {
			return err
		}
		<-done
		return fmt.Errorf("hook timeout")
	}
}
