package llcli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/nabla-containers/runllc/libcontainer"
	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/urfave/cli"
)

func newExecCmd(strFn func(string) string) cli.Command {
	return cli.Command{
		Name:  "exec",
		Usage: "execute new process inside the container",
		ArgsUsage: strFn(`<container-id> <command> [command options]  || -p process.json <container-id>

Where "<container-id>" is the name for the instance of the container and
"<command>" is the command to be executed in the container.
"<command>" can't be empty unless a "-p" flag provided.

EXAMPLE:
For example, if the container is configured to run the linux ps command the
following will output a list of processes running in the container:

       # {{name}} exec <container-id> ps`),
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "console-socket",
				Usage: "path to an AF_UNIX socket which will receive a file descriptor referencing the master end of the console's pseudoterminal",
			},
			cli.StringFlag{
				Name:  "cwd",
				Usage: "current working directory in the container",
			},
			cli.StringSliceFlag{
				Name:  "env, e",
				Usage: "set environment variables",
			},
			cli.BoolFlag{
				Name:  "tty, t",
				Usage: "allocate a pseudo-TTY",
			},
			cli.StringFlag{
				Name:  "user, u",
				Usage: "UID (format: <uid>[:<gid>])",
			},
			cli.StringFlag{
				Name:  "process, p",
				Usage: "path to the process.json",
			},
			cli.BoolFlag{
				Name:  "detach,d",
				Usage: "detach from the container's process",
			},
			cli.StringFlag{
				Name:  "pid-file",
				Value: "",
				Usage: "specify the file to write the process id to",
			},
			cli.IntFlag{
				Name:  "preserve-fds",
				Usage: "Pass N additional file descriptors to the container (stdio + N in total)",
			},
		},
		Action: func(context *cli.Context) error {
			if err := checkArgs(context, 1, minArgs); err != nil {
				return err
			}
			status, err := execProcess(context)
			if err != nil {
				return fmt.Errorf("exec failed: %v", err)
			}
			os.Exit(status)
			return nil
		},
		SkipArgReorder: true,
	}
}

func execProcess(context *cli.Context) (int, error) {
	container, err := getContainer(context)
	if err != nil {
		return -1, err
	}
	status, err := container.Status()
	if err != nil {
		return -1, err
	}
	if status == libcontainer.Stopped {
		return -1, fmt.Errorf("cannot exec a container that has stopped")
	}
	p, err := getProcess(context, container.Config().Spec)
	if err != nil {
		return -1, err
	}

	detach := context.Bool("detach")
	process, err := newProcess(p, context.Int("preserve-fds"), context.String("console-socket"), detach)
	if err != nil {
		return -1, err
	}
	if process.ConsoleSocket != nil {
		defer process.ConsoleSocket.Close()
	}
	process.Spec = p

	err = container.Join(process)
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return -1, err
	}
	if pidFile := context.String("pid-file"); pidFile != "" {
		if err := createPidFile(pidFile, process); err != nil {
			return -1, err
		}
	}
	if detach {
		return 0, nil
	}
	// Join already reaped the process; Wait hands back its saved state.
	return waitStatus(process)
}

// getProcess returns the process to exec: the process.json given with -p,
// or the container's process adjusted by the command line.
func getProcess(context *cli.Context, spec *specs.Spec) (*specs.Process, error) {
	if path := context.String("process"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		var p specs.Process
		if err := json.NewDecoder(f).Decode(&p); err != nil {
			return nil, err
		}
		return &p, validateProcessSpec(&p)
	}
	if spec == nil || spec.Process == nil {
		return nil, fmt.Errorf("container has no process to derive from")
	}
	// copy so the container's persisted spec is left alone
	p := *spec.Process
	p.Args = context.Args()[1:]
	if len(p.Args) == 0 {
		return nil, fmt.Errorf("exec args cannot be empty")
	}
	p.Env = append(append([]string(nil), p.Env...), context.StringSlice("env")...)
	if cwd := context.String("cwd"); cwd != "" {
		p.Cwd = cwd
	}
	if context.Bool("tty") {
		p.Terminal = true
	}
	if u := context.String("user"); u != "" {
		uid, gid, err := parseUser(u)
		if err != nil {
			return nil, err
		}
		p.User = specs.User{UID: uid, GID: gid}
	}
	return &p, validateProcessSpec(&p)
}

func parseUser(u string) (uint32, uint32, error) {
	parts := strings.SplitN(u, ":", 2)
	uid, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing %s as uid: %v", parts[0], err)
	}
	gid := uint64(0)
	if len(parts) > 1 {
		if gid, err = strconv.ParseUint(parts[1], 10, 32); err != nil {
			return 0, 0, fmt.Errorf("parsing %s as gid: %v", parts[1], err)
		}
	}
	return uint32(uid), uint32(gid), nil
}
