package llcli

import (
	"github.com/urfave/cli"
)

func newKillCmd(strFn func(string) string) cli.Command {
	return cli.Command{
		Name:  "kill",
		Usage: "kill sends the specified signal (default: SIGTERM) to the container's init process",
		ArgsUsage: strFn(`<container-id> [signal]

Where "<container-id>" is the name for the instance of the container and
"[signal]" is the signal to be sent to the init process.

EXAMPLE:
For example, if the container id is "ubuntu01" the following will send a "KILL"
signal to the init process of the "ubuntu01" container:

       # {{name}} kill ubuntu01 KILL`),
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "all, a",
				Usage: "send the specified signal to all processes inside the container",
			},
		},
		Action: func(context *cli.Context) error {
			if err := checkArgs(context, 1, minArgs); err != nil {
				return err
			}
			if err := checkArgs(context, 2, maxArgs); err != nil {
				return err
			}
			container, err := getContainer(context)
			if err != nil {
				return err
			}
			sigstr := context.Args().Get(1)
			if sigstr == "" {
				sigstr = "SIGTERM"
			}
			signal, err := parseSignal(sigstr)
			if err != nil {
				return err
			}
			return container.Signal(signal, context.Bool("all"))
		},
	}
}
