package llcli

import (
	"fmt"

	"github.com/nabla-containers/runllc/libcontainer"
	"github.com/urfave/cli"
)

func newStartCmd() cli.Command {
	return cli.Command{
		Name:  "start",
		Usage: "executes the user defined process in a created container",
		ArgsUsage: `<container-id>

Where "<container-id>" is your name for the instance of the container that you
are starting.`,
		Action: func(context *cli.Context) error {
			if err := checkArgs(context, 1, exactArgs); err != nil {
				return err
			}
			container, err := getContainer(context)
			if err != nil {
				return err
			}
			status, err := container.Status()
			if err != nil {
				return err
			}
			switch status {
			case libcontainer.Created:
				return container.Exec()
			case libcontainer.Stopped:
				return fmt.Errorf("cannot start a container that has stopped")
			case libcontainer.Running:
				return fmt.Errorf("cannot start an already running container")
			default:
				return fmt.Errorf("cannot start a container in the %s state", status)
			}
		},
	}
}
