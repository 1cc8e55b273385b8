package llcli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nabla-containers/runllc/libcontainer"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func newDeleteCmd(strFn func(string) string) cli.Command {
	return cli.Command{
		Name:  "delete",
		Usage: "delete any resources held by the container often used with detached container",
		ArgsUsage: strFn(`<container-id>

Where "<container-id>" is the name for the instance of the container.

EXAMPLE:
For example, if the container id is "ubuntu01" and {{name}} list currently shows the
status of "ubuntu01" as "stopped" the following will delete resources held for
"ubuntu01" removing "ubuntu01" from the {{name}} list of containers:

       # {{name}} delete ubuntu01`),
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "force, f",
				Usage: "Forcibly deletes the container if it is still running (uses SIGKILL)",
			},
		},
		Action: func(context *cli.Context) error {
			if err := checkArgs(context, 1, exactArgs); err != nil {
				return err
			}
			id := context.Args().First()
			force := context.Bool("force")
			container, err := getContainer(context)
			if err != nil {
				if code, ok := libcontainer.ErrorCodeOf(err); ok && code == libcontainer.ContainerNotExists {
					// leftovers of a container whose state was never saved
					path := filepath.Join(runtimeConfig(context).Root, id)
					if e := os.RemoveAll(path); e != nil {
						logrus.Warnf("remove %s: %v", path, e)
					}
					if force {
						return nil
					}
				}
				return err
			}
			status, err := container.Status()
			if err != nil {
				return err
			}
			switch status {
			case libcontainer.Stopped, libcontainer.Created:
				return destroy(container, force)
			default:
				if force {
					return destroy(container, true)
				}
				return fmt.Errorf("cannot delete container %s that is not stopped: %s", id, status)
			}
		},
	}
}
