package llcli

import (
	"os"

	"github.com/nabla-containers/runllc/libcontainer"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func newInitCmd() cli.Command {
	return cli.Command{
		Name:   "init",
		Usage:  `initialize the namespaces and launch the process (do not call it outside of the runtime)`,
		Hidden: true,
		Action: func(context *cli.Context) error {
			factory, _ := libcontainer.New("")
			if err := factory.StartInitialization(); err != nil {
				// the error was already reported to the parent over the
				// sync socket, or the parent is gone.
				logrus.Debug(err)
				os.Exit(1)
			}
			panic("libcontainer: container init failed to exec")
		},
	}
}
