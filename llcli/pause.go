package llcli

import (
	"github.com/urfave/cli"
)

func newPauseCmd() cli.Command {
	return cli.Command{
		Name:  "pause",
		Usage: "pause suspends all processes inside the container",
		ArgsUsage: `<container-id>

Where "<container-id>" is the name for the instance of the container to be
paused. `,
		Description: `The pause command suspends all processes in the instance of the container.`,
		Action: func(context *cli.Context) error {
			if err := checkArgs(context, 1, exactArgs); err != nil {
				return err
			}
			container, err := getContainer(context)
			if err != nil {
				return err
			}
			return container.Pause()
		},
	}
}

func newResumeCmd() cli.Command {
	return cli.Command{
		Name:  "resume",
		Usage: "resumes all processes that have been previously paused",
		ArgsUsage: `<container-id>

Where "<container-id>" is the name for the instance of the container to be
resumed.`,
		Description: `The resume command resumes all processes in the instance of the container.`,
		Action: func(context *cli.Context) error {
			if err := checkArgs(context, 1, exactArgs); err != nil {
				return err
			}
			container, err := getContainer(context)
			if err != nil {
				return err
			}
			return container.Resume()
		},
	}
}
