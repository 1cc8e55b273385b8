// Copyright 2014 Docker, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llcli

import (
	"os"

	"github.com/urfave/cli"
)

func newRunCmd(strFn func(string) string) cli.Command {
	flags := append([]cli.Flag{
		cli.BoolFlag{
			Name:  "detach, d",
			Usage: "detach from the container's process",
		},
	}, containerFlags...)
	return cli.Command{
		Name:  "run",
		Usage: "create and run a container",
		ArgsUsage: `<container-id>

Where "<container-id>" is your name for the instance of the container that you
are starting. The name you provide for the container instance must be unique on
your host.`,
		Description: strFn(`The run command creates an instance of a container for a bundle and starts it
right away. Unless detached, {{name}} waits for the container's process and
exits with its status.`),
		Flags: flags,
		Action: func(context *cli.Context) error {
			if err := checkArgs(context, 1, exactArgs); err != nil {
				return err
			}
			spec, err := setupSpec(context)
			if err != nil {
				return err
			}
			status, err := startContainer(context, spec, false)
			if err != nil {
				return err
			}
			os.Exit(status)
			return nil
		},
	}
}
