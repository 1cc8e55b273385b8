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
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nabla-containers/runllc/config"
	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// version will be populated by the Makefile, read from
// VERSION file of the source code.
var version = ""

// gitCommit will be the hash that the binary was built from
// and will be populated by the Makefile
var gitCommit = ""

const (
	specConfig  = "config.json"
	metadataCfg = "config"
	usage       = `Open Container Initiative runtime

{{name}} is a command line client for running applications packaged according to
the Open Container Initiative (OCI) format.

Containers are configured using bundles. A bundle for a container is a directory
that includes a specification file named "` + specConfig + `" and a root filesystem.
The root filesystem contains the contents of the container.

To start a new instance of a container:

    # {{name}} run [ -b bundle ] <container-id>

Where "<container-id>" is your name for the instance of the container that you
are starting. The name you provide for the container instance must be unique on
your host. Providing the bundle directory using "-b" is optional. The default
value for "bundle" is the current directory.`
)

// NewApp builds the CLI of the runtime called runtimeName.
func NewApp(runtimeName string) *cli.App {
	app := cli.NewApp()
	app.Name = runtimeName
	app.Metadata = map[string]interface{}{}

	strFn := createSubst(map[string]string{
		"name": app.Name,
	})

	app.Usage = strFn(usage)

	var v []string
	if version != "" {
		v = append(v, version)
	}
	if gitCommit != "" {
		v = append(v, fmt.Sprintf("commit: %s", gitCommit))
	}
	v = append(v, fmt.Sprintf("spec: %s", specs.Version))
	app.Version = strings.Join(v, "\n")

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug output for logging",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "set the log file path where internal debug information is written",
		},
		cli.StringFlag{
			Name:  "log-format",
			Value: "text",
			Usage: "set the format used by logs ('text' (default), or 'json')",
		},
		cli.StringFlag{
			Name:  "config",
			Value: config.DefaultPath,
			Usage: "runtime configuration file, missing file means defaults",
		},
		cli.StringFlag{
			Name:  "root",
			Usage: "root directory for storage of container state (this should be located in tmpfs)",
		},
		cli.DurationFlag{
			Name:  "ready-timeout",
			Usage: "how long to wait for a container process to finish its setup (0 waits forever)",
		},
	}
	app.Commands = []cli.Command{
		newCreateCmd(strFn),
		newDeleteCmd(strFn),
		newExecCmd(strFn),
		newFeaturesCmd(),
		newInitCmd(),
		newKillCmd(strFn),
		newPauseCmd(),
		newResumeCmd(),
		newRunCmd(strFn),
		newStartCmd(),
		newStateCmd(),
	}
	app.Before = func(context *cli.Context) error {
		cfg, err := config.Load(context.GlobalString("config"))
		if err != nil {
			return err
		}
		if root := context.GlobalString("root"); root != "" {
			cfg.Root = root
		}
		if context.GlobalIsSet("ready-timeout") {
			cfg.ReadyTimeout = config.Duration(context.GlobalDuration("ready-timeout"))
		}
		context.App.Metadata[metadataCfg] = cfg

		if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			logrus.SetLevel(lvl)
		}
		if context.GlobalBool("debug") {
			logrus.SetLevel(logrus.DebugLevel)
		}
		if path := context.GlobalString("log"); path != "" {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC, 0666)
			if err != nil {
				fmt.Fprintln(os.Stdout, err.Error())
				return err
			}
			logrus.SetOutput(f)
		}
		switch context.GlobalString("log-format") {
		case "text":
			// retain logrus's default.
		case "json":
			logrus.SetFormatter(new(logrus.JSONFormatter))
		default:
			return fmt.Errorf("unknown log-format %q", context.GlobalString("log-format"))
		}
		return nil
	}
	return app
}

// Run runs the CLI of an OCI container runtime named runtimeName.
func Run(runtimeName string) {
	app := NewApp(runtimeName)
	// If the command returns an error, cli takes upon itself to print
	// the error on cli.ErrWriter and exit.
	// Use our own writer here to ensure the log gets sent to the right location.
	cli.ErrWriter = &FatalWriter{cli.ErrWriter}
	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

type FatalWriter struct {
	cliErrWriter io.Writer
}

func (f *FatalWriter) Write(p []byte) (n int, err error) {
	logrus.Error(string(p))
	return f.cliErrWriter.Write(p)
}

func runtimeConfig(context *cli.Context) *config.Config {
	if cfg, ok := context.App.Metadata[metadataCfg].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

func createSubst(m map[string]string) func(string) string {
	return func(s string) string {
		for k, v := range m {
			s = strings.Replace(s, "{{"+k+"}}", v, -1)
		}
		return s
	}
}
