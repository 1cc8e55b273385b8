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
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/nabla-containers/runllc/libcontainer"
	"github.com/nabla-containers/runllc/libcontainer/configs"
	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var (
	errEmptyID = errors.New("container id cannot be empty")
)

// fatal prints the error's details if it is a libcontainer specific error type
// then exits the program with an exit status of 1.
func fatal(err error) {
	// make sure the error is written to the logger
	logrus.Error(err)
	if lerr, ok := err.(libcontainer.Error); ok && logrus.GetLevel() >= logrus.DebugLevel {
		lerr.Detail(os.Stderr)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// getContainer returns the specified container instance by loading it from state
// with the default factory.
func getContainer(context *cli.Context) (libcontainer.Container, error) {
	id := context.Args().First()
	if id == "" {
		return nil, errEmptyID
	}
	factory, err := loadFactory(context)
	if err != nil {
		return nil, err
	}
	return factory.Load(id)
}

// loadFactory returns the configured factory instance for execing containers.
func loadFactory(context *cli.Context) (libcontainer.Factory, error) {
	cfg := runtimeConfig(context)
	abs, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}
	return libcontainer.New(abs,
		libcontainer.InitArgs(os.Args[0], "init"),
		libcontainer.WithExecutor(cfg.Executor),
		libcontainer.Timeouts(time.Duration(cfg.ReadyTimeout), time.Duration(cfg.ExecNotifyTimeout)),
		libcontainer.StartTimeout(time.Duration(cfg.StartTimeout)),
	)
}

// loadSpec loads the specification from the provided path.
func loadSpec(cPath string) (spec *specs.Spec, err error) {
	cf, err := os.Open(cPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("JSON specification file %s not found", cPath)
		}
		return nil, err
	}
	defer cf.Close()

	if err = json.NewDecoder(cf).Decode(&spec); err != nil {
		return nil, err
	}
	return spec, validateProcessSpec(spec.Process)
}

// setupSpec changes into the bundle directory and loads its spec.
func setupSpec(context *cli.Context) (*specs.Spec, error) {
	bundle := context.String("bundle")
	if bundle != "" {
		if err := os.Chdir(bundle); err != nil {
			return nil, err
		}
	}
	return loadSpec(specConfig)
}

func validateProcessSpec(spec *specs.Process) error {
	if spec == nil {
		return fmt.Errorf("process property must not be empty")
	}
	if spec.Cwd == "" {
		return fmt.Errorf("Cwd property must not be empty")
	}
	if !filepath.IsAbs(spec.Cwd) {
		return fmt.Errorf("Cwd must be an absolute path")
	}
	if len(spec.Args) == 0 {
		return fmt.Errorf("args must not be empty")
	}
	return nil
}

func createContainer(context *cli.Context, id string, spec *specs.Spec) (libcontainer.Container, error) {
	bundle, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	config, err := configs.ParseSpec(spec, bundle, runtimeConfig(context).CgroupRoot, id)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(config.Rootfs); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("rootfs (%q) does not exist", config.Rootfs)
		}
		return nil, err
	}

	factory, err := loadFactory(context)
	if err != nil {
		return nil, err
	}
	return factory.Create(id, config)
}

func startContainer(context *cli.Context, spec *specs.Spec, create bool) (int, error) {
	id := context.Args().First()
	if id == "" {
		return -1, errEmptyID
	}

	container, err := createContainer(context, id, spec)
	if err != nil {
		return -1, err
	}

	r := &runner{
		shouldDestroy: true,
		container:     container,
		preserveFds:   context.Int("preserve-fds"),
		consoleSocket: context.String("console-socket"),
		detach:        context.Bool("detach"),
		pidFile:       context.String("pid-file"),
		create:        create,
	}
	return r.run(spec.Process)
}

// openConsoleSocket connects to the socket that receives the pty master.
func openConsoleSocket(path string) (*libcontainer.OwnedFd, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("connecting to console socket %s: %v", path, err)
	}
	defer conn.Close()
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, fmt.Errorf("console socket %s is not a unix socket", path)
	}
	f, err := uc.File()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return libcontainer.OwnedFdFromFile(f)
}

func destroy(container libcontainer.Container, force bool) error {
	if err := container.Destroy(force); err != nil {
		logrus.Error(err)
		return err
	}
	return nil
}
