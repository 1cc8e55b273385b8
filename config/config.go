// Package config loads the optional runtime configuration file.
package config

import (
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the runtime looks for its configuration file.
const DefaultPath = "/etc/runllc/config.yaml"

// Duration is a time.Duration written as "5s" or "1m30s" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "line %d", node.Line)
	}
	if v < 0 {
		return errors.Errorf("line %d: negative duration %q", node.Line, s)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the runtime configuration. Command line flags override it.
type Config struct {
	// Root is where container state is kept.
	Root string `yaml:"root"`

	// ReadyTimeout bounds the wait for a container process's setup. Zero
	// waits forever.
	ReadyTimeout Duration `yaml:"ready_timeout"`

	// StartTimeout bounds how long `start` waits to reach the init process.
	StartTimeout Duration `yaml:"start_timeout"`

	// ExecNotifyTimeout bounds the wait for an exec'd process to join.
	ExecNotifyTimeout Duration `yaml:"exec_notify_timeout"`

	CgroupRoot string `yaml:"cgroup_root"`
	LogLevel   string `yaml:"log_level"`

	// Executor is the registered executor container processes run.
	Executor string `yaml:"executor"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Root:              "/run/runllc",
		ReadyTimeout:      Duration(30 * time.Second),
		StartTimeout:      Duration(10 * time.Second),
		ExecNotifyTimeout: Duration(30 * time.Second),
		CgroupRoot:        "/sys/fs/cgroup",
		LogLevel:          "info",
		Executor:          "default",
	}
}

// Load reads the file at path over the defaults. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, nil
}

// Parse decodes data into cfg, keeping the values of cfg for absent keys.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	return nil
}
