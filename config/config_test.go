package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != *Default() {
		t.Fatalf("got %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
root: /var/run/custom
ready_timeout: 2s
exec_notify_timeout: 1m30s
log_level: debug
`)
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Root != "/var/run/custom" {
		t.Errorf("root %q", cfg.Root)
	}
	if time.Duration(cfg.ReadyTimeout) != 2*time.Second {
		t.Errorf("ready timeout %v", time.Duration(cfg.ReadyTimeout))
	}
	if time.Duration(cfg.ExecNotifyTimeout) != 90*time.Second {
		t.Errorf("exec notify timeout %v", time.Duration(cfg.ExecNotifyTimeout))
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level %q", cfg.LogLevel)
	}
	if cfg.Executor != "default" || cfg.CgroupRoot != "/sys/fs/cgroup" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestParseRejectsBadDurations(t *testing.T) {
	for _, in := range []string{"ready_timeout: soon", "start_timeout: -1s"} {
		cfg := Default()
		if err := Parse([]byte(in), cfg); err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}
