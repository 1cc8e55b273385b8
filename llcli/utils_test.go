package llcli

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/opencontainers/runtime-spec/specs-go"
	"github.com/urfave/cli"
	"golang.org/x/sys/unix"
)

func TestParseSignal(t *testing.T) {
	tests := []struct {
		in   string
		want unix.Signal
		err  bool
	}{
		{"9", unix.SIGKILL, false},
		{"KILL", unix.SIGKILL, false},
		{"SIGTERM", unix.SIGTERM, false},
		{"hup", unix.SIGHUP, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"NOPE", 0, true},
	}
	for _, tc := range tests {
		got, err := parseSignal(tc.in)
		if tc.err {
			if err == nil {
				t.Errorf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("%q: got %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestParseUser(t *testing.T) {
	uid, gid, err := parseUser("1000:100")
	if err != nil || uid != 1000 || gid != 100 {
		t.Fatalf("got %d:%d %v", uid, gid, err)
	}
	uid, gid, err = parseUser("7")
	if err != nil || uid != 7 || gid != 0 {
		t.Fatalf("got %d:%d %v", uid, gid, err)
	}
	if _, _, err := parseUser("root"); err == nil {
		t.Fatal("expected error for a user name")
	}
}

func TestValidateProcessSpec(t *testing.T) {
	tests := []struct {
		name string
		p    *specs.Process
		ok   bool
	}{
		{"nil", nil, false},
		{"no cwd", &specs.Process{Args: []string{"sh"}}, false},
		{"relative cwd", &specs.Process{Args: []string{"sh"}, Cwd: "tmp"}, false},
		{"no args", &specs.Process{Cwd: "/"}, false},
		{"valid", &specs.Process{Args: []string{"sh"}, Cwd: "/"}, true},
	}
	for _, tc := range tests {
		err := validateProcessSpec(tc.p)
		if (err == nil) != tc.ok {
			t.Errorf("%s: got %v", tc.name, err)
		}
	}
}

func TestLoadSpec(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, specConfig)
	if _, err := loadSpec(path); err == nil {
		t.Fatal("expected error for a missing config")
	}
	spec := &specs.Spec{
		Version: specs.Version,
		Process: &specs.Process{Args: []string{"sh"}, Cwd: "/"},
		Root:    &specs.Root{Path: "rootfs"},
	}
	data, err := json.Marshal(spec)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	got, err := loadSpec(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Process.Args, spec.Process.Args) {
		t.Errorf("args %v", got.Process.Args)
	}
}

func execContext(t *testing.T, argv ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("exec", flag.ContinueOnError)
	set.String("cwd", "", "")
	set.String("user", "", "")
	set.String("process", "", "")
	set.Bool("tty", false, "")
	set.Var(&cli.StringSlice{}, "env", "")
	if err := set.Parse(argv); err != nil {
		t.Fatal(err)
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestGetProcessFromFlags(t *testing.T) {
	base := &specs.Spec{Process: &specs.Process{
		Args: []string{"/init"},
		Env:  []string{"PATH=/bin"},
		Cwd:  "/",
	}}
	ctx := execContext(t, "--cwd", "/srv", "--env", "A=1", "--user", "5:6", "--tty", "c1", "ls", "-l")
	p, err := getProcess(ctx, base)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(p.Args, []string{"ls", "-l"}) {
		t.Errorf("args %v", p.Args)
	}
	if !reflect.DeepEqual(p.Env, []string{"PATH=/bin", "A=1"}) {
		t.Errorf("env %v", p.Env)
	}
	if p.Cwd != "/srv" || !p.Terminal || p.User.UID != 5 || p.User.GID != 6 {
		t.Errorf("process %+v", p)
	}
	if len(base.Process.Env) != 1 || base.Process.Cwd != "/" {
		t.Error("container process was modified")
	}
}

func TestGetProcessNeedsArgs(t *testing.T) {
	base := &specs.Spec{Process: &specs.Process{Args: []string{"/init"}, Cwd: "/"}}
	if _, err := getProcess(execContext(t, "c1"), base); err == nil {
		t.Fatal("expected error without a command")
	}
}

func TestGetProcessFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "process.json")
	data, _ := json.Marshal(specs.Process{Args: []string{"top"}, Cwd: "/"})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	p, err := getProcess(execContext(t, "--process", path, "c1"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Args[0] != "top" {
		t.Errorf("args %v", p.Args)
	}
}

func TestRuntimeFeatures(t *testing.T) {
	data, err := json.Marshal(runtimeFeatures())
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["ociVersionMax"] != specs.Version {
		t.Errorf("ociVersionMax %v", got["ociVersionMax"])
	}
	linux := got["linux"].(map[string]interface{})
	nss := linux["namespaces"].([]interface{})
	if len(nss) != 7 {
		t.Errorf("namespaces %v", nss)
	}
	if cg := linux["cgroup"].(map[string]interface{}); cg["v2"] != true || cg["v1"] != false {
		t.Errorf("cgroup %v", cg)
	}
}

func TestCreateSubst(t *testing.T) {
	fn := createSubst(map[string]string{"name": "runllc"})
	if got := fn("# {{name}} run"); got != "# runllc run" {
		t.Errorf("got %q", got)
	}
}
