package libcontainer

import (
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"testing"

	spec "github.com/opencontainers/runtime-spec/specs-go"
)

func TestRunHooksReceivesState(t *testing.T) {
	out := filepath.Join(t.TempDir(), "state.json")
	hooks := []spec.Hook{{
		Path: "/bin/sh",
		Args: []string{"sh", "-c", "cat > " + out},
	}}
	state := spec.State{Version: spec.Version, ID: "c1", Status: "created", Pid: 7, Bundle: "/bundle"}
	if err := runHooks("prestart", hooks, state); err != nil {
		t.Fatal(err)
	}
	data, err := ioutil.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var got spec.State
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "c1" || got.Pid != 7 || got.Bundle != "/bundle" {
		t.Fatalf("hook saw %+v", got)
	}
}

func TestRunHooksStopsAtFailure(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	hooks := []spec.Hook{
		{Path: "/bin/sh", Args: []string{"sh", "-c", "exit 3"}},
		{Path: "/bin/sh", Args: []string{"sh", "-c", "touch " + marker}},
	}
	if err := runHooks("poststop", hooks, spec.State{ID: "c1"}); err == nil {
		t.Fatal("expected hook failure")
	}
	if _, err := ioutil.ReadFile(marker); err == nil {
		t.Fatal("hook after a failed hook ran")
	}
}

func TestRunHookTimeout(t *testing.T) {
	timeout := 1
	hooks := []spec.Hook{{Path: "/bin/sh", Args: []string{"sh", "-c", "exec sleep 30"}, Timeout: &timeout}}
	if err := runHooks("prestart", hooks, spec.State{ID: "c1"}); err == nil {
		t.Fatal("expected timeout")
	}
}
