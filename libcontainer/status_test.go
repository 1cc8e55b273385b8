package libcontainer

import (
	"encoding/json"
	"testing"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from  Status
		op    Operation
		force bool
		to    Status
		ok    bool
	}{
		{Creating, OpCreate, false, Created, true},
		{Creating, OpStart, false, Creating, false},
		{Created, OpStart, false, Running, true},
		{Running, OpStart, false, Running, false},
		{Stopped, OpStart, false, Stopped, false},
		{Paused, OpStart, false, Paused, false},
		{Running, OpPause, false, Paused, true},
		{Created, OpPause, false, Created, false},
		{Paused, OpResume, false, Running, true},
		{Paused, OpStop, false, Paused, false},
		{Paused, OpDelete, true, Paused, false},
		{Running, OpResume, false, Running, false},
		{Running, OpKill, false, Running, true},
		{Created, OpKill, false, Created, true},
		{Stopped, OpKill, false, Stopped, false},
		{Running, OpExec, false, Running, true},
		{Stopped, OpExec, false, Stopped, false},
		{Running, OpStop, false, Stopped, true},
		{Running, OpDelete, false, Running, false},
		{Running, OpDelete, true, Deleted, true},
		{Created, OpDelete, false, Deleted, true},
		{Stopped, OpDelete, false, Deleted, true},
		{Creating, OpDelete, true, Creating, false},
	}
	for _, tc := range tests {
		to, err := Transition(tc.from, tc.op, tc.force)
		if tc.ok {
			if err != nil {
				t.Errorf("%s %s (force=%v): unexpected error %v", tc.op, tc.from, tc.force, err)
			}
		} else {
			if err == nil {
				t.Errorf("%s %s (force=%v): expected error", tc.op, tc.from, tc.force)
			} else if code, _ := ErrorCodeOf(err); code != InvalidStateTransition {
				t.Errorf("%s %s: code %v, want InvalidStateTransition", tc.op, tc.from, code)
			}
		}
		if to != tc.to {
			t.Errorf("%s %s (force=%v): got %s, want %s", tc.op, tc.from, tc.force, to, tc.to)
		}
	}
}

func TestDeletedIsTerminal(t *testing.T) {
	for op := OpCreate; op <= OpDelete; op++ {
		for _, force := range []bool{false, true} {
			if _, err := Transition(Deleted, op, force); err == nil {
				t.Errorf("%s from deleted (force=%v) succeeded", op, force)
			}
		}
	}
}

func TestStatusJSON(t *testing.T) {
	b, err := json.Marshal(Paused)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"paused"` {
		t.Fatalf("got %s", b)
	}
	var s Status
	if err := json.Unmarshal([]byte(`"running"`), &s); err != nil {
		t.Fatal(err)
	}
	if s != Running {
		t.Fatalf("got %s", s)
	}
	if err := json.Unmarshal([]byte(`"bogus"`), &s); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
