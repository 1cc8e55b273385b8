package libcontainer

import "fmt"

// Status is the lifecycle status of a container.
type Status int

const (
	// Creating is the status while the init process is being constructed.
	Creating Status = iota
	// Created is the status of a container whose init waits for start.
	Created
	// Running is the status of a container whose workload runs.
	Running
	// Paused is the status of a frozen container.
	Paused
	// Stopped is the status of a container whose init has exited.
	Stopped
	// Deleted is terminal.
	Deleted
)

func (s Status) String() string {
	switch s {
	case Creating:
		return "creating"
	case Created:
		return "created"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	if s < Creating || s > Deleted {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for st := Creating; st <= Deleted; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("invalid status %q", b)
}

// Operation is a lifecycle operation on a container.
type Operation int

const (
	OpCreate Operation = iota
	OpStart
	OpPause
	OpResume
	OpKill
	OpExec
	OpStop
	OpDelete
)

func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpStart:
		return "start"
	case OpPause:
		return "pause"
	case OpResume:
		return "resume"
	case OpKill:
		return "kill"
	case OpExec:
		return "exec"
	case OpStop:
		return "stop"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

type transitionKey struct {
	from Status
	op   Operation
}

type transitionRule struct {
	to        Status
	needForce bool
}

// Kill and exec leave the status alone; the init process exiting is
// observed later as Stopped.
var transitions = map[transitionKey]transitionRule{
	{Creating, OpCreate}: {to: Created},

	{Created, OpStart}:  {to: Running},
	{Created, OpKill}:   {to: Created},
	{Created, OpExec}:   {to: Created},
	{Created, OpStop}:   {to: Stopped},
	{Created, OpDelete}: {to: Deleted},

	{Running, OpPause}:  {to: Paused},
	{Running, OpKill}:   {to: Running},
	{Running, OpExec}:   {to: Running},
	{Running, OpStop}:   {to: Stopped},
	{Running, OpDelete}: {to: Deleted, needForce: true},

	{Paused, OpResume}: {to: Running},
	{Paused, OpKill}:   {to: Paused},

	{Stopped, OpDelete}: {to: Deleted},
}

// Transition returns the status a container in from reaches once op
// succeeds. It fails with InvalidStateTransition when op is not allowed.
func Transition(from Status, op Operation, force bool) (Status, error) {
	rule, ok := transitions[transitionKey{from, op}]
	if !ok {
		return from, newGenericError(fmt.Errorf("cannot %s a container that is %s", op, from), InvalidStateTransition)
	}
	if rule.needForce && !force {
		return from, newGenericError(fmt.Errorf("cannot %s a container that is %s without force", op, from), InvalidStateTransition)
	}
	return rule.to, nil
}
