package libcontainer

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

type syncType uint8

// Messages exchanged over the init socket pair.
//
//	parent                      child
//	procBootstrap (config)  ->
//	                        <-  procReady   (setup complete)
//	procRun                 ->              (proceed to exec)
//
// The child may send procError instead of procReady. The parent aborts by
// closing its end, which the child sees as a closed peer.
const (
	procBootstrap syncType = iota + 1
	procReady
	procRun
	procError
)

func (t syncType) String() string {
	switch t {
	case procBootstrap:
		return "bootstrap"
	case procReady:
		return "ready"
	case procRun:
		return "run"
	case procError:
		return "error"
	default:
		return fmt.Sprintf("syncType(%d)", uint8(t))
	}
}

type syncT struct {
	Type    syncType    `json:"type"`
	Message string      `json:"message,omitempty"`
	Config  *initConfig `json:"config,omitempty"`
}

// ErrPhaseOrder is returned when a phase is signaled or awaited before the
// phase preceding it completed.
var ErrPhaseOrder = errors.New("synchronization phase out of order")

// SyncErrorKind classifies a failed wait.
type SyncErrorKind int

const (
	// SyncTimeout means the peer did not signal in time.
	SyncTimeout SyncErrorKind = iota + 1
	// SyncPeerClosed means the peer closed its end without signaling.
	SyncPeerClosed
	// SyncChildError means the child reported a setup failure.
	SyncChildError
	// SyncProtocol means an unexpected message arrived.
	SyncProtocol
)

func (k SyncErrorKind) String() string {
	switch k {
	case SyncTimeout:
		return "timeout"
	case SyncPeerClosed:
		return "peer closed"
	case SyncChildError:
		return "child error"
	case SyncProtocol:
		return "protocol error"
	default:
		return "unknown"
	}
}

// SyncError is returned by every wait on a notification channel.
type SyncError struct {
	Kind    SyncErrorKind
	Phase   string
	Message string
	Err     error
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("waiting for %s: %s", e.Phase, e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsSyncError reports whether err is a SyncError of the given kind.
func IsSyncError(err error, kind SyncErrorKind) bool {
	var se *SyncError
	return errors.As(err, &se) && se.Kind == kind
}

func newSyncError(phase string, err error) *SyncError {
	se := &SyncError{Phase: phase, Err: err}
	var ne net.Error
	switch {
	case err == io.EOF, err == io.ErrUnexpectedEOF,
		errors.Is(err, unix.ECONNRESET), errors.Is(err, unix.EPIPE):
		se.Kind = SyncPeerClosed
	case errors.Is(err, os.ErrDeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		se.Kind = SyncTimeout
	default:
		se.Kind = SyncProtocol
	}
	return se
}

// syncConn is one end of the socket pair with JSON framing.
type syncConn struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

// newSyncConn takes ownership of fd.
func newSyncConn(fd *OwnedFd) (*syncConn, error) {
	name := fd.Name()
	raw := fd.release()
	if raw < 0 {
		return nil, newGenericError(fmt.Errorf("%s: descriptor already closed", name), SystemError)
	}
	f := os.NewFile(uintptr(raw), name)
	defer f.Close()
	conn, err := net.FileConn(f)
	if err != nil {
		return nil, newSystemErrorWithCausef(err, "wrapping %s", name)
	}
	return &syncConn{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(conn),
	}, nil
}

func (s *syncConn) send(msg syncT) error {
	if err := s.enc.Encode(msg); err != nil {
		return newSyncError(msg.Type.String(), err)
	}
	return nil
}

func (s *syncConn) recv(phase string, timeout time.Duration) (syncT, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	var msg syncT
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return msg, newSyncError(phase, err)
	}
	if err := s.dec.Decode(&msg); err != nil {
		return msg, newSyncError(phase, err)
	}
	return msg, nil
}

func (s *syncConn) close() error {
	return s.conn.Close()
}

// NewSyncPair creates a fresh notification channel for one container
// process. The returned descriptor is the child's end and must be handed to
// the new process.
func NewSyncPair(name string) (*ParentSync, *OwnedFd, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, newSystemErrorWithCause(err, "creating sync socket pair")
	}
	parentEnd := NewOwnedFd(fds[0], name+"-p")
	childEnd := NewOwnedFd(fds[1], name+"-c")
	conn, err := newSyncConn(parentEnd)
	if err != nil {
		closeAll(parentEnd, childEnd)
		return nil, nil, err
	}
	return &ParentSync{c: conn}, childEnd, nil
}

// ParentSync is the creator's end of the notification channel.
type ParentSync struct {
	c       *syncConn
	ready   bool
	proceed bool
}

// SendBootstrap hands the init configuration to the child.
func (p *ParentSync) SendBootstrap(cfg *initConfig) error {
	return p.c.send(syncT{Type: procBootstrap, Config: cfg})
}

// WaitReady blocks until the child reports that its setup is complete.
// A zero timeout waits forever.
func (p *ParentSync) WaitReady(timeout time.Duration) error {
	if p.ready {
		return ErrPhaseOrder
	}
	msg, err := p.c.recv("ready", timeout)
	if err != nil {
		return err
	}
	switch msg.Type {
	case procReady:
		p.ready = true
		logrus.Debug("child signaled ready")
		return nil
	case procError:
		return &SyncError{Kind: SyncChildError, Phase: "ready", Message: msg.Message}
	default:
		return &SyncError{Kind: SyncProtocol, Phase: "ready", Message: "unexpected " + msg.Type.String()}
	}
}

// SignalProceed authorizes the child to run its executor. It must follow a
// successful WaitReady and may be sent once.
func (p *ParentSync) SignalProceed() error {
	if !p.ready || p.proceed {
		return ErrPhaseOrder
	}
	if err := p.c.send(syncT{Type: procRun}); err != nil {
		return err
	}
	p.proceed = true
	logrus.Debug("signaled child to proceed")
	return nil
}

// Abort closes the channel without authorizing the child.
func (p *ParentSync) Abort() error {
	logrus.Debug("aborting child synchronization")
	return p.c.close()
}

func (p *ParentSync) Close() error {
	return p.c.close()
}

// ChildSync is the created process's end of the notification channel.
type ChildSync struct {
	c     *syncConn
	ready bool
	done  bool
}

// NewChildSync takes ownership of the child's end of a sync pair.
func NewChildSync(fd *OwnedFd) (*ChildSync, error) {
	c, err := newSyncConn(fd)
	if err != nil {
		return nil, err
	}
	return &ChildSync{c: c}, nil
}

// ReadBootstrap receives the configuration sent by SendBootstrap.
func (s *ChildSync) ReadBootstrap(timeout time.Duration) (*initConfig, error) {
	msg, err := s.c.recv("bootstrap", timeout)
	if err != nil {
		return nil, err
	}
	if msg.Type != procBootstrap || msg.Config == nil {
		return nil, &SyncError{Kind: SyncProtocol, Phase: "bootstrap", Message: "unexpected " + msg.Type.String()}
	}
	return msg.Config, nil
}

// SignalReady tells the parent setup is complete. It may be sent once.
func (s *ChildSync) SignalReady() error {
	if s.ready {
		return ErrPhaseOrder
	}
	if err := s.c.send(syncT{Type: procReady}); err != nil {
		return err
	}
	s.ready = true
	return nil
}

// WaitProceed blocks until the parent sends procRun.
func (s *ChildSync) WaitProceed(timeout time.Duration) error {
	if !s.ready || s.done {
		return ErrPhaseOrder
	}
	msg, err := s.c.recv("proceed", timeout)
	if err != nil {
		return err
	}
	if msg.Type != procRun {
		return &SyncError{Kind: SyncProtocol, Phase: "proceed", Message: "unexpected " + msg.Type.String()}
	}
	s.done = true
	return nil
}

// ReportError sends a setup failure to the parent in place of procReady.
func (s *ChildSync) ReportError(err error) error {
	return s.c.send(syncT{Type: procError, Message: err.Error()})
}

func (s *ChildSync) Close() error {
	return s.c.close()
}
