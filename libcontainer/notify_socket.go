package libcontainer

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"net"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	notifySocketName = "notify.sock"
	startMessage     = "start container"

	// sizeof(sockaddr_un.sun_path) including the terminating NUL.
	maxSocketPath = 108
)

func notifySocketPath(containerRoot string) string {
	return filepath.Join(containerRoot, notifySocketName)
}

// NotifyListener is the bound and listening start socket of a container.
// It is created by the creator before the fork and inherited by the init
// process, which blocks on it until `start` connects.
type NotifyListener struct {
	path string
	fd   *OwnedFd
}

// NewNotifyListener binds a unix socket at path.
func NewNotifyListener(path string) (*NotifyListener, error) {
	if len(path) >= maxSocketPath {
		return nil, newGenericError(fmt.Errorf("notify socket path %q is too long", path), ConfigInvalid)
	}
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, newSystemErrorWithCause(err, "creating notify socket")
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, newSystemErrorWithCausef(err, "binding notify socket %s", path)
	}
	if err := unix.Listen(fd, 1); err != nil {
		unix.Close(fd)
		return nil, newSystemErrorWithCausef(err, "listening on notify socket %s", path)
	}
	return &NotifyListener{path: path, fd: NewOwnedFd(fd, "notify-listener")}, nil
}

// NotifyListenerFromFd adopts an inherited, already listening socket.
func NotifyListenerFromFd(fd *OwnedFd, path string) *NotifyListener {
	return &NotifyListener{path: path, fd: fd}
}

func (l *NotifyListener) Path() string {
	return l.path
}

func (l *NotifyListener) Fd() *OwnedFd {
	return l.fd
}

// Dup returns a listener on the same socket with its own descriptor.
func (l *NotifyListener) Dup() (*NotifyListener, error) {
	fd, err := l.fd.Dup()
	if err != nil {
		return nil, err
	}
	return &NotifyListener{path: l.path, fd: fd}, nil
}

// WaitForContainerStart accepts a single connection and checks that it asks
// the container to start. A zero timeout waits forever.
func (l *NotifyListener) WaitForContainerStart(timeout time.Duration) error {
	f, err := l.fd.File()
	if err != nil {
		return err
	}
	ln, err := net.FileListener(f)
	f.Close()
	if err != nil {
		return newSystemErrorWithCause(err, "wrapping notify listener")
	}
	defer ln.Close()

	ul := ln.(*net.UnixListener)
	// The listener does not own the socket path.
	ul.SetUnlinkOnClose(false)
	if timeout > 0 {
		if err := ul.SetDeadline(time.Now().Add(timeout)); err != nil {
			return newSystemError(err)
		}
	}
	conn, err := ul.Accept()
	if err != nil {
		return newSyncError("start", err)
	}
	defer conn.Close()
	if timeout > 0 {
		conn.SetReadDeadline(time.Now().Add(timeout))
	}
	data, err := ioutil.ReadAll(conn)
	if err != nil {
		return newSyncError("start", err)
	}
	if !bytes.Equal(bytes.TrimSpace(data), []byte(startMessage)) {
		return &SyncError{Kind: SyncProtocol, Phase: "start", Message: fmt.Sprintf("unexpected message %q", data)}
	}
	logrus.WithField("socket", l.path).Debug("received start notification")
	return nil
}

func (l *NotifyListener) Close() error {
	return l.fd.Close()
}

// NotifySocket is the client side of a container's start socket.
type NotifySocket struct {
	path string

	// Timeout bounds connecting and writing. Zero waits forever.
	Timeout time.Duration
}

func NewNotifySocket(path string) *NotifySocket {
	return &NotifySocket{path: path}
}

// NotifyContainerStart releases a container's init process into its
// executor.
func (s *NotifySocket) NotifyContainerStart() error {
	conn, err := net.DialTimeout("unix", s.path, s.Timeout)
	if err != nil {
		return newSystemErrorWithCausef(err, "connecting to notify socket %s", s.path)
	}
	defer conn.Close()
	if s.Timeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.Timeout))
	}
	if _, err := conn.Write([]byte(startMessage)); err != nil {
		return newSystemErrorWithCause(err, "writing start notification")
	}
	return nil
}
