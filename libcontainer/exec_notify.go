package libcontainer

import (
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// NewExecNotifyPair creates the channel a tenant process uses to announce
// that it joined the container. The reader stays with the consumer; the
// writer goes into TenantContainer.
func NewExecNotifyPair(execID string) (reader, writer *OwnedFd, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, newSystemErrorWithCause(err, "creating exec notify pair")
	}
	return NewOwnedFd(fds[0], "exec-notify-r-"+execID), NewOwnedFd(fds[1], "exec-notify-w-"+execID), nil
}

// notifyExec sends the single procReady of the exec notify channel and
// closes the writer.
func notifyExec(w *OwnedFd) error {
	d, err := w.Dup()
	if err != nil {
		return err
	}
	c, err := newSyncConn(d)
	if err != nil {
		return err
	}
	defer c.close()
	if err := c.send(syncT{Type: procReady}); err != nil {
		return err
	}
	logrus.WithField("handle", w.Name()).Debug("sent exec notification")
	return w.Close()
}

// WaitExecNotify blocks until the tenant process behind r signals, then
// closes r. Every writer copy held by the caller must be closed first or a
// dead tenant is never detected.
func WaitExecNotify(r *OwnedFd, timeout time.Duration) error {
	c, err := newSyncConn(r)
	if err != nil {
		return err
	}
	defer c.close()
	msg, err := c.recv("exec notify", timeout)
	if err != nil {
		return err
	}
	if msg.Type != procReady {
		return &SyncError{Kind: SyncProtocol, Phase: "exec notify", Message: "unexpected " + msg.Type.String()}
	}
	return nil
}
