package libcontainer

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// OwnedFd owns exactly one file descriptor and closes it at most once.
//
// A second owner of the same open file must be obtained with Dup, which asks
// the kernel for a new descriptor. Wrapping the same integer in two OwnedFd
// values would let one owner close the descriptor from under the other.
type OwnedFd struct {
	name string

	mu sync.Mutex
	fd int
}

// NewOwnedFd takes ownership of an already open descriptor.
func NewOwnedFd(fd int, name string) *OwnedFd {
	return &OwnedFd{fd: fd, name: name}
}

// OwnedFdFromFile duplicates the descriptor behind file. The caller keeps
// ownership of file.
func OwnedFdFromFile(file *os.File) (*OwnedFd, error) {
	nfd, err := unix.FcntlInt(file.Fd(), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, newSystemErrorWithCausef(err, "duplicating %s", file.Name())
	}
	return NewOwnedFd(nfd, file.Name()), nil
}

// Fd returns the raw descriptor, or -1 once the handle is closed.
func (f *OwnedFd) Fd() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fd
}

func (f *OwnedFd) Name() string {
	return f.name
}

// Dup returns a new handle on the same open file with an independent
// lifetime. The new descriptor is close-on-exec.
func (f *OwnedFd) Dup() (*OwnedFd, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fd < 0 {
		return nil, newGenericError(fmt.Errorf("dup %s: descriptor already closed", f.name), SystemError)
	}
	nfd, err := unix.FcntlInt(uintptr(f.fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, newSystemErrorWithCausef(err, "duplicating %s", f.name)
	}
	logrus.WithFields(logrus.Fields{
		"name": f.name,
		"fd":   f.fd,
		"dup":  nfd,
	}).Debug("duplicated descriptor")
	return &OwnedFd{fd: nfd, name: f.name}, nil
}

// File returns a duplicate of the descriptor wrapped in an *os.File, owned by
// the caller.
func (f *OwnedFd) File() (*os.File, error) {
	d, err := f.Dup()
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(d.release()), f.name), nil
}

// Close releases the descriptor. Closing an already closed handle is a no-op.
func (f *OwnedFd) Close() error {
	fd := f.release()
	if fd < 0 {
		return nil
	}
	if err := unix.Close(fd); err != nil {
		return newSystemErrorWithCausef(err, "closing %s", f.name)
	}
	return nil
}

// release gives up ownership without closing.
func (f *OwnedFd) release() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	fd := f.fd
	f.fd = -1
	return fd
}

func closeAll(fds ...*OwnedFd) {
	for _, fd := range fds {
		if fd == nil {
			continue
		}
		if err := fd.Close(); err != nil {
			logrus.Warn(err)
		}
	}
}
