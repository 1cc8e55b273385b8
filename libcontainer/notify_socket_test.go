package libcontainer

import (
	"net"
	"strings"
	"testing"
	"time"
)

func TestNotifySocketStart(t *testing.T) {
	l, err := NewNotifyListener(notifySocketPath(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	errc := make(chan error, 1)
	go func() { errc <- l.WaitForContainerStart(5 * time.Second) }()
	if err := NewNotifySocket(l.Path()).NotifyContainerStart(); err != nil {
		t.Fatal(err)
	}
	if err := <-errc; err != nil {
		t.Fatal(err)
	}
}

func TestNotifySocketRejectsOtherMessages(t *testing.T) {
	l, err := NewNotifyListener(notifySocketPath(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	conn, err := net.Dial("unix", l.Path())
	if err != nil {
		t.Fatal(err)
	}
	conn.Write([]byte("hello"))
	conn.Close()

	if err := l.WaitForContainerStart(5 * time.Second); !IsSyncError(err, SyncProtocol) {
		t.Fatalf("got %v, want protocol error", err)
	}
}

func TestNotifySocketTimeout(t *testing.T) {
	l, err := NewNotifyListener(notifySocketPath(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	if err := l.WaitForContainerStart(50 * time.Millisecond); !IsSyncError(err, SyncTimeout) {
		t.Fatalf("got %v, want timeout", err)
	}
}

func TestNotifySocketPathTooLong(t *testing.T) {
	if _, err := NewNotifyListener("/" + strings.Repeat("a", maxSocketPath)); err == nil {
		t.Fatal("expected error for an overlong socket path")
	}
}

func TestNotifySocketWithoutListener(t *testing.T) {
	ns := NewNotifySocket(notifySocketPath(t.TempDir()))
	ns.Timeout = time.Second
	if err := ns.NotifyContainerStart(); err == nil {
		t.Fatal("expected error without a listener")
	}
}
