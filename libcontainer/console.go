// Copyright 2014 Docker, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// +build linux

package libcontainer

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// newPty allocates a pseudo terminal and returns its master and the path of
// the slave.
func newPty() (*os.File, string, error) {
	master, err := os.OpenFile("/dev/ptmx", os.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, "", err
	}
	if err := unix.IoctlSetPointerInt(int(master.Fd()), unix.TIOCSPTLCK, 0); err != nil {
		master.Close()
		return nil, "", fmt.Errorf("unlockpt: %v", err)
	}
	n, err := unix.IoctlGetUint32(int(master.Fd()), unix.TIOCGPTN)
	if err != nil {
		master.Close()
		return nil, "", fmt.Errorf("ptsname: %v", err)
	}
	return master, fmt.Sprintf("/dev/pts/%d", n), nil
}

// setupConsole makes a new pty the controlling terminal and stdio of the
// current process and sends the master over socket.
func setupConsole(socket *OwnedFd) error {
	master, slavePath, err := newPty()
	if err != nil {
		return newSystemErrorWithCause(err, "allocating pty")
	}
	defer master.Close()

	slave, err := unix.Open(slavePath, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return newSystemErrorWithCausef(err, "opening %s", slavePath)
	}
	for i := 0; i < stdioFdCount; i++ {
		if err := unix.Dup3(slave, i, 0); err != nil {
			unix.Close(slave)
			return newSystemErrorWithCausef(err, "dup3 console onto fd %d", i)
		}
	}
	unix.Close(slave)
	if err := unix.IoctlSetInt(0, unix.TIOCSCTTY, 0); err != nil {
		return newSystemErrorWithCause(err, "setting controlling terminal")
	}

	oob := unix.UnixRights(int(master.Fd()))
	if err := unix.Sendmsg(socket.Fd(), []byte(slavePath), oob, nil, 0); err != nil {
		return newSystemErrorWithCause(err, "sending console master")
	}
	return nil
}
