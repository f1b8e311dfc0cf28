//go:build linux

package sendfile

import (
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// To transfers size bytes of src to conn via sendfile(2), keeping the
// payload out of userspace entirely. It reports handled == false when the
// connection cannot expose a raw file descriptor, in which case the caller
// falls back to a buffered copy.
func To(conn net.Conn, src *os.File, size int64) (handled bool, err error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return false, nil
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return false, nil
	}

	var (
		remaining = size
		offset    int64
		sendErr   error
	)

	err = raw.Write(func(fd uintptr) (done bool) {
		for remaining > 0 {
			n, err := unix.Sendfile(int(fd), int(src.Fd()), &offset, int(remaining))
			if n > 0 {
				remaining -= int64(n)
			}

			switch err {
			case nil:
				if n == 0 {
					// source truncated underneath us
					sendErr = os.ErrClosed
					return true
				}
			case unix.EAGAIN:
				// resume once the runtime poller reports writability
				return false
			case unix.EINTR:
			default:
				sendErr = err
				return true
			}
		}

		return true
	})

	if err != nil {
		return true, err
	}

	return true, sendErr
}
