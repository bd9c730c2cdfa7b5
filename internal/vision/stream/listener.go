package stream

import (
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// errWouldBlock signals a non-blocking accept found nothing pending.
var errWouldBlock = unix.EWOULDBLOCK

// rawListener is a non-blocking IPv4 TCP listener built directly on
// unix.Socket/Bind/Listen so the configured backlog of 5 is honored
// exactly, rather than left to net.Listen's platform default.
type rawListener struct {
	fd int
}

func newRawListener(port int) (*rawListener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, err
	}
	addr := unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return nil, err
	}
	const backlog = 5
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &rawListener{fd: fd}, nil
}

// Accept returns the next pending connection, or errWouldBlock if the
// queue is empty right now.
func (l *rawListener) Accept() (net.Conn, error) {
	nfd, _, err := unix.Accept(l.fd)
	if err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(nfd, false); err != nil {
		unix.Close(nfd)
		return nil, err
	}
	f := os.NewFile(uintptr(nfd), "stream-client")
	defer f.Close()
	conn, err := net.FileConn(f)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (l *rawListener) Close() error {
	return unix.Close(l.fd)
}
