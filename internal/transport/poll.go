package transport

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/marmos91/busybus/internal/bbuserr"
)

// PollEvent names which of a descriptor's readiness bits fired.
type PollEvent struct {
	FD       int
	Readable bool
	Writable bool
	Error    bool
}

// Wait blocks on readiness for the given file descriptors (read-interest
// only, which is all the event loop needs), up to timeoutMs milliseconds.
// An EINTR is surfaced as bbuserr.PollIntr so the caller can retry the
// iteration, per spec §4.6.
func Wait(fds []int, timeoutMs int) ([]PollEvent, error) {
	const op = "transport.Wait"

	pollfds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		pollfds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}

	n, err := unix.Poll(pollfds, timeoutMs)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, bbuserr.New(bbuserr.PollIntr, op)
		}
		return nil, bbuserr.Wrap(bbuserr.LogicErr, op, err)
	}
	if n == 0 {
		return nil, nil
	}

	events := make([]PollEvent, 0, n)
	for _, pfd := range pollfds {
		if pfd.Revents == 0 {
			continue
		}
		events = append(events, PollEvent{
			FD:       int(pfd.Fd),
			Readable: pfd.Revents&unix.POLLIN != 0,
			Writable: pfd.Revents&unix.POLLOUT != 0,
			Error:    pfd.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0,
		})
	}
	return events, nil
}
