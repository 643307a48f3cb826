// Package watch implements the change controller: it watches a
// directory of primary databases for write events and drives one
// diff-then-patch cycle per qualifying event against each primary's
// backup and SCN-journal.
package watch

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/chinarulezzz/repqlite/internal/logging"
)

// EventMask selects which filesystem event the controller reacts to.
type EventMask uint32

const (
	// CloseWrite fires once a file opened for writing is closed - the
	// default, since it means the storage engine has finished its write.
	CloseWrite EventMask = unix.IN_CLOSE_WRITE
	// Modify fires on every write(); the controller sleeps 250ms after
	// seeing it as a best-effort concession to the engine's file lock.
	Modify EventMask = unix.IN_MODIFY
)

// Handler is invoked once per qualifying event, with the watched
// directory and the name of the file that changed.
type Handler func(dir, name string) error

// Controller watches Dir for Event on files whose name does not contain
// "-journal" and calls Handler for them; handleEvents describes which
// events of one read() are examined.
type Controller struct {
	Dir     string
	Event   EventMask
	Handler Handler
}

// Run blocks servicing inotify events until ctx is cancelled. It
// replaces the original signal-handler re-entrancy trick with a
// conventional cancellation check: the poll loop tests ctx.Done() each
// time around rather than relying on a handler that re-enters the main
// function.
func Run(ctx context.Context, c Controller) error {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK)
	if err != nil {
		return fmt.Errorf("inotify_init: %w", err)
	}
	defer unix.Close(fd)

	mask := uint32(c.Event)
	if _, err := unix.InotifyAddWatch(fd, c.Dir, mask); err != nil {
		return fmt.Errorf("inotify_add_watch %s: %w", c.Dir, err)
	}

	logging.Info("watch_started", "dir", c.Dir, "mask", mask)

	pfds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		select {
		case <-ctx.Done():
			logging.Info("watch_stopped", "dir", c.Dir)
			return nil
		default:
		}

		n, err := unix.Poll(pfds, 1000)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("poll: %w", err)
		}
		if n <= 0 {
			continue
		}
		if pfds[0].Revents&unix.POLLIN != 0 {
			if err := c.handleEvents(fd, mask); err != nil {
				return err
			}
		}
	}
}

// handleEvents reads whatever inotify events are currently available
// and examines only the first event of each read() buffer: it invokes
// Handler if that event matches mask and its name doesn't contain
// "-journal". Every later event in the same buffer is dropped, not
// deferred, whether or not the first one qualified, since the buffer
// bytes backing them are already consumed by the time the next read()
// call would surface anything new. This mirrors the original watcher
// exactly; the diff and patch cycle just run for the first event may
// well have invalidated whatever came after it in the same buffer anyway.
func (c Controller) handleEvents(fd int, mask uint32) error {
	var buf [4096]byte
	for {
		n, err := unix.Read(fd, buf[:])
		if err != nil {
			if err == unix.EAGAIN {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if n <= 0 {
			return nil
		}

		offset := 0
		for offset+unix.SizeofInotifyEvent <= n {
			ev := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			nameStart := offset + unix.SizeofInotifyEvent
			nameEnd := nameStart + int(ev.Len)
			if nameEnd > n {
				break
			}
			name := strings.TrimRight(string(buf[nameStart:nameEnd]), "\x00")

			if ev.Mask&mask != 0 && !strings.Contains(name, "-journal") {
				if EventMask(mask) == Modify {
					time.Sleep(250 * time.Millisecond)
				}
				logging.WatchEvent(c.Dir, name)
				if err := c.Handler(c.Dir, name); err != nil {
					logging.Error("watch_handler_failed", "dir", c.Dir, "name", name, "error", err.Error())
				}
			}
			break
		}
	}
}
