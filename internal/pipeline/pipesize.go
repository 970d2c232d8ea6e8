//go:build linux

package pipeline

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/connected-data-lake/cdl/internal/cdlerr"
)

const minPipeSize = 512 // minimum alignment for NVMe

var (
	systemMaxOnce sync.Once
	systemMax     int
	systemMaxErr  error
)

// systemMaxPipeSize reads /proc/sys/fs/pipe-max-size once per process and
// caches the result, the same FeatureDetection caching original_source
// performs for this value.
func systemMaxPipeSize() (int, error) {
	systemMaxOnce.Do(func() {
		raw, err := os.ReadFile("/proc/sys/fs/pipe-max-size")
		if err != nil {
			systemMaxErr = cdlerr.NewIoError("/proc/sys/fs/pipe-max-size", err)
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			systemMaxErr = cdlerr.NewIoError("/proc/sys/fs/pipe-max-size", err)
			return
		}
		systemMax = n
	})
	return systemMax, systemMaxErr
}

// pipeSize computes the pipe capacity for a hint length h, per the
// clamp(h, 512, system_max) rule, defaulting to the system max when h is
// zero or exceeds a 32-bit signed range.
func pipeSize(h uint32) (int, error) {
	max, err := systemMaxPipeSize()
	if err != nil {
		return 0, err
	}
	if h == 0 || h > 0x7fffffff {
		return max, nil
	}
	size := int(h)
	if size < minPipeSize {
		size = minPipeSize
	}
	if size > max {
		size = max
	}
	return size, nil
}

// newSizedPipe creates a pipe with O_CLOEXEC|O_DIRECT|O_NONBLOCK and sets
// its capacity via F_SETPIPE_SZ. O_DIRECT on a pipe is a pipe2(2) creation
// flag, not the disk-I/O O_DIRECT: it puts the pipe in packet mode, where
// each write is read back as one discrete packet instead of being
// coalesced into the byte stream. It is passed straight to Pipe2 rather
// than applied after the fact via fcntl, since pipe2 accepts it directly
// as a creation flag.
func newSizedPipe(hint uint32) (rx, tx int, err error) {
	size, err := pipeSize(hint)
	if err != nil {
		return -1, -1, err
	}
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_CLOEXEC|unix.O_DIRECT|unix.O_NONBLOCK); err != nil {
		return -1, -1, cdlerr.NewIoError("pipe2", err)
	}
	rx, tx = fds[0], fds[1]
	if _, err := unix.FcntlInt(uintptr(tx), unix.F_SETPIPE_SZ, size); err != nil {
		unix.Close(rx)
		unix.Close(tx)
		return -1, -1, cdlerr.NewIoError("F_SETPIPE_SZ", err)
	}
	return rx, tx, nil
}
