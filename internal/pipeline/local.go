//go:build linux

package pipeline

import (
	"math"

	"golang.org/x/sys/unix"

	"github.com/connected-data-lake/cdl/internal/cdlerr"
)

// ReadFile opens path read-only as a sized, readable Local node. Its
// length is derived from seek(End) - seek(Current), matching
// original_source's ReadFile constructor. O_ASYNC is not requested: this
// package drives splice completion with goroutines and EAGAIN retries
// rather than SIGIO, so the non-blocking flag alone is sufficient.
func ReadFile(path string) (Node, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return Node{}, cdlerr.NewIoError(path, err)
	}
	cur, err := unix.Seek(fd, 0, unix.SEEK_CUR)
	if err != nil {
		unix.Close(fd)
		return Node{}, cdlerr.NewIoError(path, err)
	}
	end, err := unix.Seek(fd, 0, unix.SEEK_END)
	if err != nil {
		unix.Close(fd)
		return Node{}, cdlerr.NewIoError(path, err)
	}
	if _, err := unix.Seek(fd, cur, unix.SEEK_SET); err != nil {
		unix.Close(fd)
		return Node{}, cdlerr.NewIoError(path, err)
	}
	length := end - cur
	if length < 0 || length > math.MaxInt64 {
		unix.Close(fd)
		return Node{}, cdlerr.NewIoError(path, unix.EFBIG)
	}
	return Node{FD: fd, Offset: cur, Len: length, Flags: ModeRead | FeatSized}, nil
}

// WriteFile creates (or truncates) path for writing as a Local node whose
// length is unspecified and which accepts a subsequent truncate to the
// sized length of its sink. It does not request O_DIRECT — see DESIGN.md
// for why.
func WriteFile(path string) (Node, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC|unix.O_NONBLOCK, 0o644)
	if err != nil {
		return Node{}, cdlerr.NewIoError(path, err)
	}
	return Node{FD: fd, Offset: 0, Len: -1, Flags: ModeWrite | FeatTruncate}, nil
}
