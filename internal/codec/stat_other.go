//go:build !linux && !darwin

package codec

import (
	"os"
	"time"
)

// platformTimes has no POSIX atime/ctime outside Linux/Darwin in this
// build; both collapse to mtime.
func platformTimes(info os.FileInfo, mtime time.Time) (atime, ctime time.Time) {
	return mtime, mtime
}
