//go:build linux

package cachestore

import (
	"io/fs"
	"syscall"
)

// accessTime reads the platform st_atime used to rank eviction candidates.
// Falls back to ModTime when unavailable.
func accessTime(info fs.FileInfo) int64 {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return stat.Atim.Sec*1e9 + stat.Atim.Nsec
	}
	return info.ModTime().UnixNano()
}
