//go:build darwin

package cachestore

import (
	"io/fs"
	"syscall"
)

func accessTime(info fs.FileInfo) int64 {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return stat.Atimespec.Sec*1e9 + stat.Atimespec.Nsec
	}
	return info.ModTime().UnixNano()
}
