//go:build !linux && !darwin

package cachestore

import "io/fs"

func accessTime(info fs.FileInfo) int64 {
	return info.ModTime().UnixNano()
}
