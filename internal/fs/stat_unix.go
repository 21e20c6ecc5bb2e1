//go:build darwin || freebsd || linux
// +build darwin freebsd linux

package fs

import (
	"os"

	"golang.org/x/sys/unix"
)

func statKind(path string) (EntryKind, error) {
	stat := unix.Stat_t{}
	if err := unix.Stat(path, &stat); err != nil {
		return 0, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	if stat.Mode&unix.S_IFMT == unix.S_IFDIR {
		return DirEntry, nil
	}
	return FileEntry, nil
}
