package fs

import (
	"errors"
	"os"
	"syscall"
)

type EntryKind uint8

const (
	DirEntry  EntryKind = 1
	FileEntry EntryKind = 2
)

func (kind EntryKind) String() string {
	switch kind {
	case DirEntry:
		return "directory"
	case FileEntry:
		return "file"
	default:
		return "unknown"
	}
}

type FS interface {
	ReadFile(path string) (string, error)

	// Reports whether the path is a file or a directory. Symbolic links are
	// followed. A missing path returns an error satisfying IsNotExist.
	Stat(path string) (EntryKind, error)

	// Returns the absolute path with all symbolic links resolved. This is the
	// identity of a file. The path must exist.
	Canonicalize(path string) (string, error)

	// This is part of the interface because the mock interface used for tests
	// should not depend on file system behavior (i.e. different slashes for
	// Windows) while the real interface should.
	Abs(path string) (string, bool)
	Dir(path string) string
	Base(path string) string
	Ext(path string) string
	Join(parts ...string) string
	Cwd() string
	RelativeToCwd(path string) (string, bool)
}

func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

func notExist(op string, path string) error {
	return &os.PathError{Op: op, Path: path, Err: syscall.ENOENT}
}

// Returns a path suitable for showing to the user. Paths inside the current
// working directory are shown relative to it.
func PrettyPath(fs FS, path string) string {
	if rel, ok := fs.RelativeToCwd(path); ok && !startsWithDotDot(rel) {
		return rel
	}
	return path
}

func startsWithDotDot(rel string) bool {
	return len(rel) >= 2 && rel[0] == '.' && rel[1] == '.' && (len(rel) == 2 || rel[2] == '/' || rel[2] == '\\')
}
