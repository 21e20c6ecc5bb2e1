package fs

import (
	"path"
	"strings"
)

// This is a mock implementation of the "FS" interface for use with tests.
// Paths always use forward slashes and the working directory is "/".

type mockFS struct {
	dirs  map[string]bool
	files map[string]string

	// Maps a path to the path it links to. Targets may be relative to the
	// directory containing the link.
	links map[string]string
}

func MockFS(input map[string]string) FS {
	return MockFSWithLinks(input, nil)
}

func MockFSWithLinks(input map[string]string, links map[string]string) FS {
	fs := &mockFS{
		dirs:  make(map[string]bool),
		files: make(map[string]string),
		links: make(map[string]string),
	}

	for k, v := range input {
		k = path.Clean(k)
		fs.files[k] = v
		fs.addParentDirs(k)
	}

	for k, v := range links {
		k = path.Clean(k)
		if !path.IsAbs(v) {
			v = path.Join(path.Dir(k), v)
		}
		fs.links[k] = path.Clean(v)
		fs.addParentDirs(k)
	}

	return fs
}

func (fs *mockFS) addParentDirs(k string) {
	for {
		kDir := path.Dir(k)
		fs.dirs[kDir] = true
		if kDir == k {
			break
		}
		k = kDir
	}
}

// Resolves every link along the path. A chain that doesn't terminate within
// the number of known links is treated as missing.
func (fs *mockFS) evalLinks(p string) (string, bool) {
	p = path.Clean(p)
	for steps := 0; steps <= len(fs.links); steps++ {
		changed := false
		parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
		prefix := "/"
		for i, part := range parts {
			prefix = path.Join(prefix, part)
			if target, ok := fs.links[prefix]; ok {
				p = path.Join(append([]string{target}, parts[i+1:]...)...)
				changed = true
				break
			}
		}
		if !changed {
			return p, true
		}
	}
	return "", false
}

func (fs *mockFS) ReadFile(p string) (string, error) {
	if resolved, ok := fs.evalLinks(p); ok {
		if contents, ok := fs.files[resolved]; ok {
			return contents, nil
		}
	}
	return "", notExist("open", p)
}

func (fs *mockFS) Stat(p string) (EntryKind, error) {
	if resolved, ok := fs.evalLinks(p); ok {
		if _, ok := fs.files[resolved]; ok {
			return FileEntry, nil
		}
		if fs.dirs[resolved] {
			return DirEntry, nil
		}
	}
	return 0, notExist("stat", p)
}

func (fs *mockFS) Canonicalize(p string) (string, error) {
	abs, _ := fs.Abs(p)
	resolved, ok := fs.evalLinks(abs)
	if !ok {
		return "", notExist("canonicalize", p)
	}
	if _, ok := fs.files[resolved]; !ok && !fs.dirs[resolved] {
		return "", notExist("canonicalize", p)
	}
	return resolved, nil
}

func (*mockFS) Abs(p string) (string, bool) {
	return path.Clean(path.Join("/", p)), true
}

func (*mockFS) Dir(p string) string {
	return path.Dir(p)
}

func (*mockFS) Base(p string) string {
	return path.Base(p)
}

func (*mockFS) Ext(p string) string {
	return path.Ext(p)
}

func (*mockFS) Join(parts ...string) string {
	return path.Clean(path.Join(parts...))
}

func (*mockFS) Cwd() string {
	return "/"
}

func (*mockFS) RelativeToCwd(p string) (string, bool) {
	if !path.IsAbs(p) {
		return "", false
	}
	rel := strings.TrimPrefix(path.Clean(p), "/")
	if rel == "" {
		rel = "."
	}
	return rel, true
}
