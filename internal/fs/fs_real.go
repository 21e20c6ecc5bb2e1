package fs

import (
	"os"
	"path/filepath"
	"sync"
)

type realFS struct {
	// Stores the kind of each path we've looked at before. Misses are cached
	// too since the resolver probes many candidates that don't exist.
	statMutex sync.RWMutex
	stats     map[string]statResult

	cwd string
}

type statResult struct {
	kind EntryKind
	err  error
}

func RealFS() FS {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	} else if resolved, err := filepath.EvalSymlinks(cwd); err == nil {
		// Input paths are canonicalized, so the working directory must be too
		// or relative paths in messages will be wrong inside a symlinked
		// directory
		cwd = resolved
	}

	return &realFS{
		stats: make(map[string]statResult),
		cwd:   cwd,
	}
}

func (fs *realFS) ReadFile(path string) (string, error) {
	buffer, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(buffer), nil
}

func (fs *realFS) Stat(path string) (EntryKind, error) {
	// First, check the cache
	cached, ok := func() (statResult, bool) {
		fs.statMutex.RLock()
		defer fs.statMutex.RUnlock()
		cached, ok := fs.stats[path]
		return cached, ok
	}()

	// Cache hit: stop now
	if ok {
		return cached.kind, cached.err
	}

	// Cache miss: ask the operating system
	kind, err := statKind(path)

	fs.statMutex.Lock()
	defer fs.statMutex.Unlock()
	fs.stats[path] = statResult{kind: kind, err: err}
	return kind, err
}

func (fs *realFS) Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func (fs *realFS) Abs(p string) (string, bool) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(fs.cwd, p)
	}
	return filepath.Clean(p), true
}

func (*realFS) Dir(p string) string {
	return filepath.Dir(p)
}

func (*realFS) Base(p string) string {
	return filepath.Base(p)
}

func (*realFS) Ext(p string) string {
	return filepath.Ext(p)
}

func (*realFS) Join(parts ...string) string {
	return filepath.Clean(filepath.Join(parts...))
}

func (fs *realFS) Cwd() string {
	return fs.cwd
}

func (fs *realFS) RelativeToCwd(path string) (string, bool) {
	if rel, err := filepath.Rel(fs.cwd, path); err == nil {
		return rel, true
	}
	return "", false
}
