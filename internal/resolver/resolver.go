package resolver

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dat2/rpack/internal/fs"
	"github.com/dat2/rpack/internal/logging"
)

// Returned when a specifier doesn't name an existing file. The importer is
// the canonical path of the file containing the import.
type ResolveError struct {
	Specifier string
	Importer  string
}

func (e *ResolveError) Error() string {
	if e.Importer == "" {
		return fmt.Sprintf("Could not resolve %q", e.Specifier)
	}
	return fmt.Sprintf("Could not resolve %q from %q", e.Specifier, e.Importer)
}

type cacheKey struct {
	dir       string
	specifier string
}

type Resolver struct {
	fs fs.FS

	// Canonical paths, in the order they are searched
	searchRoots []string

	// Stores the results of resolving a specifier from a directory. The
	// result of a relative specifier only depends on the importer's
	// directory, and bare specifiers don't depend on the importer at all.
	cacheMutex sync.Mutex
	cache      map[cacheKey]string
}

// Each search root is canonicalized once here. Roots that don't exist are
// dropped with a warning since nothing can ever resolve inside them.
func NewResolver(log logging.Log, fs fs.FS, searchRoots []string) *Resolver {
	canonicalRoots := []string{}
	for _, root := range searchRoots {
		if root == "" {
			continue
		}
		canonical, err := fs.Canonicalize(root)
		if err != nil {
			log.AddMsg(logging.Msg{
				Kind: logging.Warning,
				Text: fmt.Sprintf("Ignoring search root %q: %s", root, err.Error()),
			})
			continue
		}
		canonicalRoots = append(canonicalRoots, canonical)
	}

	return &Resolver{
		fs:          fs,
		searchRoots: canonicalRoots,
		cache:       make(map[cacheKey]string),
	}
}

func (r *Resolver) SearchRoots() []string {
	return r.searchRoots
}

func (r *Resolver) PrettyPath(path string) string {
	return fs.PrettyPath(r.fs, path)
}

func IsRelative(specifier string) bool {
	return strings.HasPrefix(specifier, ".")
}

// Maps a specifier in the file at "importerPath" to the canonical path of the
// imported file. Relative specifiers are resolved against the importer's
// directory and everything else is looked up in each search root in order.
func (r *Resolver) Resolve(importerPath string, specifier string) (string, error) {
	key := cacheKey{specifier: specifier}
	if IsRelative(specifier) {
		key.dir = r.fs.Dir(importerPath)
	}

	// First, check the cache
	cached, ok := func() (string, bool) {
		r.cacheMutex.Lock()
		defer r.cacheMutex.Unlock()
		cached, ok := r.cache[key]
		return cached, ok
	}()

	// Cache hit: stop now
	if ok {
		return cached, nil
	}

	// Cache miss: look at the file system
	var result string
	var found bool
	if IsRelative(specifier) {
		result, found = r.loadAsFileOrDirectory(r.fs.Join(key.dir, specifier))
	} else {
		for _, root := range r.searchRoots {
			if result, found = r.loadAsFileOrDirectory(r.fs.Join(root, specifier)); found {
				break
			}
		}
	}

	if !found {
		return "", &ResolveError{Specifier: specifier, Importer: importerPath}
	}

	r.cacheMutex.Lock()
	defer r.cacheMutex.Unlock()
	r.cache[key] = result
	return result, nil
}

// Resolves the path of an entry point given on the command line. This is
// always treated as a path, never as a bare specifier.
func (r *Resolver) ResolveEntry(path string) (string, error) {
	abs, ok := r.fs.Abs(path)
	if ok {
		if result, found := r.loadAsFileOrDirectory(abs); found {
			return result, nil
		}
	}
	return "", &ResolveError{Specifier: path}
}

// A directory becomes its "index.js" file and a path without an extension
// gets ".js" appended. The result must exist on the file system.
func (r *Resolver) loadAsFileOrDirectory(path string) (string, bool) {
	if kind, err := r.fs.Stat(path); err == nil && kind == fs.DirEntry {
		path = r.fs.Join(path, "index.js")
	} else if r.fs.Ext(path) == "" {
		path += ".js"
	}

	if kind, err := r.fs.Stat(path); err != nil || kind != fs.FileEntry {
		return "", false
	}

	canonical, err := r.fs.Canonicalize(path)
	if err != nil {
		return "", false
	}
	return canonical, true
}
