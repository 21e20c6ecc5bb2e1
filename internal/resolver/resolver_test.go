package resolver

import (
	"errors"
	"testing"

	"github.com/dat2/rpack/internal/fs"
	"github.com/dat2/rpack/internal/logging"
	"github.com/dat2/rpack/internal/test"
)

func newResolverForTest(files map[string]string, roots ...string) (*Resolver, string) {
	log, done := logging.NewDeferLog()
	r := NewResolver(log, fs.MockFS(files), roots)
	return r, test.MsgsToString(done())
}

func expectResolved(t *testing.T, r *Resolver, importer string, specifier string, expected string) {
	t.Helper()
	t.Run(importer+" "+specifier, func(t *testing.T) {
		t.Helper()
		result, err := r.Resolve(importer, specifier)
		if err != nil {
			t.Fatal(err)
		}
		test.AssertEqual(t, result, expected)
	})
}

func expectUnresolved(t *testing.T, r *Resolver, importer string, specifier string) {
	t.Helper()
	t.Run(importer+" "+specifier, func(t *testing.T) {
		t.Helper()
		_, err := r.Resolve(importer, specifier)
		var resolveErr *ResolveError
		if !errors.As(err, &resolveErr) {
			t.Fatalf("Expected a resolve error, got %v", err)
		}
		test.AssertEqual(t, resolveErr.Specifier, specifier)
		test.AssertEqual(t, resolveErr.Importer, importer)
	})
}

func TestRelative(t *testing.T) {
	r, _ := newResolverForTest(map[string]string{
		"/src/entry.js":          "",
		"/src/a.js":              "",
		"/src/b.mjs":             "",
		"/src/styles.css":        "",
		"/src/util/index.js":     "",
		"/src/util/helpers.js":   "",
		"/src/dir.js/index.js":   "",
		"/src/noindex/readme.md": "",
	})

	expectResolved(t, r, "/src/entry.js", "./a.js", "/src/a.js")
	expectResolved(t, r, "/src/entry.js", "./a", "/src/a.js")
	expectResolved(t, r, "/src/entry.js", "./b.mjs", "/src/b.mjs")
	expectResolved(t, r, "/src/entry.js", "./styles.css", "/src/styles.css")
	expectResolved(t, r, "/src/entry.js", "./util", "/src/util/index.js")
	expectResolved(t, r, "/src/entry.js", "./util/", "/src/util/index.js")
	expectResolved(t, r, "/src/entry.js", "./util/helpers", "/src/util/helpers.js")
	expectResolved(t, r, "/src/entry.js", "./dir.js", "/src/dir.js/index.js")
	expectResolved(t, r, "/src/util/helpers.js", "../a.js", "/src/a.js")
	expectResolved(t, r, "/src/util/helpers.js", ".", "/src/util/index.js")
	expectResolved(t, r, "/src/util/helpers.js", "./index.js", "/src/util/index.js")

	expectUnresolved(t, r, "/src/entry.js", "./missing.js")
	expectUnresolved(t, r, "/src/entry.js", "./missing")
	expectUnresolved(t, r, "/src/entry.js", "./noindex")
	expectUnresolved(t, r, "/src/entry.js", "./util/helpers.ts")
	expectUnresolved(t, r, "/src/entry.js", ".")
}

func TestSearchRoots(t *testing.T) {
	r, msgs := newResolverForTest(map[string]string{
		"/src/entry.js":               "",
		"/tmp/root/lib/index.js":      "",
		"/tmp/root/only-first.js":     "",
		"/other/only-first.js":        "",
		"/other/only-second.js":       "",
		"/other/pkg/sub/file.js":      "",
		"/src/node_modules/nested.js": "",
	}, "/tmp/root", "/missing/root", "/other")

	test.AssertEqual(t, msgs, "warning: Ignoring search root \"/missing/root\": canonicalize /missing/root: no such file or directory\n")
	test.AssertEqual(t, len(r.SearchRoots()), 2)

	expectResolved(t, r, "/src/entry.js", "lib", "/tmp/root/lib/index.js")
	expectResolved(t, r, "/src/entry.js", "lib/index.js", "/tmp/root/lib/index.js")
	expectResolved(t, r, "/src/entry.js", "only-first", "/tmp/root/only-first.js")
	expectResolved(t, r, "/src/entry.js", "only-second.js", "/other/only-second.js")
	expectResolved(t, r, "/src/entry.js", "pkg/sub/file", "/other/pkg/sub/file.js")

	// Bare specifiers never look next to the importer
	expectUnresolved(t, r, "/src/entry.js", "nested")
	expectUnresolved(t, r, "/src/entry.js", "a.js")
}

func TestResolveTwiceIsStable(t *testing.T) {
	r, _ := newResolverForTest(map[string]string{
		"/src/entry.js":    "",
		"/src/other.js":    "",
		"/src/lib/a.js":    "",
		"/root/b/index.js": "",
	}, "/root")

	for _, specifier := range []string{"./lib/a.js", "./lib/a", "b"} {
		first, err := r.Resolve("/src/entry.js", specifier)
		if err != nil {
			t.Fatal(err)
		}
		second, err := r.Resolve("/src/entry.js", specifier)
		if err != nil {
			t.Fatal(err)
		}
		test.AssertEqual(t, first, second)

		// The cache is keyed by directory, so a sibling importer shares the result
		third, err := r.Resolve("/src/other.js", specifier)
		if err != nil {
			t.Fatal(err)
		}
		test.AssertEqual(t, first, third)
	}

	// Different specifiers that name the same file agree on the path
	a, _ := r.Resolve("/src/entry.js", "./lib/a.js")
	b, _ := r.Resolve("/src/entry.js", "./lib/../lib/a")
	c, _ := r.Resolve("/src/lib/a.js", "./a.js")
	test.AssertEqual(t, a, "/src/lib/a.js")
	test.AssertEqual(t, b, a)
	test.AssertEqual(t, c, a)
}

func TestSymlinkedImport(t *testing.T) {
	log, done := logging.NewDeferLog()
	r := NewResolver(log, fs.MockFSWithLinks(map[string]string{
		"/src/entry.js":   "",
		"/shared/util.js": "",
	}, map[string]string{
		"/src/util.js": "../shared/util.js",
		"/src/linked":  "../shared",
	}), nil)
	done()

	expectResolved(t, r, "/src/entry.js", "./util.js", "/shared/util.js")
	expectResolved(t, r, "/src/entry.js", "./linked/util", "/shared/util.js")
}

func TestEntry(t *testing.T) {
	r, _ := newResolverForTest(map[string]string{
		"/src/entry.js":     "",
		"/src/app/index.js": "",
	})

	for _, input := range []string{"/src/entry.js", "src/entry.js", "src/entry", "/src/../src/entry.js"} {
		result, err := r.ResolveEntry(input)
		if err != nil {
			t.Fatal(err)
		}
		test.AssertEqual(t, result, "/src/entry.js")
	}

	result, err := r.ResolveEntry("src/app")
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, result, "/src/app/index.js")

	_, err = r.ResolveEntry("src/missing.js")
	var resolveErr *ResolveError
	if !errors.As(err, &resolveErr) {
		t.Fatalf("Expected a resolve error, got %v", err)
	}
	test.AssertEqual(t, resolveErr.Error(), "Could not resolve \"src/missing.js\"")
}
