package fs

import (
	"fmt"
	"testing"
)

func TestMockFSBasic(t *testing.T) {
	fs := MockFS(map[string]string{
		"/README.md":    "// README.md",
		"/src/index.js": "// src/index.js",
		"/src/util.js":  "// src/util.js",
	})

	// Test a missing file
	_, err := fs.ReadFile("/missing.txt")
	if err == nil || !IsNotExist(err) {
		t.Fatalf("Expected a not-exist error for /missing.txt, got %v", err)
	}

	// Test an existing file
	readme, err := fs.ReadFile("/README.md")
	if err != nil {
		t.Fatal("Expected to find /README.md")
	}
	if readme != "// README.md" {
		t.Fatalf("Incorrect contents for /README.md: %q", readme)
	}

	// Test an existing nested file
	index, err := fs.ReadFile("/src/index.js")
	if err != nil {
		t.Fatal("Expected to find /src/index.js")
	}
	if index != "// src/index.js" {
		t.Fatalf("Incorrect contents for /src/index.js: %q", index)
	}

	// Test stat
	if kind, err := fs.Stat("/src"); err != nil || kind != DirEntry {
		t.Fatalf("Expected /src to be a directory, got %v %v", kind, err)
	}
	if kind, err := fs.Stat("/"); err != nil || kind != DirEntry {
		t.Fatalf("Expected / to be a directory, got %v %v", kind, err)
	}
	if kind, err := fs.Stat("/src/util.js"); err != nil || kind != FileEntry {
		t.Fatalf("Expected /src/util.js to be a file, got %v %v", kind, err)
	}
	if _, err := fs.Stat("/missing"); !IsNotExist(err) {
		t.Fatalf("Expected a not-exist error for /missing, got %v", err)
	}
}

func TestMockFSCanonicalize(t *testing.T) {
	fs := MockFSWithLinks(map[string]string{
		"/src/index.js":        "",
		"/real/lib/index.js":   "",
		"/other/file.js":       "",
		"/loop/placeholder.js": "",
	}, map[string]string{
		"/src/lib":    "../real/lib",
		"/src/abs.js": "/other/file.js",
		"/loop/a":     "b",
		"/loop/b":     "a",
	})

	expect := func(input string, output string) {
		t.Helper()
		t.Run(fmt.Sprintf("Canonicalize(%q) == %q", input, output), func(t *testing.T) {
			t.Helper()
			result, err := fs.Canonicalize(input)
			if err != nil {
				t.Fatal(err)
			}
			if result != output {
				t.Fatalf("Expected %q, got %q", output, result)
			}
		})
	}

	expectMissing := func(input string) {
		t.Helper()
		t.Run(fmt.Sprintf("Canonicalize(%q) fails", input), func(t *testing.T) {
			t.Helper()
			if _, err := fs.Canonicalize(input); !IsNotExist(err) {
				t.Fatalf("Expected a not-exist error, got %v", err)
			}
		})
	}

	expect("/src/index.js", "/src/index.js")
	expect("/src/../src/./index.js", "/src/index.js")
	expect("src/index.js", "/src/index.js")
	expect("/src/lib/index.js", "/real/lib/index.js")
	expect("/src/lib", "/real/lib")
	expect("/src/abs.js", "/other/file.js")
	expect("/src", "/src")

	expectMissing("/src/missing.js")
	expectMissing("/src/lib/missing.js")
	expectMissing("/loop/a")
}

func TestMockFSRelativeToCwd(t *testing.T) {
	fs := MockFS(map[string]string{})

	expect := func(input string, output string) {
		t.Helper()
		rel, ok := fs.RelativeToCwd(input)
		if !ok {
			t.Fatalf("RelativeToCwd(%q) failed", input)
		}
		if rel != output {
			t.Fatalf("Expected %q, got %q", output, rel)
		}
	}

	expect("/", ".")
	expect("/a.js", "a.js")
	expect("/a/b/c.js", "a/b/c.js")
	expect("/a/../b.js", "b.js")

	if PrettyPath(fs, "/src/a.js") != "src/a.js" {
		t.Fatalf("Unexpected pretty path %q", PrettyPath(fs, "/src/a.js"))
	}
}
