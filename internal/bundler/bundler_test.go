package bundler

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dat2/rpack/internal/fs"
	"github.com/dat2/rpack/internal/graph"
	"github.com/dat2/rpack/internal/logging"
	"github.com/dat2/rpack/internal/resolver"
	"github.com/dat2/rpack/internal/test"
)

type bundled struct {
	files           map[string]string
	links           map[string]string
	entryPath       string
	searchRoots     []string
	expected        string
	expectedScanLog string
	expectedError   string
}

func scan(t *testing.T, args bundled) (*graph.Graph, error) {
	t.Helper()
	fs := fs.MockFSWithLinks(args.files, args.links)
	log, done := logging.NewDeferLog()
	res := resolver.NewResolver(log, fs, args.searchRoots)
	g, err := ScanBundle(log, fs, res, args.entryPath)
	test.AssertEqual(t, test.MsgsToString(done()), args.expectedScanLog)
	return g, err
}

// Module IDs are hashes, so they are replaced by "[path]" to keep
// expectations readable
func replaceModuleIDs(t *testing.T, g *graph.Graph, js string) string {
	t.Helper()
	ids, err := assignModuleIDs(g, g.DFSOrder())
	if err != nil {
		t.Fatal(err)
	}
	for i, id := range ids {
		if id == "" {
			continue
		}
		label := "[" + g.Modules[i].Path + "]"
		js = strings.ReplaceAll(js, "\""+id+"\"", label)
		js = strings.ReplaceAll(js, id, label)
	}
	return js
}

func expectBundled(t *testing.T, args bundled) {
	t.Helper()
	t.Run("", func(t *testing.T) {
		t.Helper()
		g, err := scan(t, args)
		if err != nil {
			test.AssertEqual(t, err.Error(), args.expectedError)
			return
		}
		js, err := Compile(g, Options{OmitRuntimeForTests: true})
		if err != nil {
			test.AssertEqual(t, err.Error(), args.expectedError)
			return
		}
		test.AssertEqual(t, args.expectedError, "")
		test.AssertEqual(t, replaceModuleIDs(t, g, string(js)), args.expected)
	})
}

func TestTwoModules(t *testing.T) {
	expectBundled(t, bundled{
		files: map[string]string{
			"/entry.js": "import x from './a.js'\n",
			"/a.js":     "var x\n",
		},
		entryPath: "/entry.js",
		expected: `var modules = { [/entry.js]: (module, exports, _rpack_require) => {
  var x = _rpack_require([/a.js]);
}, [/a.js]: (module, exports, _rpack_require) => {
  var x;
} };
_rpack_bootstrap(modules, [/entry.js]);
`,
	})
}

func TestTwoModulesIDs(t *testing.T) {
	g, err := scan(t, bundled{
		files: map[string]string{
			"/entry.js": "import x from './a.js'\n",
			"/a.js":     "var x\n",
		},
		entryPath: "/entry.js",
	})
	if err != nil {
		t.Fatal(err)
	}
	js, err := Compile(g, Options{OmitRuntimeForTests: true})
	if err != nil {
		t.Fatal(err)
	}

	entryID := ModuleID("import x from './a.js'\n")
	aID := ModuleID("var x\n")
	if entryID == aID {
		t.Fatalf("Expected distinct IDs, got %q twice", entryID)
	}
	test.AssertEqual(t, len(entryID), 16)
	test.AssertEqual(t, strings.ToLower(entryID), entryID)
	test.AssertEqual(t, strings.Contains(string(js), fmt.Sprintf("_rpack_bootstrap(modules, \"%s\");\n", entryID)), true)
	test.AssertEqual(t, strings.Contains(string(js), fmt.Sprintf("_rpack_require(\"%s\")", aID)), true)

	// The runtime comes first unless it's omitted
	full, err := Compile(g, Options{})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, strings.HasPrefix(string(full), "function _rpack_bootstrap(modules, entryId) {\n"), true)
	test.AssertEqual(t, strings.HasSuffix(string(full), string(js)), true)
}

func TestModuleID(t *testing.T) {
	// The first 16 hex characters of the SHA-512 digest of the empty string
	test.AssertEqual(t, ModuleID(""), "cf83e1357eefb8bd")
	test.AssertEqual(t, ModuleID("var x\n"), ModuleID("var x\n"))
}

func TestMissingRelativeImport(t *testing.T) {
	expectBundled(t, bundled{
		files: map[string]string{
			"/entry.js": "import x from './missing.js'\n",
		},
		entryPath:       "/entry.js",
		expectedScanLog: "entry.js:1:14: error: Could not resolve \"./missing.js\"\n",
		expectedError:   "Could not resolve \"./missing.js\" from \"/entry.js\"",
	})

	_, err := scan(t, bundled{
		files: map[string]string{
			"/entry.js": "import x from './missing.js'\n",
		},
		entryPath:       "/entry.js",
		expectedScanLog: "entry.js:1:14: error: Could not resolve \"./missing.js\"\n",
	})
	var resolveErr *resolver.ResolveError
	if !errors.As(err, &resolveErr) {
		t.Fatalf("Expected a resolve error, got %v", err)
	}
	test.AssertEqual(t, resolveErr.Specifier, "./missing.js")
}

func TestMissingEntry(t *testing.T) {
	expectBundled(t, bundled{
		files:           map[string]string{},
		entryPath:       "/entry.js",
		expectedScanLog: "error: Could not resolve \"/entry.js\"\n",
		expectedError:   "Could not resolve \"/entry.js\"",
	})
}

func TestBareImportSearchRoot(t *testing.T) {
	files := map[string]string{
		"/src/entry.js":          "import x from 'lib'\n",
		"/tmp/root/lib/index.js": "var x = 1\n",
	}
	expectBundled(t, bundled{
		files:       files,
		entryPath:   "/src/entry.js",
		searchRoots: []string{"/tmp/root"},
		expected: `var modules = { [/src/entry.js]: (module, exports, _rpack_require) => {
  var x = _rpack_require([/tmp/root/lib/index.js]);
}, [/tmp/root/lib/index.js]: (module, exports, _rpack_require) => {
  var x = 1;
} };
_rpack_bootstrap(modules, [/src/entry.js]);
`,
	})

	g, err := scan(t, bundled{files: files, entryPath: "/src/entry.js", searchRoots: []string{"/tmp/root"}})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, g.Modules[1].Path, "/tmp/root/lib/index.js")

	// Without the root, the bare import has nowhere to go
	expectBundled(t, bundled{
		files:           files,
		entryPath:       "/src/entry.js",
		expectedScanLog: "src/entry.js:1:14: error: Could not resolve \"lib\"\n",
		expectedError:   "Could not resolve \"lib\" from \"/src/entry.js\"",
	})
}

func TestCycle(t *testing.T) {
	args := bundled{
		files: map[string]string{
			"/a.js": "import b from './b.js'\nvar a = 1\n",
			"/b.js": "import a from './a.js'\nvar b = 2\n",
		},
		entryPath: "/a.js",
		expected: `var modules = { [/a.js]: (module, exports, _rpack_require) => {
  var b = _rpack_require([/b.js]);
  var a = 1;
}, [/b.js]: (module, exports, _rpack_require) => {
  var a = _rpack_require([/a.js]);
  var b = 2;
} };
_rpack_bootstrap(modules, [/a.js]);
`,
	}
	expectBundled(t, args)

	g, err := scan(t, args)
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, len(g.Modules), 2)
	test.AssertEqual(t, len(g.Edges), 2)
	test.AssertEqual(t, g.Edges[0], graph.Edge{From: 0, To: 1})
	test.AssertEqual(t, g.Edges[1], graph.Edge{From: 1, To: 0})
}

func TestSelfImport(t *testing.T) {
	expectBundled(t, bundled{
		files: map[string]string{
			"/a.js": "import self from './a.js'\n",
		},
		entryPath: "/a.js",
		expected: `var modules = { [/a.js]: (module, exports, _rpack_require) => {
  var self = _rpack_require([/a.js]);
} };
_rpack_bootstrap(modules, [/a.js]);
`,
	})
}

func TestDedupe(t *testing.T) {
	args := bundled{
		files: map[string]string{
			"/entry.js":  "import a from './a.js'\nimport b from './sub/b.js'\nimport again from './sub/../a'\n",
			"/a.js":      "var a\n",
			"/sub/b.js":  "import a from '../a.js'\nimport c from './link.js'\n",
			"/real/c.js": "import a from '../a.js'\n",
		},
		links: map[string]string{
			"/sub/link.js": "../real/c.js",
		},
		entryPath: "/entry.js",
		expected: `var modules = { [/entry.js]: (module, exports, _rpack_require) => {
  var a = _rpack_require([/a.js]);
  var b = _rpack_require([/sub/b.js]);
  var again = _rpack_require([/a.js]);
}, [/a.js]: (module, exports, _rpack_require) => {
  var a;
}, [/sub/b.js]: (module, exports, _rpack_require) => {
  var a = _rpack_require([/a.js]);
  var c = _rpack_require([/real/c.js]);
}, [/real/c.js]: (module, exports, _rpack_require) => {
  var a = _rpack_require([/a.js]);
} };
_rpack_bootstrap(modules, [/entry.js]);
`,
	}
	expectBundled(t, args)

	g, err := scan(t, args)
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, len(g.Modules), 4)
	test.AssertEqual(t, len(g.Edges), 6)
}

func TestImportForms(t *testing.T) {
	expectBundled(t, bundled{
		files: map[string]string{
			"/entry.js": `import './side-effect.js'
import def from './lib.js'
import * as ns from './lib.js'
import {a, b as c, default as d} from './lib.js'
import e, {f} from './lib.js'
import g, * as h from './lib.js'
import {} from './lib.js'
console.log(def, ns, a, c, d, e, f, g, h)
`,
			"/side-effect.js": "console.log('side effect')\n",
			"/lib.js":         "exports.a = 1\n",
		},
		entryPath: "/entry.js",
		expected: `var modules = { [/entry.js]: (module, exports, _rpack_require) => {
  _rpack_require([/side-effect.js]);
  var def = _rpack_require([/lib.js]);
  var ns = _rpack_require([/lib.js]);
  var { a, b: c, default: d } = _rpack_require([/lib.js]);
  var e = _rpack_require([/lib.js]), { f } = e;
  var g = _rpack_require([/lib.js]), h = g;
  var {} = _rpack_require([/lib.js]);
  console.log(def, ns, a, c, d, e, f, g, h);
}, [/side-effect.js]: (module, exports, _rpack_require) => {
  console.log("side effect");
}, [/lib.js]: (module, exports, _rpack_require) => {
  exports.a = 1;
} };
_rpack_bootstrap(modules, [/entry.js]);
`,
	})
}

func TestNestedCodeIsUnchanged(t *testing.T) {
	expectBundled(t, bundled{
		files: map[string]string{
			"/entry.js": `import x from './a.js'
function f() {
  var import_ = 1
  return x + import_
}
if (f()) {
  label: for (;;) break label
}
`,
			"/a.js": "var x\n",
		},
		entryPath: "/entry.js",
		expected: `var modules = { [/entry.js]: (module, exports, _rpack_require) => {
  var x = _rpack_require([/a.js]);
  function f() {
    var import_ = 1;
    return x + import_;
  }
  if (f()) {
    label:
      for (;;)
        break label;
  }
}, [/a.js]: (module, exports, _rpack_require) => {
  var x;
} };
_rpack_bootstrap(modules, [/entry.js]);
`,
	})
}

func TestIdenticalContents(t *testing.T) {
	g, err := scan(t, bundled{
		files: map[string]string{
			"/entry.js":  "import a from './a/same.js'\nimport b from './b/same.js'\n",
			"/a/same.js": "import x from './x.js'\n",
			"/b/same.js": "import x from './x.js'\n",
			"/a/x.js":    "var x = 'a'\n",
			"/b/x.js":    "var x = 'b'\n",
		},
		entryPath: "/entry.js",
	})
	if err != nil {
		t.Fatal(err)
	}

	ids, err := assignModuleIDs(g, g.DFSOrder())
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]bool)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("Duplicate module ID %q", id)
		}
		seen[id] = true
	}

	// The first one in DFS order keeps the plain content hash
	a, _ := g.Lookup("/a/same.js")
	b, _ := g.Lookup("/b/same.js")
	test.AssertEqual(t, ids[a], ModuleID("import x from './x.js'\n"))
	test.AssertEqual(t, ids[b], ModuleID("/b/same.js\x00import x from './x.js'\n"))
}

func TestHTMLAndCSS(t *testing.T) {
	expectBundled(t, bundled{
		files: map[string]string{
			"/index.html": `<link rel="stylesheet" href="style.css"><script src="./main.js"></script>`,
			"/style.css":  `@import "./reset.css";`,
			"/reset.css":  "a{}",
			"/main.js":    "import text from './data.txt'\n",
			"/data.txt":   "hello",
		},
		entryPath: "/index.html",
		expected: `var modules = { [/index.html]: (module, exports, _rpack_require) => {
  _rpack_require([/style.css]);
  _rpack_require([/main.js]);
  module.exports = '<link rel="stylesheet" href="style.css"><script src="./main.js"><\/script>';
}, [/style.css]: (module, exports, _rpack_require) => {
  _rpack_require([/reset.css]);
  module.exports = '@import "./reset.css";';
}, [/reset.css]: (module, exports, _rpack_require) => {
  module.exports = "a{}";
}, [/main.js]: (module, exports, _rpack_require) => {
  var text = _rpack_require([/data.txt]);
}, [/data.txt]: (module, exports, _rpack_require) => {
  module.exports = "hello";
} };
_rpack_bootstrap(modules, [/index.html]);
`,
	})
}

func TestMissingStylesheet(t *testing.T) {
	expectBundled(t, bundled{
		files: map[string]string{
			"/index.html": `<link rel="stylesheet" href="missing.css">`,
		},
		entryPath:       "/index.html",
		expectedScanLog: "index.html:1:29: error: Could not resolve \"missing.css\"\n",
		expectedError:   "Could not resolve \"./missing.css\" from \"/index.html\"",
	})
}

func TestSyntaxErrorInDependency(t *testing.T) {
	args := bundled{
		files: map[string]string{
			"/entry.js":   "import x from './ok.js'\nimport y from './sub/bad.js'\n",
			"/ok.js":      "var x\n",
			"/sub/bad.js": "var 1\n",
		},
		entryPath:       "/entry.js",
		expectedScanLog: "sub/bad.js:1:4: error: Expected identifier but found \"1\"\n",
		expectedError:   "sub/bad.js:1:4: error: Expected identifier but found \"1\"",
	}
	expectBundled(t, args)

	_, err := scan(t, args)
	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("Expected a syntax error, got %v", err)
	}
	test.AssertEqual(t, syntaxErr.Path, "/sub/bad.js")
}

func TestLexerErrorInEntry(t *testing.T) {
	expectBundled(t, bundled{
		files: map[string]string{
			"/entry.js": "var x = 'abc\n",
		},
		entryPath:       "/entry.js",
		expectedScanLog: "entry.js:1:12: error: Unterminated string literal\n",
		expectedError:   "entry.js:1:12: error: Unterminated string literal",
	})
}

// Errors are reported in depth-first order no matter which file finishes first
func TestFirstErrorIsDeterministic(t *testing.T) {
	for i := 0; i < 20; i++ {
		fs := fs.MockFS(map[string]string{
			"/entry.js": "import a from './a.js'\nimport b from './b.js'\n",
			"/a.js":     "import c from './c.js'\n",
			"/b.js":     "var 1\n",
			"/c.js":     "import d from './missing.js'\n",
		})
		log, done := logging.NewDeferLog()
		res := resolver.NewResolver(log, fs, nil)
		_, err := ScanBundle(log, fs, res, "/entry.js")
		done()
		test.AssertEqual(t, err.Error(), "Could not resolve \"./missing.js\" from \"/c.js\"")
	}
}

type failingFS struct {
	fs.FS
	path string
}

func (f failingFS) ReadFile(path string) (string, error) {
	if path == f.path {
		return "", errPermission
	}
	return f.FS.ReadFile(path)
}

var errPermission = errors.New("permission denied")

func TestReadError(t *testing.T) {
	mock := fs.MockFS(map[string]string{
		"/entry.js":  "import x from './locked.js'\n",
		"/locked.js": "var x\n",
	})
	log, done := logging.NewDeferLog()
	fs := failingFS{FS: mock, path: "/locked.js"}
	res := resolver.NewResolver(log, fs, nil)
	_, err := ScanBundle(log, fs, res, "/entry.js")
	test.AssertEqual(t, test.MsgsToString(done()), "error: Could not read \"locked.js\": permission denied\n")

	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Expected an I/O error, got %v", err)
	}
	test.AssertEqual(t, ioErr.Path, "/locked.js")
	test.AssertEqual(t, errors.Is(err, errPermission), true)
}

func TestDeterministicOutput(t *testing.T) {
	files := map[string]string{
		"/entry.js":  "import a from './a.js'\nimport b from './b.js'\nimport c from './c.js'\n",
		"/a.js":      "import d from './d.js'\nimport shared from './shared.js'\n",
		"/b.js":      "import shared from './shared.js'\nimport e from './e.js'\n",
		"/c.js":      "import e from './e.js'\nimport a from './a.js'\n",
		"/d.js":      "var d\n",
		"/e.js":      "import d from './d.js'\n",
		"/shared.js": "var shared\n",
	}

	var first string
	for i := 0; i < 20; i++ {
		g, err := scan(t, bundled{files: files, entryPath: "/entry.js"})
		if err != nil {
			t.Fatal(err)
		}
		order := []string{}
		for _, module := range g.Modules {
			order = append(order, module.Path)
		}
		test.AssertEqual(t, strings.Join(order, " "), "/entry.js /a.js /d.js /shared.js /b.js /e.js /c.js")

		js, err := Compile(g, Options{})
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			first = string(js)
		} else {
			test.AssertEqual(t, string(js), first)
		}
	}
}

func TestLongImportChain(t *testing.T) {
	const count = 2000
	files := make(map[string]string, count)
	for i := 0; i < count; i++ {
		if i+1 < count {
			files[fmt.Sprintf("/m%d.js", i)] = fmt.Sprintf("import next from './m%d.js'\n", i+1)
		} else {
			files[fmt.Sprintf("/m%d.js", i)] = "var last\n"
		}
	}

	g, err := scan(t, bundled{files: files, entryPath: "/m0.js"})
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, len(g.Modules), count)
	test.AssertEqual(t, len(g.Edges), count-1)

	if _, err := Compile(g, Options{}); err != nil {
		t.Fatal(err)
	}
}

func TestCompileMissingDependency(t *testing.T) {
	log, done := logging.NewDeferLog()
	fs := fs.MockFS(map[string]string{
		"/entry.js": "import x from './a.js'\n",
		"/a.js":     "var x\n",
	})
	res := resolver.NewResolver(log, fs, nil)
	g, err := ScanBundle(log, fs, res, "/entry.js")
	done()
	if err != nil {
		t.Fatal(err)
	}

	// Drop the edge so the import has no registered target
	g.Modules[0].Deps = nil
	_, err = Compile(g, Options{})
	var internalErr *InternalError
	if !errors.As(err, &internalErr) {
		t.Fatalf("Expected an internal error, got %v", err)
	}
	test.AssertEqual(t, err.Error(), "Internal error: The import \"./a.js\" in \"/entry.js\" was never resolved")

	// Point the edge at a module that doesn't exist
	g.Modules[0].Deps = []graph.Dep{{Specifier: "./a.js", Loc: logging.Loc{Start: 14}, Target: 7}}
	_, err = Compile(g, Options{})
	if !errors.As(err, &internalErr) {
		t.Fatalf("Expected an internal error, got %v", err)
	}
	test.AssertEqual(t, err.Error(), "Internal error: The import \"./a.js\" in \"/entry.js\" refers to module 7 of 2")

	// Point the entry outside of the graph
	g.Modules[0].Deps = nil
	g.Entry = 2
	_, err = Compile(g, Options{})
	test.AssertEqual(t, err.Error(), "Internal error: The entry 2 is out of bounds for 2 modules")

	_, err = Compile(graph.New(), Options{})
	test.AssertEqual(t, err.Error(), "Internal error: The graph has no modules")
}

func TestBundle(t *testing.T) {
	log, done := logging.NewDeferLog()
	js, err := Bundle(log, fs.MockFS(map[string]string{
		"/src/entry.js":          "import x from 'lib'\n",
		"/tmp/root/lib/index.js": "var x = 1\n",
	}), Options{
		EntryPath:           "src/entry.js",
		SearchRoots:         []string{"/tmp/root", "/does/not/exist"},
		OmitRuntimeForTests: true,
	})
	test.AssertEqual(t, test.MsgsToString(done()),
		"warning: Ignoring search root \"/does/not/exist\": canonicalize /does/not/exist: no such file or directory\n")
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, strings.Count(string(js), "(module, exports, _rpack_require) =>"), 2)
}

func TestReservedNameWarning(t *testing.T) {
	expectBundled(t, bundled{
		files: map[string]string{
			"/entry.js": "var _rpack_require = 1\nfunction f(_rpack_require) {}\n",
		},
		entryPath: "/entry.js",
		expectedScanLog: `entry.js:1:4: warning: The name "_rpack_require" is reserved by the bundle runtime
entry.js:2:11: warning: The name "_rpack_require" is reserved by the bundle runtime
`,
		expected: `var modules = { [/entry.js]: (module, exports, _rpack_require) => {
  var _rpack_require = 1;
  function f(_rpack_require) {
  }
} };
_rpack_bootstrap(modules, [/entry.js]);
`,
	})
}
