package js_printer

import (
	"testing"

	"github.com/dat2/rpack/internal/js_ast"
	"github.com/dat2/rpack/internal/js_parser"
	"github.com/dat2/rpack/internal/logging"
	"github.com/dat2/rpack/internal/test"
)

func expectPrintedCommon(t *testing.T, name string, contents string, expected string, options Options) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		t.Helper()
		log, done := logging.NewDeferLog()
		tree, ok := js_parser.Parse(log, test.SourceForTest(contents), js_parser.ParseOptions{})
		test.AssertEqual(t, test.MsgsToString(done()), "")
		if !ok {
			t.Fatal("Parse error")
		}
		js := Print(tree, options).JS
		test.AssertEqual(t, string(js), expected)

		// Printing must be stable: parsing the output and printing it again
		// gives back the same text
		log, done = logging.NewDeferLog()
		reparsed, ok := js_parser.Parse(log, test.SourceForTest(string(js)), js_parser.ParseOptions{})
		test.AssertEqual(t, test.MsgsToString(done()), "")
		if !ok {
			t.Fatal("Parse error in printed output")
		}
		test.AssertEqual(t, string(Print(reparsed, options).JS), string(js))
	})
}

func expectPrinted(t *testing.T, contents string, expected string) {
	t.Helper()
	expectPrintedCommon(t, contents, contents, expected, Options{})
}

func expectPrintedIndent(t *testing.T, contents string, expected string) {
	t.Helper()
	expectPrintedCommon(t, contents+" [indented]", contents, expected, Options{Indent: 1})
}

func TestNumber(t *testing.T) {
	expectPrinted(t, "0", "0;\n")
	expectPrinted(t, "1.5", "1.5;\n")
	expectPrinted(t, "0.5", "0.5;\n")
	expectPrinted(t, "0x10", "16;\n")
	expectPrinted(t, "1e3", "1000;\n")
	expectPrinted(t, "1e21", "1e21;\n")
	expectPrinted(t, "1e-7", "1e-7;\n")
	expectPrinted(t, "-1", "-1;\n")
	expectPrinted(t, "1..toString()", "1 .toString();\n")
	expectPrinted(t, "1.5.toString()", "1.5.toString();\n")
	expectPrinted(t, "(-1) ** 2", "(-1) ** 2;\n")
}

func TestString(t *testing.T) {
	expectPrinted(t, "'abc'", "\"abc\";\n")
	expectPrinted(t, "'a\"b'", "'a\"b';\n")
	expectPrinted(t, "\"it's\"", "\"it's\";\n")
	expectPrinted(t, "'\\n\\t\\\\'", "\"\\n\t\\\\\";\n")
	expectPrinted(t, "'\\0'", "\"\\0\";\n")
	expectPrinted(t, "'\\x001'", "\"\\x001\";\n")
	expectPrinted(t, "'\\u2028'", "\"\\u2028\";\n")
	expectPrinted(t, "'\\ud83d\\ude00'", "\"\U0001F600\";\n")
	expectPrinted(t, "'\\ud83d'", "\"\\uD83D\";\n")
	expectPrinted(t, "'</script>'", "\"<\\/script>\";\n")
}

func TestTemplate(t *testing.T) {
	expectPrinted(t, "`abc`", "`abc`;\n")
	expectPrinted(t, "`a${b}c${d}e`", "`a${b}c${d}e`;\n")
	expectPrinted(t, "`a\\nb`", "`a\\nb`;\n")
	expectPrinted(t, "tag`a${b}c`", "tag`a${b}c`;\n")
	expectPrinted(t, "String.raw`\\n`", "String.raw`\\n`;\n")
	expectPrinted(t, "(a?.b)`c`", "(a?.b)`c`;\n")
}

func TestRegExp(t *testing.T) {
	expectPrinted(t, "/x/g", "/x/g;\n")
	expectPrinted(t, "/x/g.test(y)", "/x/g.test(y);\n")
	expectPrinted(t, "a / /b/", "a / /b/;\n")
	expectPrinted(t, "x = /[/]/", "x = /[/]/;\n")
}

func TestUnary(t *testing.T) {
	expectPrinted(t, "+a", "+a;\n")
	expectPrinted(t, "- -a", "- -a;\n")
	expectPrinted(t, "+ +a", "+ +a;\n")
	expectPrinted(t, "- --a", "- --a;\n")
	expectPrinted(t, "a + +b", "a + +b;\n")
	expectPrinted(t, "a - -b", "a - -b;\n")
	expectPrinted(t, "a-- > b", "a-- > b;\n")
	expectPrinted(t, "!a", "!a;\n")
	expectPrinted(t, "typeof a", "typeof a;\n")
	expectPrinted(t, "void 0", "void 0;\n")
	expectPrinted(t, "delete a.b", "delete a.b;\n")
	expectPrinted(t, "typeof (a + b)", "typeof (a + b);\n")
	expectPrinted(t, "(a++).b", "(a++).b;\n")
}

func TestBinary(t *testing.T) {
	expectPrinted(t, "a + b * c", "a + b * c;\n")
	expectPrinted(t, "(a + b) * c", "(a + b) * c;\n")
	expectPrinted(t, "a - (b - c)", "a - (b - c);\n")
	expectPrinted(t, "(a - b) - c", "a - b - c;\n")
	expectPrinted(t, "a ** b ** c", "a ** b ** c;\n")
	expectPrinted(t, "(a ** b) ** c", "(a ** b) ** c;\n")
	expectPrinted(t, "(-a) ** b", "(-a) ** b;\n")
	expectPrinted(t, "a ** -b", "a ** -b;\n")
	expectPrinted(t, "(++a) ** b", "++a ** b;\n")
	expectPrinted(t, "a in b", "a in b;\n")
	expectPrinted(t, "a instanceof b", "a instanceof b;\n")
	expectPrinted(t, "(a, b)", "a, b;\n")
	expectPrinted(t, "f((a, b))", "f((a, b));\n")
}

func TestNullishCoalescing(t *testing.T) {
	expectPrinted(t, "a ?? b", "a ?? b;\n")
	expectPrinted(t, "a ?? (b || c)", "a ?? (b || c);\n")
	expectPrinted(t, "(a && b) ?? c", "(a && b) ?? c;\n")
	expectPrinted(t, "(a ?? b) || c", "(a ?? b) || c;\n")
	expectPrinted(t, "a && (b ?? c)", "a && (b ?? c);\n")
	expectPrinted(t, "a ?? b ?? c", "a ?? b ?? c;\n")
}

func TestConditional(t *testing.T) {
	expectPrinted(t, "a ? b : c", "a ? b : c;\n")
	expectPrinted(t, "(a ? b : c) ? d : e", "(a ? b : c) ? d : e;\n")
	expectPrinted(t, "a ? b ? c : d : e", "a ? b ? c : d : e;\n")
	expectPrinted(t, "a ? (b, c) : d", "a ? (b, c) : d;\n")
}

func TestAssign(t *testing.T) {
	expectPrinted(t, "a = b", "a = b;\n")
	expectPrinted(t, "a = b = c", "a = b = c;\n")
	expectPrinted(t, "(a = b) + c", "(a = b) + c;\n")
	expectPrinted(t, "a += b", "a += b;\n")
	expectPrinted(t, "a **= b", "a **= b;\n")
	expectPrinted(t, "a ??= b", "a ??= b;\n")
	expectPrinted(t, "a.b[c] = d", "a.b[c] = d;\n")
	expectPrinted(t, "[a, b] = c", "[a, b] = c;\n")
	expectPrinted(t, "[a, , ...b] = c", "[a, , ...b] = c;\n")
	expectPrinted(t, "({a} = b)", "({ a } = b);\n")
	expectPrinted(t, "({a = 1} = b)", "({ a = 1 } = b);\n")
	expectPrinted(t, "({a: [b] = c} = d)", "({ a: [b] = c } = d);\n")
	expectPrinted(t, "[a.b] = c", "[a.b] = c;\n")
	expectPrinted(t, "x = {a} = b", "x = { a } = b;\n")
}

func TestCall(t *testing.T) {
	expectPrinted(t, "a()", "a();\n")
	expectPrinted(t, "a(b, c)", "a(b, c);\n")
	expectPrinted(t, "a(...b)", "a(...b);\n")
	expectPrinted(t, "a.b(c)", "a.b(c);\n")
	expectPrinted(t, "a[b](c)", "a[b](c);\n")
	expectPrinted(t, "(function() {})()", "(function() {\n})();\n")
}

func TestNew(t *testing.T) {
	expectPrinted(t, "new a", "new a();\n")
	expectPrinted(t, "new a()", "new a();\n")
	expectPrinted(t, "new a(b, c)", "new a(b, c);\n")
	expectPrinted(t, "new a.b()", "new a.b();\n")
	expectPrinted(t, "new (a())()", "new (a())();\n")
	expectPrinted(t, "new (a().b)()", "new (a()).b();\n")
	expectPrinted(t, "(new a).b", "new a().b;\n")
	expectPrinted(t, "new (new a)()", "new new a()();\n")
}

func TestOptionalChain(t *testing.T) {
	expectPrinted(t, "a?.b", "a?.b;\n")
	expectPrinted(t, "a?.[b]", "a?.[b];\n")
	expectPrinted(t, "a?.(b)", "a?.(b);\n")
	expectPrinted(t, "a?.b.c", "a?.b.c;\n")
	expectPrinted(t, "a?.b[c](d)", "a?.b[c](d);\n")
	expectPrinted(t, "(a?.b).c", "(a?.b).c;\n")
	expectPrinted(t, "(a?.b)()", "(a?.b)();\n")
	expectPrinted(t, "(a?.b)[c]", "(a?.b)[c];\n")
	expectPrinted(t, "a?.b?.c", "a?.b?.c;\n")
}

func TestArray(t *testing.T) {
	expectPrinted(t, "[]", "[];\n")
	expectPrinted(t, "[,]", "[,];\n")
	expectPrinted(t, "[1, 2]", "[1, 2];\n")
	expectPrinted(t, "[1, , 2]", "[1, , 2];\n")
	expectPrinted(t, "[1, ,]", "[1, ,];\n")
	expectPrinted(t, "[...a, b]", "[...a, b];\n")
}

func TestObject(t *testing.T) {
	expectPrinted(t, "x = {}", "x = {};\n")
	expectPrinted(t, "({})", "({});\n")
	expectPrinted(t, "({}).x", "({}).x;\n")
	expectPrinted(t, "({} + 1)", "({}) + 1;\n")
	expectPrinted(t, "x = {a, b: c}", "x = { a, b: c };\n")
	expectPrinted(t, "x = {'a': b, 'c-d': e, 1: f}", "x = { a: b, \"c-d\": e, 1: f };\n")
	expectPrinted(t, "x = {[a]: b}", "x = { [a]: b };\n")
	expectPrinted(t, "x = {...a}", "x = { ...a };\n")
	expectPrinted(t, "x = {a() {}}", "x = { a() {\n} };\n")
	expectPrinted(t, "x = {*a() {}}", "x = { *a() {\n} };\n")
	expectPrinted(t, "x = {get a() { return 1 }}", "x = { get a() {\n  return 1;\n} };\n")
	expectPrinted(t, "x = {set a(b) {}}", "x = { set a(b) {\n} };\n")
	expectPrinted(t, "x = {get: 1, set: 2}", "x = { get: 1, set: 2 };\n")
	expectPrinted(t, "x = {get, set}", "x = { get, set };\n")
	expectPrinted(t, "x = {a: function() {}}", "x = { a: function() {\n} };\n")
}

func TestFunction(t *testing.T) {
	expectPrinted(t, "function f() {}", "function f() {\n}\n")
	expectPrinted(t, "function f(a, b = 1, ...c) { return a }", "function f(a, b = 1, ...c) {\n  return a;\n}\n")
	expectPrinted(t, "function f({a, b: [c]}, [d = 1]) {}", "function f({ a, b: [c] }, [d = 1]) {\n}\n")
	expectPrinted(t, "function* f() { yield; yield* a; yield b }", "function* f() {\n  yield;\n  yield* a;\n  yield b;\n}\n")
	expectPrinted(t, "x = function() {}", "x = function() {\n};\n")
	expectPrinted(t, "x = function f() {}", "x = function f() {\n};\n")
	expectPrinted(t, "x = function*() {}", "x = function* () {\n};\n")
	expectPrinted(t, "function* f() { x = (yield a) + 1 }", "function* f() {\n  x = (yield a) + 1;\n}\n")
}

func TestArrow(t *testing.T) {
	expectPrinted(t, "x = a => a", "x = (a) => a;\n")
	expectPrinted(t, "x = (a, b) => a + b", "x = (a, b) => a + b;\n")
	expectPrinted(t, "x = () => {}", "x = () => {\n};\n")
	expectPrinted(t, "x = () => ({})", "x = () => ({});\n")
	expectPrinted(t, "x = () => ({}).x", "x = () => ({}).x;\n")
	expectPrinted(t, "x = () => (a, b)", "x = () => (a, b);\n")
	expectPrinted(t, "x = ([a], {b}) => a", "x = ([a], { b }) => a;\n")
	expectPrinted(t, "x = (a = 1, ...b) => a", "x = (a = 1, ...b) => a;\n")
	expectPrinted(t, "(() => {})()", "(() => {\n})();\n")
	expectPrinted(t, "x = a || (() => {})", "x = a || (() => {\n});\n")
}

func TestLet(t *testing.T) {
	expectPrinted(t, "let x = 1", "let x = 1;\n")
	expectPrinted(t, "let", "(let);\n")
	expectPrinted(t, "let = 1", "(let) = 1;\n")
	expectPrinted(t, "let.x", "(let).x;\n")
	expectPrinted(t, "(let)[0] = 1", "(let)[0] = 1;\n")
	expectPrinted(t, "x = let", "x = let;\n")
}

func TestDecls(t *testing.T) {
	expectPrinted(t, "var a, b = 1", "var a, b = 1;\n")
	expectPrinted(t, "const a = 1", "const a = 1;\n")
	expectPrinted(t, "var {a, b: c, ...d} = e", "var { a, b: c, ...d } = e;\n")
	expectPrinted(t, "var {a = 1} = b", "var { a = 1 } = b;\n")
	expectPrinted(t, "var [a, [b], ...c] = d", "var [a, [b], ...c] = d;\n")
	expectPrinted(t, "var {'a-b': c} = d", "var { \"a-b\": c } = d;\n")
	expectPrinted(t, "var {[a]: b} = c", "var { [a]: b } = c;\n")
}

func TestIf(t *testing.T) {
	expectPrinted(t, "if (a) b", "if (a)\n  b;\n")
	expectPrinted(t, "if (a) { b }", "if (a) {\n  b;\n}\n")
	expectPrinted(t, "if (a) b; else c", "if (a)\n  b;\nelse\n  c;\n")
	expectPrinted(t, "if (a) { b } else { c }", "if (a) {\n  b;\n} else {\n  c;\n}\n")
	expectPrinted(t, "if (a) b; else if (c) d; else e", "if (a)\n  b;\nelse if (c)\n  d;\nelse\n  e;\n")
	expectPrinted(t, "if (a) { if (b) c } else d", "if (a) {\n  if (b)\n    c;\n} else\n  d;\n")
	expectPrinted(t, "if (a) if (b) c; else d", "if (a)\n  if (b)\n    c;\n  else\n    d;\n")
}

func TestAmbiguousElse(t *testing.T) {
	ident := func(name string) js_ast.Expr {
		return js_ast.Expr{Data: &js_ast.EIdentifier{Name: name}}
	}
	exprStmt := func(name string) js_ast.Stmt {
		return js_ast.Stmt{Data: &js_ast.SExpr{Value: ident(name)}}
	}

	// This can't come from the parser since the "else" would bind to the inner "if"
	no := exprStmt("d")
	inner := js_ast.Stmt{Data: &js_ast.SIf{Test: ident("b"), Yes: exprStmt("c")}}
	tree := js_ast.AST{Stmts: []js_ast.Stmt{{Data: &js_ast.SIf{Test: ident("a"), Yes: inner, No: &no}}}}
	test.AssertEqual(t, string(Print(tree, Options{}).JS), "if (a) {\n  if (b)\n    c;\n} else\n  d;\n")

	// The same is true through loops and labels
	loop := js_ast.Stmt{Data: &js_ast.SWhile{Test: ident("x"), Body: inner}}
	tree = js_ast.AST{Stmts: []js_ast.Stmt{{Data: &js_ast.SIf{Test: ident("a"), Yes: loop, No: &no}}}}
	test.AssertEqual(t, string(Print(tree, Options{}).JS), "if (a) {\n  while (x)\n    if (b)\n      c;\n} else\n  d;\n")
}

func TestLoops(t *testing.T) {
	expectPrinted(t, "while (a) b()", "while (a)\n  b();\n")
	expectPrinted(t, "while (a) {}", "while (a) {\n}\n")
	expectPrinted(t, "do a(); while (b)", "do\n  a();\nwhile (b);\n")
	expectPrinted(t, "do { a() } while (b)", "do {\n  a();\n} while (b);\n")
	expectPrinted(t, "for (;;) ;", "for (;;)\n  ;\n")
	expectPrinted(t, "for (var i = 0; i < n; i++) x()", "for (var i = 0; i < n; i++)\n  x();\n")
	expectPrinted(t, "for (i = 0; i < n; i++) {}", "for (i = 0; i < n; i++) {\n}\n")
	expectPrinted(t, "for ((a in b);;) ;", "for ((a in b);;)\n  ;\n")
	expectPrinted(t, "for (var a = (b in c);;) ;", "for (var a = (b in c);;)\n  ;\n")
	expectPrinted(t, "for (var a in b) {}", "for (var a in b) {\n}\n")
	expectPrinted(t, "for (a.b in c) {}", "for (a.b in c) {\n}\n")
	expectPrinted(t, "for (const [a, b] of c) {}", "for (const [a, b] of c) {\n}\n")
	expectPrinted(t, "for ([a, b] of c) {}", "for ([a, b] of c) {\n}\n")
	expectPrinted(t, "for (a of (b, c)) {}", "for (a of (b, c)) {\n}\n")
}

func TestLabels(t *testing.T) {
	expectPrinted(t, "foo: for (;;) break foo", "foo:\n  for (;;)\n    break foo;\n")
	expectPrinted(t, "foo: { break foo }", "foo: {\n  break foo;\n}\n")
	expectPrinted(t, "for (;;) continue", "for (;;)\n  continue;\n")
}

func TestSwitch(t *testing.T) {
	expectPrinted(t, "switch (a) {}", "switch (a) {\n}\n")
	expectPrinted(t, "switch (a) { case 1: b(); break; default: c() }",
		"switch (a) {\n  case 1:\n    b();\n    break;\n  default:\n    c();\n}\n")
	expectPrinted(t, "switch (a) { case 1: { b() } }", "switch (a) {\n  case 1: {\n    b();\n  }\n}\n")
	expectPrinted(t, "switch (a) { case 1: case 2: }", "switch (a) {\n  case 1:\n  case 2:\n}\n")
}

func TestTry(t *testing.T) {
	expectPrinted(t, "try { a() } catch (e) { b() }", "try {\n  a();\n} catch (e) {\n  b();\n}\n")
	expectPrinted(t, "try {} catch {}", "try {\n} catch {\n}\n")
	expectPrinted(t, "try {} finally {}", "try {\n} finally {\n}\n")
	expectPrinted(t, "try {} catch ({a}) {} finally { b() }", "try {\n} catch ({ a }) {\n} finally {\n  b();\n}\n")
	expectPrinted(t, "throw a", "throw a;\n")
}

func TestMisc(t *testing.T) {
	expectPrinted(t, ";", ";\n")
	expectPrinted(t, "{}", "{\n}\n")
	expectPrinted(t, "{ a }", "{\n  a;\n}\n")
	expectPrinted(t, "debugger", "debugger;\n")
	expectPrinted(t, "'use strict'", "\"use strict\";\n")
	expectPrinted(t, "this.a", "this.a;\n")
	expectPrinted(t, "null, true, false", "null, true, false;\n")
	expectPrinted(t, "function f() { return }", "function f() {\n  return;\n}\n")
}

func TestImport(t *testing.T) {
	expectPrinted(t, "import 'a'", "import \"a\";\n")
	expectPrinted(t, "import a from 'a'", "import a from \"a\";\n")
	expectPrinted(t, "import * as ns from 'a'", "import * as ns from \"a\";\n")
	expectPrinted(t, "import {} from 'a'", "import {} from \"a\";\n")
	expectPrinted(t, "import {a, b as c} from 'a'", "import { a, b as c } from \"a\";\n")
	expectPrinted(t, "import a, {b} from 'a'", "import a, { b } from \"a\";\n")
	expectPrinted(t, "import a, * as ns from 'a'", "import a, * as ns from \"a\";\n")
	expectPrinted(t, "import {default as a} from 'a'", "import { default as a } from \"a\";\n")
}

func TestHashbang(t *testing.T) {
	expectPrinted(t, "#!/usr/bin/env node\nfoo()", "#!/usr/bin/env node\nfoo();\n")
	expectPrinted(t, "#!/usr/bin/env node", "#!/usr/bin/env node\n")
}

func TestIndent(t *testing.T) {
	expectPrintedIndent(t, "a()", "  a();\n")
	expectPrintedIndent(t, "if (a) { b() }", "  if (a) {\n    b();\n  }\n")
	expectPrintedIndent(t, "function f() { return 1 }", "  function f() {\n    return 1;\n  }\n")
}

func TestPrintExpr(t *testing.T) {
	expr := js_ast.Expr{Data: &js_ast.EBinary{
		Op:    js_ast.BinOpMul,
		Left:  js_ast.Expr{Data: &js_ast.EBinary{Op: js_ast.BinOpAdd, Left: js_ast.Expr{Data: &js_ast.ENumber{Value: 1}}, Right: js_ast.Expr{Data: &js_ast.ENumber{Value: 2}}}},
		Right: js_ast.Expr{Data: &js_ast.EObject{}},
	}}
	test.AssertEqual(t, string(PrintExpr(expr, Options{}).JS), "(1 + 2) * {}")

	// Negative numbers built directly are wrapped where a unary operator would be
	expr = js_ast.Expr{Data: &js_ast.EDot{Target: js_ast.Expr{Data: &js_ast.ENumber{Value: -1}}, Name: "x"}}
	test.AssertEqual(t, string(PrintExpr(expr, Options{}).JS), "(-1).x")
}
