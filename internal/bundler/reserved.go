package bundler

import (
	"github.com/dat2/rpack/internal/js_ast"
	"github.com/dat2/rpack/internal/logging"
	"github.com/dat2/rpack/internal/runtime"
)

// Finds declarations of the name that every module function receives as its
// require parameter. Such a declaration shadows the parameter, so the
// rewritten imports after it would call the user's value instead.
type reservedNameFinder struct {
	found []js_ast.LocName
}

func (f *reservedNameFinder) check(name *js_ast.LocName) {
	if name != nil && name.Name == runtime.RequireName {
		f.found = append(f.found, *name)
	}
}

func (f *reservedNameFinder) VisitStmt(stmt js_ast.Stmt) bool {
	switch s := stmt.Data.(type) {
	case *js_ast.SFunction:
		f.check(s.Fn.Name)
	case *js_ast.SImport:
		f.check(s.DefaultName)
		f.check(s.NamespaceName)
		if s.Items != nil {
			for i := range *s.Items {
				f.check(&(*s.Items)[i].Name)
			}
		}
	}
	return true
}

func (f *reservedNameFinder) VisitExpr(expr js_ast.Expr) bool {
	if e, ok := expr.Data.(*js_ast.EFunction); ok {
		f.check(e.Fn.Name)
	}
	return true
}

func (f *reservedNameFinder) VisitBinding(binding js_ast.Binding) bool {
	if b, ok := binding.Data.(*js_ast.BIdentifier); ok && b.Name == runtime.RequireName {
		f.found = append(f.found, js_ast.LocName{Loc: binding.Loc, Name: b.Name})
	}
	return true
}

// Warns about each declaration of a reserved name. The module is still
// bundled since code that never imports anything works either way.
func warnAboutReservedNames(log logging.Log, source logging.Source, tree js_ast.AST) {
	finder := reservedNameFinder{}
	js_ast.Walk(&finder, tree.Stmts)
	for _, name := range finder.found {
		log.AddRangeWarning(source, logging.Range{Loc: name.Loc, Len: int32(len(name.Name))},
			"The name \""+name.Name+"\" is reserved by the bundle runtime")
	}
}
