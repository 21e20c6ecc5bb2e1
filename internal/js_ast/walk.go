package js_ast

// A Visitor is called for every node during a walk, parents before children.
// Returning false from a method skips the children of that node.
type Visitor interface {
	VisitStmt(stmt Stmt) bool
	VisitExpr(expr Expr) bool
	VisitBinding(binding Binding) bool
}

func Walk(v Visitor, stmts []Stmt) {
	for _, stmt := range stmts {
		WalkStmt(v, stmt)
	}
}

func WalkStmt(v Visitor, stmt Stmt) {
	if !v.VisitStmt(stmt) {
		return
	}

	switch s := stmt.Data.(type) {
	case *SBlock:
		Walk(v, s.Stmts)

	case *SEmpty, *SDebugger, *SBreak, *SContinue, *SImport:

	case *SExpr:
		WalkExpr(v, s.Value)

	case *SFunction:
		walkFn(v, s.Fn)

	case *SLabel:
		WalkStmt(v, s.Stmt)

	case *SIf:
		WalkExpr(v, s.Test)
		WalkStmt(v, s.Yes)
		if s.No != nil {
			WalkStmt(v, *s.No)
		}

	case *SSwitch:
		WalkExpr(v, s.Test)
		for _, c := range s.Cases {
			if c.Value != nil {
				WalkExpr(v, *c.Value)
			}
			Walk(v, c.Body)
		}

	case *SThrow:
		WalkExpr(v, s.Value)

	case *STry:
		Walk(v, s.Body)
		if s.Catch != nil {
			if s.Catch.Binding != nil {
				WalkBinding(v, *s.Catch.Binding)
			}
			Walk(v, s.Catch.Body)
		}
		if s.Finally != nil {
			Walk(v, s.Finally.Stmts)
		}

	case *SWhile:
		WalkExpr(v, s.Test)
		WalkStmt(v, s.Body)

	case *SDoWhile:
		WalkStmt(v, s.Body)
		WalkExpr(v, s.Test)

	case *SFor:
		if s.Init != nil {
			WalkStmt(v, *s.Init)
		}
		if s.Test != nil {
			WalkExpr(v, *s.Test)
		}
		if s.Update != nil {
			WalkExpr(v, *s.Update)
		}
		WalkStmt(v, s.Body)

	case *SForIn:
		walkForInOfInit(v, s.Init)
		WalkExpr(v, s.Value)
		WalkStmt(v, s.Body)

	case *SForOf:
		walkForInOfInit(v, s.Init)
		WalkExpr(v, s.Value)
		WalkStmt(v, s.Body)

	case *SReturn:
		if s.Value != nil {
			WalkExpr(v, *s.Value)
		}

	case *SLocal:
		walkDecls(v, s.Decls)

	default:
		panic("Internal error")
	}
}

func WalkExpr(v Visitor, expr Expr) {
	if !v.VisitExpr(expr) {
		return
	}

	switch e := expr.Data.(type) {
	case *EBoolean, *ESuper, *ENull, *EThis, *EIdentifier, *EMissing, *ENumber, *EString, *ERegExp:

	case *EArray:
		walkExprs(v, e.Items)

	case *EUnary:
		WalkExpr(v, e.Value)

	case *EBinary:
		WalkExpr(v, e.Left)
		WalkExpr(v, e.Right)

	case *EAssign:
		walkExprOrBinding(v, e.Target)
		WalkExpr(v, e.Value)

	case *ENew:
		WalkExpr(v, e.Target)
		walkExprs(v, e.Args)

	case *ECall:
		WalkExpr(v, e.Target)
		walkExprs(v, e.Args)

	case *EDot:
		WalkExpr(v, e.Target)

	case *EIndex:
		WalkExpr(v, e.Target)
		WalkExpr(v, e.Index)

	case *EArrow:
		walkArgs(v, e.Args)
		Walk(v, e.Body.Stmts)

	case *EFunction:
		walkFn(v, e.Fn)

	case *ETemplate:
		if e.Tag != nil {
			WalkExpr(v, *e.Tag)
		}
		for _, part := range e.Parts {
			WalkExpr(v, part.Value)
		}

	case *EObject:
		for _, property := range e.Properties {
			if property.Kind != PropertySpread {
				WalkExpr(v, property.Key)
			}
			if property.Value != nil {
				WalkExpr(v, *property.Value)
			}
		}

	case *ESpread:
		WalkExpr(v, e.Value)

	case *EYield:
		if e.Value != nil {
			WalkExpr(v, *e.Value)
		}

	case *EIf:
		WalkExpr(v, e.Test)
		WalkExpr(v, e.Yes)
		WalkExpr(v, e.No)

	default:
		panic("Internal error")
	}
}

func WalkBinding(v Visitor, binding Binding) {
	if !v.VisitBinding(binding) {
		return
	}

	switch b := binding.Data.(type) {
	case *BMissing, *BIdentifier:

	case *BArray:
		for _, item := range b.Items {
			WalkBinding(v, item.Binding)
			if item.DefaultValue != nil {
				WalkExpr(v, *item.DefaultValue)
			}
		}

	case *BObject:
		for _, property := range b.Properties {
			if !property.IsSpread {
				WalkExpr(v, property.Key)
			}
			WalkBinding(v, property.Value)
			if property.DefaultValue != nil {
				WalkExpr(v, *property.DefaultValue)
			}
		}

	default:
		panic("Internal error")
	}
}

func walkExprs(v Visitor, exprs []Expr) {
	for _, expr := range exprs {
		WalkExpr(v, expr)
	}
}

func walkFn(v Visitor, fn Fn) {
	walkArgs(v, fn.Args)
	Walk(v, fn.Body.Stmts)
}

func walkArgs(v Visitor, args []Arg) {
	for _, arg := range args {
		WalkBinding(v, arg.Binding)
		if arg.Default != nil {
			WalkExpr(v, *arg.Default)
		}
	}
}

func walkDecls(v Visitor, decls []Decl) {
	for _, decl := range decls {
		WalkBinding(v, decl.Binding)
		if decl.Value != nil {
			WalkExpr(v, *decl.Value)
		}
	}
}

func walkExprOrBinding(v Visitor, target ExprOrBinding) {
	if target.Binding != nil {
		WalkBinding(v, *target.Binding)
	} else if target.Expr != nil {
		WalkExpr(v, *target.Expr)
	}
}

func walkForInOfInit(v Visitor, init ForInOfInit) {
	if init.Local != nil {
		walkDecls(v, init.Local.Decls)
	} else {
		walkExprOrBinding(v, init.Target)
	}
}
