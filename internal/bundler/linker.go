package bundler

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"

	"github.com/dat2/rpack/internal/graph"
	"github.com/dat2/rpack/internal/js_ast"
	"github.com/dat2/rpack/internal/js_lexer"
	"github.com/dat2/rpack/internal/js_printer"
	"github.com/dat2/rpack/internal/logging"
	"github.com/dat2/rpack/internal/runtime"
)

// The number of hex characters kept from the digest
const moduleIDLength = 16

// Module IDs are derived from the exact source text
func ModuleID(contents string) string {
	sum := sha512.Sum512([]byte(contents))
	return hex.EncodeToString(sum[:])[:moduleIDLength]
}

// Two modules with identical text at different paths would get the same ID.
// The later one in DFS order falls back to hashing its path with its text.
func assignModuleIDs(g *graph.Graph, order []uint32) ([]string, error) {
	ids := make([]string, len(g.Modules))
	owners := make(map[string]uint32)

	for _, index := range order {
		module := &g.Modules[index]
		id := ModuleID(module.Source.Contents)
		if _, taken := owners[id]; taken {
			id = ModuleID(module.Path + "\x00" + module.Source.Contents)
			if owner, taken := owners[id]; taken {
				return nil, &InternalError{Text: fmt.Sprintf("Module ID %q is shared by %q and %q",
					id, g.Modules[owner].Path, module.Path)}
			}
		}
		owners[id] = index
		ids[index] = id
	}

	return ids, nil
}

func stringExpr(loc logging.Loc, text string) js_ast.Expr {
	return js_ast.Expr{Loc: loc, Data: &js_ast.EString{Value: js_lexer.StringToUTF16(text)}}
}

func identifierExpr(loc logging.Loc, name string) js_ast.Expr {
	return js_ast.Expr{Loc: loc, Data: &js_ast.EIdentifier{Name: name}}
}

func identifierBinding(loc logging.Loc, name string) js_ast.Binding {
	return js_ast.Binding{Loc: loc, Data: &js_ast.BIdentifier{Name: name}}
}

func requireCall(loc logging.Loc, id string) js_ast.Expr {
	return js_ast.Expr{Loc: loc, Data: &js_ast.ECall{
		Target: identifierExpr(loc, runtime.RequireName),
		Args:   []js_ast.Expr{stringExpr(loc, id)},
	}}
}

// Turns one import statement into the statement that loads the module at
// run time. The first binding holds the result of the require call and any
// other bindings read from it:
//
//   import "m"                    => _rpack_require(id);
//   import d from "m"             => var d = _rpack_require(id);
//   import * as ns from "m"       => var ns = _rpack_require(id);
//   import {a, b as c} from "m"   => var {a, b: c} = _rpack_require(id);
//   import d, {a} from "m"        => var d = _rpack_require(id), {a} = d;
//
func rewriteImport(loc logging.Loc, s *js_ast.SImport, id string) js_ast.Stmt {
	var decls []js_ast.Decl
	var first *js_ast.LocName

	valueFor := func(loc logging.Loc) *js_ast.Expr {
		var value js_ast.Expr
		if first == nil {
			value = requireCall(loc, id)
		} else {
			value = identifierExpr(loc, first.Name)
		}
		return &value
	}

	if s.DefaultName != nil {
		decls = append(decls, js_ast.Decl{
			Binding: identifierBinding(s.DefaultName.Loc, s.DefaultName.Name),
			Value:   valueFor(s.PathLoc),
		})
		first = s.DefaultName
	}

	if s.NamespaceName != nil {
		decls = append(decls, js_ast.Decl{
			Binding: identifierBinding(s.NamespaceName.Loc, s.NamespaceName.Name),
			Value:   valueFor(s.PathLoc),
		})
		if first == nil {
			first = s.NamespaceName
		}
	}

	if s.Items != nil {
		properties := make([]js_ast.PropertyBinding, 0, len(*s.Items))
		for _, item := range *s.Items {
			properties = append(properties, js_ast.PropertyBinding{
				Key:         stringExpr(item.AliasLoc, item.Alias),
				Value:       identifierBinding(item.Name.Loc, item.Name.Name),
				IsShorthand: item.Alias == item.Name.Name,
			})
		}
		decls = append(decls, js_ast.Decl{
			Binding: js_ast.Binding{Loc: loc, Data: &js_ast.BObject{Properties: properties}},
			Value:   valueFor(s.PathLoc),
		})
	}

	if len(decls) == 0 {
		return js_ast.Stmt{Loc: loc, Data: &js_ast.SExpr{Value: requireCall(s.PathLoc, id)}}
	}
	return js_ast.Stmt{Loc: loc, Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: decls}}
}

func lookupID(ids []string, module *graph.Module, target uint32, specifier string) (string, error) {
	if int(target) < len(ids) && ids[target] != "" {
		return ids[target], nil
	}
	return "", &InternalError{Text: fmt.Sprintf("No module ID was registered for %q imported by %q", specifier, module.Path)}
}

// Returns the body of the module function. Only top-level imports are
// touched. Everything else is shared with the parsed AST as-is.
func moduleBody(module *graph.Module, ids []string) ([]js_ast.Stmt, error) {
	if module.Kind != graph.ModuleJS {
		// Markup, stylesheets and anything else export their text. Their
		// dependencies are still loaded so they end up in the bundle.
		stmts := []js_ast.Stmt{}
		for _, dep := range module.Deps {
			id, err := lookupID(ids, module, dep.Target, dep.Specifier)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, js_ast.Stmt{Loc: dep.Loc, Data: &js_ast.SExpr{Value: requireCall(dep.Loc, id)}})
		}
		exports := js_ast.Expr{Data: &js_ast.EDot{Target: identifierExpr(logging.Loc{}, "module"), Name: "exports"}}
		stmts = append(stmts, js_ast.Stmt{Data: &js_ast.SExpr{Value: js_ast.Expr{Data: &js_ast.EAssign{
			Op:     js_ast.BinOpAssign,
			Target: js_ast.ExprOrBinding{Expr: &exports},
			Value:  stringExpr(logging.Loc{}, module.Source.Contents),
		}}}})
		return stmts, nil
	}

	// Imports are matched to dependencies by the location of their path
	targets := make(map[int32]graph.Dep, len(module.Deps))
	for _, dep := range module.Deps {
		targets[dep.Loc.Start] = dep
	}

	stmts := make([]js_ast.Stmt, 0, len(module.AST.Stmts))
	for _, stmt := range module.AST.Stmts {
		s, ok := stmt.Data.(*js_ast.SImport)
		if !ok {
			stmts = append(stmts, stmt)
			continue
		}
		dep, ok := targets[s.PathLoc.Start]
		if !ok {
			return nil, &InternalError{Text: fmt.Sprintf("The import %q in %q was never resolved", s.Path, module.Path)}
		}
		id, err := lookupID(ids, module, dep.Target, s.Path)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, rewriteImport(stmt.Loc, s, id))
	}
	return stmts, nil
}

// Generates the bundle for a scanned graph. Each module becomes a function
// in the "modules" table keyed by its ID, in depth-first order from the entry.
func Compile(g *graph.Graph, options Options) ([]byte, error) {
	if len(g.Modules) == 0 {
		return nil, &InternalError{Text: "The graph has no modules"}
	}
	if err := g.CheckBounds(); err != nil {
		return nil, &InternalError{Text: err.Error()}
	}

	order := g.DFSOrder()
	ids, err := assignModuleIDs(g, order)
	if err != nil {
		return nil, err
	}

	properties := make([]js_ast.Property, 0, len(order))
	for _, index := range order {
		module := &g.Modules[index]
		body, err := moduleBody(module, ids)
		if err != nil {
			return nil, err
		}

		fn := js_ast.Expr{Data: &js_ast.EArrow{
			Args: []js_ast.Arg{
				{Binding: identifierBinding(logging.Loc{}, "module")},
				{Binding: identifierBinding(logging.Loc{}, "exports")},
				{Binding: identifierBinding(logging.Loc{}, runtime.RequireName)},
			},
			Body: js_ast.FnBody{Stmts: body},
		}}
		properties = append(properties, js_ast.Property{
			Key:   stringExpr(logging.Loc{}, ids[index]),
			Value: &fn,
		})
	}

	stmts := []js_ast.Stmt{
		{Data: &js_ast.SLocal{Kind: js_ast.LocalVar, Decls: []js_ast.Decl{{
			Binding: identifierBinding(logging.Loc{}, runtime.ModulesName),
			Value:   &js_ast.Expr{Data: &js_ast.EObject{Properties: properties}},
		}}}},
		{Data: &js_ast.SExpr{Value: js_ast.Expr{Data: &js_ast.ECall{
			Target: identifierExpr(logging.Loc{}, runtime.BootstrapName),
			Args: []js_ast.Expr{
				identifierExpr(logging.Loc{}, runtime.ModulesName),
				stringExpr(logging.Loc{}, ids[g.Entry]),
			},
		}}}},
	}

	js := js_printer.PrintStmts(stmts, js_printer.Options{}).JS
	if options.OmitRuntimeForTests {
		return js, nil
	}
	return append([]byte(runtime.Code), js...), nil
}
