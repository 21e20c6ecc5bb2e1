package graph

// The dependency graph is an arena of modules addressed by index. Edges are
// stored both as a flat list and as each module's ordered dependency list, and
// may form cycles since import cycles are legal.

import (
	"fmt"

	"github.com/dat2/rpack/internal/js_ast"
	"github.com/dat2/rpack/internal/logging"
)

type ModuleKind uint8

const (
	ModuleJS ModuleKind = iota
	ModuleHTML
	ModuleCSS
	ModuleText
)

func (kind ModuleKind) String() string {
	switch kind {
	case ModuleJS:
		return "js"
	case ModuleHTML:
		return "html"
	case ModuleCSS:
		return "css"
	default:
		return "text"
	}
}

// One import of another module, in the order it appears in the importer
type Dep struct {
	Specifier string

	// The location of the specifier string in the importer
	Loc logging.Loc

	Target uint32
}

type Module struct {
	// The canonical absolute path. This is the identity of the module.
	Path string

	Source logging.Source
	Kind   ModuleKind

	// Only present for JavaScript modules
	AST js_ast.AST

	Deps []Dep
}

type Edge struct {
	From uint32
	To   uint32
}

type Graph struct {
	Modules []Module
	Edges   []Edge
	Entry   uint32

	byPath map[string]uint32
}

func New() *Graph {
	return &Graph{byPath: make(map[string]uint32)}
}

func (g *Graph) Lookup(path string) (uint32, bool) {
	index, ok := g.byPath[path]
	return index, ok
}

// Adds a module and returns its index. Adding a path that is already present
// returns the existing index and leaves the graph unchanged.
func (g *Graph) AddModule(module Module) uint32 {
	if index, ok := g.byPath[module.Path]; ok {
		return index
	}
	index := uint32(len(g.Modules))
	g.Modules = append(g.Modules, module)
	g.byPath[module.Path] = index
	return index
}

// Records that "from" imports "to". This also appends to the importer's
// dependency list so traversal can follow imports in source order.
func (g *Graph) AddEdge(from uint32, to uint32, specifier string, loc logging.Loc) {
	if int(from) >= len(g.Modules) || int(to) >= len(g.Modules) {
		panic(fmt.Sprintf("Edge %d -> %d is out of bounds", from, to))
	}
	g.Edges = append(g.Edges, Edge{From: from, To: to})
	deps := &g.Modules[from].Deps
	*deps = append(*deps, Dep{Specifier: specifier, Loc: loc, Target: to})
}

// Reports the first entry or dependency that refers to a module outside of
// the arena. Graphs built with AddModule and AddEdge always pass.
func (g *Graph) CheckBounds() error {
	count := uint32(len(g.Modules))
	if g.Entry >= count {
		return fmt.Errorf("The entry %d is out of bounds for %d modules", g.Entry, count)
	}
	for _, module := range g.Modules {
		for _, dep := range module.Deps {
			if dep.Target >= count {
				return fmt.Errorf("The import %q in %q refers to module %d of %d",
					dep.Specifier, module.Path, dep.Target, count)
			}
		}
	}
	return nil
}

// Returns the modules reachable from the entry in depth-first preorder. Each
// module's dependencies are followed in source order, and a module that was
// already visited is skipped, so cycles terminate. Targets outside of the
// arena are skipped too (see CheckBounds).
func (g *Graph) DFSOrder() []uint32 {
	if int(g.Entry) >= len(g.Modules) {
		return nil
	}

	type frame struct {
		module  uint32
		nextDep int
	}

	visited := make([]bool, len(g.Modules))
	order := []uint32{g.Entry}
	visited[g.Entry] = true
	stack := []frame{{module: g.Entry}}

	// An explicit stack keeps long import chains from growing the goroutine stack
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		deps := g.Modules[top.module].Deps
		if top.nextDep == len(deps) {
			stack = stack[:len(stack)-1]
			continue
		}
		target := deps[top.nextDep].Target
		top.nextDep++
		if int(target) < len(visited) && !visited[target] {
			visited[target] = true
			order = append(order, target)
			stack = append(stack, frame{module: target})
		}
	}

	return order
}
