package bundler

import (
	"fmt"
	"strings"

	"github.com/dat2/rpack/internal/fs"
	"github.com/dat2/rpack/internal/graph"
	"github.com/dat2/rpack/internal/js_parser"
	"github.com/dat2/rpack/internal/logging"
	"github.com/dat2/rpack/internal/resolver"
	"github.com/dat2/rpack/internal/scanner"
)

type Options struct {
	// The entry file as given on the command line
	EntryPath string

	// Directories searched for bare specifiers, in order
	SearchRoots []string

	// Where the bundle is written. This is only used by the caller.
	OutputPath string

	// Leave out the bootstrap runtime so tests only see generated code
	OmitRuntimeForTests bool
}

// A file failed to lex, parse or scan. The message is the first error that
// was reported for the file.
type SyntaxError struct {
	Path string
	Msg  logging.Msg
}

func (e *SyntaxError) Error() string {
	if e.Msg.Text == "" {
		return fmt.Sprintf("Syntax error in %q", e.Path)
	}
	return strings.TrimSuffix(e.Msg.String(logging.StderrOptions{}, logging.TerminalInfo{}), "\n")
}

type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("Could not read %q: %s", e.Path, e.Err.Error())
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// An invariant between the scan and the code generator was broken
type InternalError struct {
	Text string
}

func (e *InternalError) Error() string {
	return "Internal error: " + e.Text
}

func loaderFromExtension(ext string) graph.ModuleKind {
	switch strings.ToLower(ext) {
	case ".js", ".mjs":
		return graph.ModuleJS
	case ".html", ".htm":
		return graph.ModuleHTML
	case ".css":
		return graph.ModuleCSS
	default:
		return graph.ModuleText
	}
}

type parseArgs struct {
	fs         fs.FS
	log        logging.Log
	res        *resolver.Resolver
	keyPath    string
	prettyPath string
	results    chan parseResult
}

type resolvedDep struct {
	specifier string
	loc       logging.Loc
	path      string
}

type parseResult struct {
	module graph.Module

	// Only the imports that resolved, in source order
	deps []resolvedDep

	// The first failure in this file, if any
	err error
}

// Runs "parse" against a private log so the first error can be attached to
// the returned error. Everything is forwarded to the shared log afterward.
func parseWithLog(log logging.Log, path string, parse func(logging.Log) bool) error {
	fileLog, done := logging.NewDeferLog()
	ok := parse(fileLog)
	msgs := done()

	var firstError *logging.Msg
	for i, msg := range msgs {
		log.AddMsg(msg)
		if msg.Kind == logging.Error && firstError == nil {
			firstError = &msgs[i]
		}
	}

	if ok && firstError == nil {
		return nil
	}
	err := &SyntaxError{Path: path}
	if firstError != nil {
		err.Msg = *firstError
	}
	return err
}

func parseFile(args parseArgs) {
	result := parseResult{module: graph.Module{Path: args.keyPath}}

	contents, err := args.fs.ReadFile(args.keyPath)
	if err != nil {
		args.log.AddMsg(logging.Msg{
			Kind: logging.Error,
			Text: fmt.Sprintf("Could not read %q: %s", args.prettyPath, err.Error()),
		})
		result.err = &IOError{Path: args.keyPath, Err: err}
		args.results <- result
		return
	}

	source := logging.Source{
		KeyPath:    args.keyPath,
		PrettyPath: args.prettyPath,
		Contents:   contents,
	}
	result.module.Source = source
	result.module.Kind = loaderFromExtension(args.fs.Ext(args.keyPath))

	type importRef struct {
		specifier string
		r         logging.Range
	}
	var refs []importRef

	switch result.module.Kind {
	case graph.ModuleJS:
		result.err = parseWithLog(args.log, args.keyPath, func(log logging.Log) bool {
			tree, ok := js_parser.Parse(log, source, js_parser.ParseOptions{})
			result.module.AST = tree
			return ok
		})
		if result.err == nil {
			warnAboutReservedNames(args.log, source, result.module.AST)
			for _, s := range result.module.AST.Imports() {
				refs = append(refs, importRef{specifier: s.Path, r: source.RangeOfString(s.PathLoc)})
			}
		}

	case graph.ModuleHTML, graph.ModuleCSS:
		scan := scanner.ScanCSS
		if result.module.Kind == graph.ModuleHTML {
			scan = scanner.ScanHTML
		}
		result.err = parseWithLog(args.log, args.keyPath, func(log logging.Log) bool {
			deps, ok := scan(log, source)
			for _, dep := range deps {
				refs = append(refs, importRef{specifier: dep.Specifier, r: dep.Range})
			}
			return ok
		})
	}

	if result.err != nil {
		args.results <- result
		return
	}

	for _, ref := range refs {
		specifier := ref.specifier

		// References in markup and stylesheets are always relative to the file
		if result.module.Kind != graph.ModuleJS && !resolver.IsRelative(specifier) && !strings.HasPrefix(specifier, "/") {
			specifier = "./" + specifier
		}

		path, err := args.res.Resolve(args.keyPath, specifier)
		if err != nil {
			args.log.AddRangeError(source, ref.r, fmt.Sprintf("Could not resolve %q", ref.specifier))
			if result.err == nil {
				result.err = err
			}
			continue
		}
		result.deps = append(result.deps, resolvedDep{specifier: ref.specifier, loc: ref.r.Loc, path: path})
	}

	args.results <- result
}

// Builds the dependency graph starting at the entry file. Files are read and
// parsed on separate goroutines while this goroutine owns the graph and the
// visited set, so each canonical path is parsed at most once. The graph is
// then assembled in depth-first order from the entry so module indices don't
// depend on scheduling. The error returned is the first failure in that same
// order.
func ScanBundle(log logging.Log, fs fs.FS, res *resolver.Resolver, entryPath string) (*graph.Graph, error) {
	entry, err := res.ResolveEntry(entryPath)
	if err != nil {
		log.AddMsg(logging.Msg{Kind: logging.Error, Text: fmt.Sprintf("Could not resolve %q", entryPath)})
		return nil, err
	}

	results := make(map[string]parseResult)
	visited := make(map[string]bool)
	resultChannel := make(chan parseResult)
	remaining := 0

	maybeParseFile := func(path string) {
		if visited[path] {
			return
		}
		visited[path] = true
		remaining++
		go parseFile(parseArgs{
			fs:         fs,
			log:        log,
			res:        res,
			keyPath:    path,
			prettyPath: res.PrettyPath(path),
			results:    resultChannel,
		})
	}

	maybeParseFile(entry)

	for remaining > 0 {
		result := <-resultChannel
		remaining--
		results[result.module.Path] = result
		for _, dep := range result.deps {
			maybeParseFile(dep.path)
		}
	}

	return assembleGraph(results, entry)
}

func assembleGraph(results map[string]parseResult, entry string) (*graph.Graph, error) {
	g := graph.New()

	addModule := func(path string) (uint32, error) {
		result, ok := results[path]
		if !ok {
			return 0, &InternalError{Text: fmt.Sprintf("The file %q was never scanned", path)}
		}
		if result.err != nil {
			return 0, result.err
		}
		return g.AddModule(result.module), nil
	}

	type frame struct {
		index   uint32
		path    string
		nextDep int
	}

	entryIndex, err := addModule(entry)
	if err != nil {
		return nil, err
	}
	g.Entry = entryIndex
	stack := []frame{{index: entryIndex, path: entry}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		deps := results[top.path].deps
		if top.nextDep == len(deps) {
			stack = stack[:len(stack)-1]
			continue
		}
		dep := deps[top.nextDep]
		top.nextDep++

		// Cycles and repeated imports reuse the existing module
		target, ok := g.Lookup(dep.path)
		if !ok {
			if target, err = addModule(dep.path); err != nil {
				return nil, err
			}
		}
		g.AddEdge(top.index, target, dep.specifier, dep.loc)
		if !ok {
			stack = append(stack, frame{index: target, path: dep.path})
		}
	}

	return g, nil
}

// Runs the whole pipeline. Nothing is returned unless every file was found,
// parsed and linked.
func Bundle(log logging.Log, fs fs.FS, options Options) ([]byte, error) {
	res := resolver.NewResolver(log, fs, options.SearchRoots)
	g, err := ScanBundle(log, fs, res, options.EntryPath)
	if err != nil {
		return nil, err
	}
	return Compile(g, options)
}
