package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dat2/rpack/internal/bundler"
	"github.com/dat2/rpack/internal/exitcode"
	"github.com/dat2/rpack/internal/fs"
	"github.com/dat2/rpack/internal/logging"
)

const rpackVersion = "0.1.0"

const helpText = `
Usage:
  rpack build <ENTRY>

Bundles ENTRY and everything it imports into build/<name>.js.

Options:
  -h, --help   Print this message and exit
  --version    Print the current version and exit (` + rpackVersion + `)
  --color=...  Force use of color terminal escapes (true or false)

Environment:
  RESOLVE_PATH  Colon-separated directories searched for bare imports
                such as "lib" (default: ./node_modules)

Examples:
  # Produces build/app.js
  rpack build src/app.js

  # Look up bare imports in two places
  RESOLVE_PATH=vendor:node_modules rpack build src/app.js
`

type runArgs struct {
	entryPath   string
	resolvePath string
	logOptions  logging.StderrOptions
}

// Only "build <ENTRY>" is accepted. Help and version flags are handled
// before this is called.
func parseArgs(osArgs []string, resolvePath string) (runArgs, error) {
	args := runArgs{
		resolvePath: resolvePath,
		logOptions:  logging.StderrOptions{IncludeSource: true},
	}

	positional := []string{}
	for _, arg := range osArgs {
		switch {
		case arg == "--color=true":
			args.logOptions.Color = logging.ColorAlways

		case arg == "--color=false":
			args.logOptions.Color = logging.ColorNever

		case strings.HasPrefix(arg, "-"):
			return runArgs{}, exitcode.Usagef("Unknown flag %q", arg)

		default:
			positional = append(positional, arg)
		}
	}

	switch {
	case len(positional) == 0:
		return runArgs{}, exitcode.Usagef("Expected a command")
	case positional[0] != "build":
		return runArgs{}, exitcode.Usagef("Unknown command %q", positional[0])
	case len(positional) == 1:
		return runArgs{}, exitcode.Usagef("Missing the entry file for %q", "build")
	case len(positional) > 2:
		return runArgs{}, exitcode.Usagef("Expected one entry file but got %d", len(positional)-1)
	}

	args.entryPath = positional[1]
	return args, nil
}

// An explicit RESOLVE_PATH is used as given so that roots that don't exist
// are reported. The default root is only used when it's there.
func searchRoots(fileSystem fs.FS, resolvePath string) []string {
	roots := []string{}
	if resolvePath == "" {
		defaultRoot := fileSystem.Join(fileSystem.Cwd(), "node_modules")
		if kind, err := fileSystem.Stat(defaultRoot); err == nil && kind == fs.DirEntry {
			roots = append(roots, defaultRoot)
		}
		return roots
	}
	for _, root := range filepath.SplitList(resolvePath) {
		if abs, ok := fileSystem.Abs(root); ok {
			roots = append(roots, abs)
		}
	}
	return roots
}

func outputPath(fileSystem fs.FS, entryPath string) string {
	base := fileSystem.Base(entryPath)
	name := strings.TrimSuffix(base, fileSystem.Ext(base))
	return fileSystem.Join(fileSystem.Cwd(), "build", name+".js")
}

func toSize(bytes int) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d bytes", bytes)
	}

	if bytes < 1024*1024 {
		return fmt.Sprintf("%.1fkb", float32(bytes)/float32(1024))
	}

	return fmt.Sprintf("%.1fmb", float32(bytes)/float32(1024*1024))
}

// Bundles and writes the output file. Nothing is written unless every module
// was found and parsed. Status lines go to "status".
func run(log logging.Log, fileSystem fs.FS, args runArgs, status io.Writer) error {
	options := bundler.Options{
		EntryPath:   args.entryPath,
		SearchRoots: searchRoots(fileSystem, args.resolvePath),
		OutputPath:  outputPath(fileSystem, args.entryPath),
	}

	js, err := bundler.Bundle(log, fileSystem, options)
	if err != nil {
		return err
	}

	path := fs.PrettyPath(fileSystem, options.OutputPath)
	if err := os.MkdirAll(filepath.Dir(options.OutputPath), 0755); err != nil {
		log.AddMsg(logging.Msg{Kind: logging.Error, Text: fmt.Sprintf("Cannot create output directory: %s", err.Error())})
		return err
	}
	if err := os.WriteFile(options.OutputPath, js, 0644); err != nil {
		log.AddMsg(logging.Msg{Kind: logging.Error, Text: fmt.Sprintf("Failed to write to %s (%s)", path, err.Error())})
		return err
	}

	fmt.Fprintf(status, "Wrote to %s (%s)\n", path, toSize(len(js)))
	return nil
}

func main() {
	start := time.Now()
	osArgs := os.Args[1:]

	// Help and version take priority over everything else
	for _, arg := range osArgs {
		switch arg {
		case "-h", "-help", "--help", "/?":
			fmt.Fprintf(os.Stderr, "%s\n", helpText)
			os.Exit(exitcode.Success)

		case "--version":
			fmt.Fprintf(os.Stderr, "%s\n", rpackVersion)
			os.Exit(exitcode.Success)
		}
	}

	args, err := parseArgs(osArgs, os.Getenv("RESOLVE_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n%s\n", err.Error(), helpText)
		exitcode.Exit(err)
	}

	log, join := logging.NewStderrLog(args.logOptions)
	err = run(log, fs.RealFS(), args, os.Stderr)
	join()

	if err == nil {
		fmt.Fprintf(os.Stderr, "Done in %dms\n", time.Since(start).Nanoseconds()/1000000)
	}
	exitcode.Exit(err)
}
