// Package main is a small inspection tool for the scriptspace workspace
// engine: enumerate a workspace's script files, expand a file's reference
// closure, or resolve a reference string.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/scriptspace/internal/config"
	"github.com/dshills/scriptspace/internal/log"
	"github.com/dshills/scriptspace/internal/workspace"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var root string
	var logLevel string
	var showVersion bool

	flag.StringVar(&root, "root", ".", "Workspace root directory")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "scriptspace - workspace file inspection\n\n")
		fmt.Fprintf(os.Stderr, "Usage: scriptspace [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  files                 List the workspace's script files\n")
		fmt.Fprintf(os.Stderr, "  expand <file>         List a file and its transitive references\n")
		fmt.Fprintf(os.Stderr, "  resolve <base> <ref>  Resolve a reference against a base directory\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("scriptspace %s (%s)\n", version, commit)
		return 0
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return 2
	}

	cfg, err := config.Load(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading configuration: %v\n", err)
		return 1
	}
	cfg.MergeEditorSettingsFile(filepath.Join(root, ".vscode", "settings.json"))

	logger := log.New(log.Config{
		Level:  log.ParseLevel(logLevel),
		Output: os.Stderr,
		Prefix: "scriptspace",
	})

	sess := workspace.New(dotSourceExtractor{},
		workspace.WithConfig(cfg),
		workspace.WithLogger(logger),
	)
	defer sess.Close()

	if err := sess.SetRoot(root); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	switch args[0] {
	case "files":
		return cmdFiles(sess)
	case "expand":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "Usage: scriptspace expand <file>")
			return 2
		}
		return cmdExpand(sess, args[1])
	case "resolve":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "Usage: scriptspace resolve <base> <ref>")
			return 2
		}
		return cmdResolve(sess, args[1], args[2])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", args[0])
		flag.Usage()
		return 2
	}
}

func cmdFiles(sess *workspace.Session) int {
	for path := range sess.EnumerateSourceFiles() {
		fmt.Println(path)
	}
	return 0
}

func cmdExpand(sess *workspace.Session, file string) int {
	doc, err := sess.GetDocument(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	for _, d := range sess.ExpandReferences(doc) {
		fmt.Println(d.Path())
	}
	return 0
}

func cmdResolve(sess *workspace.Session, base, ref string) int {
	resolved, err := sess.ResolveReference(base, ref)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(resolved)
	return 0
}

// dotSourceExtractor finds dot-sourced script paths, the common way one
// script pulls in another. The engine itself treats extraction as an
// injected collaborator; this one exists so the CLI can demonstrate
// expansion without a host editor.
type dotSourceExtractor struct{}

func (dotSourceExtractor) References(_, content string) []string {
	var refs []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, ". ") {
			continue
		}
		target := strings.Trim(strings.TrimSpace(line[2:]), `"'`)
		if target == "" || strings.ContainsAny(target, " \t$(") {
			continue
		}
		refs = append(refs, target)
	}
	return refs
}
