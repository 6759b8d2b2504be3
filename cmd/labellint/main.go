// Package main implements labellint, a build-time AST check: every graph
// label and relationship-type string must flow through the
// engine/graph package's exported constants, never as a bare string literal
// duplicated elsewhere in the tree. A typo'd literal ("Fiel" instead of
// "File") would silently create an orphan label the health checks would
// never catch structurally, since Cypher has no compile-time schema.
//
// labellint walks every .go file under the module root except engine/graph
// itself (the one place the literals are legitimately defined), cmd/labellint
// (its own forbidden table), _examples/ (read-only reference material, not
// part of this module), .git and vendor, and
// flags any string literal that exactly matches one of the forbidden label
// or relationship-type values.
package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// forbidden is the set of raw label/rel-type values that must only appear
// inside engine/graph/labels.go, mirrored here rather than imported so this
// linter has no dependency on the module it's checking.
var forbidden = map[string]bool{
	"File": true, "Directory": true, "PROJECT": true, "Entity": true, "Concept": true, "Theme": true,
	"CONTAINS": true, "BELONGS_TO": true, "HAS_CONCEPT": true, "HAS_THEME": true,
	"IMPORTS": true, "DEFINES": true, "CALLS": true,
}

// exemptDirs are allowed to contain the raw values: the package that owns
// the constants (and its tests), and this linter's own forbidden table.
var exemptDirs = []string{
	filepath.FromSlash("engine/graph"),
	filepath.FromSlash("cmd/labellint"),
}

func main() {
	root := "."
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	var violations []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == "_examples" || info.Name() == ".git" || info.Name() == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		if isExempt(path) {
			return nil
		}

		fset := token.NewFileSet()
		file, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			// A file this linter can't parse is a problem for the build, not
			// for label hygiene; skip it rather than failing the whole run.
			return nil
		}

		ast.Inspect(file, func(n ast.Node) bool {
			lit, ok := n.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				return true
			}
			val, err := strconv.Unquote(lit.Value)
			if err != nil {
				return true
			}
			if forbidden[val] {
				pos := fset.Position(lit.Pos())
				violations = append(violations, fmt.Sprintf("%s:%d: bare label/rel-type literal %q — use a graph.LabelXxx/RelXxx constant", pos.Filename, pos.Line, val))
			}
			return true
		})
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "labellint: walk failed:", err)
		os.Exit(2)
	}

	if len(violations) > 0 {
		for _, v := range violations {
			fmt.Println(v)
		}
		fmt.Printf("labellint: %d violation(s)\n", len(violations))
		os.Exit(1)
	}
	fmt.Println("labellint: ok")
}

func isExempt(path string) bool {
	for _, dir := range exemptDirs {
		if strings.HasPrefix(path, dir) || strings.HasPrefix(path, "./"+dir) {
			return true
		}
	}
	return false
}
