// Package testutil provides reusable testing helpers: architectural import
// guards and deterministic data fixtures shared across package tests.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// AssertNoDirectImports scans all non-test .go files in dir (typically "."
// from within the package) and fails if any import path satisfies the
// forbidden predicate. It does not follow build tags.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	fset := token.NewFileSet()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		for _, imp := range file.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			if forbidden(path) {
				t.Errorf("%s imports forbidden package %s (%s)", name, path, reason)
			}
		}
	}
}

// InfraImportForbidden matches import paths under the persistence, blob, and
// export infrastructure; the engine must stay decoupled from them.
func InfraImportForbidden(path string) bool {
	for _, prefix := range []string{
		"github.com/acope3/AnaCoDa/internal/persistence",
		"github.com/acope3/AnaCoDa/internal/blob",
		"github.com/acope3/AnaCoDa/internal/export",
	} {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
