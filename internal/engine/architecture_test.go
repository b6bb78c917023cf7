package engine

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestEngineStaysBackendAgnostic ensures the sampling packages reach storage
// only through the SnapshotSink and export interfaces. Concrete persistence
// and blob backends may be imported by the command wiring and by the layers
// built on top of them, never by the sampler, the model, or the genome code.
func TestEngineStaysBackendAgnostic(t *testing.T) {
	forbidden := []string{
		"github.com/acope3/AnaCoDa/internal/persistence",
		"github.com/acope3/AnaCoDa/internal/blob",
		"github.com/acope3/AnaCoDa/internal/export",
	}
	allowed := []string{
		"github.com/acope3/AnaCoDa/cmd/",
		"github.com/acope3/AnaCoDa/internal/persistence",
		"github.com/acope3/AnaCoDa/internal/blob",
		"github.com/acope3/AnaCoDa/internal/export",
	}

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "github.com/acope3/AnaCoDa/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		if importerAllowed(pkg.PkgPath, allowed) {
			continue
		}
		for importPath := range pkg.Imports {
			for _, prefix := range forbidden {
				if importPath == prefix || strings.HasPrefix(importPath, prefix+"/") {
					seen[pkg.PkgPath+": "+importPath] = struct{}{}
				}
			}
		}
	}

	if len(seen) > 0 {
		violations := make([]string, 0, len(seen))
		for v := range seen {
			violations = append(violations, v)
		}
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden storage import: %s", v)
		}
		t.Fatalf("found %d forbidden storage imports", len(violations))
	}
}

func importerAllowed(pkgPath string, allowed []string) bool {
	for _, prefix := range allowed {
		if pkgPath == prefix || strings.HasPrefix(pkgPath, prefix) {
			return true
		}
	}
	return false
}
