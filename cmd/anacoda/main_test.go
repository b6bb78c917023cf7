package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixtures(t *testing.T) (fasta, expression string) {
	t.Helper()
	dir := t.TempDir()
	fasta = filepath.Join(dir, "genes.fasta")
	fastaBody := strings.Join([]string{
		">YAL001C test gene",
		"GCTGCCGCAGCGAAAAAG",
		">YAL002W",
		"TTTTTCTTATTGAAAAAA",
		">YAL003W",
		"GATGACGAAGAGAAAAAG",
	}, "\n") + "\n"
	if err := os.WriteFile(fasta, []byte(fastaBody), 0o644); err != nil {
		t.Fatalf("write fasta: %v", err)
	}
	expression = filepath.Join(dir, "expression.csv")
	exprBody := "gene,obs1\nYAL001C,1.4\nYAL002W,0.6\nYAL003W,NA\n"
	if err := os.WriteFile(expression, []byte(exprBody), 0o644); err != nil {
		t.Fatalf("write expression: %v", err)
	}
	return fasta, expression
}

func TestCLIRunsEndToEnd(t *testing.T) {
	fasta, expression := writeFixtures(t)
	artifacts := t.TempDir()
	t.Setenv("ANACODA_BLOB_DRIVER", "fs")
	t.Setenv("ANACODA_BLOB_FS_ROOT", artifacts)
	dbPath := filepath.Join(t.TempDir(), "trace.db")
	t.Setenv("ANACODA_TRACE_DRIVER", "sqlite")
	t.Setenv("ANACODA_SQLITE_PATH", dbPath)

	var stdout, stderr bytes.Buffer
	code := cli([]string{
		"-fasta", fasta,
		"-expression", expression,
		"-run", "test-run",
		"-samples", "10",
		"-thinning", "2",
		"-adaptive-width", "5",
		"-mixtures", "2",
		"-seed", "7",
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "run test-run complete") {
		t.Fatalf("unexpected stdout: %q", stdout.String())
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("trace archive missing: %v", err)
	}
	for _, name := range []string{"trace/phi.csv", "summary/phi.csv", "summary/csp.csv"} {
		path := filepath.Join(artifacts, "runs", "test-run", filepath.FromSlash(name))
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("artifact %s missing: %v", name, err)
		}
	}
}

func TestCLIRequiresFasta(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := cli(nil, &stdout, &stderr); code != 2 {
		t.Fatalf("exit code %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "-fasta is required") {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}

func TestCLIRejectsUnknownLayout(t *testing.T) {
	fasta, _ := writeFixtures(t)
	t.Setenv("ANACODA_TRACE_DRIVER", "none")
	var stdout, stderr bytes.Buffer
	code := cli([]string{"-fasta", fasta, "-layout", "diagonal", "-samples", "2", "-export=false"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
}

func TestCLISkipsExportWhenDisabled(t *testing.T) {
	fasta, _ := writeFixtures(t)
	artifacts := t.TempDir()
	t.Setenv("ANACODA_BLOB_DRIVER", "fs")
	t.Setenv("ANACODA_BLOB_FS_ROOT", artifacts)
	t.Setenv("ANACODA_TRACE_DRIVER", "none")
	var stdout, stderr bytes.Buffer
	code := cli([]string{
		"-fasta", fasta,
		"-run", "quiet-run",
		"-samples", "5",
		"-thinning", "1",
		"-adaptive-width", "2",
		"-export=false",
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if entries, err := os.ReadDir(artifacts); err != nil || len(entries) != 0 {
		t.Fatalf("expected no artifacts, got %v (err %v)", entries, err)
	}
}
