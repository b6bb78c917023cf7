package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("filesystem store: %v", err)
	}
	return map[string]Store{
		"fs":     fsStore,
		"memory": NewMemory(),
		"s3":     NewMockS3(),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			body := "gene,mean\nYAL001C,1.02\n"
			info, err := store.Put(ctx, "runs/run-a/phi.csv", strings.NewReader(body), PutOptions{ContentType: "text/csv"})
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if info.Size != int64(len(body)) {
				t.Fatalf("size %d, want %d", info.Size, len(body))
			}
			got, rc, err := store.Get(ctx, "runs/run-a/phi.csv")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			defer func() { _ = rc.Close() }()
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(data) != body {
				t.Fatalf("content mismatch: %q", data)
			}
			if got.ContentType != "text/csv" {
				t.Fatalf("content type %q", got.ContentType)
			}
		})
	}
}

func TestPutOverwritesExisting(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Put(ctx, "runs/run-a/phi.csv", strings.NewReader("old"), PutOptions{}); err != nil {
				t.Fatalf("first put: %v", err)
			}
			if _, err := store.Put(ctx, "runs/run-a/phi.csv", strings.NewReader("new"), PutOptions{}); err != nil {
				t.Fatalf("second put: %v", err)
			}
			_, rc, err := store.Get(ctx, "runs/run-a/phi.csv")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			defer func() { _ = rc.Close() }()
			data, _ := io.ReadAll(rc)
			if string(data) != "new" {
				t.Fatalf("overwrite lost: %q", data)
			}
		})
	}
}

func TestListFiltersByPrefixInKeyOrder(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, key := range []string{"runs/run-b/phi.csv", "runs/run-a/phi.csv", "runs/run-a/csp.csv"} {
				if _, err := store.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err != nil {
					t.Fatalf("put %s: %v", key, err)
				}
			}
			infos, err := store.List(ctx, "runs/run-a/")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(infos) != 2 {
				t.Fatalf("expected 2 artifacts, got %d", len(infos))
			}
			if infos[0].Key != "runs/run-a/csp.csv" || infos[1].Key != "runs/run-a/phi.csv" {
				t.Fatalf("unexpected order: %v, %v", infos[0].Key, infos[1].Key)
			}
		})
	}
}

func TestDeleteReportsExistence(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Put(ctx, "runs/run-a/phi.csv", strings.NewReader("x"), PutOptions{}); err != nil {
				t.Fatalf("put: %v", err)
			}
			existed, err := store.Delete(ctx, "runs/run-a/phi.csv")
			if err != nil {
				t.Fatalf("delete: %v", err)
			}
			if !existed && store.Driver() != DriverS3 {
				t.Fatal("delete reported missing artifact")
			}
			if _, _, err := store.Get(ctx, "runs/run-a/phi.csv"); err == nil {
				t.Fatal("artifact survived delete")
			}
		})
	}
}

func TestGetMissingKey(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := store.Get(context.Background(), "runs/ghost.csv")
			if err == nil {
				t.Fatal("expected error for missing key")
			}
			if store.Driver() != DriverS3 && !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestPresignByDriver(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			url, err := store.PresignURL(ctx, "runs/run-a/phi.csv", SignedURLOptions{})
			if store.Driver() == DriverS3 {
				if err != nil {
					t.Fatalf("presign: %v", err)
				}
				if !strings.Contains(url, "runs/run-a/phi.csv") {
					t.Fatalf("presigned URL misses key: %s", url)
				}
				return
			}
			if !errors.Is(err, ErrUnsupported) {
				t.Fatalf("expected ErrUnsupported, got %v", err)
			}
		})
	}
}

func TestFilesystemRejectsUnsafeKeys(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("filesystem store: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape", "/abs/path", "a/../../b"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	for name, store := range map[string]Store{"fs": mustFS(t), "memory": NewMemory()} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			meta := map[string]string{"run": "run-a", "kind": "trace"}
			if _, err := store.Put(ctx, "runs/run-a/trace.csv", strings.NewReader("x"), PutOptions{Metadata: meta}); err != nil {
				t.Fatalf("put: %v", err)
			}
			info, err := store.Head(ctx, "runs/run-a/trace.csv")
			if err != nil {
				t.Fatalf("head: %v", err)
			}
			if info.Metadata["run"] != "run-a" || info.Metadata["kind"] != "trace" {
				t.Fatalf("metadata lost: %v", info.Metadata)
			}
		})
	}
}

func mustFS(t *testing.T) Store {
	t.Helper()
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("filesystem store: %v", err)
	}
	return store
}

func TestOpenSelectsDriver(t *testing.T) {
	t.Setenv("ANACODA_BLOB_DRIVER", "memory")
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("driver %s", store.Driver())
	}

	t.Setenv("ANACODA_BLOB_DRIVER", "fs")
	t.Setenv("ANACODA_BLOB_FS_ROOT", t.TempDir())
	store, err = Open(context.Background())
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("driver %s", store.Driver())
	}

	t.Setenv("ANACODA_BLOB_DRIVER", "s3")
	t.Setenv("ANACODA_BLOB_S3_BUCKET", "")
	if _, err := Open(context.Background()); err == nil {
		t.Fatal("expected error without bucket")
	}

	t.Setenv("ANACODA_BLOB_DRIVER", "tape")
	if _, err := Open(context.Background()); err == nil {
		t.Fatal("expected unknown driver error")
	}
}
