package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new local storage failed: %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "invoices/INV-00000001.txt", strings.NewReader("hello"), "text/plain"); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	exists, err := store.Exists(ctx, "invoices/INV-00000001.txt")
	if err != nil || !exists {
		t.Fatalf("expected object to exist, got exists=%v err=%v", exists, err)
	}

	r, err := store.Get(ctx, "invoices/INV-00000001.txt")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	data, _ := io.ReadAll(r)
	r.Close()
	if string(data) != "hello" {
		t.Fatalf("unexpected content: %s", data)
	}

	if err := store.Delete(ctx, "invoices/INV-00000001.txt"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "invoices/INV-00000001.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// Deleting a missing object is a no-op.
	if err := store.Delete(ctx, "invoices/INV-00000001.txt"); err != nil {
		t.Fatalf("repeat delete failed: %v", err)
	}
}
