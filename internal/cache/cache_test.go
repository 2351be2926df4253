package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStorageBackends(t *testing.T) {
	for _, storageType := range []string{"sqlite", "file"} {
		t.Run(storageType, func(t *testing.T) {
			storage, err := NewStorage(storageType, t.TempDir())
			if err != nil {
				t.Fatalf("NewStorage() error = %v", err)
			}
			if err := storage.Initialize(); err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			defer storage.Close()

			ctx := context.Background()
			key := Key{Account: "prof@example.ac.kr", Folder: "[Gmail]/보낸편지함", UIDValidity: 3, UID: 42}

			if _, err := storage.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
				t.Fatalf("Get() on empty cache error = %v, want ErrCacheMiss", err)
			}

			if err := storage.Put(ctx, key, []byte("raw one")); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if err := storage.Put(ctx, key, []byte("raw two")); err != nil {
				t.Fatalf("Put() replace error = %v", err)
			}

			got, err := storage.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(got) != "raw two" {
				t.Errorf("Get() = %q, want %q", got, "raw two")
			}

			other := key
			other.UIDValidity = 4
			if _, err := storage.Get(ctx, other); !errors.Is(err, ErrCacheMiss) {
				t.Errorf("Get() with new UIDVALIDITY error = %v, want ErrCacheMiss", err)
			}

			if err := storage.CleanupOldRecords(ctx, 30); err != nil {
				t.Fatalf("CleanupOldRecords() error = %v", err)
			}
			if _, err := storage.Get(ctx, key); err != nil {
				t.Errorf("recent entry removed by cleanup: %v", err)
			}
		})
	}
}

func TestManagerHitMiss(t *testing.T) {
	storage, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := storage.Initialize(); err != nil {
		t.Fatal(err)
	}
	m := NewManagerWithStorage(storage, 30, discard())
	ctx := context.Background()
	key := Key{Account: "a", Folder: "INBOX", UIDValidity: 1, UID: 1}

	if _, ok := m.Lookup(ctx, key); ok {
		t.Fatal("Lookup() hit on empty cache")
	}
	m.Store(ctx, key, []byte("x"))
	if raw, ok := m.Lookup(ctx, key); !ok || string(raw) != "x" {
		t.Fatalf("Lookup() = %q, %v", raw, ok)
	}

	hits, misses := m.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses, want 1/1", hits, misses)
	}
}

func TestDisabledManager(t *testing.T) {
	m := &Manager{logger: discard()}
	if m.Enabled() {
		t.Fatal("manager without storage should be disabled")
	}
	m.Store(context.Background(), Key{}, []byte("x"))
	if _, ok := m.Lookup(context.Background(), Key{}); ok {
		t.Error("disabled manager should always miss")
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewStorageUnsupported(t *testing.T) {
	if _, err := NewStorage("redis", t.TempDir()); !errors.Is(err, ErrUnsupportedStorageType) {
		t.Errorf("NewStorage() error = %v", err)
	}
}
