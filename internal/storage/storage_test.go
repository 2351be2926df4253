package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolvePath(t *testing.T) {
	now := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		path     string
		preserve bool
		want     string
	}{
		{"plain", "reports", false, "reports"},
		{"preserve", "reports/", true, "reports/2025/03"},
		{"placeholders", "reports/${account}/${YYYY}-${MM}", true, "reports/prof/2025-03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolvePath(tt.path, now, "prof", tt.preserve); got != tt.want {
				t.Errorf("resolvePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileStorageSave(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStorage(Config{Path: filepath.Join(dir, "out")}, discardLogger())

	first, err := fs.Save(context.Background(), "report.csv", []byte("a"), "text/csv")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := fs.Save(context.Background(), "report.csv", []byte("b"), "text/csv")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if first != filepath.Join(dir, "out", "report.csv") {
		t.Errorf("first path = %q", first)
	}
	if second != filepath.Join(dir, "out", "report_1.csv") {
		t.Errorf("second path = %q", second)
	}

	data, err := os.ReadFile(first)
	if err != nil || string(data) != "a" {
		t.Errorf("first file content = %q, %v", data, err)
	}
}

func TestNewStorageUnsupported(t *testing.T) {
	_, err := NewStorage(context.Background(), Config{Type: "s3"}, nil)
	if !errors.Is(err, ErrUnsupportedStorageType) {
		t.Errorf("NewStorage() error = %v, want ErrUnsupportedStorageType", err)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
