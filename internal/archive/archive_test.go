package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matthewgall/epicdeals/internal/compare"
	"github.com/matthewgall/epicdeals/internal/config"
	"github.com/matthewgall/epicdeals/internal/models"
)

func TestLocalStorage_SaveOpen(t *testing.T) {
	store := NewLocal(t.TempDir())
	ctx := context.Background()

	if err := store.Save(ctx, "comparisons/a.json", strings.NewReader(`{"ok":true}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	body, err := store.Open(ctx, "comparisons/a.json")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != `{"ok":true}` {
		t.Fatalf("unexpected contents %q", data)
	}

	if _, err := store.Open(ctx, "comparisons/b.json"); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	dir := t.TempDir()
	store := NewLocal(filepath.Join(dir, "inner"))

	for _, key := range []string{"../outside.json", "a/../../outside.json", ""} {
		if err := store.Save(context.Background(), key, strings.NewReader("x")); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Save(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "outside.json")); !os.IsNotExist(err) {
		t.Fatal("file written outside the base directory")
	}
}

func TestNewStorage(t *testing.T) {
	storage, err := NewStorage(context.Background(), config.ArchiveConfig{Method: "none"})
	if err != nil || storage != nil {
		t.Fatalf("NewStorage(none) = %v, %v", storage, err)
	}

	storage, err = NewStorage(context.Background(), config.ArchiveConfig{Method: "local", Local: config.ArchiveLocalConfig{Directory: t.TempDir()}})
	if err != nil {
		t.Fatalf("NewStorage(local) error = %v", err)
	}
	if _, ok := storage.(*LocalStorage); !ok {
		t.Fatalf("expected *LocalStorage, got %T", storage)
	}

	if _, err := NewStorage(context.Background(), config.ArchiveConfig{Method: "ftp"}); !errors.Is(err, ErrUnknownStorage) {
		t.Fatalf("expected ErrUnknownStorage, got %v", err)
	}

	if _, err := NewStorage(context.Background(), config.ArchiveConfig{Method: "s3"}); err == nil {
		t.Fatal("expected an error for s3 without a bucket")
	}
}

func TestRecorder_RecordAndLoad(t *testing.T) {
	recorder := NewRecorder(NewLocal(t.TempDir()))
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	recorder.now = func() time.Time { return fixed }

	comparison := &compare.Comparison{
		Success:  true,
		Fallback: true,
		Analysis: []models.PriceAnalysisItem{{Index: 1, ProductName: "iPhone 15 Pro", Verdict: models.VerdictCheckManual}},
	}

	id, err := recorder.Record(context.Background(), comparison)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	snapshot, err := recorder.Load(context.Background(), id)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snapshot.ID != id || !snapshot.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected snapshot header %+v", snapshot)
	}
	if !snapshot.Comparison.Fallback || snapshot.Comparison.Analysis[0].ProductName != "iPhone 15 Pro" {
		t.Fatalf("unexpected snapshot body %+v", snapshot.Comparison)
	}

	if _, err := recorder.Load(context.Background(), "../../etc/passwd"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if _, err := recorder.Load(context.Background(), "6f1c1d0e-4b7a-4c43-9d1e-2f3a4b5c6d7e"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
