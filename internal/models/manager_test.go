package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultManifestParses(t *testing.T) {
	m, err := DefaultManifest()
	if err != nil {
		t.Fatalf("DefaultManifest: %v", err)
	}
	for _, variant := range []string{"tiny", "base", "small"} {
		v, ok := m.Variants[variant]
		if !ok {
			t.Fatalf("variant %q missing", variant)
		}
		if v.Filename == "" || v.URL == "" {
			t.Fatalf("variant %q incomplete: %+v", variant, v)
		}
	}
}

func TestParseManifestRejectsEmpty(t *testing.T) {
	if _, err := ParseManifest([]byte("variants: {}")); err == nil {
		t.Fatal("expected error for empty manifest")
	}
	if _, err := ParseManifest([]byte("variants:\n  tiny:\n    url: x")); err == nil {
		t.Fatal("expected error for variant without filename")
	}
}

func TestManagerRequiresBaseDir(t *testing.T) {
	if _, err := NewManager("  ", testLogger()); err == nil {
		t.Fatal("expected error for empty base dir")
	}
}

func TestResolveOverrideAndVariant(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir, testLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	override := filepath.Join(dir, "custom.bin")
	if err := os.WriteFile(override, []byte("model"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := manager.Resolve("tiny", override)
	if err != nil {
		t.Fatalf("Resolve(override): %v", err)
	}
	if got != override {
		t.Fatalf("Resolve(override) = %s, want %s", got, override)
	}

	if _, err := manager.Resolve("tiny", filepath.Join(dir, "missing.bin")); err == nil {
		t.Fatal("expected error for missing override")
	}
	if _, err := manager.Resolve("tiny", ""); err == nil {
		t.Fatal("expected error for absent variant file")
	}

	staged := filepath.Join(manager.ModelsDir(), "ggml-tiny.en.bin")
	if err := os.WriteFile(staged, []byte("model"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err = manager.Resolve("tiny", "")
	if err != nil {
		t.Fatalf("Resolve(variant): %v", err)
	}
	if got != staged {
		t.Fatalf("Resolve(variant) = %s, want %s", got, staged)
	}
}

func TestEnsureVariantDownloadsAndVerifies(t *testing.T) {
	payload := []byte("pretend this is a ggml model")
	digest := sha256.Sum256(payload)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	manager, err := NewManager(dir, testLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	manifest := Manifest{Variants: map[string]Variant{
		"tiny": {
			Filename: "ggml-tiny.en.bin",
			URL:      srv.URL + "/ggml-tiny.en.bin",
			SHA256:   hex.EncodeToString(digest[:]),
		},
	}}

	path, err := manager.EnsureVariant(context.Background(), "tiny", EnsureOptions{Manifest: manifest})
	if err != nil {
		t.Fatalf("EnsureVariant: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("downloaded payload mismatch")
	}

	// Second call resolves the cached file without hitting the server.
	srv.Close()
	again, err := manager.EnsureVariant(context.Background(), "tiny", EnsureOptions{Manifest: manifest})
	if err != nil {
		t.Fatalf("EnsureVariant(cached): %v", err)
	}
	if again != path {
		t.Fatalf("cached path = %s, want %s", again, path)
	}
}

func TestEnsureVariantChecksumMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("corrupted"))
	}))
	defer srv.Close()

	manager, err := NewManager(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	manifest := Manifest{Variants: map[string]Variant{
		"tiny": {
			Filename: "ggml-tiny.en.bin",
			URL:      srv.URL,
			SHA256:   strings.Repeat("0", 64),
		},
	}}

	if _, err := manager.EnsureVariant(context.Background(), "tiny", EnsureOptions{Manifest: manifest}); err == nil {
		t.Fatal("expected checksum mismatch error")
	}
	if _, statErr := os.Stat(filepath.Join(manager.ModelsDir(), "ggml-tiny.en.bin")); statErr == nil {
		t.Fatal("corrupt download left in place")
	}
}

func TestEnsureVariantUnknown(t *testing.T) {
	manager, err := NewManager(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := manager.EnsureVariant(context.Background(), "huge", EnsureOptions{Manifest: Manifest{}}); err == nil {
		t.Fatal("expected error for unknown variant")
	}
}
