package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Manager resolves and downloads model artefacts under a data directory.
type Manager struct {
	baseDir string
	log     *slog.Logger
	client  *http.Client
}

// EnsureOptions controls artefact resolution for EnsureVariant.
type EnsureOptions struct {
	Manifest Manifest
	// Override points at an explicit model file and bypasses the manifest.
	Override string
}

// NewManager creates the models directory under baseDir.
func NewManager(baseDir string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("models: base directory required")
	}
	dir := filepath.Join(baseDir, "models")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("models: create %s: %w", dir, err)
	}
	return &Manager{
		baseDir: baseDir,
		log:     logger.With("component", "models.Manager"),
		client:  &http.Client{Timeout: 30 * time.Minute},
	}, nil
}

// ModelsDir returns the directory artefacts are stored in.
func (m *Manager) ModelsDir() string {
	return filepath.Join(m.baseDir, "models")
}

// Resolve returns the path of an already present model file. An override
// path wins when it exists; otherwise the variant's manifest filename is
// looked up in the models directory.
func (m *Manager) Resolve(variant, override string) (string, error) {
	if p := strings.TrimSpace(override); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("models: override %s: %w", p, err)
		}
		return p, nil
	}

	manifest, err := DefaultManifest()
	if err != nil {
		return "", err
	}
	v, ok := manifest.Variants[variant]
	if !ok {
		return "", fmt.Errorf("models: unknown variant %q", variant)
	}
	path := filepath.Join(m.ModelsDir(), v.Filename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("models: variant %q not present at %s: %w", variant, path, err)
	}
	return path, nil
}

// EnsureVariant returns a local path for the variant, downloading the
// artefact when it is not already present.
func (m *Manager) EnsureVariant(ctx context.Context, variant string, opts EnsureOptions) (string, error) {
	if p := strings.TrimSpace(opts.Override); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("models: override %s: %w", p, err)
		}
		return p, nil
	}

	v, ok := opts.Manifest.Variants[variant]
	if !ok {
		return "", fmt.Errorf("models: unknown variant %q", variant)
	}

	path := filepath.Join(m.ModelsDir(), v.Filename)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if v.URL == "" {
		return "", fmt.Errorf("models: variant %q has no download URL", variant)
	}
	if err := m.download(ctx, v, path); err != nil {
		return "", err
	}
	return path, nil
}

func (m *Manager) download(ctx context.Context, v Variant, dest string) error {
	m.log.Info("downloading model", "url", v.URL, "dest", dest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.URL, nil)
	if err != nil {
		return fmt.Errorf("models: build request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("models: fetch %s: %w", v.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("models: fetch %s: unexpected status %s", v.URL, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("models: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("models: write %s: %w", dest, err)
	}

	if v.SHA256 != "" {
		got := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(got, v.SHA256) {
			return fmt.Errorf("models: checksum mismatch for %s: got %s, want %s", dest, got, v.SHA256)
		}
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("models: move into place: %w", err)
	}
	m.log.Info("model ready", "dest", dest, "bytes", written)
	return nil
}
