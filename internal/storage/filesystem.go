package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"lumina/internal/domain"
	"lumina/internal/upload"
)

// Verifier checks upload credentials before a write is accepted.
type Verifier interface {
	Verify(upload.Credentials) error
}

// FileStore persists uploads onto the local filesystem and serves them under
// baseURL. It is intended for development and test environments where the
// image CDN is not available; transformation parameters are not applied.
type FileStore struct {
	basePath string
	baseURL  string
	verifier Verifier
}

// NewFileStore initializes a FileStore rooted at basePath. Uploads are
// addressed as baseURL + "/" + key. A nil verifier accepts any credentials.
func NewFileStore(basePath, baseURL string, verifier Verifier) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{
		basePath: basePath,
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		verifier: verifier,
	}, nil
}

// Put implements upload.Store. The stored name is unique per upload and keeps
// the extension of the original file.
func (s *FileStore) Put(ctx context.Context, req upload.PutRequest) (upload.Asset, error) {
	if s.verifier != nil {
		if err := s.verifier.Verify(req.Credentials); err != nil {
			return upload.Asset{}, fmt.Errorf("storage: %w: %v", domain.ErrUploadInvalidRequest, err)
		}
	}
	data, err := io.ReadAll(req.File.Body)
	if err != nil {
		if errors.Is(err, domain.ErrFileTooLarge) {
			return upload.Asset{}, err
		}
		return upload.Asset{}, fmt.Errorf("storage: read file: %w", err)
	}
	name := uuid.NewString() + extensionFor(req.File)
	key, err := s.Write(ctx, path.Join(req.Folder, name), data)
	if err != nil {
		return upload.Asset{}, err
	}
	return upload.Asset{URL: s.baseURL + "/" + key, FileID: key}, nil
}

func extensionFor(f upload.File) string {
	if ext := strings.ToLower(filepath.Ext(f.Name)); ext != "" && len(ext) <= 5 {
		return ext
	}
	if exts, err := mime.ExtensionsByType(f.ContentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Write persists the provided bytes at the given relative key and returns the
// canonicalized storage key. Keys are cleaned to prevent directory traversal.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return cleanKey, nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}

var _ upload.Store = (*FileStore)(nil)
