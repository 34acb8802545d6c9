package genstudio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Storage persists generation results. Implementations can wrap existing
// storage clients (local filesystem, GCS, S3) with this interface.
type Storage interface {
	// SaveFile writes data to the given path and returns a URL or
	// locator for the saved object.
	SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error)
}

// StorageResult describes a saved result.
type StorageResult struct {
	// URL is the locator returned by the storage backend.
	URL string

	// Path is the storage path the result was saved under.
	Path string

	// Size is the number of bytes saved.
	Size int
}

// SaveResult writes a result through the storage backend. Text results are
// saved as UTF-8 at basePath+".txt"; image results keep their encoded
// bytes with an extension derived from the MIME type.
func SaveResult(ctx context.Context, storage Storage, result *Result, basePath string) (*StorageResult, error) {
	if storage == nil {
		return nil, ErrStorageNotConfigured
	}
	if result == nil {
		return nil, nil
	}

	var (
		data        []byte
		path        string
		contentType string
	)
	if result.Image != nil {
		data = result.Image.Data
		contentType = result.Image.MIMEType
		path = basePath + "." + extensionFromMIME(contentType)
	} else {
		data = []byte(result.Text)
		contentType = "text/plain; charset=utf-8"
		path = basePath + ".txt"
	}

	url, err := storage.SaveFile(ctx, data, path, contentType)
	if err != nil {
		return nil, err
	}
	return &StorageResult{URL: url, Path: path, Size: len(data)}, nil
}

// LocalStorage saves files under a root directory on the local filesystem.
type LocalStorage struct {
	Root string
}

func (l *LocalStorage) SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	full := filepath.Join(l.Root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return "file://" + full, nil
}

func extensionFromMIME(mime string) string {
	switch mime {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}
