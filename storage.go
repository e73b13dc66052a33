package museai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Storage persists generated artwork.
// Implementations can wrap existing storage clients (GCS, S3, etc.).
type Storage interface {
	// SaveFile saves data under path and returns a URL (or file path) for it.
	SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error)
}

// StorageResult contains information about a saved image.
type StorageResult struct {
	// URL is where the image can be accessed
	URL string

	// Path is the storage path/key where the image was saved
	Path string

	// Size is the number of bytes saved
	Size int
}

// SaveImage saves one image to storage as {basePath}.{extension}.
func SaveImage(ctx context.Context, storage Storage, img Image, basePath string) (StorageResult, error) {
	if storage == nil {
		return StorageResult{}, ErrStorageNotConfigured
	}
	if len(img.Data) == 0 {
		return StorageResult{}, ErrEmptyImageData
	}

	path := basePath + "." + extensionFromMIME(img.MIMEType)
	url, err := storage.SaveFile(ctx, img.Data, path, img.MIMEType)
	if err != nil {
		return StorageResult{}, fmt.Errorf("save %s: %w", path, err)
	}

	return StorageResult{
		URL:  url,
		Path: path,
		Size: len(img.Data),
	}, nil
}

// DirStorage stores files below a local directory.
type DirStorage struct {
	Root string
}

// SaveFile writes data to Root/path and returns the absolute file path.
func (d DirStorage) SaveFile(ctx context.Context, data []byte, path string, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean("/" + path)
	full := filepath.Join(d.Root, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(full)
	if err != nil {
		return full, nil
	}
	return abs, nil
}

// extensionFromMIME returns a file extension for common image MIME types.
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
