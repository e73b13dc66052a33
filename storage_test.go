package museai

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	storage := DirStorage{Root: dir}

	res, err := SaveImage(context.Background(), storage, Image{Data: []byte("jpeg"), MIMEType: "image/jpeg"}, "louvre/cat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Path != "louvre/cat.jpg" || res.Size != 4 {
		t.Errorf("unexpected result %+v", res)
	}

	data, err := os.ReadFile(filepath.Join(dir, "louvre", "cat.jpg"))
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if string(data) != "jpeg" {
		t.Errorf("saved %q", data)
	}
}

func TestSaveImage_StaysInsideRoot(t *testing.T) {
	dir := t.TempDir()
	res, err := SaveImage(context.Background(), DirStorage{Root: dir}, pngImage, "../../escape")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(res.URL, dir) {
		t.Errorf("file written outside root: %s", res.URL)
	}
}

func TestSaveImage_Errors(t *testing.T) {
	if _, err := SaveImage(context.Background(), nil, pngImage, "x"); !errors.Is(err, ErrStorageNotConfigured) {
		t.Errorf("expected ErrStorageNotConfigured, got %v", err)
	}
	if _, err := SaveImage(context.Background(), DirStorage{Root: t.TempDir()}, Image{}, "x"); !errors.Is(err, ErrEmptyImageData) {
		t.Errorf("expected ErrEmptyImageData, got %v", err)
	}
}

func TestImageDataURL(t *testing.T) {
	img := Image{Data: []byte("hi")}
	if got := img.DataURL(); got != "data:image/png;base64,aGk=" {
		t.Errorf("DataURL() = %q", got)
	}
}
