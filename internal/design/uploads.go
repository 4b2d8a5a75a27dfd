package design

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
)

// TempStore writes uploaded room photos to short-lived files on the local
// filesystem so they can be re-read by the pipeline and removed afterwards.
type TempStore struct {
	BaseDir string
}

// NewTempStore constructs a temp store writing to the provided directory.
// If baseDir is empty, os.TempDir() is used.
func NewTempStore(baseDir string) (*TempStore, error) {
	dir := baseDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &TempStore{BaseDir: dir}, nil
}

// Save writes one multipart file to a temp file and returns its descriptor.
func (t *TempStore) Save(header *multipart.FileHeader) (Upload, error) {
	file, err := header.Open()
	if err != nil {
		return Upload{}, fmt.Errorf("open uploaded file: %w", err)
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if len(ext) > 10 {
		ext = ext[:10]
	}
	tmpFile, err := os.CreateTemp(t.BaseDir, "upload-*"+ext)
	if err != nil {
		return Upload{}, fmt.Errorf("create temp file: %w", err)
	}
	defer tmpFile.Close()

	if _, err := io.Copy(tmpFile, file); err != nil {
		os.Remove(tmpFile.Name())
		return Upload{}, fmt.Errorf("write temp file: %w", err)
	}

	return Upload{
		Path:        tmpFile.Name(),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}

// Cleanup removes every temp file exactly once. It runs on every exit path
// of a generation request.
func Cleanup(uploads []Upload) {
	for _, upload := range uploads {
		if upload.Path == "" {
			continue
		}
		if err := os.Remove(upload.Path); err != nil && !os.IsNotExist(err) {
			log.Printf("remove temp upload %s: %v", upload.Path, err)
		}
	}
}
