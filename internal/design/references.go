package design

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"roomcraft/internal/storage"
	"roomcraft/internal/synthesis"
)

const maxReferenceBytes = 8 * 1024 * 1024

// ReferenceFetcher collects the image set forwarded to the synthesis backend:
// the uploaded room photo(s) followed by every reachable candidate picture.
type ReferenceFetcher struct {
	client *http.Client
}

// NewReferenceFetcher constructs a fetcher with a per-request timeout.
func NewReferenceFetcher(timeout time.Duration) *ReferenceFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ReferenceFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Gather reads the uploaded files and fetches each candidate's picture. A
// failing remote fetch is logged and skipped; a failing upload read aborts,
// since the room photo is required input.
func (f *ReferenceFetcher) Gather(ctx context.Context, uploads []Upload, candidates []storage.Furniture) ([]synthesis.ImagePart, error) {
	parts := make([]synthesis.ImagePart, 0, len(uploads)+len(candidates))

	for _, upload := range uploads {
		data, err := os.ReadFile(upload.Path)
		if err != nil {
			return nil, fmt.Errorf("read uploaded image: %w", err)
		}
		contentType := upload.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}
		parts = append(parts, synthesis.ImagePart{
			Filename:    upload.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}

	for i, item := range candidates {
		if item.PictureURL == "" {
			continue
		}
		data, contentType, err := f.fetch(ctx, item.PictureURL)
		if err != nil {
			log.Printf("skipping furniture image %s: %v", item.PictureURL, err)
			continue
		}
		if contentType == "" {
			contentType = "image/jpeg"
		}
		parts = append(parts, synthesis.ImagePart{
			Filename:    fmt.Sprintf("furniture-image-%d.jpeg", i),
			ContentType: contentType,
			Data:        data,
		})
	}

	return parts, nil
}

func (f *ReferenceFetcher) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("status %d from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReferenceBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxReferenceBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxReferenceBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
