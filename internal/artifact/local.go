package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LocalStore writes generated images beneath a root directory, one
// subdirectory per user. Filenames embed a millisecond timestamp; if two runs
// land in the same millisecond the timestamp is bumped until the exclusive
// create succeeds, so names never collide.
type LocalStore struct {
	Root string

	// now is swappable in tests.
	now func() time.Time
}

// NewLocalStore constructs a store rooted at the given directory.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		root = "generated_images"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root: %w", err)
	}
	return &LocalStore{Root: root, now: time.Now}, nil
}

// Save writes the image bytes under the user's directory and returns the
// public reference path.
func (l *LocalStore) Save(_ context.Context, userID string, data []byte) (Ref, error) {
	if userID == "" {
		return Ref{}, fmt.Errorf("user id is required")
	}
	dir := filepath.Join(l.Root, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Ref{}, fmt.Errorf("create user dir: %w", err)
	}

	clock := l.now
	if clock == nil {
		clock = time.Now
	}

	ts := clock().UnixMilli()
	for {
		name := fmt.Sprintf("generated_image_%d.png", ts)
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			ts++
			continue
		}
		if err != nil {
			return Ref{}, fmt.Errorf("create artifact file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return Ref{}, fmt.Errorf("write artifact: %w", err)
		}
		if err := f.Close(); err != nil {
			return Ref{}, fmt.Errorf("close artifact: %w", err)
		}
		return Ref{
			Key: filepath.ToSlash(filepath.Join(userID, name)),
			URL: fmt.Sprintf("%s/%s/%s", PublicPrefix, userID, name),
		}, nil
	}
}
