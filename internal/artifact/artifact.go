package artifact

import (
	"context"
	"errors"
)

// ErrStoreDisabled indicates that artifact storage is not currently enabled.
var ErrStoreDisabled = errors.New("artifact store disabled")

// PublicPrefix is the URL prefix under which locally stored artifacts are served.
const PublicPrefix = "/generated_images"

// Ref identifies a stored artifact. URL is the reference handed back to the
// client and recorded on the design.
type Ref struct {
	Key string
	URL string
}

// Store hides the backing implementation for persisting generated images.
type Store interface {
	Save(ctx context.Context, userID string, data []byte) (Ref, error)
}

type disabledStore struct{}

func (disabledStore) Save(_ context.Context, _ string, _ []byte) (Ref, error) {
	return Ref{}, ErrStoreDisabled
}

// Disabled returns a store that always signals disabled storage.
func Disabled() Store {
	return disabledStore{}
}
