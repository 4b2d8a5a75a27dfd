package synthesis

import (
	"context"
	"encoding/base64"
)

// ImagePart is one image forwarded to the synthesis backend.
type ImagePart struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Request describes one image-edit invocation: a text prompt plus the room
// photo(s) and reference imagery to merge.
type Request struct {
	Prompt string
	Images []ImagePart
	Size   string
	Count  int
}

// Synthesizer invokes an external image-editing service and returns the
// decoded image bytes. Implementations make a single attempt; retrying is the
// caller's decision.
type Synthesizer interface {
	Edit(ctx context.Context, req Request) ([]byte, error)
}

// DefaultSize is the fixed output resolution requested from every backend.
const DefaultSize = "1024x1024"

// stubSynthesizer returns a fixed placeholder image. Used in local
// development when no backend is configured.
type stubSynthesizer struct{}

// NewStub returns a synthesizer producing a 1x1 placeholder PNG.
func NewStub() Synthesizer {
	return stubSynthesizer{}
}

// onePixelPNG is a valid single-pixel PNG.
const onePixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

func (stubSynthesizer) Edit(_ context.Context, _ Request) ([]byte, error) {
	return base64.StdEncoding.DecodeString(onePixelPNG)
}
