// Package devkit provides stand-in collaborators for local runs: a scraper
// that yields nothing, a poster that only logs, and a frame extractor that
// treats the blob as raw luma bytes. Production deployments supply real
// platform integrations instead.
package devkit

import (
	"bytes"
	"context"
	"image"
	"io"
	"log/slog"

	"github.com/clipherd/clipherd/pkg/clipherd"
)

// StubScraper discovers nothing and serves fetches from a fixed payload.
type StubScraper struct {
	Payload []byte
}

func (s StubScraper) Discover(ctx context.Context, account string) ([]clipherd.RawContent, error) {
	return nil, nil
}

func (s StubScraper) Fetch(ctx context.Context, sourceRef string) (io.ReadCloser, error) {
	payload := s.Payload
	if len(payload) == 0 {
		// Non-empty so frame sampling has something to chew on.
		payload = []byte(sourceRef)
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

// LogPoster logs instead of publishing.
type LogPoster struct {
	Logger *slog.Logger
}

func (p LogPoster) Publish(ctx context.Context, account string, video io.Reader, caption string) error {
	n, err := io.Copy(io.Discard, video)
	if err != nil {
		return err
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("dev poster: publish", "account", account, "bytes", n, "caption", caption)
	return nil
}

// ByteFrameExtractor derives sample frames from the blob bytes themselves
// instead of decoding video. Identical blobs produce identical frames, so
// duplicate detection still behaves end to end.
type ByteFrameExtractor struct{}

func (ByteFrameExtractor) Sample(ctx context.Context, video io.Reader) ([]image.Image, error) {
	data, err := io.ReadAll(video)
	if err != nil {
		return nil, err
	}

	frames := make([]image.Image, clipherd.FrameSamples)
	for i := range frames {
		frames[i] = frameFromBytes(data, i)
	}
	return frames, nil
}

// frameFromBytes fills an 8x8 grayscale image from a slice of the payload,
// offset per frame index so the sampled frames differ from each other.
func frameFromBytes(data []byte, frame int) image.Image {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	if len(data) == 0 {
		return img
	}
	for i := range img.Pix {
		img.Pix[i] = data[(frame*len(img.Pix)+i*7)%len(data)]
	}
	return img
}
