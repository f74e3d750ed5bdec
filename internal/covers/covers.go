// Package covers downloads poster images locally so the catalog UI can serve
// them without hitting the provider CDN.
package covers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

const (
	defaultMaxWidth = 1000
	defaultTimeout  = 10 * time.Second
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Downloader fetches poster images and stores resized JPEG copies under a
// directory, one file per entry id.
type Downloader struct {
	dir        string
	maxWidth   int
	httpClient HTTPDoer
}

// Option is a functional option for configuring the Downloader.
type Option func(*Downloader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(d *Downloader) {
		if c != nil {
			d.httpClient = c
		}
	}
}

// WithMaxWidth caps the stored image width; wider images are resized down.
func WithMaxWidth(w int) Option {
	return func(d *Downloader) {
		if w > 0 {
			d.maxWidth = w
		}
	}
}

// NewDownloader creates a Downloader writing into dir.
func NewDownloader(dir string, opts ...Option) *Downloader {
	d := &Downloader{
		dir:        dir,
		maxWidth:   defaultMaxWidth,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches the image, resizes it if it exceeds the width cap and
// saves it as <dir>/<entryID>.jpg. Returns the saved path. An existing file
// for the entry is kept as is.
func (d *Downloader) Download(ctx context.Context, imageURL string, entryID int64) (string, error) {
	savePath := filepath.Join(d.dir, fmt.Sprintf("%d.jpg", entryID))
	if _, err := os.Stat(savePath); err == nil {
		return savePath, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d downloading image", resp.StatusCode)
	}

	img, err := imaging.Decode(resp.Body, imaging.AutoOrientation(true))
	if err != nil {
		return "", err
	}

	if img.Bounds().Dx() > d.maxWidth {
		img = imaging.Resize(img, d.maxWidth, 0, imaging.Lanczos)
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", err
	}
	if err := imaging.Save(img, savePath, imaging.JPEGQuality(85)); err != nil {
		return "", err
	}
	return savePath, nil
}
