package covers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDownloadSavesJPEG(t *testing.T) {
	body := pngBytes(t, 200, 300)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer server.Close()

	dir := t.TempDir()
	d := NewDownloader(dir, WithHTTPClient(server.Client()))

	path, err := d.Download(context.Background(), server.URL+"/abc.jpg", 42)
	require.NoError(t, err)

	saved, err := imaging.Open(path)
	require.NoError(t, err)
	require.Equal(t, 200, saved.Bounds().Dx())
	require.Equal(t, 300, saved.Bounds().Dy())
}

func TestDownloadResizesWideImages(t *testing.T) {
	body := pngBytes(t, 400, 200)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer server.Close()

	d := NewDownloader(t.TempDir(), WithHTTPClient(server.Client()), WithMaxWidth(100))

	path, err := d.Download(context.Background(), server.URL+"/wide.jpg", 7)
	require.NoError(t, err)

	saved, err := imaging.Open(path)
	require.NoError(t, err)
	require.Equal(t, 100, saved.Bounds().Dx())
	require.Equal(t, 50, saved.Bounds().Dy())
}

func TestDownloadKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write(pngBytes(t, 50, 50))
	}))
	defer server.Close()

	d := NewDownloader(dir, WithHTTPClient(server.Client()))

	path, err := d.Download(context.Background(), server.URL+"/p.jpg", 1)
	require.NoError(t, err)
	require.Equal(t, 1, hits)

	again, err := d.Download(context.Background(), server.URL+"/p.jpg", 1)
	require.NoError(t, err)
	require.Equal(t, path, again)
	require.Equal(t, 1, hits, "existing cover must not be re-downloaded")
}

func TestDownloadRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	d := NewDownloader(t.TempDir(), WithHTTPClient(server.Client()))

	_, err := d.Download(context.Background(), server.URL+"/missing.jpg", 2)
	require.Error(t, err)
}

func TestDownloadRejectsNonImageBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not an image</html>"))
	}))
	defer server.Close()

	dir := t.TempDir()
	d := NewDownloader(dir, WithHTTPClient(server.Client()))

	_, err := d.Download(context.Background(), server.URL+"/bad.jpg", 3)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "no partial file should be left behind")
}
