package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"r3trace/r2image"
	"r3trace/vmath/rgb"
)

type memStore map[string][]byte

func (m memStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for n := range m {
		if strings.HasPrefix(n, prefix) {
			names = append(names, n)
		}
	}
	return names, nil
}

func (m memStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	data, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("no object %q", name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	im := r2image.New(w, h)
	for i := range im.Pix {
		im.Pix[i] = rgb.Gray(0.5)
	}
	var buf bytes.Buffer
	if err := im.Encode(&buf, "png"); err != nil {
		t.Fatalf("Error while encoding: %v", err)
	}
	return buf.Bytes()
}

func newSite(t *testing.T) *Site {
	t.Helper()
	store := memStore{
		"renders/a.png":     pngBytes(t, 600, 300),
		"renders/notes.txt": []byte("hello"),
		"other/b.png":       pngBytes(t, 4, 4),
	}
	s, err := New("/gallery", "renders", store)
	if err != nil {
		t.Fatalf("Error while creating site: %v", err)
	}
	return s
}

func get(s *Site, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestList(t *testing.T) {
	rec := get(newSite(t), "/gallery/")
	if rec.Code != http.StatusOK {
		t.Fatalf("Bad status; got %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "/gallery/thumb/a.png") {
		t.Errorf("Listing missing a.png thumbnail:\n%s", body)
	}
	if strings.Contains(body, "notes.txt") || strings.Contains(body, "b.png") {
		t.Errorf("Listing shows objects it should not:\n%s", body)
	}
}

func TestThumbnail(t *testing.T) {
	rec := get(newSite(t), "/gallery/thumb/a.png")
	if rec.Code != http.StatusOK {
		t.Fatalf("Bad status; got %d, want 200", rec.Code)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("Error while decoding thumbnail: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 256 || b.Dy() != 128 {
		t.Errorf("Bad thumbnail size; got %dx%d, want 256x128", b.Dx(), b.Dy())
	}
}

// brokenWriter is a ResponseWriter whose client has gone away.
type brokenWriter struct {
	*httptest.ResponseRecorder
	writes int
}

func (b *brokenWriter) Write(p []byte) (int, error) {
	b.writes++
	return 0, errors.New("connection reset")
}

func TestThumbnailWriteFailure(t *testing.T) {
	w := &brokenWriter{ResponseRecorder: httptest.NewRecorder()}
	newSite(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gallery/thumb/a.png", nil))
	if w.writes != 1 {
		t.Errorf("Bad write count; got %d, want 1", w.writes)
	}
	if got := w.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("Bad content type; got %q, want image/png", got)
	}
}

func TestImageAndNotFound(t *testing.T) {
	s := newSite(t)

	rec := get(s, "/gallery/image/a.png")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("Bad image response; code %d content type %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	for _, p := range []string{"/gallery/image/missing.png", "/gallery/image/notes.txt", "/gallery/image/../other/b.png", "/elsewhere/", "/gallery/bogus"} {
		if rec := get(s, p); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: got %d, want 404", p, rec.Code)
		}
	}
}
