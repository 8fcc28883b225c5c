// Package gallery is a small web UI over the renders stored in a bucket.
package gallery

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/golang/glog"
	"github.com/nfnt/resize"
	"google.golang.org/api/iterator"

	"r3trace/r2image"
)

const thumbnailSize = 256

// ObjectStore is the part of a bucket the gallery reads.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

type GCSStore struct {
	Bucket *storage.BucketHandle
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("while creating GCS client: %w", err)
	}
	return &GCSStore{Bucket: client.Bucket(bucket)}, nil
}

func (g *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	objIt := g.Bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		objAttr, err := objIt.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while listing objects: %w", err)
		}
		names = append(names, objAttr.Name)
	}
	return names, nil
}

func (g *GCSStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := g.Bucket.Object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("while opening %q: %w", name, err)
	}
	return r, nil
}

type Site struct {
	pathPrefix   string
	objectPrefix string
	store        ObjectStore
}

func New(pathPrefix, objectPrefix string, store ObjectStore) (*Site, error) {
	if strings.HasSuffix(pathPrefix, "/") {
		return nil, fmt.Errorf("pathPrefix should not end in /")
	}
	return &Site{
		pathPrefix:   pathPrefix,
		objectPrefix: objectPrefix,
		store:        store,
	}, nil
}

const listText = `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="UTF-8">
    <title>Renders</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
  </head>
  <body>
    {{range .}}
      <a href="{{.ImageURL}}"><img src="{{.ThumbURL}}" alt="{{.Name}}" title="{{.Name}}"></a>
    {{else}}
      No renders yet!
    {{end}}
  </body>
</html>
`

var listTemplate = template.Must(template.New("list").Parse(listText))

func isImage(name string) bool {
	_, err := r2image.FormatFromPath(name)
	return err == nil
}

func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimPrefix(r.URL.Path, s.pathPrefix)
	if len(p) == len(r.URL.Path) && s.pathPrefix != "" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	switch {
	case p == "" || p == "/":
		s.handleList(w, r)
	case strings.HasPrefix(p, "/image/"):
		s.handleImage(w, r, strings.TrimPrefix(p, "/image/"))
	case strings.HasPrefix(p, "/thumb/"):
		s.handleThumb(w, r, strings.TrimPrefix(p, "/thumb/"))
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (s *Site) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.List(r.Context(), s.objectPrefix)
	if err != nil {
		glog.Errorf("gallery: %v", err)
		http.Error(w, "Unknown", http.StatusInternalServerError)
		return
	}
	sort.Strings(names)

	type entry struct {
		Name     string
		ImageURL string
		ThumbURL string
	}
	var entries []entry
	for _, n := range names {
		rel := strings.TrimPrefix(strings.TrimPrefix(n, s.objectPrefix), "/")
		if !isImage(rel) {
			continue
		}
		escaped := (&url.URL{Path: rel}).EscapedPath()
		entries = append(entries, entry{
			Name:     rel,
			ImageURL: s.pathPrefix + "/image/" + escaped,
			ThumbURL: s.pathPrefix + "/thumb/" + escaped,
		})
	}

	if err := listTemplate.Execute(w, entries); err != nil {
		glog.Errorf("Error while writing http response: %v", err)
	}
}

// object maps a request path back to a bucket object, refusing anything that
// climbs out of the prefix.
func (s *Site) object(rel string) (string, bool) {
	clean := path.Clean("/" + rel)
	if clean == "/" || !isImage(clean) {
		return "", false
	}
	return path.Join(s.objectPrefix, clean[1:]), true
}

func (s *Site) handleImage(w http.ResponseWriter, r *http.Request, rel string) {
	name, ok := s.object(rel)
	if !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	reader, err := s.store.Open(r.Context(), name)
	if err != nil {
		glog.Errorf("gallery: %v", err)
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	defer reader.Close()

	format, _ := r2image.FormatFromPath(name)
	w.Header().Set("Content-Type", r2image.ContentType(format))
	if _, err := io.Copy(w, reader); err != nil {
		glog.Errorf("gallery: error while writing response body: %v", err)
	}
}

func (s *Site) handleThumb(w http.ResponseWriter, r *http.Request, rel string) {
	name, ok := s.object(rel)
	if !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	reader, err := s.store.Open(r.Context(), name)
	if err != nil {
		glog.Errorf("gallery: %v", err)
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	defer reader.Close()

	img, err := r2image.Decode(reader)
	if err != nil {
		glog.Errorf("gallery: %q: %v", name, err)
		http.Error(w, "Unknown", http.StatusInternalServerError)
		return
	}

	thumb := resize.Thumbnail(thumbnailSize, thumbnailSize, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		glog.Errorf("gallery: while encoding thumbnail: %v", err)
		http.Error(w, "Unknown", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(buf.Bytes()); err != nil {
		glog.Errorf("gallery: error while writing response body: %v", err)
	}
}
