// Package imagesink publishes finished renders to a directory, a GCS bucket,
// or an S3-compatible bucket.
package imagesink

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

const uploadTimeout = 30 * time.Second

type Sink interface {
	// Put stores data under name and returns a URL where it can be found.
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

type FileSink struct {
	Dir string
}

func (f *FileSink) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	p := filepath.Join(f.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("while creating directory for %s: %w", name, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("while writing %s: %w", p, err)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("while resolving %s: %w", p, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

type GCSSink struct {
	Client *storage.Client
	Bucket string
	Prefix string
}

func (g *GCSSink) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	object := path.Join(g.Prefix, name)
	w := g.Client.Bucket(g.Bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("while writing gs://%s/%s: %w", g.Bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("while finishing gs://%s/%s: %w", g.Bucket, object, err)
	}

	return "https://storage.googleapis.com/" + url.PathEscape(g.Bucket) + "/" + escapeObject(object), nil
}

func escapeObject(object string) string {
	parts := strings.Split(object, "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}
	return strings.Join(parts, "/")
}

// S3Config is the connection information for an S3-compatible store.
type S3Config struct {
	AccessKey string
	SecretKey string
	Endpoint  string
	Region    string

	// Optional.  Base of the URLs returned by Put, such as a CDN.
	PublicURL string
}

// S3ConfigFromEnv reads S3_ACCESS_KEY, S3_SECRET_KEY, S3_ENDPOINT, S3_REGION
// and CDN_URL.
func S3ConfigFromEnv() S3Config {
	return S3Config{
		AccessKey: os.Getenv("S3_ACCESS_KEY"),
		SecretKey: os.Getenv("S3_SECRET_KEY"),
		Endpoint:  os.Getenv("S3_ENDPOINT"),
		Region:    os.Getenv("S3_REGION"),
		PublicURL: os.Getenv("CDN_URL"),
	}
}

type S3Sink struct {
	Client    s3iface.S3API
	Bucket    string
	Prefix    string
	PublicURL string
}

func NewS3Sink(cfg S3Config, bucket, prefix string) (*S3Sink, error) {
	awsConfig := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(true),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("while creating S3 session: %w", err)
	}

	return &S3Sink{
		Client:    s3.New(sess),
		Bucket:    bucket,
		Prefix:    prefix,
		PublicURL: cfg.PublicURL,
	}, nil
}

func (s *S3Sink) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	key := path.Join(s.Prefix, name)
	_, err := s.Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("while uploading s3://%s/%s: %w", s.Bucket, key, err)
	}

	if s.PublicURL != "" {
		return strings.TrimSuffix(s.PublicURL, "/") + "/" + escapeObject(key), nil
	}
	return "s3://" + s.Bucket + "/" + key, nil
}

// ParseURI splits a sink location into its scheme ("gs", "s3" or "file"),
// bucket and object prefix.  For "file" the bucket is the directory.
func ParseURI(uri string) (scheme, bucket, prefix string, err error) {
	switch {
	case strings.HasPrefix(uri, "gs://"), strings.HasPrefix(uri, "s3://"):
		u, err := url.Parse(uri)
		if err != nil {
			return "", "", "", fmt.Errorf("while parsing sink %q: %w", uri, err)
		}
		if u.Host == "" {
			return "", "", "", fmt.Errorf("sink %q names no bucket", uri)
		}
		return u.Scheme, u.Host, strings.Trim(u.Path, "/"), nil
	case strings.Contains(uri, "://"):
		return "", "", "", fmt.Errorf("unsupported sink scheme in %q", uri)
	case uri == "":
		return "", "", "", fmt.Errorf("empty sink location")
	}
	return "file", uri, "", nil
}

// Open builds the sink for uri.  s3cfg is only consulted for s3:// locations.
func Open(ctx context.Context, uri string, s3cfg S3Config) (Sink, error) {
	scheme, bucket, prefix, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "gs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("while creating GCS client: %w", err)
		}
		return &GCSSink{Client: client, Bucket: bucket, Prefix: prefix}, nil
	case "s3":
		return NewS3Sink(s3cfg, bucket, prefix)
	}
	return &FileSink{Dir: bucket}, nil
}
