package imagesink

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

func TestParseURI(t *testing.T) {
	testCases := []struct {
		uri                    string
		scheme, bucket, prefix string
		wantErr                bool
	}{
		{uri: "gs://renders/out/", scheme: "gs", bucket: "renders", prefix: "out"},
		{uri: "s3://renders", scheme: "s3", bucket: "renders", prefix: ""},
		{uri: "/tmp/renders", scheme: "file", bucket: "/tmp/renders"},
		{uri: "ftp://host/dir", wantErr: true},
		{uri: "gs:///nobucket", wantErr: true},
		{uri: "", wantErr: true},
	}

	for _, tc := range testCases {
		scheme, bucket, prefix, err := ParseURI(tc.uri)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseURI(%q): expected error", tc.uri)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseURI(%q): unexpected error %v", tc.uri, err)
			continue
		}
		if scheme != tc.scheme || bucket != tc.bucket || prefix != tc.prefix {
			t.Errorf("ParseURI(%q) = %q, %q, %q; want %q, %q, %q", tc.uri, scheme, bucket, prefix, tc.scheme, tc.bucket, tc.prefix)
		}
	}
}

func TestFileSink(t *testing.T) {
	dir := t.TempDir()
	sink, err := Open(context.Background(), dir, S3Config{})
	if err != nil {
		t.Fatalf("Error while opening sink: %v", err)
	}

	u, err := sink.Put(context.Background(), "a/b.png", "image/png", []byte("png"))
	if err != nil {
		t.Fatalf("Error while putting: %v", err)
	}
	if !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, "/a/b.png") {
		t.Errorf("Bad URL %q", u)
	}

	got, err := os.ReadFile(filepath.Join(dir, "a", "b.png"))
	if err != nil {
		t.Fatalf("Error while reading back: %v", err)
	}
	if string(got) != "png" {
		t.Errorf("Bad contents; got %q, want %q", got, "png")
	}
}

type fakeS3 struct {
	s3iface.S3API
	got  *s3.PutObjectInput
	body []byte
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	f.got = in
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink(t *testing.T) {
	fake := &fakeS3{}
	sink := &S3Sink{Client: fake, Bucket: "renders", Prefix: "scenes", PublicURL: "https://cdn.example.com/"}

	u, err := sink.Put(context.Background(), "room 1.jpg", "image/jpeg", []byte("jpeg"))
	if err != nil {
		t.Fatalf("Error while putting: %v", err)
	}
	if want := "https://cdn.example.com/scenes/room%201.jpg"; u != want {
		t.Errorf("Bad URL; got %q, want %q", u, want)
	}
	if aws.StringValue(fake.got.Key) != "scenes/room 1.jpg" || aws.StringValue(fake.got.ContentType) != "image/jpeg" {
		t.Errorf("Bad request; got %+v", fake.got)
	}
	if string(fake.body) != "jpeg" {
		t.Errorf("Bad body; got %q", fake.body)
	}

	if _, err := NewS3Sink(S3Config{AccessKey: "a", SecretKey: "b", Region: "us-east-1", Endpoint: "http://localhost:9000"}, "renders", ""); err != nil {
		t.Errorf("Error while building S3 sink: %v", err)
	}
}

func TestS3ConfigFromEnv(t *testing.T) {
	t.Setenv("S3_ACCESS_KEY", "ak")
	t.Setenv("S3_SECRET_KEY", "sk")
	t.Setenv("S3_ENDPOINT", "https://minio.local")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("CDN_URL", "")

	want := S3Config{AccessKey: "ak", SecretKey: "sk", Endpoint: "https://minio.local", Region: "us-east-1"}
	if got := S3ConfigFromEnv(); got != want {
		t.Errorf("Bad config; got %+v, want %+v", got, want)
	}
}
