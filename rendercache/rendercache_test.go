package rendercache

import (
	"bytes"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	a := Key([]byte("sphere 0 0 0 0 1"), 64, 48, "png")
	b := Key([]byte("sphere 0 0 0 0 1"), 64, 48, "png")
	if !bytes.Equal(a, b) {
		t.Errorf("Same inputs gave different keys")
	}

	for _, other := range [][]byte{
		Key([]byte("sphere 0 0 0 0 2"), 64, 48, "png"),
		Key([]byte("sphere 0 0 0 0 1"), 48, 64, "png"),
		Key([]byte("sphere 0 0 0 0 1"), 64, 48, "jpeg"),
		Key([]byte("sphere 0 0 0 0 1"), "64", 48, "png"),
	} {
		if bytes.Equal(a, other) {
			t.Errorf("Different inputs gave the same key %x", a)
		}
	}
}

func TestGetPut(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Error while opening cache: %v", err)
	}
	defer c.Close()

	key := Key([]byte("scene"), 1)

	if _, ok, err := c.Get(key); err != nil || ok {
		t.Fatalf("Empty cache: got ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	if err := c.Put(key, []byte("image bytes"), time.Hour); err != nil {
		t.Fatalf("Error while writing: %v", err)
	}

	got, ok, err := c.Get(key)
	if err != nil || !ok {
		t.Fatalf("Got ok=%v err=%v, want ok=true err=nil", ok, err)
	}
	if string(got) != "image bytes" {
		t.Errorf("Bad cached value; got %q, want %q", got, "image bytes")
	}
}
