package sampleimage

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"r3trace/vmath/rgb"
)

func TestRecordAndResolve(t *testing.T) {
	im := New(2, 3)
	im.RecordSample(1, 2, rgb.T{1, 0, 0})
	im.RecordSample(1, 2, rgb.T{0, 1, 0})

	if got := im.Count(1, 2); got != 2 {
		t.Errorf("Bad count; got %d, want 2", got)
	}

	res := im.Resolve()
	if got, want := res.Get(1, 2), (rgb.T{0.5, 0.5, 0}); got != want {
		t.Errorf("Bad resolved pixel; got %v, want %v", got, want)
	}
	if got := res.Get(0, 0); !got.IsBlack() {
		t.Errorf("Unsampled pixel; got %v, want black", got)
	}
}

func TestCutPaste(t *testing.T) {
	im := New(4, 4)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			im.RecordSample(r, c, rgb.Gray(float64(r*4+c)))
		}
	}

	chunk := im.Cut(1, 3, 0, 4)
	if chunk.Rows != 2 || chunk.Cols != 4 {
		t.Fatalf("Bad chunk size; got %dx%d, want 2x4", chunk.Rows, chunk.Cols)
	}
	if sum, _ := chunk.ReadSample(0, 1); sum[0] != 5 {
		t.Errorf("Bad chunk sample; got %v, want 5", sum[0])
	}

	chunk.RecordSample(0, 1, rgb.Gray(1))
	dst := New(4, 4)
	dst.Paste(chunk, 1, 0)
	if sum, count := dst.ReadSample(1, 1); sum[0] != 6 || count != 2 {
		t.Errorf("Bad pasted sample; got %v/%v, want 6/2", sum[0], count)
	}
	if _, count := dst.ReadSample(0, 0); count != 0 {
		t.Errorf("Paste wrote outside its rows; count %v", count)
	}
}

func TestWriteRead(t *testing.T) {
	im := New(3, 5)
	im.RecordSample(2, 4, rgb.T{0.25, 0.5, 0.75})
	im.RecordSample(0, 0, rgb.T{1, 2, 3})

	var buf bytes.Buffer
	if err := WriteSampleImage(im, &buf); err != nil {
		t.Fatalf("Error while writing: %v", err)
	}
	got, err := ReadSampleImage(&buf)
	if err != nil {
		t.Fatalf("Error while reading: %v", err)
	}
	if diff := cmp.Diff(got, im); diff != "" {
		t.Errorf("Read back a different image; diff (-got +want)\n%s", diff)
	}

	path := filepath.Join(t.TempDir(), "samples.bin")
	if err := WriteSampleImageToFile(im, path); err != nil {
		t.Fatalf("Error while writing file: %v", err)
	}
	if _, err := ReadSampleImageFromFile(path); err != nil {
		t.Errorf("Error while reading file: %v", err)
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	if _, err := ReadSampleImage(bytes.NewReader([]byte{1, 2, 3})); err == nil {
		t.Errorf("Expected error for truncated header")
	}
}

func TestReadRejectsOversizedHeader(t *testing.T) {
	// Header claims far more pixels than the body holds.
	huge := &SampleImage{Rows: MaxDimension + 1, Cols: 1}

	var buf bytes.Buffer
	if err := WriteSampleImage(huge, &buf); err != nil {
		t.Fatalf("Error while writing: %v", err)
	}
	if _, err := ReadSampleImage(&buf); err == nil {
		t.Errorf("Expected error for %d rows", huge.Rows)
	}
}

func TestNegativeSizeIsEmpty(t *testing.T) {
	im := New(-1, 5)
	if im.Rows != 0 || im.Cols != 5 || len(im.Sums) != 0 || len(im.Counts) != 0 {
		t.Errorf("Bad image for negative rows; got %dx%d with %d sums, want 0x5 with none", im.Rows, im.Cols, len(im.Sums))
	}
}
