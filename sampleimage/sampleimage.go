// Package sampleimage is the render accumulation buffer.  It keeps per-pixel
// sums and sample counts so that renders can be stopped, saved, and resumed.
package sampleimage

import (
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"r3trace/r2image"
	"r3trace/vmath/rgb"
)

const dataLayoutVersion = 1

type SampleImage struct {
	Rows, Cols int

	// Three entries (r, g, b) per pixel.
	Sums []float32

	// One entry per pixel.
	Counts []float32
}

// MaxDimension is the largest row or column count a sample file may declare.
const MaxDimension = 1 << 16

func New(rows, cols int) *SampleImage {
	s := &SampleImage{}
	s.Resize(rows, cols)
	return s
}

// Resize discards all samples.  Negative sizes are treated as zero.
func (s *SampleImage) Resize(rows, cols int) {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	s.Rows = rows
	s.Cols = cols

	s.Sums = make([]float32, rows*cols*3)
	s.Counts = make([]float32, rows*cols)
}

func (s *SampleImage) RecordSample(r, c int, v rgb.T) {
	idx := r*s.Cols + c
	s.Sums[3*idx+0] += float32(v[0])
	s.Sums[3*idx+1] += float32(v[1])
	s.Sums[3*idx+2] += float32(v[2])
	s.Counts[idx]++
}

func (s *SampleImage) ReadSample(r, c int) (sum rgb.T, count float32) {
	idx := r*s.Cols + c
	return rgb.T{
		float64(s.Sums[3*idx+0]),
		float64(s.Sums[3*idx+1]),
		float64(s.Sums[3*idx+2]),
	}, s.Counts[idx]
}

func (s *SampleImage) Count(r, c int) int {
	return int(s.Counts[r*s.Cols+c])
}

func (s *SampleImage) Cut(rowSrc, rowLim, colSrc, colLim int) *SampleImage {
	dst := New(rowLim-rowSrc, colLim-colSrc)

	dstIndex := 0
	for r := rowSrc; r < rowLim; r++ {
		for c := colSrc; c < colLim; c++ {
			srcIndex := r*s.Cols + c
			copy(dst.Sums[3*dstIndex:3*dstIndex+3], s.Sums[3*srcIndex:3*srcIndex+3])
			dst.Counts[dstIndex] = s.Counts[srcIndex]
			dstIndex++
		}
	}

	return dst
}

func (s *SampleImage) Paste(src *SampleImage, rowSrc, colSrc int) {
	for r := 0; r < src.Rows; r++ {
		for c := 0; c < src.Cols; c++ {
			dstIndex := (r+rowSrc)*s.Cols + (c + colSrc)
			srcIndex := r*src.Cols + c
			copy(s.Sums[3*dstIndex:3*dstIndex+3], src.Sums[3*srcIndex:3*srcIndex+3])
			s.Counts[dstIndex] = src.Counts[srcIndex]
		}
	}
}

// Resolve averages the samples of every pixel.  Pixels without samples are
// black.
func (s *SampleImage) Resolve() *r2image.Image {
	im := r2image.New(s.Cols, s.Rows)
	for r := 0; r < s.Rows; r++ {
		for c := 0; c < s.Cols; c++ {
			sum, count := s.ReadSample(r, c)
			if count == 0 {
				continue
			}
			im.Set(r, c, rgb.Scale(sum, 1/float64(count)))
		}
	}
	return im
}

func ReadSampleImage(in io.Reader) (*SampleImage, error) {
	var headerLength uint64
	if err := binary.Read(in, binary.LittleEndian, &headerLength); err != nil {
		return nil, fmt.Errorf("while reading header length: %w", err)
	}
	if headerLength > 1<<20 {
		return nil, fmt.Errorf("implausible header length %d", headerLength)
	}

	headerBytes := make([]byte, int(headerLength))
	if _, err := io.ReadFull(in, headerBytes); err != nil {
		return nil, fmt.Errorf("while reading header bytes: %w", err)
	}

	hdr := &structpb.Struct{}
	if err := proto.Unmarshal(headerBytes, hdr); err != nil {
		return nil, fmt.Errorf("while unmarshaling header: %w", err)
	}
	fields := hdr.GetFields()

	if v := fields["dataLayoutVersion"].GetNumberValue(); v != dataLayoutVersion {
		return nil, fmt.Errorf("bad data layout version: %v", v)
	}

	rows := int(fields["rows"].GetNumberValue())
	cols := int(fields["cols"].GetNumberValue())
	if rows < 0 || cols < 0 || rows > MaxDimension || cols > MaxDimension {
		return nil, fmt.Errorf("bad image size %dx%d", cols, rows)
	}

	im := New(rows, cols)

	zipReader, err := zlib.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("while opening zip reader: %w", err)
	}
	defer zipReader.Close()

	if err := binary.Read(zipReader, binary.LittleEndian, im.Sums); err != nil {
		return nil, fmt.Errorf("while reading sample sums: %w", err)
	}

	if err := binary.Read(zipReader, binary.LittleEndian, im.Counts); err != nil {
		return nil, fmt.Errorf("while reading sample counts: %w", err)
	}

	return im, nil
}

func ReadSampleImageFromFile(name string) (*SampleImage, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("while opening file: %w", err)
	}
	defer f.Close()

	return ReadSampleImage(f)
}

func WriteSampleImage(im *SampleImage, w io.Writer) error {
	hdr, err := structpb.NewStruct(map[string]interface{}{
		"rows":              im.Rows,
		"cols":              im.Cols,
		"dataLayoutVersion": dataLayoutVersion,
	})
	if err != nil {
		return fmt.Errorf("while building header: %w", err)
	}

	hdrBytes, err := proto.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("while marshaling header: %w", err)
	}

	headerLengthBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(headerLengthBytes, uint64(len(hdrBytes)))
	if _, err := w.Write(headerLengthBytes); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}

	if _, err := w.Write(hdrBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	zipWriter := zlib.NewWriter(w)

	if err := binary.Write(zipWriter, binary.LittleEndian, im.Sums); err != nil {
		return fmt.Errorf("while writing sample sums: %w", err)
	}

	if err := binary.Write(zipWriter, binary.LittleEndian, im.Counts); err != nil {
		return fmt.Errorf("while writing sample counts: %w", err)
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("while closing zip writer: %w", err)
	}

	return nil
}

func WriteSampleImageToFile(im *SampleImage, name string) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("while creating file: %w", err)
	}

	if err := WriteSampleImage(im, f); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("while closing file: %w", err)
	}
	return nil
}
