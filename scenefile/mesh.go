package scenefile

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/udhos/gwob"

	"r3trace/geometry"
	"r3trace/r2image"
	"r3trace/vmath/vec2"
	"r3trace/vmath/vec3"
)

func readTexture(path string) (image.Image, error) {
	return r2image.ReadFile(path)
}

// ReadMesh loads a triangle mesh from an OFF or Wavefront OBJ file, chosen by
// extension.
func ReadMesh(path string) (*geometry.Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".off":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("while opening mesh: %w", err)
		}
		defer f.Close()
		return ReadOFF(f, path)
	case ".obj":
		return readOBJ(path)
	}
	return nil, fmt.Errorf("unsupported mesh format %q", filepath.Ext(path))
}

// maxOFFElements bounds the vertex and face counts an OFF header may declare.
const maxOFFElements = 1 << 24

// ReadOFF parses an Object File Format mesh.  Polygons with more than three
// vertices are split into triangle fans.
func ReadOFF(r io.Reader, name string) (*geometry.Mesh, error) {
	toks, err := tokenize(r)
	if err != nil {
		return nil, fmt.Errorf("while reading %s: %w", name, err)
	}
	ts := &tokenStream{file: name, toks: toks}

	magic, err := ts.next("header")
	if err != nil {
		return nil, err
	}
	if magic != "OFF" {
		return nil, ts.errorf(nil, "missing OFF header, got %q", magic)
	}

	nVerts, err := ts.int("vertex count")
	if err != nil {
		return nil, err
	}
	nFaces, err := ts.int("face count")
	if err != nil {
		return nil, err
	}
	if _, err := ts.int("edge count"); err != nil {
		return nil, err
	}
	if nVerts < 0 || nFaces < 0 {
		return nil, ts.errorf(nil, "negative element count")
	}
	if nVerts > maxOFFElements || nFaces > maxOFFElements {
		return nil, ts.errorf(nil, "element count %d/%d exceeds %d", nVerts, nFaces, maxOFFElements)
	}

	verts := make([]vec3.T, nVerts)
	for i := range verts {
		if err := ts.floats("vertex", verts[i][:]); err != nil {
			return nil, err
		}
	}

	var tris []geometry.Triangle
	for i := 0; i < nFaces; i++ {
		n, err := ts.int("face size")
		if err != nil {
			return nil, err
		}
		if n < 3 {
			return nil, ts.errorf(nil, "face %d has %d vertices", i, n)
		}
		idx := make([]int, n)
		for j := range idx {
			if idx[j], err = ts.int("face vertex"); err != nil {
				return nil, err
			}
			if idx[j] < 0 || idx[j] >= nVerts {
				return nil, ts.errorf(nil, "vertex index %d out of range", idx[j])
			}
		}
		for j := 1; j+1 < n; j++ {
			tris = append(tris, geometry.Triangle{
				V: [3]vec3.T{verts[idx[0]], verts[idx[j]], verts[idx[j+1]]},
			})
		}
	}

	return geometry.NewMesh(tris), nil
}

func readOBJ(path string) (*geometry.Mesh, error) {
	obj, err := gwob.NewObjFromFile(path, &gwob.ObjParserOptions{
		Logger: func(msg string) { glog.V(2).Info(msg) },
	})
	if err != nil {
		return nil, fmt.Errorf("while parsing %s: %w", path, err)
	}

	stride := obj.StrideSize / 4
	posOffset := obj.StrideOffsetPosition / 4
	texOffset := obj.StrideOffsetTexture / 4

	vertex := func(i int) vec3.T {
		base := stride*i + posOffset
		return vec3.T{obj.Coord64(base), obj.Coord64(base + 1), obj.Coord64(base + 2)}
	}
	texCoord := func(i int) vec2.T {
		base := stride*i + texOffset
		return vec2.T{obj.Coord64(base), obj.Coord64(base + 1)}
	}

	tris := make([]geometry.Triangle, 0, len(obj.Indices)/3)
	for f := 0; f+2 < len(obj.Indices); f += 3 {
		tri := geometry.Triangle{HasUV: obj.TextCoordFound}
		for v := 0; v < 3; v++ {
			tri.V[v] = vertex(obj.Indices[f+v])
			if tri.HasUV {
				tri.UV[v] = texCoord(obj.Indices[f+v])
			}
		}
		tris = append(tris, tri)
	}

	return geometry.NewMesh(tris), nil
}
