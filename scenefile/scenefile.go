// Package scenefile reads scenes written in the R3 text scene format.
//
// A scene file is a sequence of commands, each a keyword followed by a fixed
// number of whitespace separated arguments.  Shapes and groups name a material
// by its 0-based index in the order materials were declared, or -1 to use the
// material of the enclosing group.  begin/end bracket a group whose transform
// is given as a row-major 4x4 matrix.
package scenefile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"r3trace/affinetransform"
	"r3trace/camera"
	"r3trace/geometry"
	"r3trace/light"
	"r3trace/material"
	"r3trace/scene"
	"r3trace/vmath/mat44"
	"r3trace/vmath/rgb"
	"r3trace/vmath/vec3"
)

const maxIncludeDepth = 16

// loader holds state shared by a file and everything it includes.
type loader struct {
	s         *scene.Scene
	hasCamera bool
	textures  map[string]material.MaterialMap

	// Empty when file references are not allowed.
	rootDir string
}

// Load reads the scene file at path.  Included files, meshes and textures are
// resolved relative to the file that names them.
func Load(path string) (*scene.Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening scene file: %w", err)
	}
	defer f.Close()

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("while resolving scene directory: %w", err)
	}
	return parse(f, path, dir)
}

// Parse reads a scene from r.  File references are resolved against dir; if dir
// is empty, commands that name files are errors.
func Parse(r io.Reader, dir string) (*scene.Scene, error) {
	return parse(r, "<input>", dir)
}

func parse(r io.Reader, name, dir string) (*scene.Scene, error) {
	l := &loader{
		s:        scene.New(),
		textures: map[string]material.MaterialMap{},
		rootDir:  dir,
	}

	if err := l.parseStream(r, name, dir, l.s.Root, 0); err != nil {
		return nil, err
	}

	l.s.Prepare()
	if !l.hasCamera {
		l.s.Camera = l.s.DefaultCamera()
	}
	return l.s, nil
}

func (l *loader) resolve(ts *tokenStream, dir, name string) (string, error) {
	if l.rootDir == "" {
		return "", ts.errorf(nil, "file reference %q not allowed here", name)
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	return filepath.Join(dir, name), nil
}

func (l *loader) parseStream(r io.Reader, name, dir string, parent *scene.Node, depth int) error {
	toks, err := tokenize(r)
	if err != nil {
		return newParseError(name, 0, "unreadable scene", err)
	}
	ts := &tokenStream{file: name, toks: toks}

	groups := []*scene.Node{parent}
	for !ts.done() {
		cur := groups[len(groups)-1]
		cmdLine := ts.line()
		cmd, _ := ts.next("command")

		switch cmd {
		case "begin":
			g, err := l.parseBegin(ts, cmdLine)
			if err != nil {
				return err
			}
			groups = append(groups, cur.AddChild(g))
		case "end":
			if len(groups) == 1 {
				return newParseError(name, cmdLine, "end without matching begin", nil)
			}
			groups = groups[:len(groups)-1]
		case "include":
			file, err := ts.next("include file name")
			if err != nil {
				return err
			}
			if depth >= maxIncludeDepth {
				return newParseError(name, cmdLine, "includes nested too deeply", nil)
			}
			path, err := l.resolve(ts, dir, file)
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return newParseError(name, cmdLine, "cannot open include", err)
			}
			err = l.parseStream(f, path, filepath.Dir(path), cur, depth+1)
			f.Close()
			if err != nil {
				return err
			}
		default:
			if err := l.parseCommand(ts, cmd, cmdLine, dir, cur); err != nil {
				return err
			}
		}
	}

	if len(groups) != 1 {
		return newParseError(name, ts.line(), fmt.Sprintf("%d unterminated begin", len(groups)-1), nil)
	}
	return nil
}

func (l *loader) material(ts *tokenStream) (*material.Material, error) {
	idx, err := ts.int("material index")
	if err != nil {
		return nil, err
	}
	if idx == -1 {
		return nil, nil
	}
	if idx < 0 || idx >= len(l.s.Materials) {
		ts.pos--
		return nil, ts.errorf(nil, "material index %d out of range [-1, %d)", idx, len(l.s.Materials))
	}
	return l.s.Materials[idx], nil
}

func (l *loader) parseBegin(ts *tokenStream, line int) (*scene.Node, error) {
	mtl, err := l.material(ts)
	if err != nil {
		return nil, err
	}
	m := mat44.T{}
	if err := ts.floats("transform", m[:]); err != nil {
		return nil, err
	}
	if !m.IsAffine() {
		return nil, newParseError(ts.file, line, "group transform is not affine", nil)
	}

	g := scene.NewNode(fmt.Sprintf("group@%d", line))
	g.Material = mtl
	g.Transform = affinetransform.FromMat44(m)
	return g, nil
}

func vec(v []float64) vec3.T {
	return vec3.T{v[0], v[1], v[2]}
}

func color(v []float64) rgb.T {
	return rgb.T{v[0], v[1], v[2]}
}

func (l *loader) parseCommand(ts *tokenStream, cmd string, line int, dir string, cur *scene.Node) error {
	var shape geometry.Shape
	var mtl *material.Material
	var err error

	switch cmd {
	case "camera":
		v := make([]float64, 12)
		if err := ts.floats("camera", v); err != nil {
			return err
		}
		c := camera.Camera{
			Eye:      vec(v[0:3]),
			Towards:  vec(v[3:6]),
			Up:       vec(v[6:9]),
			XFov:     v[9],
			NearDist: v[10],
			FarDist:  v[11],
		}
		c.SetTowards(c.Towards)
		l.s.Camera = c
		l.hasCamera = true
		return nil

	case "ambient", "background":
		v := make([]float64, 3)
		if err := ts.floats(cmd, v); err != nil {
			return err
		}
		if cmd == "ambient" {
			l.s.Ambient = color(v)
		} else {
			l.s.Background = color(v)
		}
		return nil

	case "material":
		return l.parseMaterial(ts, dir)

	case "dir_light", "point_light", "spot_light", "area_light":
		return l.parseLight(ts, cmd)

	case "sphere":
		if mtl, err = l.material(ts); err != nil {
			return err
		}
		v := make([]float64, 4)
		if err := ts.floats("sphere", v); err != nil {
			return err
		}
		shape = &geometry.Sphere{Center: vec(v[0:3]), Radius: v[3]}

	case "box":
		if mtl, err = l.material(ts); err != nil {
			return err
		}
		v := make([]float64, 6)
		if err := ts.floats("box", v); err != nil {
			return err
		}
		b := &geometry.Box{Min: vec(v[0:3]), Max: vec(v[3:6])}
		for i := 0; i < 3; i++ {
			if b.Min[i] > b.Max[i] {
				b.Min[i], b.Max[i] = b.Max[i], b.Min[i]
			}
		}
		shape = b

	case "cylinder", "cone":
		if mtl, err = l.material(ts); err != nil {
			return err
		}
		v := make([]float64, 5)
		if err := ts.floats(cmd, v); err != nil {
			return err
		}
		if cmd == "cylinder" {
			shape = &geometry.Cylinder{Center: vec(v[0:3]), Radius: v[3], Height: v[4]}
		} else {
			shape = &geometry.Cone{Center: vec(v[0:3]), Radius: v[3], Height: v[4]}
		}

	case "tri":
		if mtl, err = l.material(ts); err != nil {
			return err
		}
		v := make([]float64, 9)
		if err := ts.floats("tri", v); err != nil {
			return err
		}
		shape = &geometry.Triangle{V: [3]vec3.T{vec(v[0:3]), vec(v[3:6]), vec(v[6:9])}}

	case "mesh":
		if mtl, err = l.material(ts); err != nil {
			return err
		}
		file, err := ts.next("mesh file name")
		if err != nil {
			return err
		}
		path, err := l.resolve(ts, dir, file)
		if err != nil {
			return err
		}
		m, err := ReadMesh(path)
		if err != nil {
			return newParseError(ts.file, line, "cannot load mesh", err)
		}
		shape = m

	default:
		return newParseError(ts.file, line, fmt.Sprintf("unknown command %q", cmd), nil)
	}

	n := cur.AddChild(scene.NewNode(fmt.Sprintf("%s@%d", cmd, line)))
	n.Shape = shape
	n.Material = mtl
	return nil
}

func (l *loader) parseMaterial(ts *tokenStream, dir string) error {
	v := make([]float64, 17)
	if err := ts.floats("material", v); err != nil {
		return err
	}
	m := &material.Material{
		Ka:                color(v[0:3]),
		Kd:                color(v[3:6]),
		Ks:                color(v[6:9]),
		Kt:                color(v[9:12]),
		Emission:          color(v[12:15]),
		Shininess:         v[15],
		IndexOfRefraction: v[16],
	}

	tex, err := ts.next("texture name")
	if err != nil {
		return err
	}
	if procedural, ok, err := proceduralTexture(ts, tex); err != nil {
		return err
	} else if ok {
		m.Texture = procedural
	} else if tex != "0" {
		path, err := l.resolve(ts, dir, tex)
		if err != nil {
			return err
		}
		mm, ok := l.textures[path]
		if !ok {
			img, err := readTexture(path)
			if err != nil {
				return ts.errorf(err, "cannot load texture")
			}
			mm = material.Image(img)
			l.textures[path] = mm
		}
		m.Texture = mm
	}

	l.s.AddMaterial(m)
	return nil
}

// proceduralTexture recognizes the built-in textures checker:<period>,
// checker3d:<period> and bullseye:<period>, which alternate white and black.
func proceduralTexture(ts *tokenStream, name string) (material.MaterialMap, bool, error) {
	kind, arg, found := strings.Cut(name, ":")
	if !found {
		return nil, false, nil
	}

	var build func(period float64, a, b rgb.T) material.MaterialMap
	switch kind {
	case "checker":
		build = material.CheckerboardSurface
	case "checker3d":
		build = material.CheckerboardVolume
	case "bullseye":
		build = material.BullseyeSurface
	default:
		return nil, false, nil
	}

	period, err := strconv.ParseFloat(arg, 64)
	if err != nil || !(period > 0) {
		ts.pos--
		return nil, false, ts.errorf(err, "bad period %q for %s texture", arg, kind)
	}
	return build(period, rgb.Gray(1), rgb.Gray(0)), true, nil
}

func (l *loader) parseLight(ts *tokenStream, cmd string) error {
	col := make([]float64, 3)
	if err := ts.floats(cmd+" color", col); err != nil {
		return err
	}

	switch cmd {
	case "dir_light":
		d := make([]float64, 3)
		if err := ts.floats("light direction", d); err != nil {
			return err
		}
		l.s.AddLight(&light.Directional{Color: color(col), Direction: vec3.Normalize(vec(d))})

	case "point_light":
		v := make([]float64, 6)
		if err := ts.floats("point light", v); err != nil {
			return err
		}
		l.s.AddLight(&light.Point{
			Color:       color(col),
			Position:    vec(v[0:3]),
			Attenuation: light.Attenuation{Constant: v[3], Linear: v[4], Quadratic: v[5]},
		})

	case "spot_light":
		v := make([]float64, 11)
		if err := ts.floats("spot light", v); err != nil {
			return err
		}
		l.s.AddLight(&light.Spot{
			Color:       color(col),
			Position:    vec(v[0:3]),
			Direction:   vec3.Normalize(vec(v[3:6])),
			Attenuation: light.Attenuation{Constant: v[6], Linear: v[7], Quadratic: v[8]},
			CutoffAngle: v[9],
			DropoffRate: v[10],
		})

	case "area_light":
		v := make([]float64, 10)
		if err := ts.floats("area light", v); err != nil {
			return err
		}
		l.s.AddLight(&light.Area{
			Color:       color(col),
			Position:    vec(v[0:3]),
			Direction:   vec3.Normalize(vec(v[3:6])),
			Radius:      v[6],
			Attenuation: light.Attenuation{Constant: v[7], Linear: v[8], Quadratic: v[9]},
		})
	}
	return nil
}
