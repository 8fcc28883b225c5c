package scene

import (
	"math"

	"r3trace/aabox"
	"r3trace/affinetransform"
	"r3trace/camera"
	"r3trace/contact"
	"r3trace/geometry"
	"r3trace/kdtree"
	"r3trace/light"
	"r3trace/material"
	"r3trace/ray"
	"r3trace/vmath/mat33"
	"r3trace/vmath/rgb"
	"r3trace/vmath/vec3"
)

// Node is one entry of the scene graph.  Group nodes have a nil Shape.
type Node struct {
	Name  string
	Shape geometry.Shape

	// nil means the material of the enclosing group.
	Material *material.Material

	// Takes node coordinates to parent coordinates.
	Transform affinetransform.AffineTransform

	Children []*Node
	Parent   *Node
}

func NewNode(name string) *Node {
	return &Node{
		Name:      name,
		Transform: affinetransform.Identity(),
	}
}

func (n *Node) AddChild(c *Node) *Node {
	c.Parent = n
	n.Children = append(n.Children, c)
	return c
}

// Intersection is the result of a scene ray query.  When Hit is false, Node is
// nil and the other fields are meaningless.
type Intersection struct {
	Info contact.UpdateInfo
	Node *Node
	Hit  bool

	// The material in effect at Node after inheritance.
	Material *material.Material

	// The contact position in Node's coordinates.
	Local vec3.T
}

type element struct {
	node     *Node
	material *material.Material

	// The transform that takes a ray from world space to model space.
	worldToModel affinetransform.AffineTransform

	// The transform that takes contacts from model space to world space.
	modelToWorld affinetransform.AffineTransform

	// The linear map that takes normal vectors from model space to world space.
	modelToWorldNormals mat33.T

	worldBounds aabox.AABox
}

type Scene struct {
	Root   *Node
	Camera camera.Camera
	Lights []light.Light

	Ambient    rgb.T
	Background rgb.T

	Materials []*material.Material

	elements    []*element
	accelerator *kdtree.KDTree
	bounds      aabox.AABox
}

// New returns an empty scene with a root group node.
func New() *Scene {
	return &Scene{
		Root:   NewNode("root"),
		bounds: aabox.AccumZeroAABox(),
	}
}

// AddMaterial is a convenience function to register a material and get its
// index.
func (s *Scene) AddMaterial(m *material.Material) int {
	s.Materials = append(s.Materials, m)
	return len(s.Materials) - 1
}

func (s *Scene) AddLight(l light.Light) {
	s.Lights = append(s.Lights, l)
}

func (s *Scene) IsPrepared() bool {
	return s.accelerator != nil
}

// Prepare flattens the node hierarchy into world-space elements and builds the
// query accelerator.  It must be called again after the graph changes.
func (s *Scene) Prepare() {
	s.elements = nil
	s.bounds = aabox.AccumZeroAABox()

	var walk func(n *Node, parentToWorld affinetransform.AffineTransform, inherited *material.Material)
	walk = func(n *Node, parentToWorld affinetransform.AffineTransform, inherited *material.Material) {
		nodeToWorld := affinetransform.Compose(parentToWorld, n.Transform)
		mtl := inherited
		if n.Material != nil {
			mtl = n.Material
		}

		if n.Shape != nil {
			worldBounds := n.Shape.GetAABox().Transform(nodeToWorld)
			s.elements = append(s.elements, &element{
				node:                n,
				material:            mtl,
				worldToModel:        nodeToWorld.Invert(),
				modelToWorld:        nodeToWorld,
				modelToWorldNormals: nodeToWorld.NormalTransformMat(),
				worldBounds:         worldBounds,
			})
			s.bounds = aabox.MinContainingAABox(s.bounds, worldBounds)
		}

		for _, c := range n.Children {
			walk(c, nodeToWorld, mtl)
		}
	}
	if s.Root != nil {
		walk(s.Root, affinetransform.Identity(), material.Default())
	}

	kdElements := make([]kdtree.KDElement, len(s.elements))
	for i, e := range s.elements {
		kdElements[i] = kdtree.KDElement{Ref: i, Bounds: e.worldBounds}
	}
	s.accelerator = kdtree.NewKDTree(kdElements)
	s.accelerator.RefineViaSurfaceAreaHeuristic(1.0, 0.9)
}

// Bounds is the world-space box around every shape.  Valid after Prepare.
func (s *Scene) Bounds() aabox.AABox {
	return s.bounds
}

// NumElements is the number of shape nodes found by Prepare.
func (s *Scene) NumElements() int {
	return len(s.elements)
}

func (e *element) rayInto(worldQuery ray.RaySegment) (contact.UpdateInfo, contact.UpdateInfo) {
	mdlQuery := worldQuery.Transform(e.worldToModel)
	local := e.node.Shape.RayInto(mdlQuery)
	if local.IsMiss() {
		return local, local
	}
	return local, local.Transform(e.modelToWorld, e.modelToWorldNormals, mdlQuery.TheRay.Slope)
}

// Intersect finds the closest contact along worldQuery.  The contact's T is
// measured along worldQuery's ray.
func (s *Scene) Intersect(worldQuery ray.RaySegment) Intersection {
	result := Intersection{}
	if s.accelerator == nil {
		return result
	}

	selector := func(b aabox.AABox) bool {
		return aabox.RayHitsAABox(worldQuery, b)
	}

	visitor := func(i int) bool {
		elt := s.elements[i]
		local, world := elt.rayInto(worldQuery)
		if world.IsMiss() || !worldQuery.TheSegment.Contains(world.T) {
			return true
		}
		worldQuery.TheSegment.Hi = world.T
		result = Intersection{
			Info:     world,
			Node:     elt.node,
			Hit:      true,
			Material: elt.material,
			Local:    local.Position,
		}
		return true
	}

	s.accelerator.Query(selector, visitor)

	return result
}

// Occluded reports whether anything lies on worldQuery.  It stops at the first
// contact found.
func (s *Scene) Occluded(worldQuery ray.RaySegment) bool {
	if s.accelerator == nil {
		return false
	}

	hit := false
	selector := func(b aabox.AABox) bool {
		return aabox.RayHitsAABox(worldQuery, b)
	}
	visitor := func(i int) bool {
		_, world := s.elements[i].rayInto(worldQuery)
		if !world.IsMiss() && worldQuery.TheSegment.Contains(world.T) {
			hit = true
			return false
		}
		return true
	}
	s.accelerator.Query(selector, visitor)

	return hit
}

// DefaultCamera frames the scene bounds from +Z, the way R3 viewers do when a
// scene file names no camera.
func (s *Scene) DefaultCamera() camera.Camera {
	b := s.bounds
	if b.IsEmpty() || !b.IsFinite() {
		return camera.LookAt(vec3.T{0, 0, 4}, vec3.T{0, 0, 0}, vec3.T{0, 1, 0}, 0.25*math.Pi)
	}
	center := b.Center()
	radius := 0.5 * b.Diagonal()
	xfov := 0.25 * math.Pi
	dist := radius / math.Tan(xfov)
	eye := vec3.AddVV(center, vec3.T{0, 0, radius + dist})
	return camera.LookAt(eye, center, vec3.T{0, 1, 0}, xfov)
}
