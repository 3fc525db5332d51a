package command

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gskel"
	"github.com/soypat/gskel/lattice"
	"github.com/soypat/gskel/voxrender"
)

// IdentityMatrix is the world orientation of a model with no transform applied.
var IdentityMatrix = [16]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// Model is a mesh sent by the host. Edges are consecutive pairs of Indices.
type Model struct {
	// WorldOrientation is a column major 4x4 affine matrix mapping local
	// coordinates to world coordinates. Translation is stored in elements 12, 13 and 14.
	WorldOrientation [16]float32
	Vertices         []ms3.Vec
	Indices          []uint32
	// Radii holds one radius per vertex. Only used by operations with explicit radii.
	Radii []float32
}

// validate checks vertices are finite and that indices form whole edges of existing vertices.
func (m *Model) validate() error {
	if len(m.Vertices) == 0 {
		return gskel.Errorf(gskel.KindNoData, "input vertex list was empty")
	}
	for i, v := range m.Vertices {
		if math32.IsNaN(v.X) || math32.IsNaN(v.Y) || math32.IsNaN(v.Z) ||
			math32.IsInf(v.X, 0) || math32.IsInf(v.Y, 0) || math32.IsInf(v.Z, 0) {
			return fmt.Errorf("vertex %d (%v,%v,%v): %w", i, v.X, v.Y, v.Z, gskel.ErrNonFinite)
		}
	}
	if len(m.Indices)%2 != 0 {
		return gskel.Errorf(gskel.KindInvalidParameter, "edge index list has odd length %d", len(m.Indices))
	}
	nv := uint32(len(m.Vertices))
	for i, idx := range m.Indices {
		if idx >= nv {
			return gskel.Errorf(gskel.KindInvalidParameter, "index %d references vertex %d, only %d vertices", i, idx, nv)
		}
	}
	return nil
}

// vertexExtent returns the extent of all model vertices, indexed or not.
func (m *Model) vertexExtent() lattice.Extent {
	ext := lattice.PointExtent(m.Vertices[0])
	for _, v := range m.Vertices[1:] {
		ext = ext.Union(lattice.PointExtent(v))
	}
	return ext
}

// HasIdentityOrientation reports whether the world orientation is the identity within a few ulps.
func (m *Model) HasIdentityOrientation() bool {
	for i, v := range m.WorldOrientation {
		if !ulpsEqual(v, IdentityMatrix[i]) {
			return false
		}
	}
	return true
}

// World returns the world orientation as a matrix. The bottom row is
// replaced by (0,0,0,1) so the result is always affine.
func (m *Model) World() ms3.Mat4 {
	w := m.WorldOrientation
	w[3], w[7], w[11], w[15] = 0, 0, 0, 1
	// NewMat4 reads row major.
	return ms3.NewMat4(w[:]).Transpose()
}

// WorldToLocal returns the transform mapping world coordinates back to the
// model's local coordinates. It returns a nil transform when the world
// orientation is the identity and an error when it cannot be inverted.
func (m *Model) WorldToLocal() (voxrender.Transform, error) {
	if m.HasIdentityOrientation() {
		return nil, nil
	}
	for _, v := range m.WorldOrientation {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return nil, fmt.Errorf("world orientation: %w", gskel.ErrNonFinite)
		}
	}
	world := m.World()
	var scale float32
	for _, col := range [3]int{0, 4, 8} {
		for _, v := range m.WorldOrientation[col : col+3] {
			scale = math32.Max(scale, math32.Abs(v))
		}
	}
	det := world.Determinant()
	if scale == 0 || math32.Abs(det) <= gskel.Epsilon*scale*scale*scale {
		return nil, gskel.Errorf(gskel.KindDegenerate, "world orientation matrix is singular")
	}
	return world.Inverse().MulPosition, nil
}

// ulpsEqual reports whether a and b are within 4 units in the last place.
func ulpsEqual(a, b float32) bool {
	if a == b {
		return true
	}
	const maxUlps = 4
	ia := int64(int32(math32.Float32bits(a)))
	ib := int64(int32(math32.Float32bits(b)))
	if (ia < 0) != (ib < 0) {
		return false
	}
	d := ia - ib
	if d < 0 {
		d = -d
	}
	return d <= maxUlps
}
