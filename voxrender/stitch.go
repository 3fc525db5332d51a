package voxrender

import (
	"errors"
	"io"
	"math"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gskel"
)

// Transform maps an output vertex to another coordinate system.
// A nil Transform is the identity.
type Transform func(ms3.Vec) ms3.Vec

// Compose returns a transform that applies tfs in order. Nil transforms are skipped.
// The result is nil if every argument is nil.
func Compose(tfs ...Transform) Transform {
	var nonNil []Transform
	for _, tf := range tfs {
		if tf != nil {
			nonNil = append(nonNil, tf)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}
	return func(v ms3.Vec) ms3.Vec {
		for _, tf := range nonNil {
			v = tf(v)
		}
		return v
	}
}

// Mesh is an indexed triangle mesh.
type Mesh struct {
	Vertices []ms3.Vec
	Indices  []uint32
}

// NumTriangles returns the number of triangles in the mesh.
func (m *Mesh) NumTriangles() int { return len(m.Indices) / 3 }

// Triangle returns the i'th triangle of the mesh.
func (m *Mesh) Triangle(i int) ms3.Triangle {
	return ms3.Triangle{
		m.Vertices[m.Indices[3*i]],
		m.Vertices[m.Indices[3*i+1]],
		m.Vertices[m.Indices[3*i+2]],
	}
}

// Validate checks that the index list is made of whole triangles, that every index
// refers to an existing vertex and that no triangle repeats a vertex.
func (m *Mesh) Validate() error {
	if len(m.Indices)%3 != 0 {
		return errors.New("index count not a multiple of 3")
	}
	nv := uint32(len(m.Vertices))
	for i := 0; i < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		if a >= nv || b >= nv || c >= nv {
			return gskel.Errorf(gskel.KindInvalidParameter, "triangle %d references missing vertex", i/3)
		}
		if a == b || b == c || a == c {
			return gskel.Errorf(gskel.KindDegenerate, "triangle %d repeats a vertex", i/3)
		}
	}
	return nil
}

// ReadTriangles copies the next triangles of the mesh into dst, advancing the read offset
// stored in userData, which must be an *int. It returns io.EOF once all triangles are read.
func (m *Mesh) ReadTriangles(dst []ms3.Triangle, userData any) (n int, err error) {
	offset, ok := userData.(*int)
	if !ok {
		return 0, errors.New("ReadTriangles requires *int offset as userData")
	}
	total := m.NumTriangles()
	for n < len(dst) && *offset < total {
		dst[n] = m.Triangle(*offset)
		n++
		*offset++
	}
	if *offset >= total {
		return n, io.EOF
	}
	return n, nil
}

// Stitch concatenates fragments into a single mesh in model units. Each fragment's
// vertices are offset by its origin and divided by the scale, and its indices are
// shifted by the number of vertices appended before it. tf, if not nil, is applied to
// every vertex afterwards. Stitch fails with [gskel.ErrOverflow] before allocating if the
// mesh would have too many vertices or indices for 32 bit indexing.
func Stitch(frags Fragments, tf Transform) (Mesh, error) {
	return stitch(frags, tf, math.MaxUint32)
}

// stitch is [Stitch] with the vertex and index count limit given by limit.
func stitch(frags Fragments, tf Transform, limit uint64) (Mesh, error) {
	var nv, ni int
	for i := range frags.Chunks {
		nv += len(frags.Chunks[i].Positions)
		ni += len(frags.Chunks[i].Indices)
	}
	if err := checkCapacity(nv, ni, limit); err != nil {
		return Mesh{}, err
	}
	if nv == 0 {
		return Mesh{}, nil
	}
	if !(frags.Scale > 0) {
		return Mesh{}, gskel.Errorf(gskel.KindDegenerate, "non-positive scale %v", frags.Scale)
	}
	voxelSize := 1 / frags.Scale
	mesh := Mesh{
		Vertices: make([]ms3.Vec, 0, nv),
		Indices:  make([]uint32, 0, ni),
	}
	for i := range frags.Chunks {
		f := &frags.Chunks[i]
		offset := uint32(len(mesh.Vertices))
		origin := f.Origin.Vec()
		for _, pv := range f.Positions {
			mesh.Vertices = append(mesh.Vertices, ms3.Vec{
				X: voxelSize * (pv.X + origin.X),
				Y: voxelSize * (pv.Y + origin.Y),
				Z: voxelSize * (pv.Z + origin.Z),
			})
		}
		for _, idx := range f.Indices {
			mesh.Indices = append(mesh.Indices, idx+offset)
		}
	}
	if tf != nil {
		for i, v := range mesh.Vertices {
			mesh.Vertices[i] = tf(v)
		}
	}
	return mesh, nil
}

func checkCapacity(numVertices, numIndices int, limit uint64) error {
	if uint64(numVertices) >= limit {
		return gskel.Errorf(gskel.KindOverflow, "mesh has %d vertices, too many to be referenced by uint32, reduce the resolution", numVertices)
	}
	if uint64(numIndices) >= limit {
		return gskel.Errorf(gskel.KindOverflow, "mesh has %d indices, too many for uint32 indexing, reduce the resolution", numIndices)
	}
	return nil
}
