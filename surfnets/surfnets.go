// Package surfnets extracts a triangle mesh from a regular grid of signed
// distance samples using the Surface Nets algorithm: one vertex per cell that
// straddles the zero level set, placed at the centroid of the cell's edge
// crossings, and one quad per sign-changing grid edge.
package surfnets

import (
	"errors"
	"math"

	"github.com/soypat/geometry/ms3"
)

// Shape describes the dimensions of a dense sample array laid out with x varying
// fastest: index = x + X*(y + Y*z).
type Shape struct {
	X, Y, Z int
}

// Len returns the number of samples described by the shape.
func (s Shape) Len() int { return s.X * s.Y * s.Z }

// Linearize returns the flat index of the sample at (x,y,z).
func (s Shape) Linearize(x, y, z int) int { return x + s.X*(y+s.Y*z) }

// Delinearize is the inverse of [Shape.Linearize].
func (s Shape) Delinearize(i int) (x, y, z int) {
	x = i % s.X
	i /= s.X
	y = i % s.Y
	z = i / s.Y
	return x, y, z
}

// Cubic returns the shape of a cube of side n.
func Cubic(n int) Shape { return Shape{X: n, Y: n, Z: n} }

const nullVertex = math.MaxUint32

// Buffer holds the output of [SurfaceNets]. A Buffer may be reused across calls to
// avoid allocations; its contents are overwritten on every call.
type Buffer struct {
	// Positions are vertex positions in sample coordinates, relative to the array origin.
	Positions []ms3.Vec
	// Normals are unnormalized gradient estimates at each vertex. Only filled
	// when ComputeNormals is set, otherwise left empty.
	Normals []ms3.Vec
	// ComputeNormals enables the gradient estimate stored in Normals.
	ComputeNormals bool
	// Indices lists triangles as triples of indices into Positions.
	Indices []uint32
	// SurfacePoints holds the minimum grid corner of the cell that produced each vertex.
	SurfacePoints [][3]int
	// SurfaceStrides holds the linear index of each SurfacePoints entry.
	SurfaceStrides []int
	// strideToIndex maps a sample stride to the vertex generated in its cell, or nullVertex.
	strideToIndex []uint32
}

// Reset clears the buffer and prepares the stride lookup table for an array of n samples.
func (b *Buffer) Reset(n int) {
	b.Positions = b.Positions[:0]
	b.Normals = b.Normals[:0]
	b.Indices = b.Indices[:0]
	b.SurfacePoints = b.SurfacePoints[:0]
	b.SurfaceStrides = b.SurfaceStrides[:0]
	if cap(b.strideToIndex) < n {
		b.strideToIndex = make([]uint32, n)
	}
	b.strideToIndex = b.strideToIndex[:n]
	for i := range b.strideToIndex {
		b.strideToIndex[i] = nullVertex
	}
}

var cubeCorners = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
}

var cubeEdges = [12][2]int{
	{0, 1}, {0, 2}, {0, 4}, {1, 3}, {1, 5}, {2, 3},
	{2, 6}, {3, 7}, {4, 5}, {4, 6}, {5, 7}, {6, 7},
}

// SurfaceNets meshes the zero level set of sdf, a dense array of the given shape,
// within the inclusive sample range [min, max]. Negative samples are inside the surface.
// Vertices are only generated in cells whose minimum corner lies in [min, max),
// and quads are only generated for edges whose every adjacent cell lies in that range,
// so neighbouring arrays that share one layer of samples produce disjoint sets of faces.
func SurfaceNets(sdf []float32, shape Shape, min, max [3]int, buf *Buffer) error {
	switch {
	case buf == nil:
		return errors.New("nil buffer")
	case shape.X <= 0 || shape.Y <= 0 || shape.Z <= 0:
		return errors.New("invalid array shape")
	case len(sdf) < shape.Len():
		return errors.New("sample array shorter than shape")
	}
	for i := range 3 {
		if min[i] < 0 || max[i] < min[i] {
			return errors.New("invalid sample range")
		}
	}
	if max[0] >= shape.X || max[1] >= shape.Y || max[2] >= shape.Z {
		return errors.New("sample range exceeds array shape")
	}
	buf.Reset(len(sdf))
	estimateSurface(sdf, shape, min, max, buf)
	makeAllQuads(sdf, shape, min, max, buf)
	return nil
}

func estimateSurface(sdf []float32, shape Shape, min, max [3]int, buf *Buffer) {
	for z := min[2]; z < max[2]; z++ {
		for y := min[1]; y < max[1]; y++ {
			for x := min[0]; x < max[0]; x++ {
				stride := shape.Linearize(x, y, z)
				p := ms3.Vec{X: float32(x), Y: float32(y), Z: float32(z)}
				c, ok := estimateSurfaceInCube(sdf, shape, p, stride, buf)
				if !ok {
					continue
				}
				buf.strideToIndex[stride] = uint32(len(buf.Positions))
				buf.Positions = append(buf.Positions, c)
				buf.SurfacePoints = append(buf.SurfacePoints, [3]int{x, y, z})
				buf.SurfaceStrides = append(buf.SurfaceStrides, stride)
			}
		}
	}
}

// estimateSurfaceInCube returns the vertex position for the cell with minimum
// corner p if the surface crosses the cell. The normal is recorded if requested.
func estimateSurfaceInCube(sdf []float32, shape Shape, p ms3.Vec, minCornerStride int, buf *Buffer) (ms3.Vec, bool) {
	var cornerDists [8]float32
	numNegative := 0
	for i, c := range cubeCorners {
		d := sdf[minCornerStride+shape.Linearize(c[0], c[1], c[2])]
		cornerDists[i] = d
		if d < 0 {
			numNegative++
		}
	}
	if numNegative == 0 || numNegative == 8 {
		return ms3.Vec{}, false
	}
	centroid := centroidOfEdgeIntersections(&cornerDists)
	if buf.ComputeNormals {
		buf.Normals = append(buf.Normals, sdfGradient(&cornerDists, centroid))
	}
	return ms3.Add(p, centroid), true
}

func centroidOfEdgeIntersections(dists *[8]float32) ms3.Vec {
	count := 0
	var sum ms3.Vec
	for _, e := range cubeEdges {
		d1 := dists[e[0]]
		d2 := dists[e[1]]
		if (d1 < 0) != (d2 < 0) {
			count++
			sum = ms3.Add(sum, estimateSurfaceEdgeIntersection(e[0], e[1], d1, d2))
		}
	}
	return ms3.Scale(1/float32(count), sum)
}

// estimateSurfaceEdgeIntersection linearly interpolates the zero crossing
// along the edge between corners c1 and c2.
func estimateSurfaceEdgeIntersection(c1, c2 int, d1, d2 float32) ms3.Vec {
	interp1 := d1 / (d1 - d2)
	interp2 := 1 - interp1
	a := cornerVec(c1)
	b := cornerVec(c2)
	return ms3.Add(ms3.Scale(interp2, a), ms3.Scale(interp1, b))
}

func cornerVec(i int) ms3.Vec {
	c := cubeCorners[i]
	return ms3.Vec{X: float32(c[0]), Y: float32(c[1]), Z: float32(c[2])}
}

// sdfGradient trilinearly estimates the distance field gradient at point s
// inside the unit cube with the given corner distances.
func sdfGradient(d *[8]float32, s ms3.Vec) ms3.Vec {
	nx := 1 - s.X
	ny := 1 - s.Y
	nz := 1 - s.Z

	dx0 := d[1] - d[0]
	dx1 := d[3] - d[2]
	dx2 := d[5] - d[4]
	dx3 := d[7] - d[6]
	dy0 := d[2] - d[0]
	dy1 := d[3] - d[1]
	dy2 := d[6] - d[4]
	dy3 := d[7] - d[5]
	dz0 := d[4] - d[0]
	dz1 := d[5] - d[1]
	dz2 := d[6] - d[2]
	dz3 := d[7] - d[3]
	return ms3.Vec{
		X: nz*(ny*dx0+s.Y*dx1) + s.Z*(ny*dx2+s.Y*dx3),
		Y: nz*(nx*dy0+s.X*dy1) + s.Z*(nx*dy2+s.X*dy3),
		Z: ny*(nx*dz0+s.X*dz1) + s.Y*(nx*dz2+s.X*dz3),
	}
}

// makeAllQuads generates faces for every sign-changing edge leaving a surface cell
// in the positive axis direction. Edges on the minimum boundary of the range are
// skipped since the cells around them were not all visited.
func makeAllQuads(sdf []float32, shape Shape, min, max [3]int, buf *Buffer) {
	xStride := shape.Linearize(1, 0, 0)
	yStride := shape.Linearize(0, 1, 0)
	zStride := shape.Linearize(0, 0, 1)
	for i, p := range buf.SurfacePoints {
		pStride := buf.SurfaceStrides[i]
		x, y, z := p[0], p[1], p[2]
		if y != min[1] && z != min[2] && x != max[0]-1 {
			maybeMakeQuad(sdf, buf, pStride, pStride+xStride, yStride, zStride)
		}
		if x != min[0] && z != min[2] && y != max[1]-1 {
			maybeMakeQuad(sdf, buf, pStride, pStride+yStride, zStride, xStride)
		}
		if x != min[0] && y != min[1] && z != max[2]-1 {
			maybeMakeQuad(sdf, buf, pStride, pStride+zStride, xStride, yStride)
		}
	}
}

// maybeMakeQuad emits two triangles joining the four cells that share the grid edge
// p1-p2 if the edge crosses the surface. axisB and axisC are the strides of the
// two axes orthogonal to the edge, in right handed order. The quad is split along
// its shorter diagonal and wound so its normal points toward positive distance.
func maybeMakeQuad(sdf []float32, buf *Buffer, p1, p2, axisB, axisC int) {
	d1 := sdf[p1]
	d2 := sdf[p2]
	var negativeFace bool
	switch {
	case d1 < 0 && d2 >= 0:
		negativeFace = false
	case d1 >= 0 && d2 < 0:
		negativeFace = true
	default:
		return
	}
	v1 := buf.strideToIndex[p1]
	v2 := buf.strideToIndex[p1-axisB]
	v3 := buf.strideToIndex[p1-axisC]
	v4 := buf.strideToIndex[p1-axisB-axisC]
	pos1 := buf.Positions[v1]
	pos2 := buf.Positions[v2]
	pos3 := buf.Positions[v3]
	pos4 := buf.Positions[v4]
	var quad [6]uint32
	if dist2(pos1, pos4) < dist2(pos2, pos3) {
		if negativeFace {
			quad = [6]uint32{v1, v4, v2, v1, v3, v4}
		} else {
			quad = [6]uint32{v1, v2, v4, v1, v4, v3}
		}
	} else if negativeFace {
		quad = [6]uint32{v2, v3, v4, v2, v1, v3}
	} else {
		quad = [6]uint32{v2, v4, v3, v2, v3, v1}
	}
	buf.Indices = append(buf.Indices, quad[:]...)
}

func dist2(a, b ms3.Vec) float32 {
	d := ms3.Sub(a, b)
	return ms3.Dot(d, d)
}
