// Package lattice implements the integer voxel grid used to partition a sampled
// volume into fixed size chunks, along with broad-phase filtering of primitive
// bounds against those chunks.
package lattice

import (
	"errors"
	"iter"

	"github.com/chewxy/math32"
)

// Lattice partitions voxel space into cubic chunks of Side voxels.
// Each chunk is sampled with a one voxel apron so neighbouring chunks share
// a layer of samples and their meshes meet without gaps.
type Lattice struct {
	// Side is the number of voxels along each axis of an un-padded chunk.
	Side int
	// Chunks is the range of chunk coordinates that cover the occupied voxels.
	Chunks IBox
}

// New returns the lattice of chunks of the given side whose padded extent
// shares at least one voxel with occupied, an integer box in voxel coordinates.
func New(side int, occupied IBox) (Lattice, error) {
	if side < 1 {
		return Lattice{}, errors.New("chunk side must be positive")
	}
	if occupied.Empty() {
		return Lattice{Side: side}, nil
	}
	return Lattice{
		Side: side,
		Chunks: IBox{
			Min: IVec{X: floorDiv(occupied.Min.X-1, side), Y: floorDiv(occupied.Min.Y-1, side), Z: floorDiv(occupied.Min.Z-1, side)},
			Lub: IVec{X: floorDiv(occupied.Lub.X, side) + 1, Y: floorDiv(occupied.Lub.Y, side) + 1, Z: floorDiv(occupied.Lub.Z, side) + 1},
		},
	}, nil
}

// PaddedSide returns the number of samples along each axis of a padded chunk.
func (l Lattice) PaddedSide() int { return l.Side + 2 }

// Len returns the number of chunks in the lattice.
func (l Lattice) Len() int { return l.Chunks.Len() }

// At returns the i'th chunk coordinate in iteration order.
func (l Lattice) At(i int) IVec { return l.Chunks.At(i) }

// All iterates over chunk coordinates with z outermost and x innermost.
func (l Lattice) All() iter.Seq2[int, IVec] { return l.Chunks.All() }

// ChunkExtent returns the un-padded voxel box covered by the chunk.
func (l Lattice) ChunkExtent(chunk IVec) IBox {
	return NewIBox(chunk.Scale(l.Side), splat(l.Side))
}

// PaddedExtent returns the voxel box sampled for the chunk, which is the
// un-padded chunk grown by one voxel on every side. Its minimum is the
// origin of the chunk's local sample coordinates.
func (l Lattice) PaddedExtent(chunk IVec) IBox {
	return l.ChunkExtent(chunk).Padded(1)
}

// Filter appends to dst the indices of bounds that intersect region and returns the result.
// Empty bounds never intersect.
func Filter(dst []int32, region IBox, bounds []IBox) []int32 {
	for i := range bounds {
		if bounds[i].Intersects(region) {
			dst = append(dst, int32(i))
		}
	}
	return dst
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ScaleFor returns the factor that maps the longest side of reference onto
// divisions voxels. It fails if the result would not be a finite positive number.
func ScaleFor(divisions float32, reference Extent) (float32, error) {
	maxDim := reference.MaxDim()
	switch {
	case !(divisions > 0) || math32.IsInf(divisions, 0):
		return 0, errors.New("divisions must be positive and finite")
	case !(maxDim > 0) || math32.IsInf(maxDim, 0):
		return 0, errors.New("reference extent has no size")
	}
	scale := divisions / maxDim
	if !(scale > 0) || math32.IsInf(scale, 0) {
		return 0, errors.New("scale not representable")
	}
	return scale, nil
}
