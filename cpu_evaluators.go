package gskel

import (
	"errors"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gskel/lattice"
)

// Skeleton is the union of a set of primitives, evaluated directly without
// chunking. Positions passed to Evaluate are in voxel units.
type Skeleton struct {
	prims  []Primitive
	bounds []lattice.IBox
	bb     ms3.Box
}

var _ SDF3 = (*Skeleton)(nil)

// NewSkeleton returns the union of prims. The slice is retained, not copied.
func NewSkeleton(prims []Primitive) (*Skeleton, error) {
	if len(prims) == 0 {
		return nil, Errorf(KindNoData, "skeleton has no primitives")
	}
	s := &Skeleton{prims: prims, bounds: make([]lattice.IBox, len(prims))}
	var occupied lattice.IBox
	for i := range prims {
		s.bounds[i] = prims[i].Bound()
		occupied = occupied.Union(s.bounds[i])
	}
	s.bb = ms3.Box{Min: occupied.Min.Vec(), Max: occupied.Lub.Vec()}
	return s, nil
}

// Primitives returns the primitives of the skeleton.
func (s *Skeleton) Primitives() []Primitive { return s.prims }

// PrimitiveBounds returns the integer voxel bound of each primitive, in order.
func (s *Skeleton) PrimitiveBounds() []lattice.IBox { return s.bounds }

// Bounds returns a box in voxel units containing the skeleton's interior.
func (s *Skeleton) Bounds() ms3.Box { return s.bb }

// Evaluate computes the distance to the closest primitive at each position.
// Distances are capped at [FarDistance].
func (s *Skeleton) Evaluate(pos []ms3.Vec, dist []float32, userData any) error {
	if len(pos) != len(dist) {
		return errors.New("position and distance buffers must be of equal length")
	}
	for i := range dist {
		dist[i] = FarDistance
	}
	for j := range s.prims {
		p := &s.prims[j]
		for i, v := range pos {
			dist[i] = minf(dist[i], p.Distance(v))
		}
	}
	return nil
}

// minReduce takes element-wise minimum of arguments and stores to first argument.
func minReduce(d1AndDst, d2 []float32) {
	for i := range d1AndDst {
		d1AndDst[i] = minf(d1AndDst[i], d2[i])
	}
}

// EvaluateFiltered is like Evaluate but only considers the primitives at the given indices.
// scratch must be at least as long as pos.
func (s *Skeleton) EvaluateFiltered(pos []ms3.Vec, dist, scratch []float32, filter []int32) error {
	if len(pos) != len(dist) || len(scratch) < len(pos) {
		return errors.New("bad buffer lengths")
	}
	scratch = scratch[:len(pos)]
	for i := range dist {
		dist[i] = FarDistance
	}
	for _, j := range filter {
		p := &s.prims[j]
		for i, v := range pos {
			scratch[i] = p.Distance(v)
		}
		minReduce(dist, scratch)
	}
	return nil
}
