package voxrender

import (
	"slices"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gskel"
	"github.com/soypat/gskel/lattice"
	"github.com/soypat/gskel/surfnets"
)

// sampler holds the buffers needed to mesh one chunk at a time.
// Each worker owns a single sampler and reuses it for every chunk it processes.
type sampler struct {
	shape   surfnets.Shape
	pos     []ms3.Vec
	dist    []float32
	scratch []float32
	filter  []int32
	sn      surfnets.Buffer
}

func newSampler(paddedSide int) *sampler {
	shape := surfnets.Cubic(paddedSide)
	n := shape.Len()
	return &sampler{
		shape:   shape,
		pos:     make([]ms3.Vec, n),
		dist:    make([]float32, n),
		scratch: make([]float32, n),
	}
}

// meshChunk filters, samples and meshes a single chunk. It returns a nil
// fragment when the chunk has no primitives nearby, when all its samples
// lie on the same side of the surface, or when no cell crosses the surface.
func (s *sampler) meshChunk(skel *gskel.Skeleton, bounds []lattice.IBox, lat lattice.Lattice, chunk lattice.IVec) (*Fragment, error) {
	padded := lat.PaddedExtent(chunk)
	s.filter = lattice.Filter(s.filter[:0], padded, bounds)
	if len(s.filter) == 0 {
		return nil, nil
	}
	crosses, err := s.sample(skel, padded)
	if err != nil || !crosses {
		return nil, err
	}
	hi := s.shape.X - 1
	err = surfnets.SurfaceNets(s.dist, s.shape, [3]int{}, [3]int{hi, hi, hi}, &s.sn)
	if err != nil {
		return nil, err
	}
	if len(s.sn.Positions) == 0 {
		return nil, nil
	}
	return &Fragment{
		Chunk:     chunk,
		Origin:    padded.Min,
		Positions: slices.Clone(s.sn.Positions),
		Indices:   slices.Clone(s.sn.Indices),
	}, nil
}

// sample evaluates the filtered primitives over every lattice point of the
// padded extent and reports whether the samples straddle the surface.
func (s *sampler) sample(skel *gskel.Skeleton, padded lattice.IBox) (crosses bool, err error) {
	for i, p := range padded.All() {
		s.pos[i] = p.Vec()
	}
	err = skel.EvaluateFiltered(s.pos, s.dist, s.scratch, s.filter)
	if err != nil {
		return false, err
	}
	var anyPositive, anyNonPositive bool
	for _, d := range s.dist {
		if d > 0 {
			anyPositive = true
		} else {
			anyNonPositive = true
		}
	}
	return anyPositive && anyNonPositive, nil
}
