// Package gskel turns skeletons, graphs of line segments carrying a radius at each
// endpoint, into signed distance fields that the voxrender package meshes.
//
// Segments are given in model units and converted to voxel units by [NewPrimitive],
// which precomputes all coefficients needed by the distance function so sampling
// does no allocation and no redundant arithmetic.
package gskel

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

const (
	// FarDistance is the value a sample takes when no primitive is close enough to influence it.
	FarDistance = 999
	// Epsilon is the float32 machine epsilon. Lengths and radii at or below it are degenerate.
	Epsilon = 1.1920929e-7
)

// SDF3 is a three dimensional signed distance field evaluated in batches.
// Negative distances are inside the surface.
type SDF3 interface {
	Evaluate(pos []ms3.Vec, dist []float32, userData any) error
	Bounds() ms3.Box
}

// Builder accumulates primitives for a [Skeleton]. Degenerate segments are skipped
// and non-finite segments are recorded as errors, which can be inspected with [Builder.Err].
type Builder struct {
	// Scale converts model units to voxel units. Zero is treated as 1.
	Scale float32
	prims []Primitive
	errs  []error
	// Skipped counts segments dropped for being degenerate.
	Skipped int
	added   int
}

// Add appends a segment of the given variant to the builder.
func (bld *Builder) Add(variant Variant, seg Segment) {
	idx := bld.added
	bld.added++
	if !seg.IsFinite() {
		bld.errs = append(bld.errs, fmt.Errorf("segment %d: %w", idx, ErrNonFinite))
		return
	}
	scale := bld.Scale
	if scale == 0 {
		scale = 1
	}
	prim, ok := NewPrimitive(variant, seg, scale)
	if !ok {
		bld.Skipped++
		return
	}
	bld.prims = append(bld.prims, prim)
}

// Primitives returns the primitives accumulated so far. The slice is owned by the builder.
func (bld *Builder) Primitives() []Primitive { return bld.prims }

// Skeleton returns the union of all accumulated primitives as an [SDF3].
func (bld *Builder) Skeleton() (*Skeleton, error) {
	if err := bld.Err(); err != nil {
		return nil, err
	}
	return NewSkeleton(bld.prims)
}

// Err returns all errors found while adding segments joined together.
func (bld *Builder) Err() error {
	return joinErrs(bld.errs)
}

func minf(a, b float32) float32 {
	return math32.Min(a, b)
}

// signumf returns 1 for positive numbers and positive zero, -1 for negative numbers and negative zero.
func signumf(a float32) float32 {
	return math32.Copysign(1, a)
}

func isFinite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}

func isFiniteVec(v ms3.Vec) bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}
