package gskel

import (
	"math"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gskel/lattice"
)

// Segment is a skeleton edge in model units with a radius at each endpoint.
type Segment struct {
	P0, P1 ms3.Vec
	R0, R1 float32
}

// IsFinite reports whether all coordinates and radii of the segment are finite.
func (s Segment) IsFinite() bool {
	return isFiniteVec(s.P0) && isFiniteVec(s.P1) && isFinite(s.R0) && isFinite(s.R1)
}

// Extent returns the box containing both endpoint spheres.
func (s Segment) Extent() lattice.Extent {
	e0 := lattice.PointExtent(s.P0).Padded(s.R0)
	e1 := lattice.PointExtent(s.P1).Padded(s.R1)
	return e0.Union(e1)
}

// SegmentBounds returns the extent of the segment endpoints and the extent
// of the endpoints padded by their radii. ok is false if segs is empty.
func SegmentBounds(segs []Segment) (unpadded, padded lattice.Extent, ok bool) {
	if len(segs) == 0 {
		return unpadded, padded, false
	}
	unpadded = lattice.PointExtent(segs[0].P0)
	padded = segs[0].Extent()
	for _, s := range segs {
		unpadded = unpadded.Union(lattice.PointExtent(s.P0)).Union(lattice.PointExtent(s.P1))
		padded = padded.Union(s.Extent())
	}
	return unpadded, padded, true
}

// Variant selects the distance function of a [Primitive].
type Variant uint8

const (
	// VariantCapsule is a swept sphere whose radius is linearly interpolated
	// along the segment. With equal radii it is the exact capsule distance.
	VariantCapsule Variant = iota
	// VariantRoundCone is the exact distance to the convex hull of the two endpoint spheres.
	VariantRoundCone
)

func (v Variant) String() string {
	switch v {
	case VariantCapsule:
		return "capsule"
	case VariantRoundCone:
		return "round cone"
	}
	return "unknown variant"
}

// Primitive is a segment converted to voxel units with the coefficients of its
// distance function precomputed. A Primitive is immutable after construction and
// safe for concurrent use.
type Primitive struct {
	variant Variant
	a, b    ms3.Vec // endpoints
	r0, r1  float32 // endpoint radii
	ba      ms3.Vec // b - a
	l2      float32 // squared segment length
	il2     float32 // 1/l2
	dr      float32 // r1 - r0
	rr      float32 // r0 - r1
	rr3     float32 // sign(rr)*rr*rr
	a2      float32 // l2 - rr*rr
	bound   lattice.IBox
}

// NewPrimitive scales seg by scale and precomputes its distance coefficients.
// It returns false if the segment is degenerate: both radii or the squared
// segment length are at or below [Epsilon] in voxel units.
// Degenerate primitives have no influence on the field and must be skipped.
func NewPrimitive(variant Variant, seg Segment, scale float32) (Primitive, bool) {
	a := ms3.Scale(scale, seg.P0)
	b := ms3.Scale(scale, seg.P1)
	r0 := seg.R0 * scale
	r1 := seg.R1 * scale
	if r0 <= Epsilon && r1 <= Epsilon {
		return Primitive{}, false
	}
	ba := ms3.Sub(b, a)
	l2 := ms3.Dot(ba, ba)
	if l2 <= Epsilon*Epsilon {
		return Primitive{}, false
	}
	rr := r0 - r1
	p := Primitive{
		variant: variant,
		a:       a,
		b:       b,
		r0:      r0,
		r1:      r1,
		ba:      ba,
		l2:      l2,
		il2:     1 / l2,
		dr:      r1 - r0,
		rr:      rr,
		rr3:     signumf(rr) * rr * rr,
		a2:      l2 - rr*rr,
	}
	p.bound = p.computeBound()
	return p, true
}

// Variant returns the distance function selector of the primitive.
func (p *Primitive) Variant() Variant { return p.variant }

// Endpoints returns the endpoints in voxel units.
func (p *Primitive) Endpoints() (a, b ms3.Vec) { return p.a, p.b }

// Radii returns the endpoint radii in voxel units.
func (p *Primitive) Radii() (r0, r1 float32) { return p.r0, p.r1 }

// Bound returns the integer voxel box that contains every point where the
// primitive's distance is negative. The box is half-open.
func (p *Primitive) Bound() lattice.IBox { return p.bound }

func (p *Primitive) computeBound() lattice.IBox {
	lo := ms3.MinElem(ms3.AddScalar(-p.r0, p.a), ms3.AddScalar(-p.r1, p.b))
	hi := ms3.MaxElem(ms3.AddScalar(p.r0, p.a), ms3.AddScalar(p.r1, p.b))
	return lattice.Extent{Min: lo, Shape: ms3.Sub(hi, lo)}.ContainingIBox()
}

// Distance returns the signed distance from pos, in voxel units, to the primitive surface.
// Coefficients are stored as float32 but each sample is evaluated in float64: the round
// cone terms are products of squared lengths and lose the sign of samples lying within
// a float32 ulp of the surface.
func (p *Primitive) Distance(pos ms3.Vec) float32 {
	switch p.variant {
	case VariantRoundCone:
		return float32(p.roundConeDistance(pos))
	default:
		return float32(p.capsuleDistance(pos))
	}
}

// vec64 is a float64 point used to evaluate distances.
type vec64 struct{ x, y, z float64 }

func to64(v ms3.Vec) vec64 { return vec64{float64(v.X), float64(v.Y), float64(v.Z)} }

func (a vec64) sub(b vec64) vec64 { return vec64{a.x - b.x, a.y - b.y, a.z - b.z} }

func (a vec64) dot(b vec64) float64 { return a.x*b.x + a.y*b.y + a.z*b.z }

func (p *Primitive) capsuleDistance(pos ms3.Vec) float64 {
	pa := to64(pos).sub(to64(p.a))
	ba := to64(p.ba)
	t := pa.dot(ba) / float64(p.l2)
	h := math.Min(math.Max(t, 0), 1)
	d := vec64{pa.x - h*ba.x, pa.y - h*ba.y, pa.z - h*ba.z}
	return math.Sqrt(d.dot(d)) - (float64(p.r0) + float64(p.dr)*h)
}

// roundConeDistance is the exact distance to a cone capped by spheres of
// radius r0 at a and r1 at b. Points project to one of three regions: the
// sphere around b, the sphere around a, or the conical side between them.
func (p *Primitive) roundConeDistance(pos ms3.Vec) float64 {
	pa := to64(pos).sub(to64(p.a))
	ba := to64(p.ba)
	l2 := float64(p.l2)
	il2 := float64(p.il2)
	a2 := float64(p.a2)
	y := pa.dot(ba)
	z := y - l2
	w := vec64{l2*pa.x - y*ba.x, l2*pa.y - y*ba.y, l2*pa.z - y*ba.z}
	x2 := w.dot(w)
	y2 := y * y * l2
	z2 := z * z * l2
	k := float64(p.rr3) * x2
	if math.Copysign(1, z)*a2*z2 > k {
		return math.Sqrt(x2+z2)*il2 - float64(p.r1)
	}
	if math.Copysign(1, y)*a2*y2 < k {
		return math.Sqrt(x2+y2)*il2 - float64(p.r0)
	}
	return (math.Sqrt(x2*a2*il2)+y*float64(p.rr))*il2 - float64(p.r0)
}
