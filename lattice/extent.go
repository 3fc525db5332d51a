package lattice

import (
	"iter"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// Extent is a floating point axis aligned box stored as a minimum corner and a shape.
// Padding and union arithmetic is done on the minimum and shape, so bounds computed
// through an Extent are reproducible bit for bit regardless of how they are later consumed.
type Extent struct {
	Min   ms3.Vec
	Shape ms3.Vec
}

// PointExtent returns a zero sized extent at p.
func PointExtent(p ms3.Vec) Extent {
	return Extent{Min: p}
}

// ExtentFromBox converts a [ms3.Box] to an Extent.
func ExtentFromBox(bb ms3.Box) Extent {
	return Extent{Min: bb.Min, Shape: ms3.Sub(bb.Max, bb.Min)}
}

// Lub returns the least upper bound of the extent, that is Min+Shape.
func (e Extent) Lub() ms3.Vec { return ms3.Add(e.Min, e.Shape) }

// Box returns the extent as a [ms3.Box].
func (e Extent) Box() ms3.Box { return ms3.Box{Min: e.Min, Max: e.Lub()} }

// Padded grows the extent by r in every direction.
func (e Extent) Padded(r float32) Extent {
	return Extent{
		Min:   ms3.AddScalar(-r, e.Min),
		Shape: ms3.AddScalar(2*r, e.Shape),
	}
}

// Union returns the smallest extent containing both e and other.
func (e Extent) Union(other Extent) Extent {
	min := ms3.MinElem(e.Min, other.Min)
	lub := ms3.MaxElem(e.Lub(), other.Lub())
	return Extent{Min: min, Shape: ms3.Sub(lub, min)}
}

// Scaled multiplies minimum and shape by s.
func (e Extent) Scaled(s float32) Extent {
	return Extent{Min: ms3.Scale(s, e.Min), Shape: ms3.Scale(s, e.Shape)}
}

// MaxDim returns the longest side of the extent.
func (e Extent) MaxDim() float32 {
	return math32.Max(e.Shape.X, math32.Max(e.Shape.Y, e.Shape.Z))
}

// ContainingIBox returns the smallest integer box that contains the extent.
func (e Extent) ContainingIBox() IBox {
	lub := e.Lub()
	return IBox{
		Min: IVec{X: int(math32.Floor(e.Min.X)), Y: int(math32.Floor(e.Min.Y)), Z: int(math32.Floor(e.Min.Z))},
		Lub: IVec{X: int(math32.Ceil(lub.X)), Y: int(math32.Ceil(lub.Y)), Z: int(math32.Ceil(lub.Z))},
	}
}

// IVec is an integer lattice coordinate.
type IVec struct {
	X, Y, Z int
}

// Add returns a+b.
func (a IVec) Add(b IVec) IVec { return IVec{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z} }

// Sub returns a-b.
func (a IVec) Sub(b IVec) IVec { return IVec{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z} }

// Scale returns a multiplied by k.
func (a IVec) Scale(k int) IVec { return IVec{X: a.X * k, Y: a.Y * k, Z: a.Z * k} }

// Vec converts the coordinate to a float vector.
func (a IVec) Vec() ms3.Vec { return ms3.Vec{X: float32(a.X), Y: float32(a.Y), Z: float32(a.Z)} }

func splat(v int) IVec { return IVec{X: v, Y: v, Z: v} }

func minIVec(a, b IVec) IVec {
	return IVec{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)}
}

func maxIVec(a, b IVec) IVec {
	return IVec{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)}
}

// IBox is a half-open integer box [Min, Lub).
type IBox struct {
	Min IVec
	Lub IVec
}

// NewIBox returns the box with minimum corner min and the given shape.
func NewIBox(min, shape IVec) IBox {
	return IBox{Min: min, Lub: min.Add(shape)}
}

// Shape returns the number of lattice points along each axis. Components are never negative.
func (b IBox) Shape() IVec {
	s := b.Lub.Sub(b.Min)
	return maxIVec(s, IVec{})
}

// Empty reports whether the box contains no lattice points.
func (b IBox) Empty() bool {
	return b.Lub.X <= b.Min.X || b.Lub.Y <= b.Min.Y || b.Lub.Z <= b.Min.Z
}

// Len returns the number of lattice points in the box.
func (b IBox) Len() int {
	s := b.Shape()
	return s.X * s.Y * s.Z
}

// Padded grows the box by n lattice points in every direction.
func (b IBox) Padded(n int) IBox {
	return IBox{Min: b.Min.Sub(splat(n)), Lub: b.Lub.Add(splat(n))}
}

// Intersection returns the overlap of a and b. The result may be empty.
func (b IBox) Intersection(other IBox) IBox {
	return IBox{Min: maxIVec(b.Min, other.Min), Lub: minIVec(b.Lub, other.Lub)}
}

// Intersects reports whether a and b share at least one lattice point.
func (b IBox) Intersects(other IBox) bool {
	return !b.Intersection(other).Empty()
}

// Union returns the smallest box containing a and b. Empty boxes are ignored.
func (b IBox) Union(other IBox) IBox {
	if b.Empty() {
		return other
	} else if other.Empty() {
		return b
	}
	return IBox{Min: minIVec(b.Min, other.Min), Lub: maxIVec(b.Lub, other.Lub)}
}

// Contains reports whether p lies inside the box.
func (b IBox) Contains(p IVec) bool {
	return p.X >= b.Min.X && p.X < b.Lub.X &&
		p.Y >= b.Min.Y && p.Y < b.Lub.Y &&
		p.Z >= b.Min.Z && p.Z < b.Lub.Z
}

// At returns the i'th lattice point of the box in iteration order (x fastest, z slowest).
func (b IBox) At(i int) IVec {
	s := b.Shape()
	x := i % s.X
	i /= s.X
	y := i % s.Y
	z := i / s.Y
	return b.Min.Add(IVec{X: x, Y: y, Z: z})
}

// All iterates over every lattice point in the box with z as the outermost
// and x as the innermost loop. The sequence may be ranged over any number of times.
func (b IBox) All() iter.Seq2[int, IVec] {
	return func(yield func(int, IVec) bool) {
		if b.Empty() {
			return
		}
		i := 0
		for z := b.Min.Z; z < b.Lub.Z; z++ {
			for y := b.Min.Y; y < b.Lub.Y; y++ {
				for x := b.Min.X; x < b.Lub.X; x++ {
					if !yield(i, IVec{X: x, Y: y, Z: z}) {
						return
					}
					i++
				}
			}
		}
	}
}
