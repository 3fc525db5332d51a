package surfnets

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

func sphereField(shape Shape, offset, center ms3.Vec, radius float32) []float32 {
	sdf := make([]float32, shape.Len())
	for z := 0; z < shape.Z; z++ {
		for y := 0; y < shape.Y; y++ {
			for x := 0; x < shape.X; x++ {
				p := ms3.Add(offset, ms3.Vec{X: float32(x), Y: float32(y), Z: float32(z)})
				sdf[shape.Linearize(x, y, z)] = ms3.Norm(ms3.Sub(p, center)) - radius
			}
		}
	}
	return sdf
}

func TestSphereClosedMesh(t *testing.T) {
	shape := Cubic(16)
	center := ms3.Vec{X: 7.3, Y: 7.6, Z: 7.1}
	const radius = 4.5
	sdf := sphereField(shape, ms3.Vec{}, center, radius)
	buf := Buffer{ComputeNormals: true}
	err := SurfaceNets(sdf, shape, [3]int{}, [3]int{15, 15, 15}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf.Positions) == 0 || len(buf.Indices) == 0 {
		t.Fatal("no mesh generated")
	}
	if len(buf.Indices)%6 != 0 {
		t.Fatalf("indices must come in quads, got %d", len(buf.Indices))
	}
	if len(buf.Normals) != len(buf.Positions) {
		t.Errorf("normals %d != positions %d", len(buf.Normals), len(buf.Positions))
	}
	for i, p := range buf.Positions {
		d := math32.Abs(ms3.Norm(ms3.Sub(p, center)) - radius)
		if d > 1 {
			t.Errorf("vertex %d at %v is %v voxels off the surface", i, p, d)
		}
		if ms3.Dot(buf.Normals[i], ms3.Sub(p, center)) <= 0 {
			t.Errorf("vertex %d normal %v points inward", i, buf.Normals[i])
		}
	}
	type edge struct{ a, b uint32 }
	directed := make(map[edge]int)
	outward := 0
	for i := 0; i < len(buf.Indices); i += 3 {
		a, b, c := buf.Indices[i], buf.Indices[i+1], buf.Indices[i+2]
		if int(a) >= len(buf.Positions) || int(b) >= len(buf.Positions) || int(c) >= len(buf.Positions) {
			t.Fatalf("triangle %d references missing vertex", i/3)
		}
		if a == b || b == c || a == c {
			t.Fatalf("degenerate triangle %d: %d %d %d", i/3, a, b, c)
		}
		directed[edge{a, b}]++
		directed[edge{b, c}]++
		directed[edge{c, a}]++
		pa, pb, pc := buf.Positions[a], buf.Positions[b], buf.Positions[c]
		n := ms3.Cross(ms3.Sub(pb, pa), ms3.Sub(pc, pa))
		if ms3.Dot(n, ms3.Sub(pa, center)) > 0 {
			outward++
		}
	}
	ntri := len(buf.Indices) / 3
	if outward != 0 && outward != ntri {
		t.Errorf("inconsistent winding: %d of %d triangles face outward", outward, ntri)
	}
	for e, n := range directed {
		if n != 1 {
			t.Errorf("directed edge %v used %d times", e, n)
		}
		if directed[edge{e.b, e.a}] != 1 {
			t.Errorf("edge %v has no opposite, mesh is not closed", e)
		}
	}
	// Closed genus zero surface.
	if euler := len(buf.Positions) - len(directed)/2 + ntri; euler != 2 {
		t.Errorf("euler characteristic %d, want 2", euler)
	}
}

func TestNormalsDisabled(t *testing.T) {
	shape := Cubic(10)
	sdf := sphereField(shape, ms3.Vec{}, ms3.Vec{X: 4.5, Y: 4.5, Z: 4.5}, 3)
	buf := Buffer{ComputeNormals: true}
	if err := SurfaceNets(sdf, shape, [3]int{}, [3]int{9, 9, 9}, &buf); err != nil {
		t.Fatal(err)
	}
	withNormals := len(buf.Positions)
	buf.ComputeNormals = false
	if err := SurfaceNets(sdf, shape, [3]int{}, [3]int{9, 9, 9}, &buf); err != nil {
		t.Fatal(err)
	}
	if len(buf.Normals) != 0 {
		t.Errorf("got %d normals with ComputeNormals unset", len(buf.Normals))
	}
	if len(buf.Positions) != withNormals || withNormals == 0 {
		t.Errorf("vertex count changed from %d to %d", withNormals, len(buf.Positions))
	}
}

func TestUniformFieldEmpty(t *testing.T) {
	shape := Cubic(8)
	for _, v := range []float32{999, -1} {
		sdf := make([]float32, shape.Len())
		for i := range sdf {
			sdf[i] = v
		}
		var buf Buffer
		if err := SurfaceNets(sdf, shape, [3]int{}, [3]int{7, 7, 7}, &buf); err != nil {
			t.Fatal(err)
		}
		if len(buf.Positions) != 0 || len(buf.Indices) != 0 {
			t.Errorf("uniform field %v produced %d vertices", v, len(buf.Positions))
		}
	}
}

func TestSplitArraysShareSeam(t *testing.T) {
	// Two padded chunks of 16 samples overlapping by two layers along x
	// must produce exactly the faces of the combined array.
	whole := Shape{X: 30, Y: 16, Z: 16}
	center := ms3.Vec{X: 14.3, Y: 7.4, Z: 7.7}
	const radius = 5
	sdf := sphereField(whole, ms3.Vec{}, center, radius)
	var wbuf Buffer
	if err := SurfaceNets(sdf, whole, [3]int{}, [3]int{29, 15, 15}, &wbuf); err != nil {
		t.Fatal(err)
	}

	chunk := Cubic(16)
	var total, seamVerts int
	var verts int
	for _, x0 := range []int{0, 14} {
		sub := sphereField(chunk, ms3.Vec{X: float32(x0)}, center, radius)
		var buf Buffer
		if err := SurfaceNets(sub, chunk, [3]int{}, [3]int{15, 15, 15}, &buf); err != nil {
			t.Fatal(err)
		}
		total += len(buf.Indices)
		verts += len(buf.Positions)
	}
	for _, p := range wbuf.SurfacePoints {
		if p[0] == 14 {
			seamVerts++
		}
	}
	if total != len(wbuf.Indices) {
		t.Errorf("split arrays produced %d indices, combined array %d", total, len(wbuf.Indices))
	}
	if verts-seamVerts != len(wbuf.Positions) {
		t.Errorf("split arrays produced %d vertices with %d on the seam, combined %d", verts, seamVerts, len(wbuf.Positions))
	}
}

func TestSurfaceNetsBadInput(t *testing.T) {
	shape := Cubic(4)
	sdf := make([]float32, shape.Len())
	var buf Buffer
	if err := SurfaceNets(sdf, shape, [3]int{}, [3]int{4, 3, 3}, &buf); err == nil {
		t.Error("expected error for range outside shape")
	}
	if err := SurfaceNets(sdf[:10], shape, [3]int{}, [3]int{3, 3, 3}, &buf); err == nil {
		t.Error("expected error for short array")
	}
	if err := SurfaceNets(sdf, shape, [3]int{}, [3]int{3, 3, 3}, nil); err == nil {
		t.Error("expected error for nil buffer")
	}
}

func TestLinearize(t *testing.T) {
	s := Shape{X: 3, Y: 4, Z: 5}
	for i := 0; i < s.Len(); i++ {
		x, y, z := s.Delinearize(i)
		if s.Linearize(x, y, z) != i {
			t.Fatalf("round trip failed at %d", i)
		}
	}
}
