package voxrender

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gskel"
	"github.com/soypat/gskel/lattice"
)

// triangleSkeleton is three capsules along the edges of a triangle.
func triangleSkeleton(r float32) []gskel.Segment {
	a := ms3.Vec{X: 1.203918, Y: 1.203918, Z: 1}
	b := ms3.Vec{X: -1.805877, Y: 0.74801874}
	c := ms3.Vec{Y: -1.7025971}
	return []gskel.Segment{
		{P0: a, P1: b, R0: r, R1: r},
		{P0: c, P1: a, R0: r, R1: r},
		{P0: b, P1: c, R0: r, R1: r},
	}
}

func taperedSkeleton() []gskel.Segment {
	return []gskel.Segment{
		{P0: ms3.Vec{X: -1, Y: -1}, P1: ms3.Vec{X: 0.2, Y: 0.1}, R0: 0.1, R1: 0.6},
		{P0: ms3.Vec{X: 0.2, Y: 0.1}, P1: ms3.Vec{X: 1, Y: 1}, R0: 0.6, R1: 0.05},
		{P0: ms3.Vec{X: 0.2, Y: 0.1}, P1: ms3.Vec{X: 0.65, Y: -0.43}, R0: 0.6, R1: 0.2},
	}
}

func render(t *testing.T, segs []gskel.Segment, variant gskel.Variant, cfg Config) Mesh {
	t.Helper()
	mesh, err := Render(context.Background(), segs, variant, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return mesh
}

func TestMeshValidity(t *testing.T) {
	for _, tc := range []struct {
		name    string
		segs    []gskel.Segment
		variant gskel.Variant
	}{
		{"capsules", triangleSkeleton(0.3), gskel.VariantCapsule},
		{"round cones", triangleSkeleton(0.3), gskel.VariantRoundCone},
		{"tapered capsules", taperedSkeleton(), gskel.VariantCapsule},
		{"tapered cones", taperedSkeleton(), gskel.VariantRoundCone},
	} {
		mesh := render(t, tc.segs, tc.variant, Config{Divisions: 40})
		if mesh.NumTriangles() == 0 {
			t.Errorf("%s: no triangles generated", tc.name)
			continue
		}
		if err := mesh.Validate(); err != nil {
			t.Errorf("%s: %v", tc.name, err)
		}
		// Output is in model units, close to the skeleton surface.
		_, padded, _ := gskel.SegmentBounds(tc.segs)
		bb := padded.Padded(0.2).Box()
		for _, v := range mesh.Vertices {
			if v.X < bb.Min.X || v.Y < bb.Min.Y || v.Z < bb.Min.Z || v.X > bb.Max.X || v.Y > bb.Max.Y || v.Z > bb.Max.Z {
				t.Fatalf("%s: vertex %v outside of padded skeleton bounds %+v", tc.name, v, bb)
			}
		}
	}
}

func TestMonotonicResolution(t *testing.T) {
	segs := taperedSkeleton()
	prev := 0
	for _, div := range []float32{20, 35, 60} {
		mesh := render(t, segs, gskel.VariantRoundCone, Config{Divisions: div})
		if len(mesh.Vertices) < prev {
			t.Errorf("divisions %v produced %d vertices, fewer than %d at lower resolution", div, len(mesh.Vertices), prev)
		}
		prev = len(mesh.Vertices)
	}
}

func TestEmptyInfluence(t *testing.T) {
	for _, variant := range []gskel.Variant{gskel.VariantCapsule, gskel.VariantRoundCone} {
		frags, err := Voxelize(context.Background(), triangleSkeleton(0), variant, Config{Divisions: 50})
		if err != nil {
			t.Fatalf("%s: zero radius must not be an error: %v", variant, err)
		}
		if len(frags.Chunks) != 0 {
			t.Errorf("%s: want no fragments, got %d", variant, len(frags.Chunks))
		}
		mesh, err := Stitch(frags, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(mesh.Vertices) != 0 || len(mesh.Indices) != 0 {
			t.Errorf("%s: want empty mesh, got %d vertices %d indices", variant, len(mesh.Vertices), len(mesh.Indices))
		}
	}
}

func TestChunkIndependence(t *testing.T) {
	segs := []gskel.Segment{{
		P0: ms3.Vec{X: -1.3, Y: 0.2, Z: 0.1},
		P1: ms3.Vec{X: 1.1, Y: 0.7, Z: -0.4},
		R0: 0.45, R1: 0.25,
	}}
	for _, variant := range []gskel.Variant{gskel.VariantCapsule, gskel.VariantRoundCone} {
		var wantTris, wantVerts int
		for i, side := range []int{8, 14, 21} {
			frags, err := Voxelize(context.Background(), segs, variant, Config{Divisions: 45, ChunkSide: side})
			if err != nil {
				t.Fatal(err)
			}
			mesh, err := Stitch(frags, nil)
			if err != nil {
				t.Fatal(err)
			}
			tris := mesh.NumTriangles()
			verts := weldedCount(mesh.Vertices, frags.Scale)
			if i == 0 {
				wantTris, wantVerts = tris, verts
				if tris == 0 {
					t.Fatal("no triangles")
				}
				continue
			}
			if tris != wantTris {
				t.Errorf("%s chunk side %d: %d triangles, want %d", variant, side, tris, wantTris)
			}
			if verts != wantVerts {
				t.Errorf("%s chunk side %d: %d welded vertices, want %d", variant, side, verts, wantVerts)
			}
		}
	}
}

// weldedCount returns the number of distinct vertices after merging those
// closer than a fraction of a voxel. Chunks duplicate the vertices of the cell
// layer they share with their neighbours.
func weldedCount(verts []ms3.Vec, scale float32) int {
	type key struct{ x, y, z int64 }
	seen := make(map[key]struct{}, len(verts))
	q := 64 * scale
	for _, v := range verts {
		k := key{
			x: int64(math32.Round(v.X * q)),
			y: int64(math32.Round(v.Y * q)),
			z: int64(math32.Round(v.Z * q)),
		}
		seen[k] = struct{}{}
	}
	return len(seen)
}

func TestDeterministicAcrossWorkers(t *testing.T) {
	segs := taperedSkeleton()
	ref := render(t, segs, gskel.VariantRoundCone, Config{Divisions: 50, Workers: 1})
	for _, workers := range []int{2, 7, 32} {
		mesh := render(t, segs, gskel.VariantRoundCone, Config{Divisions: 50, Workers: workers})
		if !slices.Equal(mesh.Vertices, ref.Vertices) || !slices.Equal(mesh.Indices, ref.Indices) {
			t.Errorf("%d workers produced a different mesh than a single worker", workers)
		}
	}
}

func TestFragmentsAgreeWithSkeleton(t *testing.T) {
	segs := triangleSkeleton(0.25)
	_, padded, _ := gskel.SegmentBounds(segs)
	scale, err := lattice.ScaleFor(30, padded)
	if err != nil {
		t.Fatal(err)
	}
	bld := gskel.Builder{Scale: scale}
	for _, s := range segs {
		bld.Add(gskel.VariantRoundCone, s)
	}
	skel, err := bld.Skeleton()
	if err != nil {
		t.Fatal(err)
	}
	var occupied lattice.IBox
	for _, b := range skel.PrimitiveBounds() {
		occupied = occupied.Union(b)
	}
	lat, err := lattice.New(DefaultChunkSide, occupied)
	if err != nil {
		t.Fatal(err)
	}
	smp := newSampler(lat.PaddedSide())
	ref := make([]float32, len(smp.dist))
	crossing := 0
	for _, chunk := range lat.All() {
		padded := lat.PaddedExtent(chunk)
		smp.filter = lattice.Filter(smp.filter[:0], padded, skel.PrimitiveBounds())
		if len(smp.filter) == 0 {
			continue
		}
		crosses, err := smp.sample(skel, padded)
		if err != nil {
			t.Fatal(err)
		}
		if crosses {
			crossing++
		}
		if err := skel.Evaluate(smp.pos, ref, nil); err != nil {
			t.Fatal(err)
		}
		for i := range ref {
			if (ref[i] < 0) != (smp.dist[i] < 0) {
				t.Fatalf("chunk %v sample %v: filtered distance %v disagrees in sign with %v", chunk, smp.pos[i], smp.dist[i], ref[i])
			}
			if ref[i] < 0 && ref[i] != smp.dist[i] {
				t.Fatalf("interior sample %v: filtered %v != full %v", smp.pos[i], smp.dist[i], ref[i])
			}
		}
	}
	if crossing == 0 {
		t.Fatal("no chunk crossed the surface")
	}
}

// twoChunkFragments returns a triangle and a quad in neighbouring chunks.
func twoChunkFragments() Fragments {
	return Fragments{
		Scale: 2,
		Chunks: []Fragment{
			{
				Origin:    lattice.IVec{X: -1, Y: -1, Z: -1},
				Positions: []ms3.Vec{{X: 1, Y: 1, Z: 1}, {X: 2, Y: 1, Z: 1}, {X: 1, Y: 2, Z: 1}},
				Indices:   []uint32{0, 1, 2},
			},
			{
				Origin:    lattice.IVec{X: 13, Y: -1, Z: -1},
				Positions: []ms3.Vec{{X: 1, Y: 1, Z: 1}, {X: 2, Y: 1, Z: 1}, {X: 1, Y: 2, Z: 1}, {X: 2, Y: 2, Z: 1}},
				Indices:   []uint32{0, 1, 2, 2, 1, 3},
			},
		},
	}
}

func TestStitch(t *testing.T) {
	frags := twoChunkFragments()
	shift := Transform(func(v ms3.Vec) ms3.Vec { return ms3.Add(v, ms3.Vec{Z: 10}) })
	mesh, err := Stitch(frags, Compose(nil, shift))
	if err != nil {
		t.Fatal(err)
	}
	if len(mesh.Vertices) != 7 || len(mesh.Indices) != 9 {
		t.Fatalf("got %d vertices %d indices", len(mesh.Vertices), len(mesh.Indices))
	}
	wantIdx := []uint32{0, 1, 2, 3, 4, 5, 5, 4, 6}
	if !slices.Equal(mesh.Indices, wantIdx) {
		t.Errorf("indices %v, want %v", mesh.Indices, wantIdx)
	}
	if mesh.Vertices[0] != (ms3.Vec{X: 0, Y: 0, Z: 10}) {
		t.Errorf("first vertex %v", mesh.Vertices[0])
	}
	if mesh.Vertices[6] != (ms3.Vec{X: 7.5, Y: 0.5, Z: 10}) {
		t.Errorf("last vertex %v", mesh.Vertices[6])
	}
	if err := mesh.Validate(); err != nil {
		t.Error(err)
	}
	var tris [2]ms3.Triangle
	var off int
	n, err := mesh.ReadTriangles(tris[:], &off)
	if n != 2 || err != nil {
		t.Errorf("first read: n=%d err=%v", n, err)
	}
	n, _ = mesh.ReadTriangles(tris[:], &off)
	if n != 1 || off != 3 {
		t.Errorf("second read: n=%d offset=%d", n, off)
	}
}

func TestStitchOverflow(t *testing.T) {
	frags := twoChunkFragments() // 7 vertices, 9 indices.
	tf := Transform(func(v ms3.Vec) ms3.Vec {
		t.Error("transform called on a mesh that overflowed")
		return v
	})
	for _, limit := range []uint64{7, 9} {
		mesh, err := stitch(frags, tf, limit)
		if !errors.Is(err, gskel.ErrOverflow) {
			t.Errorf("limit %d: want overflow, got %v", limit, err)
		}
		if mesh.Vertices != nil || mesh.Indices != nil {
			t.Errorf("limit %d: mesh allocated before overflow was detected", limit)
		}
	}
	mesh, err := stitch(frags, nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(mesh.Indices) != 9 {
		t.Errorf("want 9 indices below the limit, got %d", len(mesh.Indices))
	}
}

func TestCheckCapacity(t *testing.T) {
	if err := checkCapacity(math.MaxUint32-1, math.MaxUint32-1, math.MaxUint32); err != nil {
		t.Errorf("unexpected error below limit: %v", err)
	}
	if err := checkCapacity(math.MaxUint32, 0, math.MaxUint32); !errors.Is(err, gskel.ErrOverflow) {
		t.Errorf("want overflow for vertices, got %v", err)
	}
	if err := checkCapacity(0, math.MaxUint32+10, math.MaxUint32); !errors.Is(err, gskel.ErrOverflow) {
		t.Errorf("want overflow for indices, got %v", err)
	}
}

func TestVoxelizeErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Voxelize(ctx, nil, gskel.VariantCapsule, Config{Divisions: 10}); !errors.Is(err, gskel.ErrNoData) {
		t.Errorf("want no data error, got %v", err)
	}
	point := []gskel.Segment{{P0: ms3.Vec{X: 1}, P1: ms3.Vec{X: 1}}}
	if _, err := Voxelize(ctx, point, gskel.VariantCapsule, Config{Divisions: 10}); !errors.Is(err, gskel.ErrDegenerate) {
		t.Errorf("want degenerate error for point skeleton, got %v", err)
	}
	segs := triangleSkeleton(0.1)
	if _, err := Voxelize(ctx, segs, gskel.VariantCapsule, Config{Divisions: 0}); !errors.Is(err, gskel.ErrDegenerate) {
		t.Errorf("want degenerate error for zero divisions, got %v", err)
	}
	nan := []gskel.Segment{{P1: ms3.Vec{X: math32.NaN()}, R0: 1, R1: 1}}
	if _, err := Voxelize(ctx, nan, gskel.VariantCapsule, Config{Divisions: 10}); !errors.Is(err, gskel.ErrNonFinite) {
		t.Errorf("want non-finite error, got %v", err)
	}
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := Voxelize(canceled, segs, gskel.VariantCapsule, Config{Divisions: 20}); !errors.Is(err, context.Canceled) {
		t.Errorf("want context canceled, got %v", err)
	}
}
