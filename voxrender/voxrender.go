// Package voxrender meshes skeletons by sampling their distance field over a
// chunked voxel lattice and extracting the zero level set of each chunk with
// Surface Nets. Chunks are processed concurrently and stitched back together
// in lattice order, so output is deterministic for a given input and chunk size.
package voxrender

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gskel"
	"github.com/soypat/gskel/lattice"
)

// DefaultChunkSide is the un-padded side of a chunk in voxels. Padded chunks are 16 voxels wide.
const DefaultChunkSide = 14

// Config controls the resolution and parallelism of a voxelization.
type Config struct {
	// Divisions is the number of voxels along the longest side of the reference extent.
	Divisions float32
	// ChunkSide is the un-padded chunk side in voxels. Zero selects [DefaultChunkSide].
	ChunkSide int
	// Workers is the number of goroutines sampling chunks. Zero selects runtime.NumCPU().
	Workers int
	// Reference is the extent, in model units, whose longest side maps onto Divisions voxels.
	// If nil the extent of all segments padded by their radii is used.
	Reference *lattice.Extent
}

func (cfg Config) chunkSide() int {
	if cfg.ChunkSide == 0 {
		return DefaultChunkSide
	}
	return cfg.ChunkSide
}

func (cfg Config) workers() int {
	if cfg.Workers <= 0 {
		return runtime.NumCPU()
	}
	return cfg.Workers
}

// Fragment is the mesh of a single chunk.
type Fragment struct {
	// Chunk is the coordinate of the chunk in the lattice.
	Chunk lattice.IVec
	// Origin is the minimum corner of the padded chunk in voxel units.
	// Positions are relative to it.
	Origin lattice.IVec
	// Positions are vertex positions in chunk-local voxel units.
	Positions []ms3.Vec
	// Indices lists triangles as triples of indices into Positions.
	Indices []uint32
}

// Fragments is the output of [Voxelize]: the per chunk meshes in lattice order
// and the scale that converts model units to voxel units.
type Fragments struct {
	Scale  float32
	Chunks []Fragment
}

// Voxelize scales segs so the reference extent spans cfg.Divisions voxels,
// builds a primitive of the given variant for each segment and meshes every
// chunk of the resulting lattice. Degenerate segments are skipped, so a set of
// segments with no radius yields no fragments and no error.
func Voxelize(ctx context.Context, segs []gskel.Segment, variant gskel.Variant, cfg Config) (Fragments, error) {
	if len(segs) == 0 {
		return Fragments{}, gskel.Errorf(gskel.KindNoData, "no segments to voxelize")
	}
	if cfg.ChunkSide < 0 {
		return Fragments{}, gskel.Errorf(gskel.KindInvalidParameter, "negative chunk side %d", cfg.ChunkSide)
	}
	for i := range segs {
		if !segs[i].IsFinite() {
			return Fragments{}, fmt.Errorf("segment %d: %w", i, gskel.ErrNonFinite)
		}
	}
	ref := cfg.Reference
	if ref == nil {
		_, padded, _ := gskel.SegmentBounds(segs)
		ref = &padded
	}
	scale, err := lattice.ScaleFor(cfg.Divisions, *ref)
	if err != nil {
		return Fragments{}, gskel.Errorf(gskel.KindDegenerate, "%s", err)
	}
	bld := gskel.Builder{Scale: scale}
	for _, seg := range segs {
		bld.Add(variant, seg)
	}
	if err := bld.Err(); err != nil {
		return Fragments{}, err
	}
	if len(bld.Primitives()) == 0 {
		return Fragments{Scale: scale}, nil
	}
	skel, err := bld.Skeleton()
	if err != nil {
		return Fragments{}, err
	}
	chunks, err := VoxelizeSkeleton(ctx, skel, cfg)
	if err != nil {
		return Fragments{}, err
	}
	return Fragments{Scale: scale, Chunks: chunks}, nil
}

// VoxelizeSkeleton meshes a skeleton whose primitives are already in voxel units.
// Only cfg.ChunkSide and cfg.Workers are used.
//
// The context is only checked between chunks: once it is done no new chunk is
// started and the context's error is returned after running chunks finish.
func VoxelizeSkeleton(ctx context.Context, skel *gskel.Skeleton, cfg Config) ([]Fragment, error) {
	bounds := skel.PrimitiveBounds()
	var occupied lattice.IBox
	for _, b := range bounds {
		occupied = occupied.Union(b)
	}
	lat, err := lattice.New(cfg.chunkSide(), occupied)
	if err != nil {
		return nil, gskel.Errorf(gskel.KindInvalidParameter, "%s", err)
	}
	n := lat.Len()
	if n == 0 {
		return nil, nil
	}
	results := make([]*Fragment, n)
	errs := make([]error, n)
	var next atomic.Int64
	var wg sync.WaitGroup
	nworkers := min(cfg.workers(), n)
	for range nworkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			smp := newSampler(lat.PaddedSide())
			for ctx.Err() == nil {
				i := int(next.Add(1) - 1)
				if i >= n {
					return
				}
				results[i], errs[i] = smp.meshChunk(skel, bounds, lat, lat.At(i))
			}
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := firstErr(errs); err != nil {
		return nil, err
	}
	var frags []Fragment
	for _, f := range results {
		if f != nil {
			frags = append(frags, *f)
		}
	}
	return frags, nil
}

func firstErr(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Render voxelizes segs and stitches the fragments into a single mesh in model units.
// tf, if not nil, is applied to every output vertex.
func Render(ctx context.Context, segs []gskel.Segment, variant gskel.Variant, cfg Config, tf Transform) (Mesh, error) {
	frags, err := Voxelize(ctx, segs, variant, cfg)
	if err != nil {
		return Mesh{}, err
	}
	return Stitch(frags, tf)
}
