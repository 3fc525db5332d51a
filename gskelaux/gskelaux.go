// Package gskelaux has helpers to get going with gskel quickly: a logged render
// pipeline that writes STL files, and a preconfigured logger.
package gskelaux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gskel"
	"github.com/soypat/gskel/voxrender"
)

type RenderConfig struct {
	STLOutput io.Writer
	// ASCII selects ASCII STL output instead of binary.
	ASCII     bool
	Divisions float32
	ChunkSide int
	Workers   int
	Silent    bool
	Logger    *log.Logger
	// Transform is applied to every output vertex.
	Transform voxrender.Transform
}

// NewLogger returns the logger used by gskel tools, writing to w.
func NewLogger(w io.Writer, prefix string) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          prefix,
	})
	return l
}

// Render is an auxiliary function to aid users in meshing a skeleton and writing it to an STL file.
// The mesh is returned so callers can inspect it after it is written.
func Render(ctx context.Context, segs []gskel.Segment, variant gskel.Variant, cfg RenderConfig) (mesh voxrender.Mesh, err error) {
	if cfg.STLOutput == nil {
		return mesh, errors.New("Render requires output parameter in config")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NewLogger(os.Stderr, "gskel")
	}
	logf := func(msg string, keyvals ...any) {
		if !cfg.Silent {
			logger.Info(msg, keyvals...)
		}
	}
	vcfg := voxrender.Config{
		Divisions: cfg.Divisions,
		ChunkSide: cfg.ChunkSide,
		Workers:   cfg.Workers,
	}
	watch := stopwatch()
	frags, err := voxrender.Voxelize(ctx, segs, variant, vcfg)
	if err != nil {
		return mesh, fmt.Errorf("voxelizing: %w", err)
	}
	var nverts int
	for i := range frags.Chunks {
		nverts += len(frags.Chunks[i].Positions)
	}
	logf("voxelized", "variant", variant, "segments", len(segs), "fragments", len(frags.Chunks), "vertices", nverts, "elapsed", watch())

	watch = stopwatch()
	mesh, err = voxrender.Stitch(frags, cfg.Transform)
	if err != nil {
		return mesh, fmt.Errorf("stitching: %w", err)
	}
	triangles, err := Triangles(&mesh)
	if err != nil {
		return mesh, err
	}
	logf("stitched", "triangles", len(triangles), "elapsed", watch())

	watch = stopwatch()
	if cfg.ASCII {
		err = WriteASCIISTL(cfg.STLOutput, "gskel", triangles)
	} else {
		_, err = WriteBinarySTL(cfg.STLOutput, triangles)
	}
	if err != nil {
		return mesh, fmt.Errorf("writing STL file: %w", err)
	}
	filename := "STL"
	if fp, ok := cfg.STLOutput.(*os.File); ok {
		filename = fp.Name()
	}
	logf("wrote "+filename, "elapsed", watch())
	return mesh, nil
}

// Triangles reads all triangles of the mesh.
func Triangles(mesh *voxrender.Mesh) ([]ms3.Triangle, error) {
	const bufSize = 1024
	var offset int
	triangles := make([]ms3.Triangle, 0, mesh.NumTriangles())
	buf := make([]ms3.Triangle, bufSize)
	for {
		n, err := mesh.ReadTriangles(buf, &offset)
		triangles = append(triangles, buf[:n]...)
		if err == io.EOF {
			return triangles, nil
		} else if err != nil {
			return triangles, err
		}
	}
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
