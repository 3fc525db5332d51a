// Package command is the front door of gskel for modeling hosts. A host sends
// a string keyed [Config] and a list of [Model]s; the command named in the
// config is validated, run through the voxel meshing engine and the resulting
// triangle mesh is returned together with a config for the host to interpret.
package command

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gskel"
	"github.com/soypat/gskel/voxrender"
)

// Operation names.
const (
	OpSDFMesh        = "sdf_mesh"
	OpSDFMesh25      = "sdf_mesh_2_5"
	OpRoundedCones   = "sdf_rounded_cones"
	opSDFMesh25Alias = "sdf_mesh_2½_fsn"
)

// Result is a triangulated mesh returned to the host.
type Result struct {
	Vertices         []ms3.Vec
	Indices          []uint32
	WorldOrientation [16]float32
	// Config tells the host how to interpret the mesh.
	Config Config
}

// Processor runs commands. The zero value is ready to use and does not log.
type Processor struct {
	Logger *log.Logger
	// Workers and ChunkSide are passed on to the engine, zero selects the defaults.
	Workers   int
	ChunkSide int
}

// Dispatch runs the command named in cfg with a zero [Processor].
func Dispatch(cfg Config, models []Model) (Result, error) {
	var p Processor
	return p.Dispatch(context.Background(), cfg, models)
}

// Dispatch validates cfg and runs the command it names over models.
// Every operation requires exactly one model.
func (p *Processor) Dispatch(ctx context.Context, cfg Config, models []Model) (Result, error) {
	params, err := ParseParams(cfg)
	if err != nil {
		return Result{}, err
	}
	var run func(context.Context, *Params, *Model) (voxrender.Mesh, error)
	switch params.Command {
	case OpSDFMesh:
		run = p.sdfMesh
	case OpSDFMesh25, opSDFMesh25Alias:
		run = p.sdfMesh25
	case OpRoundedCones:
		run = p.roundedCones
	default:
		return Result{}, gskel.Errorf(gskel.KindInvalidParameter, "invalid command: %s", params.Command)
	}
	if len(models) == 0 {
		return Result{}, gskel.Errorf(gskel.KindNoData, "operation %s requires one input model", params.Command)
	} else if len(models) > 1 {
		return Result{}, gskel.Errorf(gskel.KindInvalidParameter, "operation %s only supports one model as input, got %d", params.Command, len(models))
	}
	model := &models[0]
	if err := model.validate(); err != nil {
		return Result{}, err
	}
	logger := p.logger()
	logger.Debug("running command", "command", params.Command, "vertices", len(model.Vertices), "edges", len(model.Indices)/2)
	start := time.Now()
	mesh, err := run(ctx, &params, model)
	if err != nil {
		return Result{}, err
	}
	logger.Info("command done", "command", params.Command, "vertices", len(mesh.Vertices), "indices", len(mesh.Indices), "elapsed", time.Since(start))
	return Result{
		Vertices:         mesh.Vertices,
		Indices:          mesh.Indices,
		WorldOrientation: IdentityMatrix,
		Config:           returnConfig(&params),
	}, nil
}

func returnConfig(params *Params) Config {
	ret := Config{
		KeyMeshFormat:     FormatTriangulated,
		KeyMeshFormatName: "triangulated",
	}
	if params.HasVertexMerge {
		// Vertices shared between chunks are left for the host to merge.
		ret[KeyVertexMerge] = strconv.FormatFloat(float64(params.VertexMerge), 'g', -1, 32)
	}
	return ret
}

func (p *Processor) logger() *log.Logger {
	if p.Logger == nil {
		return log.New(io.Discard)
	}
	return p.Logger
}

func (p *Processor) engineConfig(divisions float32) voxrender.Config {
	return voxrender.Config{
		Divisions: divisions,
		ChunkSide: p.ChunkSide,
		Workers:   p.Workers,
	}
}

// worldToLocal logs whether the world to local transform is applied.
func (p *Processor) worldToLocal(model *Model) (voxrender.Transform, error) {
	tf, err := model.WorldToLocal()
	if err != nil {
		return nil, err
	}
	if tf != nil {
		p.logger().Debug("applying world to local transformation", "world", model.WorldOrientation)
	}
	return tf, nil
}
