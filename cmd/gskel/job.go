package main

import (
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gskel/command"
)

// job is the TOML file format read by gskel. Options is passed to the
// command layer as is, so values are strings:
//
//	[options]
//	"▶" = "sdf_mesh"
//	SDF_DIVISIONS = "50"
//	SDF_RADIUS_MULTIPLIER = "1.0"
//
//	[[models]]
//	vertices = [[0, 0, 0], [1, 0, 0]]
//	indices = [0, 1]
type job struct {
	Options map[string]string `toml:"options"`
	Models  []jobModel        `toml:"models"`
}

type jobModel struct {
	Vertices [][3]float32 `toml:"vertices"`
	Indices  []uint32     `toml:"indices"`
	Radii    []float32    `toml:"radii"`
	// World is the column major world orientation. Identity if omitted.
	World []float32 `toml:"world"`
}

func decodeJob(r io.Reader) (command.Config, []command.Model, error) {
	var j job
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&j); err != nil {
		return nil, nil, err
	}
	if len(j.Options) == 0 {
		return nil, nil, fmt.Errorf("job has no [options] table")
	}
	models := make([]command.Model, len(j.Models))
	for i, jm := range j.Models {
		m := &models[i]
		m.WorldOrientation = command.IdentityMatrix
		switch len(jm.World) {
		case 0:
		case 16:
			copy(m.WorldOrientation[:], jm.World)
		default:
			return nil, nil, fmt.Errorf("model %d: world orientation must have 16 elements, got %d", i, len(jm.World))
		}
		m.Vertices = make([]ms3.Vec, len(jm.Vertices))
		for k, v := range jm.Vertices {
			m.Vertices[k] = ms3.Vec{X: v[0], Y: v[1], Z: v[2]}
		}
		m.Indices = jm.Indices
		m.Radii = jm.Radii
	}
	return command.Config(j.Options), models, nil
}
