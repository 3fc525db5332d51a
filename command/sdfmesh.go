package command

import (
	"context"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/gskel"
	"github.com/soypat/gskel/lattice"
	"github.com/soypat/gskel/voxrender"
)

// sdfMesh meshes the edges of the model as tubes of constant radius. The radius
// is a percentage, given by the radius multiplier, of the largest dimension of the
// model's vertex extent. That same un-padded extent sets the voxel scale.
func (p *Processor) sdfMesh(ctx context.Context, params *Params, model *Model) (voxrender.Mesh, error) {
	if err := params.confirmFormat(FormatEdges); err != nil {
		return voxrender.Mesh{}, err
	}
	aabb := model.vertexExtent()
	maxDim := aabb.MaxDim()
	radius := maxDim * (params.RadiusMultiplier / 100)
	segs := make([]gskel.Segment, 0, len(model.Indices)/2)
	for i := 0; i < len(model.Indices); i += 2 {
		segs = append(segs, gskel.Segment{
			P0: model.Vertices[model.Indices[i]],
			P1: model.Vertices[model.Indices[i+1]],
			R0: radius,
			R1: radius,
		})
	}
	variant := gskel.VariantCapsule
	if params.RoundedCone {
		variant = gskel.VariantRoundCone
	}
	p.logger().Debug("voxelizing tubes", "radius", radius, "maxDimension", maxDim, "divisions", params.Divisions, "variant", variant)
	cfg := p.engineConfig(params.Divisions)
	cfg.Reference = &aabb
	tf, err := p.worldToLocal(model)
	if err != nil {
		return voxrender.Mesh{}, err
	}
	return render(ctx, segs, variant, cfg, tf)
}

// sdfMesh25 extrudes a planar skeleton: vertices are projected onto the selected
// plane and the absolute value of the coordinate normal to it, scaled by the radius
// multiplier, is the radius at that vertex. The output is swizzled back so the
// plane lies where it was in the input.
func (p *Processor) sdfMesh25(ctx context.Context, params *Params, model *Model) (voxrender.Mesh, error) {
	if err := params.confirmFormat(FormatEdges); err != nil {
		return voxrender.Mesh{}, err
	}
	plane := params.Plane
	points := make([]ms3.Vec, len(model.Vertices))
	radii := make([]float32, len(model.Vertices))
	ref := lattice.PointExtent(model.Vertices[0])
	for i, v := range model.Vertices {
		points[i], radii[i] = project(plane, v)
		ref = ref.Union(lattice.PointExtent(points[i]).Padded(radii[i]))
	}
	mult := params.RadiusMultiplier
	var segs []gskel.Segment
	for i := 0; i < len(model.Indices); i += 2 {
		i0, i1 := model.Indices[i], model.Indices[i+1]
		r0, r1 := radii[i0], radii[i1]
		if r0 <= gskel.Epsilon && r1 <= gskel.Epsilon {
			continue
		}
		segs = append(segs, gskel.Segment{
			P0: points[i0],
			P1: points[i1],
			R0: r0 * mult,
			R1: r1 * mult,
		})
	}
	p.logger().Debug("voxelizing profile", "plane", plane, "segments", len(segs), "maxDimension", ref.MaxDim(), "divisions", params.Divisions)
	cfg := p.engineConfig(params.Divisions)
	cfg.Reference = &ref
	w2l, err := p.worldToLocal(model)
	if err != nil {
		return voxrender.Mesh{}, err
	}
	return render(ctx, segs, gskel.VariantRoundCone, cfg, voxrender.Compose(unproject(plane), w2l))
}

// roundedCones meshes edges as round cones with an explicit radius per vertex,
// scaled by the radius multiplier.
func (p *Processor) roundedCones(ctx context.Context, params *Params, model *Model) (voxrender.Mesh, error) {
	if len(model.Radii) != len(model.Vertices) {
		return voxrender.Mesh{}, gskel.Errorf(gskel.KindInvalidParameter, "got %d radii for %d vertices", len(model.Radii), len(model.Vertices))
	}
	for i, r := range model.Radii {
		if math32.IsNaN(r) || math32.IsInf(r, 0) || r < 0 {
			return voxrender.Mesh{}, gskel.Errorf(gskel.KindInvalidParameter, "radius %d must be finite and non-negative, got %v", i, r)
		}
	}
	mult := params.RadiusMultiplier
	segs := make([]gskel.Segment, 0, len(model.Indices)/2)
	for i := 0; i < len(model.Indices); i += 2 {
		i0, i1 := model.Indices[i], model.Indices[i+1]
		segs = append(segs, gskel.Segment{
			P0: model.Vertices[i0],
			P1: model.Vertices[i1],
			R0: model.Radii[i0] * mult,
			R1: model.Radii[i1] * mult,
		})
	}
	tf, err := p.worldToLocal(model)
	if err != nil {
		return voxrender.Mesh{}, err
	}
	return render(ctx, segs, gskel.VariantRoundCone, p.engineConfig(params.Divisions), tf)
}

func render(ctx context.Context, segs []gskel.Segment, variant gskel.Variant, cfg voxrender.Config, tf voxrender.Transform) (voxrender.Mesh, error) {
	if len(segs) == 0 {
		return voxrender.Mesh{}, nil
	}
	return voxrender.Render(ctx, segs, variant, cfg, tf)
}

// project maps v onto plane, returning the point with its normal coordinate
// zeroed and in-plane coordinates in X and Y, plus the absolute normal coordinate.
func project(plane Plane, v ms3.Vec) (ms3.Vec, float32) {
	switch plane {
	case PlaneXZ:
		return ms3.Vec{X: v.X, Y: v.Z}, math32.Abs(v.Y)
	case PlaneYZ:
		return ms3.Vec{X: v.Y, Y: v.Z}, math32.Abs(v.X)
	}
	return ms3.Vec{X: v.X, Y: v.Y}, math32.Abs(v.Z)
}

// unproject returns the transform moving a mesh built by [project] back to the plane's axes.
func unproject(plane Plane) voxrender.Transform {
	switch plane {
	case PlaneXZ:
		return func(v ms3.Vec) ms3.Vec { return ms3.Vec{X: v.X, Y: v.Z, Z: v.Y} }
	case PlaneYZ:
		return func(v ms3.Vec) ms3.Vec { return ms3.Vec{X: v.Z, Y: v.X, Z: v.Y} }
	}
	return nil
}
