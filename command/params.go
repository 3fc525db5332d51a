package command

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/chewxy/math32"
	"github.com/soypat/gskel"
)

// Config is the string keyed option table sent by the host alongside the models.
type Config map[string]string

// Option keys understood by the command layer.
const (
	KeyCommand          = "▶"
	KeyCommandLegacy    = "command"
	KeyDivisions        = "SDF_DIVISIONS"
	KeyRadiusMultiplier = "SDF_RADIUS_MULTIPLIER"
	KeyRoundedCone      = "SDF_ROUNDED_CONE"
	KeyRadiusAxis       = "RADIUS_AXIS"
	KeyVertexMerge      = "REMOVE_DOUBLES_THRESHOLD"
	KeyMeshFormat       = "📦"
	// KeyMeshFormatName is the long form of the packaging tag written to return configs.
	KeyMeshFormatName   = "mesh.format"
)

// Mesh packaging tags.
const (
	FormatEdges        = "⸗"
	FormatTriangulated = "△"
)

// Valid SDF_DIVISIONS range, lower bound inclusive and upper bound exclusive.
const (
	MinDivisions = 9.9
	MaxDivisions = 600.1
)

// Plane selects the projection plane of the 2.5D operation. The coordinate
// normal to the plane carries the radius.
type Plane uint8

const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneYZ
)

func (p Plane) String() string {
	switch p {
	case PlaneXY:
		return "XY"
	case PlaneXZ:
		return "XZ"
	case PlaneYZ:
		return "YZ"
	}
	return "Plane(" + strconv.Itoa(int(p)) + ")"
}

// ParsePlane parses a plane name case insensitively.
func ParsePlane(s string) (Plane, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "XY":
		return PlaneXY, nil
	case "XZ":
		return PlaneXZ, nil
	case "YZ":
		return PlaneYZ, nil
	}
	return 0, gskel.Errorf(gskel.KindInvalidParameter, "invalid plane %q, want XY, XZ or YZ", s)
}

// Params is the validated form of a [Config].
type Params struct {
	Command   string
	Divisions float32
	// RadiusMultiplier is the raw multiplier as sent by the host. Each
	// operation decides how it relates to the radius.
	RadiusMultiplier float32
	// RoundedCone selects the round cone distance for the 3D tube operation.
	RoundedCone bool
	Plane       Plane

	// VertexMerge is echoed back to the host when HasVertexMerge is set.
	VertexMerge    float32
	HasVertexMerge bool
	// Format is the input mesh packaging tag, empty if absent.
	Format string
}

// ParseParams validates cfg. All problems are reported in a single joined error.
// Values that do not parse are invalid parameters, while divisions or radius
// multipliers outside of their valid range are degenerate input.
func ParseParams(cfg Config) (Params, error) {
	var p Params
	var errs []error
	var ok bool
	p.Command, ok = cfg.lookup(KeyCommand, KeyCommandLegacy)
	if !ok {
		errs = append(errs, missing(KeyCommand))
	}

	divisions, err := cfg.mandatoryFloat(KeyDivisions)
	if err != nil {
		errs = append(errs, err)
	} else if !(divisions >= MinDivisions && divisions < MaxDivisions) {
		errs = append(errs, gskel.Errorf(gskel.KindDegenerate, "the valid range of %s is [10..600[ :(%v)", KeyDivisions, divisions))
	}
	p.Divisions = divisions

	mult, err := cfg.mandatoryFloat(KeyRadiusMultiplier)
	if err != nil {
		errs = append(errs, err)
	} else if math32.IsInf(mult, 0) || !(mult >= 0) {
		errs = append(errs, gskel.Errorf(gskel.KindDegenerate, "%s must be finite and non-negative, got %v", KeyRadiusMultiplier, mult))
	}
	p.RadiusMultiplier = mult

	if v, ok := cfg[KeyRoundedCone]; ok {
		p.RoundedCone, err = strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, invalid(KeyRoundedCone, v))
		}
	}
	if v, ok := cfg[KeyRadiusAxis]; ok {
		p.Plane, err = ParsePlane(v)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if v, ok := cfg[KeyVertexMerge]; ok {
		p.VertexMerge, err = parseFloat(v)
		if err != nil {
			errs = append(errs, invalid(KeyVertexMerge, v))
		}
		p.HasVertexMerge = err == nil
	}
	p.Format = cfg[KeyMeshFormat]
	if err := errors.Join(errs...); err != nil {
		return Params{}, err
	}
	return p, nil
}

// confirmFormat checks the packaging tag of the first model against the accepted formats.
// An absent tag is accepted.
func (p *Params) confirmFormat(accepted ...string) error {
	if p.Format == "" {
		return nil
	}
	r, _ := utf8.DecodeRuneInString(p.Format)
	found := string(r)
	for _, a := range accepted {
		if found == a {
			return nil
		}
	}
	return gskel.Errorf(gskel.KindInvalidParameter, "operation %s requires mesh format %v, not %s", p.Command, accepted, found)
}

func (cfg Config) lookup(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := cfg[k]; ok {
			return v, true
		}
	}
	return "", false
}

func (cfg Config) mandatoryFloat(key string) (float32, error) {
	v, ok := cfg[key]
	if !ok {
		return 0, missing(key)
	}
	f, err := parseFloat(v)
	if err != nil {
		return 0, invalid(key, v)
	}
	return f, nil
}

func parseFloat(s string) (float32, error) {
	f, err := strconv.ParseFloat(strings.ToLower(strings.TrimSpace(s)), 32)
	return float32(f), err
}

func missing(key string) error {
	return gskel.Errorf(gskel.KindInvalidParameter, "the mandatory parameter %q was missing", key)
}

func invalid(key, value string) error {
	return gskel.Errorf(gskel.KindInvalidParameter, "invalid value for parameter %q: %q", key, value)
}
