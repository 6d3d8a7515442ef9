// Package presets loads named room starting configurations from YAML
// files, generalizing the lineage's named-world YAML loader (gravity,
// a body list, and a constraint list, by name) to this server's body
// and constraint model.
package presets

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mikemainguy/rapierphysicsplugin/physics"
	"github.com/mikemainguy/rapierphysicsplugin/vecmath"
)

// Preset is the on-disk YAML schema for one named room starting state.
type Preset struct {
	Gravity     *vec3YAML        `yaml:"gravity"`
	Bodies      []bodyYAML       `yaml:"bodies"`
	Constraints []constraintYAML `yaml:"constraints"`
}

type vec3YAML struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
}

func (v vec3YAML) toDomain() vecmath.Vector3 { return vecmath.Vector3{X: v.X, Y: v.Y, Z: v.Z} }

type quatYAML struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
	W float32 `yaml:"w"`
}

func (q quatYAML) toDomain() vecmath.Quaternion {
	return vecmath.Quaternion{X: q.X, Y: q.Y, Z: q.Z, W: q.W}
}

type shapeYAML struct {
	Kind        string     `yaml:"kind"`
	HalfExtents *vec3YAML  `yaml:"half_extents,omitempty"`
	Radius      float32    `yaml:"radius,omitempty"`
	HalfHeight  float32    `yaml:"half_height,omitempty"`
	Vertices    []vec3YAML `yaml:"vertices,omitempty"`
	Indices     []int32    `yaml:"indices,omitempty"`
}

func (s shapeYAML) toDomain() (physics.ShapeDescriptor, error) {
	switch s.Kind {
	case "box":
		if s.HalfExtents == nil {
			return physics.ShapeDescriptor{}, fmt.Errorf("box shape missing half_extents")
		}
		return physics.ShapeDescriptor{Kind: physics.ShapeBox, HalfExtents: s.HalfExtents.toDomain()}, nil
	case "sphere":
		return physics.ShapeDescriptor{Kind: physics.ShapeSphere, Radius: s.Radius}, nil
	case "capsule":
		return physics.ShapeDescriptor{Kind: physics.ShapeCapsule, Radius: s.Radius, HalfHeight: s.HalfHeight}, nil
	case "trimesh":
		verts := make([]vecmath.Vector3, len(s.Vertices))
		for i, v := range s.Vertices {
			verts[i] = v.toDomain()
		}
		return physics.ShapeDescriptor{Kind: physics.ShapeTrimesh, Vertices: verts, Indices: s.Indices}, nil
	default:
		return physics.ShapeDescriptor{}, fmt.Errorf("unknown shape kind %q", s.Kind)
	}
}

type bodyYAML struct {
	ID          string    `yaml:"id"`
	Shape       shapeYAML `yaml:"shape"`
	Motion      string    `yaml:"motion"`
	Position    vec3YAML  `yaml:"position"`
	Orientation *quatYAML `yaml:"orientation,omitempty"`
	Mass        float32   `yaml:"mass"`
	Restitution float32   `yaml:"restitution"`
	Friction    float32   `yaml:"friction"`
	IsTrigger   bool      `yaml:"is_trigger"`
}

func (b bodyYAML) toDomain() (physics.BodyDescriptor, error) {
	shape, err := b.Shape.toDomain()
	if err != nil {
		return physics.BodyDescriptor{}, fmt.Errorf("body %q: %w", b.ID, err)
	}
	motion := physics.MotionDynamic
	switch b.Motion {
	case "static":
		motion = physics.MotionStatic
	case "kinematic_position":
		motion = physics.MotionKinematicPosition
	}
	out := physics.BodyDescriptor{
		ID:          b.ID,
		Shape:       shape,
		Motion:      motion,
		Position:    b.Position.toDomain(),
		Mass:        b.Mass,
		Restitution: b.Restitution,
		Friction:    b.Friction,
		IsTrigger:   b.IsTrigger,
	}
	if b.Orientation != nil {
		out.Orientation = b.Orientation.toDomain()
	} else {
		out.Orientation = vecmath.IdentityQuaternion
	}
	return out, nil
}

type constraintYAML struct {
	ID     string   `yaml:"id"`
	Kind   string   `yaml:"kind"`
	BodyA  string   `yaml:"body_a"`
	BodyB  string   `yaml:"body_b"`
	PivotA vec3YAML `yaml:"pivot_a"`
	PivotB vec3YAML `yaml:"pivot_b"`
}

var constraintKinds = map[string]physics.ConstraintKind{
	"ball_and_socket": physics.ConstraintBallAndSocket,
	"hinge":           physics.ConstraintHinge,
	"distance":        physics.ConstraintDistance,
	"prismatic":       physics.ConstraintPrismatic,
	"slider":          physics.ConstraintSlider,
	"lock":            physics.ConstraintLock,
	"spring":          physics.ConstraintSpring,
	"six_dof":         physics.ConstraintSixDOF,
}

func (c constraintYAML) toDomain() (physics.ConstraintDescriptor, error) {
	kind, ok := constraintKinds[c.Kind]
	if !ok {
		return physics.ConstraintDescriptor{}, fmt.Errorf("constraint %q: unknown kind %q", c.ID, c.Kind)
	}
	return physics.ConstraintDescriptor{
		ID:     c.ID,
		Kind:   kind,
		BodyA:  c.BodyA,
		BodyB:  c.BodyB,
		PivotA: c.PivotA.toDomain(),
		PivotB: c.PivotB.toDomain(),
	}, nil
}

// Resolved is a preset converted into the domain types a room needs to
// initialize its physics world.
type Resolved struct {
	Gravity     vecmath.Vector3
	Bodies      []physics.BodyDescriptor
	Constraints []physics.ConstraintDescriptor
}

// Load reads and parses "<dir>/<name>.yaml", converting every body and
// constraint to its domain form.
func Load(dir, name string) (Resolved, error) {
	path := filepath.Join(dir, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return Resolved{}, fmt.Errorf("reading preset %q: %w", name, err)
	}

	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Resolved{}, fmt.Errorf("parsing preset %q: %w", name, err)
	}

	out := Resolved{Gravity: vecmath.Vector3{X: 0, Y: -9.81, Z: 0}}
	if p.Gravity != nil {
		out.Gravity = p.Gravity.toDomain()
	}

	for _, b := range p.Bodies {
		bd, err := b.toDomain()
		if err != nil {
			return Resolved{}, err
		}
		out.Bodies = append(out.Bodies, bd)
	}
	for _, c := range p.Constraints {
		cd, err := c.toDomain()
		if err != nil {
			return Resolved{}, err
		}
		out.Constraints = append(out.Constraints, cd)
	}

	return out, nil
}
