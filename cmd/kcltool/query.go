package main

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"kartcol/internal/boxcol"
	"kartcol/internal/collision"
	"kartcol/internal/kcl"
)

type queryOptions struct {
	pos    []float32
	prev   []float32
	radius float32
	scope  float32
	types  []string
	point  bool
	cached bool
}

type entryResult struct {
	Type      string  `json:"type"`
	Attribute uint16  `json:"attribute"`
	Dist      float32 `json:"dist"`
}

type queryResult struct {
	Hit             bool          `json:"hit"`
	Types           []string      `json:"types"`
	FloorDist       float32       `json:"floorDist"`
	FloorNrm        rl.Vector3    `json:"floorNrm"`
	WallDist        float32       `json:"wallDist"`
	WallNrm         rl.Vector3    `json:"wallNrm"`
	MovingFloorDist float32       `json:"movingFloorDist"`
	RoadVelocity    rl.Vector3    `json:"roadVelocity"`
	TangentOff      rl.Vector3    `json:"tangentOff"`
	Entries         []entryResult `json:"entries"`
	Closest         *entryResult  `json:"closest,omitempty"`
}

func newQueryCmd(a *app) *cobra.Command {
	opts := queryOptions{}
	cmd := &cobra.Command{
		Use:   "query [course]",
		Short: "Run one collision query against the course and its drivable objects",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			_, data, err := a.course(args)
			if err != nil {
				return err
			}

			q, err := opts.query()
			if err != nil {
				return err
			}

			d, err := a.buildDirector(data)
			if err != nil {
				return err
			}
			defer collision.DestroyInstance()

			res := runQuery(d, q, opts)
			if a.asJSON {
				return a.printJSON(res)
			}
			a.printQuery(res)
			return nil
		},
	}
	f := cmd.Flags()
	f.Float32SliceVar(&opts.pos, "pos", nil, "query position x,y,z")
	f.Float32SliceVar(&opts.prev, "prev", nil, "previous position x,y,z for movement checks")
	f.Float32Var(&opts.radius, "radius", 50, "sphere radius")
	f.Float32Var(&opts.scope, "scope", 0, "narrow scope radius for cached checks, defaults to twice the radius")
	f.StringSliceVar(&opts.types, "types", nil, "prism types to test, default all")
	f.BoolVar(&opts.point, "point", false, "run a point check instead of a sphere check")
	f.BoolVar(&opts.cached, "cached", false, "narrow the scope first and run a cached check")
	_ = cmd.MarkFlagRequired("pos")
	return cmd
}

func vec(v []float32) (rl.Vector3, error) {
	if len(v) != 3 {
		return rl.Vector3{}, fmt.Errorf("expected 3 components, got %d", len(v))
	}
	return rl.Vector3{X: v[0], Y: v[1], Z: v[2]}, nil
}

func (o *queryOptions) query() (collision.Query, error) {
	q := collision.Query{Radius: o.radius, PrevPos: collision.NoPrevPos, Mask: kcl.MaskAny}

	pos, err := vec(o.pos)
	if err != nil {
		return q, fmt.Errorf("failed to read --pos: %w", err)
	}
	q.Pos = pos

	if o.prev != nil {
		prev, err := vec(o.prev)
		if err != nil {
			return q, fmt.Errorf("failed to read --prev: %w", err)
		}
		q.PrevPos = prev
	}

	if len(o.types) > 0 {
		q.Mask = kcl.MaskNone
		for _, name := range o.types {
			t, ok := kcl.ParseType(name)
			if !ok {
				return q, fmt.Errorf("unknown prism type %q", name)
			}
			q.Mask |= t.Bit()
		}
	}
	return q, nil
}

func (o *queryOptions) kind() collision.Check {
	kind := collision.CheckPush
	if o.point {
		kind |= collision.CheckPoint
	}
	if o.cached {
		kind |= collision.CheckCached
	}
	return kind
}

// buildDirector creates the director for course and registers every
// configured object as a drivable.
func (a *app) buildDirector(course *kcl.Data) (*collision.Director, error) {
	positions := make(map[boxcol.Handle]rl.Vector3)
	index := boxcol.NewManager(func(h boxcol.Handle) rl.Vector3 { return positions[h] })
	d := collision.CreateInstance(course, index)
	d.SetCourseScale(a.cfg.KCLScale)

	for i, o := range a.cfg.Objects {
		data, err := a.archive.LoadKCL(o.Name)
		if err != nil {
			collision.DestroyInstance()
			return nil, fmt.Errorf("failed to load object %d: %w", i, err)
		}

		h := boxcol.Handle(i)
		drv := collision.NewDrivableKCL(d.Course(), data, o.Matrix(), o.Scale)
		drv.SetMovingObjVel(o.Vel())
		positions[h] = drv.Midpoint()
		if index.InsertDrivable(drv.HalfSide(), 0, h, false) == nil {
			logger.Warn("spatial index full, skipping object", "name", o.Name)
			continue
		}
		d.Drivables().AddObject(h, drv)
	}
	index.Calc()
	return d, nil
}

func runQuery(d *collision.Director, q collision.Query, opts queryOptions) queryResult {
	kind := opts.kind()
	if opts.cached {
		scope := opts.scope
		if scope == 0 {
			scope = 2 * q.Radius
		}
		d.CheckCourseColNarrScLocal(scope, q.Pos, q.Mask)
	}

	var info collision.CollisionInfo
	var mask kcl.TypeMask
	hit := d.CheckFull(kind, q, &info, &mask)

	toResult := func(e collision.CollisionEntry) entryResult {
		return entryResult{
			Type:      kcl.AttributeType(e.Attribute).String(),
			Attribute: e.Attribute,
			Dist:      e.Dist,
		}
	}

	res := queryResult{
		Hit:             hit,
		Types:           lo.Map(mask.Types(), func(t kcl.Type, _ int) string { return t.String() }),
		FloorDist:       info.FloorDist,
		FloorNrm:        info.FloorNrm,
		WallDist:        info.WallDist,
		WallNrm:         info.WallNrm,
		MovingFloorDist: info.MovingFloorDist,
		RoadVelocity:    info.RoadVelocity,
		TangentOff:      info.TangentOff,
		Entries:         lo.Map(d.Entries(), func(e collision.CollisionEntry, _ int) entryResult { return toResult(e) }),
	}
	if d.FindClosestCollisionEntry(kcl.MaskAny) {
		closest := toResult(*d.ClosestCollisionEntry())
		res.Closest = &closest
	}
	return res
}

func (a *app) printQuery(res queryResult) {
	if !res.Hit {
		a.printf("no collision\n")
		return
	}
	a.printf("types: %v\n", res.Types)
	if res.FloorDist > 0 {
		a.printf("floor: depth %g normal %v\n", res.FloorDist, res.FloorNrm)
	}
	if res.WallDist > 0 {
		a.printf("wall:  depth %g normal %v\n", res.WallDist, res.WallNrm)
	}
	if res.MovingFloorDist > 0 {
		a.printf("moving floor: depth %g velocity %v\n", res.MovingFloorDist, res.RoadVelocity)
	}
	a.printf("tangent offset: %v\n", res.TangentOff)
	for _, e := range res.Entries {
		a.printf("  %-16s %#04x  %g\n", e.Type, e.Attribute, e.Dist)
	}
	if res.Closest != nil {
		a.printf("closest: %s at %g\n", res.Closest.Type, res.Closest.Dist)
	}
}
