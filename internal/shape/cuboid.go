package shape

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/danmuck/overlayctl/internal/dispatch"
	"github.com/danmuck/overlayctl/internal/display"
	"github.com/danmuck/overlayctl/internal/geometry"
	"github.com/danmuck/overlayctl/internal/world"
)

// Cuboid is the 12-edge wireframe of an axis-aligned box.
type Cuboid struct {
	*Group
	style Style
	min   world.Location
	max   world.Location
}

// NewCuboid accepts the corners in either order.
func NewCuboid(env display.Env, from, to world.Location, style Style) *Cuboid {
	c := &Cuboid{Group: NewGroup(env), style: style}
	c.min, c.max = normalize(from, to)
	for _, seg := range CuboidEdges(from, to, style.Thickness) {
		c.Add(display.NewNode(env, edgeConfig(seg, style)))
	}
	return c
}

// Corners returns the normalized minimum and maximum corners.
func (c *Cuboid) Corners() (world.Location, world.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.min, c.max
}

// Update moves the cuboid to new corners. With an unchanged edge count the
// existing nodes are repositioned and sent state-only with window; otherwise
// the cuboid is despawned, rebuilt and spawned.
func (c *Cuboid) Update(from, to world.Location, recipients []dispatch.ClientID, window uint32) {
	segs := CuboidEdges(from, to, c.style.Thickness)
	nodes := c.Nodes()

	c.mu.Lock()
	c.min, c.max = normalize(from, to)
	c.mu.Unlock()

	if len(segs) == len(nodes) {
		for i, n := range nodes {
			seg := segs[i]
			n.Configure(func(cfg *display.Config) {
				cfg.Anchor = seg.Mid
				cfg.Scale = seg.Scale
				cfg.Rotation = seg.RotationDeg
			})
			n.UpdateState(recipients, window)
		}
		return
	}

	c.Despawn(recipients)
	rebuilt := make([]*display.Node, 0, len(segs))
	for _, seg := range segs {
		rebuilt = append(rebuilt, display.NewNode(c.env, edgeConfig(seg, c.style)))
	}
	c.replace(rebuilt)
	c.Spawn(recipients)
}

// CuboidEdges returns the non-degenerate edges of the box spanned by a and b:
// four along X, then four along Y, then four along Z.
func CuboidEdges(a, b world.Location, thickness float64) []geometry.Segment {
	if !a.SameWorld(b) {
		return nil
	}
	lo, hi := normalize(a, b)
	w := lo.World
	xs := [2]float64{lo.Pos[0], hi.Pos[0]}
	ys := [2]float64{lo.Pos[1], hi.Pos[1]}
	zs := [2]float64{lo.Pos[2], hi.Pos[2]}

	pairs := make([][2]mgl64.Vec3, 0, 12)
	for _, y := range ys {
		for _, z := range zs {
			pairs = append(pairs, [2]mgl64.Vec3{{xs[0], y, z}, {xs[1], y, z}})
		}
	}
	for _, x := range xs {
		for _, z := range zs {
			pairs = append(pairs, [2]mgl64.Vec3{{x, ys[0], z}, {x, ys[1], z}})
		}
	}
	for _, x := range xs {
		for _, y := range ys {
			pairs = append(pairs, [2]mgl64.Vec3{{x, y, zs[0]}, {x, y, zs[1]}})
		}
	}

	out := make([]geometry.Segment, 0, len(pairs))
	for _, p := range pairs {
		seg, ok := geometry.SegmentTransform(
			world.Location{World: w, Pos: p[0]},
			world.Location{World: w, Pos: p[1]},
			thickness,
		)
		if ok {
			out = append(out, seg)
		}
	}
	return out
}

func normalize(a, b world.Location) (world.Location, world.Location) {
	lo := world.Location{World: a.World}
	hi := world.Location{World: a.World}
	for i := 0; i < 3; i++ {
		lo.Pos[i] = math.Min(a.Pos[i], b.Pos[i])
		hi.Pos[i] = math.Max(a.Pos[i], b.Pos[i])
	}
	return lo, hi
}
