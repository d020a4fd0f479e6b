// Package overlay renders a region selection for its owner as a wireframe
// cuboid plus eight corner markers.
package overlay

import (
	"github.com/danmuck/overlayctl/internal/appearance"
	"github.com/danmuck/overlayctl/internal/dispatch"
	"github.com/danmuck/overlayctl/internal/display"
	"github.com/danmuck/overlayctl/internal/region"
	"github.com/danmuck/overlayctl/internal/shape"
	"github.com/danmuck/overlayctl/internal/world"
)

// DefaultInterpolation is the extend animation length in ticks.
const DefaultInterpolation uint32 = 10

// Marker styles one corner marker.
type Marker struct {
	Appearance appearance.Tag
	Glow       appearance.Glow
}

// Style covers the cuboid edges and the corner markers. MinCorner and
// MaxCorner style the two opposite corners; the other six use Corner.
type Style struct {
	Edge       shape.Style
	MarkerSize float64
	MinCorner  Marker
	MaxCorner  Marker
	Corner     Marker
}

// ToolStyle is used for the selection tool.
func ToolStyle() Style {
	return Style{
		Edge: shape.Style{
			Thickness:  0.10,
			Appearance: appearance.WhiteConcrete,
			Glow:       appearance.GlowColor(0xAA11EE),
		},
		MarkerSize: 0.20,
		MinCorner:  Marker{Appearance: appearance.EmeraldBlock, Glow: appearance.GlowColor(appearance.ColorLime)},
		MaxCorner:  Marker{Appearance: appearance.RedstoneBlock, Glow: appearance.GlowColor(appearance.ColorRed)},
		Corner:     Marker{Appearance: appearance.CoalBlock, Glow: appearance.GlowColor(appearance.ColorBlack)},
	}
}

// MirrorStyle is used for selections read from the external source.
func MirrorStyle() Style {
	s := ToolStyle()
	s.Edge.Glow = appearance.GlowColor(0x22CCDD)
	s.Corner = Marker{Appearance: appearance.BlackConcrete, Glow: appearance.GlowColor(appearance.ColorBlack)}
	return s
}

// Visualizer draws one selection for one client. It is not safe for
// concurrent use.
type Visualizer struct {
	env    display.Env
	owner  []dispatch.ClientID
	style  Style
	window uint32

	world   world.Ref
	cube    *shape.Cuboid
	markers []*display.Node
}

// New returns an empty visualizer. window is the interpolation used for
// extensions; zero means DefaultInterpolation.
func New(env display.Env, owner dispatch.ClientID, style Style, window uint32) *Visualizer {
	if window == 0 {
		window = DefaultInterpolation
	}
	return &Visualizer{
		env:    env,
		owner:  []dispatch.ClientID{owner},
		style:  style,
		window: window,
	}
}

func (v *Visualizer) Active() bool {
	return v.cube != nil
}

// Markers returns the corner markers in c000, c100, c010, c110, c001, c101,
// c011, c111 order.
func (v *Visualizer) Markers() []*display.Node {
	return append([]*display.Node(nil), v.markers...)
}

func (v *Visualizer) Cube() *shape.Cuboid {
	return v.cube
}

// Render shows sel. The first render (or one in another world) builds and
// spawns everything; later renders move the existing pieces, animated over
// the configured window for extensions and snapped otherwise.
func (v *Visualizer) Render(sel region.Selection, change region.Change) {
	if change == region.ChangeNone {
		return
	}
	if v.cube != nil && v.world != sel.World {
		v.Clear()
	}

	var window uint32
	if change == region.ChangeExtend {
		window = v.window
	}

	from, to := bounds(sel)
	corners := Corners(from, to)

	if v.cube == nil {
		v.world = sel.World
		v.cube = shape.NewCuboid(v.env, from, to, v.style.Edge)
		v.cube.Spawn(v.owner)
	} else {
		v.cube.Update(from, to, v.owner, window)
	}

	if len(v.markers) != len(corners) {
		for _, m := range v.markers {
			m.Despawn(v.owner)
		}
		v.markers = v.markers[:0]
		for i, loc := range corners {
			m := display.NewNode(v.env, v.markerConfig(i, loc))
			m.Spawn(v.owner)
			v.markers = append(v.markers, m)
		}
		return
	}
	for i, m := range v.markers {
		loc := corners[i]
		m.Configure(func(c *display.Config) { c.Anchor = loc })
		m.UpdateState(v.owner, window)
	}
}

// Clear despawns every piece and forgets them.
func (v *Visualizer) Clear() {
	if v.cube != nil {
		v.cube.Despawn(v.owner)
	}
	for _, m := range v.markers {
		m.Despawn(v.owner)
	}
	v.cube = nil
	v.markers = nil
	v.world = ""
}

func (v *Visualizer) markerConfig(i int, loc world.Location) display.Config {
	mk := v.style.Corner
	switch i {
	case 0:
		mk = v.style.MinCorner
	case 7:
		mk = v.style.MaxCorner
	}
	b := display.NewBuilder().
		At(loc).
		Size(v.style.MarkerSize).
		Appearance(mk.Appearance)
	if mk.Glow.On {
		b.Glow(mk.Glow.Color)
	}
	return b.Build()
}

// bounds maps cell bounds to block edges: max+1 covers the whole last cell.
func bounds(sel region.Selection) (world.Location, world.Location) {
	from := sel.Min.Location(sel.World)
	to := world.Cell{X: sel.Max.X + 1, Y: sel.Max.Y + 1, Z: sel.Max.Z + 1}.Location(sel.World)
	return from, to
}

// Corners lists the eight corners of the box spanned by from and to, min
// corner first and max corner last.
func Corners(from, to world.Location) []world.Location {
	w := from.World
	x0, y0, z0 := from.Pos[0], from.Pos[1], from.Pos[2]
	x1, y1, z1 := to.Pos[0], to.Pos[1], to.Pos[2]
	return []world.Location{
		world.At(w, x0, y0, z0),
		world.At(w, x1, y0, z0),
		world.At(w, x0, y1, z0),
		world.At(w, x1, y1, z0),
		world.At(w, x0, y0, z1),
		world.At(w, x1, y0, z1),
		world.At(w, x0, y1, z1),
		world.At(w, x1, y1, z1),
	}
}
