package shape

import (
	"fmt"
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/danmuck/overlayctl/internal/appearance"
	"github.com/danmuck/overlayctl/internal/dispatch"
	"github.com/danmuck/overlayctl/internal/display"
	"github.com/danmuck/overlayctl/internal/geometry"
	"github.com/danmuck/overlayctl/internal/hittest"
	"github.com/danmuck/overlayctl/internal/protocol/schema"
	"github.com/danmuck/overlayctl/internal/testutil/fakenet"
	"github.com/danmuck/overlayctl/internal/testutil/testlog"
	"github.com/danmuck/overlayctl/internal/world"
)

var (
	alice = []dispatch.ClientID{"alice"}
	style = Style{Thickness: 0.1, Appearance: appearance.WhiteConcrete, Glow: appearance.GlowColor(0x22CCDD)}
)

func newEnv(clients ...dispatch.ClientID) (display.Env, *fakenet.Network) {
	net := fakenet.New(clients...)
	return display.Env{
		Dispatcher: dispatch.New(net),
		Router:     hittest.NewRouter(),
		Catalog:    appearance.DefaultCatalog(),
	}, net
}

// edgeKeys renders midpoint+scale pairs rounded for set comparison.
func edgeKeys(segs []geometry.Segment) []string {
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		out = append(out, fmt.Sprintf("%.6f,%.6f,%.6f|%.6f,%.6f,%.6f",
			s.Mid.Pos[0], s.Mid.Pos[1], s.Mid.Pos[2], s.Scale[0], s.Scale[1], s.Scale[2]))
	}
	sort.Strings(out)
	return out
}

func TestCuboidEdgesIndependentOfCornerOrder(t *testing.T) {
	testlog.Start(t)
	a := world.At("overworld", 0, 0, 0)
	b := world.At("overworld", 5, 5, 5)
	fwd := CuboidEdges(a, b, 0.1)
	rev := CuboidEdges(b, a, 0.1)
	if len(fwd) != 12 || len(rev) != 12 {
		t.Fatalf("expected 12 edges, got %d and %d", len(fwd), len(rev))
	}
	fk, rk := edgeKeys(fwd), edgeKeys(rev)
	for i := range fk {
		if fk[i] != rk[i] {
			t.Fatalf("edge sets differ at %d: %s vs %s", i, fk[i], rk[i])
		}
	}

	mixed := CuboidEdges(world.At("overworld", 5, 0, 5), world.At("overworld", 0, 5, 0), 0.1)
	mk := edgeKeys(mixed)
	for i := range fk {
		if fk[i] != mk[i] {
			t.Fatalf("mixed corner order differs at %d", i)
		}
	}
}

func TestCuboidEdgesSpanTheBox(t *testing.T) {
	testlog.Start(t)
	segs := CuboidEdges(world.At("overworld", 0, 0, 0), world.At("overworld", 4, 2, 6), 0.2)
	first := segs[0]
	if !first.Mid.Pos.ApproxEqualThreshold(mgl64.Vec3{2, 0, 0}, 1e-9) {
		t.Fatalf("first X edge midpoint %v", first.Mid.Pos)
	}
	if !first.Scale.ApproxEqualThreshold(mgl64.Vec3{0.2, 0.2, 4}, 1e-9) {
		t.Fatalf("first X edge scale %v", first.Scale)
	}
	total := 0.0
	for _, s := range segs {
		total += s.Length
	}
	if total != 4*(4+2+6) {
		t.Fatalf("total edge length %f", total)
	}
}

func TestCuboidEdgesDropDegenerateEdges(t *testing.T) {
	testlog.Start(t)
	flat := CuboidEdges(world.At("overworld", 0, 0, 0), world.At("overworld", 2, 0, 2), 0.1)
	if len(flat) != 8 {
		t.Fatalf("flat box should have 8 edges, got %d", len(flat))
	}
	if n := len(CuboidEdges(world.At("overworld", 1, 1, 1), world.At("overworld", 1, 1, 1), 0.1)); n != 0 {
		t.Fatalf("point box should have no edges, got %d", n)
	}
	if n := len(CuboidEdges(world.At("overworld", 0, 0, 0), world.At("nether", 1, 1, 1), 0.1)); n != 0 {
		t.Fatalf("cross-world box should have no edges, got %d", n)
	}
}

func TestCuboidSpawnAndStateOnlyUpdate(t *testing.T) {
	testlog.Start(t)
	env, net := newEnv("alice")
	c := NewCuboid(env, world.At("overworld", 0, 0, 0), world.At("overworld", 1, 1, 1), style)
	c.Spawn(alice)

	live, err := net.Live("alice")
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	if len(fakenet.Displays(live)) != 12 {
		t.Fatalf("expected 12 edges live, got %d", len(fakenet.Displays(live)))
	}
	for _, e := range live {
		if e.State.Appearance != string(appearance.WhiteConcrete) || e.State.GlowColor != 0x22CCDD {
			t.Fatalf("edge style not applied: %+v", e.State)
		}
	}

	ids := make(map[dispatch.EntityID]bool)
	for _, n := range c.Nodes() {
		ids[n.DisplayID()] = true
	}
	net.Reset()
	c.Update(world.At("overworld", 3, 1, 1), world.At("overworld", 0, 0, 0), alice, 10)
	if net.Count("alice", schema.MsgDisplaySpawn) != 0 || net.Count("alice", schema.MsgDisplayRemove) != 0 {
		t.Fatalf("same-size update must be state-only")
	}
	if net.Count("alice", schema.MsgDisplayState) != 12 {
		t.Fatalf("expected 12 state frames, got %d", net.Count("alice", schema.MsgDisplayState))
	}
	for _, n := range c.Nodes() {
		if !ids[n.DisplayID()] {
			t.Fatalf("state-only update changed ids")
		}
	}
	lo, hi := c.Corners()
	if lo.Pos != (mgl64.Vec3{0, 0, 0}) || hi.Pos != (mgl64.Vec3{3, 1, 1}) {
		t.Fatalf("unexpected corners %v %v", lo, hi)
	}
}

func TestCuboidRebuildsWhenEdgeCountChanges(t *testing.T) {
	testlog.Start(t)
	env, net := newEnv("alice")
	c := NewCuboid(env, world.At("overworld", 0, 0, 0), world.At("overworld", 1, 1, 1), style)
	c.Spawn(alice)
	c.Update(world.At("overworld", 0, 0, 0), world.At("overworld", 2, 0, 2), alice, 10)
	if c.Len() != 8 {
		t.Fatalf("expected 8 edges after rebuild, got %d", c.Len())
	}
	live, _ := net.Live("alice")
	if len(live) != 8 {
		t.Fatalf("expected 8 live entities, got %d", len(live))
	}
	c.Despawn(alice)
	live, _ = net.Live("alice")
	if len(live) != 0 {
		t.Fatalf("expected nothing live after despawn, got %d", len(live))
	}
}

func TestLineSingleEdge(t *testing.T) {
	testlog.Start(t)
	env, net := newEnv("alice")
	l := NewLine(env, world.At("overworld", 0, 0, 0), world.At("overworld", 0, 3, 4), Style{Thickness: 0.2, Appearance: appearance.WhiteConcrete})
	if l.Len() != 1 {
		t.Fatalf("expected 1 edge, got %d", l.Len())
	}
	l.Spawn(alice)
	live, _ := net.Live("alice")
	for _, e := range live {
		if e.State.Scale != [3]float64{0.2, 0.2, 5} {
			t.Fatalf("unexpected line scale %v", e.State.Scale)
		}
		if e.State.Position != [3]float64{0, 1.5, 2} {
			t.Fatalf("unexpected line midpoint %v", e.State.Position)
		}
	}
	if NewLine(env, world.At("overworld", 1, 1, 1), world.At("overworld", 1, 1, 1), style).Len() != 0 {
		t.Fatalf("coincident endpoints yield an empty line")
	}
}
