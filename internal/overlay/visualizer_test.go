package overlay

import (
	"testing"

	"github.com/danmuck/overlayctl/internal/appearance"
	"github.com/danmuck/overlayctl/internal/dispatch"
	"github.com/danmuck/overlayctl/internal/display"
	"github.com/danmuck/overlayctl/internal/hittest"
	"github.com/danmuck/overlayctl/internal/protocol/schema"
	"github.com/danmuck/overlayctl/internal/protocol/session"
	"github.com/danmuck/overlayctl/internal/region"
	"github.com/danmuck/overlayctl/internal/testutil/fakenet"
	"github.com/danmuck/overlayctl/internal/testutil/testlog"
	"github.com/danmuck/overlayctl/internal/world"
)

func newEnv(clients ...dispatch.ClientID) (display.Env, *fakenet.Network) {
	net := fakenet.New(clients...)
	return display.Env{
		Dispatcher: dispatch.New(net),
		Router:     hittest.NewRouter(),
		Catalog:    appearance.DefaultCatalog(),
	}, net
}

func unitSelection(w world.Ref, x, y, z int) region.Selection {
	return region.Selection{World: w, Box: region.Unit(world.Cell{X: x, Y: y, Z: z})}
}

func stateFrames(t *testing.T, net *fakenet.Network, c dispatch.ClientID) []session.DisplayState {
	t.Helper()
	var out []session.DisplayState
	for _, b := range net.Sent(c) {
		f, err := session.ParseFrame(b)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if f.Header.MessageType != schema.MsgDisplayState {
			continue
		}
		st, err := session.DecodeStateFrame(f)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		out = append(out, st)
	}
	return out
}

func TestFirstRenderSpawnsCuboidAndMarkersForOwnerOnly(t *testing.T) {
	testlog.Start(t)
	env, net := newEnv("alice", "bob")
	v := New(env, "alice", ToolStyle(), 0)
	v.Render(unitSelection("overworld", 2, 4, 4), region.ChangeSnap)

	if !v.Active() || v.Cube().Len() != 12 || len(v.Markers()) != 8 {
		t.Fatalf("expected 1 cuboid of 12 edges + 8 markers")
	}
	live, err := net.Live("alice")
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	if len(live) != 20 {
		t.Fatalf("expected 20 live entities, got %d", len(live))
	}
	if len(net.Sent("bob")) != 0 {
		t.Fatalf("bob must see nothing")
	}

	lo, hi := v.Cube().Corners()
	if lo.Pos != world.At("overworld", 2, 4, 4).Pos || hi.Pos != world.At("overworld", 3, 5, 5).Pos {
		t.Fatalf("cuboid must span the whole cell: %v %v", lo, hi)
	}

	markers := v.Markers()
	first, last := markers[0].Config(), markers[7].Config()
	if first.Appearance != appearance.EmeraldBlock || first.Glow.Color != appearance.ColorLime {
		t.Fatalf("min corner style: %+v", first)
	}
	if last.Appearance != appearance.RedstoneBlock || last.Glow.Color != appearance.ColorRed {
		t.Fatalf("max corner style: %+v", last)
	}
	if first.Anchor.Pos != lo.Pos || last.Anchor.Pos != hi.Pos {
		t.Fatalf("distinguished markers must sit on min/max corners")
	}
	for _, m := range markers[1:7] {
		if m.Config().Appearance != appearance.CoalBlock {
			t.Fatalf("uniform corner style expected, got %s", m.Config().Appearance)
		}
	}
	for _, st := range stateFrames(t, net, "alice") {
		if st.Interpolation != 0 {
			t.Fatalf("first render must not interpolate")
		}
	}
}

func TestExtendRenderInterpolatesInPlace(t *testing.T) {
	testlog.Start(t)
	env, net := newEnv("alice")
	v := New(env, "alice", ToolStyle(), 0)
	sel := unitSelection("overworld", 0, 0, 0)
	v.Render(sel, region.ChangeSnap)
	net.Reset()

	sel.Box.Extend(world.Cell{X: 3}, true)
	v.Render(sel, region.ChangeExtend)
	if net.Count("alice", schema.MsgDisplaySpawn) != 0 || net.Count("alice", schema.MsgDisplayRemove) != 0 {
		t.Fatalf("extension must update in place")
	}
	states := stateFrames(t, net, "alice")
	if len(states) != 20 {
		t.Fatalf("expected 20 state frames, got %d", len(states))
	}
	for _, st := range states {
		if st.Interpolation != DefaultInterpolation {
			t.Fatalf("extension must interpolate over %d ticks, got %d", DefaultInterpolation, st.Interpolation)
		}
	}
	if v.Markers()[7].Config().Anchor.Pos != world.At("overworld", 4, 1, 1).Pos {
		t.Fatalf("max marker not moved: %v", v.Markers()[7].Config().Anchor)
	}

	net.Reset()
	v.Render(unitSelection("overworld", 9, 9, 9), region.ChangeSnap)
	for _, st := range stateFrames(t, net, "alice") {
		if st.Interpolation != 0 {
			t.Fatalf("snap must not interpolate")
		}
	}
}

func TestRenderNoneSendsNothing(t *testing.T) {
	testlog.Start(t)
	env, net := newEnv("alice")
	v := New(env, "alice", ToolStyle(), 0)
	v.Render(unitSelection("overworld", 0, 0, 0), region.ChangeNone)
	if v.Active() || len(net.Sent("alice")) != 0 {
		t.Fatalf("ChangeNone must be ignored")
	}
}

func TestRenderInAnotherWorldRebuilds(t *testing.T) {
	testlog.Start(t)
	env, net := newEnv("alice")
	v := New(env, "alice", MirrorStyle(), 5)
	v.Render(unitSelection("overworld", 0, 0, 0), region.ChangeSnap)
	net.Reset()
	v.Render(unitSelection("nether", 0, 0, 0), region.ChangeSnap)
	if net.Count("alice", schema.MsgDisplayRemove) != 20 || net.Count("alice", schema.MsgDisplaySpawn) != 20 {
		t.Fatalf("world switch must rebuild: removes=%d spawns=%d",
			net.Count("alice", schema.MsgDisplayRemove), net.Count("alice", schema.MsgDisplaySpawn))
	}
	lo, _ := v.Cube().Corners()
	if lo.World != "nether" {
		t.Fatalf("cuboid should live in nether, got %s", lo.World)
	}
}

func TestClearDespawnsEverything(t *testing.T) {
	testlog.Start(t)
	env, net := newEnv("alice")
	v := New(env, "alice", ToolStyle(), 0)
	v.Render(unitSelection("overworld", 0, 0, 0), region.ChangeSnap)
	v.Clear()
	if v.Active() || len(v.Markers()) != 0 {
		t.Fatalf("clear must forget all pieces")
	}
	live, _ := net.Live("alice")
	if len(live) != 0 {
		t.Fatalf("expected nothing live, got %d", len(live))
	}
	v.Clear()
}

func TestMirrorStyleDiffersOnlyInEdgesAndCorners(t *testing.T) {
	testlog.Start(t)
	tool, mirror := ToolStyle(), MirrorStyle()
	if mirror.Edge.Glow.Color != 0x22CCDD || tool.Edge.Glow.Color != 0xAA11EE {
		t.Fatalf("unexpected edge glows")
	}
	if mirror.Corner.Appearance != appearance.BlackConcrete || mirror.MinCorner != tool.MinCorner {
		t.Fatalf("unexpected mirror markers: %+v", mirror)
	}
}
