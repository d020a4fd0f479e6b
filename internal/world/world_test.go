package world

import (
	"errors"
	"testing"

	"github.com/danmuck/overlayctl/internal/testutil/testlog"
)

func TestCellRelativeStepsThroughFace(t *testing.T) {
	testlog.Start(t)

	base := Cell{X: 2, Y: 3, Z: 4}
	cases := []struct {
		face Face
		want Cell
	}{
		{FaceUp, Cell{2, 4, 4}},
		{FaceDown, Cell{2, 2, 4}},
		{FaceEast, Cell{3, 3, 4}},
		{FaceWest, Cell{1, 3, 4}},
		{FaceSouth, Cell{2, 3, 5}},
		{FaceNorth, Cell{2, 3, 3}},
		{FaceNone, Cell{2, 3, 4}},
	}
	for _, tc := range cases {
		if got := base.Relative(tc.face); got != tc.want {
			t.Fatalf("relative %s: got %+v want %+v", tc.face, got, tc.want)
		}
	}
}

func TestParseFaceAcceptsNamesAndAxes(t *testing.T) {
	testlog.Start(t)

	for raw, want := range map[string]Face{"+Y": FaceUp, "up": FaceUp, " -x ": FaceWest, "SOUTH": FaceSouth} {
		got, err := ParseFace(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %s want %s", raw, got, want)
		}
	}
	if _, err := ParseFace("sideways"); !errors.Is(err, ErrInvalidFace) {
		t.Fatalf("expected ErrInvalidFace, got %v", err)
	}
}

func TestGridCenterSnapsToCellCenter(t *testing.T) {
	testlog.Start(t)

	got := At("overworld", 1.9, -0.2, 7.0).GridCenter()
	want := At("overworld", 1.5, -0.5, 7.5)
	if got != want {
		t.Fatalf("grid center: got %s want %s", got, want)
	}
}

func TestResolverResolvesKnownWorldsOnly(t *testing.T) {
	testlog.Start(t)

	r := NewResolver("overworld", " nether ", "")
	ref, err := r.Resolve("nether")
	if err != nil {
		t.Fatalf("resolve nether: %v", err)
	}
	if ref != Ref("nether") {
		t.Fatalf("unexpected ref %q", ref)
	}
	if _, err := r.Resolve("end"); !errors.Is(err, ErrUnknownWorld) {
		t.Fatalf("expected ErrUnknownWorld, got %v", err)
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "nether" || names[1] != "overworld" {
		t.Fatalf("unexpected names: %+v", names)
	}
}
