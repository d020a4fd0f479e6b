package shape

import (
	"github.com/danmuck/overlayctl/internal/display"
	"github.com/danmuck/overlayctl/internal/geometry"
	"github.com/danmuck/overlayctl/internal/world"
)

// Line is a single edge between two points. Coincident points or points in
// different worlds yield an empty line.
type Line struct {
	*Group
}

func NewLine(env display.Env, start, end world.Location, style Style) *Line {
	g := NewGroup(env)
	if seg, ok := geometry.SegmentTransform(start, end, style.Thickness); ok {
		g.Add(display.NewNode(env, edgeConfig(seg, style)))
	}
	return &Line{Group: g}
}
