// Package shape composes display nodes into lines and wireframe cuboids.
package shape

import (
	"sync"

	"github.com/danmuck/overlayctl/internal/appearance"
	"github.com/danmuck/overlayctl/internal/dispatch"
	"github.com/danmuck/overlayctl/internal/display"
	"github.com/danmuck/overlayctl/internal/geometry"
)

// Style is shared by every edge of a shape.
type Style struct {
	Thickness  float64
	Appearance appearance.Tag
	Glow       appearance.Glow
}

// Group is an ordered set of nodes driven together.
type Group struct {
	env display.Env

	mu    sync.Mutex
	nodes []*display.Node
}

func NewGroup(env display.Env, nodes ...*display.Node) *Group {
	return &Group{env: env, nodes: nodes}
}

func (g *Group) Add(n *display.Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = append(g.nodes, n)
}

// Nodes returns a copy of the member list.
func (g *Group) Nodes() []*display.Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*display.Node(nil), g.nodes...)
}

func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

func (g *Group) Spawn(recipients []dispatch.ClientID) {
	for _, n := range g.Nodes() {
		n.Spawn(recipients)
	}
}

func (g *Group) Despawn(recipients []dispatch.ClientID) {
	for _, n := range g.Nodes() {
		n.Despawn(recipients)
	}
}

func (g *Group) Update(recipients []dispatch.ClientID) {
	for _, n := range g.Nodes() {
		n.Update(recipients)
	}
}

func (g *Group) UpdateState(recipients []dispatch.ClientID, window uint32) {
	for _, n := range g.Nodes() {
		n.UpdateState(recipients, window)
	}
}

func (g *Group) replace(nodes []*display.Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = nodes
}

// edgeConfig places one edge prism.
func edgeConfig(seg geometry.Segment, style Style) display.Config {
	cfg := display.DefaultConfig()
	cfg.Anchor = seg.Mid
	cfg.Scale = seg.Scale
	cfg.Rotation = seg.RotationDeg
	cfg.Appearance = style.Appearance
	cfg.Glow = style.Glow
	return cfg
}
