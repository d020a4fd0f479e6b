package region

import (
	"github.com/danmuck/overlayctl/internal/observability"
	"github.com/danmuck/overlayctl/internal/world"
)

// Change says how a click affected the selection.
type Change uint8

const (
	ChangeNone Change = iota
	// ChangeSnap means a fresh selection; render without interpolation.
	ChangeSnap
	// ChangeExtend means an existing selection grew.
	ChangeExtend
)

func (c Change) String() string {
	switch c {
	case ChangeSnap:
		return "snap"
	case ChangeExtend:
		return "extend"
	default:
		return "none"
	}
}

type Action uint8

const (
	ActionPrimary Action = iota + 1
	ActionSecondary
)

// Click is one selection-tool click on a cell face.
type Click struct {
	World   world.Ref
	Cell    world.Cell
	Face    world.Face
	Action  Action
	Include bool
}

// Selector is one client's selection state. It is not safe for concurrent
// use; the owning session serializes access.
type Selector struct {
	sel    Selection
	active bool
}

// Current returns the selection, if one is active.
func (s *Selector) Current() (Selection, bool) {
	return s.sel, s.active
}

// Apply runs one click. A primary click, or any click while nothing is
// selected or the selection lives in another world, starts a unit box on the
// cell adjacent to the clicked face. A secondary click in the same world
// extends the selection.
func (s *Selector) Apply(c Click) (Selection, Change) {
	if !c.World.Valid() {
		return s.sel, ChangeNone
	}
	if c.Action == ActionSecondary && s.active && s.sel.World == c.World {
		return s.extend(c.Cell, c.Include)
	}
	if !c.Face.Valid() {
		return s.sel, ChangeNone
	}
	s.sel = Selection{World: c.World, Box: Unit(c.Cell.Relative(c.Face))}
	s.active = true
	observability.RecordRegionChange(ChangeSnap.String())
	return s.sel, ChangeSnap
}

// Extend grows the active selection toward cell. It must only be called
// while a selection is active; otherwise it reports ChangeNone.
func (s *Selector) Extend(cell world.Cell, include bool) (Selection, Change) {
	if !s.active {
		return s.sel, ChangeNone
	}
	return s.extend(cell, include)
}

func (s *Selector) extend(cell world.Cell, include bool) (Selection, Change) {
	if s.sel.Box.Contains(cell) || !s.sel.Box.Extend(cell, include) {
		return s.sel, ChangeNone
	}
	observability.RecordRegionChange(ChangeExtend.String())
	return s.sel, ChangeExtend
}

// Clear drops the selection.
func (s *Selector) Clear() {
	s.sel = Selection{}
	s.active = false
}
