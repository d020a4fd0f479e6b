// Package region holds the click-driven integer box selector.
package region

import (
	"fmt"

	"github.com/danmuck/overlayctl/internal/world"
)

// Box is an inclusive integer box. Min <= Max on every axis.
type Box struct {
	Min world.Cell `json:"min"`
	Max world.Cell `json:"max"`
}

// Unit is the one-cell box at c.
func Unit(c world.Cell) Box {
	return Box{Min: c, Max: c}
}

// Span builds a box from two corners in any order.
func Span(a, b world.Cell) Box {
	return Box{
		Min: world.Cell{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)},
		Max: world.Cell{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)},
	}
}

func (b Box) Contains(c world.Cell) bool {
	return c.X >= b.Min.X && c.X <= b.Max.X &&
		c.Y >= b.Min.Y && c.Y <= b.Max.Y &&
		c.Z >= b.Min.Z && c.Z <= b.Max.Z
}

// Volume counts the cells inside the box.
func (b Box) Volume() int {
	return (b.Max.X - b.Min.X + 1) * (b.Max.Y - b.Min.Y + 1) * (b.Max.Z - b.Min.Z + 1)
}

func (b Box) String() string {
	return fmt.Sprintf("[(%d,%d,%d)..(%d,%d,%d)]", b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}

// Extend grows the box toward c along the single axis side where c lies
// farthest outside. Ties go to the first of X-, X+, Y-, Y+, Z-, Z+. With
// include the bound moves onto c, otherwise it stops one cell short. A bound
// only ever moves outward. Extend reports whether any bound changed.
func (b *Box) Extend(c world.Cell, include bool) bool {
	old := *b

	dists := [6]int{
		b.Min.X - c.X,
		c.X - b.Max.X,
		b.Min.Y - c.Y,
		c.Y - b.Max.Y,
		b.Min.Z - c.Z,
		c.Z - b.Max.Z,
	}
	best, side := 0, -1
	for i, d := range dists {
		if d > best {
			best, side = d, i
		}
	}
	if side < 0 {
		return false
	}

	step := 1
	if include {
		step = 0
	}
	switch side {
	case 0:
		if v := c.X + step; v <= b.Min.X {
			b.Min.X = v
		}
	case 1:
		if v := c.X - step; v >= b.Max.X {
			b.Max.X = v
		}
	case 2:
		if v := c.Y + step; v <= b.Min.Y {
			b.Min.Y = v
		}
	case 3:
		if v := c.Y - step; v >= b.Max.Y {
			b.Max.Y = v
		}
	case 4:
		if v := c.Z + step; v <= b.Min.Z {
			b.Min.Z = v
		}
	case 5:
		if v := c.Z - step; v >= b.Max.Z {
			b.Max.Z = v
		}
	}
	return *b != old
}

// Selection is a box bound to one world.
type Selection struct {
	World world.Ref `json:"world"`
	Box
}

func (s Selection) String() string {
	return fmt.Sprintf("%s%s", s.World, s.Box)
}
