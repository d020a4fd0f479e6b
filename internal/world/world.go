package world

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrUnknownWorld = errors.New("world: unknown world")
	ErrInvalidFace  = errors.New("world: invalid face")
)

// Ref names one world container. Two refs are the same world iff equal.
type Ref string

func (r Ref) Valid() bool {
	return strings.TrimSpace(string(r)) != ""
}

// Location is a world-space point bound to one world container.
type Location struct {
	World Ref
	Pos   mgl64.Vec3
}

func At(w Ref, x, y, z float64) Location {
	return Location{World: w, Pos: mgl64.Vec3{x, y, z}}
}

func (l Location) Valid() bool {
	return l.World.Valid()
}

func (l Location) SameWorld(o Location) bool {
	return l.World == o.World
}

// GridCenter snaps the location to the center of the cell containing it.
func (l Location) GridCenter() Location {
	return Location{
		World: l.World,
		Pos: mgl64.Vec3{
			math.Floor(l.Pos[0]) + 0.5,
			math.Floor(l.Pos[1]) + 0.5,
			math.Floor(l.Pos[2]) + 0.5,
		},
	}
}

func (l Location) String() string {
	return fmt.Sprintf("%s(%.3f, %.3f, %.3f)", l.World, l.Pos[0], l.Pos[1], l.Pos[2])
}

// Cell is one integer grid cell.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (c Cell) Relative(f Face) Cell {
	d := f.Offset()
	return Cell{X: c.X + d.X, Y: c.Y + d.Y, Z: c.Z + d.Z}
}

// Location returns the cell's minimum corner in world space.
func (c Cell) Location(w Ref) Location {
	return At(w, float64(c.X), float64(c.Y), float64(c.Z))
}

// Face is one of the six axis-aligned cell faces.
type Face uint8

const (
	FaceNone Face = iota
	FaceDown
	FaceUp
	FaceNorth
	FaceSouth
	FaceWest
	FaceEast
)

var faceNames = map[Face]string{
	FaceDown:  "down",
	FaceUp:    "up",
	FaceNorth: "north",
	FaceSouth: "south",
	FaceWest:  "west",
	FaceEast:  "east",
}

var faceAliases = map[string]Face{
	"down":  FaceDown,
	"-y":    FaceDown,
	"up":    FaceUp,
	"+y":    FaceUp,
	"north": FaceNorth,
	"-z":    FaceNorth,
	"south": FaceSouth,
	"+z":    FaceSouth,
	"west":  FaceWest,
	"-x":    FaceWest,
	"east":  FaceEast,
	"+x":    FaceEast,
}

func ParseFace(raw string) (Face, error) {
	f, ok := faceAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return FaceNone, fmt.Errorf("%w: %q", ErrInvalidFace, raw)
	}
	return f, nil
}

func (f Face) Valid() bool {
	_, ok := faceNames[f]
	return ok
}

func (f Face) String() string {
	if name, ok := faceNames[f]; ok {
		return name
	}
	return "none"
}

// Offset is the unit step out of a cell through this face.
func (f Face) Offset() Cell {
	switch f {
	case FaceDown:
		return Cell{Y: -1}
	case FaceUp:
		return Cell{Y: 1}
	case FaceNorth:
		return Cell{Z: -1}
	case FaceSouth:
		return Cell{Z: 1}
	case FaceWest:
		return Cell{X: -1}
	case FaceEast:
		return Cell{X: 1}
	default:
		return Cell{}
	}
}

// Resolver maps world names to refs for the worlds this process knows.
type Resolver struct {
	mu     sync.RWMutex
	worlds map[string]Ref
}

func NewResolver(names ...string) *Resolver {
	r := &Resolver{worlds: make(map[string]Ref)}
	for _, name := range names {
		r.Add(name)
	}
	return r
}

func (r *Resolver) Add(name string) {
	key := strings.TrimSpace(name)
	if key == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.worlds[key] = Ref(key)
}

func (r *Resolver) Resolve(name string) (Ref, error) {
	key := strings.TrimSpace(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.worlds[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownWorld, name)
	}
	return ref, nil
}

func (r *Resolver) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.worlds))
	for name := range r.worlds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
