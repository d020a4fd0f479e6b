package display

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/danmuck/overlayctl/internal/appearance"
	"github.com/danmuck/overlayctl/internal/geometry"
	"github.com/danmuck/overlayctl/internal/world"
)

var (
	ErrNoAnchor = errors.New("display: anchor not set")
	ErrNotSolid = errors.New("display: appearance is not a solid shape")
	ErrBadScale = errors.New("display: scale must be positive")
)

// ClickHandler runs on the acting client's goroutine, outside any node lock.
type ClickHandler func(ClickContext)

// Config is a value; nodes copy it and never share it.
type Config struct {
	Anchor     world.Location
	Scale      mgl64.Vec3
	Rotation   mgl64.Vec3 // Euler degrees: pitch X, yaw Y, roll Z
	Appearance appearance.Tag
	Glow       appearance.Glow
	OnClick    ClickHandler
	// OnHover is accepted and keeps the hit-test entity alive but is never
	// invoked; clients do not report hover.
	OnHover ClickHandler
}

func DefaultConfig() Config {
	return Config{Scale: mgl64.Vec3{1, 1, 1}}
}

// Interactive reports whether a hit-test entity should accompany the display.
func (c Config) Interactive() bool {
	return c.OnClick != nil || c.OnHover != nil
}

// Transform centers the scaled, rotated unit cube on the anchor.
func (c Config) Transform() geometry.Transform {
	return geometry.CenteredTransform(c.Scale, c.Rotation)
}

// Validate reports why the config cannot be spawned, if it cannot.
func (c Config) Validate(cat *appearance.Catalog) error {
	if !c.Anchor.Valid() {
		return ErrNoAnchor
	}
	if c.Scale[0] <= 0 || c.Scale[1] <= 0 || c.Scale[2] <= 0 {
		return fmt.Errorf("%w: %v", ErrBadScale, c.Scale)
	}
	if !cat.Solid(c.Appearance) {
		return fmt.Errorf("%w: %q", ErrNotSolid, c.Appearance)
	}
	return nil
}

// Builder assembles a Config fluently.
type Builder struct {
	cfg Config
}

func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// From starts a builder from an existing config.
func From(c Config) *Builder {
	return &Builder{cfg: c}
}

func (b *Builder) At(loc world.Location) *Builder {
	b.cfg.Anchor = loc
	return b
}

// Scale ignores non-positive components.
func (b *Builder) Scale(x, y, z float64) *Builder {
	if x > 0 && y > 0 && z > 0 {
		b.cfg.Scale = mgl64.Vec3{x, y, z}
	}
	return b
}

// Size sets a uniform scale.
func (b *Builder) Size(s float64) *Builder {
	return b.Scale(s, s, s)
}

func (b *Builder) Rotation(pitch, yaw, roll float64) *Builder {
	b.cfg.Rotation = mgl64.Vec3{pitch, yaw, roll}
	return b
}

func (b *Builder) Appearance(tag appearance.Tag) *Builder {
	b.cfg.Appearance = tag
	return b
}

func (b *Builder) Glow(rgb uint32) *Builder {
	b.cfg.Glow = appearance.GlowColor(rgb)
	return b
}

func (b *Builder) GlowOff() *Builder {
	b.cfg.Glow = appearance.Glow{}
	return b
}

func (b *Builder) OnClick(h ClickHandler) *Builder {
	b.cfg.OnClick = h
	return b
}

func (b *Builder) OnHover(h ClickHandler) *Builder {
	b.cfg.OnHover = h
	return b
}

func (b *Builder) Build() Config {
	return b.cfg
}

// Node builds the config and wraps it in an unspawned node.
func (b *Builder) Node(env Env) *Node {
	return NewNode(env, b.cfg)
}
