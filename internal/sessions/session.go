package sessions

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/overlayctl/internal/appearance"
	"github.com/danmuck/overlayctl/internal/dispatch"
	"github.com/danmuck/overlayctl/internal/display"
	"github.com/danmuck/overlayctl/internal/overlay"
	"github.com/danmuck/overlayctl/internal/region"
	"github.com/danmuck/overlayctl/internal/shape"
	"github.com/danmuck/overlayctl/internal/world"
)

const (
	debugMarkSize      = 0.4
	debugLineThickness = 0.2
)

// Session is one connected client: its selector, the tool and mirror
// visualizers, and any debug marks it dropped.
type Session struct {
	env      display.Env
	client   dispatch.ClientID
	name     string
	openedAt time.Time

	mu       sync.Mutex
	world    world.Ref
	selector region.Selector
	tool     *overlay.Visualizer
	mirror   *overlay.Visualizer
	marks    []*display.Node
	links    []*shape.Line
	lastMark *world.Location
}

func newSession(env display.Env, client dispatch.ClientID, name string, w world.Ref, window uint32) *Session {
	return &Session{
		env:      env,
		client:   client,
		name:     name,
		openedAt: time.Now().UTC(),
		world:    w,
		tool:     overlay.New(env, client, overlay.ToolStyle(), window),
		mirror:   overlay.New(env, client, overlay.MirrorStyle(), window),
	}
}

func (s *Session) Client() dispatch.ClientID {
	return s.client
}

func (s *Session) World() world.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.world
}

// Selection returns the tool selection, if one is active.
func (s *Session) Selection() (region.Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.Current()
}

func (s *Session) viewer() []dispatch.ClientID {
	return []dispatch.ClientID{s.client}
}

func (s *Session) toolClick(c region.Click) region.Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.World.Valid() && c.World != s.world {
		s.resetLocked(c.World)
	}
	sel, change := s.selector.Apply(c)
	s.tool.Render(sel, change)
	log.Debug().
		Str("client", string(s.client)).
		Str("change", change.String()).
		Str("selection", sel.String()).
		Msg("sessions.ToolClick")
	return change
}

func (s *Session) changeWorld(w world.Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w == s.world {
		return
	}
	s.resetLocked(w)
	log.Info().Str("client", string(s.client)).Str("world", string(w)).Msg("sessions.ChangeWorld")
}

// resetLocked moves the session to w and drops everything bound to the old
// world.
func (s *Session) resetLocked(w world.Ref) {
	s.world = w
	s.selector.Clear()
	s.tool.Clear()
	s.mirror.Clear()
	s.clearMarksLocked()
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selector.Clear()
	s.tool.Clear()
	s.mirror.Clear()
	s.clearMarksLocked()
}

func (s *Session) debugMark(loc world.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loc.World != s.world {
		return fmt.Errorf("%w: %s", ErrWrongWorld, loc)
	}

	center := loc.GridCenter()
	mark := display.NewBuilder().
		At(center).
		Size(debugMarkSize).
		Appearance(appearance.LightBlueConcrete).
		Glow(0x020202).
		OnClick(func(ctx display.ClickContext) {
			ctx.Node.SetConfig(display.From(ctx.Node.Config()).Appearance(appearance.RedConcrete).Build())
			ctx.Node.Update(ctx.OnlyViewer())
		}).
		Node(s.env)
	mark.Spawn(s.viewer())
	s.marks = append(s.marks, mark)

	if s.lastMark != nil {
		link := shape.NewLine(s.env, s.lastMark.GridCenter(), center, shape.Style{
			Thickness:  debugLineThickness,
			Appearance: appearance.WhiteConcrete,
			Glow:       appearance.GlowColor(0xAA2288),
		})
		link.Spawn(s.viewer())
		s.links = append(s.links, link)
	}
	last := loc
	s.lastMark = &last
	return nil
}

func (s *Session) clearMarksLocked() {
	for _, m := range s.marks {
		m.Despawn(s.viewer())
	}
	for _, l := range s.links {
		l.Despawn(s.viewer())
	}
	s.marks = nil
	s.links = nil
	s.lastMark = nil
}

// renderMirror redraws the mirror from scratch. A selection read for a
// world the client already left is dropped.
func (s *Session) renderMirror(sel region.Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sel.World != s.world {
		return
	}
	s.mirror.Clear()
	s.mirror.Render(sel, region.ChangeSnap)
}

func (s *Session) clearMirror() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror.Clear()
}

// Info reports the session's current state.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{
		Client:       s.client,
		Name:         s.name,
		World:        s.world,
		OpenedAt:     s.openedAt,
		ToolActive:   s.tool.Active(),
		MirrorActive: s.mirror.Active(),
		DebugMarks:   len(s.marks),
	}
	if sel, ok := s.selector.Current(); ok {
		info.Selection = &sel
	}
	return info
}
