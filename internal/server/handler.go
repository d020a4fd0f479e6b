package server

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/overlayctl/internal/dispatch"
	"github.com/danmuck/overlayctl/internal/protocol/session"
	"github.com/danmuck/overlayctl/internal/region"
	"github.com/danmuck/overlayctl/internal/transport"
	"github.com/danmuck/overlayctl/internal/world"
)

const refreshTimeout = 2 * time.Second

var _ transport.Handler = (*Service)(nil)

func (s *Service) Connected(client dispatch.ClientID, hello session.Hello) error {
	if err := s.auth.Validate(hello.Token); err != nil {
		return err
	}
	w, err := s.worlds.Resolve(hello.World)
	if err != nil {
		return err
	}
	s.sessions.Open(client, hello.Name, w)
	return nil
}

func (s *Service) Disconnected(client dispatch.ClientID) {
	s.sessions.Close(client)
}

// Interact routes a click on a hit-test entity to its display node.
func (s *Service) Interact(client dispatch.ClientID, m session.Interact) {
	if !s.router.Dispatch(dispatch.EntityID(m.EntityID), client) {
		log.Debug().Str("client", string(client)).Uint32("entity", m.EntityID).Msg("server.Interact stale entity")
	}
}

func (s *Service) ToolClick(client dispatch.ClientID, m session.ToolClick) error {
	click, err := s.toolClick(m)
	if err != nil {
		return err
	}
	_, err = s.sessions.ToolClick(client, click)
	return err
}

func (s *Service) toolClick(m session.ToolClick) (region.Click, error) {
	w, err := s.worlds.Resolve(m.World)
	if err != nil {
		return region.Click{}, err
	}
	action := region.ActionPrimary
	if m.Action == session.ActionSecondary {
		action = region.ActionSecondary
	}
	// an unparseable face is fine for an extension, which never reads it
	face, _ := world.ParseFace(m.Face)
	return region.Click{
		World:   w,
		Cell:    world.Cell{X: int(m.Cell[0]), Y: int(m.Cell[1]), Z: int(m.Cell[2])},
		Face:    face,
		Action:  action,
		Include: m.Include,
	}, nil
}

func (s *Service) WorldChange(client dispatch.ClientID, m session.WorldChange) error {
	w, err := s.worlds.Resolve(m.World)
	if err != nil {
		return err
	}
	return s.sessions.ChangeWorld(client, w)
}

func (s *Service) DebugMark(client dispatch.ClientID, m session.DebugMark) error {
	w, err := s.worlds.Resolve(m.World)
	if err != nil {
		return err
	}
	return s.sessions.DebugMark(client, world.At(w, m.Position[0], m.Position[1], m.Position[2]))
}

func (s *Service) SelectionRefresh(client dispatch.ClientID) error {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	return s.sessions.RefreshMirror(ctx, client)
}
