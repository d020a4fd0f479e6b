// Package sessions keeps per-client selection state and its visualizations.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/overlayctl/internal/dispatch"
	"github.com/danmuck/overlayctl/internal/display"
	"github.com/danmuck/overlayctl/internal/overlay"
	"github.com/danmuck/overlayctl/internal/region"
	"github.com/danmuck/overlayctl/internal/selectionsource"
	"github.com/danmuck/overlayctl/internal/world"
)

var (
	ErrUnknownSession = errors.New("sessions: unknown session")
	ErrWrongWorld     = errors.New("sessions: location in another world")
)

// Config tunes the manager.
type Config struct {
	// Interpolation is the extend animation length in ticks.
	Interpolation uint32
	// DebugMarks enables DebugMark.
	DebugMarks bool
}

// Manager owns one Session per connected client.
type Manager struct {
	env    display.Env
	source selectionsource.Source
	cfg    Config

	mu       sync.RWMutex
	sessions map[dispatch.ClientID]*Session
}

// NewManager wires a manager. source may be nil, which disables mirrors.
func NewManager(env display.Env, source selectionsource.Source, cfg Config) *Manager {
	if cfg.Interpolation == 0 {
		cfg.Interpolation = overlay.DefaultInterpolation
	}
	return &Manager{
		env:      env,
		source:   source,
		cfg:      cfg,
		sessions: make(map[dispatch.ClientID]*Session),
	}
}

// Open starts a session. An existing session for client is closed first.
func (m *Manager) Open(client dispatch.ClientID, name string, w world.Ref) *Session {
	s := newSession(m.env, client, name, w, m.cfg.Interpolation)
	m.mu.Lock()
	old := m.sessions[client]
	m.sessions[client] = s
	m.mu.Unlock()
	if old != nil {
		old.close()
	}
	log.Info().Str("client", string(client)).Str("name", name).Str("world", string(w)).Msg("sessions.Open")
	return s
}

// Close clears the client's selection and every visualization it owns.
func (m *Manager) Close(client dispatch.ClientID) {
	m.mu.Lock()
	s := m.sessions[client]
	delete(m.sessions, client)
	m.mu.Unlock()
	if s == nil {
		return
	}
	s.close()
	log.Info().Str("client", string(client)).Msg("sessions.Close")
}

func (m *Manager) Get(client dispatch.ClientID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[client]
	return s, ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) session(client dispatch.ClientID) (*Session, error) {
	s, ok := m.Get(client)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, client)
	}
	return s, nil
}

// ChangeWorld moves the client and drops everything it had selected.
func (m *Manager) ChangeWorld(client dispatch.ClientID, w world.Ref) error {
	s, err := m.session(client)
	if err != nil {
		return err
	}
	s.changeWorld(w)
	return nil
}

// ToolClick applies a selection tool click and renders the result.
func (m *Manager) ToolClick(client dispatch.ClientID, c region.Click) (region.Change, error) {
	s, err := m.session(client)
	if err != nil {
		return region.ChangeNone, err
	}
	return s.toolClick(c), nil
}

// DebugMark drops a clickable marker at loc, linked to the previous one.
func (m *Manager) DebugMark(client dispatch.ClientID, loc world.Location) error {
	if !m.cfg.DebugMarks {
		return nil
	}
	s, err := m.session(client)
	if err != nil {
		return err
	}
	return s.debugMark(loc)
}

// RefreshMirror redraws the client's external selection. An incomplete or
// unreadable selection clears the mirror.
func (m *Manager) RefreshMirror(ctx context.Context, client dispatch.ClientID) error {
	if m.source == nil {
		return nil
	}
	s, err := m.session(client)
	if err != nil {
		return err
	}
	w := s.World()
	box, err := m.source.Selection(ctx, client, w)
	if err != nil {
		s.clearMirror()
		if errors.Is(err, selectionsource.ErrIncomplete) {
			return nil
		}
		return err
	}
	s.renderMirror(region.Selection{World: w, Box: box})
	return nil
}

// Info is a point-in-time view of one session.
type Info struct {
	Client       dispatch.ClientID `json:"client_id"`
	Name         string            `json:"name"`
	World        world.Ref         `json:"world"`
	OpenedAt     time.Time         `json:"opened_at"`
	Selection    *region.Selection `json:"selection,omitempty"`
	ToolActive   bool              `json:"tool_active"`
	MirrorActive bool              `json:"mirror_active"`
	DebugMarks   int               `json:"debug_marks"`
}

// Snapshot lists every session ordered by client id.
func (m *Manager) Snapshot() []Info {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	out := make([]Info, 0, len(all))
	for _, s := range all {
		out = append(out, s.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Client < out[j].Client })
	return out
}

// CloseAll ends every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[dispatch.ClientID]*Session)
	m.mu.Unlock()
	for _, s := range all {
		s.close()
	}
}
