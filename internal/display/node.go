// Package display implements client-only proxy display objects: a visible
// box plus, when a click handler is set, an invisible hit-test entity.
package display

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/overlayctl/internal/appearance"
	"github.com/danmuck/overlayctl/internal/dispatch"
	"github.com/danmuck/overlayctl/internal/geometry"
	"github.com/danmuck/overlayctl/internal/hittest"
	"github.com/danmuck/overlayctl/internal/observability"
)

// Env is the process-wide wiring every node needs.
type Env struct {
	Dispatcher *dispatch.Dispatcher
	Router     *hittest.Router
	Catalog    *appearance.Catalog
}

// ClickContext is handed to click handlers.
type ClickContext struct {
	Client dispatch.ClientID
	Node   *Node
}

// OnlyViewer is the recipient list holding just the acting client.
func (c ClickContext) OnlyViewer() []dispatch.ClientID {
	return []dispatch.ClientID{c.Client}
}

// Node owns one display's config and live ids. Zero ids mean not spawned.
type Node struct {
	env Env

	mu        sync.Mutex
	cfg       Config
	displayID dispatch.EntityID
	hitboxID  dispatch.EntityID

	// viewers are the clients the live hitbox was sent to.
	viewers map[dispatch.ClientID]struct{}
}

func NewNode(env Env, cfg Config) *Node {
	return &Node{env: env, cfg: cfg}
}

func (n *Node) Config() Config {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cfg
}

// Configure edits the config in place without sending anything.
func (n *Node) Configure(fn func(*Config)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fn(&n.cfg)
}

func (n *Node) SetConfig(cfg Config) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cfg = cfg
}

func (n *Node) Live() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.displayID != 0
}

func (n *Node) DisplayID() dispatch.EntityID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.displayID
}

func (n *Node) HitboxID() dispatch.EntityID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hitboxID
}

// Spawn shows the node to recipients. It does nothing when recipients is
// empty or the config cannot be shown. A live node is despawned first.
func (n *Node) Spawn(recipients []dispatch.ClientID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.spawnable(recipients) {
		return
	}
	n.despawnLocked(recipients)
	n.spawnLocked(recipients, 0)
}

func (n *Node) Despawn(recipients []dispatch.ClientID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.despawnLocked(recipients)
}

// Update despawns then respawns with the current config.
func (n *Node) Update(recipients []dispatch.ClientID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.despawnLocked(recipients)
	if n.spawnable(recipients) {
		n.spawnLocked(recipients, 0)
	}
}

// UpdateState re-sends the current state to live ids with an interpolation
// window in ticks, so clients animate toward it. A node that is not live is
// spawned; a config that can no longer be shown despawns it.
func (n *Node) UpdateState(recipients []dispatch.ClientID, window uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(recipients) == 0 {
		return
	}
	if !n.spawnable(recipients) {
		n.despawnLocked(recipients)
		return
	}
	if n.displayID == 0 {
		n.spawnLocked(recipients, window)
		return
	}

	d := n.env.Dispatcher
	msg, err := d.StateMessage(n.displayEntity(n.displayID, window))
	if err != nil {
		log.Debug().Err(err).Msg("display.UpdateState encode failed")
		return
	}
	d.Send([][]byte{msg}, recipients)
	observability.RecordDisplay("state")

	switch {
	case n.cfg.Interactive() && n.hitboxID != 0:
		if hb, err := d.StateMessage(n.hitboxEntity(n.hitboxID)); err == nil {
			d.Send([][]byte{hb}, recipients)
		}
	case n.cfg.Interactive():
		n.spawnHitboxLocked(recipients)
	case n.hitboxID != 0:
		n.removeHitboxLocked(recipients)
	}
}

// Click implements hittest.Target. Clicks from clients the hitbox was never
// shown to are dropped.
func (n *Node) Click(client dispatch.ClientID) {
	n.mu.Lock()
	h := n.cfg.OnClick
	_, viewer := n.viewers[client]
	n.mu.Unlock()
	if !viewer {
		log.Debug().Str("client", string(client)).Msg("display.Click from non-viewer ignored")
		return
	}
	if h != nil {
		h(ClickContext{Client: client, Node: n})
	}
}

func (n *Node) spawnable(recipients []dispatch.ClientID) bool {
	if len(recipients) == 0 {
		return false
	}
	if err := n.cfg.Validate(n.env.Catalog); err != nil {
		log.Debug().Err(err).Msg("display.Spawn skipped")
		return false
	}
	return true
}

func (n *Node) spawnLocked(recipients []dispatch.ClientID, window uint32) {
	d := n.env.Dispatcher
	id := d.NextID()
	msgs, err := d.SpawnMessages(n.displayEntity(id, window))
	if err != nil {
		log.Debug().Err(err).Msg("display.Spawn encode failed")
		return
	}
	n.displayID = id
	d.Send(msgs, recipients)
	observability.RecordDisplay("spawn")

	if n.cfg.Interactive() {
		n.spawnHitboxLocked(recipients)
	}
}

func (n *Node) spawnHitboxLocked(recipients []dispatch.ClientID) {
	d := n.env.Dispatcher
	id := d.NextID()
	msgs, err := d.SpawnMessages(n.hitboxEntity(id))
	if err != nil {
		log.Debug().Err(err).Msg("display.Spawn hitbox encode failed")
		return
	}
	n.hitboxID = id
	n.viewers = make(map[dispatch.ClientID]struct{}, len(recipients))
	for _, c := range recipients {
		n.viewers[c] = struct{}{}
	}
	n.env.Router.Register(id, n)
	d.Send(msgs, recipients)
}

func (n *Node) despawnLocked(recipients []dispatch.ClientID) {
	if n.displayID == 0 && n.hitboxID == 0 {
		return
	}
	d := n.env.Dispatcher
	if n.displayID != 0 {
		if msg, err := d.RemoveMessage(n.displayID); err == nil {
			d.Send([][]byte{msg}, recipients)
		}
		n.displayID = 0
	}
	n.removeHitboxLocked(recipients)
	observability.RecordDisplay("despawn")
}

func (n *Node) removeHitboxLocked(recipients []dispatch.ClientID) {
	if n.hitboxID == 0 {
		return
	}
	d := n.env.Dispatcher
	n.env.Router.Unregister(n.hitboxID)
	if msg, err := d.RemoveMessage(n.hitboxID); err == nil {
		d.Send([][]byte{msg}, recipients)
	}
	n.hitboxID = 0
	n.viewers = nil
}

func (n *Node) displayEntity(id dispatch.EntityID, window uint32) dispatch.Entity {
	return dispatch.Entity{
		ID:            id,
		Kind:          dispatch.KindDisplay,
		Location:      n.cfg.Anchor,
		Transform:     n.cfg.Transform(),
		Appearance:    n.cfg.Appearance,
		Glow:          n.cfg.Glow,
		Interpolation: window,
	}
}

// hitboxEntity sits at the anchor with the display's extent and no rotation.
func (n *Node) hitboxEntity(id dispatch.EntityID) dispatch.Entity {
	return dispatch.Entity{
		ID:       id,
		Kind:     dispatch.KindHitbox,
		Location: n.cfg.Anchor,
		Transform: geometry.Transform{
			LeftRotation:  mgl64.QuatIdent(),
			Scale:         n.cfg.Scale,
			RightRotation: mgl64.QuatIdent(),
		},
	}
}
