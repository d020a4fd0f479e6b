// Package dispatch builds client-only display messages and delivers them to
// explicit recipient lists through the network layer.
package dispatch

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/overlayctl/internal/appearance"
	"github.com/danmuck/overlayctl/internal/geometry"
	"github.com/danmuck/overlayctl/internal/observability"
	"github.com/danmuck/overlayctl/internal/protocol/session"
	"github.com/danmuck/overlayctl/internal/world"
)

// ClientID identifies one connected client.
type ClientID string

// EntityID is a process-local id, valid only while its entity is spawned.
type EntityID uint32

// Kind selects the client-side entity type.
type Kind uint8

const (
	KindDisplay = Kind(session.KindDisplay)
	KindHitbox  = Kind(session.KindHitbox)
)

// Network is what the dispatcher needs from the connection layer.
type Network interface {
	IsOnline(client ClientID) bool
	Send(client ClientID, msg []byte) error
	NextEntityID() EntityID
}

// Entity is the full description of one client-only entity.
type Entity struct {
	ID            EntityID
	Kind          Kind
	Location      world.Location
	Transform     geometry.Transform
	Appearance    appearance.Tag
	Glow          appearance.Glow
	Interpolation uint32
}

// Dispatcher is fire-and-forget: no acks, no retries.
type Dispatcher struct {
	net Network
	seq atomic.Uint64
}

func New(net Network) *Dispatcher {
	return &Dispatcher{net: net}
}

// NextID allocates a fresh entity id from the network layer.
func (d *Dispatcher) NextID() EntityID {
	return d.net.NextEntityID()
}

// SpawnMessages returns the creation message followed by the initial state.
func (d *Dispatcher) SpawnMessages(e Entity) ([][]byte, error) {
	spawn, err := session.EncodeSpawnFrame(d.seq.Add(1), session.DisplaySpawn{
		EntityID: uint32(e.ID),
		Kind:     uint8(e.Kind),
		World:    string(e.Location.World),
		Position: e.Location.Pos,
	})
	if err != nil {
		return nil, err
	}
	state, err := d.StateMessage(e)
	if err != nil {
		return nil, err
	}
	return [][]byte{spawn, state}, nil
}

// StateMessage carries the entity's transform, appearance, highlight and
// interpolation window.
func (d *Dispatcher) StateMessage(e Entity) ([]byte, error) {
	t := e.Transform
	return session.EncodeStateFrame(d.seq.Add(1), session.DisplayState{
		EntityID:      uint32(e.ID),
		Position:      e.Location.Pos,
		Translation:   t.Translation,
		LeftRotation:  quat(t.LeftRotation),
		Scale:         t.Scale,
		RightRotation: quat(t.RightRotation),
		Appearance:    string(e.Appearance),
		Glow:          e.Glow.On,
		GlowColor:     e.Glow.Color,
		Interpolation: e.Interpolation,
	})
}

func (d *Dispatcher) RemoveMessage(id EntityID) ([]byte, error) {
	return session.EncodeRemoveFrame(d.seq.Add(1), session.DisplayRemove{EntityID: uint32(id)})
}

// Send delivers msgs in order to every online recipient and returns how many
// recipients received all of them. Offline recipients and recipients whose
// send fails are skipped.
func (d *Dispatcher) Send(msgs [][]byte, recipients []ClientID) int {
	if len(msgs) == 0 {
		return 0
	}
	reached := 0
	skipped := 0
	for _, client := range recipients {
		if !d.net.IsOnline(client) {
			skipped++
			continue
		}
		ok := true
		for _, msg := range msgs {
			if err := d.net.Send(client, msg); err != nil {
				log.Debug().Err(err).Str("client", string(client)).Msg("dispatch.Send failed")
				ok = false
				break
			}
		}
		if ok {
			reached++
		} else {
			skipped++
		}
	}
	observability.RecordDispatch(reached, skipped)
	return reached
}

// quat orders a rotation as w, x, y, z. A zero quaternion goes out as identity.
func quat(q mgl64.Quat) [4]float64 {
	if q.W == 0 && q.V == (mgl64.Vec3{}) {
		return [4]float64{1, 0, 0, 0}
	}
	return [4]float64{q.W, q.V[0], q.V[1], q.V[2]}
}
