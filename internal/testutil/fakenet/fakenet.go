// Package fakenet is an in-memory dispatch.Network for tests. It records
// every frame sent per client and can replay them into the set of entities
// the client currently sees.
package fakenet

import (
	"errors"
	"fmt"
	"sync"

	"github.com/danmuck/overlayctl/internal/dispatch"
	"github.com/danmuck/overlayctl/internal/protocol/schema"
	"github.com/danmuck/overlayctl/internal/protocol/session"
)

var ErrSendFailed = errors.New("fakenet: send failed")

// Entity is what one client sees for a live entity.
type Entity struct {
	Spawn session.DisplaySpawn
	State session.DisplayState
}

type Network struct {
	mu      sync.Mutex
	online  map[dispatch.ClientID]bool
	failing map[dispatch.ClientID]bool
	sent    map[dispatch.ClientID][][]byte
	next    uint32
}

func New(clients ...dispatch.ClientID) *Network {
	n := &Network{
		online:  make(map[dispatch.ClientID]bool),
		failing: make(map[dispatch.ClientID]bool),
		sent:    make(map[dispatch.ClientID][][]byte),
	}
	for _, c := range clients {
		n.online[c] = true
	}
	return n
}

func (n *Network) Connect(c dispatch.ClientID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.online[c] = true
}

func (n *Network) Disconnect(c dispatch.ClientID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.online, c)
}

// Fail makes every send to c return ErrSendFailed.
func (n *Network) Fail(c dispatch.ClientID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failing[c] = true
}

func (n *Network) IsOnline(c dispatch.ClientID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.online[c]
}

func (n *Network) Send(c dispatch.ClientID, msg []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failing[c] {
		return ErrSendFailed
	}
	cp := append([]byte(nil), msg...)
	n.sent[c] = append(n.sent[c], cp)
	return nil
}

func (n *Network) NextEntityID() dispatch.EntityID {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next++
	return dispatch.EntityID(n.next)
}

// Sent returns a copy of the raw frames sent to c.
func (n *Network) Sent(c dispatch.ClientID) [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]byte(nil), n.sent[c]...)
}

// Count returns how many frames of messageType were sent to c.
func (n *Network) Count(c dispatch.ClientID, messageType uint32) int {
	count := 0
	for _, b := range n.Sent(c) {
		f, err := session.ParseFrame(b)
		if err == nil && f.Header.MessageType == messageType {
			count++
		}
	}
	return count
}

// Reset forgets recorded frames but keeps online state and the id counter.
func (n *Network) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = make(map[dispatch.ClientID][][]byte)
}

// Live replays every frame sent to c and returns the entities still alive.
func (n *Network) Live(c dispatch.ClientID) (map[uint32]Entity, error) {
	live := make(map[uint32]Entity)
	for i, b := range n.Sent(c) {
		f, err := session.ParseFrame(b)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		switch f.Header.MessageType {
		case schema.MsgDisplaySpawn:
			m, err := session.DecodeSpawnFrame(f)
			if err != nil {
				return nil, fmt.Errorf("frame %d: %w", i, err)
			}
			if _, dup := live[m.EntityID]; dup {
				return nil, fmt.Errorf("frame %d: entity %d spawned twice", i, m.EntityID)
			}
			live[m.EntityID] = Entity{Spawn: m}
		case schema.MsgDisplayState:
			m, err := session.DecodeStateFrame(f)
			if err != nil {
				return nil, fmt.Errorf("frame %d: %w", i, err)
			}
			e, ok := live[m.EntityID]
			if !ok {
				return nil, fmt.Errorf("frame %d: state for unknown entity %d", i, m.EntityID)
			}
			e.State = m
			live[m.EntityID] = e
		case schema.MsgDisplayRemove:
			m, err := session.DecodeRemoveFrame(f)
			if err != nil {
				return nil, fmt.Errorf("frame %d: %w", i, err)
			}
			delete(live, m.EntityID)
		default:
			return nil, fmt.Errorf("frame %d: unexpected message %s", i, schema.Name(f.Header.MessageType))
		}
	}
	return live, nil
}

// Displays filters live to visible display entities, dropping hitboxes.
func Displays(live map[uint32]Entity) []Entity {
	out := make([]Entity, 0, len(live))
	for _, e := range live {
		if e.Spawn.Kind == session.KindDisplay {
			out = append(out, e)
		}
	}
	return out
}
