// Package hittest maps invisible hit-test entity ids to the objects that
// own them and forwards client clicks to those owners.
package hittest

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/overlayctl/internal/dispatch"
	"github.com/danmuck/overlayctl/internal/observability"
)

// Target receives clicks on a registered hit-test entity.
type Target interface {
	Click(client dispatch.ClientID)
}

// TargetFunc adapts a function to Target.
type TargetFunc func(client dispatch.ClientID)

func (f TargetFunc) Click(client dispatch.ClientID) { f(client) }

// Router is created once by the service and shared by every display node.
type Router struct {
	mu      sync.RWMutex
	targets map[dispatch.EntityID]Target
}

func NewRouter() *Router {
	return &Router{targets: make(map[dispatch.EntityID]Target)}
}

func (r *Router) Register(id dispatch.EntityID, t Target) {
	if t == nil {
		return
	}
	r.mu.Lock()
	r.targets[id] = t
	r.mu.Unlock()
}

func (r *Router) Unregister(id dispatch.EntityID) {
	r.mu.Lock()
	delete(r.targets, id)
	r.mu.Unlock()
}

func (r *Router) Lookup(id dispatch.EntityID) (Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[id]
	return t, ok
}

func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets)
}

// Dispatch invokes the owner of id with the acting client. It reports false
// when id is not registered. The target runs outside the router lock.
func (r *Router) Dispatch(id dispatch.EntityID, client dispatch.ClientID) bool {
	t, ok := r.Lookup(id)
	observability.RecordHitTest(ok)
	if !ok {
		log.Debug().Uint32("entity", uint32(id)).Str("client", string(client)).Msg("hittest.Dispatch miss")
		return false
	}
	t.Click(client)
	return true
}
