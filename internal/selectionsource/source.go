// Package selectionsource reads selections owned by an external editor and
// watches for changes to them.
package selectionsource

import (
	"context"
	"errors"

	"github.com/danmuck/overlayctl/internal/dispatch"
	"github.com/danmuck/overlayctl/internal/region"
	"github.com/danmuck/overlayctl/internal/world"
)

var (
	// ErrIncomplete means the client has no complete cuboid selection.
	ErrIncomplete = errors.New("selectionsource: selection incomplete")
	ErrMalformed  = errors.New("selectionsource: malformed selection")
)

// Source returns the external selection of client in world w.
type Source interface {
	Selection(ctx context.Context, client dispatch.ClientID, w world.Ref) (region.Box, error)
}

// Refresher is notified when a client's external selection changed.
type Refresher interface {
	RefreshMirror(ctx context.Context, client dispatch.ClientID) error
}

// Static is an in-memory Source.
type Static map[dispatch.ClientID]map[world.Ref]region.Box

func (s Static) Selection(_ context.Context, client dispatch.ClientID, w world.Ref) (region.Box, error) {
	box, ok := s[client][w]
	if !ok {
		return region.Box{}, ErrIncomplete
	}
	return box, nil
}
