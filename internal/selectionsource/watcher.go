package selectionsource

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/overlayctl/internal/dispatch"
)

var ErrSubscriptionClosed = errors.New("selectionsource: subscription closed")

// Notice is the pub/sub payload announcing a changed selection.
type Notice struct {
	ClientID string `json:"client_id"`
}

// Watcher subscribes to a channel and refreshes the mirror of every client
// named in a Notice.
type Watcher struct {
	rdb     *redis.Client
	channel string
	target  Refresher
	backoff Backoff
	rng     *rand.Rand

	readyOnce sync.Once
	ready     chan struct{}
}

func NewWatcher(rdb *redis.Client, channel string, target Refresher) *Watcher {
	return &Watcher{
		rdb:     rdb,
		channel: channel,
		target:  target,
		backoff: DefaultBackoff(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the first subscription is confirmed.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run blocks until ctx is done, resubscribing with backoff when the
// subscription drops.
func (w *Watcher) Run(ctx context.Context) error {
	attempt := 0
	for {
		subscribed, err := w.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if subscribed {
			attempt = 0
		}
		attempt++
		delay := w.backoff.Delay(attempt, w.rng)
		log.Warn().Err(err).Str("channel", w.channel).Dur("retry_in", delay).Msg("selectionsource.Watcher subscription lost")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func (w *Watcher) listen(ctx context.Context) (bool, error) {
	sub := w.rdb.Subscribe(ctx, w.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return false, err
	}
	w.readyOnce.Do(func() { close(w.ready) })
	log.Info().Str("channel", w.channel).Msg("selectionsource.Watcher subscribed")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return true, ErrSubscriptionClosed
			}
			w.handle(ctx, msg.Payload)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, payload string) {
	var n Notice
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		log.Debug().Err(err).Msg("selectionsource.Watcher bad payload")
		return
	}
	client := strings.TrimSpace(n.ClientID)
	if client == "" {
		log.Debug().Msg("selectionsource.Watcher notice without client_id")
		return
	}
	if err := w.target.RefreshMirror(ctx, dispatch.ClientID(client)); err != nil {
		log.Debug().Err(err).Str("client", client).Msg("selectionsource.Watcher refresh failed")
	}
}

// Publish announces that client's selection changed.
func Publish(ctx context.Context, rdb *redis.Client, channel string, client dispatch.ClientID) error {
	b, err := json.Marshal(Notice{ClientID: string(client)})
	if err != nil {
		return err
	}
	return rdb.Publish(ctx, channel, b).Err()
}
