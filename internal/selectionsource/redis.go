package selectionsource

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/danmuck/overlayctl/internal/dispatch"
	"github.com/danmuck/overlayctl/internal/region"
	"github.com/danmuck/overlayctl/internal/world"
)

var boxFields = [6]string{"min_x", "min_y", "min_z", "max_x", "max_y", "max_z"}

// RedisSource reads selections from hashes at
// <prefix>selection:<client>:<world> with fields min_x ... max_z.
type RedisSource struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisSource(rdb *redis.Client, prefix string) *RedisSource {
	return &RedisSource{rdb: rdb, prefix: prefix}
}

func (s *RedisSource) Key(client dispatch.ClientID, w world.Ref) string {
	return fmt.Sprintf("%sselection:%s:%s", s.prefix, client, w)
}

// Selection returns ErrIncomplete when the hash is absent or any bound is
// missing. Corners may be stored in either order.
func (s *RedisSource) Selection(ctx context.Context, client dispatch.ClientID, w world.Ref) (region.Box, error) {
	vals, err := s.rdb.HGetAll(ctx, s.Key(client, w)).Result()
	if err != nil {
		return region.Box{}, fmt.Errorf("selectionsource: redis hgetall: %w", err)
	}
	var nums [6]int
	for i, field := range boxFields {
		raw, ok := vals[field]
		if !ok {
			return region.Box{}, ErrIncomplete
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return region.Box{}, fmt.Errorf("%w: %s=%q", ErrMalformed, field, raw)
		}
		nums[i] = n
	}
	return region.Span(
		world.Cell{X: nums[0], Y: nums[1], Z: nums[2]},
		world.Cell{X: nums[3], Y: nums[4], Z: nums[5]},
	), nil
}

// Store writes box for client in w.
func (s *RedisSource) Store(ctx context.Context, client dispatch.ClientID, w world.Ref, box region.Box) error {
	return s.rdb.HSet(ctx, s.Key(client, w),
		"min_x", box.Min.X, "min_y", box.Min.Y, "min_z", box.Min.Z,
		"max_x", box.Max.X, "max_y", box.Max.Y, "max_z", box.Max.Z,
	).Err()
}

// Forget deletes the stored selection.
func (s *RedisSource) Forget(ctx context.Context, client dispatch.ClientID, w world.Ref) error {
	return s.rdb.Del(ctx, s.Key(client, w)).Err()
}
