package content

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheVersionKey = "content:version"
	cacheListPrefix = "content:list:"
	bumpChannel     = "content.bump"

	// versionRefresh bounds how long a replica trusts its local version
	// before reading Redis again.
	versionRefresh = 5 * time.Second
)

// ListCache keeps the unfiltered item list in Redis under a version number.
// Writers bump the version, which orphans every cached list at once. It holds
// store data only; visibility is applied per principal after reading.
type ListCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group

	mu        sync.Mutex
	listening bool
	local     int64
	seen      time.Time
	now       func() time.Time
}

// NewListCache instantiates the cache helper.
func NewListCache(client *redis.Client, ttl time.Duration) *ListCache {
	return &ListCache{client: client, ttl: ttl, now: time.Now}
}

// Version returns the current cache version, initialising when missing.
// While subscribed to bumps, a recently seen version is served from memory.
func (c *ListCache) Version(ctx context.Context) (int64, error) {
	if ver, ok := c.localVersion(); ok {
		return ver, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		ver, err = c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	c.storeVersion(ver, true)
	return ver, nil
}

func (c *ListCache) localVersion() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.listening || c.local == 0 || c.now().Sub(c.seen) >= versionRefresh {
		return 0, false
	}
	return c.local, true
}

// storeVersion records ver locally. Redis reads are authoritative; published
// bumps only ever raise the version.
func (c *ListCache) storeVersion(ver int64, authoritative bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if authoritative || ver > c.local {
		c.local = ver
		c.seen = c.now()
	}
}

// Items returns the cached list, filling it with load on a miss. Concurrent
// misses for the same version share a single load.
func (c *ListCache) Items(ctx context.Context, load func(context.Context) ([]Item, error)) ([]Item, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return nil, err
	}
	key := cacheListPrefix + strconv.FormatInt(ver, 10)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var items []Item
		if err := json.Unmarshal(payload, &items); err == nil {
			return items, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, err
	}

	// Callers share one load; it must not end with whichever caller started it.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		items, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(loadCtx, key, raw, c.ttl).Err(); err != nil {
			return nil, err
		}
		return items, nil
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	items := res.Val.([]Item)
	out := make([]Item, len(items))
	copy(out, items)
	return out, nil
}

// Bump invalidates cached lists and notifies other replicas.
func (c *ListCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	c.storeVersion(ver, false)
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation subscribes to bumps from every replica and raises the
// in-memory version, which Version then serves without a Redis read. It
// returns once the subscription is confirmed.
func (c *ListCache) ListenForInvalidation(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, bumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	c.mu.Lock()
	c.listening = true
	c.mu.Unlock()
	go func() {
		defer func() {
			c.mu.Lock()
			c.listening = false
			c.mu.Unlock()
			_ = pubsub.Close()
		}()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					continue
				}
				c.storeVersion(ver, false)
			}
		}
	}()
	return nil
}
