package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bluele/gcache"
)

//speedCache remembers the latest logged speed of each vehicle for a short time.
//Entries are dropped as soon as the vehicle reports a new location
type speedCache struct {
	store trackerStore
	cache gcache.Cache
	//generations counts forget calls per vehicle, a load that overlaps a forget is not cached
	mu          sync.Mutex
	generations map[string]uint64
}

func makeSpeedCache(store trackerStore, size int, ttl time.Duration) *speedCache {
	c := &speedCache{store: store, generations: make(map[string]uint64)}
	if ttl > 0 && size > 0 {
		c.cache = gcache.New(size).LRU().Expiration(ttl).Build()
	}
	return c
}

//latestSpeed returns the speed of the newest location log entry of vehicleId, nil when none is known
func (c *speedCache) latestSpeed(ctx context.Context, vehicleId string) (*float64, error) {
	if c.cache == nil {
		return c.store.getLatestSpeed(ctx, vehicleId)
	}
	cached, err := c.cache.Get(vehicleId)
	if err == nil {
		return cached.(*float64), nil
	}
	if !errors.Is(err, gcache.KeyNotFoundError) {
		return nil, err
	}

	generation := c.generation(vehicleId)
	speed, err := c.store.getLatestSpeed(ctx, vehicleId)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.generations[vehicleId] == generation {
		_ = c.cache.Set(vehicleId, speed)
	}
	c.mu.Unlock()
	return speed, nil
}

func (c *speedCache) generation(vehicleId string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[vehicleId]
}

//forget drops the cached speed of vehicleId, including one being loaded right now
func (c *speedCache) forget(vehicleId string) {
	if c.cache == nil {
		return
	}
	c.mu.Lock()
	c.generations[vehicleId]++
	c.cache.Remove(vehicleId)
	c.mu.Unlock()
}
