// Package cache wraps the event store with Redis-backed caching for the
// read-heavy browse endpoints. A nil Redis client disables caching; every
// Redis failure falls back to the backing store without surfacing an error.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/model"
)

type backend interface {
	Create(ctx context.Context, req model.CreateEventRequest, createdBy string) (*model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
	ListByTypes(ctx context.Context, types []model.EventType, from time.Time) ([]model.Event, error)
	Update(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error)
	Delete(ctx context.Context, id string) error
}

// EventCache decorates an event store. Single-event reads and the
// unfiltered listing are cached; filtered queries pass through. Any
// mutation evicts the affected keys, and registration traffic evicts via
// Invalidate since it commits through the coordinator, not through here.
type EventCache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewEventCache creates a caching wrapper using the provided Redis client
// and TTL.
func NewEventCache(base backend, client *redis.Client, ttl time.Duration) *EventCache {
	if base == nil {
		panic("cache.NewEventCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &EventCache{base: base, redis: client, ttl: ttl}
}

func (c *EventCache) Create(ctx context.Context, req model.CreateEventRequest, createdBy string) (*model.Event, error) {
	ev, err := c.base.Create(ctx, req, createdBy)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, ev.ID)
	return ev, nil
}

func (c *EventCache) GetByID(ctx context.Context, id string) (*model.Event, error) {
	if ev, ok := c.loadEvent(ctx, id); ok {
		return ev, nil
	}
	ev, err := c.base.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.storeEvent(ctx, ev)
	return ev, nil
}

func (c *EventCache) List(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	cacheable := filter == model.EventFilter{}
	if cacheable {
		if events, ok := c.loadList(ctx); ok {
			return events, nil
		}
	}
	events, err := c.base.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if cacheable {
		c.storeList(ctx, events)
	}
	return events, nil
}

func (c *EventCache) ListByTypes(ctx context.Context, types []model.EventType, from time.Time) ([]model.Event, error) {
	return c.base.ListByTypes(ctx, types, from)
}

func (c *EventCache) Update(ctx context.Context, id string, req model.UpdateEventRequest) (*model.Event, error) {
	ev, err := c.base.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, id)
	return ev, nil
}

func (c *EventCache) Delete(ctx context.Context, id string) error {
	if err := c.base.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

// Invalidate evicts the event and the listing after a registration or
// unregistration commits.
func (c *EventCache) Invalidate(ctx context.Context, eventID string) {
	c.evict(ctx, eventID)
}

func (c *EventCache) loadEvent(ctx context.Context, id string) (*model.Event, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, eventKey(id)).Bytes()
	if err != nil {
		if !isMiss(err) {
			_ = c.redis.Del(ctx, eventKey(id)).Err()
		}
		return nil, false
	}
	var ev model.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		_ = c.redis.Del(ctx, eventKey(id)).Err()
		return nil, false
	}
	return &ev, true
}

func (c *EventCache) storeEvent(ctx context.Context, ev *model.Event) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, eventKey(ev.ID), data, c.ttl).Err()
}

func (c *EventCache) loadList(ctx context.Context) ([]model.Event, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, listKey).Bytes()
	if err != nil {
		if !isMiss(err) {
			_ = c.redis.Del(ctx, listKey).Err()
		}
		return nil, false
	}
	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		_ = c.redis.Del(ctx, listKey).Err()
		return nil, false
	}
	return events, true
}

func (c *EventCache) storeList(ctx context.Context, events []model.Event) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(events)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, listKey, data, c.ttl).Err()
}

func (c *EventCache) evict(ctx context.Context, eventID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, eventKey(eventID), listKey).Result()
}

// isMiss reports whether a Get failed because the key is absent. The
// client may wrap redis.Nil, so a plain equality check is not enough;
// anything else is a real failure and the entry is treated as corrupt.
func isMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

const listKey = "events:all"

func eventKey(id string) string {
	return "event:" + id
}
