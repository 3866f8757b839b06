package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cradoe/puddle/internal/models"
)

// RecordingPublisher keeps every published event. Err, when set, is
// returned from Publish after the event is recorded.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, _, _ string, value []byte) error {
	var event models.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)
	return p.Err
}

func (p *RecordingPublisher) Events() []models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]models.Event(nil), p.events...)
}

// Types returns the type of every published event in order.
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

// MemoryCache is a map backed detail cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	Deletes int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

func (c *MemoryCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	data, ok := c.entries[key]
	c.mu.Unlock()

	if !ok {
		return false, nil
	}

	return true, json.Unmarshal(data, dst)
}

func (c *MemoryCache) SetJSON(_ context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = data
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.entries, key)
	}
	c.Deletes++
	return nil
}

func (c *MemoryCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	return ok
}
