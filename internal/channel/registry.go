package channel

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultMessageTTL bounds how long an unread channel message survives
// before the expiry sweep reclaims it.
const DefaultMessageTTL = 30 * time.Minute

// Registry holds all live channels by name.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*Channel
	ttl      time.Duration
	log      *zap.Logger
}

func NewRegistry(ttl time.Duration, log *zap.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultMessageTTL
	}
	return &Registry{
		channels: make(map[string]*Channel),
		ttl:      ttl,
		log:      log,
	}
}

type seedYAMLEntry struct {
	Name      string `yaml:"name"`
	Topic     string `yaml:"topic"`
	ReadPriv  int32  `yaml:"read_priv"`
	WritePriv int32  `yaml:"write_priv"`
	AutoJoin  bool   `yaml:"auto_join"`
	AutoClose bool   `yaml:"auto_close"`
}

type seedFile struct {
	Channels []seedYAMLEntry `yaml:"channels"`
}

// LoadSeed creates the startup channels from a YAML file.
func (r *Registry) LoadSeed(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read channel seed %s: %w", path, err)
	}
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse channel seed %s: %w", path, err)
	}
	for _, e := range f.Channels {
		r.Create(e.Name, e.Topic, e.ReadPriv, e.WritePriv, e.AutoJoin, e.AutoClose)
	}
	return nil
}

// Create adds a channel; an existing channel with the same name is kept.
func (r *Registry) Create(name, topic string, readPriv, writePriv int32, autoJoin, autoClose bool) *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.channels[name]; ok {
		return c
	}
	c := newChannel(name, topic, readPriv, writePriv, autoJoin, autoClose, r.ttl)
	r.channels[name] = c
	r.log.Debug("channel created", zap.String("channel", name))
	return c
}

// Get returns the channel, or nil.
func (r *Registry) Get(name string) *Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.channels[name]
}

// Remove deletes a channel by name.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	delete(r.channels, name)
	r.mu.Unlock()
	r.log.Debug("channel removed", zap.String("channel", name))
}

// RemoveIfClosed deletes the channel when it is auto-close and empty.
func (r *Registry) RemoveIfClosed(c *Channel) {
	if c.AutoClose && c.MemberCount() == 0 {
		r.Remove(c.Name)
	}
}

// Snapshot returns all live channels.
func (r *Registry) Snapshot() []*Channel {
	r.mu.RLock()
	out := make([]*Channel, 0, len(r.channels))
	for _, c := range r.channels {
		out = append(out, c)
	}
	r.mu.RUnlock()
	return out
}

// Len returns the number of live channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// GCAll runs the per-channel message GC across every channel.
func (r *Registry) GCAll() {
	for _, c := range r.Snapshot() {
		c.GC()
	}
}
