package core

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/schema"
	"gopkg.in/yaml.v3"
)

// ownerCacheVersion is the schema version of the owner cache document.
// A stored document with any other version is discarded.
const ownerCacheVersion = 1

// ownerCacheKey is the key of the owner cache document in the store.
const ownerCacheKey = "owners"

// ownerDocument is the persisted shape of the owner cache.
type ownerDocument struct {
	Version   int                 `yaml:"version"`
	UpdatedAt *time.Time          `yaml:"updated_at"`
	Owners    map[string][]string `yaml:"owners"`
}

// OwnerCache remembers the publisher set of each package between runs.
type OwnerCache struct {
	mu     sync.Mutex
	store  contract.CacheStore
	owners map[string][]string
	exists bool
	now    func() time.Time
}

var _ contract.OwnershipCache = &OwnerCache{} // Compile-time check

// NewOwnerCache loads the owner cache from store. A missing, unreadable or
// incompatible document yields an empty cache. A nil store keeps everything in memory.
func NewOwnerCache(store contract.CacheStore) *OwnerCache {
	c := &OwnerCache{
		store:  store,
		owners: make(map[string][]string),
		now:    time.Now,
	}
	if store == nil {
		return c
	}

	data, version, _, err := store.Get(ownerCacheKey)
	if err != nil {
		return c
	}
	c.exists = true
	if version != ownerCacheVersion {
		return c
	}

	var doc ownerDocument
	if err := yaml.Unmarshal(data, &doc); err != nil || doc.Version != ownerCacheVersion {
		return c
	}
	for name, owners := range doc.Owners {
		c.owners[name] = schema.NormalizeOwners(owners)
	}
	return c
}

// OwnersFor returns the recorded publishers of name, or an empty set if unseen.
func (c *OwnerCache) OwnersFor(name string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.owners[name])
}

// DetectChange compares owners with the recorded baseline of name.
// It returns nil when name has no baseline yet or the sets are equal.
func (c *OwnerCache) DetectChange(name string, owners []string) *schema.OwnerChange {
	current := schema.NormalizeOwners(owners)

	c.mu.Lock()
	previous := c.owners[name]
	c.mu.Unlock()

	if len(previous) == 0 || schema.OwnersEqual(previous, current) {
		return nil
	}
	return &schema.OwnerChange{
		Name:           name,
		PreviousOwners: slices.Clone(previous),
		CurrentOwners:  current,
	}
}

// UpdateOwners replaces the baseline of name.
func (c *OwnerCache) UpdateOwners(name string, owners []string) {
	normalized := schema.NormalizeOwners(owners)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.owners[name] = normalized
}

// Save writes the cache to its store, stamping the update time.
func (c *OwnerCache) Save() error {
	if c.store == nil {
		return errors.New("owner cache has no store")
	}

	c.mu.Lock()
	now := c.now().UTC().Truncate(time.Second)
	doc := ownerDocument{
		Version:   ownerCacheVersion,
		UpdatedAt: &now,
		Owners:    make(map[string][]string, len(c.owners)),
	}
	for name, owners := range c.owners {
		doc.Owners[name] = slices.Clone(owners)
	}
	c.mu.Unlock()

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to encode owner cache: %w", err)
	}
	if err := c.store.Set(ownerCacheKey, data, ownerCacheVersion, now.Unix()); err != nil {
		return fmt.Errorf("failed to save owner cache: %w", err)
	}

	c.mu.Lock()
	c.exists = true
	c.mu.Unlock()
	return nil
}

// Exists reports whether a stored document was found or has been written.
func (c *OwnerCache) Exists() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exists
}

// Len returns the number of packages with a baseline.
func (c *OwnerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.owners)
}
