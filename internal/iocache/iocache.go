// Package iocache persists the owner baselines and the run history of safeupdate.
package iocache

import (
	"sync"

	"github.com/huangsam/safeupdate/internal/contract"
)

// CacheStoreManager manages the owner cache and the history store.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	owners       contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// NewCacheStoreManager wraps already opened stores. Either may be nil.
func NewCacheStoreManager(owners contract.CacheStore, history contract.HistoryStore) *CacheStoreManager {
	return &CacheStoreManager{owners: owners, history: history}
}

// GetOwnerStore returns the CacheStore that holds owner baselines.
func (mgr *CacheStoreManager) GetOwnerStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.owners
}

// GetHistoryStore returns the run history store.
func (mgr *CacheStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
