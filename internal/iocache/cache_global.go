package iocache

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/schema"
)

// ownerTable is the name of the table holding owner baselines for SQL backends.
const ownerTable = "safeupdate_owner_cache"

// Global Manager instance for main logic.
var (
	Manager   = &CacheStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// OwnerStoreConnection returns the connection string of the owner store for cfg.
// The file backend resolves to the cache file path.
func OwnerStoreConnection(cfg *contract.Config) string {
	if cfg.CacheBackend == schema.FileBackend {
		return cfg.CacheFilePath()
	}
	return cfg.CacheDBConnect
}

// NewOwnerStore opens the store that holds owner baselines for a backend.
func NewOwnerStore(backend schema.DatabaseBackend, connStr string) (contract.CacheStore, error) {
	if backend == schema.FileBackend {
		if connStr == "" {
			return nil, fmt.Errorf("a file path is required for the %s backend", backend)
		}
		return NewFileStore(connStr), nil
	}
	store, err := NewCacheStore(ownerTable, backend, connStr)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// InitStores initializes the global manager with the owner store and the history store.
// An empty backend leaves the corresponding store unset.
func InitStores(cacheBackend schema.DatabaseBackend, cacheConnStr string, historyBackend schema.DatabaseBackend, historyConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		var owners contract.CacheStore
		if cacheBackend != "" {
			store, err := NewOwnerStore(cacheBackend, cacheConnStr)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize owner cache: %w", err)
				return
			}
			owners = store
		}

		var history contract.HistoryStore
		if historyBackend != "" {
			store, err := NewHistoryStore(historyBackend, historyConnStr)
			if err != nil {
				if owners != nil {
					_ = owners.Close()
				}
				initErr = fmt.Errorf("failed to initialize history store: %w", err)
				return
			}
			history = store
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.owners = owners
		Manager.history = history
	})

	return initErr
}

// CloseCaching should be called on application shutdown.
func CloseCaching() {
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.owners != nil {
			_ = Manager.owners.Close()
		}
		if Manager.history != nil {
			_ = Manager.history.Close()
		}
	})
}

// ClearCache removes all owner baselines for the backend.
// For the file backend and SQLite it deletes the file.
// For MySQL and PostgreSQL it drops the table.
func ClearCache(backend schema.DatabaseBackend, path, connStr string) error {
	switch backend {
	case schema.FileBackend, schema.SQLiteBackend:
		return removeFile(path)
	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return clearSQLTables(backend, connStr, ownerTable)
	case schema.NoneBackend:
		return nil
	default:
		return fmt.Errorf("unsupported cache backend for clearing: %s", backend)
	}
}

// ClearHistory removes all recorded runs for the backend.
// The migration bookkeeping table is dropped with the data so the next open recreates everything.
func ClearHistory(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		return removeFile(dbFilePath)
	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return clearSQLTables(backend, connStr, decisionsTable, runsTable, "schema_migrations")
	case schema.NoneBackend:
		return nil
	default:
		return fmt.Errorf("unsupported history backend for clearing: %s", backend)
	}
}

// removeFile deletes path and ignores a missing file.
func removeFile(path string) error {
	if path == "" {
		return fmt.Errorf("a file path is required to clear file based storage")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// clearSQLTables connects to the SQL database and drops the tables if they exist.
func clearSQLTables(backend schema.DatabaseBackend, connStr string, tables ...string) error {
	driverName, err := driverFor(backend)
	if err != nil {
		return err
	}
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", backend, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", backend, err)
	}

	for _, table := range tables {
		if err := validateTableName(table); err != nil {
			return err
		}
		if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(table, backend))); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
