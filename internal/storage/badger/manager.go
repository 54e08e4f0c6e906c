package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/signalist/internal/common"
	"github.com/ternarybob/signalist/internal/interfaces"
)

// Manager aggregates the Badger-backed storage implementations behind a
// single connection.
type Manager struct {
	db     *BadgerDB
	kv     interfaces.KeyValueStorage
	users  interfaces.UserStorage
	runs   *RunStorage
	logger arbor.ILogger
}

// NewManager opens the database and wires up the storage implementations
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:     db,
		kv:     NewKVStorage(db, logger),
		users:  NewUserStorage(db, logger),
		runs:   NewRunStorage(db, logger),
		logger: logger,
	}, nil
}

// KeyValueStorage returns the key/value store
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// UserStorage returns the user/watchlist store
func (m *Manager) UserStorage() interfaces.UserStorage {
	return m.users
}

// RunStorage returns the workflow run store
func (m *Manager) RunStorage() interfaces.RunStorage {
	return m.runs
}

// CheckpointStorage returns the durable step-result log
func (m *Manager) CheckpointStorage() interfaces.CheckpointStorage {
	return m.runs
}

// Close closes the underlying database connection
func (m *Manager) Close() error {
	return m.db.Close()
}
