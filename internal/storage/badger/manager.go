package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/tradeprep/internal/common"
	"github.com/ternarybob/tradeprep/internal/interfaces"
)

// Manager owns the Badger connection and the storages built on it.
type Manager struct {
	db       *BadgerDB
	kv       *KVStorage
	security *SecurityMasterStorage
	logger   arbor.ILogger
}

// NewManager opens the database and wires its storages.
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		kv:       NewKVStorage(db, logger),
		security: NewSecurityMasterStorage(db, logger, DefaultSecurityTTL),
		logger:   logger,
	}

	logger.Debug().Msg("Badger storage manager initialized")

	return manager, nil
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// SecurityMasterStorage returns the SecurityMaster cache
func (m *Manager) SecurityMasterStorage() interfaces.SecurityMasterStorage {
	return m.security
}

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
