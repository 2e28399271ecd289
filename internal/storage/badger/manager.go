package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/common"
	"github.com/ternarybob/respondo/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db          *BadgerDB
	entry       interfaces.EntryStorage
	kv          interfaces.KeyValueStorage
	interaction interfaces.InteractionStorage
	connector   interfaces.ConnectorStorage
	logger      arbor.ILogger
}

var _ interfaces.StorageManager = (*Manager)(nil)

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:          db,
		entry:       NewEntryStorage(db, logger),
		kv:          NewKVStorage(db, logger),
		interaction: NewInteractionStorage(db, logger),
		connector:   NewConnectorStorage(db, logger),
		logger:      logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// EntryStorage returns the knowledge entry storage interface
func (m *Manager) EntryStorage() interfaces.EntryStorage {
	return m.entry
}

// KVStorage returns the key/value storage interface
func (m *Manager) KVStorage() interfaces.KeyValueStorage {
	return m.kv
}

// InteractionStorage returns the interaction storage interface
func (m *Manager) InteractionStorage() interfaces.InteractionStorage {
	return m.interaction
}

// ConnectorStorage returns the connector storage interface
func (m *Manager) ConnectorStorage() interfaces.ConnectorStorage {
	return m.connector
}

// DB returns the underlying database connection
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

// GC runs Badger value-log garbage collection
func (m *Manager) GC() error {
	if m.db != nil {
		return m.db.RunGC()
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
