package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/respondo/internal/models"
)

// EntryStorage persists knowledge entries per company. The knowledge service
// fronts this with an in-memory cache; implementations only see whole-company
// loads and saves, which keeps the entry + chunks + vectors unit atomic.
type EntryStorage interface {
	// Load returns all entries for a company. A company with no stored
	// knowledge yields an empty slice, not an error.
	Load(ctx context.Context, companyID string) ([]*models.KnowledgeEntry, error)

	// Save replaces the company's entry set atomically.
	Save(ctx context.Context, companyID string, entries []*models.KnowledgeEntry) error

	// Companies lists company IDs that have stored knowledge.
	Companies(ctx context.Context) ([]string, error)
}

// InteractionStorage persists chat interaction records for analytics
type InteractionStorage interface {
	// Record stores one interaction
	Record(ctx context.Context, interaction *models.Interaction) error

	// ListByCompany returns interactions for a company, newest first, up to limit.
	// limit <= 0 means no limit.
	ListByCompany(ctx context.Context, companyID string, limit int) ([]*models.Interaction, error)

	// CountByCompany returns the number of stored interactions for a company
	CountByCompany(ctx context.Context, companyID string) (int, error)

	// DeleteOlderThan removes interactions created before the cutoff.
	// Returns the number of records removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// ConnectorStorage persists connector configurations
type ConnectorStorage interface {
	SaveConnector(ctx context.Context, connector *models.Connector) error
	GetConnector(ctx context.Context, id string) (*models.Connector, error)
	ListConnectors(ctx context.Context, companyID string) ([]*models.Connector, error)
	DeleteConnector(ctx context.Context, id string) error
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	EntryStorage() EntryStorage
	KVStorage() KeyValueStorage
	InteractionStorage() InteractionStorage
	ConnectorStorage() ConnectorStorage
	DB() interface{}

	// LoadKeysFromFiles seeds the KV store from TOML files in dir.
	// A missing directory is not an error.
	LoadKeysFromFiles(ctx context.Context, dir string) error

	// GC runs storage garbage collection. No-op for backends without one.
	GC() error

	Close() error
}
