package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ConnectorStorage implements the ConnectorStorage interface for Badger
type ConnectorStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewConnectorStorage creates a new ConnectorStorage instance
func NewConnectorStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ConnectorStorage {
	return &ConnectorStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ConnectorStorage) SaveConnector(ctx context.Context, connector *models.Connector) error {
	if connector.ID == "" {
		return fmt.Errorf("%w: connector ID is required", models.ErrValidation)
	}
	if err := s.db.Store().Upsert(connector.ID, connector); err != nil {
		return fmt.Errorf("%w: failed to save connector: %w", models.ErrStorage, err)
	}
	return nil
}

func (s *ConnectorStorage) GetConnector(ctx context.Context, id string) (*models.Connector, error) {
	var connector models.Connector
	if err := s.db.Store().Get(id, &connector); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: connector %s", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: failed to get connector: %w", models.ErrStorage, err)
	}
	return &connector, nil
}

// ListConnectors returns a company's connectors ordered by CreatedAt DESC
func (s *ConnectorStorage) ListConnectors(ctx context.Context, companyID string) ([]*models.Connector, error) {
	var connectors []models.Connector
	query := badgerhold.Where("CompanyID").Eq(companyID).SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&connectors, query); err != nil {
		return nil, fmt.Errorf("%w: failed to list connectors: %w", models.ErrStorage, err)
	}

	result := make([]*models.Connector, len(connectors))
	for i := range connectors {
		result[i] = &connectors[i]
	}
	return result, nil
}

func (s *ConnectorStorage) DeleteConnector(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Connector{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("%w: connector %s", models.ErrNotFound, id)
		}
		return fmt.Errorf("%w: failed to delete connector: %w", models.ErrStorage, err)
	}
	return nil
}
