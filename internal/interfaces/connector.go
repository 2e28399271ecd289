package interfaces

import (
	"context"

	"github.com/ternarybob/respondo/internal/models"
)

// ConnectorService defines operations for managing connectors
type ConnectorService interface {
	CreateConnector(ctx context.Context, connector *models.Connector) error
	GetConnector(ctx context.Context, id string) (*models.Connector, error)
	ListConnectors(ctx context.Context, companyID string) ([]*models.Connector, error)
	UpdateConnector(ctx context.Context, connector *models.Connector) error
	DeleteConnector(ctx context.Context, id string) error

	// TestConnector verifies the connector's configuration against its backend
	TestConnector(ctx context.Context, id string) error

	// FetchDocuments pulls trainable documents from the connector's source
	FetchDocuments(ctx context.Context, id string) ([]*models.SourceDocument, error)
}

// ConnectorSource defines the common interface for all connector implementations
type ConnectorSource interface {
	// TestConnection verifies if the connector configuration is valid and working
	TestConnection(ctx context.Context) error

	// Fetch retrieves trainable documents from the external source
	Fetch(ctx context.Context) ([]*models.SourceDocument, error)

	// Type returns the connector type
	Type() models.ConnectorType
}
