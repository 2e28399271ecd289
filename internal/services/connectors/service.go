// -----------------------------------------------------------------------
// Connector management - CRUD over connector storage plus dispatch to the
// typed connector implementations
// -----------------------------------------------------------------------

package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/connectors/email"
	"github.com/ternarybob/respondo/internal/connectors/github"
	"github.com/ternarybob/respondo/internal/connectors/pdf"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
)

// Service implements interfaces.ConnectorService
type Service struct {
	storage interfaces.ConnectorStorage
	logger  arbor.ILogger
}

var _ interfaces.ConnectorService = (*Service)(nil)

// NewService creates a new connector service
func NewService(storage interfaces.ConnectorStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// CreateConnector validates and stores a new connector
func (s *Service) CreateConnector(ctx context.Context, connector *models.Connector) error {
	if connector == nil {
		return fmt.Errorf("%w: connector is required", models.ErrValidation)
	}
	if connector.CompanyID == "" {
		return fmt.Errorf("%w: company id is required", models.ErrValidation)
	}
	if connector.Name == "" {
		return fmt.Errorf("%w: connector name is required", models.ErrValidation)
	}
	if _, err := models.ParseConnectorConfig(connector); err != nil {
		return err
	}

	if connector.ID == "" {
		connector.ID = uuid.New().String()
	}
	now := time.Now()
	connector.CreatedAt = now
	connector.UpdatedAt = now

	if err := s.storage.SaveConnector(ctx, connector); err != nil {
		return fmt.Errorf("failed to save connector: %w", err)
	}

	s.logger.Info().
		Str("connector_id", connector.ID).
		Str("company_id", connector.CompanyID).
		Str("type", string(connector.Type)).
		Msg("Connector created")

	return nil
}

// GetConnector retrieves a connector by ID
func (s *Service) GetConnector(ctx context.Context, id string) (*models.Connector, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: connector id is required", models.ErrValidation)
	}
	return s.storage.GetConnector(ctx, id)
}

// ListConnectors retrieves all connectors for a company
func (s *Service) ListConnectors(ctx context.Context, companyID string) ([]*models.Connector, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company id is required", models.ErrValidation)
	}
	return s.storage.ListConnectors(ctx, companyID)
}

// UpdateConnector replaces a connector's mutable fields. The company and
// creation stamp of the stored connector are preserved.
func (s *Service) UpdateConnector(ctx context.Context, connector *models.Connector) error {
	if connector == nil || connector.ID == "" {
		return fmt.Errorf("%w: connector id is required", models.ErrValidation)
	}
	if connector.Name == "" {
		return fmt.Errorf("%w: connector name is required", models.ErrValidation)
	}

	existing, err := s.storage.GetConnector(ctx, connector.ID)
	if err != nil {
		return err
	}

	connector.CompanyID = existing.CompanyID
	connector.CreatedAt = existing.CreatedAt
	connector.LastRun = existing.LastRun
	connector.UpdatedAt = time.Now()

	if _, err := models.ParseConnectorConfig(connector); err != nil {
		return err
	}

	if err := s.storage.SaveConnector(ctx, connector); err != nil {
		return fmt.Errorf("failed to save connector: %w", err)
	}

	s.logger.Info().Str("connector_id", connector.ID).Msg("Connector updated")
	return nil
}

// DeleteConnector deletes a connector
func (s *Service) DeleteConnector(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: connector id is required", models.ErrValidation)
	}

	if err := s.storage.DeleteConnector(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("connector_id", id).Msg("Connector deleted")
	return nil
}

// TestConnector verifies the connector's configuration against its backend
func (s *Service) TestConnector(ctx context.Context, id string) error {
	connector, err := s.GetConnector(ctx, id)
	if err != nil {
		return err
	}

	source, err := s.newSource(connector)
	if err != nil {
		return err
	}
	return source.TestConnection(ctx)
}

// FetchDocuments pulls trainable documents from the connector's source and
// records the run time.
func (s *Service) FetchDocuments(ctx context.Context, id string) ([]*models.SourceDocument, error) {
	connector, err := s.GetConnector(ctx, id)
	if err != nil {
		return nil, err
	}

	source, err := s.newSource(connector)
	if err != nil {
		return nil, err
	}

	docs, err := source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	connector.LastRun = &now
	connector.UpdatedAt = now
	if err := s.storage.SaveConnector(ctx, connector); err != nil {
		s.logger.Warn().Err(err).Str("connector_id", id).Msg("Failed to record connector run time")
	}

	return docs, nil
}

// newSource builds the typed connector implementation for a connector model
func (s *Service) newSource(connector *models.Connector) (interfaces.ConnectorSource, error) {
	switch connector.Type {
	case models.ConnectorTypeGitHub:
		return github.NewConnector(connector, s.logger)
	case models.ConnectorTypeEmail:
		return email.NewConnector(connector, s.logger)
	case models.ConnectorTypePDF:
		return pdf.NewConnector(connector, s.logger)
	default:
		return nil, fmt.Errorf("%w: unknown connector type %q", models.ErrValidation, connector.Type)
	}
}
