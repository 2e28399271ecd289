package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// InteractionStorage implements the InteractionStorage interface for Badger.
// Interactions are append-mostly; reads serve analytics summaries and the
// retention sweep removes aged records.
type InteractionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewInteractionStorage creates a new InteractionStorage instance
func NewInteractionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.InteractionStorage {
	return &InteractionStorage{
		db:     db,
		logger: logger,
	}
}

// Record stores one interaction
func (s *InteractionStorage) Record(ctx context.Context, interaction *models.Interaction) error {
	if interaction.ID == "" {
		return fmt.Errorf("%w: interaction ID is required", models.ErrValidation)
	}
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(interaction.ID, interaction); err != nil {
		return fmt.Errorf("%w: failed to record interaction: %w", models.ErrStorage, err)
	}
	return nil
}

// ListByCompany returns interactions for a company, newest first, up to
// limit. limit <= 0 means no limit.
func (s *InteractionStorage) ListByCompany(ctx context.Context, companyID string, limit int) ([]*models.Interaction, error) {
	query := badgerhold.Where("CompanyID").Eq(companyID).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var interactions []models.Interaction
	if err := s.db.Store().Find(&interactions, query); err != nil {
		return nil, fmt.Errorf("%w: failed to list interactions: %w", models.ErrStorage, err)
	}

	result := make([]*models.Interaction, len(interactions))
	for i := range interactions {
		result[i] = &interactions[i]
	}
	return result, nil
}

// CountByCompany returns the number of stored interactions for a company
func (s *InteractionStorage) CountByCompany(ctx context.Context, companyID string) (int, error) {
	count, err := s.db.Store().Count(&models.Interaction{}, badgerhold.Where("CompanyID").Eq(companyID))
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count interactions: %w", models.ErrStorage, err)
	}
	return int(count), nil
}

// DeleteOlderThan removes interactions created before the cutoff and returns
// the number of records removed.
func (s *InteractionStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := badgerhold.Where("CreatedAt").Lt(cutoff)

	count, err := s.db.Store().Count(&models.Interaction{}, query)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count aged interactions: %w", models.ErrStorage, err)
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.db.Store().DeleteMatching(&models.Interaction{}, query); err != nil {
		return 0, fmt.Errorf("%w: failed to delete aged interactions: %w", models.ErrStorage, err)
	}

	s.logger.Info().
		Int("removed", int(count)).
		Time("cutoff", cutoff).
		Msg("Aged interactions removed")

	return int(count), nil
}
