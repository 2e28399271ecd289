package badger

import (
	"context"
	"fmt"
	"sort"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// EntryStorage implements the EntryStorage interface for Badger. Entries are
// keyed by their ID with a secondary index on CompanyID; a whole-company Save
// runs as one Badger transaction so the stored set never reflects a partial
// write.
type EntryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEntryStorage creates a new EntryStorage instance
func NewEntryStorage(db *BadgerDB, logger arbor.ILogger) interfaces.EntryStorage {
	return &EntryStorage{
		db:     db,
		logger: logger,
	}
}

// Load returns all entries for a company ordered by CreatedAt ascending.
// A company with no stored knowledge yields an empty slice.
func (s *EntryStorage) Load(ctx context.Context, companyID string) ([]*models.KnowledgeEntry, error) {
	var entries []models.KnowledgeEntry
	err := s.db.Store().Find(&entries, badgerhold.Where("CompanyID").Eq(companyID))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load entries for company %s: %w", models.ErrStorage, companyID, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	result := make([]*models.KnowledgeEntry, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	return result, nil
}

// Save replaces the company's entry set atomically. The previous set is
// deleted and the new one written inside a single transaction; on error the
// stored set is unchanged.
func (s *EntryStorage) Save(ctx context.Context, companyID string, entries []*models.KnowledgeEntry) error {
	err := s.db.Store().Badger().Update(func(tx *badgerdb.Txn) error {
		if err := s.db.Store().TxDeleteMatching(tx, &models.KnowledgeEntry{}, badgerhold.Where("CompanyID").Eq(companyID)); err != nil {
			return fmt.Errorf("failed to clear previous entries: %w", err)
		}
		for _, entry := range entries {
			if entry.ID == "" {
				return fmt.Errorf("entry ID is required")
			}
			if err := s.db.Store().TxUpsert(tx, entry.ID, entry); err != nil {
				return fmt.Errorf("failed to write entry %s: %w", entry.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: failed to save entries for company %s: %w", models.ErrStorage, companyID, err)
	}

	s.logger.Debug().
		Str("company_id", companyID).
		Int("entries", len(entries)).
		Msg("Company entry set saved")

	return nil
}

// Companies lists company IDs that have stored knowledge.
func (s *EntryStorage) Companies(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	err := s.db.Store().ForEach(nil, func(entry *models.KnowledgeEntry) error {
		seen[entry.CompanyID] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list companies: %w", models.ErrStorage, err)
	}

	companies := make([]string, 0, len(seen))
	for companyID := range seen {
		companies = append(companies, companyID)
	}
	sort.Strings(companies)
	return companies, nil
}
