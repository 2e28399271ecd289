// -----------------------------------------------------------------------
// Training pipeline - feeds scraped, connector and seed content into the
// knowledge base
// -----------------------------------------------------------------------

package training

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
	"github.com/ternarybob/respondo/internal/services/content"
)

const (
	categoryWebsite = "website"
	sourceSeed      = "seed"
)

// Service turns external content into knowledge entries. Every path runs the
// same normalization: markdown is reduced to plain text before the knowledge
// service analyzes, chunks and vectorizes it.
type Service struct {
	knowledge  interfaces.KnowledgeService
	scraper    interfaces.ScraperService
	connectors interfaces.ConnectorService
	logger     arbor.ILogger
}

var _ interfaces.TrainingService = (*Service)(nil)

// NewService creates a training service over the knowledge ingestion
// pipeline and its content sources.
func NewService(knowledge interfaces.KnowledgeService, scraper interfaces.ScraperService, connectors interfaces.ConnectorService, logger arbor.ILogger) *Service {
	return &Service{
		knowledge:  knowledge,
		scraper:    scraper,
		connectors: connectors,
		logger:     logger,
	}
}

// TrainFromText ingests a single piece of raw text through the normalization
// pipeline.
func (s *Service) TrainFromText(ctx context.Context, companyID string, req *interfaces.AddEntryRequest) (*models.KnowledgeEntry, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company id is required", models.ErrValidation)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request is required", models.ErrValidation)
	}

	normalized := *req
	normalized.Content = content.MarkdownToText(req.Content)
	if normalized.Content == "" {
		return nil, fmt.Errorf("%w: content is required", models.ErrValidation)
	}

	return s.knowledge.Add(ctx, companyID, &normalized)
}

// TrainFromDocuments ingests a batch of source documents. Documents without
// usable text are skipped and individual ingestion failures are recorded in
// the result instead of aborting the batch.
func (s *Service) TrainFromDocuments(ctx context.Context, companyID string, docs []*models.SourceDocument) (*interfaces.TrainingResult, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company id is required", models.ErrValidation)
	}

	result := &interfaces.TrainingResult{CompanyID: companyID}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if doc == nil {
			result.Skipped++
			continue
		}

		req, ok := s.buildRequest(doc)
		if !ok {
			result.Skipped++
			s.logger.Debug().
				Str("source", doc.Source).
				Msg("Document skipped, no usable text")
			continue
		}

		entry, err := s.knowledge.Add(ctx, companyID, req)
		if err != nil {
			result.Failed++
			result.SourceErrors = append(result.SourceErrors, fmt.Sprintf("%s: %v", doc.Source, err))
			s.logger.Warn().
				Err(err).
				Str("company_id", companyID).
				Str("source", doc.Source).
				Msg("Document ingestion failed")
			continue
		}

		recordOutcome(result, entry)
	}

	s.logger.Info().
		Str("company_id", companyID).
		Int("documents", len(docs)).
		Int("ingested", result.Ingested).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Training run finished")

	return result, nil
}

// TrainFromWebsite crawls a site and ingests its pages under the website
// category.
func (s *Service) TrainFromWebsite(ctx context.Context, companyID, startURL string) (*interfaces.TrainingResult, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company id is required", models.ErrValidation)
	}

	pages, err := s.scraper.Scrape(ctx, startURL)
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		if page.Category == "" {
			page.Category = categoryWebsite
		}
	}

	s.logger.Info().
		Str("company_id", companyID).
		Str("url", startURL).
		Int("pages", len(pages)).
		Msg("Website scrape complete, ingesting pages")

	return s.TrainFromDocuments(ctx, companyID, pages)
}

// TrainFromConnector pulls documents from a configured connector. The
// connector must belong to the company and be enabled; documents default to
// the connector type as their category.
func (s *Service) TrainFromConnector(ctx context.Context, companyID, connectorID string) (*interfaces.TrainingResult, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company id is required", models.ErrValidation)
	}
	if connectorID == "" {
		return nil, fmt.Errorf("%w: connector id is required", models.ErrValidation)
	}

	connector, err := s.connectors.GetConnector(ctx, connectorID)
	if err != nil {
		return nil, err
	}
	if connector.CompanyID != companyID {
		return nil, fmt.Errorf("%w: connector %s", models.ErrNotFound, connectorID)
	}
	if !connector.Enabled {
		return nil, fmt.Errorf("%w: connector %s is disabled", models.ErrValidation, connectorID)
	}

	docs, err := s.connectors.FetchDocuments(ctx, connectorID)
	if err != nil {
		return nil, err
	}

	for _, doc := range docs {
		if doc != nil && doc.Category == "" {
			doc.Category = string(connector.Type)
		}
	}

	return s.TrainFromDocuments(ctx, companyID, docs)
}

type seedEntry struct {
	Content  string `yaml:"content"`
	Source   string `yaml:"source,omitempty"`
	Category string `yaml:"category,omitempty"`
}

type seedFile struct {
	CompanyID string      `yaml:"company_id"`
	Entries   []seedEntry `yaml:"entries"`
}

// ImportSeeds loads knowledge seed YAML files from a directory. A missing
// directory is not an error; unreadable or incomplete files are skipped with
// a warning. Returns one result per company found in the seed files.
func (s *Service) ImportSeeds(ctx context.Context, dir string) (map[string]*interfaces.TrainingResult, error) {
	results := make(map[string]*interfaces.TrainingResult)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		s.logger.Debug().Str("dir", dir).Msg("Seed directory not found, skipping import")
		return results, nil
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(file.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		seed, err := loadSeedFile(filepath.Join(dir, file.Name()))
		if err != nil {
			s.logger.Warn().Err(err).Str("file", file.Name()).Msg("Seed file skipped")
			continue
		}
		if seed.CompanyID == "" {
			s.logger.Warn().Str("file", file.Name()).Msg("Seed file skipped, company_id missing")
			continue
		}

		result := results[seed.CompanyID]
		if result == nil {
			result = &interfaces.TrainingResult{CompanyID: seed.CompanyID}
			results[seed.CompanyID] = result
		}

		for _, item := range seed.Entries {
			req := &interfaces.AddEntryRequest{
				Content:  item.Content,
				Source:   item.Source,
				Category: item.Category,
			}
			if req.Source == "" {
				req.Source = sourceSeed
			}

			entry, err := s.TrainFromText(ctx, seed.CompanyID, req)
			if err != nil {
				result.Failed++
				result.SourceErrors = append(result.SourceErrors, fmt.Sprintf("%s: %v", file.Name(), err))
				s.logger.Warn().
					Err(err).
					Str("file", file.Name()).
					Str("company_id", seed.CompanyID).
					Msg("Seed entry ingestion failed")
				continue
			}

			recordOutcome(result, entry)
		}
	}

	for companyID, result := range results {
		s.logger.Info().
			Str("company_id", companyID).
			Int("ingested", result.Ingested).
			Int("skipped", result.Skipped).
			Int("failed", result.Failed).
			Msg("Knowledge seeds imported")
	}

	return results, nil
}

// buildRequest normalizes a source document into an ingestion request.
// Returns false when the document carries no usable text.
func (s *Service) buildRequest(doc *models.SourceDocument) (*interfaces.AddEntryRequest, bool) {
	plain := content.MarkdownToText(doc.Content)
	if plain == "" {
		return nil, false
	}

	metadata := make(map[string]interface{}, len(doc.Metadata)+2)
	for k, v := range doc.Metadata {
		metadata[k] = v
	}
	if doc.Title != "" {
		metadata["title"] = doc.Title
	}
	if _, ok := metadata["headings"]; !ok {
		if headings := content.ExtractHeadings(doc.Content); len(headings) > 0 {
			metadata["headings"] = headingMaps(headings)
		}
	}

	return &interfaces.AddEntryRequest{
		Content:  plain,
		Source:   doc.Source,
		Category: doc.Category,
		Metadata: metadata,
	}, true
}

// recordOutcome classifies an ingested entry as new or a duplicate refresh.
// Add keeps the original creation stamp when it refreshes existing content,
// so a later update stamp marks the duplicate.
func recordOutcome(result *interfaces.TrainingResult, entry *models.KnowledgeEntry) {
	if entry.UpdatedAt.After(entry.CreatedAt) {
		result.Skipped++
		return
	}
	result.Ingested++
	result.EntryIDs = append(result.EntryIDs, entry.ID)
}

func headingMaps(headings []content.Heading) []map[string]interface{} {
	maps := make([]map[string]interface{}, 0, len(headings))
	for _, h := range headings {
		maps = append(maps, map[string]interface{}{
			"level": h.Level,
			"text":  h.Text,
		})
	}
	return maps
}

func loadSeedFile(path string) (*seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &seed, nil
}
