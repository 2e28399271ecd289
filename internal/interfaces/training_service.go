package interfaces

import (
	"context"

	"github.com/ternarybob/respondo/internal/models"
)

// TrainingResult summarizes one training run
type TrainingResult struct {
	CompanyID    string   `json:"company_id"`
	Ingested     int      `json:"ingested"`
	Skipped      int      `json:"skipped"`
	Failed       int      `json:"failed"`
	EntryIDs     []string `json:"entry_ids,omitempty"`
	SourceErrors []string `json:"source_errors,omitempty"`
}

// TrainingService feeds external content into a company's knowledge base
type TrainingService interface {
	// TrainFromText ingests a single piece of raw text
	TrainFromText(ctx context.Context, companyID string, req *AddEntryRequest) (*models.KnowledgeEntry, error)

	// TrainFromDocuments ingests a batch of source documents. Individual
	// document failures are recorded in the result, not returned as errors.
	TrainFromDocuments(ctx context.Context, companyID string, docs []*models.SourceDocument) (*TrainingResult, error)

	// TrainFromWebsite crawls a site and ingests its pages
	TrainFromWebsite(ctx context.Context, companyID, startURL string) (*TrainingResult, error)

	// TrainFromConnector pulls documents from a configured connector
	TrainFromConnector(ctx context.Context, companyID, connectorID string) (*TrainingResult, error)

	// ImportSeeds loads knowledge seed YAML files from a directory
	ImportSeeds(ctx context.Context, dir string) (map[string]*TrainingResult, error)
}

// ScraperService crawls a website and returns its pages as source documents
type ScraperService interface {
	// Scrape walks same-domain links breadth-first from startURL, up to the
	// configured page and depth limits
	Scrape(ctx context.Context, startURL string) ([]*models.SourceDocument, error)

	// ScrapePage fetches and processes a single page
	ScrapePage(ctx context.Context, pageURL string) (*models.SourceDocument, error)

	// Close releases the shared HTTP client and any browser allocator
	Close()
}
