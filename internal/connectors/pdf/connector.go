// -----------------------------------------------------------------------
// PDF connector - text content from a directory of PDF documents
// -----------------------------------------------------------------------

package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
)

const defaultPattern = "*.pdf"

// Connector extracts text from PDF files in a local directory.
type Connector struct {
	config *models.PDFConnectorConfig
	logger arbor.ILogger
}

var _ interfaces.ConnectorSource = (*Connector)(nil)

// NewConnector creates a PDF connector from a generic connector model.
func NewConnector(c *models.Connector, logger arbor.ILogger) (*Connector, error) {
	if c.Type != models.ConnectorTypePDF {
		return nil, fmt.Errorf("%w: invalid connector type %q", models.ErrValidation, c.Type)
	}

	cfg, err := models.ParseConnectorConfig(c)
	if err != nil {
		return nil, err
	}

	return &Connector{
		config: cfg.(*models.PDFConnectorConfig),
		logger: logger,
	}, nil
}

// Type returns the connector type.
func (c *Connector) Type() models.ConnectorType {
	return models.ConnectorTypePDF
}

// TestConnection verifies the configured directory exists.
func (c *Connector) TestConnection(ctx context.Context) error {
	info, err := os.Stat(c.config.Dir)
	if err != nil {
		return fmt.Errorf("pdf directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("pdf path %s is not a directory", c.config.Dir)
	}
	return nil
}

// Fetch extracts text from every matching PDF in the directory. Files that
// cannot be read or yield no text are skipped.
func (c *Connector) Fetch(ctx context.Context) ([]*models.SourceDocument, error) {
	pattern := c.config.Pattern
	if pattern == "" {
		pattern = defaultPattern
	}

	paths, err := filepath.Glob(filepath.Join(c.config.Dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid pattern %q", models.ErrValidation, pattern)
	}
	sort.Strings(paths)

	var docs []*models.SourceDocument
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return docs, err
		}

		text, pageCount, err := extractText(path)
		if err != nil {
			c.logger.Warn().Err(err).Str("file", path).Msg("PDF skipped")
			continue
		}
		if text == "" {
			c.logger.Debug().Str("file", path).Msg("PDF skipped, no extractable text")
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			c.logger.Warn().Err(err).Str("file", path).Msg("PDF skipped")
			continue
		}

		docs = append(docs, &models.SourceDocument{
			Source:  path,
			Title:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Content: text,
			Metadata: map[string]interface{}{
				"pages":       pageCount,
				"file_size":   info.Size(),
				"modified_at": info.ModTime().UTC(),
			},
		})
	}

	c.logger.Info().
		Str("dir", c.config.Dir).
		Int("files", len(paths)).
		Int("ingested", len(docs)).
		Msg("PDF directory fetch complete")

	return docs, nil
}

// extractText pulls the content streams of every page and joins them in
// page order.
func extractText(path string) (string, int, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir, err := os.MkdirTemp("", "respondo-pdf-")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create extraction dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return "", 0, fmt.Errorf("failed to extract PDF content: %w", err)
	}

	files, _ := os.ReadDir(outDir)
	pageTexts := make(map[int]string)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err != nil {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		pageTexts[pageNum] = strings.TrimSpace(string(content))
	}

	var pages []string
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		if text := pageTexts[pageNum]; text != "" {
			pages = append(pages, text)
		}
	}

	return strings.Join(pages, "\n\n"), pageCount, nil
}
