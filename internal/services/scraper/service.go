package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/respondo/internal/common"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
)

// crawlTarget pairs a URL with its link depth from the start page
type crawlTarget struct {
	url   string
	depth int
}

// Service crawls websites breadth-first and turns pages into source
// documents for the training pipeline.
type Service struct {
	config    *common.ScraperConfig
	processor *Processor
	renderer  *Renderer
	client    *http.Client
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

var _ interfaces.ScraperService = (*Service)(nil)

func NewService(config *common.ScraperConfig, logger arbor.ILogger) *Service {
	delay := config.RequestDelay
	if delay <= 0 {
		delay = time.Second
	}

	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &Service{
		config:    config,
		processor: NewProcessor(config.OnlyMainContent, logger),
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Every(delay), 1),
		logger:    logger,
	}

	if config.EnableJavaScript {
		s.renderer = NewRenderer(config.UserAgent, config.JavaScriptWaitTime, timeout, logger)
	}

	return s
}

// Scrape walks same-domain links breadth-first from startURL up to the
// configured page and depth limits. Pages that fail to fetch or parse are
// logged and skipped; the crawl continues.
func (s *Service) Scrape(ctx context.Context, startURL string) ([]*models.SourceDocument, error) {
	start, err := parsePageURL(startURL)
	if err != nil {
		return nil, err
	}

	maxPages := s.config.MaxPages
	if maxPages <= 0 {
		maxPages = 50
	}
	maxDepth := s.config.MaxDepth
	if maxDepth < 0 {
		maxDepth = 0
	}

	s.logger.Info().
		Str("start_url", start.String()).
		Int("max_pages", maxPages).
		Int("max_depth", maxDepth).
		Msg("Starting website crawl")

	visited := make(map[string]bool)
	queue := []crawlTarget{{url: start.String(), depth: 0}}
	pages := make([]*models.SourceDocument, 0, maxPages)

	for len(queue) > 0 && len(pages) < maxPages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		target := queue[0]
		queue = queue[1:]

		if visited[target.url] || target.depth > maxDepth {
			continue
		}
		visited[target.url] = true

		if common.HasBlockedExtension(target.url) {
			s.logger.Debug().Str("url", target.url).Msg("Skipping blocked file type")
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return pages, err
		}

		s.logger.Debug().Str("url", target.url).Int("depth", target.depth).Msg("Scraping page")

		doc, links, err := s.fetchAndProcess(ctx, target.url)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", target.url).Msg("Page skipped")
			continue
		}
		pages = append(pages, doc)

		if target.depth < maxDepth {
			for _, link := range links {
				if !visited[link] {
					queue = append(queue, crawlTarget{url: link, depth: target.depth + 1})
				}
			}
		}
	}

	s.logger.Info().
		Int("pages", len(pages)).
		Int("urls_visited", len(visited)).
		Msg("Website crawl completed")

	return pages, nil
}

// ScrapePage fetches and processes a single page
func (s *Service) ScrapePage(ctx context.Context, pageURL string) (*models.SourceDocument, error) {
	parsed, err := parsePageURL(pageURL)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	doc, _, err := s.fetchAndProcess(ctx, parsed.String())
	return doc, err
}

// Close releases the headless browser if JavaScript rendering was enabled
func (s *Service) Close() {
	if s.renderer != nil {
		s.renderer.Shutdown()
	}
}

// fetchAndProcess retrieves one page and reduces it to a source document
// plus the same-domain links it references.
func (s *Service) fetchAndProcess(ctx context.Context, pageURL string) (*models.SourceDocument, []string, error) {
	var (
		html        string
		statusCode  int
		contentType string
		err         error
	)

	if s.renderer != nil {
		html, err = s.renderer.Fetch(ctx, pageURL)
		if err != nil {
			return nil, nil, err
		}
		statusCode = http.StatusOK
		contentType = "text/html"
	} else {
		html, statusCode, contentType, err = s.fetchHTML(ctx, pageURL)
		if err != nil {
			return nil, nil, err
		}
	}

	processed, err := s.processor.Process(html, pageURL)
	if err != nil {
		return nil, nil, err
	}

	metadata := processed.Metadata
	metadata["status_code"] = statusCode
	metadata["content_type"] = contentType

	doc := &models.SourceDocument{
		Source:   pageURL,
		Title:    processed.Title,
		Content:  processed.Markdown,
		Metadata: metadata,
	}

	return doc, processed.Links, nil
}

// fetchHTML performs a plain HTTP fetch with size and content-type checks
func (s *Service) fetchHTML(ctx context.Context, pageURL string) (string, int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", 0, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", resp.StatusCode, "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(strings.ToLower(contentType), "text/html") {
		return "", resp.StatusCode, contentType, fmt.Errorf("unsupported content type %q for %s", contentType, pageURL)
	}

	maxBody := s.config.MaxBodySize
	if maxBody <= 0 {
		maxBody = 10 * 1024 * 1024
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxBody)+1))
	if err != nil {
		return "", resp.StatusCode, contentType, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxBody {
		return "", resp.StatusCode, contentType, fmt.Errorf("content exceeds %d bytes for %s", maxBody, pageURL)
	}

	return string(body), resp.StatusCode, contentType, nil
}

func parsePageURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL %q", models.ErrValidation, raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", models.ErrValidation, parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: URL %q has no host", models.ErrValidation, raw)
	}
	return parsed, nil
}

