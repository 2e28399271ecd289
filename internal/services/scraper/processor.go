// -----------------------------------------------------------------------
// Page processor - title, main content, links and metadata from raw HTML
// -----------------------------------------------------------------------

package scraper

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/common"
)

// mainContentSelectors is tried in order before falling back to body
const mainContentSelectors = "main, article, .content, #content, .main, #main"

// boilerplateSelectors are removed before content extraction
const boilerplateSelectors = "script, style, nav, footer, header"

// maxHeadings caps how many headings land in page metadata
const maxHeadings = 20

// Processor turns raw page HTML into the markdown and metadata the
// training pipeline ingests.
type Processor struct {
	onlyMainContent bool
	logger          arbor.ILogger
}

// ProcessedPage is the result of processing one fetched page
type ProcessedPage struct {
	Title    string
	Markdown string
	Links    []string
	Metadata map[string]interface{}
}

func NewProcessor(onlyMainContent bool, logger arbor.ILogger) *Processor {
	return &Processor{
		onlyMainContent: onlyMainContent,
		logger:          logger,
	}
}

// Process extracts title, main content as markdown, same-domain links and
// metadata from an HTML document.
func (p *Processor) Process(html string, sourceURL string) (*ProcessedPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := p.extractTitle(doc)

	// Boilerplate is dropped before links and metadata are collected, so
	// navigation and footer links never enter the crawl queue.
	doc.Find(boilerplateSelectors).Remove()

	links := p.extractLinks(doc, sourceURL)
	metadata := p.extractMetadata(doc, len(html))

	markdown, err := p.convertToMarkdown(doc, sourceURL)
	if err != nil {
		return nil, err
	}

	result := &ProcessedPage{
		Title:    title,
		Markdown: markdown,
		Links:    links,
		Metadata: metadata,
	}

	p.logger.Debug().
		Str("source_url", sourceURL).
		Str("title", title).
		Int("markdown_length", len(markdown)).
		Int("links_found", len(links)).
		Msg("Page processed")

	return result, nil
}

// extractTitle extracts the page title from various sources
func (p *Processor) extractTitle(doc *goquery.Document) string {
	if title := doc.Find("title").First().Text(); title != "" {
		return strings.TrimSpace(title)
	}

	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists && ogTitle != "" {
		return strings.TrimSpace(ogTitle)
	}

	if h1 := doc.Find("h1").First().Text(); h1 != "" {
		return strings.TrimSpace(h1)
	}

	if twitterTitle, exists := doc.Find("meta[name='twitter:title']").Attr("content"); exists && twitterTitle != "" {
		return strings.TrimSpace(twitterTitle)
	}

	return "Untitled"
}

// convertToMarkdown converts the page's main content area to markdown
func (p *Processor) convertToMarkdown(doc *goquery.Document, sourceURL string) (string, error) {
	content := doc.Selection
	if p.onlyMainContent {
		if main := doc.Find(mainContentSelectors).First(); main.Length() > 0 {
			content = main
		} else if body := doc.Find("body"); body.Length() > 0 {
			content = body
		}
	}

	contentHTML, err := goquery.OuterHtml(content)
	if err != nil {
		return "", fmt.Errorf("failed to serialize content: %w", err)
	}

	domain := ""
	if parsed, err := url.Parse(sourceURL); err == nil {
		domain = parsed.Scheme + "://" + parsed.Host
	}

	converter := md.NewConverter(domain, true, nil)
	markdown, err := converter.ConvertString(contentHTML)
	if err != nil {
		return "", fmt.Errorf("failed to convert content to markdown: %w", err)
	}

	return strings.TrimSpace(markdown), nil
}

// extractLinks returns normalized absolute same-site links
func (p *Processor) extractLinks(doc *goquery.Document, sourceURL string) []string {
	base, err := url.Parse(sourceURL)
	if err != nil {
		p.logger.Warn().Err(err).Str("source_url", sourceURL).Msg("Failed to parse source URL for link resolution")
		return nil
	}

	seen := make(map[string]bool)
	links := []string{}

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}

		resolved, ok := common.NormalizeURL(base, href)
		if !ok {
			return
		}

		parsed, err := url.Parse(resolved)
		if err != nil || !common.SameHost(base, parsed) {
			return
		}

		if !seen[resolved] {
			seen[resolved] = true
			links = append(links, resolved)
		}
	})

	return links
}

// extractMetadata collects meta tags and document headings
func (p *Processor) extractMetadata(doc *goquery.Document, contentLength int) map[string]interface{} {
	metadata := map[string]interface{}{
		"scraped_at":     time.Now().UTC(),
		"content_length": contentLength,
	}

	metaTags := make(map[string]string)
	doc.Find("meta").Each(func(i int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok {
			name, ok = s.Attr("property")
		}
		content, hasContent := s.Attr("content")
		if ok && name != "" && hasContent && content != "" {
			metaTags[name] = content
		}
	})
	if len(metaTags) > 0 {
		metadata["meta_tags"] = metaTags
	}

	headings := []map[string]interface{}{}
	doc.Find("h1, h2, h3, h4, h5, h6").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if len(headings) >= maxHeadings {
			return false
		}
		level := int(goquery.NodeName(s)[1] - '0')
		headings = append(headings, map[string]interface{}{
			"level": level,
			"text":  strings.TrimSpace(s.Text()),
		})
		return true
	})
	if len(headings) > 0 {
		metadata["headings"] = headings
	}

	return metadata
}
