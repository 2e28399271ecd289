// -----------------------------------------------------------------------
// GitHub connector - markdown documentation from a repository tree
// -----------------------------------------------------------------------

package github

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2"

	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
)

// maxFiles caps how many repository files one fetch will pull.
const maxFiles = 100

// Connector pulls markdown documentation files from a GitHub repository.
type Connector struct {
	client *github.Client
	config *models.GitHubConnectorConfig
	logger arbor.ILogger
}

var _ interfaces.ConnectorSource = (*Connector)(nil)

// NewConnector creates a GitHub connector from a generic connector model.
func NewConnector(c *models.Connector, logger arbor.ILogger) (*Connector, error) {
	if c.Type != models.ConnectorTypeGitHub {
		return nil, fmt.Errorf("%w: invalid connector type %q", models.ErrValidation, c.Type)
	}

	cfg, err := models.ParseConnectorConfig(c)
	if err != nil {
		return nil, err
	}
	config := cfg.(*models.GitHubConnectorConfig)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.Token})
	tc := oauth2.NewClient(context.Background(), ts)

	return &Connector{
		client: github.NewClient(tc),
		config: config,
		logger: logger,
	}, nil
}

// Type returns the connector type.
func (c *Connector) Type() models.ConnectorType {
	return models.ConnectorTypeGitHub
}

// TestConnection verifies the token grants access to the configured
// repository.
func (c *Connector) TestConnection(ctx context.Context) error {
	_, _, err := c.client.Repositories.Get(ctx, c.config.Owner, c.config.Repo)
	if err != nil {
		return fmt.Errorf("github connection test failed: %w", err)
	}
	return nil
}

// Fetch walks the repository tree and returns the markdown files under the
// configured paths as source documents. Files that cannot be fetched are
// skipped.
func (c *Connector) Fetch(ctx context.Context) ([]*models.SourceDocument, error) {
	branch := c.config.Branch
	if branch == "" {
		repo, _, err := c.client.Repositories.Get(ctx, c.config.Owner, c.config.Repo)
		if err != nil {
			return nil, fmt.Errorf("failed to get repository: %w", err)
		}
		branch = repo.GetDefaultBranch()
	}

	tree, _, err := c.client.Git.GetTree(ctx, c.config.Owner, c.config.Repo, branch, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository tree: %w", err)
	}

	var docs []*models.SourceDocument
	for _, entry := range tree.Entries {
		if len(docs) >= maxFiles {
			c.logger.Warn().
				Int("limit", maxFiles).
				Msg("File limit reached, remaining repository files skipped")
			break
		}
		if entry.GetType() != "blob" {
			continue
		}

		path := entry.GetPath()
		if !isMarkdown(path) || !underConfiguredPaths(path, c.config.Paths) {
			continue
		}

		doc, err := c.fetchFile(ctx, branch, path)
		if err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("Repository file skipped")
			continue
		}
		docs = append(docs, doc)
	}

	c.logger.Info().
		Str("repo", c.config.Owner+"/"+c.config.Repo).
		Str("branch", branch).
		Int("files", len(docs)).
		Msg("GitHub fetch complete")

	return docs, nil
}

// fetchFile downloads and decodes one repository file.
func (c *Connector) fetchFile(ctx context.Context, branch, path string) (*models.SourceDocument, error) {
	content, _, _, err := c.client.Repositories.GetContents(ctx, c.config.Owner, c.config.Repo, path, &github.RepositoryContentGetOptions{
		Ref: branch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get file content: %w", err)
	}
	if content == nil {
		return nil, fmt.Errorf("file not found: %s", path)
	}

	text, err := content.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}

	return &models.SourceDocument{
		Source:  fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", c.config.Owner, c.config.Repo, branch, path),
		Title:   titleFromPath(path),
		Content: text,
		Metadata: map[string]interface{}{
			"path":   path,
			"branch": branch,
			"sha":    content.GetSHA(),
			"size":   content.GetSize(),
		},
	}, nil
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

// underConfiguredPaths reports whether a repository path falls under one of
// the configured path prefixes. No configured paths means the whole tree.
func underConfiguredPaths(path string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, prefix := range prefixes {
		prefix = strings.TrimSuffix(prefix, "/")
		if prefix == "" || path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func titleFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
