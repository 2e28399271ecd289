package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ConnectorType defines the type of external source a connector pulls from
type ConnectorType string

const (
	ConnectorTypeGitHub ConnectorType = "github"
	ConnectorTypeEmail  ConnectorType = "email"
	ConnectorTypePDF    ConnectorType = "pdf"
)

// Connector represents a configured external knowledge source for a company
type Connector struct {
	ID        string          `json:"id"`
	CompanyID string          `json:"company_id" badgerhold:"index"`
	Name      string          `json:"name"`
	Type      ConnectorType   `json:"type"`
	Config    json.RawMessage `json:"config"` // Stored as JSON in DB
	Enabled   bool            `json:"enabled"`
	LastRun   *time.Time      `json:"last_run,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ConnectorConfig is a marker interface for connector configurations
type ConnectorConfig interface {
	Validate() error
}

// ParseConnectorConfig decodes the raw config of a connector into its typed
// form and validates it.
func ParseConnectorConfig(c *Connector) (ConnectorConfig, error) {
	var cfg ConnectorConfig
	switch c.Type {
	case ConnectorTypeGitHub:
		cfg = &GitHubConnectorConfig{}
	case ConnectorTypeEmail:
		cfg = &EmailConnectorConfig{}
	case ConnectorTypePDF:
		cfg = &PDFConnectorConfig{}
	default:
		return nil, fmt.Errorf("%w: unknown connector type %q", ErrValidation, c.Type)
	}
	if err := json.Unmarshal(c.Config, cfg); err != nil {
		return nil, fmt.Errorf("%w: invalid %s connector config: %v", ErrValidation, c.Type, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return cfg, nil
}

// GitHubConnectorConfig defines configuration for GitHub connectors
type GitHubConnectorConfig struct {
	Token  string   `json:"token"`
	Owner  string   `json:"owner"`
	Repo   string   `json:"repo"`
	Branch string   `json:"branch,omitempty"`
	Paths  []string `json:"paths,omitempty"`
}

func (c *GitHubConnectorConfig) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("token is required")
	}
	if c.Owner == "" || c.Repo == "" {
		return fmt.Errorf("owner and repo are required")
	}
	return nil
}

// EmailConnectorConfig defines configuration for IMAP mailbox connectors
type EmailConnectorConfig struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	Folder        string `json:"folder,omitempty"`
	SubjectFilter string `json:"subject_filter,omitempty"`
}

func (c *EmailConnectorConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("username and password are required")
	}
	return nil
}

// PDFConnectorConfig defines configuration for local PDF directory connectors
type PDFConnectorConfig struct {
	Dir     string `json:"dir"`
	Pattern string `json:"pattern,omitempty"`
}

func (c *PDFConnectorConfig) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("dir is required")
	}
	return nil
}
