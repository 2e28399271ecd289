// -----------------------------------------------------------------------
// Email connector - unread support mailbox messages over IMAP
// -----------------------------------------------------------------------

package email

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
)

const (
	defaultFolder = "INBOX"
	defaultPort   = 993
)

// Connector ingests unread messages from an IMAP mailbox. Messages are
// marked seen once ingested so the next run only picks up new mail.
type Connector struct {
	config *models.EmailConnectorConfig
	logger arbor.ILogger
}

var _ interfaces.ConnectorSource = (*Connector)(nil)

// NewConnector creates an email connector from a generic connector model.
func NewConnector(c *models.Connector, logger arbor.ILogger) (*Connector, error) {
	if c.Type != models.ConnectorTypeEmail {
		return nil, fmt.Errorf("%w: invalid connector type %q", models.ErrValidation, c.Type)
	}

	cfg, err := models.ParseConnectorConfig(c)
	if err != nil {
		return nil, err
	}

	return &Connector{
		config: cfg.(*models.EmailConnectorConfig),
		logger: logger,
	}, nil
}

// Type returns the connector type.
func (c *Connector) Type() models.ConnectorType {
	return models.ConnectorTypeEmail
}

// TestConnection dials the server, logs in and opens the folder read-only.
func (c *Connector) TestConnection(ctx context.Context) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Logout()

	if _, err := conn.Select(c.folder(), true); err != nil {
		return fmt.Errorf("failed to select %s: %w", c.folder(), err)
	}
	return nil
}

// Fetch returns the unseen messages matching the subject filter as source
// documents and marks the ingested ones seen.
func (c *Connector) Fetch(ctx context.Context) ([]*models.SourceDocument, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Logout()

	mbox, err := conn.Select(c.folder(), false)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", c.folder(), err)
	}
	if mbox.Messages == 0 {
		c.logger.Debug().Str("folder", c.folder()).Msg("No messages in folder")
		return nil, nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	seqNums, err := conn.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search for unseen messages: %w", err)
	}
	if len(seqNums) == 0 {
		c.logger.Debug().Str("folder", c.folder()).Msg("No unseen messages")
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, len(seqNums))

	done := make(chan error, 1)
	go func() {
		done <- conn.Fetch(seqSet, []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, section.FetchItem()}, messages)
	}()

	var docs []*models.SourceDocument
	ingested := new(imap.SeqSet)

	for msg := range messages {
		if msg == nil || msg.Envelope == nil {
			continue
		}

		subject := msg.Envelope.Subject
		if !c.matchesSubject(subject) {
			continue
		}

		body, err := parseTextBody(msg, section)
		if err != nil {
			c.logger.Warn().Err(err).Uint32("seq", msg.SeqNum).Msg("Message body skipped")
			continue
		}
		if body == "" {
			continue
		}

		from := ""
		if len(msg.Envelope.From) > 0 {
			from = msg.Envelope.From[0].Address()
		}

		docs = append(docs, &models.SourceDocument{
			Source:  messageSource(msg.Envelope),
			Title:   subject,
			Content: body,
			Metadata: map[string]interface{}{
				"from":    from,
				"subject": subject,
				"date":    msg.Envelope.Date,
			},
		})
		ingested.AddNum(msg.SeqNum)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	if !ingested.Empty() {
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := conn.Store(ingested, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to mark messages as seen")
		}
	}

	c.logger.Info().
		Str("folder", c.folder()).
		Int("unseen", len(seqNums)).
		Int("ingested", len(docs)).
		Msg("Mailbox fetch complete")

	return docs, nil
}

// dial connects over TLS and logs in.
func (c *Connector) dial() (*client.Client, error) {
	port := c.config.Port
	if port == 0 {
		port = defaultPort
	}
	addr := fmt.Sprintf("%s:%d", c.config.Host, port)

	conn, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := conn.Login(c.config.Username, c.config.Password); err != nil {
		conn.Logout()
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}
	return conn, nil
}

func (c *Connector) folder() string {
	if c.config.Folder != "" {
		return c.config.Folder
	}
	return defaultFolder
}

func (c *Connector) matchesSubject(subject string) bool {
	if c.config.SubjectFilter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(subject), strings.ToLower(c.config.SubjectFilter))
}

func messageSource(envelope *imap.Envelope) string {
	if envelope.MessageId != "" {
		return "email:" + strings.Trim(envelope.MessageId, "<>")
	}
	return "email:" + envelope.Subject
}

// parseTextBody extracts the text/plain part from a fetched message.
func parseTextBody(msg *imap.Message, section *imap.BodySectionName) (string, error) {
	r := msg.GetBody(section)
	if r == nil {
		return "", fmt.Errorf("no body section")
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to create mail reader: %w", err)
	}

	var body string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read next part: %w", err)
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			if strings.HasPrefix(contentType, "text/plain") {
				b, err := io.ReadAll(p.Body)
				if err != nil {
					return "", fmt.Errorf("failed to read body: %w", err)
				}
				body = string(b)
			}
		}
	}

	return strings.TrimSpace(body), nil
}
