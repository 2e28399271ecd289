package email

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/models"
)

func emailConnectorModel(config string) *models.Connector {
	return &models.Connector{
		ID:        "conn-1",
		CompanyID: "acme",
		Name:      "support inbox",
		Type:      models.ConnectorTypeEmail,
		Config:    json.RawMessage(config),
		Enabled:   true,
	}
}

func TestNewConnector(t *testing.T) {
	connector, err := NewConnector(emailConnectorModel(`{"host":"mail.acme.example.com","username":"support","password":"secret"}`), arbor.NewLogger())

	require.NoError(t, err)
	assert.Equal(t, models.ConnectorTypeEmail, connector.Type())
	assert.Equal(t, defaultFolder, connector.folder())
}

func TestNewConnectorRejectsWrongType(t *testing.T) {
	model := emailConnectorModel(`{"host":"h","username":"u","password":"p"}`)
	model.Type = models.ConnectorTypeGitHub

	_, err := NewConnector(model, arbor.NewLogger())
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestNewConnectorValidatesConfig(t *testing.T) {
	_, err := NewConnector(emailConnectorModel(`{"username":"u","password":"p"}`), arbor.NewLogger())
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = NewConnector(emailConnectorModel(`{"host":"h"}`), arbor.NewLogger())
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestFolderOverride(t *testing.T) {
	connector, err := NewConnector(emailConnectorModel(`{"host":"h","username":"u","password":"p","folder":"Support"}`), arbor.NewLogger())

	require.NoError(t, err)
	assert.Equal(t, "Support", connector.folder())
}

func TestMatchesSubject(t *testing.T) {
	connector := &Connector{config: &models.EmailConnectorConfig{}}
	assert.True(t, connector.matchesSubject("anything"))

	connector.config.SubjectFilter = "faq"
	assert.True(t, connector.matchesSubject("New FAQ entries"))
	assert.True(t, connector.matchesSubject("faq update"))
	assert.False(t, connector.matchesSubject("Invoice overdue"))
}

func TestMessageSource(t *testing.T) {
	withID := &imap.Envelope{MessageId: "<abc-123@mail.example.com>", Subject: "Refunds"}
	assert.Equal(t, "email:abc-123@mail.example.com", messageSource(withID))

	withoutID := &imap.Envelope{Subject: "Refunds"}
	assert.Equal(t, "email:Refunds", messageSource(withoutID))
}

func fetchedMessage(t *testing.T, section *imap.BodySectionName, raw string) *imap.Message {
	t.Helper()
	return &imap.Message{
		SeqNum: 1,
		Body: map[*imap.BodySectionName]imap.Literal{
			section: bytes.NewBufferString(raw),
		},
	}
}

func TestParseTextBody(t *testing.T) {
	raw := strings.Join([]string{
		"From: customer@example.com",
		"To: support@acme.example.com",
		"Subject: Refund policy",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"What is your refund policy?",
		"",
	}, "\r\n")

	section := &imap.BodySectionName{}
	body, err := parseTextBody(fetchedMessage(t, section, raw), section)

	require.NoError(t, err)
	assert.Equal(t, "What is your refund policy?", body)
}

func TestParseTextBodyPicksPlainPart(t *testing.T) {
	raw := strings.Join([]string{
		"From: customer@example.com",
		"Subject: Hours",
		"Content-Type: multipart/alternative; boundary=b1",
		"",
		"--b1",
		"Content-Type: text/plain",
		"",
		"Plain version.",
		"--b1",
		"Content-Type: text/html",
		"",
		"<p>HTML version.</p>",
		"--b1--",
		"",
	}, "\r\n")

	section := &imap.BodySectionName{}
	body, err := parseTextBody(fetchedMessage(t, section, raw), section)

	require.NoError(t, err)
	assert.Equal(t, "Plain version.", body)
}

func TestParseTextBodyNoSection(t *testing.T) {
	section := &imap.BodySectionName{}
	_, err := parseTextBody(&imap.Message{SeqNum: 1}, section)
	assert.Error(t, err)
}
