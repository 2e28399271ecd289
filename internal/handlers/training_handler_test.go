package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
)

// mockTrainingService implements interfaces.TrainingService for testing
type mockTrainingService struct {
	textFunc      func(ctx context.Context, companyID string, req *interfaces.AddEntryRequest) (*models.KnowledgeEntry, error)
	websiteFunc   func(ctx context.Context, companyID, startURL string) (*interfaces.TrainingResult, error)
	connectorFunc func(ctx context.Context, companyID, connectorID string) (*interfaces.TrainingResult, error)
}

func (m *mockTrainingService) TrainFromText(ctx context.Context, companyID string, req *interfaces.AddEntryRequest) (*models.KnowledgeEntry, error) {
	if m.textFunc != nil {
		return m.textFunc(ctx, companyID, req)
	}
	return createTestEntry("e1", companyID, req.Content), nil
}

func (m *mockTrainingService) TrainFromDocuments(ctx context.Context, companyID string, docs []*models.SourceDocument) (*interfaces.TrainingResult, error) {
	return &interfaces.TrainingResult{CompanyID: companyID}, nil
}

func (m *mockTrainingService) TrainFromWebsite(ctx context.Context, companyID, startURL string) (*interfaces.TrainingResult, error) {
	if m.websiteFunc != nil {
		return m.websiteFunc(ctx, companyID, startURL)
	}
	return &interfaces.TrainingResult{CompanyID: companyID}, nil
}

func (m *mockTrainingService) TrainFromConnector(ctx context.Context, companyID, connectorID string) (*interfaces.TrainingResult, error) {
	if m.connectorFunc != nil {
		return m.connectorFunc(ctx, companyID, connectorID)
	}
	return &interfaces.TrainingResult{CompanyID: companyID}, nil
}

func (m *mockTrainingService) ImportSeeds(ctx context.Context, dir string) (map[string]*interfaces.TrainingResult, error) {
	return nil, nil
}

func newTestTrainingHandler(service interfaces.TrainingService) *TrainingHandler {
	return NewTrainingHandler(service, arbor.NewLogger())
}

func TestTrainingTextHandler_Success(t *testing.T) {
	var capturedSource string
	service := &mockTrainingService{
		textFunc: func(ctx context.Context, companyID string, req *interfaces.AddEntryRequest) (*models.KnowledgeEntry, error) {
			capturedSource = req.Source
			return createTestEntry("e1", companyID, req.Content), nil
		},
	}

	handler := newTestTrainingHandler(service)
	rec := postJSON(handler.TextHandler, "/api/training/text", map[string]string{
		"company_id": "acme",
		"content":    "Our support line is open 24/7.",
		"source":     "faq-import",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if capturedSource != "faq-import" {
		t.Errorf("Expected source 'faq-import', got %q", capturedSource)
	}
}

func TestTrainingTextHandler_MissingContent(t *testing.T) {
	handler := newTestTrainingHandler(&mockTrainingService{})
	rec := postJSON(handler.TextHandler, "/api/training/text", map[string]string{
		"company_id": "acme",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestTrainingWebsiteHandler_Success(t *testing.T) {
	var capturedURL string
	service := &mockTrainingService{
		websiteFunc: func(ctx context.Context, companyID, startURL string) (*interfaces.TrainingResult, error) {
			capturedURL = startURL
			return &interfaces.TrainingResult{
				CompanyID: companyID,
				Ingested:  3,
				Skipped:   1,
				EntryIDs:  []string{"e1", "e2", "e3"},
			}, nil
		},
	}

	handler := newTestTrainingHandler(service)
	rec := postJSON(handler.WebsiteHandler, "/api/training/website", map[string]string{
		"company_id": "acme",
		"url":        "https://example.com",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if capturedURL != "https://example.com" {
		t.Errorf("Expected URL passthrough, got %q", capturedURL)
	}

	var result interfaces.TrainingResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.Ingested != 3 {
		t.Errorf("Expected 3 ingested, got %d", result.Ingested)
	}
	if result.Skipped != 1 {
		t.Errorf("Expected 1 skipped, got %d", result.Skipped)
	}
}

func TestTrainingWebsiteHandler_MalformedURL(t *testing.T) {
	handler := newTestTrainingHandler(&mockTrainingService{})
	rec := postJSON(handler.WebsiteHandler, "/api/training/website", map[string]string{
		"company_id": "acme",
		"url":        "not a url",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed URL, got %d", rec.Code)
	}
}

func TestTrainingWebsiteHandler_MissingTenant(t *testing.T) {
	handler := newTestTrainingHandler(&mockTrainingService{})
	rec := postJSON(handler.WebsiteHandler, "/api/training/website", map[string]string{
		"url": "https://example.com",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestTrainingConnectorHandler_Success(t *testing.T) {
	var capturedConnector string
	service := &mockTrainingService{
		connectorFunc: func(ctx context.Context, companyID, connectorID string) (*interfaces.TrainingResult, error) {
			capturedConnector = connectorID
			return &interfaces.TrainingResult{CompanyID: companyID, Ingested: 5}, nil
		},
	}

	handler := newTestTrainingHandler(service)
	rec := postJSON(handler.ConnectorHandler, "/api/training/connector", map[string]string{
		"company_id":   "acme",
		"connector_id": "conn-9",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if capturedConnector != "conn-9" {
		t.Errorf("Expected connector 'conn-9', got %q", capturedConnector)
	}
}

func TestTrainingConnectorHandler_MissingConnectorID(t *testing.T) {
	handler := newTestTrainingHandler(&mockTrainingService{})
	rec := postJSON(handler.ConnectorHandler, "/api/training/connector", map[string]string{
		"company_id": "acme",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestTrainingConnectorHandler_UnknownConnector(t *testing.T) {
	service := &mockTrainingService{
		connectorFunc: func(ctx context.Context, companyID, connectorID string) (*interfaces.TrainingResult, error) {
			return nil, fmt.Errorf("%w: connector %s", models.ErrNotFound, connectorID)
		},
	}

	handler := newTestTrainingHandler(service)
	rec := postJSON(handler.ConnectorHandler, "/api/training/connector", map[string]string{
		"company_id":   "acme",
		"connector_id": "missing",
	})

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}
