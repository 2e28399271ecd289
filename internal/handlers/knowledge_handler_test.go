package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
)

// mockKnowledgeService implements interfaces.KnowledgeService for testing
type mockKnowledgeService struct {
	addFunc            func(ctx context.Context, companyID string, req *interfaces.AddEntryRequest) (*models.KnowledgeEntry, error)
	getFunc            func(ctx context.Context, companyID, entryID string) (*models.KnowledgeEntry, error)
	listFunc           func(ctx context.Context, companyID string) ([]*models.KnowledgeEntry, error)
	listByCategoryFunc func(ctx context.Context, companyID, category string) ([]*models.KnowledgeEntry, error)
	deleteFunc         func(ctx context.Context, companyID, entryID string) error
	clearFunc          func(ctx context.Context, companyID string) (int, error)
	statsFunc          func(ctx context.Context, companyID string) (*models.KnowledgeStats, error)
}

func (m *mockKnowledgeService) Add(ctx context.Context, companyID string, req *interfaces.AddEntryRequest) (*models.KnowledgeEntry, error) {
	if m.addFunc != nil {
		return m.addFunc(ctx, companyID, req)
	}
	return createTestEntry("e1", companyID, req.Content), nil
}

func (m *mockKnowledgeService) Get(ctx context.Context, companyID, entryID string) (*models.KnowledgeEntry, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, companyID, entryID)
	}
	return nil, fmt.Errorf("%w: entry %s", models.ErrNotFound, entryID)
}

func (m *mockKnowledgeService) List(ctx context.Context, companyID string) ([]*models.KnowledgeEntry, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, companyID)
	}
	return nil, nil
}

func (m *mockKnowledgeService) ListByCategory(ctx context.Context, companyID, category string) ([]*models.KnowledgeEntry, error) {
	if m.listByCategoryFunc != nil {
		return m.listByCategoryFunc(ctx, companyID, category)
	}
	return nil, nil
}

func (m *mockKnowledgeService) Delete(ctx context.Context, companyID, entryID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, companyID, entryID)
	}
	return nil
}

func (m *mockKnowledgeService) Clear(ctx context.Context, companyID string) (int, error) {
	if m.clearFunc != nil {
		return m.clearFunc(ctx, companyID)
	}
	return 0, nil
}

func (m *mockKnowledgeService) Stats(ctx context.Context, companyID string) (*models.KnowledgeStats, error) {
	if m.statsFunc != nil {
		return m.statsFunc(ctx, companyID)
	}
	return &models.KnowledgeStats{}, nil
}

func (m *mockKnowledgeService) Count(ctx context.Context, companyID string) (int, error) {
	return 0, nil
}

func (m *mockKnowledgeService) Invalidate(companyID string) {}

// createTestEntry builds a stored entry as the knowledge service would
func createTestEntry(id, companyID, content string) *models.KnowledgeEntry {
	now := time.Now()
	return &models.KnowledgeEntry{
		ID:        id,
		CompanyID: companyID,
		Content:   content,
		Source:    "manual",
		Category:  "general",
		Chunks: []models.VectorizedChunk{
			{Chunk: models.TextChunk{ID: id + "-c0", Content: content}},
		},
		Analysis: models.AnalysisResult{
			WordCount:    4,
			QualityScore: 0.7,
			Topics:       []string{"hours"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newTestKnowledgeHandler(service interfaces.KnowledgeService) *KnowledgeHandler {
	return NewKnowledgeHandler(service, arbor.NewLogger())
}

func TestKnowledgeAddHandler_Success(t *testing.T) {
	var capturedCompany string
	var capturedReq *interfaces.AddEntryRequest
	service := &mockKnowledgeService{
		addFunc: func(ctx context.Context, companyID string, req *interfaces.AddEntryRequest) (*models.KnowledgeEntry, error) {
			capturedCompany = companyID
			capturedReq = req
			return createTestEntry("e1", companyID, req.Content), nil
		},
	}

	handler := newTestKnowledgeHandler(service)
	rec := postJSON(handler.AddHandler, "/api/knowledge", map[string]interface{}{
		"company_id": "acme",
		"content":    "We open at 9am weekdays.",
		"category":   "hours",
		"metadata":   map[string]interface{}{"origin": "faq"},
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if capturedCompany != "acme" {
		t.Errorf("Expected company 'acme', got %q", capturedCompany)
	}
	if capturedReq.Category != "hours" {
		t.Errorf("Expected category 'hours', got %q", capturedReq.Category)
	}
	if capturedReq.Metadata["origin"] != "faq" {
		t.Errorf("Expected metadata passthrough, got %v", capturedReq.Metadata)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["id"] != "e1" {
		t.Errorf("Expected id 'e1', got %v", response["id"])
	}
	if int(response["chunk_count"].(float64)) != 1 {
		t.Errorf("Expected chunk_count 1, got %v", response["chunk_count"])
	}
	// Vectors stay server-side
	if _, present := response["chunks"]; present {
		t.Error("Expected chunks to be omitted from the API response")
	}
}

func TestKnowledgeAddHandler_MissingContent(t *testing.T) {
	handler := newTestKnowledgeHandler(&mockKnowledgeService{})
	rec := postJSON(handler.AddHandler, "/api/knowledge", map[string]string{
		"company_id": "acme",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestKnowledgeAddHandler_MissingTenant(t *testing.T) {
	handler := newTestKnowledgeHandler(&mockKnowledgeService{})
	rec := postJSON(handler.AddHandler, "/api/knowledge", map[string]string{
		"content": "orphan text",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestKnowledgeListHandler(t *testing.T) {
	service := &mockKnowledgeService{
		listFunc: func(ctx context.Context, companyID string) ([]*models.KnowledgeEntry, error) {
			return []*models.KnowledgeEntry{
				createTestEntry("e1", companyID, "first"),
				createTestEntry("e2", companyID, "second"),
			}, nil
		},
	}

	handler := newTestKnowledgeHandler(service)
	req := httptest.NewRequest("GET", "/api/knowledge?company_id=acme", nil)
	rec := httptest.NewRecorder()

	handler.ListHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&response)
	if int(response["count"].(float64)) != 2 {
		t.Errorf("Expected count 2, got %v", response["count"])
	}
}

func TestKnowledgeListHandler_CategoryFilter(t *testing.T) {
	var capturedCategory string
	service := &mockKnowledgeService{
		listByCategoryFunc: func(ctx context.Context, companyID, category string) ([]*models.KnowledgeEntry, error) {
			capturedCategory = category
			return nil, nil
		},
	}

	handler := newTestKnowledgeHandler(service)
	req := httptest.NewRequest("GET", "/api/knowledge?company_id=acme&category=pricing", nil)
	rec := httptest.NewRecorder()

	handler.ListHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if capturedCategory != "pricing" {
		t.Errorf("Expected category filter 'pricing', got %q", capturedCategory)
	}
}

func TestKnowledgeClearHandler(t *testing.T) {
	service := &mockKnowledgeService{
		clearFunc: func(ctx context.Context, companyID string) (int, error) {
			return 7, nil
		},
	}

	handler := newTestKnowledgeHandler(service)
	req := httptest.NewRequest("DELETE", "/api/knowledge?company_id=acme", nil)
	rec := httptest.NewRecorder()

	handler.ClearHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&response)
	if int(response["removed"].(float64)) != 7 {
		t.Errorf("Expected removed 7, got %v", response["removed"])
	}
}

func TestKnowledgeDeleteEntryHandler(t *testing.T) {
	var capturedCompany, capturedEntry string
	service := &mockKnowledgeService{
		deleteFunc: func(ctx context.Context, companyID, entryID string) error {
			capturedCompany = companyID
			capturedEntry = entryID
			return nil
		},
	}

	handler := newTestKnowledgeHandler(service)
	req := httptest.NewRequest("DELETE", "/api/knowledge/e42?company_id=acme", nil)
	rec := httptest.NewRecorder()

	handler.DeleteEntryHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if capturedCompany != "acme" || capturedEntry != "e42" {
		t.Errorf("Expected acme/e42, got %s/%s", capturedCompany, capturedEntry)
	}
}

func TestKnowledgeDeleteEntryHandler_NotFound(t *testing.T) {
	service := &mockKnowledgeService{
		deleteFunc: func(ctx context.Context, companyID, entryID string) error {
			return fmt.Errorf("%w: entry %s", models.ErrNotFound, entryID)
		},
	}

	handler := newTestKnowledgeHandler(service)
	req := httptest.NewRequest("DELETE", "/api/knowledge/missing?company_id=acme", nil)
	rec := httptest.NewRecorder()

	handler.DeleteEntryHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestKnowledgeStatsHandler(t *testing.T) {
	service := &mockKnowledgeService{
		statsFunc: func(ctx context.Context, companyID string) (*models.KnowledgeStats, error) {
			return &models.KnowledgeStats{
				TotalEntries: 12,
				Categories:   map[string]int{"general": 8, "pricing": 4},
				Sources:      map[string]int{"manual": 12},
			}, nil
		},
	}

	handler := newTestKnowledgeHandler(service)
	req := httptest.NewRequest("GET", "/api/knowledge/stats?company_id=acme", nil)
	rec := httptest.NewRecorder()

	handler.StatsHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response models.KnowledgeStats
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.TotalEntries != 12 {
		t.Errorf("Expected 12 entries, got %d", response.TotalEntries)
	}
	if response.Categories["pricing"] != 4 {
		t.Errorf("Expected 4 pricing entries, got %d", response.Categories["pricing"])
	}
}

func TestKnowledgeStatsHandler_ServiceError(t *testing.T) {
	service := &mockKnowledgeService{
		statsFunc: func(ctx context.Context, companyID string) (*models.KnowledgeStats, error) {
			return nil, fmt.Errorf("%w: badger iteration", models.ErrStorage)
		},
	}

	handler := newTestKnowledgeHandler(service)
	req := httptest.NewRequest("GET", "/api/knowledge/stats?company_id=acme", nil)
	rec := httptest.NewRecorder()

	handler.StatsHandler(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}
}
