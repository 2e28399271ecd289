package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondo/internal/interfaces"
)

// KVServiceInterface defines the methods needed from the KV service
type KVServiceInterface interface {
	Get(ctx context.Context, key string) (string, error)
	GetPair(ctx context.Context, key string) (*interfaces.KeyValuePair, error)
	Set(ctx context.Context, key string, value string, description string) error
	Upsert(ctx context.Context, key string, value string, description string) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]interfaces.KeyValuePair, error)
}

// KVHandler handles variables (key/value) storage HTTP requests. Values are
// API keys and similar secrets, so list responses mask them.
type KVHandler struct {
	kvService KVServiceInterface
	logger    arbor.ILogger
}

// NewKVHandler creates a new KV handler for managing variables
func NewKVHandler(kvService KVServiceInterface, logger arbor.ILogger) *KVHandler {
	return &KVHandler{
		kvService: kvService,
		logger:    logger,
	}
}

// kvKeyFromPath extracts and decodes the key segment of /api/kv/{key}.
func kvKeyFromPath(r *http.Request) (string, error) {
	encoded := strings.TrimPrefix(r.URL.Path, "/api/kv/")
	key, err := url.QueryUnescape(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid key encoding: %w", err)
	}
	if key == "" {
		return "", fmt.Errorf("missing key parameter")
	}
	return key, nil
}

// ListHandler handles GET /api/kv - lists all variables with masked values
func (h *KVHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.kvService.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list key/value pairs")
		WriteError(w, http.StatusInternalServerError, "Failed to list key/value pairs")
		return
	}

	masked := make([]map[string]interface{}, len(pairs))
	for i, pair := range pairs {
		masked[i] = map[string]interface{}{
			"key":         pair.Key,
			"value":       maskValue(pair.Value),
			"description": pair.Description,
			"created_at":  pair.CreatedAt,
			"updated_at":  pair.UpdatedAt,
		}
	}

	WriteJSON(w, http.StatusOK, masked)
}

// GetHandler handles GET /api/kv/{key} - returns the full value for editing
func (h *KVHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	key, err := kvKeyFromPath(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := h.kvService.GetPair(r.Context(), key)
	if err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			WriteError(w, http.StatusNotFound, "Key not found")
			return
		}
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to get key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to retrieve key/value pair")
		return
	}

	WriteJSON(w, http.StatusOK, pair)
}

// CreateHandler handles POST /api/kv - creates a new variable
func (h *KVHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key         string `json:"key"`
		Value       string `json:"value"`
		Description string `json:"description"`
	}

	if err := DecodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Key == "" || req.Value == "" {
		WriteError(w, http.StatusBadRequest, "Key and value are required")
		return
	}

	// Key names resolve case-insensitively in {key-name} replacement, so
	// creation rejects names that only differ by case.
	if existing := h.findKeyFold(r.Context(), req.Key); existing != "" {
		WriteError(w, http.StatusConflict, fmt.Sprintf("A key named '%s' already exists. Key names are case-insensitive.", existing))
		return
	}

	if err := h.kvService.Set(r.Context(), req.Key, req.Value, req.Description); err != nil {
		h.logger.Error().Err(err).Str("key", req.Key).Msg("Failed to create key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to create key/value pair")
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "success",
		"key":    req.Key,
	})
}

// UpdateHandler handles PUT /api/kv/{key} - upserts a variable. An empty
// value updates the description only, preserving the stored value.
func (h *KVHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	key, err := kvKeyFromPath(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Value       string `json:"value"`
		Description string `json:"description"`
	}

	if err := DecodeBody(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	value := req.Value
	if value == "" {
		pair, err := h.kvService.GetPair(r.Context(), key)
		if err != nil {
			if errors.Is(err, interfaces.ErrKeyNotFound) {
				WriteError(w, http.StatusNotFound, "Key not found - cannot update description for non-existent key")
				return
			}
			h.logger.Error().Err(err).Str("key", key).Msg("Failed to get current value")
			WriteError(w, http.StatusInternalServerError, "Failed to retrieve current value")
			return
		}
		value = pair.Value
	}

	created, err := h.kvService.Upsert(r.Context(), key, value, req.Description)
	if err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to upsert key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to upsert key/value pair")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	WriteJSON(w, status, map[string]interface{}{
		"status":  "success",
		"key":     key,
		"created": created,
	})
}

// DeleteHandler handles DELETE /api/kv/{key}
func (h *KVHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	key, err := kvKeyFromPath(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.kvService.Delete(r.Context(), key); err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			WriteError(w, http.StatusNotFound, "Key not found")
			return
		}
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to delete key/value pair")
		WriteError(w, http.StatusInternalServerError, "Failed to delete key/value pair")
		return
	}

	WriteSuccess(w, "Key/value pair deleted")
}

// findKeyFold returns the stored key that matches name case-insensitively,
// or empty when no such key exists.
func (h *KVHandler) findKeyFold(ctx context.Context, name string) string {
	pairs, err := h.kvService.List(ctx)
	if err != nil {
		// Listing failures fall through to the storage layer's own checks.
		h.logger.Warn().Err(err).Msg("Failed to list keys for duplicate check")
		return ""
	}

	for _, pair := range pairs {
		if strings.EqualFold(pair.Key, name) {
			return pair.Key
		}
	}
	return ""
}

// maskValue hides sensitive variable values in list responses. Short values
// mask entirely; longer ones keep the first and last four characters.
func maskValue(value string) string {
	if len(value) < 8 {
		return "••••••••"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
