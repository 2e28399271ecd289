package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/respondo/internal/models"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a standard success JSON response.
func WriteSuccess(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": message,
	})
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteServiceError maps sentinel errors from the service layer onto HTTP
// status codes: validation failures become 400, missing records 404 and
// everything else 500.
func WriteServiceError(w http.ResponseWriter, err error) error {
	switch {
	case errors.Is(err, models.ErrValidation):
		return WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		return WriteError(w, http.StatusNotFound, err.Error())
	default:
		return WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// DecodeBody parses a JSON request body into dst.
func DecodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// ValidationMessage renders a validator error into a single readable line
// naming the first offending field.
func ValidationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return fmt.Sprintf("field '%s' is required", fe.Field())
		}
		return fmt.Sprintf("field '%s' failed validation '%s'", fe.Field(), fe.Tag())
	}
	return err.Error()
}

// RequesterParams carries the caller identity fields shared by request DTOs.
// A client_id marks the caller as authenticated and becomes the tenant key;
// otherwise the declared company_id scopes the request.
type RequesterParams struct {
	CompanyID   string `json:"company_id"`
	ClientID    string `json:"client_id"`
	CompanyName string `json:"company_name"`
}

// Requester resolves the params into the matching identity variant.
func (p RequesterParams) Requester() models.Requester {
	if p.ClientID != "" {
		return models.AuthenticatedRequester(p.ClientID, p.CompanyName)
	}
	return models.UnauthenticatedRequester(p.CompanyID)
}

// RequesterFromQuery builds a requester from URL query parameters, used by
// GET and DELETE endpoints that carry no body.
func RequesterFromQuery(r *http.Request) models.Requester {
	q := r.URL.Query()
	return RequesterParams{
		CompanyID:   q.Get("company_id"),
		ClientID:    q.Get("client_id"),
		CompanyName: q.Get("company_name"),
	}.Requester()
}

// RequireCompany rejects requests that resolve to no tenant. Returns the
// company ID and true when the requester is usable.
func RequireCompany(w http.ResponseWriter, requester models.Requester) (string, bool) {
	companyID := requester.CompanyID()
	if companyID == "" {
		WriteError(w, http.StatusBadRequest, "company_id or client_id is required")
		return "", false
	}
	return companyID, true
}

// QueryInt reads an integer query parameter, falling back to def when the
// parameter is absent or not a positive number.
func QueryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
