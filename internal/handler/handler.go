// Package handler contains HTTP request handlers for the pricing engine API.
//
// Every response is an envelope: {"ok": true, "data": …} on success and
// {"ok": false, "error": CODE, "message": …, "details": {…}} on failure.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shiva/shipquote/internal/model"
	"github.com/shiva/shipquote/internal/pricing"
	"github.com/shiva/shipquote/internal/repository"
	"github.com/shiva/shipquote/internal/service"
	"github.com/shiva/shipquote/pkg/logger"
)

// maxBodyBytes caps request bodies; a full calc-batch fits comfortably.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names, not Go ones.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ─── Envelope ───────────────────────────────────────────────

type okEnvelope struct {
	OK   bool `json:"ok"`
	Data any  `json:"data"`
}

type errorEnvelope struct {
	OK      bool           `json:"ok"`
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// writeJSON is a helper that writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, okEnvelope{OK: true, Data: data})
}

// apiError is a failure already mapped to its HTTP shape.
type apiError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *apiError) Error() string { return e.Message }

func badRequest(code, format string, args ...any) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: code, Message: fmt.Sprintf(format, args...)}
}

// writeError maps err onto the error envelope. Unmapped errors are logged and
// reported as INTERNAL without their text.
func writeError(w http.ResponseWriter, r *http.Request, fallback *zap.Logger, err error) {
	apiErr := classify(err)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.FromContext(r.Context(), fallback).Error("request failed",
			zap.String("code", apiErr.Code), zap.Error(err))
	}
	if apiErr.Status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, apiErr.Status, errorEnvelope{
		OK:      false,
		Error:   apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	})
}

// errorMapping pairs a sentinel with its status and code. Order matters:
// the first match wins.
var errorMapping = []struct {
	target error
	status int
	code   string
}{
	// lifecycle guard
	{service.ErrStructureLocked, http.StatusConflict, "STRUCTURE_LOCKED"},
	{service.ErrNotDraft, http.StatusConflict, "NOT_DRAFT"},
	{service.ErrNotPublished, http.StatusConflict, "NOT_PUBLISHED"},
	{service.ErrNotArchived, http.StatusConflict, "NOT_ARCHIVED"},
	{service.ErrTemplateArchived, http.StatusConflict, "TEMPLATE_ARCHIVED"},
	{service.ErrTemplateNotBindable, http.StatusConflict, "TEMPLATE_NOT_BINDABLE"},
	{service.ErrBracketRangeUnknown, http.StatusConflict, "BRACKET_RANGE_UNKNOWN"},
	{service.ErrLockTimeout, http.StatusServiceUnavailable, "LOCK_TIMEOUT"},

	// quote failures
	{pricing.ErrNoZoneMatch, http.StatusUnprocessableEntity, "NO_ZONE_MATCH"},
	{pricing.ErrNoTemplateBound, http.StatusUnprocessableEntity, "NO_TEMPLATE_BOUND"},
	{pricing.ErrNoBracketMatch, http.StatusUnprocessableEntity, "NO_BRACKET_MATCH"},
	{pricing.ErrNoBracketConfigured, http.StatusUnprocessableEntity, "NO_BRACKET_CONFIGURED"},

	// input
	{pricing.ErrInvalidPartition, http.StatusBadRequest, "INVALID_PARTITION"},
	{pricing.ErrInvalidWeight, http.StatusBadRequest, "INVALID_WEIGHT"},
	{model.ErrInvalidPricing, http.StatusBadRequest, "INVALID_PRICING"},
	{model.ErrInvalidSurcharge, http.StatusBadRequest, "INVALID_SURCHARGE"},
	{service.ErrBatchTooLarge, http.StatusBadRequest, "BATCH_TOO_LARGE"},
	{service.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},

	// storage
	{repository.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{repository.ErrConflict, http.StatusConflict, "CONFLICT"},
}

func classify(err error) *apiError {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var refErr *service.ReferencedError
	if errors.As(err, &refErr) {
		return &apiError{
			Status:  http.StatusConflict,
			Code:    "REFERENCED",
			Message: refErr.Error(),
			Details: map[string]any{"template_id": refErr.TemplateID, "reference_count": refErr.Count},
		}
	}

	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			return &apiError{Status: m.status, Code: m.code, Message: err.Error()}
		}
	}
	return &apiError{Status: http.StatusInternalServerError, Code: "INTERNAL", Message: "internal error"}
}

// ─── Request helpers ────────────────────────────────────────

// decode reads a JSON body into dst and runs its validate tags.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("INVALID_BODY", "invalid JSON body: %v", err)
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return badRequest("VALIDATION_ERROR", "%v", err)
	}
	fields := make(map[string]any, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := fieldPath(fe.Namespace())
		fields[path] = fe.Tag()
		msgs = append(msgs, fmt.Sprintf("%s failed %q", path, fe.Tag()))
	}
	apiErr := badRequest("VALIDATION_ERROR", "%s", strings.Join(msgs, "; "))
	apiErr.Details = map[string]any{"fields": fields}
	return apiErr
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("INVALID_ID", "invalid id %q: must be a positive integer", raw)
	}
	return id, nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
