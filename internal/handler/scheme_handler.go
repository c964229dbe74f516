package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/shiva/shipquote/internal/model"
	"github.com/shiva/shipquote/internal/service"
)

// createSchemeRequest is the JSON body for POST /pricing-schemes.
type createSchemeRequest struct {
	Name           string                    `json:"name" validate:"required,max=128"`
	Currency       string                    `json:"currency" validate:"omitempty,len=3,alpha"`
	Priority       int                       `json:"priority"`
	Active         *bool                     `json:"active"`
	BillableWeight *model.BillableWeightRule `json:"billable_weight"`
}

// patchSchemeRequest is the JSON body for PATCH /pricing-schemes/{id}.
type patchSchemeRequest struct {
	Name           *string                   `json:"name" validate:"omitempty,min=1,max=128"`
	Currency       *string                   `json:"currency" validate:"omitempty,len=3,alpha"`
	Priority       *int                      `json:"priority"`
	Active         *bool                     `json:"active"`
	BillableWeight *model.BillableWeightRule `json:"billable_weight"`
}

// bindTemplateRequest is the JSON body for the two binding endpoints. A null
// segment_template_id clears the binding.
type bindTemplateRequest struct {
	SegmentTemplateID *int64 `json:"segment_template_id" validate:"omitempty,gt=0"`
}

// SchemeHandler handles pricing scheme HTTP requests.
type SchemeHandler struct {
	catalog   *service.CatalogService
	templates *service.TemplateService
	log       *zap.Logger
}

// NewSchemeHandler creates a new scheme handler.
func NewSchemeHandler(catalog *service.CatalogService, templates *service.TemplateService, log *zap.Logger) *SchemeHandler {
	return &SchemeHandler{catalog: catalog, templates: templates, log: log}
}

// Create handles POST /pricing-schemes
//
// Request body:
//
//	{
//	  "name": "express", "currency": "CNY", "priority": 0, "active": true,
//	  "billable_weight": {"volumetric_divisor": 8000, "rounding": {"mode": "ceil", "step_kg": 0.5}}
//	}
func (h *SchemeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSchemeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	scheme := model.PricingScheme{
		Name:     req.Name,
		Currency: req.Currency,
		Priority: req.Priority,
		Active:   boolOr(req.Active, true),
	}
	if req.BillableWeight != nil {
		scheme.BillableWeight = *req.BillableWeight
	}

	out, err := h.catalog.CreateScheme(r.Context(), scheme)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusCreated, out)
}

// List handles GET /pricing-schemes
func (h *SchemeHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.ListSchemes(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// Get handles GET /pricing-schemes/{id}
func (h *SchemeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out, err := h.catalog.GetScheme(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// Patch handles PATCH /pricing-schemes/{id}
func (h *SchemeHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req patchSchemeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	out, err := h.catalog.UpdateScheme(r.Context(), id, service.SchemePatch{
		Name:           req.Name,
		Currency:       req.Currency,
		Priority:       req.Priority,
		Active:         req.Active,
		BillableWeight: req.BillableWeight,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// SetDefaultTemplate handles PUT /pricing-schemes/{id}/default-segment-template
//
// The template must be published and belong to this scheme.
func (h *SchemeHandler) SetDefaultTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req bindTemplateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	out, err := h.templates.SetSchemeDefaultTemplate(r.Context(), id, req.SegmentTemplateID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}
