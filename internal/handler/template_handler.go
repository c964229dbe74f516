package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shiva/shipquote/internal/model"
	"github.com/shiva/shipquote/internal/service"
)

// templateItemRequest is one segment in a template body. Active defaults to true.
type templateItemRequest struct {
	Ord    int              `json:"ord" validate:"gte=0"`
	MinKg  decimal.Decimal  `json:"min_kg"`
	MaxKg  *decimal.Decimal `json:"max_kg"`
	Active *bool            `json:"active"`
}

// createTemplateRequest is the JSON body for POST /pricing-schemes/{id}/segment-templates.
type createTemplateRequest struct {
	Name  string                `json:"name" validate:"required,max=128"`
	Items []templateItemRequest `json:"items" validate:"dive"`
}

// renameTemplateRequest is the JSON body for PATCH /segment-templates/{id}.
type renameTemplateRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

// replaceItemsRequest is the JSON body for PUT /segment-templates/{id}/items.
type replaceItemsRequest struct {
	Items []templateItemRequest `json:"items" validate:"dive"`
}

func toItems(in []templateItemRequest) []model.SegmentTemplateItem {
	out := make([]model.SegmentTemplateItem, len(in))
	for i, it := range in {
		out[i] = model.SegmentTemplateItem{
			Ord:    it.Ord,
			MinKg:  it.MinKg,
			MaxKg:  it.MaxKg,
			Active: boolOr(it.Active, true),
		}
	}
	return out
}

// TemplateHandler handles segment template HTTP requests.
type TemplateHandler struct {
	templates *service.TemplateService
	log       *zap.Logger
}

// NewTemplateHandler creates a new template handler.
func NewTemplateHandler(templates *service.TemplateService, log *zap.Logger) *TemplateHandler {
	return &TemplateHandler{templates: templates, log: log}
}

// Create handles POST /pricing-schemes/{id}/segment-templates
//
// Request body:
//
//	{
//	  "name": "standard",
//	  "items": [
//	    {"ord": 1, "min_kg": 0, "max_kg": 1},
//	    {"ord": 2, "min_kg": 1, "max_kg": null}
//	  ]
//	}
//
// The template starts as a draft. Items may be omitted and supplied later.
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	schemeID, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req createTemplateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	out, err := h.templates.CreateDraft(r.Context(), schemeID, req.Name, toItems(req.Items))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusCreated, out)
}

// List handles GET /pricing-schemes/{id}/segment-templates
//
// Each template carries reference_count, in_use and locked, counted fresh.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	schemeID, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out, err := h.templates.List(r.Context(), schemeID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// Get handles GET /segment-templates/{id}
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.templates.Get)
}

// Rename handles PATCH /segment-templates/{id}
//
// Only the name may change here; it is allowed even while the template is locked.
func (h *TemplateHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req renameTemplateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out, err := h.templates.Rename(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// ReplaceItems handles PUT /segment-templates/{id}/items
//
// Fails with STRUCTURE_LOCKED while any zone references the template.
func (h *TemplateHandler) ReplaceItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req replaceItemsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out, err := h.templates.ReplaceItems(r.Context(), id, toItems(req.Items))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// Publish handles POST /segment-templates/{id}:publish
func (h *TemplateHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.templates.Publish)
}

// Archive handles POST /segment-templates/{id}:archive
//
// Fails with REFERENCED (details.reference_count) while zones still use it.
func (h *TemplateHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.templates.Archive)
}

// Unarchive handles POST /segment-templates/{id}:unarchive
func (h *TemplateHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, h.templates.Unarchive)
}

func (h *TemplateHandler) byID(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, id int64) (*model.TemplateView, error),
) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out, err := op(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}
