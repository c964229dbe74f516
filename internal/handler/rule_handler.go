package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shiva/shipquote/internal/model"
	"github.com/shiva/shipquote/internal/service"
)

// createSurchargeRequest is the JSON body for POST /pricing-schemes/{id}/surcharges.
type createSurchargeRequest struct {
	Name      string                   `json:"name" validate:"required,max=128"`
	Active    *bool                    `json:"active"`
	Condition model.SurchargeCondition `json:"condition"`
	Detail    model.SurchargeDetail    `json:"detail"`
}

// patchSurchargeRequest is the JSON body for PATCH /surcharges/{id}.
type patchSurchargeRequest struct {
	Name      *string                   `json:"name" validate:"omitempty,min=1,max=128"`
	Active    *bool                     `json:"active"`
	Condition *model.SurchargeCondition `json:"condition"`
	Detail    *model.SurchargeDetail    `json:"detail"`
}

type destAdjustmentRequest struct {
	Scope    string          `json:"scope" validate:"required,oneof=province city"`
	Province string          `json:"province" validate:"required,max=64"`
	City     string          `json:"city" validate:"required_if=Scope city,max=64"`
	Amount   decimal.Decimal `json:"amount"`
	Active   *bool           `json:"active"`
}

// upsertDestAdjustmentsRequest is the JSON body for PUT /pricing-schemes/{id}/dest-adjustments.
type upsertDestAdjustmentsRequest struct {
	Adjustments []destAdjustmentRequest `json:"adjustments" validate:"required,min=1,dive"`
}

// RuleHandler handles surcharge and destination adjustment HTTP requests.
type RuleHandler struct {
	catalog *service.CatalogService
	log     *zap.Logger
}

// NewRuleHandler creates a new rule handler.
func NewRuleHandler(catalog *service.CatalogService, log *zap.Logger) *RuleHandler {
	return &RuleHandler{catalog: catalog, log: log}
}

// ─── Surcharges ─────────────────────────────────────────────

// CreateSurcharge handles POST /pricing-schemes/{id}/surcharges
//
// Request body:
//
//	{
//	  "name": "remote area",
//	  "condition": {"dest": {"province": ["西藏自治区"]}, "flag_any": ["liquid"]},
//	  "detail": {"kind": "table", "tiers": [{"max_kg": 1, "amount": 3}, {"max_kg": null, "amount": 6}]}
//	}
func (h *RuleHandler) CreateSurcharge(w http.ResponseWriter, r *http.Request) {
	schemeID, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req createSurchargeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	out, err := h.catalog.CreateSurcharge(r.Context(), schemeID, model.Surcharge{
		Name:      req.Name,
		Active:    boolOr(req.Active, true),
		Condition: req.Condition,
		Detail:    req.Detail,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusCreated, out)
}

// ListSurcharges handles GET /pricing-schemes/{id}/surcharges
func (h *RuleHandler) ListSurcharges(w http.ResponseWriter, r *http.Request) {
	schemeID, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out, err := h.catalog.ListSurcharges(r.Context(), schemeID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// PatchSurcharge handles PATCH /surcharges/{id}
func (h *RuleHandler) PatchSurcharge(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req patchSurchargeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out, err := h.catalog.UpdateSurcharge(r.Context(), id, service.SurchargePatch{
		Name:      req.Name,
		Active:    req.Active,
		Condition: req.Condition,
		Detail:    req.Detail,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// DeleteSurcharge handles DELETE /surcharges/{id}
func (h *RuleHandler) DeleteSurcharge(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.catalog.DeleteSurcharge(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]int64{"deleted": id})
}

// ─── Destination adjustments ────────────────────────────────

// ListDestAdjustments handles GET /pricing-schemes/{id}/dest-adjustments
func (h *RuleHandler) ListDestAdjustments(w http.ResponseWriter, r *http.Request) {
	schemeID, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out, err := h.catalog.ListDestAdjustments(r.Context(), schemeID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// UpsertDestAdjustments handles PUT /pricing-schemes/{id}/dest-adjustments
//
// Rows are keyed by (scope, province, city); an existing key is overwritten.
// Negative amounts are discounts.
func (h *RuleHandler) UpsertDestAdjustments(w http.ResponseWriter, r *http.Request) {
	schemeID, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req upsertDestAdjustmentsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	adjs := make([]model.DestAdjustment, len(req.Adjustments))
	for i, a := range req.Adjustments {
		adjs[i] = model.DestAdjustment{
			Scope:    model.AdjustmentScope(a.Scope),
			Province: a.Province,
			City:     a.City,
			Amount:   a.Amount,
			Active:   boolOr(a.Active, true),
		}
	}
	out, err := h.catalog.UpsertDestAdjustments(r.Context(), schemeID, adjs)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// DeleteDestAdjustment handles DELETE /dest-adjustments/{id}
func (h *RuleHandler) DeleteDestAdjustment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.catalog.DeleteDestAdjustment(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]int64{"deleted": id})
}
