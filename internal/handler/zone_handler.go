package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/shiva/shipquote/internal/model"
	"github.com/shiva/shipquote/internal/service"
)

type zoneMemberRequest struct {
	Level string `json:"level" validate:"required,oneof=province city district"`
	Value string `json:"value" validate:"required,max=64"`
}

// createZoneRequest is the JSON body for POST /pricing-schemes/{id}/zones.
type createZoneRequest struct {
	Name     string              `json:"name" validate:"required,max=128"`
	Priority int                 `json:"priority"`
	Active   *bool               `json:"active"`
	Members  []zoneMemberRequest `json:"members" validate:"dive"`
}

// patchZoneRequest is the JSON body for PATCH /zones/{id}.
type patchZoneRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=128"`
	Priority *int    `json:"priority"`
	Active   *bool   `json:"active"`
}

// replaceMembersRequest is the JSON body for PUT /zones/{id}/members.
type replaceMembersRequest struct {
	Members []zoneMemberRequest `json:"members" validate:"dive"`
}

// upsertBracketsRequest is the JSON body for PUT /zones/{id}/brackets.
// Each bracket is {min_kg, max_kg, pricing_mode, flat_amount | base_amount, rate_per_kg[, base_kg]}.
type upsertBracketsRequest struct {
	Brackets []model.Bracket `json:"brackets" validate:"required,min=1"`
}

func toMembers(in []zoneMemberRequest) []model.ZoneMember {
	out := make([]model.ZoneMember, len(in))
	for i, m := range in {
		out[i] = model.ZoneMember{Level: model.MemberLevel(m.Level), Value: m.Value}
	}
	return out
}

// ZoneHandler handles zone and bracket HTTP requests.
type ZoneHandler struct {
	catalog   *service.CatalogService
	templates *service.TemplateService
	log       *zap.Logger
}

// NewZoneHandler creates a new zone handler.
func NewZoneHandler(catalog *service.CatalogService, templates *service.TemplateService, log *zap.Logger) *ZoneHandler {
	return &ZoneHandler{catalog: catalog, templates: templates, log: log}
}

// Create handles POST /pricing-schemes/{id}/zones
//
// Request body:
//
//	{"name": "华南", "priority": 0, "members": [{"level": "province", "value": "广东省"}]}
//
// The zone starts unbound; bind it with PUT /zones/{id}/segment-template.
func (h *ZoneHandler) Create(w http.ResponseWriter, r *http.Request) {
	schemeID, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req createZoneRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	out, err := h.catalog.CreateZone(r.Context(), schemeID, model.Zone{
		Name:     req.Name,
		Priority: req.Priority,
		Active:   boolOr(req.Active, true),
		Members:  toMembers(req.Members),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusCreated, out)
}

// List handles GET /pricing-schemes/{id}/zones
func (h *ZoneHandler) List(w http.ResponseWriter, r *http.Request) {
	schemeID, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out, err := h.catalog.ListZones(r.Context(), schemeID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// Get handles GET /zones/{id}
func (h *ZoneHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out, err := h.catalog.GetZone(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// Patch handles PATCH /zones/{id}
func (h *ZoneHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req patchZoneRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out, err := h.catalog.UpdateZone(r.Context(), id, service.ZonePatch{
		Name:     req.Name,
		Priority: req.Priority,
		Active:   req.Active,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// Delete handles DELETE /zones/{id}
func (h *ZoneHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.catalog.DeleteZone(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]int64{"deleted": id})
}

// ReplaceMembers handles PUT /zones/{id}/members
func (h *ZoneHandler) ReplaceMembers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req replaceMembersRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out, err := h.catalog.ReplaceZoneMembers(r.Context(), id, toMembers(req.Members))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// BindTemplate handles PUT /zones/{id}/segment-template
//
// Request body: {"segment_template_id": 12}, or null to unbind.
func (h *ZoneHandler) BindTemplate(w http.ResponseWriter, r *http.Request) {
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
	out, err := h.templates.BindZoneTemplate(r.Context(), id, req.SegmentTemplateID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// ListBrackets handles GET /zones/{id}/brackets
func (h *ZoneHandler) ListBrackets(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out, err := h.catalog.ListBrackets(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// UpsertBrackets handles PUT /zones/{id}/brackets
//
// Request body:
//
//	{"brackets": [{"min_kg": 1, "max_kg": 2, "pricing_mode": "flat", "flat_amount": 20}]}
//
// Each range must be a segment of the zone's effective template.
func (h *ZoneHandler) UpsertBrackets(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req upsertBracketsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	out, err := h.catalog.UpsertBrackets(r.Context(), id, req.Brackets)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, out)
}

// DeleteBracket handles DELETE /brackets/{id}
func (h *ZoneHandler) DeleteBracket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.catalog.DeleteBracket(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]int64{"deleted": id})
}
