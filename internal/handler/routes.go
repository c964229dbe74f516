package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shiva/shipquote/internal/service"
)

// Handlers groups every API handler.
type Handlers struct {
	Schemes   *SchemeHandler
	Templates *TemplateHandler
	Zones     *ZoneHandler
	Rules     *RuleHandler
	Quotes    *QuoteHandler
}

// NewHandlers wires handlers to their services.
func NewHandlers(
	catalog *service.CatalogService,
	templates *service.TemplateService,
	quotes *service.QuoteService,
	log *zap.Logger,
) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		Schemes:   NewSchemeHandler(catalog, templates, log),
		Templates: NewTemplateHandler(templates, log),
		Zones:     NewZoneHandler(catalog, templates, log),
		Rules:     NewRuleHandler(catalog, log),
		Quotes:    NewQuoteHandler(quotes, log),
	}
}

// RegisterRoutes mounts the API on r, both at the root and under /api/v1.
func RegisterRoutes(r *mux.Router, h *Handlers) {
	mount(r, h)
	mount(r.PathPrefix("/api/v1").Subrouter(), h)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorEnvelope{Error: "ROUTE_NOT_FOUND", Message: "no such route"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorEnvelope{Error: "METHOD_NOT_ALLOWED", Message: "method not allowed"})
	})
}

func mount(r *mux.Router, h *Handlers) {
	const id = "{id:[0-9]+}"

	// Pricing schemes
	r.HandleFunc("/pricing-schemes", h.Schemes.Create).Methods(http.MethodPost)
	r.HandleFunc("/pricing-schemes", h.Schemes.List).Methods(http.MethodGet)
	r.HandleFunc("/pricing-schemes/"+id, h.Schemes.Get).Methods(http.MethodGet)
	r.HandleFunc("/pricing-schemes/"+id, h.Schemes.Patch).Methods(http.MethodPatch)
	r.HandleFunc("/pricing-schemes/"+id+"/default-segment-template", h.Schemes.SetDefaultTemplate).Methods(http.MethodPut)

	// Segment templates and their lifecycle
	r.HandleFunc("/pricing-schemes/"+id+"/segment-templates", h.Templates.Create).Methods(http.MethodPost)
	r.HandleFunc("/pricing-schemes/"+id+"/segment-templates", h.Templates.List).Methods(http.MethodGet)
	r.HandleFunc("/segment-templates/"+id, h.Templates.Get).Methods(http.MethodGet)
	r.HandleFunc("/segment-templates/"+id, h.Templates.Rename).Methods(http.MethodPatch)
	r.HandleFunc("/segment-templates/"+id+"/items", h.Templates.ReplaceItems).Methods(http.MethodPut)
	r.HandleFunc("/segment-templates/"+id+":publish", h.Templates.Publish).Methods(http.MethodPost)
	r.HandleFunc("/segment-templates/"+id+":archive", h.Templates.Archive).Methods(http.MethodPost)
	r.HandleFunc("/segment-templates/"+id+":unarchive", h.Templates.Unarchive).Methods(http.MethodPost)

	// Zones and brackets
	r.HandleFunc("/pricing-schemes/"+id+"/zones", h.Zones.Create).Methods(http.MethodPost)
	r.HandleFunc("/pricing-schemes/"+id+"/zones", h.Zones.List).Methods(http.MethodGet)
	r.HandleFunc("/zones/"+id, h.Zones.Get).Methods(http.MethodGet)
	r.HandleFunc("/zones/"+id, h.Zones.Patch).Methods(http.MethodPatch)
	r.HandleFunc("/zones/"+id, h.Zones.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/zones/"+id+"/members", h.Zones.ReplaceMembers).Methods(http.MethodPut)
	r.HandleFunc("/zones/"+id+"/segment-template", h.Zones.BindTemplate).Methods(http.MethodPut)
	r.HandleFunc("/zones/"+id+"/brackets", h.Zones.ListBrackets).Methods(http.MethodGet)
	r.HandleFunc("/zones/"+id+"/brackets", h.Zones.UpsertBrackets).Methods(http.MethodPut)
	r.HandleFunc("/brackets/"+id, h.Zones.DeleteBracket).Methods(http.MethodDelete)

	// Surcharges and destination adjustments
	r.HandleFunc("/pricing-schemes/"+id+"/surcharges", h.Rules.CreateSurcharge).Methods(http.MethodPost)
	r.HandleFunc("/pricing-schemes/"+id+"/surcharges", h.Rules.ListSurcharges).Methods(http.MethodGet)
	r.HandleFunc("/surcharges/"+id, h.Rules.PatchSurcharge).Methods(http.MethodPatch)
	r.HandleFunc("/surcharges/"+id, h.Rules.DeleteSurcharge).Methods(http.MethodDelete)
	r.HandleFunc("/pricing-schemes/"+id+"/dest-adjustments", h.Rules.ListDestAdjustments).Methods(http.MethodGet)
	r.HandleFunc("/pricing-schemes/"+id+"/dest-adjustments", h.Rules.UpsertDestAdjustments).Methods(http.MethodPut)
	r.HandleFunc("/dest-adjustments/"+id, h.Rules.DeleteDestAdjustment).Methods(http.MethodDelete)

	// Quotes
	r.HandleFunc("/shipping-quote/calc", h.Quotes.Calc).Methods(http.MethodPost)
	r.HandleFunc("/shipping-quote/calc-batch", h.Quotes.CalcBatch).Methods(http.MethodPost)
}
