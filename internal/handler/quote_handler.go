package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shiva/shipquote/internal/model"
	"github.com/shiva/shipquote/internal/service"
)

type destRequest struct {
	Province string `json:"province" validate:"required,max=64"`
	City     string `json:"city" validate:"max=64"`
	District string `json:"district" validate:"max=64"`
}

// QuoteRequest is the JSON body for POST /shipping-quote/calc.
type QuoteRequest struct {
	SchemeID     int64            `json:"scheme_id" validate:"required,gt=0"`
	WarehouseID  int64            `json:"warehouse_id" validate:"gte=0"`
	Dest         destRequest      `json:"dest"`
	RealWeightKg decimal.Decimal  `json:"real_weight_kg"`
	LengthCm     *decimal.Decimal `json:"length_cm"`
	WidthCm      *decimal.Decimal `json:"width_cm"`
	HeightCm     *decimal.Decimal `json:"height_cm"`
	Flags        []string         `json:"flags" validate:"dive,required,max=32"`
}

func (q QuoteRequest) toModel() model.QuoteRequest {
	return model.QuoteRequest{
		SchemeID:    q.SchemeID,
		WarehouseID: q.WarehouseID,
		Dest: model.Destination{
			Province: q.Dest.Province,
			City:     q.Dest.City,
			District: q.Dest.District,
		},
		RealWeightKg: q.RealWeightKg,
		LengthCm:     q.LengthCm,
		WidthCm:      q.WidthCm,
		HeightCm:     q.HeightCm,
		Flags:        q.Flags,
	}
}

// batchQuoteRequest is the JSON body for POST /shipping-quote/calc-batch.
type batchQuoteRequest struct {
	Requests []QuoteRequest `json:"requests" validate:"required,min=1,dive"`
}

// batchItem is one slot of a batch response, in request order.
type batchItem struct {
	Index   int          `json:"index"`
	OK      bool         `json:"ok"`
	Data    *model.Quote `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
	Message string       `json:"message,omitempty"`
}

// QuoteHandler handles shipping quote HTTP requests.
type QuoteHandler struct {
	quotes *service.QuoteService
	log    *zap.Logger
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(quotes *service.QuoteService, log *zap.Logger) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, log: log}
}

// Calc handles POST /shipping-quote/calc
//
// Request body:
//
//	{
//	  "scheme_id": 1, "warehouse_id": 3,
//	  "dest": {"province": "广东省", "city": "深圳市", "district": "南山区"},
//	  "real_weight_kg": 1.5, "length_cm": 30, "width_cm": 20, "height_cm": 10,
//	  "flags": ["liquid"]
//	}
//
// Response: Quote with full breakdown. A matcher failure is a 422 whose error
// code names the reason (NO_ZONE_MATCH, NO_BRACKET_CONFIGURED, …), never a
// zero-amount quote.
func (h *QuoteHandler) Calc(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	quote, err := h.quotes.Quote(r.Context(), req.toModel())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeOK(w, http.StatusOK, quote)
}

// CalcBatch handles POST /shipping-quote/calc-batch
//
// Request body: {"requests": [<calc body>, …]}. Each slot succeeds or fails on
// its own; the response keeps request order.
func (h *QuoteHandler) CalcBatch(w http.ResponseWriter, r *http.Request) {
	var req batchQuoteRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	reqs := make([]model.QuoteRequest, len(req.Requests))
	for i, q := range req.Requests {
		reqs[i] = q.toModel()
	}
	results, err := h.quotes.QuoteBatch(r.Context(), reqs)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	items := make([]batchItem, len(results))
	for i, res := range results {
		items[i] = batchItem{Index: i, OK: res.Err == nil, Data: res.Quote}
		if res.Err != nil {
			apiErr := classify(res.Err)
			items[i].Error = apiErr.Code
			items[i].Message = apiErr.Message
		}
	}
	writeOK(w, http.StatusOK, items)
}
