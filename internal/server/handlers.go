package server

import (
	"context"
	"net/http"
	"strings"

	"tradedesk/internal/audit"
	"tradedesk/internal/pipeline"
	"tradedesk/internal/response"
	"tradedesk/internal/store"
)

type idsRequest struct {
	IDs   []string `json:"ids"`
	CliID string   `json:"cli_id"`
}

// respondResult waits for fn at most the configured batch timeout. A
// pipeline Result is always 200, including ok=false; only giving up on
// the wait is reported as 504.
func (a *App) respondResult(w http.ResponseWriter, r *http.Request, fn func() pipeline.Result) {
	ctx := r.Context()
	if d := a.Config.BatchTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	res, err := pipeline.Await(ctx, fn)
	if err != nil {
		a.Log.Warn("gave up waiting", "path", r.URL.Path, "err", err)
		response.JSONStatus(w, http.StatusGatewayTimeout, res)
		return
	}
	response.JSON(w, res)
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account  string `json:"account"`
		Password string `json:"password"`
	}
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}
	e, err := a.Store.VerifyEmployee(r.Context(), req.Account, req.Password)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, e)
}

func (a *App) handleSetPassword(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Password string `json:"password"`
	}
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}
	if err := a.Store.SetPassword(r.Context(), empID(r), id, req.Password); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, map[string]string{"emp_id": id})
}

func (a *App) handleConvert(w http.ResponseWriter, r *http.Request, entity string) {
	var req idsRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}
	ctx, emp := r.Context(), empID(r)
	var fn func() pipeline.Result
	switch entity {
	case store.Quotes:
		fn = func() pipeline.Result { return a.Pipeline.ConvertQuotesToOffers(ctx, emp, req.IDs) }
	case store.Offers:
		fn = func() pipeline.Result { return a.Pipeline.ConvertOffersToOrders(ctx, emp, req.IDs, req.CliID) }
	case store.Orders:
		fn = func() pipeline.Result { return a.Pipeline.ConvertOrdersToPurchases(ctx, emp, req.IDs) }
	default:
		response.Err(w, "not found", 404)
		return
	}
	a.respondResult(w, r, fn)
}

func (a *App) handleCopyQuotes(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}
	created, err := a.Store.CopyQuotes(r.Context(), empID(r), req.IDs)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, map[string]interface{}{"created": created})
}

func (a *App) handleBatchDelete(w http.ResponseWriter, r *http.Request, entity string) {
	var req idsRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}
	ctx, emp := r.Context(), empID(r)
	a.respondResult(w, r, func() pipeline.Result { return a.Pipeline.BatchDelete(ctx, emp, entity, req.IDs) })
}

func (a *App) handleDelete(w http.ResponseWriter, r *http.Request, entity, id string) {
	ctx, emp := r.Context(), empID(r)
	a.respondResult(w, r, func() pipeline.Result { return a.Pipeline.Delete(ctx, emp, entity, id) })
}

func (a *App) handleCreate(w http.ResponseWriter, r *http.Request, entity string) {
	ctx, emp := r.Context(), empID(r)
	var (
		out interface{}
		err error
	)
	switch entity {
	case store.Offers:
		var in pipeline.NewOffer
		if response.DecodeBody(r, &in) != nil {
			response.Err(w, "invalid body", 400)
			return
		}
		a.respondResult(w, r, func() pipeline.Result { return a.Pipeline.AddOffer(ctx, emp, in) })
		return
	case store.Orders:
		var in pipeline.NewOrder
		if response.DecodeBody(r, &in) != nil {
			response.Err(w, "invalid body", 400)
			return
		}
		a.respondResult(w, r, func() pipeline.Result { return a.Pipeline.AddOrder(ctx, emp, in) })
		return
	case store.Purchases:
		var in pipeline.NewPurchase
		if response.DecodeBody(r, &in) != nil {
			response.Err(w, "invalid body", 400)
			return
		}
		a.respondResult(w, r, func() pipeline.Result { return a.Pipeline.AddPurchase(ctx, emp, in) })
		return
	case store.Quotes:
		var in store.NewQuote
		if response.DecodeBody(r, &in) != nil {
			response.Err(w, "invalid body", 400)
			return
		}
		out, err = a.Store.AddQuote(ctx, emp, in)
	case store.Clients:
		var in store.NewClient
		if response.DecodeBody(r, &in) != nil {
			response.Err(w, "invalid body", 400)
			return
		}
		out, err = a.Store.AddClient(ctx, emp, in)
	case store.Vendors:
		var in store.NewVendor
		if response.DecodeBody(r, &in) != nil {
			response.Err(w, "invalid body", 400)
			return
		}
		out, err = a.Store.AddVendor(ctx, emp, in)
	case store.Employees:
		var in store.NewEmployee
		if response.DecodeBody(r, &in) != nil {
			response.Err(w, "invalid body", 400)
			return
		}
		out, err = a.Store.AddEmployee(ctx, emp, in)
	case store.Rates:
		var in struct {
			RecordDate   string  `json:"record_date"`
			CurrencyCode string  `json:"currency_code"`
			ExchangeRate float64 `json:"exchange_rate"`
		}
		if response.DecodeBody(r, &in) != nil {
			response.Err(w, "invalid body", 400)
			return
		}
		out, err = a.Store.AddRate(ctx, emp, in.RecordDate, in.CurrencyCode, in.ExchangeRate)
	default:
		response.Err(w, "not found", 404)
		return
	}
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSONStatus(w, http.StatusCreated, out)
}

// getRecord reads one record of any readable type.
func (a *App) getRecord(ctx context.Context, entity, id string) (interface{}, bool, error) {
	var (
		out interface{}
		err error
	)
	switch entity {
	case store.Employees:
		out, err = a.Store.GetEmployee(ctx, id)
	case store.Clients:
		out, err = a.Store.GetClient(ctx, id)
	case store.Vendors:
		out, err = a.Store.GetVendor(ctx, id)
	case store.Quotes:
		out, err = a.Store.GetQuote(ctx, id)
	case store.Offers:
		out, err = a.Store.GetOffer(ctx, id)
	case store.Orders:
		out, err = a.Store.GetOrder(ctx, id)
	case store.Purchases:
		out, err = a.Store.GetPurchase(ctx, id)
	default:
		return nil, false, nil
	}
	return out, true, err
}

func (a *App) handleGet(w http.ResponseWriter, r *http.Request, entity, id string) {
	out, ok, err := a.getRecord(r.Context(), entity, id)
	if !ok {
		response.Err(w, "not found", 404)
		return
	}
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, out)
}

func (a *App) handleUpdate(w http.ResponseWriter, r *http.Request, entity, id string) {
	var fields map[string]interface{}
	if err := response.DecodeBody(r, &fields); err != nil {
		response.Err(w, "invalid body", 400)
		return
	}
	ctx := r.Context()
	if err := a.Store.UpdatePartial(ctx, empID(r), entity, id, fields); err != nil {
		response.Fail(w, err)
		return
	}
	out, ok, err := a.getRecord(ctx, entity, id)
	if !ok {
		out = map[string]string{"id": id}
	} else if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, out)
}

func (a *App) handleGetRate(w http.ResponseWriter, r *http.Request, code string) {
	ctx := r.Context()
	code = strings.ToUpper(code)
	history, err := a.Store.ListRates(ctx, code)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, map[string]interface{}{
		"currency_code": code,
		"rate":          a.Store.Rates().Rate(ctx, code),
		"history":       history,
	})
}

func (a *App) handleAudit(w http.ResponseWriter, r *http.Request, entity, id string) {
	e, ok := store.Lookup(entity)
	if !ok {
		response.Err(w, "not found", 404)
		return
	}
	entries, err := audit.List(r.Context(), a.Store.DB(), e.Name, id)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, entries)
}
