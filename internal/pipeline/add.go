package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ansel1/merry"

	"tradedesk/internal/models"
	"tradedesk/internal/store"
	"tradedesk/internal/validation"
)

// NewOffer is the input for AddOffer. Zero quantities default to InquiryQty;
// a positive cost overrides OfferPriceRMB with the marked-up cost.
type NewOffer struct {
	QuoteID        string  `json:"quote_id"`
	VendorID       string  `json:"vendor_id"`
	InquiryMPN     string  `json:"inquiry_mpn"`
	QuotedMPN      string  `json:"quoted_mpn"`
	InquiryBrand   string  `json:"inquiry_brand"`
	QuotedBrand    string  `json:"quoted_brand"`
	InquiryQty     int     `json:"inquiry_qty"`
	ActualQty      int     `json:"actual_qty"`
	QuotedQty      int     `json:"quoted_qty"`
	CostPriceRMB   float64 `json:"cost_price_rmb"`
	OfferPriceRMB  float64 `json:"offer_price_rmb"`
	Platform       string  `json:"platform"`
	DateCode       string  `json:"date_code"`
	DeliveryDate   string  `json:"delivery_date"`
	OfferStatement string  `json:"offer_statement"`
	Remark         string  `json:"remark"`
}

// NewOrder is the input for AddOrder. With an OfferID, blank fields are
// taken from the offer.
type NewOrder struct {
	CliID        string  `json:"cli_id"`
	OfferID      string  `json:"offer_id"`
	OrderNo      string  `json:"order_no"`
	InquiryMPN   string  `json:"inquiry_mpn"`
	InquiryBrand string  `json:"inquiry_brand"`
	Qty          int     `json:"qty"`
	PriceRMB     float64 `json:"price_rmb"`
	CostPriceRMB float64 `json:"cost_price_rmb"`
	Remark       string  `json:"remark"`
}

// NewPurchase is the input for AddPurchase.
type NewPurchase struct {
	OrderID       string  `json:"order_id"`
	VendorID      string  `json:"vendor_id"`
	BuyMPN        string  `json:"buy_mpn"`
	BuyBrand      string  `json:"buy_brand"`
	BuyPriceRMB   float64 `json:"buy_price_rmb"`
	BuyQty        int     `json:"buy_qty"`
	SalesPriceRMB float64 `json:"sales_price_rmb"`
	Remark        string  `json:"remark"`
}

func invalid(ve *validation.ValidationErrors) error {
	return store.ErrInvalid.Here().WithMessage(ve.Error())
}

// AddOffer creates one offer owned by empID. With a QuoteID the quote must
// not have an offer yet and is marked transferred.
func (p *Pipeline) AddOffer(ctx context.Context, empID string, in NewOffer) Result {
	const op = "created offer"
	if err := p.checkEmployee(ctx, empID); err != nil {
		return p.fail(op, err)
	}
	in.QuoteID = strings.TrimSpace(in.QuoteID)
	in.VendorID = strings.TrimSpace(in.VendorID)
	in.InquiryMPN = strings.TrimSpace(in.InquiryMPN)

	var ve validation.ValidationErrors
	validation.ValidateMPN(&ve, "inquiry_mpn", in.InquiryMPN)
	validation.ValidateNonNegativeInt(&ve, "inquiry_qty", in.InquiryQty)
	validation.ValidateNonNegativeInt(&ve, "actual_qty", in.ActualQty)
	validation.ValidateNonNegativeInt(&ve, "quoted_qty", in.QuotedQty)
	validation.ValidateMaxQuantity(&ve, "quoted_qty", in.QuotedQty)
	validation.ValidateNonNegativeFloat(&ve, "cost_price_rmb", in.CostPriceRMB)
	validation.ValidateNonNegativeFloat(&ve, "offer_price_rmb", in.OfferPriceRMB)
	validation.ValidateMaxPrice(&ve, "offer_price_rmb", in.OfferPriceRMB)
	if ve.HasErrors() {
		return p.fail(op, invalid(&ve))
	}

	r := p.rates(ctx)
	return p.single(ctx, op, empID, func(ctx context.Context, tx *store.Tx) (string, error) {
		o := models.Offer{
			QuoteID:        models.StrPtr(in.QuoteID),
			VendorID:       models.StrPtr(in.VendorID),
			InquiryMPN:     in.InquiryMPN,
			QuotedMPN:      firstNonEmpty(strings.TrimSpace(in.QuotedMPN), in.InquiryMPN),
			InquiryBrand:   in.InquiryBrand,
			QuotedBrand:    firstNonEmpty(in.QuotedBrand, in.InquiryBrand),
			InquiryQty:     in.InquiryQty,
			ActualQty:      in.ActualQty,
			QuotedQty:      in.QuotedQty,
			CostPriceRMB:   in.CostPriceRMB,
			OfferPriceRMB:  in.OfferPriceRMB,
			Platform:       in.Platform,
			DateCode:       in.DateCode,
			DeliveryDate:   in.DeliveryDate,
			EmpID:          empID,
			OfferStatement: in.OfferStatement,
			Remark:         in.Remark,
		}
		if o.ActualQty == 0 {
			o.ActualQty = o.InquiryQty
		}
		if o.QuotedQty == 0 {
			o.QuotedQty = o.InquiryQty
		}

		var margin float64
		if o.QuoteID != nil {
			q, err := tx.GetQuote(ctx, in.QuoteID)
			if err != nil {
				return "", err
			}
			if _, found, err := tx.OfferForQuote(ctx, q.ID); err != nil {
				return "", err
			} else if found {
				return "", merry.Prepend(alreadyTransferred(), q.ID)
			}
			if margin, err = clientMargin(ctx, tx, q.CliID); err != nil {
				return "", err
			}
		}
		if o.VendorID != nil {
			if _, err := tx.GetVendor(ctx, in.VendorID); err != nil {
				return "", err
			}
		}
		priceOffer(&o, margin, r)
		if err := tx.InsertOffer(ctx, &o); err != nil {
			return "", err
		}
		if o.QuoteID != nil {
			if err := tx.MarkTransferred(ctx, store.Quotes, in.QuoteID); err != nil {
				return "", err
			}
		}
		return o.ID, nil
	})
}

// AddOrder creates one sales order for an existing client.
func (p *Pipeline) AddOrder(ctx context.Context, empID string, in NewOrder) Result {
	const op = "created sales order"
	in.CliID = strings.TrimSpace(in.CliID)
	in.OfferID = strings.TrimSpace(in.OfferID)

	var ve validation.ValidationErrors
	validation.RequireField(&ve, "cli_id", in.CliID)
	validation.ValidateNonNegativeInt(&ve, "qty", in.Qty)
	validation.ValidateMaxQuantity(&ve, "qty", in.Qty)
	validation.ValidateNonNegativeFloat(&ve, "price_rmb", in.PriceRMB)
	validation.ValidateMaxPrice(&ve, "price_rmb", in.PriceRMB)
	validation.ValidateNonNegativeFloat(&ve, "cost_price_rmb", in.CostPriceRMB)
	if in.OfferID == "" {
		validation.ValidateMPN(&ve, "inquiry_mpn", strings.TrimSpace(in.InquiryMPN))
	}
	if ve.HasErrors() {
		return p.fail(op, invalid(&ve))
	}

	r := p.rates(ctx)
	return p.single(ctx, op, empID, func(ctx context.Context, tx *store.Tx) (string, error) {
		c, err := tx.GetClient(ctx, in.CliID)
		if err != nil {
			return "", err
		}
		so := models.SalesOrder{
			CliID:        c.ID,
			OfferID:      models.StrPtr(in.OfferID),
			OrderNo:      strings.TrimSpace(in.OrderNo),
			InquiryMPN:   strings.TrimSpace(in.InquiryMPN),
			InquiryBrand: in.InquiryBrand,
			Qty:          in.Qty,
			PriceRMB:     in.PriceRMB,
			CostPriceRMB: in.CostPriceRMB,
			Remark:       in.Remark,
		}
		if so.OfferID != nil {
			o, err := tx.GetOffer(ctx, in.OfferID)
			if err != nil {
				return "", err
			}
			if _, found, err := tx.OrderForOffer(ctx, o.ID); err != nil {
				return "", err
			} else if found {
				return "", merry.Prepend(alreadyTransferred(), o.ID)
			}
			so.InquiryMPN = firstNonEmpty(so.InquiryMPN, o.QuotedMPN, o.InquiryMPN)
			so.InquiryBrand = firstNonEmpty(so.InquiryBrand, o.QuotedBrand, o.InquiryBrand)
			if so.Qty == 0 {
				so.Qty = o.QuotedQty
			}
			if so.PriceRMB == 0 {
				so.PriceRMB = o.OfferPriceRMB
			}
			if so.CostPriceRMB == 0 {
				so.CostPriceRMB = o.CostPriceRMB
			}
		}
		so.PriceKRW, so.PriceUSD = r.apply(so.PriceRMB)
		if err := tx.InsertOrder(ctx, &so, c.Name); err != nil {
			return "", err
		}
		if so.OfferID != nil {
			if err := tx.MarkTransferred(ctx, store.Offers, in.OfferID); err != nil {
				return "", err
			}
		}
		return so.ID, nil
	})
}

// AddPurchase creates one purchase order. The order and vendor, when given,
// must exist; total_amount is derived from price and quantity.
func (p *Pipeline) AddPurchase(ctx context.Context, empID string, in NewPurchase) Result {
	const op = "created purchase order"
	in.OrderID = strings.TrimSpace(in.OrderID)
	in.VendorID = strings.TrimSpace(in.VendorID)
	in.BuyMPN = strings.TrimSpace(in.BuyMPN)

	var ve validation.ValidationErrors
	validation.ValidateMPN(&ve, "buy_mpn", in.BuyMPN)
	validation.ValidateNonNegativeInt(&ve, "buy_qty", in.BuyQty)
	validation.ValidateMaxQuantity(&ve, "buy_qty", in.BuyQty)
	validation.ValidateNonNegativeFloat(&ve, "buy_price_rmb", in.BuyPriceRMB)
	validation.ValidateMaxPrice(&ve, "buy_price_rmb", in.BuyPriceRMB)
	validation.ValidateNonNegativeFloat(&ve, "sales_price_rmb", in.SalesPriceRMB)
	if ve.HasErrors() {
		return p.fail(op, invalid(&ve))
	}

	return p.single(ctx, op, empID, func(ctx context.Context, tx *store.Tx) (string, error) {
		po := models.PurchaseOrder{
			OrderID:       models.StrPtr(in.OrderID),
			VendorID:      models.StrPtr(in.VendorID),
			BuyMPN:        in.BuyMPN,
			BuyBrand:      in.BuyBrand,
			BuyPriceRMB:   in.BuyPriceRMB,
			BuyQty:        in.BuyQty,
			SalesPriceRMB: in.SalesPriceRMB,
			Remark:        in.Remark,
		}
		if po.OrderID != nil {
			if _, err := tx.GetOrder(ctx, in.OrderID); err != nil {
				return "", err
			}
			if _, found, err := tx.PurchaseForOrder(ctx, in.OrderID); err != nil {
				return "", err
			} else if found {
				return "", merry.Prepend(alreadyTransferred(), in.OrderID)
			}
		}
		if po.VendorID != nil {
			if _, err := tx.GetVendor(ctx, in.VendorID); err != nil {
				return "", err
			}
		}
		if err := tx.InsertPurchase(ctx, &po); err != nil {
			return "", err
		}
		if po.OrderID != nil {
			if err := tx.MarkTransferred(ctx, store.Orders, in.OrderID); err != nil {
				return "", err
			}
		}
		return po.ID, nil
	})
}

// Delete removes one record. A record with a downstream record is kept and
// the message says it is referenced.
func (p *Pipeline) Delete(ctx context.Context, empID, entity, id string) Result {
	op := "deleted " + entity
	if err := p.store.Delete(context.WithoutCancel(ctx), empID, entity, id); err != nil {
		return p.fail(op, err)
	}
	res := newResult()
	res.OK = true
	res.Converted = 1
	res.Message = op + " " + id
	return res
}

// BatchDelete removes all ids or none of them.
func (p *Pipeline) BatchDelete(ctx context.Context, empID, entity string, ids []string) Result {
	op := "deleted " + entity
	n, err := p.store.BatchDelete(context.WithoutCancel(ctx), empID, entity, cleanIDs(ids))
	if err != nil {
		return p.fail(op, err)
	}
	res := newResult()
	res.OK = true
	res.Converted = n
	res.Message = fmt.Sprintf("deleted %d records", n)
	return res
}

