package pipeline

import (
	"context"

	"github.com/ansel1/merry"

	"tradedesk/internal/audit"
	"tradedesk/internal/models"
	"tradedesk/internal/pricing"
	"tradedesk/internal/store"
)

// fx holds the display rates for one call, read once before the transaction.
type fx struct {
	krw, usd float64
}

func (p *Pipeline) rates(ctx context.Context) fx {
	krw, usd := p.store.Rates().Display(ctx)
	return fx{krw: krw, usd: usd}
}

func (r fx) apply(priceRMB float64) (krw, usd float64) {
	return pricing.ConvertKRW(priceRMB, r.krw), pricing.ConvertUSD(priceRMB, r.usd)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// checkEmployee rejects calls on behalf of an unknown employee before any
// transaction is opened.
func (p *Pipeline) checkEmployee(ctx context.Context, empID string) error {
	if empID == "" {
		return store.ErrInvalid.Here().WithMessage("acting employee is required")
	}
	_, err := p.store.GetEmployee(ctx, empID)
	return err
}

// clientMargin returns the margin rate of cliID, or 0 when the client is gone.
func clientMargin(ctx context.Context, tx *store.Tx, cliID string) (float64, error) {
	if cliID == "" {
		return 0, nil
	}
	c, err := tx.GetClient(ctx, cliID)
	if merry.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return c.MarginRate, nil
}

// priceOffer fills the offer price from cost and margin when a cost is
// known, then the display prices from the offer price.
func priceOffer(o *models.Offer, margin float64, r fx) {
	if price, ok := pricing.Markup(o.CostPriceRMB, margin); ok {
		o.OfferPriceRMB = price
	}
	o.PriceKRW, o.PriceUSD = r.apply(o.OfferPriceRMB)
}

// ConvertQuotesToOffers creates one offer per quote, owned by empID. The
// offer price is the quote cost marked up by the client's margin rate.
func (p *Pipeline) ConvertQuotesToOffers(ctx context.Context, empID string, quoteIDs []string) Result {
	const op = "quotes to offers"
	if err := p.checkEmployee(ctx, empID); err != nil {
		return p.fail(op, err)
	}
	r := p.rates(ctx)
	return p.run(ctx, op, empID, quoteIDs, func(ctx context.Context, tx *store.Tx, id string) (string, error) {
		q, err := tx.GetQuote(ctx, id)
		if merry.Is(err, store.ErrNotFound) {
			return "", errMissing.Here()
		}
		if err != nil {
			return "", err
		}
		margin, err := clientMargin(ctx, tx, q.CliID)
		if err != nil {
			return "", err
		}
		o := models.Offer{
			QuoteID:      &q.ID,
			InquiryMPN:   q.InquiryMPN,
			QuotedMPN:    firstNonEmpty(q.QuotedMPN, q.InquiryMPN),
			InquiryBrand: q.InquiryBrand,
			QuotedBrand:  q.InquiryBrand,
			InquiryQty:   q.InquiryQty,
			ActualQty:    q.InquiryQty,
			QuotedQty:    q.InquiryQty,
			CostPriceRMB: q.CostPriceRMB,
			DateCode:     q.DateCode,
			DeliveryDate: q.DeliveryDate,
			EmpID:        empID,
			Remark:       q.Remark,
		}
		priceOffer(&o, margin, r)
		// offers.quote_id is unique, so a second conversion fails here.
		if err := tx.InsertOffer(ctx, &o); err != nil {
			if merry.Is(err, store.ErrDuplicate) {
				return "", alreadyTransferred()
			}
			return "", err
		}
		if err := tx.MarkTransferred(ctx, store.Quotes, id); err != nil {
			return "", err
		}
		if err := tx.Audit(ctx, audit.ActionConvert, store.Quotes, id, "converted to "+o.ID); err != nil {
			return "", err
		}
		return o.ID, nil
	})
}

// ConvertOffersToOrders creates one sales order per offer. cliID, when not
// empty, names the client for every order; otherwise the client is found
// through the offer's quote.
func (p *Pipeline) ConvertOffersToOrders(ctx context.Context, empID string, offerIDs []string, cliID string) Result {
	const op = "offers to orders"
	return p.run(ctx, op, empID, offerIDs, func(ctx context.Context, tx *store.Tx, id string) (string, error) {
		o, err := tx.GetOffer(ctx, id)
		if merry.Is(err, store.ErrNotFound) {
			return "", errMissing.Here()
		}
		if err != nil {
			return "", err
		}
		_, found, err := tx.OrderForOffer(ctx, id)
		if err != nil {
			return "", err
		}
		if found {
			return "", alreadyTransferred()
		}

		cli := cliID
		if cli == "" {
			resolved, ok, err := tx.ClientIDForOffer(ctx, id)
			if err != nil {
				return "", err
			}
			if !ok {
				return "", store.ErrUnresolved.Here().WithMessage("cannot resolve client")
			}
			cli = resolved
		}
		c, err := tx.GetClient(ctx, cli)
		if err != nil {
			return "", err
		}

		so := models.SalesOrder{
			CliID:        c.ID,
			OfferID:      &o.ID,
			InquiryMPN:   firstNonEmpty(o.QuotedMPN, o.InquiryMPN),
			InquiryBrand: firstNonEmpty(o.QuotedBrand, o.InquiryBrand),
			Qty:          o.QuotedQty,
			PriceRMB:     o.OfferPriceRMB,
			PriceKRW:     o.PriceKRW,
			PriceUSD:     o.PriceUSD,
			CostPriceRMB: o.CostPriceRMB,
			Remark:       o.Remark,
		}
		if err := tx.InsertOrder(ctx, &so, c.Name); err != nil {
			return "", err
		}
		if err := tx.MarkTransferred(ctx, store.Offers, id); err != nil {
			return "", err
		}
		if err := tx.Audit(ctx, audit.ActionConvert, store.Offers, id, "converted to "+so.ID); err != nil {
			return "", err
		}
		return so.ID, nil
	})
}

// ConvertOrdersToPurchases creates one purchase order per sales order. The
// vendor, quantity and prices come from the offer the order was made from.
func (p *Pipeline) ConvertOrdersToPurchases(ctx context.Context, empID string, orderIDs []string) Result {
	const op = "orders to purchases"
	return p.run(ctx, op, empID, orderIDs, func(ctx context.Context, tx *store.Tx, id string) (string, error) {
		so, err := tx.GetOrder(ctx, id)
		if merry.Is(err, store.ErrNotFound) {
			return "", errMissing.Here()
		}
		if err != nil {
			return "", err
		}
		_, found, err := tx.PurchaseForOrder(ctx, id)
		if err != nil {
			return "", err
		}
		if found {
			return "", alreadyTransferred()
		}

		// Quantity and prices come only from the order's offer; without one
		// they stay zero until the purchase is patched.
		po := models.PurchaseOrder{
			OrderID:  &so.ID,
			BuyMPN:   so.InquiryMPN,
			BuyBrand: so.InquiryBrand,
			Remark:   so.Remark,
		}
		if so.OfferID != nil {
			o, err := tx.GetOffer(ctx, *so.OfferID)
			switch {
			case err == nil:
				po.VendorID = o.VendorID
				po.BuyQty = o.QuotedQty
				po.SalesPriceRMB = o.OfferPriceRMB
				po.BuyPriceRMB = o.CostPriceRMB
			case !merry.Is(err, store.ErrNotFound):
				return "", err
			}
		}
		if err := tx.InsertPurchase(ctx, &po); err != nil {
			return "", err
		}
		if err := tx.MarkTransferred(ctx, store.Orders, id); err != nil {
			return "", err
		}
		if err := tx.Audit(ctx, audit.ActionConvert, store.Orders, id, "converted to "+po.ID); err != nil {
			return "", err
		}
		return po.ID, nil
	})
}
