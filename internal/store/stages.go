package store

import (
	"context"
	"database/sql"

	"github.com/ansel1/merry"
	"github.com/jmoiron/sqlx"

	"tradedesk/internal/audit"
	"tradedesk/internal/models"
	"tradedesk/internal/pricing"
)

func offerProfit(o *models.Offer) {
	o.Profit = pricing.Profit(o.OfferPriceRMB, o.CostPriceRMB)
	o.TotalProfit = pricing.TotalProfit(o.Profit, o.QuotedQty)
}

func orderProfit(o *models.SalesOrder) {
	o.Profit = pricing.Profit(o.PriceRMB, o.CostPriceRMB)
	o.TotalProfit = pricing.TotalProfit(o.Profit, o.Qty)
}

func getOffer(ctx context.Context, q sqlx.QueryerContext, id string) (models.Offer, error) {
	var o models.Offer
	if err := getOne(ctx, q, &o, entities[Offers], id); err != nil {
		return o, err
	}
	offerProfit(&o)
	return o, nil
}

func (s *Store) GetOffer(ctx context.Context, id string) (models.Offer, error) { return getOffer(ctx, s.db, id) }

func (tx *Tx) GetOffer(ctx context.Context, id string) (models.Offer, error) { return getOffer(ctx, tx, id) }

func getOrder(ctx context.Context, q sqlx.QueryerContext, id string) (models.SalesOrder, error) {
	var o models.SalesOrder
	if err := getOne(ctx, q, &o, entities[Orders], id); err != nil {
		return o, err
	}
	orderProfit(&o)
	return o, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (models.SalesOrder, error) { return getOrder(ctx, s.db, id) }

func (tx *Tx) GetOrder(ctx context.Context, id string) (models.SalesOrder, error) { return getOrder(ctx, tx, id) }

func (s *Store) GetPurchase(ctx context.Context, id string) (models.PurchaseOrder, error) {
	var p models.PurchaseOrder
	err := getOne(ctx, s.db, &p, entities[Purchases], id)
	return p, err
}

func (tx *Tx) GetPurchase(ctx context.Context, id string) (models.PurchaseOrder, error) {
	var p models.PurchaseOrder
	err := getOne(ctx, tx, &p, entities[Purchases], id)
	return p, err
}

// InsertOffer inserts o with a generated id and today's date when unset.
// A second offer for the same quote fails with ErrDuplicate.
func (tx *Tx) InsertOffer(ctx context.Context, o *models.Offer) error {
	if o.ID == "" {
		id, err := tx.uniqueID(ctx, "offers", "offer_id", models.PrefixOffer)
		if err != nil {
			return err
		}
		o.ID = id
	}
	if o.OfferDate == "" {
		o.OfferDate = tx.store.today()
	}
	_, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO offers
		(offer_id, offer_date, quote_id, inquiry_mpn, quoted_mpn, inquiry_brand, quoted_brand,
		 inquiry_qty, actual_qty, quoted_qty, cost_price_rmb, offer_price_rmb, price_krw, price_usd,
		 platform, vendor_id, date_code, delivery_date, emp_id, offer_statement, remark, is_transferred)
		VALUES (:offer_id, :offer_date, :quote_id, :inquiry_mpn, :quoted_mpn, :inquiry_brand, :quoted_brand,
		 :inquiry_qty, :actual_qty, :quoted_qty, :cost_price_rmb, :offer_price_rmb, :price_krw, :price_usd,
		 :platform, :vendor_id, :date_code, :delivery_date, :emp_id, :offer_statement, :remark, :is_transferred)`, o)
	if err != nil {
		return classify(err, opInsert, "offer "+o.ID)
	}
	got, err := tx.GetOffer(ctx, o.ID)
	if err != nil {
		return err
	}
	*o = got
	return tx.Audit(ctx, audit.ActionCreate, Offers, o.ID, "offer for "+o.InquiryMPN)
}

// InsertOrder inserts o; order_no is generated from the client name when unset.
func (tx *Tx) InsertOrder(ctx context.Context, o *models.SalesOrder, cliName string) error {
	now := tx.store.now()
	if o.ID == "" {
		id, err := tx.uniqueID(ctx, "sales_orders", "order_id", models.PrefixOrder)
		if err != nil {
			return err
		}
		o.ID = id
	}
	if o.OrderNo == "" {
		no, err := OrderNo(ctx, tx, cliName, now)
		if err != nil {
			return err
		}
		o.OrderNo = no
	}
	if o.OrderDate == "" {
		o.OrderDate = tx.store.today()
	}
	if o.ReturnStatus == "" {
		o.ReturnStatus = models.ReturnNormal
	}
	_, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO sales_orders
		(order_id, order_no, order_date, cli_id, offer_id, inquiry_mpn, inquiry_brand, qty,
		 price_rmb, price_krw, price_usd, cost_price_rmb, is_finished, is_paid, paid_amount,
		 return_status, remark, is_transferred)
		VALUES (:order_id, :order_no, :order_date, :cli_id, :offer_id, :inquiry_mpn, :inquiry_brand, :qty,
		 :price_rmb, :price_krw, :price_usd, :cost_price_rmb, :is_finished, :is_paid, :paid_amount,
		 :return_status, :remark, :is_transferred)`, o)
	if err != nil {
		return classify(err, opInsert, "sales order "+o.ID)
	}
	got, err := tx.GetOrder(ctx, o.ID)
	if err != nil {
		return err
	}
	*o = got
	return tx.Audit(ctx, audit.ActionCreate, Orders, o.ID, "order "+o.OrderNo)
}

// InsertPurchase inserts p; total_amount is always derived from price and qty.
func (tx *Tx) InsertPurchase(ctx context.Context, p *models.PurchaseOrder) error {
	if p.ID == "" {
		id, err := tx.uniqueID(ctx, "purchase_orders", "buy_id", models.PrefixPurchase)
		if err != nil {
			return err
		}
		p.ID = id
	}
	if p.BuyDate == "" {
		p.BuyDate = tx.store.today()
	}
	p.TotalAmount = purchaseTotal(p.BuyPriceRMB, p.BuyQty)
	_, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO purchase_orders
		(buy_id, buy_date, order_id, vendor_id, buy_mpn, buy_brand, buy_price_rmb, buy_qty,
		 sales_price_rmb, total_amount, is_source_confirmed, is_ordered, is_instock, is_shipped, remark)
		VALUES (:buy_id, :buy_date, :order_id, :vendor_id, :buy_mpn, :buy_brand, :buy_price_rmb, :buy_qty,
		 :sales_price_rmb, :total_amount, :is_source_confirmed, :is_ordered, :is_instock, :is_shipped, :remark)`, p)
	if err != nil {
		return classify(err, opInsert, "purchase order "+p.ID)
	}
	got, err := tx.GetPurchase(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = got
	return tx.Audit(ctx, audit.ActionCreate, Purchases, p.ID, "purchase of "+p.BuyMPN)
}

func purchaseTotal(price float64, qty int) float64 {
	return pricing.Round(price*float64(qty), 2)
}

func (tx *Tx) recalcPurchaseTotal(ctx context.Context, id string) error {
	var row struct {
		Price float64 `db:"buy_price_rmb"`
		Qty   int     `db:"buy_qty"`
	}
	if err := tx.GetContext(ctx, &row, "SELECT buy_price_rmb, buy_qty FROM purchase_orders WHERE buy_id = ?", id); err != nil {
		return merry.Append(err, "read purchase order")
	}
	_, err := tx.ExecContext(ctx, "UPDATE purchase_orders SET total_amount = ? WHERE buy_id = ?", purchaseTotal(row.Price, row.Qty), id)
	return merry.Wrap(err)
}

// downstream returns the id of the record in table whose col references id.
func (tx *Tx) downstream(ctx context.Context, table, key, col, id string) (string, bool, error) {
	var got string
	err := tx.GetContext(ctx, &got, "SELECT "+key+" FROM "+table+" WHERE "+col+" = ? LIMIT 1", id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, merry.Append(err, "check "+table)
	}
	return got, true, nil
}

// OfferForQuote reports an existing offer derived from quoteID.
func (tx *Tx) OfferForQuote(ctx context.Context, quoteID string) (string, bool, error) {
	return tx.downstream(ctx, "offers", "offer_id", "quote_id", quoteID)
}

// OrderForOffer reports an existing sales order derived from offerID.
func (tx *Tx) OrderForOffer(ctx context.Context, offerID string) (string, bool, error) {
	return tx.downstream(ctx, "sales_orders", "order_id", "offer_id", offerID)
}

// PurchaseForOrder reports an existing purchase order for orderID.
func (tx *Tx) PurchaseForOrder(ctx context.Context, orderID string) (string, bool, error) {
	return tx.downstream(ctx, "purchase_orders", "buy_id", "order_id", orderID)
}

// MarkTransferred sets the transferred flag on a source record. Quotes also
// move to the offered status.
func (tx *Tx) MarkTransferred(ctx context.Context, entity, id string) error {
	e, err := entityOf(entity)
	if err != nil {
		return err
	}
	query := "UPDATE " + e.Table + " SET is_transferred = 1 WHERE " + e.Key + " = ?"
	if e.Name == Quotes {
		query = "UPDATE quotes SET is_transferred = 1, status = '" + models.QuoteOffered + "' WHERE quote_id = ?"
	}
	res, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return merry.Append(err, "mark "+e.Label+" transferred")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(e.Label, id)
	}
	return nil
}

// ClientIDForOffer resolves the client of an offer through its quote.
func (tx *Tx) ClientIDForOffer(ctx context.Context, offerID string) (string, bool, error) {
	var cli sql.NullString
	err := tx.GetContext(ctx, &cli, `SELECT q.cli_id FROM offers o
		JOIN quotes q ON q.quote_id = o.quote_id WHERE o.offer_id = ?`, offerID)
	if err == sql.ErrNoRows || (err == nil && !cli.Valid) {
		return "", false, nil
	}
	if err != nil {
		return "", false, merry.Append(err, "resolve client")
	}
	return cli.String, true, nil
}
