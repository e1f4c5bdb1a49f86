package store

import (
	"context"
	"sort"
	"strings"

	"tradedesk/internal/models"
	"tradedesk/internal/validation"
)

// Entity describes one table for the generic patch and delete paths.
type Entity struct {
	Name  string // route and audit module name
	Table string
	Key   string
	Label string // singular, for messages

	fields map[string]field

	// source is the upstream link whose transferred flag mirrors the
	// existence of this record.
	source *sourceLink

	// afterPatch runs inside the patch transaction.
	afterPatch func(ctx context.Context, tx *Tx, id string) error
}

type sourceLink struct {
	column string
	entity string
}

// Entity names.
const (
	Employees = "employees"
	Clients   = "clients"
	Vendors   = "vendors"
	Rates     = "rates"
	Quotes    = "quotes"
	Offers    = "offers"
	Orders    = "orders"
	Purchases = "purchases"
)

var entities = map[string]*Entity{
	Employees: {
		Name: Employees, Table: "employees", Key: "emp_id", Label: "employee",
		fields: allowList([]field{
			text("emp_name"), text("department"), text("position"), text("contact"),
			enum("role", validation.ValidRoles), text("hire_date"), text("remark"),
		}, map[string]string{"name": "emp_name"}),
	},
	Clients: {
		Name: Clients, Table: "clients", Key: "cli_id", Label: "client",
		fields: allowList([]field{
			text("cli_name"), text("region"), enum("credit_level", validation.ValidCreditLevels),
			number("margin_rate"), ref("emp_id"), text("website"), text("payment_terms"),
			text("email"), text("phone"), text("remark"),
		}, map[string]string{"name": "cli_name"}),
	},
	Vendors: {
		Name: Vendors, Table: "vendors", Key: "vendor_id", Label: "vendor",
		fields: allowList([]field{
			text("vendor_name"), text("address"), text("qq"), text("wechat"), text("email"), text("remark"),
		}, map[string]string{"name": "vendor_name"}),
	},
	Rates: {
		Name: Rates, Table: "daily_rates", Key: "id", Label: "rate",
		fields: allowList([]field{number("exchange_rate")}, nil),
		afterPatch: func(ctx context.Context, tx *Tx, id string) error {
			tx.ratesChanged = true
			return nil
		},
	},
	Quotes: {
		Name: Quotes, Table: "quotes", Key: "quote_id", Label: "quote",
		fields: allowList([]field{
			ref("cli_id"), text("inquiry_mpn"), text("quoted_mpn"), text("inquiry_brand"),
			integer("inquiry_qty"), number("target_price_rmb"), number("cost_price_rmb"),
			text("date_code"), text("delivery_date"), enum("status", validation.ValidQuoteStatuses), text("remark"),
		}, nil),
	},
	Offers: {
		Name: Offers, Table: "offers", Key: "offer_id", Label: "offer",
		fields: allowList([]field{
			text("inquiry_mpn"), text("quoted_mpn"), text("inquiry_brand"), text("quoted_brand"),
			integer("inquiry_qty"), integer("actual_qty"), integer("quoted_qty"),
			number("cost_price_rmb"), number("offer_price_rmb"), number("price_krw"), number("price_usd"),
			text("platform"), ref("vendor_id"), text("date_code"), text("delivery_date"),
			text("offer_statement"), text("remark"),
		}, nil),
		source: &sourceLink{column: "quote_id", entity: Quotes},
	},
	Orders: {
		Name: Orders, Table: "sales_orders", Key: "order_id", Label: "sales order",
		fields: allowList([]field{
			text("order_no"), text("inquiry_mpn"), text("inquiry_brand"),
			number("price_rmb"), number("price_krw"), number("price_usd"), number("cost_price_rmb"),
			integer("qty"), boolean("is_finished"), boolean("is_paid"), number("paid_amount"),
			enum("return_status", validation.ValidReturnStatuses), text("remark"),
		}, nil),
		source: &sourceLink{column: "offer_id", entity: Offers},
	},
	Purchases: {
		Name: Purchases, Table: "purchase_orders", Key: "buy_id", Label: "purchase order",
		fields: allowList([]field{
			ref("vendor_id"), text("buy_mpn"), text("buy_brand"), number("buy_price_rmb"),
			integer("buy_qty"), number("sales_price_rmb"),
			boolean("is_source_confirmed"), boolean("is_ordered"), boolean("is_instock"), boolean("is_shipped"),
			text("remark"),
		}, nil),
		source: &sourceLink{column: "order_id", entity: Orders},
		afterPatch: func(ctx context.Context, tx *Tx, id string) error {
			return tx.recalcPurchaseTotal(ctx, id)
		},
	},
}

// Lookup returns the entity registered under name. Table names are accepted too.
func Lookup(name string) (*Entity, bool) {
	if e, ok := entities[name]; ok {
		return e, true
	}
	for _, e := range entities {
		if e.Table == name {
			return e, true
		}
	}
	return nil, false
}

// Updatable lists the accepted field names for an entity, sorted.
func (e *Entity) Updatable() []string {
	out := make([]string, 0, len(e.fields))
	for name := range e.fields {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// clearsStatus reports whether removing a downstream record should put the
// source quote back into the inquiring state.
func (l *sourceLink) clearsStatus() bool {
	return l.entity == Quotes
}

func sourceReset(l *sourceLink) string {
	src := entities[l.entity]
	set := []string{"is_transferred = 0"}
	if l.clearsStatus() {
		set = append(set, "status = CASE WHEN status = '"+models.QuoteOffered+"' THEN '"+models.QuoteInquiring+"' ELSE status END")
	}
	return "UPDATE " + src.Table + " SET " + strings.Join(set, ", ") + " WHERE " + src.Key + " = ?"
}
