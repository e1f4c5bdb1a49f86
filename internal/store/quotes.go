package store

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"tradedesk/internal/audit"
	"tradedesk/internal/models"
	"tradedesk/internal/validation"
)

// NewQuote is the input for AddQuote. ID and QuoteDate are generated when empty.
type NewQuote struct {
	ID             string  `json:"quote_id"`
	QuoteDate      string  `json:"quote_date"`
	CliID          string  `json:"cli_id"`
	InquiryMPN     string  `json:"inquiry_mpn"`
	QuotedMPN      string  `json:"quoted_mpn"`
	InquiryBrand   string  `json:"inquiry_brand"`
	InquiryQty     int     `json:"inquiry_qty"`
	TargetPriceRMB float64 `json:"target_price_rmb"`
	CostPriceRMB   float64 `json:"cost_price_rmb"`
	DateCode       string  `json:"date_code"`
	DeliveryDate   string  `json:"delivery_date"`
	Remark         string  `json:"remark"`
}

func (s *Store) AddQuote(ctx context.Context, empID string, in NewQuote) (models.Quote, error) {
	var out models.Quote
	err := s.InTx(ctx, empID, func(tx *Tx) error {
		q := models.Quote{
			ID: strings.TrimSpace(in.ID), QuoteDate: in.QuoteDate, CliID: strings.TrimSpace(in.CliID),
			InquiryMPN: strings.TrimSpace(in.InquiryMPN), QuotedMPN: strings.TrimSpace(in.QuotedMPN),
			InquiryBrand: in.InquiryBrand, InquiryQty: in.InquiryQty,
			TargetPriceRMB: in.TargetPriceRMB, CostPriceRMB: in.CostPriceRMB,
			DateCode: in.DateCode, DeliveryDate: in.DeliveryDate, Remark: in.Remark,
		}
		if err := tx.InsertQuote(ctx, &q); err != nil {
			return err
		}
		out = q
		return nil
	})
	return out, err
}

// InsertQuote validates and inserts q, filling generated fields.
func (tx *Tx) InsertQuote(ctx context.Context, q *models.Quote) error {
	var ve validation.ValidationErrors
	validation.RequireField(&ve, "cli_id", q.CliID)
	validation.ValidateMPN(&ve, "inquiry_mpn", q.InquiryMPN)
	validation.ValidateNonNegativeInt(&ve, "inquiry_qty", q.InquiryQty)
	validation.ValidateNonNegativeFloat(&ve, "target_price_rmb", q.TargetPriceRMB)
	validation.ValidateNonNegativeFloat(&ve, "cost_price_rmb", q.CostPriceRMB)
	if ve.HasErrors() {
		return invalidf("%s", ve.Error())
	}
	if q.ID == "" {
		id, err := tx.uniqueID(ctx, "quotes", "quote_id", models.PrefixQuote)
		if err != nil {
			return err
		}
		q.ID = id
	}
	if q.QuoteDate == "" {
		q.QuoteDate = tx.store.today()
	}
	if q.Status == "" {
		q.Status = models.QuoteInquiring
	}
	_, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO quotes
		(quote_id, quote_date, cli_id, inquiry_mpn, quoted_mpn, inquiry_brand, inquiry_qty,
		 target_price_rmb, cost_price_rmb, date_code, delivery_date, status, remark, is_transferred)
		VALUES (:quote_id, :quote_date, :cli_id, :inquiry_mpn, :quoted_mpn, :inquiry_brand, :inquiry_qty,
		 :target_price_rmb, :cost_price_rmb, :date_code, :delivery_date, :status, :remark, :is_transferred)`, q)
	if err != nil {
		return classify(err, opInsert, "quote "+q.ID)
	}
	if err := getOne(ctx, tx, q, entities[Quotes], q.ID); err != nil {
		return err
	}
	return tx.Audit(ctx, audit.ActionCreate, Quotes, q.ID, "quote for "+q.InquiryMPN)
}

func (s *Store) GetQuote(ctx context.Context, id string) (models.Quote, error) {
	var q models.Quote
	err := getOne(ctx, s.db, &q, entities[Quotes], id)
	return q, err
}

func (tx *Tx) GetQuote(ctx context.Context, id string) (models.Quote, error) {
	var q models.Quote
	err := getOne(ctx, tx, &q, entities[Quotes], id)
	return q, err
}

// CopyQuotes duplicates quotes under new ids dated today, with the
// transferred flag and status reset. Unknown ids are skipped.
func (s *Store) CopyQuotes(ctx context.Context, empID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, invalidf("no records selected")
	}
	var created []string
	err := s.InTx(ctx, empID, func(tx *Tx) error {
		for _, id := range ids {
			src, err := tx.GetQuote(ctx, id)
			if IsValidation(err) {
				continue
			}
			if err != nil {
				return err
			}
			cp := src
			cp.ID, cp.QuoteDate, cp.Status, cp.IsTransferred = "", "", "", false
			if err := tx.InsertQuote(ctx, &cp); err != nil {
				return err
			}
			created = append(created, cp.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
