package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/ansel1/merry"

	"tradedesk/internal/audit"
	"tradedesk/internal/models"
	"tradedesk/internal/validation"
)

// LatestRate implements rates.Lookup: the rate with the latest record date
// (on or before asOf when given) for code.
func (s *Store) LatestRate(ctx context.Context, code, asOf string) (float64, bool, error) {
	query := "SELECT exchange_rate FROM daily_rates WHERE currency_code = ?"
	args := []interface{}{strings.ToUpper(code)}
	if asOf != "" {
		query += " AND record_date <= ?"
		args = append(args, asOf)
	}
	query += " ORDER BY record_date DESC, id DESC LIMIT 1"
	var rate float64
	err := s.db.GetContext(ctx, &rate, query, args...)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, merry.Append(err, "latest rate")
	}
	return rate, true, nil
}

// AddRate records a rate for (date, code). date defaults to today. The rate
// cache is invalidated when the write commits.
func (s *Store) AddRate(ctx context.Context, empID, date, code string, rate float64) (models.DailyRate, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if date == "" {
		date = s.today()
	}
	var ve validation.ValidationErrors
	validation.ValidateCurrencyCode(&ve, "currency_code", code)
	validation.ValidateDate(&ve, "record_date", date)
	validation.ValidatePositiveFloat(&ve, "exchange_rate", rate)
	if ve.HasErrors() {
		return models.DailyRate{}, invalidf("%s", ve.Error())
	}

	var out models.DailyRate
	err := s.InTx(ctx, empID, func(tx *Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO daily_rates (record_date, currency_code, exchange_rate) VALUES (?, ?, ?)", date, code, rate)
		if err != nil {
			return classify(err, opInsert, "rate "+code+" on "+date)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return merry.Wrap(err)
		}
		if err := tx.GetContext(ctx, &out, "SELECT * FROM daily_rates WHERE id = ?", id); err != nil {
			return merry.Append(err, "get rate")
		}
		tx.ratesChanged = true
		return tx.Audit(ctx, audit.ActionCreate, Rates, strconv.FormatInt(id, 10), code+" "+strconv.FormatFloat(rate, 'f', -1, 64))
	})
	return out, err
}

// UpdateRate changes a recorded rate.
func (s *Store) UpdateRate(ctx context.Context, empID string, id int64, rate float64) error {
	if rate <= 0 {
		return invalidf("exchange_rate: must be a positive number")
	}
	return s.UpdatePartial(ctx, empID, Rates, strconv.FormatInt(id, 10), map[string]interface{}{"exchange_rate": rate})
}

// ListRates returns the recorded rates for code, newest first.
func (s *Store) ListRates(ctx context.Context, code string) ([]models.DailyRate, error) {
	var out []models.DailyRate
	err := s.db.SelectContext(ctx, &out,
		"SELECT * FROM daily_rates WHERE currency_code = ? ORDER BY record_date DESC, id DESC", strings.ToUpper(code))
	if err != nil {
		return nil, merry.Append(err, "list rates")
	}
	return out, nil
}
