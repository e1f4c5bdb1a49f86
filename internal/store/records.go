package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ansel1/merry"
	"github.com/jmoiron/sqlx"

	"tradedesk/internal/audit"
	"tradedesk/internal/auth"
)

func entityOf(name string) (*Entity, error) {
	e, ok := Lookup(name)
	if !ok {
		return nil, invalidf("unknown record type %q", name)
	}
	if _, err := auth.ValidateAndSanitizeTable(e.Table); err != nil {
		return nil, err
	}
	return e, nil
}

// UpdatePartial applies an allow-listed field patch to one record.
func (s *Store) UpdatePartial(ctx context.Context, empID, entity, id string, fields map[string]interface{}) error {
	return s.InTx(ctx, empID, func(tx *Tx) error {
		return tx.UpdatePartial(ctx, entity, id, fields)
	})
}

func (tx *Tx) UpdatePartial(ctx context.Context, entity, id string, fields map[string]interface{}) error {
	e, err := entityOf(entity)
	if err != nil {
		return err
	}
	cols, args, err := patchSet(e, fields)
	if err != nil {
		return err
	}
	set := make([]string, len(cols))
	for i, c := range cols {
		if _, err := auth.SanitizeIdentifier(c); err != nil {
			return err
		}
		set[i] = c + " = ?"
	}
	query := "UPDATE " + e.Table + " SET " + strings.Join(set, ", ") + " WHERE " + e.Key + " = ?"
	res, err := tx.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return classify(err, opUpdate, e.Label+" "+id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(e.Label, id)
	}
	if e.afterPatch != nil {
		if err := e.afterPatch(ctx, tx, id); err != nil {
			return err
		}
	}
	return tx.Audit(ctx, audit.ActionUpdate, e.Name, id, "updated "+strings.Join(cols, ", "))
}

// Delete removes one record. A record referenced by a downstream stage is
// not deleted and the error is ErrReferenced.
func (s *Store) Delete(ctx context.Context, empID, entity, id string) error {
	return s.InTx(ctx, empID, func(tx *Tx) error {
		return tx.Delete(ctx, entity, id)
	})
}

// BatchDelete deletes all ids or none of them.
func (s *Store) BatchDelete(ctx context.Context, empID, entity string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, invalidf("no records selected")
	}
	n := 0
	err := s.InTx(ctx, empID, func(tx *Tx) error {
		for _, id := range ids {
			if err := tx.Delete(ctx, entity, id); err != nil {
				return merry.Prepend(err, id)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes one record inside tx and clears the transferred flag of
// the record it was derived from.
func (tx *Tx) Delete(ctx context.Context, entity, id string) error {
	e, err := entityOf(entity)
	if err != nil {
		return err
	}
	var src sql.NullString
	if e.source != nil {
		err := sqlx.GetContext(ctx, tx, &src, "SELECT "+e.source.column+" FROM "+e.Table+" WHERE "+e.Key+" = ?", id)
		if err == sql.ErrNoRows {
			return notFound(e.Label, id)
		}
		if err != nil {
			return merry.Append(err, "read "+e.Label)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM "+e.Table+" WHERE "+e.Key+" = ?", id)
	if err != nil {
		return classify(err, opDelete, e.Label+" "+id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(e.Label, id)
	}
	if src.Valid && src.String != "" {
		if _, err := tx.ExecContext(ctx, sourceReset(e.source), src.String); err != nil {
			return merry.Append(err, "reset transferred flag")
		}
	}
	if e.Name == Rates {
		tx.ratesChanged = true
	}
	return tx.Audit(ctx, audit.ActionDelete, e.Name, id, "deleted "+e.Label)
}
