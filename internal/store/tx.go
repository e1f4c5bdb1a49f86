package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ansel1/merry"
	"github.com/jmoiron/sqlx"

	"tradedesk/internal/audit"
	"tradedesk/internal/models"
	"tradedesk/internal/websocket"
)

// Tx is one write transaction. Audit rows are written through it and change
// events are queued on it; the events are published only after Commit.
type Tx struct {
	*sqlx.Tx
	store *Store
	EmpID string

	events       []websocket.Event
	ratesChanged bool
	savepoints   int
}

// Begin starts a transaction on behalf of empID (may be empty for system work).
func (s *Store) Begin(ctx context.Context, empID string) (*Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, merry.Append(err, "begin")
	}
	return &Tx{Tx: tx, store: s, EmpID: empID}, nil
}

// Commit commits and then publishes queued events and rate invalidation.
func (tx *Tx) Commit() error {
	if err := tx.Tx.Commit(); err != nil {
		return merry.Append(err, "commit")
	}
	s := tx.store
	if tx.ratesChanged {
		s.rates.Invalidate()
		tx.events = append(tx.events, websocket.Event{Module: "rates", Action: "invalidated"})
	}
	if s.notifier != nil {
		for _, e := range tx.events {
			s.notifier.Broadcast(e)
		}
	}
	return nil
}

// Rollback discards the transaction and its queued events. Rolling back a
// finished transaction is not an error.
func (tx *Tx) Rollback() error {
	tx.events = nil
	err := tx.Tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return merry.Wrap(err)
}

// Audit writes an audit row in this transaction and queues the matching event.
func (tx *Tx) Audit(ctx context.Context, action, module, recordID, summary string) error {
	err := audit.Record(ctx, tx, models.AuditEntry{
		EmpID:    tx.EmpID,
		Action:   action,
		Module:   module,
		RecordID: recordID,
		Summary:  summary,
	})
	if err != nil {
		return err
	}
	tx.events = append(tx.events, websocket.Event{Module: module, Action: action, ID: recordID, EmpID: tx.EmpID})
	return nil
}

// Savepoint marks a point inside the transaction that one item's work can
// be rolled back to without losing earlier items.
type Savepoint struct {
	tx   *Tx
	name string
	mark int
}

func (tx *Tx) Savepoint(ctx context.Context) (*Savepoint, error) {
	tx.savepoints++
	sp := &Savepoint{tx: tx, name: fmt.Sprintf("item_%d", tx.savepoints), mark: len(tx.events)}
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+sp.name); err != nil {
		return nil, merry.Append(err, "savepoint")
	}
	return sp, nil
}

// Release keeps the item's work.
func (sp *Savepoint) Release(ctx context.Context) error {
	if _, err := sp.tx.ExecContext(ctx, "RELEASE "+sp.name); err != nil {
		return merry.Append(err, "release savepoint")
	}
	return nil
}

// Rollback undoes the item's work and drops its queued events.
func (sp *Savepoint) Rollback(ctx context.Context) error {
	if _, err := sp.tx.ExecContext(ctx, "ROLLBACK TO "+sp.name); err != nil {
		return merry.Append(err, "rollback to savepoint")
	}
	if _, err := sp.tx.ExecContext(ctx, "RELEASE "+sp.name); err != nil {
		return merry.Append(err, "release savepoint")
	}
	if len(sp.tx.events) > sp.mark {
		sp.tx.events = sp.tx.events[:sp.mark]
	}
	return nil
}

// InTx runs fn in a transaction, committing when fn returns nil. Panics
// inside fn roll back and come back as errors.
func (s *Store) InTx(ctx context.Context, empID string, fn func(*Tx) error) (err error) {
	tx, err := s.Begin(ctx, empID)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = merry.Errorf("panic: %v", p)
			return
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
