// Package pipeline converts records from one trading stage to the next:
// quotes to offers, offers to sales orders and sales orders to purchase
// orders. Every call reports its outcome as a Result; validation failures
// and constraint violations are data, never faults.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ansel1/merry"
	"github.com/powerman/structlog"

	"tradedesk/internal/store"
)

// Result is the outcome of a pipeline call. OK is true iff at least one
// record was converted or created.
type Result struct {
	OK        bool     `json:"ok"`
	Message   string   `json:"message"`
	Converted int      `json:"converted"`
	Created   []string `json:"created"`
	Errors    []string `json:"errors"`
	// Missing lists requested source ids that do not exist. They count as
	// neither errors nor successes.
	Missing []string `json:"missing"`
}

func newResult() Result {
	return Result{Created: []string{}, Errors: []string{}, Missing: []string{}}
}

type Pipeline struct {
	store *store.Store
	log   *structlog.Logger
}

// New returns a pipeline over s. log may be nil.
func New(s *store.Store, log *structlog.Logger) *Pipeline {
	if log == nil {
		log = structlog.New(structlog.KeyUnit, "pipeline")
	}
	return &Pipeline{store: s, log: log}
}

// errMissing marks a source id that does not exist.
var errMissing = merry.New("source record missing")

func alreadyTransferred() error {
	return store.ErrAlreadyTransferred.Here()
}

// itemFunc converts one source id inside the batch transaction and returns
// the id of the record it created.
type itemFunc func(ctx context.Context, tx *store.Tx, id string) (string, error)

// run executes fn for every id in one transaction. Each item gets its own
// savepoint: a validation failure undoes that item only and is recorded
// in Errors. Any other error, or a panic, rolls back the whole batch.
// Nothing is committed unless at least one item succeeded.
func (p *Pipeline) run(ctx context.Context, op, empID string, ids []string, fn itemFunc) (res Result) {
	res = newResult()
	ids = cleanIDs(ids)
	if len(ids) == 0 {
		res.Message = "no records selected"
		return res
	}

	// The transaction runs to completion even when the caller goes away.
	ctx = context.WithoutCancel(ctx)
	tx, err := p.store.Begin(ctx, empID)
	if err != nil {
		return p.abort(op, err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			res = p.abort(op, merry.Errorf("panic: %v", r))
		}
	}()

	for _, id := range ids {
		sp, err := tx.Savepoint(ctx)
		if err != nil {
			_ = tx.Rollback()
			return p.abort(op, err)
		}
		created, err := fn(ctx, tx, id)
		switch {
		case err == nil:
			if err := sp.Release(ctx); err != nil {
				_ = tx.Rollback()
				return p.abort(op, err)
			}
			res.Converted++
			res.Created = append(res.Created, created)
		case merry.Is(err, errMissing):
			if err := sp.Rollback(ctx); err != nil {
				_ = tx.Rollback()
				return p.abort(op, err)
			}
			res.Missing = append(res.Missing, id)
			p.log.Debug("source missing", "op", op, "id", id)
		case store.IsValidation(err):
			if rbErr := sp.Rollback(ctx); rbErr != nil {
				_ = tx.Rollback()
				return p.abort(op, rbErr)
			}
			res.Errors = append(res.Errors, itemError(id, err))
			p.log.Warn("item skipped", "op", op, "id", id, "err", err)
		default:
			_ = tx.Rollback()
			return p.abort(op, merry.Prepend(err, id))
		}
	}

	if res.Converted == 0 {
		_ = tx.Rollback()
		res.Message = summary(res)
		if len(res.Errors) > 0 {
			res.Message = res.Errors[0]
		}
		return res
	}
	if err := tx.Commit(); err != nil {
		return p.abort(op, err)
	}
	res.OK = true
	res.Message = summary(res)
	p.log.Info("batch committed", "op", op, "converted", res.Converted, "failed", len(res.Errors), "missing", len(res.Missing))
	return res
}

// abort reports a batch that was rolled back as a whole.
func (p *Pipeline) abort(op string, err error) Result {
	p.log.PrintErr("batch rolled back", "op", op, "err", err)
	res := newResult()
	res.Message = err.Error()
	res.Errors = append(res.Errors, err.Error())
	return res
}

// single runs fn as one transaction and reports it like a one-item batch.
func (p *Pipeline) single(ctx context.Context, op, empID string, fn func(ctx context.Context, tx *store.Tx) (string, error)) Result {
	ctx = context.WithoutCancel(ctx)
	var created string
	err := p.store.InTx(ctx, empID, func(tx *store.Tx) error {
		var err error
		created, err = fn(ctx, tx)
		return err
	})
	if err != nil {
		return p.fail(op, err)
	}
	res := newResult()
	res.OK = true
	res.Converted = 1
	res.Created = append(res.Created, created)
	res.Message = op + " " + created
	return res
}

// fail reports err without distinguishing more than the log level.
func (p *Pipeline) fail(op string, err error) Result {
	if store.IsValidation(err) {
		p.log.Warn("rejected", "op", op, "err", err)
	} else {
		p.log.PrintErr("failed", "op", op, "err", err)
	}
	res := newResult()
	res.Message = err.Error()
	res.Errors = append(res.Errors, err.Error())
	return res
}

func summary(res Result) string {
	msg := fmt.Sprintf("converted %d records", res.Converted)
	if n := len(res.Errors); n > 0 {
		msg += fmt.Sprintf(" (%d failed)", n)
	}
	return msg
}

func itemError(id string, err error) string {
	msg := err.Error()
	if strings.HasPrefix(msg, id+":") {
		return msg
	}
	return id + ": " + msg
}

// cleanIDs trims ids and drops blanks and repeats, keeping order.
func cleanIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Await runs fn and waits for its Result until ctx ends. When ctx ends
// first the error is ctx.Err(); fn keeps running and its transaction
// commits or rolls back on its own.
func Await(ctx context.Context, fn func() Result) (Result, error) {
	done := make(chan Result, 1)
	go func() { done <- fn() }()
	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		res := newResult()
		res.Message = "stopped waiting for result"
		return res, ctx.Err()
	}
}
