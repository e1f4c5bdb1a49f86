package store

import (
	"errors"
	"strings"

	"github.com/ansel1/merry"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Error classes. Everything that is not one of these is unexpected.
// Each carries the HTTP status the server answers with.
var (
	ErrNotFound           = merry.New("not found").WithHTTPCode(404)
	ErrInvalid            = merry.New("invalid input").WithHTTPCode(400)
	ErrDuplicate          = merry.New("duplicate record").WithHTTPCode(409)
	ErrReferenced         = merry.New("referenced by downstream record").WithHTTPCode(409)
	ErrFieldNotAllowed    = merry.New("field is not updatable").WithHTTPCode(400)
	ErrAlreadyTransferred = merry.New("already transferred").WithHTTPCode(409)
	ErrUnresolved         = merry.New("cannot resolve related record").WithHTTPCode(422)
)

// IsValidation reports whether err is a user-facing failure that should be
// reported as data: a validation error or a storage constraint violation.
func IsValidation(err error) bool {
	return merry.Is(err, ErrNotFound, ErrInvalid, ErrDuplicate, ErrReferenced,
		ErrFieldNotAllowed, ErrAlreadyTransferred, ErrUnresolved)
}

func notFound(kind, id string) error {
	return ErrNotFound.Here().WithMessagef("%s %s not found", kind, id)
}

func invalidf(format string, args ...interface{}) error {
	return ErrInvalid.Here().WithMessagef(format, args...)
}

type op int

const (
	opInsert op = iota
	opUpdate
	opDelete
)

func sqliteCode(err error) int {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

// classify maps SQLite constraint failures onto the error classes. Other
// errors are wrapped and stay unexpected.
func classify(err error, o op, what string) error {
	if err == nil {
		return nil
	}
	code := sqliteCode(err)
	msg := err.Error()
	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY || strings.Contains(msg, "FOREIGN KEY constraint failed"):
		if o == opDelete {
			return ErrReferenced.Here().WithMessagef("%s is referenced by downstream record", what)
		}
		return ErrNotFound.Here().WithMessagef("%s: referenced record does not exist", what)
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
		strings.Contains(msg, "UNIQUE constraint failed"):
		return ErrDuplicate.Here().WithMessagef("%s already exists", what)
	case code == sqlite3.SQLITE_CONSTRAINT_CHECK || code == sqlite3.SQLITE_CONSTRAINT_NOTNULL ||
		strings.Contains(msg, "CHECK constraint failed") || strings.Contains(msg, "NOT NULL constraint failed"):
		return ErrInvalid.Here().WithMessagef("%s: %s", what, msg)
	}
	return merry.Append(err, what)
}
