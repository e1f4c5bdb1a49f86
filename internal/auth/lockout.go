package auth

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	MaxFailedLoginAttempts = 10
	AccountLockoutDuration = 15 * time.Minute
)

const lockTimeFormat = "2006-01-02 15:04:05"

// IncrementFailedLoginAttempts bumps the counter and locks the account once
// it reaches MaxFailedLoginAttempts.
func IncrementFailedLoginAttempts(ctx context.Context, db sqlx.ExecerContext, account string) error {
	until := time.Now().Add(AccountLockoutDuration).Format(lockTimeFormat)
	_, err := db.ExecContext(ctx, `
		UPDATE employees
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= ? THEN ?
		        ELSE locked_until
		    END
		WHERE account = ?`, MaxFailedLoginAttempts, until, account)
	return err
}

// ResetFailedLoginAttempts clears the counter after a successful login.
func ResetFailedLoginAttempts(ctx context.Context, db sqlx.ExecerContext, account string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE employees
		SET failed_login_attempts = 0, locked_until = NULL
		WHERE account = ?`, account)
	return err
}

// IsLocked reports whether lockedUntil (as stored) is still in the future.
func IsLocked(lockedUntil *string, now time.Time) bool {
	if lockedUntil == nil || *lockedUntil == "" {
		return false
	}
	for _, format := range []string{lockTimeFormat, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.ParseInLocation(format, *lockedUntil, time.Local); err == nil {
			return now.Before(t)
		}
	}
	return false
}
