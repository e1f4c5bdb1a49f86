package database

import (
	"context"

	"github.com/ansel1/merry"
	"github.com/jmoiron/sqlx"

	"tradedesk/internal/auth"
	"tradedesk/internal/models"
)

// AdminID is the employee id of the seeded administrator.
const AdminID = "000"

// SeedAdmin ensures the administrator account exists. An existing account
// keeps its password.
func SeedAdmin(ctx context.Context, db *sqlx.DB, password string) error {
	var n int
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM employees WHERE emp_id = ?", AdminID); err != nil {
		return merry.Append(err, "count admin")
	}
	if n > 0 {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return merry.Append(err, "hash admin password")
	}
	_, err = db.ExecContext(ctx, `INSERT INTO employees (emp_id, emp_name, department, account, password_hash, role)
		VALUES (?, ?, ?, ?, ?, ?)`, AdminID, "Administrator", "Admin", "admin", hash, models.RoleAdmin)
	if err != nil {
		return merry.Append(err, "insert admin")
	}
	return nil
}
