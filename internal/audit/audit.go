package audit

import (
	"context"
	"fmt"

	"github.com/ansel1/merry"
	"github.com/jmoiron/sqlx"

	"tradedesk/internal/models"
)

// Action constants.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionConvert = "convert"
	ActionCopy    = "copy"
	ActionLogin   = "login"
)

// Record writes one audit row using ex, which is normally the transaction
// that made the change so the row commits or rolls back with it.
func Record(ctx context.Context, ex sqlx.ExecerContext, e models.AuditEntry) error {
	_, err := ex.ExecContext(ctx,
		"INSERT INTO audit_log (emp_id, action, module, record_id, summary) VALUES (?, ?, ?, ?, ?)",
		e.EmpID, e.Action, e.Module, e.RecordID, e.Summary)
	if err != nil {
		return merry.Append(err, "audit log")
	}
	return nil
}

// List returns audit rows for a record, oldest first. Empty recordID lists
// the whole module.
func List(ctx context.Context, q sqlx.QueryerContext, module, recordID string) ([]models.AuditEntry, error) {
	var out []models.AuditEntry
	query := "SELECT id, emp_id, action, module, record_id, summary, created_at FROM audit_log WHERE module = ?"
	args := []interface{}{module}
	if recordID != "" {
		query += " AND record_id = ?"
		args = append(args, recordID)
	}
	query += " ORDER BY id"
	if err := sqlx.SelectContext(ctx, q, &out, query, args...); err != nil {
		return nil, merry.Append(err, "list audit log")
	}
	return out, nil
}

// CleanupOldAuditLogs deletes entries older than retentionDays.
func CleanupOldAuditLogs(ctx context.Context, ex sqlx.ExecerContext, retentionDays int) (int64, error) {
	result, err := ex.ExecContext(ctx,
		"DELETE FROM audit_log WHERE created_at < datetime('now', 'localtime', ?)",
		fmt.Sprintf("-%d days", retentionDays))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
