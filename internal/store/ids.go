package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ansel1/merry"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const idAttempts = 10

// NewID returns <prefix><yyyymmddHHMMSS><4 hex>. The format alone does not
// guarantee uniqueness; callers check before insert.
func NewID(prefix string, now time.Time) string {
	u := uuid.New()
	return prefix + now.Format("20060102150405") + hex.EncodeToString(u[:2])
}

func exists(ctx context.Context, q sqlx.QueryerContext, table, col string, val interface{}) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, "SELECT COUNT(*) FROM "+table+" WHERE "+col+" = ?", val)
	if err != nil {
		return false, merry.Append(err, "check "+table)
	}
	return n > 0, nil
}

// uniqueID generates ids for table until one is unused.
func (tx *Tx) uniqueID(ctx context.Context, table, col, prefix string) (string, error) {
	for i := 0; i < idAttempts; i++ {
		id := NewID(prefix, tx.store.now())
		taken, err := exists(ctx, tx, table, col, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", merry.Errorf("no free %s id after %d attempts", table, idAttempts)
}

// nextSeqID returns prefix followed by MAX(existing number)+1, zero padded
// to width: C001, V012, 007.
func nextSeqID(ctx context.Context, q sqlx.QueryerContext, table, col, prefix string, width int) (string, error) {
	var max int
	query := fmt.Sprintf("SELECT COALESCE(MAX(CAST(SUBSTR(%s, %d) AS INTEGER)), 0) FROM %s WHERE %s GLOB ?",
		col, len(prefix)+1, table, col)
	if err := sqlx.GetContext(ctx, q, &max, query, prefix+"[0-9]*"); err != nil {
		return "", merry.Append(err, "next "+table+" id")
	}
	return fmt.Sprintf("%s%0*d", prefix, width, max+1), nil
}

// OrderNo returns UNI-<client>-<yyyymmddHH>, or the same with -01, -02 …
// when that hour is already used.
func OrderNo(ctx context.Context, q sqlx.QueryerContext, cliName string, now time.Time) (string, error) {
	base := fmt.Sprintf("UNI-%s-%s", cliName, now.Format("2006010215"))
	var used []string
	err := sqlx.SelectContext(ctx, q, &used,
		"SELECT order_no FROM sales_orders WHERE order_no = ? OR order_no LIKE ?", base, base+"-%")
	if err != nil {
		return "", merry.Append(err, "order numbers")
	}
	if len(used) == 0 {
		return base, nil
	}
	last := 0
	for _, no := range used {
		if !strings.HasPrefix(no, base+"-") {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(no, base+"-")); err == nil && n > last {
			last = n
		}
	}
	return fmt.Sprintf("%s-%02d", base, last+1), nil
}
