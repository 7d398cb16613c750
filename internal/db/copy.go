package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts rows into a table using the COPY protocol.
func CopyFrom(ctx context.Context, conn Conn, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := conn.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}

// ReplaceRows deletes every row of table whose keyCol equals key, then
// copies rows in. Used to rewrite the child rows of one parent record; pass
// a transaction to make the rewrite atomic.
func ReplaceRows(ctx context.Context, conn Conn, table, keyCol string, key any, columns []string, rows [][]any) (int64, error) {
	del := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		pgx.Identifier{table}.Sanitize(), pgx.Identifier{keyCol}.Sanitize())
	if _, err := conn.Exec(ctx, del, key); err != nil {
		return 0, eris.Wrapf(err, "db: clear %s", table)
	}
	return CopyFrom(ctx, conn, table, columns, rows)
}
