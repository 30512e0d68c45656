package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts rows into a table using the PostgreSQL COPY
// protocol. This is the fastest path for the value table, which dominates
// export volume. The table name may be schema-qualified ("fipe.brands").
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, tableIdent(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}

// tableIdent converts a possibly schema-qualified table name into a pgx
// identifier.
func tableIdent(table string) pgx.Identifier {
	if schema, name, found := strings.Cut(table, "."); found {
		return pgx.Identifier{schema, name}
	}
	return pgx.Identifier{table}
}
