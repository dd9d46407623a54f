package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/dbplane/dbplane/internal/engine"
	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/classifier"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

// Execute runs one read statement against the read-only handle.
// Classification happens before the file is opened; the capability timeout
// bounds statement execution only.
func (a *Adapter) Execute(ctx context.Context, config adapter.ConnectionConfig, sqlText string, caps adapter.Capabilities) (*adapter.QueryResult, error) {
	if err := a.checkEngine(config, "execute"); err != nil {
		return nil, err
	}
	if err := classifier.EnsureReadOnly(dbcapabilities.SQLite, sqlText); err != nil {
		return nil, err
	}

	lctx := a.logCtx(config, "execute")
	db, err := a.connect(ctx, config, lctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	queryCtx, cancel := context.WithTimeout(ctx, caps.Timeout)
	defer cancel()

	start := time.Now()
	rows, err := db.QueryContext(queryCtx, sqlText)
	if err != nil {
		a.log.LogOperationFailure(lctx, err)
		return nil, adapter.NewQueryError(dbcapabilities.SQLite, "execute",
			fmt.Errorf("error executing query: %v", err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.SQLite, "execute",
			fmt.Errorf("error reading column metadata: %v", err))
	}

	result := &adapter.QueryResult{Columns: columns, Rows: [][]interface{}{}}
	for rows.Next() {
		if len(result.Rows) >= caps.MaxRows {
			result.Truncated = true
			break
		}
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, adapter.NewQueryError(dbcapabilities.SQLite, "execute",
				fmt.Errorf("error reading row: %v", err))
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = normalizeValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil && !result.Truncated {
		a.log.LogOperationFailure(lctx, err)
		return nil, adapter.NewQueryError(dbcapabilities.SQLite, "execute",
			fmt.Errorf("error executing query: %v", err))
	}

	result.RowsReturned = len(result.Rows)
	result.ExecutionMS = time.Since(start).Milliseconds()
	a.log.LogOperation(lctx, result.ExecutionMS)
	return result, nil
}

// normalizeValue converts one storage-class value into a JSON-safe
// representation. SQLite values carry no declared column type at this
// level: integers, reals, text, blobs, and null are all there is.
func normalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case int64, string, bool:
		return x
	case float64:
		return engine.Float64(x)
	case []byte:
		return engine.Binary(x)
	default:
		return engine.Fallback(v)
	}
}
