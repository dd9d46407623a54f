package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dbplane/dbplane/internal/engine"
	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/classifier"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

// Execute runs one read statement. Classification happens before the dial;
// the capability timeout bounds statement execution only.
func (a *Adapter) Execute(ctx context.Context, config adapter.ConnectionConfig, sql string, caps adapter.Capabilities) (*adapter.QueryResult, error) {
	if err := a.checkEngine(config, "execute"); err != nil {
		return nil, err
	}
	if err := classifier.EnsureReadOnly(dbcapabilities.PostgreSQL, sql); err != nil {
		return nil, err
	}

	lctx := a.logCtx(config, "execute")
	conn, err := a.connect(ctx, config, lctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	queryCtx, cancel := context.WithTimeout(ctx, caps.Timeout)
	defer cancel()

	start := time.Now()
	rows, err := conn.Query(queryCtx, sql)
	if err != nil {
		a.log.LogOperationFailure(lctx, err)
		return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "execute",
			fmt.Errorf("error executing query: %v", err))
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = string(fd.Name)
	}

	result := &adapter.QueryResult{Columns: columns, Rows: [][]interface{}{}}
	for rows.Next() {
		if len(result.Rows) >= caps.MaxRows {
			result.Truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "execute",
				fmt.Errorf("error reading row: %v", err))
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = normalizeValue(fields[i].DataTypeOID, v)
		}
		result.Rows = append(result.Rows, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil && !result.Truncated {
		a.log.LogOperationFailure(lctx, err)
		return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "execute",
			fmt.Errorf("error executing query: %v", err))
	}

	result.RowsReturned = len(result.Rows)
	if len(columns) == 0 {
		result.RowsAffected = rows.CommandTag().RowsAffected()
	}
	result.ExecutionMS = time.Since(start).Milliseconds()
	a.log.LogOperation(lctx, result.ExecutionMS)
	return result, nil
}

// normalizeValue converts one pgx value into a JSON-safe representation
// keyed by the column's type OID.
func normalizeValue(oid uint32, v interface{}) interface{} {
	if v == nil {
		return nil
	}

	switch oid {
	case pgtype.ByteaOID:
		if b, ok := v.([]byte); ok {
			return engine.Binary(b)
		}
	case pgtype.DateOID:
		if t, ok := v.(time.Time); ok {
			return t.Format(engine.DateFormat)
		}
	case pgtype.TimestampOID:
		if t, ok := v.(time.Time); ok {
			return t.Format(engine.TimestampFormat)
		}
	case pgtype.TimestamptzOID:
		if t, ok := v.(time.Time); ok {
			return t.Format(engine.TimestampTZFormat)
		}
	case pgtype.TimeOID:
		if tm, ok := v.(pgtype.Time); ok {
			return formatMicroseconds(tm.Microseconds)
		}
	case pgtype.UUIDOID:
		if b, ok := v.([16]byte); ok {
			return uuid.UUID(b).String()
		}
	case pgtype.NumericOID:
		if n, ok := v.(pgtype.Numeric); ok {
			return normalizeNumeric(n)
		}
	}

	switch x := v.(type) {
	case bool, string, int16, int32, int64:
		return x
	case float32:
		return engine.Float64(float64(x))
	case float64:
		return engine.Float64(x)
	case []byte:
		return engine.Bytes(x)
	case time.Time:
		return x.Format(engine.TimestampTZFormat)
	case map[string]interface{}, []interface{}:
		// decoded json and arrays are already JSON-safe
		return x
	default:
		return engine.Fallback(v)
	}
}

// normalizeNumeric renders an exact NUMERIC. NaN has no JSON representation.
func normalizeNumeric(n pgtype.Numeric) interface{} {
	if !n.Valid || n.NaN {
		return nil
	}
	dv, err := n.Value()
	if err != nil {
		return engine.Fallback(n)
	}
	if s, ok := dv.(string); ok {
		return engine.Decimal(s)
	}
	return engine.Fallback(dv)
}

// formatMicroseconds renders a TIME column counted in microseconds since
// midnight.
func formatMicroseconds(us int64) string {
	seconds := us / 1_000_000
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
