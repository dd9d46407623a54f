package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dbplane/dbplane/internal/engine"
	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/classifier"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

// Execute runs one read statement. Classification happens before the dial;
// the capability timeout bounds statement execution only.
func (a *Adapter) Execute(ctx context.Context, config adapter.ConnectionConfig, sqlText string, caps adapter.Capabilities) (*adapter.QueryResult, error) {
	if err := a.checkEngine(config, "execute"); err != nil {
		return nil, err
	}
	if err := classifier.EnsureReadOnly(dbcapabilities.MySQL, sqlText); err != nil {
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
		return nil, adapter.NewQueryError(dbcapabilities.MySQL, "execute",
			fmt.Errorf("error executing query: %v", err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.MySQL, "execute",
			fmt.Errorf("error reading column metadata: %v", err))
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.MySQL, "execute",
			fmt.Errorf("error reading column types: %v", err))
	}
	dbTypes := make([]string, len(columnTypes))
	for i, ct := range columnTypes {
		dbTypes[i] = strings.ToUpper(ct.DatabaseTypeName())
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
			return nil, adapter.NewQueryError(dbcapabilities.MySQL, "execute",
				fmt.Errorf("error reading row: %v", err))
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = normalizeValue(dbTypes[i], v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil && !result.Truncated {
		a.log.LogOperationFailure(lctx, err)
		return nil, adapter.NewQueryError(dbcapabilities.MySQL, "execute",
			fmt.Errorf("error executing query: %v", err))
	}

	result.RowsReturned = len(result.Rows)
	result.ExecutionMS = time.Since(start).Milliseconds()
	a.log.LogOperation(lctx, result.ExecutionMS)
	return result, nil
}

// normalizeValue converts one driver value into a JSON-safe representation
// keyed by the column's declared type.
func normalizeValue(dbType string, v interface{}) interface{} {
	if v == nil {
		return nil
	}

	switch x := v.(type) {
	case time.Time:
		if dbType == "DATE" {
			return x.Format(engine.DateFormat)
		}
		return x.Format(engine.TimestampFormat)
	case float32:
		return engine.Float64(float64(x))
	case float64:
		return engine.Float64(x)
	case bool, int8, int16, int32, int64, uint8, uint16, uint32, uint64, string:
		return x
	case []byte:
		return normalizeBytes(dbType, x)
	case sql.RawBytes:
		return normalizeBytes(dbType, []byte(x))
	default:
		return engine.Fallback(v)
	}
}

// normalizeBytes routes a byte column by its declared type: exact numerics
// become canonical decimal strings, JSON documents pass through, declared
// binary is base64, and everything else is text when valid UTF-8.
func normalizeBytes(dbType string, b []byte) interface{} {
	switch dbType {
	case "DECIMAL", "NUMERIC":
		return engine.Decimal(string(b))
	case "JSON":
		var doc interface{}
		if err := json.Unmarshal(b, &doc); err == nil {
			return doc
		}
		return string(b)
	case "BINARY", "VARBINARY", "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BIT", "GEOMETRY":
		return engine.Binary(b)
	default:
		return engine.Bytes(b)
	}
}
