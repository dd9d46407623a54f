// Package engine holds the pieces shared by all engine adapters: value
// normalization into JSON-safe shapes and structured operation logging.
package engine

import (
	"encoding/base64"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Canonical temporal layouts used across all engines.
const (
	DateFormat        = "2006-01-02"
	TimeFormat        = "15:04:05"
	TimestampFormat   = "2006-01-02T15:04:05"
	TimestampTZFormat = time.RFC3339
)

// Float64 returns a JSON-safe rendering of a float. NaN and the infinities
// have no JSON representation and collapse to null.
func Float64(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// Bytes renders a byte column: valid UTF-8 passes through as text, anything
// else is standard base64.
func Bytes(b []byte) interface{} {
	if b == nil {
		return nil
	}
	if utf8.Valid(b) {
		return string(b)
	}
	return base64.StdEncoding.EncodeToString(b)
}

// Binary always renders as standard base64, for columns that are binary by
// declaration rather than by content.
func Binary(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return base64.StdEncoding.EncodeToString(b)
}

// Decimal renders an exact numeric string in canonical form. Unparseable
// input passes through unchanged rather than failing the row.
func Decimal(s string) interface{} {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.String()
}

// Fallback renders a value of a type no engine rule covered. Normalization
// never fails a row over an unknown type.
func Fallback(v interface{}) interface{} {
	return fmt.Sprintf("%v", v)
}
