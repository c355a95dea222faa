package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nushape/nushape/internal/hir"
)

// Value is a shell value. The dynamic type is one of string, int64,
// float64, bool, []Value, *Row, Range, ColumnPath, *BlockValue or nil.
type Value interface{}

// Row is a record with ordered columns
type Row struct {
	columns []string
	cells   map[string]Value
}

// NewRow creates an empty row
func NewRow() *Row {
	return &Row{cells: make(map[string]Value)}
}

// Set assigns a column, appending it if new
func (r *Row) Set(column string, v Value) {
	if _, ok := r.cells[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.cells[column] = v
}

// Get returns the value of a column
func (r *Row) Get(column string) (Value, bool) {
	v, ok := r.cells[column]
	return v, ok
}

// Columns returns the column names in insertion order
func (r *Row) Columns() []string {
	return append([]string(nil), r.columns...)
}

// MarshalJSON encodes the row as an object preserving column order
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := MarshalValue(r.cells[col])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Range is an inclusive integer range
type Range struct {
	From int64
	To   int64
}

// Contains reports whether n lies within the range
func (r Range) Contains(n int64) bool {
	if r.From <= r.To {
		return n >= r.From && n <= r.To
	}
	return n <= r.From && n >= r.To
}

// ColumnPath is a dotted member path such as name.first
type ColumnPath []string

func (c ColumnPath) String() string { return strings.Join(c, ".") }

// BlockValue is a block passed as an argument together with the variables
// visible where it was written. Source is the text the block's spans index into.
type BlockValue struct {
	Block  *hir.Block
	Vars   map[string]Value
	Source string
}

// MarshalValue encodes a value as JSON
func MarshalValue(v Value) ([]byte, error) {
	switch x := v.(type) {
	case []Value:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := MarshalValue(item)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case Range:
		return json.Marshal(map[string]int64{"from": x.From, "to": x.To})
	case ColumnPath:
		return json.Marshal(x.String())
	case *BlockValue:
		return json.Marshal(x.Block.String())
	}
	return json.Marshal(v)
}

// FromNative converts decoded JSON or YAML data into shell values. Map keys
// are sorted since the decoders do not preserve order.
func FromNative(v interface{}) Value {
	switch x := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		row := NewRow()
		for _, k := range keys {
			row.Set(k, FromNative(x[k]))
		}
		return row
	case []interface{}:
		out := make([]Value, len(x))
		for i, item := range x {
			out[i] = FromNative(item)
		}
		return out
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
		return x
	case int:
		return int64(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	}
	return v
}

// TypeName describes the dynamic type of v for error messages
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case string:
		return "string"
	case int64:
		return "integer"
	case float64:
		return "decimal"
	case bool:
		return "boolean"
	case []Value:
		return "table"
	case *Row:
		return "row"
	case Range:
		return "range"
	case ColumnPath:
		return "column path"
	case *BlockValue:
		return "block"
	}
	return fmt.Sprintf("%T", v)
}

// Format renders a value for terminal output
func Format(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []Value:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = Format(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Row:
		parts := make([]string, len(x.columns))
		for i, col := range x.columns {
			parts[i] = col + ": " + Format(x.cells[col])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case Range:
		return fmt.Sprintf("%d..%d", x.From, x.To)
	case ColumnPath:
		return x.String()
	case *BlockValue:
		return "{ " + x.Block.String() + " }"
	}
	return fmt.Sprint(v)
}

// AsString coerces a value to a string where that is meaningful
func AsString(v Value) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case int64, float64, bool:
		return Format(x), true
	case ColumnPath:
		return x.String(), true
	}
	return "", false
}

// AsFloat coerces a numeric value to float64
func AsFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
