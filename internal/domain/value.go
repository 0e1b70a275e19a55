package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates the scalar types a dataset cell can hold. Uploaded files
// declare no schema, so every cell carries its own inferred type.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
)

// Value is a tagged scalar cell value: number, string, boolean or null.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	Flag bool
}

// Row maps column names to cell values for one source row.
type Row map[string]Value

func Null() Value            { return Value{Kind: KindNull} }
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }
func String(s string) Value  { return Value{Kind: KindString, Str: s} }
func Bool(b bool) Value      { return Value{Kind: KindBool, Flag: b} }

func (v Value) IsNull() bool   { return v.Kind == KindNull }
func (v Value) IsNumber() bool { return v.Kind == KindNumber }

// Display renders the value the way it should appear as a categorical label.
// Nulls render empty.
func (v Value) Display() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindBool:
		return strconv.FormatBool(v.Flag)
	default:
		return ""
	}
}

// Interface returns the native Go scalar for serialization layers that want
// plain values (JSON encoding, document storage).
func (v Value) Interface() any {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindString:
		return v.Str
	case KindBool:
		return v.Flag
	default:
		return nil
	}
}

// ValueOf converts a decoded scalar back into a Value. Integer widths cover
// what document-store decoders produce for numeric cells.
func ValueOf(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case string:
		return String(t)
	case bool:
		return Bool(t)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var x any
	if err := json.Unmarshal(b, &x); err != nil {
		return err
	}
	*v = ValueOf(x)
	return nil
}

// Interface returns the row as a plain map of native scalars.
func (r Row) Interface() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v.Interface()
	}
	return out
}

// RowOf converts a decoded document back into a Row.
func RowOf(m map[string]any) Row {
	row := make(Row, len(m))
	for k, v := range m {
		row[k] = ValueOf(v)
	}
	return row
}
