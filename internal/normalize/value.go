package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is a loosely typed JSON scalar. Upstream APIs disagree on whether
// counts are strings or numbers, so decoding never fails and coercion
// happens later through the typed accessors.
type Value struct {
	raw   string
	set   bool
	isNum bool
}

func StringValue(s string) Value {
	return Value{raw: s, set: true}
}

func IntValue(n int64) Value {
	return Value{raw: strconv.FormatInt(n, 10), set: true, isNum: true}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*v = Value{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*v = Value{raw: s, set: true}
	case 't', 'f':
		*v = Value{raw: string(data), set: true}
	case '{', '[':
		// Composite values carry nothing a scalar field can use.
	default:
		*v = Value{raw: string(data), set: true, isNum: true}
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	if v.isNum {
		return []byte(v.raw), nil
	}
	return json.Marshal(v.raw)
}

func (v Value) IsZero() bool {
	return !v.set || strings.TrimSpace(v.raw) == ""
}

func (v Value) String() string {
	return strings.TrimSpace(v.raw)
}

// Int64 returns the value as a non-negative integer, or nil when it is
// absent, negative or not a number. Fractions are truncated.
func (v Value) Int64() *int64 {
	text := v.String()
	if !v.set || text == "" {
		return nil
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		if n < 0 {
			return nil
		}
		return &n
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f >= math.MaxInt64 {
		return nil
	}
	n := int64(f)
	return &n
}

func (v Value) Int() *int {
	n := v.Int64()
	if n == nil || *n > math.MaxInt32 {
		return nil
	}
	out := int(*n)
	return &out
}
