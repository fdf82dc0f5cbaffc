package perf

import (
	"encoding/json"
	"strconv"
)

// Value is a metric that may not be defined for the input, such as a
// profit factor without losing trades. The zero Value is undefined.
type Value struct {
	V       float64
	Defined bool
}

func Def(v float64) Value { return Value{V: v, Defined: true} }

var Undefined = Value{}

func (v Value) String() string {
	if !v.Defined {
		return "n/a"
	}
	return strconv.FormatFloat(v.V, 'f', 4, 64)
}

// Pct formats the value as a percentage with two decimals.
func (v Value) Pct() string {
	if !v.Defined {
		return "n/a"
	}
	return strconv.FormatFloat(v.V*100, 'f', 2, 64) + "%"
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Undefined
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Def(f)
	return nil
}
