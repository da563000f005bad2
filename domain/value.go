package domain

import (
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Kind identifies which variant of [Value] is populated.
type Kind uint8

// Kind values enumerate the closed set of [Value] variants.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindPattern
	KindArray
	KindMap
)

var kindNames = [...]string{
	KindNull:    "null",
	KindBool:    "bool",
	KindNumber:  "number",
	KindString:  "string",
	KindPattern: "pattern",
	KindArray:   "array",
	KindMap:     "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is the tagged union used for document attributes and query terms. The
// zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	re   *regexp.Regexp
	arr  []Value
	m    map[string]Value
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric Value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Pattern returns a regular expression Value. A nil expression yields Null.
func Pattern(re *regexp.Regexp) Value {
	if re == nil {
		return Value{}
	}
	return Value{kind: KindPattern, re: re}
}

// MustPattern compiles expr and returns it as a Pattern Value. It panics if
// the expression is invalid.
func MustPattern(expr string) Value {
	return Pattern(regexp.MustCompile(expr))
}

// Array returns an array Value holding items.
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, arr: items}
}

// Map returns a map Value holding fields.
func Map(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindMap, m: fields}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean held by v, false for other variants.
func (v Value) Bool() bool { return v.b }

// Num returns the number held by v, zero for other variants.
func (v Value) Num() float64 { return v.n }

// Str returns the string held by v, empty for other variants.
func (v Value) Str() string { return v.s }

// Regexp returns the expression held by v, nil for other variants.
func (v Value) Regexp() *regexp.Regexp { return v.re }

// Items returns the elements of an array Value. The slice is shared.
func (v Value) Items() []Value { return v.arr }

// Fields returns the entries of a map Value. The map is shared.
func (v Value) Fields() map[string]Value { return v.m }

// Len returns the number of elements of an array or entries of a map.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindMap:
		return len(v.m)
	default:
		return 0
	}
}

// Get returns the map entry for key and whether it was set.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	r, ok := v.m[key]
	return r, ok
}

// IsScalar reports whether v is a Bool, Number or String.
func (v Value) IsScalar() bool {
	return v.kind == KindBool || v.kind == KindNumber || v.kind == KindString
}

// Text returns the lexical form of a scalar Value. Numbers use the shortest
// representation that round-trips.
func (v Value) Text() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindString:
		return v.s
	case KindPattern:
		return v.re.String()
	default:
		return ""
	}
}

// Truthy follows the usual scripting rules: null, false, zero, "" and "0" are
// false, everything else is true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0
	case KindString:
		return v.s != "" && v.s != "0"
	default:
		return true
	}
}

// Clone returns a deep copy of v. Patterns are shared since they are
// immutable.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		arr := make([]Value, len(v.arr))
		for n, item := range v.arr {
			arr[n] = item.Clone()
		}
		return Value{kind: KindArray, arr: arr}
	case KindMap:
		m := make(map[string]Value, len(v.m))
		for k, item := range v.m {
			m[k] = item.Clone()
		}
		return Value{kind: KindMap, m: m}
	default:
		return v
	}
}

// Equal reports strict structural equality: same variant, same content. It does
// not apply the numeric-looking string rules used by queries.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindPattern:
		return v.re.String() == o.re.String()
	case KindArray:
		return slices.EqualFunc(v.arr, o.arr, Value.Equal)
	default:
		return maps.EqualFunc(v.m, o.m, Value.Equal)
	}
}

// Interface converts v into plain Go values: nil, bool, float64, string,
// *regexp.Regexp, []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindPattern:
		return v.re
	case KindArray:
		res := make([]any, len(v.arr))
		for n, item := range v.arr {
			res[n] = item.Interface()
		}
		return res
	case KindMap:
		res := make(map[string]any, len(v.m))
		for k, item := range v.m {
			res[k] = item.Interface()
		}
		return res
	default:
		return nil
	}
}

// String implements fmt.Stringer with a compact, deterministic rendering.
func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindString:
		sb.WriteString(strconv.Quote(v.s))
	case KindPattern:
		sb.WriteString("/" + v.re.String() + "/")
	case KindArray:
		sb.WriteByte('[')
		for n, item := range v.arr {
			if n > 0 {
				sb.WriteByte(',')
			}
			item.write(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteByte('{')
		for n, k := range slices.Sorted(maps.Keys(v.m)) {
			if n > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteByte(':')
			v.m[k].write(sb)
		}
		sb.WriteByte('}')
	default:
		sb.WriteString(v.Text())
	}
}
