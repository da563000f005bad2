// Package data converts user provided Go values into [domain.Value] trees.
package data

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"time"

	goreflect "github.com/goccy/go-reflect"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
)

// TagName is the struct tag read when converting structs.
const TagName = "treedb"

var (
	timeTyp  = goreflect.TypeOf(*new(time.Time))
	valueTyp = goreflect.TypeOf(*new(domain.Value))
)

// ValueOf converts in into a [domain.Value]. Structs and maps become maps,
// slices and arrays become arrays, times become RFC 3339 strings and
// *regexp.Regexp becomes a pattern. [domain.JSON] is parsed.
func ValueOf(in any) (domain.Value, error) {
	if j, ok := in.(domain.JSON); ok {
		return ParseJSON(j)
	}
	if v, ok := parseSimple(in); ok {
		return v, nil
	}
	return parseReflect(goreflect.ValueNoEscapeOf(in))
}

// MapOf converts in into a map of values. It fails if in is not map-like. A
// nil input returns an empty map.
func MapOf(in any) (map[string]domain.Value, error) {
	if in == nil {
		return map[string]domain.Value{}, nil
	}
	v, err := ValueOf(in)
	if err != nil {
		return nil, err
	}
	switch v.Kind() {
	case domain.KindMap:
		return v.Fields(), nil
	case domain.KindNull:
		return map[string]domain.Value{}, nil
	default:
		return nil, fmt.Errorf("expected map or struct, got %s", v.Kind())
	}
}

func parseSimple(in any) (domain.Value, bool) {
	switch t := in.(type) {
	case nil:
		return domain.Null(), true
	case domain.Value:
		return t, true
	case *regexp.Regexp:
		return domain.Pattern(t), true
	case string:
		return domain.String(t), true
	case bool:
		return domain.Bool(t), true
	case int:
		return domain.Number(float64(t)), true
	case int64:
		return domain.Number(float64(t)), true
	case float64:
		return domain.Number(t), true
	case time.Time:
		return domain.String(t.Format(time.RFC3339Nano)), true
	case map[string]domain.Value:
		return domain.Map(t), true
	case []domain.Value:
		return domain.Array(t...), true
	default:
		return domain.Value{}, false
	}
}

func parseReflect(r goreflect.Value) (domain.Value, error) {
	for r.Kind() == reflect.Pointer || r.Kind() == goreflect.Interface {
		if r.IsNil() {
			return domain.Null(), nil
		}
		r = r.Elem()
	}
	switch r.Kind() {
	case goreflect.Invalid:
		return domain.Null(), nil
	case goreflect.Bool:
		return domain.Bool(r.Bool()), nil
	case goreflect.Int, goreflect.Int8, goreflect.Int16, goreflect.Int32, goreflect.Int64:
		return domain.Number(float64(r.Int())), nil
	case goreflect.Uint, goreflect.Uint8, goreflect.Uint16, goreflect.Uint32, goreflect.Uint64, goreflect.Uintptr:
		return domain.Number(float64(r.Uint())), nil
	case goreflect.Float32, goreflect.Float64:
		return domain.Number(r.Float()), nil
	case goreflect.String:
		return domain.String(r.String()), nil
	case goreflect.Slice:
		if r.IsNil() {
			return domain.Null(), nil
		}
		if r.Type().Elem().Kind() == reflect.Uint8 {
			return domain.String(string(r.Bytes())), nil
		}
		return parseList(r)
	case goreflect.Array:
		return parseList(r)
	case goreflect.Map:
		if r.IsNil() {
			return domain.Null(), nil
		}
		return parseMap(r)
	case goreflect.Struct:
		switch r.Type() {
		case timeTyp:
			return domain.String(r.Interface().(time.Time).Format(time.RFC3339Nano)), nil
		case valueTyp:
			return r.Interface().(domain.Value), nil
		}
		return parseStruct(r)
	default:
		return domain.Value{}, fmt.Errorf("cannot convert %s into a value", r.Type().String())
	}
}

func parseList(r goreflect.Value) (domain.Value, error) {
	length := r.Len()
	res := make([]domain.Value, length)
	for i := range length {
		item, err := parseReflect(r.Index(i))
		if err != nil {
			return domain.Value{}, err
		}
		res[i] = item
	}
	return domain.Array(res...), nil
}

func parseMap(r goreflect.Value) (domain.Value, error) {
	res := make(map[string]domain.Value, r.Len())
	for _, k := range r.MapKeys() {
		key := k.String()
		if k.Kind() != goreflect.String {
			key = fmt.Sprint(k.Interface())
		}
		item, err := parseReflect(r.MapIndex(k))
		if err != nil {
			return domain.Value{}, err
		}
		res[key] = item
	}
	return domain.Map(res), nil
}

func parseStruct(r goreflect.Value) (domain.Value, error) {
	typ := r.Type()
	numField := r.NumField()

	res := make(map[string]domain.Value, numField)

	for n := range numField {
		field := typ.Field(n)
		if field.PkgPath != "" {
			continue
		}
		name, skip := fieldName(r.Field(n), field)
		if skip {
			continue
		}
		item, err := parseReflect(r.Field(n))
		if err != nil {
			return domain.Value{}, fmt.Errorf("field %s: %w", field.Name, err)
		}
		res[name] = item
	}
	return domain.Map(res), nil
}

func fieldName(r goreflect.Value, typ goreflect.StructField) (string, bool) {
	name := typ.Name
	tag, ok := typ.Tag.Lookup(TagName)
	if !ok {
		return name, false
	}
	if tag == "-" {
		return "", true
	}
	segments := strings.Split(tag, ",")
	if segments[0] != "" {
		name = segments[0]
	}
	segments = segments[1:]
	if slices.Contains(segments, "omitempty") && isNullable(typ.Type) && r.IsNil() {
		return "", true
	}
	if slices.Contains(segments, "omitzero") && r.IsZero() {
		return "", true
	}
	return name, false
}

func isNullable(t goreflect.Type) bool {
	k := t.Kind()
	return k == reflect.Pointer ||
		k == reflect.Slice ||
		k == reflect.Map ||
		k == reflect.Interface
}
