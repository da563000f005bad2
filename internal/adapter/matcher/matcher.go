// Package matcher contains the default [domain.Matcher] implementation.
package matcher

import (
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/fieldnavigator"
)

// OrOperator is the only operator allowed at the top level of a query.
const OrOperator = "$or"

type oper func(val domain.Value, present bool, arg domain.Value) (bool, error)

// DateLayouts lists the layouts a string must parse with to be a date for
// the $type operator.
var DateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.ANSIC,
}

// Matcher implements [domain.Matcher].
type Matcher struct {
	comparer  domain.Comparer
	fn        domain.FieldNavigator
	compFuncs map[string]oper
	typeTags  map[string]func(domain.Value, bool) bool
}

// NewMatcher returns a new implementation of domain.Matcher.
func NewMatcher(options ...domain.MatcherOption) domain.Matcher {
	opts := domain.MatcherOptions{
		Comparer:       comparer.NewComparer(),
		FieldNavigator: fieldnavigator.NewFieldNavigator(),
	}
	for _, option := range options {
		option(&opts)
	}

	m := &Matcher{comparer: opts.Comparer, fn: opts.FieldNavigator}
	m.compFuncs = map[string]oper{
		"$exists": m.exists,
		"$ne":     m.ne,
		"$gt":     m.cmp(func(c int) bool { return c > 0 }),
		"$gte":    m.cmp(func(c int) bool { return c >= 0 }),
		"$lt":     m.cmp(func(c int) bool { return c < 0 }),
		"$lte":    m.cmp(func(c int) bool { return c <= 0 }),
		"$in":     m.in,
		"$nin":    m.nin,
		"$size":   m.size,
		"$all":    m.all,
		"$type":   m.typeOf,
		"$mod":    m.mod,
	}
	m.typeTags = map[string]func(domain.Value, bool) bool{
		"array":   m.kindIs(domain.KindArray),
		"object":  m.kindIs(domain.KindMap),
		"string":  m.kindIs(domain.KindString),
		"regex":   m.kindIs(domain.KindPattern),
		"pattern": m.kindIs(domain.KindPattern),
		"number":  m.isNumber,
		"double":  m.isNumber,
		"date":    m.isDate,
		"null":    func(v domain.Value, present bool) bool { return present && v.IsNull() },
		"bool":    func(domain.Value, bool) bool { return true },
		"boolean": func(domain.Value, bool) bool { return true },
	}
	return m
}

// IsOperator reports whether key is reserved for operators.
func IsOperator(key string) bool {
	return strings.HasPrefix(key, "$")
}

// Match implements [domain.Matcher]. Top-level predicates are evaluated in
// key order and ANDed.
func (m *Matcher) Match(doc *domain.Document, query domain.Query) (bool, error) {
	for _, field := range slices.Sorted(maps.Keys(query)) {
		term := query[field]
		var matches bool
		var err error
		switch {
		case field == OrOperator:
			matches, err = m.or(doc, term)
		case IsOperator(field):
			err = domain.ErrInvalidQuery{Op: field, Reason: "is not a top-level operator"}
		default:
			val, present := m.fn.GetField(doc, field)
			matches, err = m.matchField(val, present, term)
		}
		if err != nil || !matches {
			return false, err
		}
	}
	return true, nil
}

func (m *Matcher) or(doc *domain.Document, arg domain.Value) (bool, error) {
	if arg.Kind() != domain.KindArray {
		return false, domain.ErrInvalidQuery{Op: OrOperator, Reason: "requires an array"}
	}
	for _, sub := range arg.Items() {
		if sub.Kind() != domain.KindMap {
			return false, domain.ErrInvalidQuery{Op: OrOperator, Reason: "requires an array of queries"}
		}
	}
	for _, sub := range arg.Items() {
		matches, err := m.Match(doc, sub.Fields())
		if err != nil || matches {
			return matches, err
		}
	}
	return false, nil
}

func (m *Matcher) matchField(val domain.Value, present bool, term domain.Value) (bool, error) {
	switch term.Kind() {
	case domain.KindPattern:
		return m.matchPattern(val, present, term), nil
	case domain.KindMap:
		ops, err := m.operators(term)
		if err != nil {
			return false, err
		}
		if ops == nil {
			return present && m.comparer.Equal(val, term), nil
		}
		for _, op := range ops {
			matches, err := m.compFuncs[op](val, present, term.Fields()[op])
			if err != nil || !matches {
				return false, err
			}
		}
		return true, nil
	default:
		return m.matchLiteral(val, present, term), nil
	}
}

// operators returns the sorted operator keys of term, or nil when term is a
// plain map.
func (m *Matcher) operators(term domain.Value) ([]string, error) {
	keys := slices.Sorted(maps.Keys(term.Fields()))
	var ops int
	for _, k := range keys {
		if IsOperator(k) {
			ops++
		}
	}
	if ops == 0 {
		return nil, nil
	}
	if ops != len(keys) {
		return nil, domain.ErrInvalidQuery{Op: strings.Join(keys, ","), Reason: "mixes operators and fields"}
	}
	for _, k := range keys {
		if _, ok := m.compFuncs[k]; !ok {
			return nil, domain.ErrInvalidQuery{Op: k, Reason: "is not a known operator"}
		}
	}
	return keys, nil
}

func (m *Matcher) matchLiteral(val domain.Value, present bool, term domain.Value) bool {
	if !present {
		return false
	}
	switch val.Kind() {
	case domain.KindArray:
		if term.Kind() == domain.KindArray {
			return m.comparer.Equal(val, term)
		}
		return m.contains(val.Items(), term)
	case domain.KindMap, domain.KindPattern:
		return false
	default:
		return m.comparer.Equal(val, term)
	}
}

func (m *Matcher) matchPattern(val domain.Value, present bool, term domain.Value) bool {
	if !present {
		return false
	}
	re := term.Regexp()
	if val.Kind() == domain.KindArray {
		return slices.ContainsFunc(val.Items(), func(item domain.Value) bool {
			return item.IsScalar() && re.MatchString(item.Text())
		})
	}
	return val.IsScalar() && re.MatchString(val.Text())
}

func (m *Matcher) contains(items []domain.Value, v domain.Value) bool {
	return slices.ContainsFunc(items, func(item domain.Value) bool {
		return m.comparer.Equal(item, v)
	})
}

// anyOf applies fn to val, or to each element when val is an array.
func (m *Matcher) anyOf(val domain.Value, fn func(domain.Value) bool) bool {
	if val.Kind() == domain.KindArray {
		return slices.ContainsFunc(val.Items(), fn)
	}
	return fn(val)
}

func (m *Matcher) exists(_ domain.Value, present bool, arg domain.Value) (bool, error) {
	return arg.Truthy() == present, nil
}

func (m *Matcher) ne(val domain.Value, present bool, arg domain.Value) (bool, error) {
	if !present {
		return false, nil
	}
	return !m.anyOf(val, func(item domain.Value) bool {
		return m.comparer.Equal(item, arg)
	}), nil
}

func (m *Matcher) cmp(accept func(int) bool) oper {
	return func(val domain.Value, present bool, arg domain.Value) (bool, error) {
		if !present {
			return false, nil
		}
		return m.anyOf(val, func(item domain.Value) bool {
			c, ok := m.comparer.Compare(item, arg)
			return ok && accept(c)
		}), nil
	}
}

func (m *Matcher) in(val domain.Value, present bool, arg domain.Value) (bool, error) {
	if arg.Kind() != domain.KindArray {
		return false, domain.ErrInvalidQuery{Op: "$in", Reason: "requires an array"}
	}
	if !present {
		return false, nil
	}
	return m.anyOf(val, func(item domain.Value) bool {
		return m.contains(arg.Items(), item)
	}), nil
}

func (m *Matcher) nin(val domain.Value, present bool, arg domain.Value) (bool, error) {
	if arg.Kind() != domain.KindArray {
		return false, domain.ErrInvalidQuery{Op: "$nin", Reason: "requires an array"}
	}
	matches, err := m.in(val, present, arg)
	return !matches, err
}

func (m *Matcher) size(val domain.Value, _ bool, arg domain.Value) (bool, error) {
	n := arg.Num()
	if arg.Kind() != domain.KindNumber || n != math.Trunc(n) || n < 0 {
		return false, domain.ErrInvalidQuery{Op: "$size", Reason: "requires a non-negative integer"}
	}
	return val.Kind() == domain.KindArray && float64(val.Len()) == n, nil
}

func (m *Matcher) all(val domain.Value, _ bool, arg domain.Value) (bool, error) {
	if arg.Kind() != domain.KindArray {
		return false, domain.ErrInvalidQuery{Op: "$all", Reason: "requires an array"}
	}
	if val.Kind() != domain.KindArray {
		return false, nil
	}
	for _, want := range arg.Items() {
		if !m.contains(val.Items(), want) {
			return false, nil
		}
	}
	return true, nil
}

func (m *Matcher) mod(val domain.Value, present bool, arg domain.Value) (bool, error) {
	invalid := domain.ErrInvalidQuery{Op: "$mod", Reason: "requires [divisor, remainder] with a non-zero divisor"}
	if arg.Kind() != domain.KindArray || arg.Len() != 2 {
		return false, invalid
	}
	div, ok := m.comparer.Numeric(arg.Items()[0])
	if !ok || math.Trunc(div) == 0 {
		return false, invalid
	}
	rem, ok := m.comparer.Numeric(arg.Items()[1])
	if !ok {
		return false, invalid
	}
	if !present {
		return false, nil
	}
	d, r := int64(div), int64(rem)
	return m.anyOf(val, func(item domain.Value) bool {
		n, ok := m.comparer.Numeric(item)
		return ok && floorMod(int64(n), d) == r
	}), nil
}

// floorMod is the remainder of floored division: it takes the sign of d, so
// -7 mod 3 is 2.
func floorMod(n, d int64) int64 {
	res := n % d
	if res != 0 && (res < 0) != (d < 0) {
		res += d
	}
	return res
}

func (m *Matcher) typeOf(val domain.Value, present bool, arg domain.Value) (bool, error) {
	if arg.Kind() != domain.KindString {
		return false, domain.ErrInvalidQuery{Op: "$type", Reason: "requires a string tag"}
	}
	check, ok := m.typeTags[strings.ToLower(arg.Str())]
	if !ok {
		return false, domain.ErrInvalidQuery{Op: "$type", Reason: "unknown tag " + arg.Str()}
	}
	return check(val, present), nil
}

func (m *Matcher) kindIs(kind domain.Kind) func(domain.Value, bool) bool {
	return func(v domain.Value, present bool) bool {
		return present && v.Kind() == kind
	}
}

func (m *Matcher) isNumber(v domain.Value, present bool) bool {
	_, ok := m.comparer.Numeric(v)
	return present && ok
}

func (m *Matcher) isDate(v domain.Value, present bool) bool {
	if !present || v.Kind() != domain.KindString {
		return false
	}
	s := strings.TrimSpace(v.Str())
	for _, layout := range DateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
