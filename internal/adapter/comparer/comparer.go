// Package comparer contains the default [domain.Comparer] implementation.
package comparer

import (
	"cmp"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
)

// Comparer implements domain.Comparer.
type Comparer struct{}

// NewComparer returns a new implementation of domain.Comparer.
func NewComparer() domain.Comparer {
	return &Comparer{}
}

// Numeric implements domain.Comparer.
func (c *Comparer) Numeric(v domain.Value) (float64, bool) {
	switch v.Kind() {
	case domain.KindNumber:
		return v.Num(), true
	case domain.KindString:
		return c.parseNumber(v.Str())
	default:
		return 0, false
	}
}

// parseNumber accepts decimal integers and floats with optional sign,
// exponent and surrounding blanks. Hex, underscores, inf and nan are not
// numbers here.
func (c *Comparer) parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Compare implements domain.Comparer.
func (c *Comparer) Compare(a, b domain.Value) (int, bool) {
	if !a.IsScalar() || !b.IsScalar() {
		return 0, false
	}
	if x, ok := c.Numeric(a); ok {
		if y, ok := c.Numeric(b); ok {
			return cmp.Compare(x, y), true
		}
	}
	return strings.Compare(a.Text(), b.Text()), true
}

// Equal implements domain.Comparer.
func (c *Comparer) Equal(a, b domain.Value) bool {
	if comp, ok := c.Compare(a, b); ok {
		return comp == 0
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case domain.KindNull:
		return true
	case domain.KindPattern:
		return a.Regexp().String() == b.Regexp().String()
	case domain.KindArray:
		return slices.EqualFunc(a.Items(), b.Items(), c.Equal)
	case domain.KindMap:
		return maps.EqualFunc(a.Fields(), b.Fields(), c.Equal)
	default:
		return false
	}
}

// Order implements domain.Comparer. Scalars use the Compare rules; other
// variants are ranked null, scalars, patterns, arrays, maps.
func (c *Comparer) Order(a, b domain.Value) int {
	if comp, ok := c.Compare(a, b); ok {
		return comp
	}
	if ra, rb := c.rank(a), c.rank(b); ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch a.Kind() {
	case domain.KindPattern:
		return strings.Compare(a.Regexp().String(), b.Regexp().String())
	case domain.KindArray:
		return c.compareArray(a.Items(), b.Items())
	case domain.KindMap:
		return c.compareMap(a.Fields(), b.Fields())
	default:
		return 0
	}
}

func (c *Comparer) rank(v domain.Value) int {
	switch v.Kind() {
	case domain.KindNull:
		return 0
	case domain.KindBool, domain.KindNumber, domain.KindString:
		return 1
	case domain.KindPattern:
		return 2
	case domain.KindArray:
		return 3
	default:
		return 4
	}
}

func (c *Comparer) compareArray(a, b []domain.Value) int {
	for i := range min(len(a), len(b)) {
		if comp := c.Order(a[i], b[i]); comp != 0 {
			return comp
		}
	}

	// Common section was identical, longest one wins
	return cmp.Compare(len(a), len(b))
}

func (c *Comparer) compareMap(a, b map[string]domain.Value) int {
	aKeys := slices.Sorted(maps.Keys(a))
	bKeys := slices.Sorted(maps.Keys(b))

	for i := range min(len(aKeys), len(bKeys)) {
		if comp := strings.Compare(aKeys[i], bKeys[i]); comp != 0 {
			return comp
		}
		if comp := c.Order(a[aKeys[i]], b[bKeys[i]]); comp != 0 {
			return comp
		}
	}

	return cmp.Compare(len(aKeys), len(bKeys))
}
