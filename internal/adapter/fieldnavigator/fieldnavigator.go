// Package fieldnavigator resolves dotted field paths inside documents.
package fieldnavigator

import (
	"strconv"
	"strings"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
)

// Separator splits a field path into its parts.
const Separator = "."

// FieldNavigator implements [domain.FieldNavigator].
type FieldNavigator struct{}

// NewFieldNavigator returns a new instance of [domain.FieldNavigator].
func NewFieldNavigator() domain.FieldNavigator {
	return &FieldNavigator{}
}

// GetAddress implements [domain.FieldNavigator].
func (fn *FieldNavigator) GetAddress(field string) []string {
	return strings.Split(field, Separator)
}

// GetField implements [domain.FieldNavigator]. An attribute whose name is
// the whole path wins over navigation. Numeric parts index arrays, and any
// other part applied to an array is collected from each of its maps.
func (fn *FieldNavigator) GetField(doc *domain.Document, field string) (domain.Value, bool) {
	if val, ok := doc.Get(field); ok || !strings.Contains(field, Separator) {
		return val, ok
	}

	parts := fn.GetAddress(field)
	curr, ok := doc.Get(parts[0])
	for _, part := range parts[1:] {
		if !ok {
			break
		}
		curr, ok = fn.step(curr, part)
	}
	return curr, ok
}

func (fn *FieldNavigator) step(val domain.Value, part string) (domain.Value, bool) {
	switch val.Kind() {
	case domain.KindMap:
		return val.Get(part)
	case domain.KindArray:
		if i, err := strconv.Atoi(part); err == nil {
			if i < 0 || i >= val.Len() {
				return domain.Null(), false
			}
			return val.Items()[i], true
		}
		var found []domain.Value
		for _, item := range val.Items() {
			if v, ok := item.Get(part); ok {
				found = append(found, v)
			}
		}
		if len(found) == 0 {
			return domain.Null(), false
		}
		return domain.Array(found...), true
	default:
		return domain.Null(), false
	}
}
