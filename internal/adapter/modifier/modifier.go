// Package modifier contains the default [domain.Modifier] implementation.
package modifier

import (
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/comparer"
)

type modFunc func(doc *domain.Document, field string, arg domain.Value) error

// Order lists the operators in the order they are applied.
var Order = []string{
	"$set",
	"$unset",
	"$inc",
	"$push",
	"$pushAll",
	"$addToSet",
	"$pop",
	"$pull",
	"$pullAll",
	"$rename",
}

// Modifier implements [domain.Modifier].
type Modifier struct {
	comp domain.Comparer
	mods map[string]modFunc
}

// NewModifier returns a new implementation of domain.Modifier.
func NewModifier(options ...domain.ModifierOption) domain.Modifier {
	opts := domain.ModifierOptions{
		Comparer: comparer.NewComparer(),
	}
	for _, option := range options {
		option(&opts)
	}

	m := &Modifier{comp: opts.Comparer}

	m.mods = map[string]modFunc{
		"$set":      m.set,
		"$unset":    m.unset,
		"$inc":      m.inc,
		"$push":     m.push,
		"$pushAll":  m.pushAll,
		"$addToSet": m.addToSet,
		"$pop":      m.pop,
		"$pull":     m.pull,
		"$pullAll":  m.pullAll,
		"$rename":   m.rename,
	}

	return m
}

// Modify implements [domain.Modifier]. The given document is never changed.
func (m *Modifier) Modify(doc *domain.Document, spec domain.UpdateSpec) (*domain.Document, error) {
	replace, err := m.isReplacement(spec)
	if err != nil {
		return nil, err
	}
	if replace {
		return m.replaceMod(doc, spec)
	}
	return m.dollarMod(doc, spec)
}

func (m *Modifier) isReplacement(spec domain.UpdateSpec) (bool, error) {
	dollarFields := 0
	for k := range spec {
		if strings.HasPrefix(k, "$") {
			dollarFields++
		}
	}
	if dollarFields != 0 && dollarFields != len(spec) {
		return false, domain.ErrInvalidUpdate{Reason: "cannot mix operators and normal fields"}
	}
	return dollarFields == 0, nil
}

func (m *Modifier) replaceMod(doc *domain.Document, spec domain.UpdateSpec) (*domain.Document, error) {
	res := doc.Clone()
	res.Attributes = make(map[string]domain.Value, len(spec))
	for _, k := range slices.Sorted(maps.Keys(spec)) {
		switch k {
		case domain.NameField:
		case domain.BodyField:
			if err := m.setBody(res, "", spec[k]); err != nil {
				return nil, err
			}
		default:
			res.Attributes[k] = spec[k].Clone()
		}
	}
	return res, nil
}

func (m *Modifier) dollarMod(doc *domain.Document, spec domain.UpdateSpec) (*domain.Document, error) {
	res := doc.Clone()
	for _, op := range Order {
		arg, ok := spec[op]
		if !ok {
			continue
		}
		if arg.Kind() != domain.KindMap {
			return nil, domain.ErrInvalidUpdate{Op: op, Reason: "argument must be a map"}
		}
		fn := m.mods[op]
		for _, field := range slices.Sorted(maps.Keys(arg.Fields())) {
			if field == domain.NameField {
				continue
			}
			if err := fn(res, field, arg.Fields()[field]); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

func (m *Modifier) setBody(doc *domain.Document, op string, v domain.Value) error {
	if !doc.HasBody {
		return domain.ErrInvalidUpdate{Op: op, Reason: "directory documents have no body"}
	}
	if v.Kind() != domain.KindString {
		return domain.ErrTypeMismatch{Op: op, Field: domain.BodyField, Got: v.Kind()}
	}
	doc.Body = v.Str()
	return nil
}

// array returns the array held by field. Missing and null fields are empty
// arrays.
func (m *Modifier) array(doc *domain.Document, op, field string) ([]domain.Value, error) {
	if field == domain.BodyField {
		return nil, domain.ErrInvalidUpdate{Op: op, Reason: "cannot be applied to " + domain.BodyField}
	}
	cur, ok := doc.Attributes[field]
	if !ok || cur.IsNull() {
		return []domain.Value{}, nil
	}
	if cur.Kind() != domain.KindArray {
		return nil, domain.ErrTypeMismatch{Op: op, Field: field, Got: cur.Kind()}
	}
	return cur.Items(), nil
}

func (m *Modifier) set(doc *domain.Document, field string, arg domain.Value) error {
	if field == domain.BodyField {
		return m.setBody(doc, "$set", arg)
	}
	doc.Attributes[field] = arg.Clone()
	return nil
}

func (m *Modifier) unset(doc *domain.Document, field string, _ domain.Value) error {
	if field == domain.BodyField {
		return m.setBody(doc, "$unset", domain.String(""))
	}
	delete(doc.Attributes, field)
	return nil
}

func (m *Modifier) inc(doc *domain.Document, field string, arg domain.Value) error {
	if arg.Kind() != domain.KindNumber {
		return domain.ErrInvalidUpdate{Op: "$inc", Reason: "argument must be a number"}
	}
	if field == domain.BodyField {
		return domain.ErrInvalidUpdate{Op: "$inc", Reason: "cannot be applied to " + domain.BodyField}
	}
	cur, ok := doc.Attributes[field]
	if !ok || cur.IsNull() {
		cur = domain.Number(0)
	}
	n, ok := m.comp.Numeric(cur)
	if !ok {
		return domain.ErrTypeMismatch{Op: "$inc", Field: field, Got: cur.Kind()}
	}
	doc.Attributes[field] = domain.Number(n + arg.Num())
	return nil
}

// each unpacks {"$each": [...], "$slice": n}. Other values are a single
// item.
func (m *Modifier) each(op string, arg domain.Value) (items []domain.Value, slice *int, err error) {
	eachArg, hasEach := arg.Get("$each")
	if !hasEach {
		return []domain.Value{arg}, nil, nil
	}
	if eachArg.Kind() != domain.KindArray {
		return nil, nil, domain.ErrInvalidUpdate{Op: op, Reason: "$each requires an array"}
	}
	used := 1
	if sliceArg, ok := arg.Get("$slice"); ok {
		n, ok := m.integer(sliceArg)
		if !ok || op != "$push" {
			return nil, nil, domain.ErrInvalidUpdate{Op: op, Reason: "$slice requires an integer and $push"}
		}
		used++
		slice = &n
	}
	if arg.Len() > used {
		return nil, nil, domain.ErrInvalidUpdate{Op: op, Reason: "only $each and $slice are allowed"}
	}
	return eachArg.Items(), slice, nil
}

func (m *Modifier) integer(v domain.Value) (int, bool) {
	n := v.Num()
	if v.Kind() != domain.KindNumber || n != math.Trunc(n) {
		return 0, false
	}
	return int(n), true
}

func (m *Modifier) push(doc *domain.Document, field string, arg domain.Value) error {
	items, slice, err := m.each("$push", arg)
	if err != nil {
		return err
	}
	cur, err := m.array(doc, "$push", field)
	if err != nil {
		return err
	}
	res := append(slices.Clone(cur), cloneAll(items)...)
	if slice != nil {
		if *slice >= 0 {
			res = res[:min(*slice, len(res))]
		} else {
			res = res[len(res)-min(-*slice, len(res)):]
		}
	}
	doc.Attributes[field] = domain.Array(res...)
	return nil
}

func (m *Modifier) pushAll(doc *domain.Document, field string, arg domain.Value) error {
	if arg.Kind() != domain.KindArray {
		return domain.ErrInvalidUpdate{Op: "$pushAll", Reason: "argument must be an array"}
	}
	cur, err := m.array(doc, "$pushAll", field)
	if err != nil {
		return err
	}
	doc.Attributes[field] = domain.Array(append(slices.Clone(cur), cloneAll(arg.Items())...)...)
	return nil
}

func (m *Modifier) addToSet(doc *domain.Document, field string, arg domain.Value) error {
	items, _, err := m.each("$addToSet", arg)
	if err != nil {
		return err
	}
	cur, err := m.array(doc, "$addToSet", field)
	if err != nil {
		return err
	}
	res := slices.Clone(cur)
	for _, item := range items {
		if !m.contains(res, item) {
			res = append(res, item.Clone())
		}
	}
	doc.Attributes[field] = domain.Array(res...)
	return nil
}

// pop removes the element at the given index. Negative indexes count from
// the end. Out of range indexes are ignored.
func (m *Modifier) pop(doc *domain.Document, field string, arg domain.Value) error {
	idx, ok := m.integer(arg)
	if !ok {
		return domain.ErrInvalidUpdate{Op: "$pop", Reason: "argument must be an integer"}
	}
	if _, ok := doc.Attributes[field]; !ok && field != domain.BodyField {
		return nil
	}
	cur, err := m.array(doc, "$pop", field)
	if err != nil {
		return err
	}
	if idx < 0 {
		idx += len(cur)
	}
	if idx < 0 || idx >= len(cur) {
		return nil
	}
	doc.Attributes[field] = domain.Array(slices.Delete(slices.Clone(cur), idx, idx+1)...)
	return nil
}

func (m *Modifier) pull(doc *domain.Document, field string, arg domain.Value) error {
	return m.removeWhere(doc, "$pull", field, func(item domain.Value) bool {
		if arg.Kind() == domain.KindPattern {
			return item.IsScalar() && arg.Regexp().MatchString(item.Text())
		}
		return m.comp.Equal(item, arg)
	})
}

func (m *Modifier) pullAll(doc *domain.Document, field string, arg domain.Value) error {
	if arg.Kind() != domain.KindArray {
		return domain.ErrInvalidUpdate{Op: "$pullAll", Reason: "argument must be an array"}
	}
	return m.removeWhere(doc, "$pullAll", field, func(item domain.Value) bool {
		return m.contains(arg.Items(), item)
	})
}

func (m *Modifier) removeWhere(doc *domain.Document, op, field string, del func(domain.Value) bool) error {
	if _, ok := doc.Attributes[field]; !ok && field != domain.BodyField {
		return nil
	}
	cur, err := m.array(doc, op, field)
	if err != nil {
		return err
	}
	doc.Attributes[field] = domain.Array(slices.DeleteFunc(slices.Clone(cur), del)...)
	return nil
}

func (m *Modifier) rename(doc *domain.Document, field string, arg domain.Value) error {
	if arg.Kind() != domain.KindString || arg.Str() == "" {
		return domain.ErrInvalidUpdate{Op: "$rename", Reason: "target must be a non-empty string"}
	}
	target := arg.Str()
	if target == domain.NameField || target == domain.BodyField || field == domain.BodyField {
		return domain.ErrInvalidUpdate{Op: "$rename", Reason: "cannot rename pseudo-fields"}
	}
	v, ok := doc.Attributes[field]
	if !ok || target == field {
		return nil
	}
	delete(doc.Attributes, field)
	doc.Attributes[target] = v
	return nil
}

func (m *Modifier) contains(items []domain.Value, v domain.Value) bool {
	return slices.ContainsFunc(items, func(item domain.Value) bool {
		return m.comp.Equal(item, v)
	})
}

func cloneAll(items []domain.Value) []domain.Value {
	res := make([]domain.Value, len(items))
	for n, item := range items {
		res[n] = item.Clone()
	}
	return res
}
