// Package cursor contains the default [domain.Cursor] implementation.
package cursor

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/codec"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/metrics"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/tree"
)

var errNoSearcher = errors.New("cursor has no content searcher")

// Cursor implements domain.Cursor.
type Cursor struct {
	refs []domain.Ref
	memo map[string]*domain.Document
	pos  int
	opts domain.CursorOptions
}

// NewCursor returns a new implementation of Cursor over refs. Nothing is
// loaded until a document is requested.
func NewCursor(ctx context.Context, refs []domain.Ref, options ...domain.CursorOption) (domain.Cursor, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	opts := domain.CursorOptions{Scope: domain.ScopeCommitted}
	for _, option := range options {
		option(&opts)
	}
	if opts.Snapshot == nil {
		opts.Snapshot = tree.New()
	}
	if opts.Codec == nil {
		opts.Codec = codec.NewCodec()
	}
	if opts.Comparer == nil {
		opts.Comparer = comparer.NewComparer()
	}
	if opts.Matcher == nil {
		opts.Matcher = matcher.NewMatcher(domain.WithMatcherComparer(opts.Comparer))
	}
	if opts.FieldNavigator == nil {
		opts.FieldNavigator = fieldnavigator.NewFieldNavigator()
	}
	if opts.Decoder == nil {
		opts.Decoder = decoder.NewDecoder()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NewNop()
	}
	opts.Base = tree.Clean(opts.Base)

	return &Cursor{
		refs: slices.Clone(refs),
		memo: make(map[string]*domain.Document),
		opts: opts,
	}, nil
}

// derive returns a cursor over refs sharing the settings of c. Documents c
// already loaded are copied, so each cursor owns what it hands out.
func (c *Cursor) derive(refs []domain.Ref) *Cursor {
	memo := make(map[string]*domain.Document, len(refs))
	for _, ref := range refs {
		if doc, ok := c.memo[ref.Path]; ok {
			memo[ref.Path] = doc.Clone()
		}
	}
	return &Cursor{refs: refs, memo: memo, opts: c.opts}
}

func (c *Cursor) load(ctx context.Context, i int) (*domain.Document, error) {
	ref := c.refs[i]
	if doc, ok := c.memo[ref.Path]; ok {
		return doc, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := c.opts.Codec.Load(ctx, c.opts.Snapshot, ref, c.opts.Scope)
	if err != nil {
		return nil, err
	}
	c.memo[ref.Path] = doc
	return doc, nil
}

// Count implements domain.Cursor.
func (c *Cursor) Count() int {
	return len(c.refs)
}

// Refs implements domain.Cursor.
func (c *Cursor) Refs() []domain.Ref {
	return slices.Clone(c.refs)
}

// Position implements domain.Cursor.
func (c *Cursor) Position() int {
	return c.pos
}

// HasNext implements domain.Cursor.
func (c *Cursor) HasNext() bool {
	return c.pos < len(c.refs)
}

// Next implements domain.Cursor.
func (c *Cursor) Next(ctx context.Context) (*domain.Document, error) {
	if !c.HasNext() {
		return nil, domain.ErrCursorDrained
	}
	doc, err := c.load(ctx, c.pos)
	if err != nil {
		return nil, err
	}
	c.pos++
	return doc, nil
}

// First implements domain.Cursor.
func (c *Cursor) First(ctx context.Context) (*domain.Document, error) {
	if len(c.refs) == 0 {
		return nil, domain.ErrCursorEmpty
	}
	return c.load(ctx, 0)
}

// Last implements domain.Cursor.
func (c *Cursor) Last(ctx context.Context) (*domain.Document, error) {
	if len(c.refs) == 0 {
		return nil, domain.ErrCursorEmpty
	}
	return c.load(ctx, len(c.refs)-1)
}

// Rewind implements domain.Cursor.
func (c *Cursor) Rewind() {
	c.pos = 0
}

// All implements domain.Cursor.
func (c *Cursor) All(ctx context.Context) ([]*domain.Document, error) {
	res := make([]*domain.Document, 0, len(c.refs)-c.pos)
	for c.HasNext() {
		doc, err := c.Next(ctx)
		if err != nil {
			return nil, err
		}
		res = append(res, doc)
	}
	return res, nil
}

// Scan implements domain.Cursor.
func (c *Cursor) Scan(ctx context.Context, target any) error {
	docs, err := c.All(ctx)
	if err != nil {
		return err
	}
	return c.opts.Decoder.Decode(docs, target)
}

// ToQuery converts the accepted find arguments into a query: nil matches
// everything, a string is a name, a *regexp.Regexp is a name pattern and
// anything else must convert into a map.
func ToQuery(query any) (domain.Query, error) {
	switch q := query.(type) {
	case nil:
		return domain.Query{}, nil
	case string:
		return domain.Query{domain.NameField: domain.String(q)}, nil
	case *regexp.Regexp:
		return domain.Query{domain.NameField: domain.Pattern(q)}, nil
	case domain.Query:
		return q, nil
	}
	res, err := data.MapOf(query)
	if err != nil {
		return nil, domain.ErrInvalidQuery{Reason: err.Error()}
	}
	return res, nil
}

// validate evaluates every top-level predicate against an empty document so
// malformed operators fail even when no document is loaded.
func (c *Cursor) validate(q domain.Query) error {
	empty := domain.NewDocument("")
	for k, v := range q {
		if _, err := c.opts.Matcher.Match(empty, domain.Query{k: v}); err != nil {
			return err
		}
	}
	return nil
}

// Find implements domain.Cursor. The `_name` predicate is checked first,
// without loading. Any other predicate loads the remaining candidates.
func (c *Cursor) Find(ctx context.Context, query any) (domain.Cursor, error) {
	q, err := ToQuery(query)
	if err != nil {
		return nil, err
	}
	if err := c.validate(q); err != nil {
		return nil, err
	}

	var nameQuery domain.Query
	if term, ok := q[domain.NameField]; ok {
		nameQuery = domain.Query{domain.NameField: term}
	}
	expensive := len(q) > len(nameQuery)

	refs := make([]domain.Ref, 0, len(c.refs))
	candidates := 0
	for i, ref := range c.refs {
		if nameQuery != nil {
			stub := &domain.Document{Path: ref.Path, Name: ref.Name()}
			matches, err := c.opts.Matcher.Match(stub, nameQuery)
			if err != nil {
				return nil, err
			}
			if !matches {
				continue
			}
		}
		if expensive {
			candidates++
			doc, err := c.load(ctx, i)
			if err != nil {
				return nil, err
			}
			matches, err := c.opts.Matcher.Match(doc, q)
			if err != nil {
				return nil, err
			}
			if !matches {
				continue
			}
		}
		refs = append(refs, ref)
	}

	c.opts.Recorder.Query(expensive)
	if expensive {
		c.opts.Logger.Debug("query loaded documents",
			slog.String("collection", c.opts.Base),
			slog.Int("candidates", candidates),
			slog.Int("matches", len(refs)),
		)
	}
	return c.derive(refs), nil
}

// Grep implements domain.Cursor. Only entries already held by the cursor can
// be returned, in their current order.
func (c *Cursor) Grep(ctx context.Context, terms []string, options ...domain.GrepOption) (domain.Cursor, error) {
	if c.opts.Searcher == nil {
		return nil, errNoSearcher
	}
	opts := domain.GrepOptions{Working: c.opts.Scope == domain.ScopeWorking}
	for _, option := range options {
		option(&opts)
	}

	paths, err := c.opts.Searcher.Search(ctx, terms, opts, c.opts.Base)
	if err != nil {
		return nil, err
	}
	found := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		name, _, _ := strings.Cut(tree.Clean(p), "/")
		found[tree.Join(c.opts.Base, name)] = struct{}{}
	}

	refs := make([]domain.Ref, 0, len(found))
	for _, ref := range c.refs {
		if _, ok := found[tree.Clean(ref.Path)]; ok {
			refs = append(refs, ref)
		}
	}
	return c.derive(refs), nil
}

// Sort implements domain.Cursor. Missing fields sort last in both directions
// and the name breaks ties. Sorting on names alone loads nothing.
func (c *Cursor) Sort(ctx context.Context, order domain.Sort) (domain.Cursor, error) {
	order = slices.Clone(order)
	byName := true
	hasName := false
	for _, s := range order {
		if s.Key == domain.NameField {
			hasName = true
		} else {
			byName = false
		}
	}
	if !hasName {
		order = append(order, domain.SortName{Key: domain.NameField, Order: 1})
	}

	docs := make(map[string]*domain.Document, len(c.refs))
	for i, ref := range c.refs {
		if byName {
			docs[ref.Path] = &domain.Document{Path: ref.Path, Name: ref.Name()}
			continue
		}
		doc, err := c.load(ctx, i)
		if err != nil {
			return nil, err
		}
		docs[ref.Path] = doc
	}

	refs := slices.Clone(c.refs)
	slices.SortStableFunc(refs, func(a, b domain.Ref) int {
		return c.compare(docs[a.Path], docs[b.Path], order)
	})
	return c.derive(refs), nil
}

func (c *Cursor) compare(a, b *domain.Document, order domain.Sort) int {
	for _, s := range order {
		va, okA := c.opts.FieldNavigator.GetField(a, s.Key)
		vb, okB := c.opts.FieldNavigator.GetField(b, s.Key)
		switch {
		case !okA && !okB:
			continue
		case !okA:
			return 1
		case !okB:
			return -1
		}
		comp := c.opts.Comparer.Order(va, vb)
		if s.Order < 0 {
			comp = -comp
		}
		if comp != 0 {
			return comp
		}
	}
	return 0
}
