// Package collection contains the default [domain.Collection] implementation.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"strings"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/classifier"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/codec"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/data"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/metrics"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/modifier"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/namegenerator"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/repository"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/tree"
)

// DefaultDirMode is the mode of collection directories created on insert.
const DefaultDirMode os.FileMode = 0o755

// Collection implements domain.Collection.
type Collection struct {
	path          string
	repo          domain.Repository
	classifier    domain.Classifier
	codec         domain.Codec
	matcher       domain.Matcher
	modifier      domain.Modifier
	comparer      domain.Comparer
	cursorFactory domain.CursorFactory
	decoder       domain.Decoder
	nameGenerator domain.NameGenerator
	dirMode       os.FileMode
	log           *slog.Logger
	recorder      domain.Recorder
}

// NewCollection returns a new implementation of domain.Collection for the
// collection at p. The collection does not need to exist yet: it is created
// by the first insert.
func NewCollection(p string, options ...domain.CollectionOption) domain.Collection {
	opts := domain.CollectionOptions{
		CursorFactory: cursor.NewCursor,
		DirMode:       DefaultDirMode,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Repository == nil {
		opts.Repository = repository.NewRepository()
	}
	if opts.Classifier == nil {
		opts.Classifier = classifier.NewClassifier()
	}
	if opts.Codec == nil {
		opts.Codec = codec.NewCodec(domain.WithCodecClassifier(opts.Classifier))
	}
	if opts.Comparer == nil {
		opts.Comparer = comparer.NewComparer()
	}
	if opts.Matcher == nil {
		opts.Matcher = matcher.NewMatcher(domain.WithMatcherComparer(opts.Comparer))
	}
	if opts.Modifier == nil {
		opts.Modifier = modifier.NewModifier(domain.WithModifierComparer(opts.Comparer))
	}
	if opts.Decoder == nil {
		opts.Decoder = decoder.NewDecoder()
	}
	if opts.NameGenerator == nil {
		opts.NameGenerator = namegenerator.NewNameGenerator(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NewNop()
	}
	return &Collection{
		path:          tree.Clean(p),
		repo:          opts.Repository,
		classifier:    opts.Classifier,
		codec:         opts.Codec,
		matcher:       opts.Matcher,
		modifier:      opts.Modifier,
		comparer:      opts.Comparer,
		cursorFactory: opts.CursorFactory,
		decoder:       opts.Decoder,
		nameGenerator: opts.NameGenerator,
		dirMode:       opts.DirMode,
		log:           opts.Logger,
		recorder:      opts.Recorder,
	}
}

// options rebuilds the options of c, so nested collections share its
// collaborators.
func (c *Collection) options() []domain.CollectionOption {
	return []domain.CollectionOption{
		domain.WithCollectionRepository(c.repo),
		domain.WithCollectionClassifier(c.classifier),
		domain.WithCollectionCodec(c.codec),
		domain.WithCollectionMatcher(c.matcher),
		domain.WithCollectionModifier(c.modifier),
		domain.WithCollectionComparer(c.comparer),
		domain.WithCollectionCursorFactory(c.cursorFactory),
		domain.WithCollectionDecoder(c.decoder),
		domain.WithCollectionNameGenerator(c.nameGenerator),
		domain.WithCollectionDirMode(c.dirMode),
		domain.WithCollectionLogger(c.log),
		domain.WithCollectionRecorder(c.recorder),
	}
}

// Path implements domain.Collection.
func (c *Collection) Path() string {
	return c.path
}

func (c *Collection) snapshot(ctx context.Context, scope domain.Scope) (domain.Snapshot, error) {
	if scope == domain.ScopeWorking {
		return c.repo.Working(), nil
	}
	return c.repo.Head(ctx)
}

// kind classifies the collection itself. A missing collection is not an
// error: it is just empty.
func (c *Collection) kind(ctx context.Context, snap domain.Snapshot) (domain.NodeKind, error) {
	if c.path == "" {
		return domain.NodeCollection, nil
	}
	kind, err := c.classifier.Classify(ctx, snap, c.path)
	if err != nil {
		return 0, err
	}
	if kind != domain.NodeNotFound && kind != domain.NodeCollection {
		return 0, domain.ErrPathKind{Path: c.path, Want: domain.NodeCollection, Got: kind}
	}
	return kind, nil
}

// children returns the classified direct children of the collection, in
// snapshot order.
func (c *Collection) children(ctx context.Context, snap domain.Snapshot) ([]domain.Ref, error) {
	kind, err := c.kind(ctx, snap)
	if err != nil || kind == domain.NodeNotFound {
		return nil, err
	}
	names, err := snap.List(ctx, c.path)
	if err != nil {
		return nil, err
	}
	refs := make([]domain.Ref, 0, len(names))
	for _, name := range names {
		if classifier.IsReserved(name) {
			continue
		}
		p := tree.Join(c.path, name)
		kind, err := c.classifier.Classify(ctx, snap, p)
		if err != nil {
			return nil, err
		}
		refs = append(refs, domain.Ref{Path: p, Kind: kind})
	}
	return refs, nil
}

func (c *Collection) documents(ctx context.Context, snap domain.Snapshot) ([]domain.Ref, error) {
	refs, err := c.children(ctx, snap)
	if err != nil {
		return nil, err
	}
	docs := refs[:0]
	for _, ref := range refs {
		if ref.Kind.IsDocument() {
			docs = append(docs, ref)
		}
	}
	return docs, nil
}

func (c *Collection) cursor(ctx context.Context, refs []domain.Ref, snap domain.Snapshot, scope domain.Scope) (domain.Cursor, error) {
	return c.cursorFactory(ctx, refs,
		domain.WithCursorSnapshot(snap),
		domain.WithCursorScope(scope),
		domain.WithCursorBase(c.path),
		domain.WithCursorCodec(c.codec),
		domain.WithCursorMatcher(c.matcher),
		domain.WithCursorComparer(c.comparer),
		domain.WithCursorSearcher(c.repo),
		domain.WithCursorDecoder(c.decoder),
		domain.WithCursorLogger(c.log),
		domain.WithCursorRecorder(c.recorder),
	)
}

// all returns a cursor over every document of the collection.
func (c *Collection) all(ctx context.Context, scope domain.Scope) (domain.Cursor, error) {
	snap, err := c.snapshot(ctx, scope)
	if err != nil {
		return nil, err
	}
	refs, err := c.documents(ctx, snap)
	if err != nil {
		return nil, err
	}
	return c.cursor(ctx, refs, snap, scope)
}

// Find implements domain.Collection.
func (c *Collection) Find(ctx context.Context, query any, options ...domain.FindOption) (domain.Cursor, error) {
	var fo domain.FindOptions
	for _, option := range options {
		option(&fo)
	}

	cur, err := c.all(ctx, fo.Scope())
	if err != nil {
		return nil, err
	}
	if cur, err = cur.Find(ctx, query); err != nil {
		return nil, err
	}
	if len(fo.Sort) > 0 {
		if cur, err = cur.Sort(ctx, fo.Sort); err != nil {
			return nil, err
		}
	}
	if fo.Skip <= 0 && fo.Limit <= 0 {
		return cur, nil
	}

	refs := cur.Refs()
	refs = refs[min(int64(len(refs)), max(0, fo.Skip)):]
	if fo.Limit > 0 {
		refs = refs[:min(int64(len(refs)), fo.Limit)]
	}
	snap, err := c.snapshot(ctx, fo.Scope())
	if err != nil {
		return nil, err
	}
	return c.cursor(ctx, refs, snap, fo.Scope())
}

// FindOne implements domain.Collection.
func (c *Collection) FindOne(ctx context.Context, query any, options ...domain.FindOption) (*domain.Document, error) {
	cur, err := c.Find(ctx, query, options...)
	if err != nil {
		return nil, err
	}
	doc, err := cur.First(ctx)
	if errors.Is(err, domain.ErrCursorEmpty) {
		return nil, domain.ErrMissing{Path: c.describe(query)}
	}
	return doc, err
}

// describe names the path a lookup was aimed at, for error messages.
func (c *Collection) describe(query any) string {
	if name, ok := query.(string); ok {
		return tree.Join(c.path, name)
	}
	return c.path
}

// Count implements domain.Collection.
func (c *Collection) Count(ctx context.Context, query any, options ...domain.FindOption) (int, error) {
	cur, err := c.Find(ctx, query, options...)
	if err != nil {
		return 0, err
	}
	return cur.Count(), nil
}

// Grep implements domain.Collection.
func (c *Collection) Grep(ctx context.Context, terms []string, options ...domain.GrepOption) (domain.Cursor, error) {
	var opts domain.GrepOptions
	for _, option := range options {
		option(&opts)
	}
	scope := domain.ScopeCommitted
	if opts.Working {
		scope = domain.ScopeWorking
	}
	cur, err := c.all(ctx, scope)
	if err != nil {
		return nil, err
	}
	return cur.Grep(ctx, terms, options...)
}

// Insert implements domain.Collection.
func (c *Collection) Insert(ctx context.Context, name string, attributes any) (string, error) {
	paths, err := c.BatchInsert(ctx, domain.NamedAttributes{Name: name, Attributes: attributes})
	if err != nil {
		return "", err
	}
	return paths[0], nil
}

// BatchInsert implements domain.Collection. Every name is checked before
// anything is written, so a conflict leaves the work tree untouched.
func (c *Collection) BatchInsert(ctx context.Context, newDocs ...domain.NamedAttributes) ([]string, error) {
	snap := c.repo.Working()
	kind, err := c.kind(ctx, snap)
	if err != nil {
		return nil, err
	}
	if len(newDocs) == 0 {
		return []string{}, nil
	}

	docs := make([]*domain.Document, 0, len(newDocs))
	seen := make(map[string]struct{}, len(newDocs))
	var conflicts []string
	for _, nd := range newDocs {
		doc, err := c.prepare(nd)
		if err != nil {
			return nil, err
		}
		exists, err := snap.Exists(ctx, doc.Path)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[doc.Name]; dup || exists {
			conflicts = append(conflicts, doc.Name)
		}
		seen[doc.Name] = struct{}{}
		docs = append(docs, doc)
	}
	if len(conflicts) > 0 {
		return nil, domain.ErrAlreadyExists{Names: conflicts}
	}

	if err := c.ensure(ctx, kind); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(docs))
	for _, doc := range docs {
		if err := c.codec.Store(ctx, c.repo, doc); err != nil {
			return paths, err
		}
		paths = append(paths, doc.Path)
	}
	c.recorder.Mutation("insert", len(paths))
	return paths, nil
}

// ensure creates the collection directory when it does not exist yet.
func (c *Collection) ensure(ctx context.Context, kind domain.NodeKind) error {
	if kind != domain.NodeNotFound {
		return nil
	}
	return c.repo.CreateDir(ctx, c.path, c.dirMode)
}

func (c *Collection) name(name string) (string, error) {
	if name == "" {
		return c.nameGenerator.GenerateName()
	}
	if strings.ContainsAny(name, `/\`) || name == ".." || classifier.IsReserved(name) {
		return "", domain.ErrInvalidName{Name: name}
	}
	return name, nil
}

// prepare builds the document to insert. The shape follows the body
// pseudo-attribute: with it the document is a file, without it a directory.
func (c *Collection) prepare(nd domain.NamedAttributes) (*domain.Document, error) {
	name, err := c.name(nd.Name)
	if err != nil {
		return nil, err
	}
	attrs, err := data.MapOf(nd.Attributes)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", name, err)
	}
	attrs = maps.Clone(attrs)
	delete(attrs, domain.NameField)

	doc := domain.NewDocument(tree.Join(c.path, name))
	body, hasBody := attrs[domain.BodyField]
	delete(attrs, domain.BodyField)
	doc.Attributes = attrs
	if !hasBody {
		doc.Kind = domain.NodeDocumentDir
		doc.HasBody = false
		return doc, nil
	}
	if body.Kind() != domain.KindString {
		return nil, domain.ErrTypeMismatch{Op: "insert", Field: domain.BodyField, Got: body.Kind()}
	}
	doc.Body = body.Str()
	return doc, nil
}

func (c *Collection) update(query any) (domain.UpdateSpec, error) {
	if spec, ok := query.(domain.UpdateSpec); ok {
		return spec, nil
	}
	spec, err := data.MapOf(query)
	if err != nil {
		return nil, domain.ErrInvalidUpdate{Reason: err.Error()}
	}
	return spec, nil
}

// Update implements domain.Collection. Documents are read from the work
// tree. Every match is modified before anything is written, so an invalid
// update changes nothing. On a write failure the result counts the documents
// already written.
func (c *Collection) Update(ctx context.Context, query any, update any, options ...domain.UpdateOption) (domain.Result, error) {
	var opts domain.UpdateOptions
	for _, option := range options {
		option(&opts)
	}
	spec, err := c.update(update)
	if err != nil {
		return domain.Result{}, err
	}

	cur, err := c.all(ctx, domain.ScopeWorking)
	if err != nil {
		return domain.Result{}, err
	}
	if cur, err = cur.Find(ctx, query); err != nil {
		return domain.Result{}, err
	}

	var updates []*domain.Document
	for cur.HasNext() {
		doc, err := cur.Next(ctx)
		if err != nil {
			return domain.Result{}, err
		}
		updated, err := c.modifier.Modify(doc, spec)
		if err != nil {
			return domain.Result{}, err
		}
		updates = append(updates, updated)
		if !opts.Multi {
			break
		}
	}

	var res domain.Result
	for _, updated := range updates {
		if err := c.codec.Store(ctx, c.repo, updated); err != nil {
			return res, err
		}
		res.N++
		res.Names = append(res.Names, updated.Name)
	}

	if res.N == 0 && opts.Upsert {
		name, ok := bareName(query)
		if !ok {
			c.log.Debug("upsert skipped, query is not a name equality", slog.String("collection", c.path))
			return res, nil
		}
		if err := c.upsert(ctx, name, spec); err != nil {
			return res, err
		}
		res.N++
		res.Names = append(res.Names, name)
	}
	c.recorder.Mutation("update", res.N)
	return res, nil
}

// bareName returns the name of queries made of a single `_name` equality.
func bareName(query any) (string, bool) {
	q, err := cursor.ToQuery(query)
	if err != nil || len(q) != 1 {
		return "", false
	}
	term, ok := q[domain.NameField]
	if !ok || term.Kind() != domain.KindString {
		return "", false
	}
	return term.Str(), true
}

func (c *Collection) upsert(ctx context.Context, name string, spec domain.UpdateSpec) error {
	name, err := c.name(name)
	if err != nil {
		return err
	}
	kind, err := c.kind(ctx, c.repo.Working())
	if err != nil {
		return err
	}

	base := domain.NewDocument(tree.Join(c.path, name))
	if !setsBody(spec) {
		base.Kind = domain.NodeDocumentDir
		base.HasBody = false
	}
	doc, err := c.modifier.Modify(base, spec)
	if err != nil {
		return err
	}
	if err := c.ensure(ctx, kind); err != nil {
		return err
	}
	c.log.Debug("upserting document", slog.String("path", doc.Path))
	return c.codec.Store(ctx, c.repo, doc)
}

func setsBody(spec domain.UpdateSpec) bool {
	if _, ok := spec[domain.BodyField]; ok {
		return true
	}
	_, ok := spec["$set"].Get(domain.BodyField)
	return ok
}

// Remove implements domain.Collection.
func (c *Collection) Remove(ctx context.Context, query any, options ...domain.RemoveOption) (domain.Result, error) {
	var opts domain.RemoveOptions
	for _, option := range options {
		option(&opts)
	}

	cur, err := c.all(ctx, domain.ScopeWorking)
	if err != nil {
		return domain.Result{}, err
	}
	if cur, err = cur.Find(ctx, query); err != nil {
		return domain.Result{}, err
	}

	var res domain.Result
	for _, ref := range cur.Refs() {
		if err := c.repo.Remove(ctx, ref.Path, ref.Kind == domain.NodeDocumentDir); err != nil {
			return res, err
		}
		if err := c.repo.Stage(ctx, ref.Path); err != nil {
			return res, err
		}
		res.N++
		res.Names = append(res.Names, ref.Name())
		if !opts.Multi {
			break
		}
	}
	c.recorder.Mutation("remove", res.N)
	return res, nil
}

// Sort implements domain.Collection.
func (c *Collection) Sort(ctx context.Context, order domain.Sort, options ...domain.FindOption) (domain.Cursor, error) {
	return c.Find(ctx, nil, append(options, domain.WithFindSort(order))...)
}

// Drop implements domain.Collection.
func (c *Collection) Drop(ctx context.Context) error {
	if c.path == "" {
		return domain.ErrRootProtected{}
	}
	kind, err := c.kind(ctx, c.repo.Working())
	if err != nil {
		return err
	}
	if kind == domain.NodeNotFound {
		return domain.ErrMissing{Path: c.path}
	}
	if err := c.repo.Remove(ctx, c.path, true); err != nil {
		return err
	}
	if err := c.repo.Stage(ctx, c.path); err != nil {
		return err
	}
	c.log.Debug("dropped collection", slog.String("collection", c.path))
	c.recorder.Mutation("drop", 1)
	return nil
}

// Collections implements domain.Collection.
func (c *Collection) Collections(ctx context.Context, options ...domain.FindOption) ([]string, error) {
	var fo domain.FindOptions
	for _, option := range options {
		option(&fo)
	}
	snap, err := c.snapshot(ctx, fo.Scope())
	if err != nil {
		return nil, err
	}
	refs, err := c.children(ctx, snap)
	if err != nil {
		return nil, err
	}
	var res []string
	for _, ref := range refs {
		if ref.Kind == domain.NodeCollection {
			res = append(res, ref.Name())
		}
	}
	return res, nil
}

// Collection implements domain.Collection. The nested collection may not
// exist yet, but its path must not hold anything else.
func (c *Collection) Collection(ctx context.Context, name string) (domain.Collection, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == ".." || classifier.IsReserved(name) {
		return nil, domain.ErrInvalidName{Name: name}
	}
	child := NewCollection(tree.Join(c.path, name), c.options()...).(*Collection)
	if _, err := child.kind(ctx, c.repo.Working()); err != nil {
		return nil, err
	}
	return child, nil
}
