// Package database contains the default [domain.Database] implementation.
package database

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/classifier"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/codec"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/collection"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/metrics"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/modifier"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/namegenerator"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/repository"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/tree"
)

const (
	DefaultDirMode  os.FileMode = collection.DefaultDirMode
	DefaultFileMode os.FileMode = 0o644
)

// Database implements domain.Database.
type Database struct {
	repo        domain.Repository
	classifier  domain.Classifier
	log         *slog.Logger
	collOptions []domain.CollectionOption
	root        domain.Collection
}

// NewDatabase returns a new implementation of domain.Database. Without a
// repository, an in-memory one is used.
func NewDatabase(options ...domain.DatabaseOption) domain.Database {
	opts := domain.DatabaseOptions{
		FileMode: DefaultFileMode,
		DirMode:  DefaultDirMode,
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.Classifier == nil {
		opts.Classifier = classifier.NewClassifier()
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
	if opts.CursorFactory == nil {
		opts.CursorFactory = cursor.NewCursor
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
	if opts.Repository == nil {
		opts.Repository = repository.NewRepository(
			domain.WithRepositoryFileMode(opts.FileMode),
			domain.WithRepositoryLogger(opts.Logger),
		)
	}
	if opts.Codec == nil {
		opts.Codec = codec.NewCodec(
			domain.WithCodecClassifier(opts.Classifier),
			domain.WithCodecInlineText(opts.InlineText),
			domain.WithCodecFileMode(opts.FileMode),
			domain.WithCodecDirMode(opts.DirMode),
			domain.WithCodecLogger(opts.Logger),
			domain.WithCodecRecorder(opts.Recorder),
		)
	}

	collOptions := []domain.CollectionOption{
		domain.WithCollectionRepository(opts.Repository),
		domain.WithCollectionClassifier(opts.Classifier),
		domain.WithCollectionCodec(opts.Codec),
		domain.WithCollectionMatcher(opts.Matcher),
		domain.WithCollectionModifier(opts.Modifier),
		domain.WithCollectionComparer(opts.Comparer),
		domain.WithCollectionCursorFactory(opts.CursorFactory),
		domain.WithCollectionDecoder(opts.Decoder),
		domain.WithCollectionNameGenerator(opts.NameGenerator),
		domain.WithCollectionDirMode(opts.DirMode),
		domain.WithCollectionLogger(opts.Logger),
		domain.WithCollectionRecorder(opts.Recorder),
	}
	return &Database{
		repo:        opts.Repository,
		classifier:  opts.Classifier,
		log:         opts.Logger,
		collOptions: collOptions,
		root:        collection.NewCollection("", collOptions...),
	}
}

// Root implements domain.Database.
func (d *Database) Root() domain.Collection {
	return d.root
}

// Collection implements domain.Database. The collection may not exist yet,
// in which case it is created by its first insert.
func (d *Database) Collection(ctx context.Context, p string) (domain.Collection, error) {
	p = tree.Clean(p)
	if p == "" {
		return d.root, nil
	}
	for seg := range strings.SplitSeq(p, "/") {
		if classifier.IsReserved(seg) {
			return nil, domain.ErrInvalidName{Name: seg}
		}
	}
	kind, err := d.classifier.Classify(ctx, d.repo.Working(), p)
	if err != nil {
		return nil, err
	}
	if kind != domain.NodeNotFound && kind != domain.NodeCollection {
		return nil, domain.ErrPathKind{Path: p, Want: domain.NodeCollection, Got: kind}
	}
	return collection.NewCollection(p, d.collOptions...), nil
}

// Find implements domain.Database. A path naming a collection is queried
// as such. Any other path is split into its parent collection and a document
// name, and query is narrowed to that name.
func (d *Database) Find(ctx context.Context, p string, query any, options ...domain.FindOption) (domain.Cursor, error) {
	var fo domain.FindOptions
	for _, option := range options {
		option(&fo)
	}

	p = tree.Clean(p)
	if p == "" {
		return d.root.Find(ctx, query, options...)
	}
	snap, err := d.snapshot(ctx, fo.Scope())
	if err != nil {
		return nil, err
	}
	kind, err := d.classifier.Classify(ctx, snap, p)
	if err != nil {
		return nil, err
	}
	if kind == domain.NodeCollection {
		return collection.NewCollection(p, d.collOptions...).Find(ctx, query, options...)
	}
	if kind == domain.NodeStaticDir {
		return nil, domain.ErrPathKind{Path: p, Want: domain.NodeDocumentFile, Got: kind}
	}

	q, err := named(path.Base(p), query)
	if err != nil {
		return nil, err
	}
	d.log.Debug("resolved document path",
		slog.String("path", p),
		slog.String("kind", kind.String()),
	)
	return collection.NewCollection(tree.Parent(p), d.collOptions...).Find(ctx, q, options...)
}

// named narrows query to the document called name. A non-empty query is
// nested under `$or` so it still applies as a whole.
func named(name string, query any) (domain.Query, error) {
	q, err := cursor.ToQuery(query)
	if err != nil {
		return nil, err
	}
	res := domain.Query{domain.NameField: domain.String(name)}
	if len(q) > 0 {
		res[matcher.OrOperator] = domain.Array(domain.Map(q))
	}
	return res, nil
}

// FindOne implements domain.Database.
func (d *Database) FindOne(ctx context.Context, p string, query any, options ...domain.FindOption) (*domain.Document, error) {
	cur, err := d.Find(ctx, p, query, options...)
	if err != nil {
		return nil, err
	}
	doc, err := cur.First(ctx)
	if errors.Is(err, domain.ErrCursorEmpty) {
		return nil, domain.ErrMissing{Path: tree.Clean(p)}
	}
	return doc, err
}

func (d *Database) snapshot(ctx context.Context, scope domain.Scope) (domain.Snapshot, error) {
	if scope == domain.ScopeWorking {
		return d.repo.Working(), nil
	}
	return d.repo.Head(ctx)
}

// Commit implements domain.Database.
func (d *Database) Commit(ctx context.Context, message string) (string, error) {
	return d.repo.Commit(ctx, message)
}

// Undo implements domain.Database.
func (d *Database) Undo(ctx context.Context, rev domain.Revision) error {
	return d.repo.Undo(ctx, rev)
}

// Revert implements domain.Database.
func (d *Database) Revert(ctx context.Context, rev domain.Revision) (string, error) {
	return d.repo.Revert(ctx, rev)
}

// Log implements domain.Database.
func (d *Database) Log(ctx context.Context, n int) (string, error) {
	return d.repo.Log(ctx, n)
}
