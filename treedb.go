// Package treedb provides a schema-less document database stored as a
// version-controlled tree.
//
// Collections are directories and documents are either a single file (a YAML
// header, a blank line and a free-form body) or a directory holding an
// attributes file and attachments. Documents are queried with a MongoDB-like
// language and changed with update operators. Every write goes to the work
// tree and is staged; [Database.Commit] records the staged state and reads
// default to the last commit.
//
// The basic usage starts with creating a new [Database], which can be done by
// calling [NewDB] for an in-memory database or [Open] for a directory.
package treedb

import (
	"context"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/database"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/metrics"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/repository"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/storage"
)

var (
	// ErrNotFound matches every [ErrMissing].
	ErrNotFound = domain.ErrNotFound
	// ErrPathConflict matches every [ErrPathKind].
	ErrPathConflict = domain.ErrPathConflict
	// ErrExists matches every [ErrAlreadyExists].
	ErrExists = domain.ErrExists
	// ErrQuery matches every [ErrInvalidQuery].
	ErrQuery = domain.ErrQuery
	// ErrUpdate matches every [ErrInvalidUpdate].
	ErrUpdate = domain.ErrUpdate
	// ErrMismatch matches every [ErrTypeMismatch].
	ErrMismatch = domain.ErrMismatch
	// ErrProtected is returned when dropping the root collection.
	ErrProtected = domain.ErrProtected
	// ErrSerialize matches every [ErrSerialization].
	ErrSerialize = domain.ErrSerialize
	// ErrName matches every [ErrInvalidName].
	ErrName = domain.ErrName
	// ErrNoHistory is returned by history operations pointing before the
	// first commit.
	ErrNoHistory = domain.ErrNoHistory
	// ErrCursorEmpty is returned by [Cursor.First] and [Cursor.Last] on an
	// empty cursor.
	ErrCursorEmpty = domain.ErrCursorEmpty
	// ErrCursorDrained is returned by [Cursor.Next] past the last document.
	ErrCursorDrained = domain.ErrCursorDrained
)

// ErrPathKind is returned when a path holds something other than what the
// operation expects, like a document where a collection was asked for.
type ErrPathKind = domain.ErrPathKind

// ErrAlreadyExists lists the names that made an insert fail.
type ErrAlreadyExists = domain.ErrAlreadyExists

// ErrMissing is returned when a document or collection is absent.
type ErrMissing = domain.ErrMissing

// ErrInvalidQuery reports a malformed query.
type ErrInvalidQuery = domain.ErrInvalidQuery

// ErrInvalidUpdate reports a malformed update spec.
type ErrInvalidUpdate = domain.ErrInvalidUpdate

// ErrTypeMismatch is returned when an operator is applied to a field of the
// wrong type.
type ErrTypeMismatch = domain.ErrTypeMismatch

// ErrRootProtected is returned when dropping the root collection.
type ErrRootProtected = domain.ErrRootProtected

// ErrSerialization wraps document encoding failures.
type ErrSerialization = domain.ErrSerialization

// ErrInvalidName is returned for document or collection names that cannot be
// stored.
type ErrInvalidName = domain.ErrInvalidName

// NewDB creates a new in-memory Database with the provided configuration
// options:
//
// - [WithRepository]: sets the versioned store. Defaults to an in-memory one.
//
// - [WithInlineText]: inlines text attachments as attributes on working
// loads.
//
// - [WithFileMode]: sets the permissions of created files.
//
// - [WithDirMode]: sets the permissions of created directories.
//
// - [WithLogger]: sets the structured logger.
//
// - [WithRecorder]: sets the metrics recorder. See [NewRecorder].
//
// - [WithClassifier], [WithCodec], [WithMatcher], [WithModifier],
// [WithComparer], [WithCursorFactory], [WithDecoder], [WithNameGenerator]:
// replace the default implementation of each concern.
func NewDB(options ...Option) Database {
	return database.NewDatabase(options...)
}

// Open creates a Database over the directory dir, which is created if
// needed. Its current content is staged, so the first commit records it.
func Open(ctx context.Context, dir string, options ...Option) (Database, error) {
	opts := domain.DatabaseOptions{
		FileMode: database.DefaultFileMode,
		DirMode:  database.DefaultDirMode,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Repository == nil {
		if err := os.MkdirAll(dir, opts.DirMode); err != nil {
			return nil, err
		}
		repoOptions := []domain.RepositoryOption{
			domain.WithRepositoryWorkTree(storage.NewStorage(dir, opts.DirMode)),
			domain.WithRepositoryFileMode(opts.FileMode),
		}
		if opts.Logger != nil {
			repoOptions = append(repoOptions, domain.WithRepositoryLogger(opts.Logger))
		}
		repo := repository.NewRepository(repoOptions...)
		if err := repo.Stage(ctx, ""); err != nil {
			return nil, err
		}
		options = append(options, domain.WithDatabaseRepository(repo))
	}
	return database.NewDatabase(options...), nil
}

// NewRecorder returns a [Recorder] exposing treedb counters on reg.
func NewRecorder(reg prometheus.Registerer) Recorder {
	return metrics.NewRecorder(reg)
}

// NewRepository returns an in-memory [Repository] or, with
// [WithRepositoryWorkTree], one versioning any [WorkTree].
func NewRepository(options ...RepositoryOption) Repository {
	return repository.NewRepository(options...)
}

// Database resolves collections and exposes the version history.
type Database = domain.Database

// Collection is a storage-backed grouping of documents. It is the only type
// exposing writes.
type Collection = domain.Collection

// Cursor is a lazy, read-only view over a result set. Documents are loaded
// on demand and memoized.
type Cursor = domain.Cursor

// CursorFactory creates [Cursor] instances from document references.
type CursorFactory = domain.CursorFactory

// Document is a loaded document.
type Document = domain.Document

// Value is a document field value.
type Value = domain.Value

// Ref is an unresolved reference to a document.
type Ref = domain.Ref

// Query is a parsed query. Any map or struct is accepted where a query is
// expected.
type Query = domain.Query

// M is a shorthand for queries, updates and attributes.
type M = domain.M

// A is a shorthand for arrays inside [M].
type A = domain.A

// JSON is JSON text usable as a query, an update or attributes.
type JSON = domain.JSON

// NamedAttributes pairs a name and attributes for [Collection.BatchInsert].
type NamedAttributes = domain.NamedAttributes

// Result reports the documents affected by an update or removal.
type Result = domain.Result

// Revision points at a commit. See [StepsBack] and [CommitID].
type Revision = domain.Revision

// Sort represents an ordered list of fields which should be used,
// respectively, to sort the results of a query.
type Sort = domain.Sort

// SortName represents a single field and the order which should be used to
// sort it, a positive value meaning ascending order and a negative value
// meaning descending order.
type SortName = domain.SortName

// Snapshot is a read-only view of the stored tree.
type Snapshot = domain.Snapshot

// WorkTree is a writable [Snapshot].
type WorkTree = domain.WorkTree

// Repository bundles the storage collaborators of a [Database].
type Repository = domain.Repository

// Classifier tells what a path holds without reading content.
type Classifier = domain.Classifier

// Codec converts documents to and from their stored shapes.
type Codec = domain.Codec

// Matcher evaluates queries.
type Matcher = domain.Matcher

// Modifier applies update specs.
type Modifier = domain.Modifier

// Comparer compares values for queries and sorting.
type Comparer = domain.Comparer

// Decoder converts documents into user types.
type Decoder = domain.Decoder

// NameGenerator names documents inserted without a name.
type NameGenerator = domain.NameGenerator

// Recorder receives operational counters.
type Recorder = domain.Recorder

// StepsBack returns a [Revision] n commits behind HEAD.
func StepsBack(n int) Revision { return domain.StepsBack(n) }

// CommitID returns a [Revision] for a commit id.
func CommitID(id string) Revision { return domain.CommitID(id) }

// Option configures a [Database] through the functional options pattern.
type Option = domain.DatabaseOption

// WithRepository sets the versioned store.
func WithRepository(r Repository) Option { return domain.WithDatabaseRepository(r) }

// WithClassifier sets the path classifier.
func WithClassifier(c Classifier) Option { return domain.WithDatabaseClassifier(c) }

// WithCodec sets the document codec.
func WithCodec(c Codec) Option { return domain.WithDatabaseCodec(c) }

// WithMatcher sets the query matcher.
func WithMatcher(m Matcher) Option { return domain.WithDatabaseMatcher(m) }

// WithModifier sets the update engine.
func WithModifier(m Modifier) Option { return domain.WithDatabaseModifier(m) }

// WithComparer sets the value comparer.
func WithComparer(c Comparer) Option { return domain.WithDatabaseComparer(c) }

// WithCursorFactory sets the cursor constructor.
func WithCursorFactory(cf CursorFactory) Option { return domain.WithDatabaseCursorFactory(cf) }

// WithDecoder sets the decoder used by [Cursor.Scan].
func WithDecoder(d Decoder) Option { return domain.WithDatabaseDecoder(d) }

// WithNameGenerator sets the generator of names for unnamed inserts.
func WithNameGenerator(g NameGenerator) Option { return domain.WithDatabaseNameGenerator(g) }

// WithInlineText inlines text attachments of directory documents as string
// attributes on working loads.
func WithInlineText(i bool) Option { return domain.WithDatabaseInlineText(i) }

// WithFileMode sets the permissions of created files.
func WithFileMode(m os.FileMode) Option { return domain.WithDatabaseFileMode(m) }

// WithDirMode sets the permissions of created directories.
func WithDirMode(m os.FileMode) Option { return domain.WithDatabaseDirMode(m) }

// WithLogger sets the structured logger. Defaults to discarding everything.
func WithLogger(l *slog.Logger) Option { return domain.WithDatabaseLogger(l) }

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option { return domain.WithDatabaseRecorder(r) }

// RepositoryOption configures a [Repository].
type RepositoryOption = domain.RepositoryOption

// WithRepositoryWorkTree sets the work tree a [Repository] versions.
func WithRepositoryWorkTree(w WorkTree) RepositoryOption { return domain.WithRepositoryWorkTree(w) }

// FindOption configures reads.
type FindOption = domain.FindOption

// WithWorking reads the work tree instead of the last commit.
func WithWorking(w bool) FindOption { return domain.WithFindWorking(w) }

// WithSort specifies the sort order for query results.
func WithSort(s Sort) FindOption { return domain.WithFindSort(s) }

// WithSkip sets the number of documents to skip in query results.
func WithSkip(s int64) FindOption { return domain.WithFindSkip(s) }

// WithLimit sets the maximum number of documents to return.
func WithLimit(l int64) FindOption { return domain.WithFindLimit(l) }

// UpdateOption configures [Collection.Update].
type UpdateOption = domain.UpdateOption

// WithUpdateMulti allows updating every match instead of the first one.
func WithUpdateMulti(m bool) UpdateOption { return domain.WithUpdateMulti(m) }

// WithUpsert creates the document when a name query matches nothing.
func WithUpsert(u bool) UpdateOption { return domain.WithUpsert(u) }

// RemoveOption configures [Collection.Remove].
type RemoveOption = domain.RemoveOption

// WithRemoveMulti allows removing every match instead of the first one.
func WithRemoveMulti(m bool) RemoveOption { return domain.WithRemoveMulti(m) }

// GrepOption configures content searches.
type GrepOption = domain.GrepOption

// WithGrepOr makes a document match when any term matches.
func WithGrepOr(o bool) GrepOption { return domain.WithGrepOr(o) }

// WithGrepWorking searches the work tree instead of the last commit.
func WithGrepWorking(w bool) GrepOption { return domain.WithGrepWorking(w) }
