// Package domain contains domain-specific types, interfaces and option types
// for treedb.
//
// This package defines the value model ([Value], [Document]), the contracts
// that must be implemented by adapters (classification, codec, matching,
// updating, cursors) and the contracts treedb expects from its external
// collaborators: snapshot readers, mutators, the version history and the
// content search.
package domain

import (
	"context"
	"os"
	"time"
)

// Snapshot is a read-only view of the stored tree, either at a commit or over
// the live work tree. Paths are slash separated and relative to the repository
// root; the empty path is the root.
type Snapshot interface {
	// List returns the names of the direct children of a tree entry,
	// sorted.
	List(ctx context.Context, p string) ([]string, error)
	// TypeOf reports whether p is a blob, a tree or missing.
	TypeOf(ctx context.Context, p string) (EntryType, error)
	// Read returns the content of a blob.
	Read(ctx context.Context, p string) ([]byte, error)
	// Exists reports whether p is present.
	Exists(ctx context.Context, p string) (bool, error)
}

// WorkTree is a writable [Snapshot].
type WorkTree interface {
	Snapshot
	// CreateFile writes a blob, creating parent trees as needed.
	CreateFile(ctx context.Context, p string, data []byte, mode os.FileMode) error
	// CreateDir creates a tree and its parents.
	CreateDir(ctx context.Context, p string, mode os.FileMode) error
	// Remove deletes p. Non-empty trees require recursive.
	Remove(ctx context.Context, p string, recursive bool) error
}

// Mutator writes to the work tree and stages changes for the next commit.
type Mutator interface {
	CreateFile(ctx context.Context, p string, data []byte, mode os.FileMode) error
	CreateDir(ctx context.Context, p string, mode os.FileMode) error
	Remove(ctx context.Context, p string, recursive bool) error
	// Stage records the current work tree state of p (including its
	// removal) for the next commit.
	Stage(ctx context.Context, p string) error
}

// History is the version-history collaborator.
type History interface {
	// Commit records the staged changes and returns the new commit id.
	Commit(ctx context.Context, message string) (string, error)
	// Undo moves HEAD back to rev, discarding later commits and resetting
	// the index and the work tree.
	Undo(ctx context.Context, rev Revision) error
	// Revert records a new commit that inverts the changes introduced
	// since rev (steps) or by rev (id).
	Revert(ctx context.Context, rev Revision) (string, error)
	// Log returns the id of the commit n steps behind HEAD.
	Log(ctx context.Context, n int) (string, error)
}

// Searcher is the content-search collaborator. It returns the paths, relative
// to scope, of files whose content matches the terms.
type Searcher interface {
	Search(ctx context.Context, terms []string, opts SearchOptions, scope string) ([]string, error)
}

// Repository bundles every storage collaborator treedb needs.
type Repository interface {
	Mutator
	History
	Searcher
	// Working returns a view over the live work tree.
	Working() Snapshot
	// Head returns a view over the last commit. Before the first commit it
	// is an empty tree.
	Head(ctx context.Context) (Snapshot, error)
}

// Classifier tells what a path denotes without loading content.
type Classifier interface {
	Classify(ctx context.Context, snap Snapshot, p string) (NodeKind, error)
}

// Codec converts documents to and from their storage shapes.
type Codec interface {
	// Load reads the document behind ref.
	Load(ctx context.Context, snap Snapshot, ref Ref, scope Scope) (*Document, error)
	// Store writes doc to the work tree and stages it.
	Store(ctx context.Context, mut Mutator, doc *Document) error
	// Encode serializes the file shape of doc, or the attributes file of a
	// directory-shaped doc.
	Encode(doc *Document) ([]byte, error)
	// Decode parses a file-shaped document. Header failures degrade to an
	// all-body document.
	Decode(p string, data []byte) (*Document, error)
}

// Comparer implements the numeric-or-lexical comparison rules.
type Comparer interface {
	// Numeric returns the number held by a Number or a numeric-looking
	// String.
	Numeric(v Value) (float64, bool)
	// Compare compares two scalars numerically when both look numeric,
	// lexically otherwise. ok is false when either side is not a scalar.
	Compare(a, b Value) (c int, ok bool)
	// Equal is deep equality with the Compare rules applied on scalars.
	Equal(a, b Value) bool
	// Order is a total order used for sorting.
	Order(a, b Value) int
}

// Matcher evaluates whether documents match queries.
type Matcher interface {
	// Match returns true if the document matches the query.
	Match(doc *Document, query Query) (bool, error)
}

// FieldNavigator resolves dotted field paths inside documents.
type FieldNavigator interface {
	// GetAddress splits a field path into its parts.
	GetAddress(field string) []string
	// GetField returns the value at field and whether it is set.
	GetField(doc *Document, field string) (Value, bool)
}

// Modifier applies update operations to documents.
type Modifier interface {
	// Modify applies an update spec to a copy of doc and returns it.
	Modify(doc *Document, spec UpdateSpec) (*Document, error)
}

// Decoder converts documents into user defined types.
type Decoder interface {
	// Decode converts from one data format to another.
	Decode(any, any) error
}

// NameGenerator creates names for documents inserted without one.
type NameGenerator interface {
	GenerateName() (string, error)
}

// TimeGetter provides current time for commit records.
type TimeGetter interface {
	// GetTime returns the current time.
	GetTime() time.Time
}

// Hasher generates hash values used as commit ids.
type Hasher interface {
	// Hash generates a hash value for the given data.
	Hash(any) (uint64, error)
}

// Recorder receives operational counters.
type Recorder interface {
	DocumentLoaded()
	LoadRecovered()
	Query(expensive bool)
	Mutation(op string, n int)
}

// Cursor is a lazy, memoizing, position-tracked view over a result set.
// Cursors are read-only: only [Collection] exposes writes.
type Cursor interface {
	// Count returns the number of references without loading any.
	Count() int
	// Refs returns the references in resolution order.
	Refs() []Ref
	// Position returns the index of the next document to be returned.
	Position() int
	// HasNext reports whether Next would return a document.
	HasNext() bool
	// Next loads the document at the current position and advances.
	Next(ctx context.Context) (*Document, error)
	// First loads the first document without moving the position.
	First(ctx context.Context) (*Document, error)
	// Last loads the last document without moving the position.
	Last(ctx context.Context) (*Document, error)
	// Rewind resets the position to the start.
	Rewind()
	// All drains the cursor from the current position.
	All(ctx context.Context) ([]*Document, error)
	// Scan drains the cursor and decodes the documents into target, which
	// must be a pointer to a slice.
	Scan(ctx context.Context, target any) error
	// Find narrows the cursor with a name, pattern or query.
	Find(ctx context.Context, query any) (Cursor, error)
	// Grep narrows the cursor to documents whose content matches terms.
	Grep(ctx context.Context, terms []string, options ...GrepOption) (Cursor, error)
	// Sort returns a sorted copy of the cursor.
	Sort(ctx context.Context, order Sort) (Cursor, error)
}

// NamedAttributes pairs a document name with its attributes for batch
// inserts.
type NamedAttributes struct {
	Name       string
	Attributes any
}

// Collection is a storage-backed grouping of documents.
type Collection interface {
	// Path returns the collection path; empty for the root.
	Path() string
	// Find resolves documents by name (string), name pattern
	// (*regexp.Regexp) or query (map or struct). Queries on fields other
	// than `_name` load every candidate.
	Find(ctx context.Context, query any, options ...FindOption) (Cursor, error)
	// FindOne returns the first document found.
	FindOne(ctx context.Context, query any, options ...FindOption) (*Document, error)
	// Count returns how many documents Find would return.
	Count(ctx context.Context, query any, options ...FindOption) (int, error)
	// Grep returns documents whose content matches the terms.
	Grep(ctx context.Context, terms []string, options ...GrepOption) (Cursor, error)
	// Insert creates a document and returns its path.
	Insert(ctx context.Context, name string, attributes any) (string, error)
	// BatchInsert creates every document or none of them.
	BatchInsert(ctx context.Context, docs ...NamedAttributes) ([]string, error)
	// Update applies an update spec to the matching documents.
	Update(ctx context.Context, query any, update any, options ...UpdateOption) (Result, error)
	// Remove deletes the matching documents.
	Remove(ctx context.Context, query any, options ...RemoveOption) (Result, error)
	// Sort returns every document of the collection in the given order.
	Sort(ctx context.Context, order Sort, options ...FindOption) (Cursor, error)
	// Drop deletes the collection and everything below it.
	Drop(ctx context.Context) error
	// Collections lists the names of the nested collections.
	Collections(ctx context.Context, options ...FindOption) ([]string, error)
	// Collection returns a nested collection.
	Collection(ctx context.Context, name string) (Collection, error)
}

// Database resolves collections and exposes the version history.
type Database interface {
	// Root returns the root collection.
	Root() Collection
	// Collection returns the collection at p.
	Collection(ctx context.Context, p string) (Collection, error)
	// Find resolves p into a collection and a name and finds documents.
	// When p names a collection, query applies to its documents.
	Find(ctx context.Context, p string, query any, options ...FindOption) (Cursor, error)
	// FindOne is Find returning only the first document.
	FindOne(ctx context.Context, p string, query any, options ...FindOption) (*Document, error)
	// Commit records staged changes.
	Commit(ctx context.Context, message string) (string, error)
	// Undo resets the repository to rev.
	Undo(ctx context.Context, rev Revision) error
	// Revert records a commit inverting rev.
	Revert(ctx context.Context, rev Revision) (string, error)
	// Log returns the id of the commit n steps behind HEAD.
	Log(ctx context.Context, n int) (string, error)
}

// CursorFactory represents a function that constructs [Cursor] instances from a
// set of references with configurable options.
type CursorFactory = func(context.Context, []Ref, ...CursorOption) (Cursor, error)
