package domain

import (
	"maps"
	"path"
	"slices"
)

// Reserved names shared by the classifier, the codec and the query engine.
const (
	// NameField is the pseudo-field holding the document name.
	NameField = "_name"
	// BodyField is the pseudo-attribute holding the body of file-shaped
	// documents.
	BodyField = "_body"
	// AttributesFile is the marker entry holding the attributes of a
	// directory-shaped document.
	AttributesFile = "_attributes.yaml"
	// StaticMarker flags a tree (and everything below it) as opaque
	// attachment content.
	StaticMarker = ".static"
)

// NodeKind is the result of classifying a path.
type NodeKind uint8

// NodeKind values.
const (
	NodeNotFound NodeKind = iota
	NodeCollection
	NodeDocumentFile
	NodeDocumentDir
	NodeStaticDir
)

var nodeKindNames = [...]string{
	NodeNotFound:     "not found",
	NodeCollection:   "collection",
	NodeDocumentFile: "document file",
	NodeDocumentDir:  "document directory",
	NodeStaticDir:    "static directory",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return "unknown"
}

// IsDocument reports whether k is one of the two document shapes.
func (k NodeKind) IsDocument() bool {
	return k == NodeDocumentFile || k == NodeDocumentDir
}

// EntryType is the raw type of a snapshot entry.
type EntryType uint8

// EntryType values.
const (
	EntryMissing EntryType = iota
	EntryBlob
	EntryTree
)

// Scope selects which state of the repository is read.
type Scope uint8

// Scope values.
const (
	// ScopeCommitted reads the last commit (HEAD).
	ScopeCommitted Scope = iota
	// ScopeWorking reads the live, possibly uncommitted, work tree.
	ScopeWorking
)

func (s Scope) String() string {
	if s == ScopeWorking {
		return "working"
	}
	return "committed"
}

// Ref is an unresolved reference to a document: where it is and what shape it
// has.
type Ref struct {
	Path string
	Kind NodeKind
}

// Name returns the last path segment of the reference.
func (r Ref) Name() string {
	return path.Base(r.Path)
}

// Query is a predicate tree. Keys are field names, `_name` or `$or`.
type Query = map[string]Value

// UpdateSpec is an update operator document or a full replacement.
type UpdateSpec = map[string]Value

// M is a shorthand for building queries, updates and attributes from Go
// literals.
type M = map[string]any

// A is a shorthand for array literals used along with [M].
type A = []any

// JSON is JSON text accepted wherever a query, update or attributes are
// expected. An object whose only key is "$regex" is read as a pattern.
type JSON []byte

// Sort represents an ordered list of fields which should be used to sort query
// results, applied in sequence.
type Sort = []SortName

// SortName represents a single field and the order which should be used to sort
// it. A positive Order value means ascending order and a negative value means
// descending order.
type SortName struct {
	Key   string
	Order int64
}

// Result is returned by update and remove operations.
type Result struct {
	// N is the number of documents affected.
	N int
	// Names lists the affected documents, in resolution order.
	Names []string
}

// Revision points at a commit, either by counting back from HEAD or by id.
type Revision struct {
	Steps int
	ID    string
}

// StepsBack returns a Revision n commits behind HEAD.
func StepsBack(n int) Revision { return Revision{Steps: n} }

// CommitID returns a Revision for the given commit id.
func CommitID(id string) Revision { return Revision{ID: id} }

// SearchOptions configure a content search.
type SearchOptions struct {
	// Or makes a file match when any term matches instead of all of them.
	Or bool
	// Working searches the work tree instead of HEAD.
	Working bool
}

// Document is a named record. File-shaped documents carry a body;
// directory-shaped ones carry attachments and nested entries.
type Document struct {
	Path       string
	Name       string
	Kind       NodeKind
	Attributes map[string]Value
	// Body is only meaningful when HasBody is set.
	Body    string
	HasBody bool
	// Attachments maps attachment names to their paths.
	Attachments      map[string]string
	ChildCollections []string
	ChildDocuments   []string
}

// NewDocument returns an empty file-shaped document at p.
func NewDocument(p string) *Document {
	return &Document{
		Path:       p,
		Name:       path.Base(p),
		Kind:       NodeDocumentFile,
		Attributes: map[string]Value{},
		HasBody:    true,
	}
}

// Get returns the value of a field, honoring the `_name` pseudo-field.
func (d *Document) Get(field string) (Value, bool) {
	if field == NameField {
		return String(d.Name), true
	}
	v, ok := d.Attributes[field]
	return v, ok
}

// Has reports whether an attribute is set.
func (d *Document) Has(field string) bool {
	_, ok := d.Get(field)
	return ok
}

// Ref returns the reference that resolves to d.
func (d *Document) Ref() Ref {
	return Ref{Path: d.Path, Kind: d.Kind}
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	res := *d
	res.Attributes = make(map[string]Value, len(d.Attributes))
	for k, v := range d.Attributes {
		res.Attributes[k] = v.Clone()
	}
	res.Attachments = maps.Clone(d.Attachments)
	res.ChildCollections = slices.Clone(d.ChildCollections)
	res.ChildDocuments = slices.Clone(d.ChildDocuments)
	return &res
}

// Map returns the attributes along with `_name` and, for file-shaped
// documents, `_body` as plain Go values.
func (d *Document) Map() map[string]any {
	res := make(map[string]any, len(d.Attributes)+2)
	for k, v := range d.Attributes {
		res[k] = v.Interface()
	}
	res[NameField] = d.Name
	if d.HasBody {
		res[BodyField] = d.Body
	}
	return res
}
