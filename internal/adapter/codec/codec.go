// Package codec contains the default [domain.Codec] implementation.
//
// File-shaped documents are stored as a YAML header, one blank line and the
// body. Directory-shaped documents are stored as a directory holding the
// attributes file, attachments and nested entries.
package codec

import (
	"bytes"
	"context"
	"log/slog"
	"maps"
	"os"
	"slices"
	"unicode/utf8"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/classifier"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/metrics"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/tree"
)

// Separator splits the header from the body of a file-shaped document.
var Separator = []byte("\n\n")

// Codec implements domain.Codec.
type Codec struct {
	classifier domain.Classifier
	inlineText bool
	fileMode   os.FileMode
	dirMode    os.FileMode
	log        *slog.Logger
	recorder   domain.Recorder
}

// NewCodec returns a new implementation of domain.Codec.
func NewCodec(options ...domain.CodecOption) domain.Codec {
	opts := domain.CodecOptions{
		FileMode: 0o644,
		DirMode:  0o755,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Classifier == nil {
		opts.Classifier = classifier.NewClassifier()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NewNop()
	}
	return &Codec{
		classifier: opts.Classifier,
		inlineText: opts.InlineText,
		fileMode:   opts.FileMode,
		dirMode:    opts.DirMode,
		log:        opts.Logger,
		recorder:   opts.Recorder,
	}
}

// Load implements domain.Codec.
func (c *Codec) Load(ctx context.Context, snap domain.Snapshot, ref domain.Ref, scope domain.Scope) (*domain.Document, error) {
	p := tree.Clean(ref.Path)
	kind, err := c.classifier.Classify(ctx, snap, p)
	if err != nil {
		return nil, err
	}
	if kind == domain.NodeNotFound {
		return nil, domain.ErrMissing{Path: p}
	}
	if !kind.IsDocument() || (ref.Kind.IsDocument() && ref.Kind != kind) {
		want := ref.Kind
		if !want.IsDocument() {
			want = domain.NodeDocumentFile
		}
		return nil, domain.ErrPathKind{Path: p, Want: want, Got: kind}
	}

	var doc *domain.Document
	if kind == domain.NodeDocumentFile {
		doc, err = c.loadFile(ctx, snap, p)
	} else {
		doc, err = c.loadDir(ctx, snap, p, scope)
	}
	if err != nil {
		return nil, err
	}
	c.recorder.DocumentLoaded()
	return doc, nil
}

func (c *Codec) loadFile(ctx context.Context, snap domain.Snapshot, p string) (*domain.Document, error) {
	data, err := snap.Read(ctx, p)
	if err != nil {
		return nil, err
	}
	return c.Decode(p, data)
}

func (c *Codec) loadDir(ctx context.Context, snap domain.Snapshot, p string, scope domain.Scope) (*domain.Document, error) {
	doc := domain.NewDocument(p)
	doc.Kind = domain.NodeDocumentDir
	doc.HasBody = false
	doc.Attachments = map[string]string{}

	attrPath := tree.Join(p, domain.AttributesFile)
	data, err := snap.Read(ctx, attrPath)
	if err != nil {
		return nil, err
	}
	attrs, err := unmarshalAttributes(data)
	if err != nil {
		c.recovered(attrPath, err)
	} else {
		doc.Attributes = attrs
	}

	names, err := snap.List(ctx, p)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if classifier.IsReserved(name) {
			continue
		}
		child := tree.Join(p, name)
		kind, err := c.classifier.Classify(ctx, snap, child)
		if err != nil {
			return nil, err
		}
		switch kind {
		case domain.NodeCollection:
			doc.ChildCollections = append(doc.ChildCollections, name)
		case domain.NodeDocumentDir:
			doc.ChildDocuments = append(doc.ChildDocuments, name)
		case domain.NodeDocumentFile, domain.NodeStaticDir:
			doc.Attachments[name] = child
		}
	}

	if c.inlineText && scope == domain.ScopeWorking {
		if err := c.inline(ctx, snap, doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// inline copies text attachments into string attributes. Attributes already
// set in the attributes file win.
func (c *Codec) inline(ctx context.Context, snap domain.Snapshot, doc *domain.Document) error {
	for name, p := range doc.Attachments {
		if _, ok := doc.Attributes[name]; ok {
			continue
		}
		typ, err := snap.TypeOf(ctx, p)
		if err != nil {
			return err
		}
		if typ != domain.EntryBlob {
			continue
		}
		data, err := snap.Read(ctx, p)
		if err != nil {
			return err
		}
		if isText(data) {
			doc.Attributes[name] = domain.String(string(data))
		}
	}
	return nil
}

func isText(data []byte) bool {
	return utf8.Valid(data) && bytes.IndexByte(data, 0) < 0
}

func (c *Codec) recovered(p string, err error) {
	c.log.Warn("document header could not be parsed, reading it as body",
		slog.String("path", p),
		slog.Any("error", domain.ErrSerialization{Path: p, Err: err}),
	)
	c.recorder.LoadRecovered()
}

// Decode implements domain.Codec. A missing separator, or a header that is
// not a YAML mapping, makes the whole content the body.
func (c *Codec) Decode(p string, data []byte) (*domain.Document, error) {
	doc := domain.NewDocument(tree.Clean(p))
	header, body, found := bytes.Cut(data, Separator)
	if !found {
		doc.Body = string(data)
		return doc, nil
	}
	attrs, err := unmarshalAttributes(header)
	if err != nil {
		c.recovered(doc.Path, err)
		doc.Body = string(data)
		return doc, nil
	}
	doc.Attributes = attrs
	doc.Body = string(body)
	return doc, nil
}

// Encode implements domain.Codec.
func (c *Codec) Encode(doc *domain.Document) ([]byte, error) {
	header, err := marshalAttributes(c.storedAttributes(doc))
	if err != nil {
		return nil, domain.ErrSerialization{Path: doc.Path, Err: err}
	}
	if doc.Kind == domain.NodeDocumentDir {
		return header, nil
	}
	res := make([]byte, 0, len(header)+1+len(doc.Body))
	res = append(res, header...)
	res = append(res, '\n')
	res = append(res, doc.Body...)
	return res, nil
}

// storedAttributes drops the pseudo-fields and, for directory documents, the
// attributes that are written back to their attachment.
func (c *Codec) storedAttributes(doc *domain.Document) map[string]domain.Value {
	res := make(map[string]domain.Value, len(doc.Attributes))
	for k, v := range doc.Attributes {
		if k == domain.NameField || k == domain.BodyField {
			continue
		}
		if _, ok := c.inlined(doc, k, v); ok {
			continue
		}
		res[k] = v
	}
	return res
}

func (c *Codec) inlined(doc *domain.Document, k string, v domain.Value) (string, bool) {
	if doc.Kind != domain.NodeDocumentDir || v.Kind() != domain.KindString {
		return "", false
	}
	p, ok := doc.Attachments[k]
	return p, ok
}

// Store implements domain.Codec.
func (c *Codec) Store(ctx context.Context, mut domain.Mutator, doc *domain.Document) error {
	data, err := c.Encode(doc)
	if err != nil {
		return err
	}
	p := tree.Clean(doc.Path)
	if doc.Kind != domain.NodeDocumentDir {
		if err := mut.CreateFile(ctx, p, data, c.fileMode); err != nil {
			return err
		}
		return mut.Stage(ctx, p)
	}

	if err := mut.CreateDir(ctx, p, c.dirMode); err != nil {
		return err
	}
	if err := mut.CreateFile(ctx, tree.Join(p, domain.AttributesFile), data, c.fileMode); err != nil {
		return err
	}
	for _, k := range slices.Sorted(maps.Keys(doc.Attributes)) {
		attPath, ok := c.inlined(doc, k, doc.Attributes[k])
		if !ok {
			continue
		}
		content := []byte(doc.Attributes[k].Str())
		if err := mut.CreateFile(ctx, attPath, content, c.fileMode); err != nil {
			return err
		}
	}
	return mut.Stage(ctx, p)
}
