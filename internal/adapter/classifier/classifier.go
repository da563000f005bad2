// Package classifier contains the default [domain.Classifier] implementation.
package classifier

import (
	"context"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/tree"
)

// Classifier implements domain.Classifier using only type and existence
// probes; no content is read.
type Classifier struct{}

// NewClassifier returns a new implementation of domain.Classifier.
func NewClassifier() domain.Classifier {
	return &Classifier{}
}

// Classify implements domain.Classifier.
func (c *Classifier) Classify(ctx context.Context, snap domain.Snapshot, p string) (domain.NodeKind, error) {
	p = tree.Clean(p)
	typ, err := snap.TypeOf(ctx, p)
	if err != nil {
		return domain.NodeNotFound, err
	}
	switch typ {
	case domain.EntryMissing:
		return domain.NodeNotFound, nil
	case domain.EntryBlob:
		return domain.NodeDocumentFile, nil
	}

	ok, err := snap.Exists(ctx, tree.Join(p, domain.AttributesFile))
	if err != nil {
		return domain.NodeNotFound, err
	}
	if ok {
		return domain.NodeDocumentDir, nil
	}

	static, err := c.isStatic(ctx, snap, p)
	if err != nil {
		return domain.NodeNotFound, err
	}
	if static {
		return domain.NodeStaticDir, nil
	}
	return domain.NodeCollection, nil
}

func (c *Classifier) isStatic(ctx context.Context, snap domain.Snapshot, p string) (bool, error) {
	for {
		ok, err := snap.Exists(ctx, tree.Join(p, domain.StaticMarker))
		if err != nil || ok {
			return ok, err
		}
		if p == "" {
			return false, nil
		}
		p = tree.Parent(p)
	}
}

// IsReserved reports whether a directory entry name is never a document or
// collection: the attributes file, the static marker and hidden entries.
func IsReserved(name string) bool {
	return name == "" || name == domain.AttributesFile || name[0] == '.'
}
