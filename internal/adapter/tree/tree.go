// Package tree contains an in-memory [domain.WorkTree]. Commits and the index
// of the repository are frozen trees, and tests use it as a work tree.
package tree

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
)

// Clean normalizes p into the slash separated, root relative form used by
// snapshots. The root is the empty string.
func Clean(p string) string {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimPrefix(p, "/")
}

// Join joins segments and cleans the result.
func Join(elem ...string) string {
	return Clean(path.Join(elem...))
}

// Parent returns the parent of p, or the empty string for top-level entries.
func Parent(p string) string {
	d := path.Dir(Clean(p))
	if d == "." {
		return ""
	}
	return d
}

// Tree implements [domain.WorkTree] over maps. Trees are implied by the
// files below them, but can also exist empty.
type Tree struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{
		files: map[string][]byte{},
		dirs:  map[string]struct{}{},
	}
}

// FromFiles returns a tree holding the given files.
func FromFiles(files map[string][]byte) *Tree {
	t := New()
	for p, data := range files {
		t.put(Clean(p), data)
	}
	return t
}

// Files returns a copy of every file of the tree.
func (t *Tree) Files() map[string][]byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	res := make(map[string][]byte, len(t.files))
	for p, data := range t.files {
		res[p] = slices.Clone(data)
	}
	return res
}

// Clone returns a deep copy of t.
func (t *Tree) Clone() *Tree {
	t.mu.RLock()
	defer t.mu.RUnlock()
	res := &Tree{
		files: make(map[string][]byte, len(t.files)),
		dirs:  maps.Clone(t.dirs),
	}
	for p, data := range t.files {
		res.files[p] = slices.Clone(data)
	}
	return res
}

// List implements [domain.Snapshot].
func (t *Tree) List(_ context.Context, p string) ([]string, error) {
	p = Clean(p)
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.typeOf(p) != domain.EntryTree {
		return nil, domain.ErrMissing{Path: p}
	}
	prefix := ""
	if p != "" {
		prefix = p + "/"
	}
	seen := map[string]struct{}{}
	collect := func(q string) {
		rest, ok := strings.CutPrefix(q, prefix)
		if !ok || rest == "" {
			return
		}
		name, _, _ := strings.Cut(rest, "/")
		seen[name] = struct{}{}
	}
	for q := range t.files {
		collect(q)
	}
	for q := range t.dirs {
		collect(q)
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

// TypeOf implements [domain.Snapshot].
func (t *Tree) TypeOf(_ context.Context, p string) (domain.EntryType, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.typeOf(Clean(p)), nil
}

func (t *Tree) typeOf(p string) domain.EntryType {
	if p == "" {
		return domain.EntryTree
	}
	if _, ok := t.files[p]; ok {
		return domain.EntryBlob
	}
	if _, ok := t.dirs[p]; ok {
		return domain.EntryTree
	}
	return domain.EntryMissing
}

// Read implements [domain.Snapshot].
func (t *Tree) Read(_ context.Context, p string) ([]byte, error) {
	p = Clean(p)
	t.mu.RLock()
	defer t.mu.RUnlock()
	data, ok := t.files[p]
	if !ok {
		return nil, domain.ErrMissing{Path: p}
	}
	return slices.Clone(data), nil
}

// Exists implements [domain.Snapshot].
func (t *Tree) Exists(ctx context.Context, p string) (bool, error) {
	typ, err := t.TypeOf(ctx, p)
	return typ != domain.EntryMissing, err
}

// CreateFile implements [domain.WorkTree]. Modes are not kept.
func (t *Tree) CreateFile(_ context.Context, p string, data []byte, _ os.FileMode) error {
	p = Clean(p)
	t.mu.Lock()
	defer t.mu.Unlock()
	if p == "" || t.typeOf(p) == domain.EntryTree {
		return fmt.Errorf("cannot write file %q: is a directory", p)
	}
	if err := t.checkParents(p); err != nil {
		return err
	}
	t.put(p, slices.Clone(data))
	return nil
}

// CreateDir implements [domain.WorkTree].
func (t *Tree) CreateDir(_ context.Context, p string, _ os.FileMode) error {
	p = Clean(p)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.typeOf(p) == domain.EntryBlob {
		return fmt.Errorf("cannot create directory %q: is a file", p)
	}
	if err := t.checkParents(p); err != nil {
		return err
	}
	t.mkdirAll(p)
	return nil
}

// Remove implements [domain.WorkTree].
func (t *Tree) Remove(_ context.Context, p string, recursive bool) error {
	p = Clean(p)
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.typeOf(p) {
	case domain.EntryMissing:
		return domain.ErrMissing{Path: p}
	case domain.EntryBlob:
		delete(t.files, p)
		return nil
	}
	if p == "" {
		return fmt.Errorf("cannot remove the root directory")
	}
	prefix := p + "/"
	var below []string
	for q := range t.files {
		if strings.HasPrefix(q, prefix) {
			below = append(below, q)
		}
	}
	for q := range t.dirs {
		if strings.HasPrefix(q, prefix) {
			below = append(below, q)
		}
	}
	if len(below) > 0 && !recursive {
		return fmt.Errorf("cannot remove %q: directory not empty", p)
	}
	for _, q := range below {
		delete(t.files, q)
		delete(t.dirs, q)
	}
	delete(t.dirs, p)
	return nil
}

func (t *Tree) checkParents(p string) error {
	for d := Parent(p); d != ""; d = Parent(d) {
		if _, ok := t.files[d]; ok {
			return fmt.Errorf("cannot create %q: %q is a file", p, d)
		}
	}
	return nil
}

func (t *Tree) put(p string, data []byte) {
	t.files[p] = data
	t.mkdirAll(Parent(p))
}

func (t *Tree) mkdirAll(p string) {
	for ; p != ""; p = Parent(p) {
		t.dirs[p] = struct{}{}
	}
}

// Walk returns every file at or below p in snap, keyed by path.
func Walk(ctx context.Context, snap domain.Snapshot, p string) (map[string][]byte, error) {
	res := map[string][]byte{}
	return res, walk(ctx, snap, Clean(p), res)
}

func walk(ctx context.Context, snap domain.Snapshot, p string, res map[string][]byte) error {
	typ, err := snap.TypeOf(ctx, p)
	if err != nil {
		return err
	}
	switch typ {
	case domain.EntryBlob:
		data, err := snap.Read(ctx, p)
		if err != nil {
			return err
		}
		res[p] = data
	case domain.EntryTree:
		names, err := snap.List(ctx, p)
		if err != nil {
			return err
		}
		for _, name := range names {
			if err := walk(ctx, snap, Join(p, name), res); err != nil {
				return err
			}
		}
	}
	return nil
}
