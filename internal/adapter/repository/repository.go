// Package repository contains the default [domain.Repository]
// implementation: a linear version history kept over any work tree.
//
// Staged content lives in an index tree. Each commit stores a full snapshot
// of the index, so Head and Undo never replay changes.
package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/hasher"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/searcher"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/timegetter"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/tree"
)

// Commit is a recorded state of the index.
type Commit struct {
	ID      string    `yaml:"-"`
	Parent  string    `yaml:"parent"`
	Message string    `yaml:"message"`
	Time    time.Time `yaml:"time"`
	// Files is the content of every staged file.
	Files map[string][]byte `yaml:"files"`

	snap *tree.Tree
}

// Repository implements domain.Repository.
type Repository struct {
	mu         *gate
	wt         domain.WorkTree
	index      *tree.Tree
	commits    []*Commit
	hasher     domain.Hasher
	timeGetter domain.TimeGetter
	fileMode   os.FileMode
	log        *slog.Logger
	searcher   domain.Searcher
}

// NewRepository returns a new implementation of domain.Repository. Without a
// work tree, an in-memory one is used. The repository starts without
// commits and with an empty index.
func NewRepository(options ...domain.RepositoryOption) domain.Repository {
	opts := domain.RepositoryOptions{
		FileMode: 0o644,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.WorkTree == nil {
		opts.WorkTree = tree.New()
	}
	if opts.Hasher == nil {
		opts.Hasher = hasher.NewHasher()
	}
	if opts.TimeGetter == nil {
		opts.TimeGetter = timegetter.NewTimeGetter()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	r := &Repository{
		mu:         newGate(),
		wt:         opts.WorkTree,
		index:      tree.New(),
		hasher:     opts.Hasher,
		timeGetter: opts.TimeGetter,
		fileMode:   opts.FileMode,
		log:        opts.Logger,
	}
	r.searcher = searcher.NewSearcher(r)
	return r
}

// Working implements domain.Repository.
func (r *Repository) Working() domain.Snapshot {
	return r.wt
}

// Head implements domain.Repository.
func (r *Repository) Head(ctx context.Context) (domain.Snapshot, error) {
	if err := r.mu.lock(ctx); err != nil {
		return nil, err
	}
	defer r.mu.unlock()
	if len(r.commits) == 0 {
		return tree.New(), nil
	}
	return r.commits[len(r.commits)-1].snap, nil
}

// CreateFile implements domain.Mutator.
func (r *Repository) CreateFile(ctx context.Context, p string, data []byte, mode os.FileMode) error {
	if err := r.mu.lock(ctx); err != nil {
		return err
	}
	defer r.mu.unlock()
	return r.wt.CreateFile(ctx, p, data, mode)
}

// CreateDir implements domain.Mutator.
func (r *Repository) CreateDir(ctx context.Context, p string, mode os.FileMode) error {
	if err := r.mu.lock(ctx); err != nil {
		return err
	}
	defer r.mu.unlock()
	return r.wt.CreateDir(ctx, p, mode)
}

// Remove implements domain.Mutator.
func (r *Repository) Remove(ctx context.Context, p string, recursive bool) error {
	if err := r.mu.lock(ctx); err != nil {
		return err
	}
	defer r.mu.unlock()
	return r.wt.Remove(ctx, p, recursive)
}

// Stage implements domain.Mutator. The index entries at or below p are
// replaced by the current work tree content, so removals are staged too.
// Hidden top-level entries are never staged.
func (r *Repository) Stage(ctx context.Context, p string) error {
	if err := r.mu.lock(ctx); err != nil {
		return err
	}
	defer r.mu.unlock()

	p = tree.Clean(p)
	files, err := tree.Walk(ctx, r.wt, p)
	if err != nil {
		return err
	}
	maps.DeleteFunc(files, func(f string, _ []byte) bool { return hidden(f) })
	if p == "" {
		r.index = tree.FromFiles(files)
		return nil
	}
	if err := r.index.Remove(ctx, p, true); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	for _, f := range slices.Sorted(maps.Keys(files)) {
		if err := r.index.CreateFile(ctx, f, files[f], r.fileMode); err != nil {
			return err
		}
	}
	return nil
}

// Commit implements domain.History.
func (r *Repository) Commit(ctx context.Context, message string) (string, error) {
	if err := r.mu.lock(ctx); err != nil {
		return "", err
	}
	defer r.mu.unlock()
	return r.commit(message)
}

func (r *Repository) commit(message string) (string, error) {
	files := r.index.Files()
	c := &Commit{
		Message: message,
		Time:    r.timeGetter.GetTime(),
		Files:   files,
		snap:    tree.FromFiles(files),
	}
	if len(r.commits) > 0 {
		c.Parent = r.commits[len(r.commits)-1].ID
	}
	h, err := r.hasher.Hash(c)
	if err != nil {
		return "", fmt.Errorf("hashing commit: %w", err)
	}
	c.ID = fmt.Sprintf("%016x", h)
	r.commits = append(r.commits, c)
	r.log.Debug("committed", slog.String("id", c.ID), slog.String("message", message))
	return c.ID, nil
}

// resolve returns the position of rev in the commit chain.
func (r *Repository) resolve(rev domain.Revision) (int, error) {
	if len(r.commits) == 0 {
		return 0, domain.ErrNoHistory
	}
	if rev.ID != "" {
		for n, c := range r.commits {
			if c.ID == rev.ID {
				return n, nil
			}
		}
		return 0, fmt.Errorf("%w: unknown commit %s", domain.ErrNoHistory, rev.ID)
	}
	n := len(r.commits) - 1 - rev.Steps
	if rev.Steps < 0 || n < 0 {
		return 0, fmt.Errorf("%w: cannot go back %d commits", domain.ErrNoHistory, rev.Steps)
	}
	return n, nil
}

// Log implements domain.History.
func (r *Repository) Log(ctx context.Context, n int) (string, error) {
	if err := r.mu.lock(ctx); err != nil {
		return "", err
	}
	defer r.mu.unlock()
	pos, err := r.resolve(domain.StepsBack(n))
	if err != nil {
		return "", err
	}
	return r.commits[pos].ID, nil
}

// Commits returns the commit chain, oldest first.
func (r *Repository) Commits(ctx context.Context) ([]Commit, error) {
	if err := r.mu.lock(ctx); err != nil {
		return nil, err
	}
	defer r.mu.unlock()
	res := make([]Commit, len(r.commits))
	for n, c := range r.commits {
		res[n] = *c
	}
	return res, nil
}

// Undo implements domain.History. Later commits are discarded and both the
// index and the work tree are reset to the target, dropping uncommitted
// changes.
func (r *Repository) Undo(ctx context.Context, rev domain.Revision) error {
	if err := r.mu.lock(ctx); err != nil {
		return err
	}
	defer r.mu.unlock()

	pos, err := r.resolve(rev)
	if err != nil {
		return err
	}
	target := r.commits[pos]
	r.commits = r.commits[:pos+1]
	r.index = target.snap.Clone()
	if err := r.resetWorkTree(ctx, target.Files); err != nil {
		return err
	}
	r.log.Debug("undone", slog.String("head", target.ID))
	return nil
}

// resetWorkTree replaces every visible top-level entry of the work tree with
// files. Hidden entries are left alone.
func (r *Repository) resetWorkTree(ctx context.Context, files map[string][]byte) error {
	names, err := r.wt.List(ctx, "")
	if err != nil {
		return err
	}
	for _, name := range names {
		if hidden(name) {
			continue
		}
		if err := r.wt.Remove(ctx, name, true); err != nil {
			return err
		}
	}
	for _, p := range slices.Sorted(maps.Keys(files)) {
		if hidden(p) {
			continue
		}
		if err := r.wt.CreateFile(ctx, p, files[p], r.fileMode); err != nil {
			return err
		}
	}
	return nil
}

// Revert implements domain.History. With steps, the changes made since rev
// are inverted; with an id, only the changes introduced by that commit are.
// The inversion is applied to the work tree and the index and committed.
func (r *Repository) Revert(ctx context.Context, rev domain.Revision) (string, error) {
	if err := r.mu.lock(ctx); err != nil {
		return "", err
	}
	defer r.mu.unlock()

	pos, err := r.resolve(rev)
	if err != nil {
		return "", err
	}
	head := r.commits[len(r.commits)-1]
	target := r.commits[pos]

	var from, to map[string][]byte
	if rev.ID != "" {
		from = target.Files
		if pos > 0 {
			to = r.commits[pos-1].Files
		}
	} else {
		from, to = head.Files, target.Files
	}

	for _, p := range slices.Sorted(maps.Keys(diff(from, to))) {
		if err := r.apply(ctx, p, to); err != nil {
			return "", err
		}
	}
	id, err := r.commit(fmt.Sprintf("Revert %s", target.ID))
	if err != nil {
		return "", err
	}
	r.log.Debug("reverted", slog.String("target", target.ID), slog.String("id", id))
	return id, nil
}

// apply writes the content p has in files, or removes p when it is absent,
// in both the work tree and the index.
func (r *Repository) apply(ctx context.Context, p string, files map[string][]byte) error {
	data, ok := files[p]
	for _, wt := range []domain.WorkTree{r.wt, r.index} {
		var err error
		if ok {
			err = wt.CreateFile(ctx, p, data, r.fileMode)
		} else {
			err = r.removeFile(ctx, wt, p)
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return nil
}

// removeFile removes p along with the parents it leaves empty.
func (r *Repository) removeFile(ctx context.Context, wt domain.WorkTree, p string) error {
	if err := wt.Remove(ctx, p, false); err != nil {
		return err
	}
	for dir := tree.Parent(p); dir != ""; dir = tree.Parent(dir) {
		names, err := wt.List(ctx, dir)
		if err != nil || len(names) > 0 {
			return err
		}
		if err := wt.Remove(ctx, dir, false); err != nil {
			return err
		}
	}
	return nil
}

// Search implements domain.Searcher.
func (r *Repository) Search(ctx context.Context, terms []string, opts domain.SearchOptions, scope string) ([]string, error) {
	return r.searcher.Search(ctx, terms, opts, scope)
}

// hidden reports whether p lies below a hidden top-level entry, like the
// metadata directory of an external tool.
func hidden(p string) bool {
	return strings.HasPrefix(p, ".")
}

// diff returns the paths whose content differs between a and b.
func diff(a, b map[string][]byte) map[string]struct{} {
	res := map[string]struct{}{}
	for p, data := range a {
		if other, ok := b[p]; !ok || !bytes.Equal(other, data) {
			res[p] = struct{}{}
		}
	}
	for p := range b {
		if _, ok := a[p]; !ok {
			res[p] = struct{}{}
		}
	}
	return res
}

// gate is a mutual exclusion lock that gives up when the context is done.
type gate struct {
	ch chan struct{}
}

func newGate() *gate {
	return &gate{ch: make(chan struct{}, 1)}
}

func (g *gate) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case g.ch <- struct{}{}:
		return nil
	}
}

func (g *gate) unlock() {
	<-g.ch
}
