// Package searcher contains the default [domain.Searcher] implementation.
//
// Terms are regular expressions matched line by line. By default a file
// matches when every term matches at least one of its lines; with the Or
// option one matching term is enough. Files are looked up at most one level
// below the scope, so directory documents match through their attributes
// file and attachments.
package searcher

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"

	"github.com/dolmen-go/contextio"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/tree"
)

// MaxDepth is the number of levels below the scope searched for files.
const MaxDepth = 1

// Source provides the snapshots searched.
type Source interface {
	Working() domain.Snapshot
	Head(ctx context.Context) (domain.Snapshot, error)
}

// Searcher implements domain.Searcher.
type Searcher struct {
	src Source
}

// NewSearcher returns a new implementation of domain.Searcher.
func NewSearcher(src Source) domain.Searcher {
	return &Searcher{src: src}
}

// Search implements domain.Searcher.
func (s *Searcher) Search(ctx context.Context, terms []string, opts domain.SearchOptions, scope string) ([]string, error) {
	if len(terms) == 0 {
		return nil, domain.ErrInvalidQuery{Op: "grep", Reason: "no search terms"}
	}
	exprs := make([]*regexp.Regexp, len(terms))
	for n, term := range terms {
		re, err := regexp.Compile(term)
		if err != nil {
			return nil, domain.ErrInvalidQuery{Op: "grep", Reason: err.Error()}
		}
		exprs[n] = re
	}

	snap, err := s.snapshot(ctx, opts.Working)
	if err != nil {
		return nil, err
	}

	scope = tree.Clean(scope)
	files, err := s.files(ctx, snap, scope, "", 0)
	if err != nil {
		return nil, err
	}

	var res []string
	for _, rel := range files {
		data, err := snap.Read(ctx, tree.Join(scope, rel))
		if err != nil {
			return nil, err
		}
		ok, err := s.matches(ctx, data, exprs, opts.Or)
		if err != nil {
			return nil, fmt.Errorf("searching %s: %w", rel, err)
		}
		if ok {
			res = append(res, rel)
		}
	}
	slices.Sort(res)
	return res, nil
}

func (s *Searcher) snapshot(ctx context.Context, working bool) (domain.Snapshot, error) {
	if working {
		return s.src.Working(), nil
	}
	return s.src.Head(ctx)
}

// files lists the blobs below scope, relative to it.
func (s *Searcher) files(ctx context.Context, snap domain.Snapshot, scope, rel string, depth int) ([]string, error) {
	typ, err := snap.TypeOf(ctx, tree.Join(scope, rel))
	if err != nil || typ != domain.EntryTree {
		return nil, err
	}
	names, err := snap.List(ctx, tree.Join(scope, rel))
	if err != nil {
		return nil, err
	}
	var res []string
	for _, name := range names {
		child := tree.Join(rel, name)
		typ, err := snap.TypeOf(ctx, tree.Join(scope, child))
		if err != nil {
			return nil, err
		}
		switch {
		case typ == domain.EntryBlob:
			res = append(res, child)
		case typ == domain.EntryTree && depth < MaxDepth:
			nested, err := s.files(ctx, snap, scope, child, depth+1)
			if err != nil {
				return nil, err
			}
			res = append(res, nested...)
		}
	}
	return res, nil
}

func (s *Searcher) matches(ctx context.Context, data []byte, exprs []*regexp.Regexp, or bool) (bool, error) {
	found := make([]bool, len(exprs))
	left := len(exprs)

	scanner := bufio.NewScanner(contextio.NewReader(ctx, bytes.NewReader(data)))
	scanner.Buffer(nil, max(bufio.MaxScanTokenSize, len(data)+1))
	for scanner.Scan() {
		line := scanner.Bytes()
		for n, re := range exprs {
			if found[n] || !re.Match(line) {
				continue
			}
			if or {
				return true, nil
			}
			found[n] = true
			left--
		}
		if left == 0 {
			return true, nil
		}
	}
	return false, scanner.Err()
}
