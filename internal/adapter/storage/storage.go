// Package storage contains a [domain.WorkTree] backed by a directory on disk.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dolmen-go/contextio"
	"github.com/natefinch/atomic"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/tree"
)

// Storage implements domain.WorkTree over the directory at root. Files are
// replaced atomically so readers never observe partial documents.
type Storage struct {
	root    string
	dirMode os.FileMode
}

// NewStorage returns a new implementation of domain.WorkTree rooted at root.
// Parent directories created implicitly get dirMode.
func NewStorage(root string, dirMode os.FileMode) domain.WorkTree {
	return &Storage{root: root, dirMode: dirMode}
}

func (d *Storage) abs(p string) string {
	return filepath.Join(d.root, filepath.FromSlash(tree.Clean(p)))
}

// List implements domain.Snapshot.
func (d *Storage) List(_ context.Context, p string) ([]string, error) {
	entries, err := os.ReadDir(d.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrMissing{Path: tree.Clean(p)}
		}
		return nil, err
	}
	res := make([]string, len(entries))
	for n, e := range entries {
		res[n] = e.Name()
	}
	return res, nil
}

// TypeOf implements domain.Snapshot.
func (d *Storage) TypeOf(_ context.Context, p string) (domain.EntryType, error) {
	info, err := os.Stat(d.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.EntryMissing, nil
		}
		return domain.EntryMissing, err
	}
	if info.IsDir() {
		return domain.EntryTree, nil
	}
	return domain.EntryBlob, nil
}

// Read implements domain.Snapshot.
func (d *Storage) Read(ctx context.Context, p string) ([]byte, error) {
	f, err := os.Open(d.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrMissing{Path: tree.Clean(p)}
		}
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(contextio.NewReader(ctx, f))
}

// Exists implements domain.Snapshot.
func (d *Storage) Exists(ctx context.Context, p string) (bool, error) {
	typ, err := d.TypeOf(ctx, p)
	return typ != domain.EntryMissing, err
}

// CreateFile implements domain.WorkTree.
func (d *Storage) CreateFile(ctx context.Context, p string, data []byte, mode os.FileMode) error {
	filename := d.abs(p)
	if err := os.MkdirAll(filepath.Dir(filename), d.dirMode); err != nil {
		return err
	}
	if err := atomic.WriteFile(filename, contextio.NewReader(ctx, bytes.NewReader(data))); err != nil {
		return err
	}
	return os.Chmod(filename, mode)
}

// CreateDir implements domain.WorkTree.
func (d *Storage) CreateDir(_ context.Context, p string, mode os.FileMode) error {
	return os.MkdirAll(d.abs(p), mode)
}

// Remove implements domain.WorkTree.
func (d *Storage) Remove(_ context.Context, p string, recursive bool) error {
	if tree.Clean(p) == "" {
		return errors.New("cannot remove the root directory")
	}
	filename := d.abs(p)
	if _, err := os.Lstat(filename); err != nil {
		if os.IsNotExist(err) {
			return domain.ErrMissing{Path: tree.Clean(p)}
		}
		return err
	}
	if recursive {
		return os.RemoveAll(filename)
	}
	if err := os.Remove(filename); err != nil {
		return fmt.Errorf("cannot remove %q: %w", tree.Clean(p), err)
	}
	return nil
}
