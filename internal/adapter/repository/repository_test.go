package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/treedb/domain"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/tree"
)

type timeGetterMock struct{ mock.Mock }

// GetTime implements domain.TimeGetter.
func (t *timeGetterMock) GetTime() time.Time {
	return t.Called().Get(0).(time.Time)
}

type hasherMock struct{ mock.Mock }

// Hash implements domain.Hasher.
func (h *hasherMock) Hash(v any) (uint64, error) {
	call := h.Called(v)
	return call.Get(0).(uint64), call.Error(1)
}

type RepositoryTestSuite struct {
	suite.Suite
	ctx  context.Context
	now  time.Time
	wt   *tree.Tree
	repo *Repository
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tg := new(timeGetterMock)
	tg.On("GetTime").Return(s.now)
	s.wt = tree.New()
	s.repo = NewRepository(
		domain.WithRepositoryWorkTree(s.wt),
		domain.WithRepositoryTimeGetter(tg),
	).(*Repository)
}

func (s *RepositoryTestSuite) write(p, content string) {
	s.Require().NoError(s.repo.CreateFile(s.ctx, p, []byte(content), 0o644))
	s.Require().NoError(s.repo.Stage(s.ctx, p))
}

func (s *RepositoryTestSuite) remove(p string) {
	s.Require().NoError(s.repo.Remove(s.ctx, p, true))
	s.Require().NoError(s.repo.Stage(s.ctx, p))
}

func (s *RepositoryTestSuite) commit(msg string) string {
	id, err := s.repo.Commit(s.ctx, msg)
	s.Require().NoError(err)
	return id
}

func (s *RepositoryTestSuite) head() map[string][]byte {
	snap, err := s.repo.Head(s.ctx)
	s.Require().NoError(err)
	files, err := tree.Walk(s.ctx, snap, "")
	s.Require().NoError(err)
	return files
}

func (s *RepositoryTestSuite) files(pairs ...string) map[string][]byte {
	res := make(map[string][]byte, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		res[pairs[i]] = []byte(pairs[i+1])
	}
	return res
}

func (s *RepositoryTestSuite) TestNoHistory() {
	s.Empty(s.head())

	_, err := s.repo.Log(s.ctx, 0)
	s.ErrorIs(err, domain.ErrNoHistory)
	s.ErrorIs(s.repo.Undo(s.ctx, domain.StepsBack(0)), domain.ErrNoHistory)
	_, err = s.repo.Revert(s.ctx, domain.StepsBack(0))
	s.ErrorIs(err, domain.ErrNoHistory)
}

func (s *RepositoryTestSuite) TestCommit() {
	s.write("posts/a", "one")
	s.Require().NoError(s.repo.CreateFile(s.ctx, "posts/unstaged", []byte("x"), 0o644))
	first := s.commit("first")

	s.Equal(s.files("posts/a", "one"), s.head())
	ok, err := s.repo.Working().Exists(s.ctx, "posts/unstaged")
	s.NoError(err)
	s.True(ok)

	s.write("posts/b", "two")
	s.Equal(s.files("posts/a", "one"), s.head())
	second := s.commit("second")
	s.NotEqual(first, second)
	s.Equal(s.files("posts/a", "one", "posts/b", "two"), s.head())

	id, err := s.repo.Log(s.ctx, 0)
	s.NoError(err)
	s.Equal(second, id)
	id, err = s.repo.Log(s.ctx, 1)
	s.NoError(err)
	s.Equal(first, id)
	_, err = s.repo.Log(s.ctx, 2)
	s.ErrorIs(err, domain.ErrNoHistory)

	commits, err := s.repo.Commits(s.ctx)
	s.NoError(err)
	s.Len(commits, 2)
	s.Empty(commits[0].Parent)
	s.Equal(first, commits[1].Parent)
	s.Equal("second", commits[1].Message)
	s.Equal(s.now, commits[1].Time)
}

func (s *RepositoryTestSuite) TestStageRemoval() {
	s.write("posts/big/_attributes.yaml", "{}")
	s.write("posts/big/pic", "png")
	s.write("posts/a", "one")
	s.commit("add")

	s.remove("posts/big")
	s.commit("remove")
	s.Equal(s.files("posts/a", "one"), s.head())

	snap, err := s.repo.Head(s.ctx)
	s.NoError(err)
	names, err := snap.List(s.ctx, "posts")
	s.NoError(err)
	s.Equal([]string{"a"}, names)
}

func (s *RepositoryTestSuite) TestStageRoot() {
	s.Require().NoError(s.wt.CreateFile(s.ctx, "a", []byte("1"), 0o644))
	s.Require().NoError(s.wt.CreateFile(s.ctx, "b/c", []byte("2"), 0o644))
	s.Require().NoError(s.wt.CreateFile(s.ctx, ".git/HEAD", []byte("ref"), 0o644))
	s.Require().NoError(s.wt.CreateFile(s.ctx, "b/.static", []byte("x"), 0o644))
	s.Require().NoError(s.repo.Stage(s.ctx, ""))
	s.commit("all")
	s.Equal(s.files("a", "1", "b/.static", "x", "b/c", "2"), s.head())
}

func (s *RepositoryTestSuite) TestUndo() {
	s.Require().NoError(s.wt.CreateFile(s.ctx, ".hidden", []byte("keep"), 0o644))
	s.write("a", "1")
	first := s.commit("first")
	s.write("a", "2")
	s.write("dir/b", "3")
	s.commit("second")
	s.Require().NoError(s.wt.CreateFile(s.ctx, "uncommitted", []byte("x"), 0o644))

	s.NoError(s.repo.Undo(s.ctx, domain.StepsBack(1)))

	id, err := s.repo.Log(s.ctx, 0)
	s.NoError(err)
	s.Equal(first, id)
	s.Equal(s.files("a", "1"), s.head())

	files, err := tree.Walk(s.ctx, s.wt, "")
	s.NoError(err)
	s.Equal(s.files(".hidden", "keep", "a", "1"), files)

	s.commit("after undo")
	s.Equal(s.files("a", "1"), s.head())
}

func (s *RepositoryTestSuite) TestUndoByID() {
	s.write("a", "1")
	first := s.commit("first")
	s.write("a", "2")
	s.commit("second")
	s.write("a", "3")
	s.commit("third")

	s.NoError(s.repo.Undo(s.ctx, domain.CommitID(first)))
	s.Equal(s.files("a", "1"), s.head())
	_, err := s.repo.Log(s.ctx, 1)
	s.ErrorIs(err, domain.ErrNoHistory)

	s.ErrorIs(s.repo.Undo(s.ctx, domain.CommitID("nope")), domain.ErrNoHistory)
}

func (s *RepositoryTestSuite) TestRevertSteps() {
	s.write("a", "1")
	s.commit("first")
	s.write("a", "2")
	s.write("b", "1")
	s.commit("second")

	id, err := s.repo.Revert(s.ctx, domain.StepsBack(1))
	s.NoError(err)
	s.Equal(s.files("a", "1"), s.head())

	last, err := s.repo.Log(s.ctx, 0)
	s.NoError(err)
	s.Equal(id, last)
	commits, err := s.repo.Commits(s.ctx)
	s.NoError(err)
	s.Len(commits, 3)
}

func (s *RepositoryTestSuite) TestRevertID() {
	s.write("a", "1")
	s.commit("first")
	s.write("posts/big/_attributes.yaml", "{}")
	second := s.commit("second")
	s.write("a", "3")
	s.commit("third")

	_, err := s.repo.Revert(s.ctx, domain.CommitID(second))
	s.NoError(err)
	s.Equal(s.files("a", "3"), s.head())

	ok, err := s.wt.Exists(s.ctx, "posts")
	s.NoError(err)
	s.False(ok)
}

func (s *RepositoryTestSuite) TestSearch() {
	s.write("posts/a", "hello world")
	s.commit("first")
	s.Require().NoError(s.wt.CreateFile(s.ctx, "posts/b", []byte("hello there"), 0o644))

	res, err := s.repo.Search(s.ctx, []string{"hello"}, domain.SearchOptions{}, "posts")
	s.NoError(err)
	s.Equal([]string{"a"}, res)

	res, err = s.repo.Search(s.ctx, []string{"hello"}, domain.SearchOptions{Working: true}, "posts")
	s.NoError(err)
	s.Equal([]string{"a", "b"}, res)
}

func (s *RepositoryTestSuite) TestHashError() {
	h := new(hasherMock)
	hashErr := errors.New("hash error")
	h.On("Hash", mock.Anything).Return(uint64(0), hashErr)
	repo := NewRepository(domain.WithRepositoryHasher(h))

	_, err := repo.Commit(s.ctx, "x")
	s.ErrorIs(err, hashErr)
	_, err = repo.Log(s.ctx, 0)
	s.ErrorIs(err, domain.ErrNoHistory)
}

func (s *RepositoryTestSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	s.ErrorIs(s.repo.CreateFile(ctx, "a", nil, 0o644), context.Canceled)
	_, err := s.repo.Commit(ctx, "x")
	s.ErrorIs(err, context.Canceled)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
