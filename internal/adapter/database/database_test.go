package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/treedb/domain"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/metrics"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/repository"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/storage"
)

type DatabaseTestSuite struct {
	suite.Suite
	ctx context.Context
	db  domain.Database
}

func (s *DatabaseTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = NewDatabase()
}

func (s *DatabaseTestSuite) movies() domain.Collection {
	c, err := s.db.Collection(s.ctx, "movies")
	s.Require().NoError(err)
	return c
}

func (s *DatabaseTestSuite) seed() {
	_, err := s.movies().BatchInsert(s.ctx,
		domain.NamedAttributes{Name: "big", Attributes: domain.M{"year": 1988}},
		domain.NamedAttributes{Name: "up", Attributes: domain.M{"year": 2009, "_body": "Balloons."}},
	)
	s.Require().NoError(err)
}

func (s *DatabaseTestSuite) find(p string, query any) []string {
	cur, err := s.db.Find(s.ctx, p, query, domain.WithFindWorking(true))
	s.Require().NoError(err)
	var res []string
	for _, ref := range cur.Refs() {
		res = append(res, ref.Path)
	}
	return res
}

func (s *DatabaseTestSuite) TestCollection() {
	c, err := s.db.Collection(s.ctx, "/")
	s.NoError(err)
	s.Same(s.db.Root(), c)

	c, err = s.db.Collection(s.ctx, "movies/classics/")
	s.NoError(err)
	s.Equal("movies/classics", c.Path())

	for _, p := range []string{"movies/_attributes.yaml", ".git", "movies/.static"} {
		_, err = s.db.Collection(s.ctx, p)
		s.ErrorIs(err, domain.ErrName, p)
	}

	s.seed()
	_, err = s.db.Collection(s.ctx, "movies/big")
	s.ErrorIs(err, domain.ErrPathConflict)
}

func (s *DatabaseTestSuite) TestFind() {
	s.seed()

	s.Equal([]string{"movies/big", "movies/up"}, s.find("movies", nil))
	s.Equal([]string{"movies/big"}, s.find("movies", domain.M{"year": 1988}))
	s.Equal([]string{"movies/up"}, s.find("movies/up", nil))
	s.Equal([]string{"movies/big"}, s.find("movies/big", domain.M{"year": 1988}))
	s.Empty(s.find("movies/up", domain.M{"year": 1988}))
	s.Empty(s.find("movies/up", "big"))
	s.Empty(s.find("movies/nope", nil))
	s.Empty(s.find("nope/nope", nil))
	s.Empty(s.find("", nil))
	s.Equal([]string{"movies/up"}, s.find("movies", domain.JSON(`{"year": {"$gt": 2000}}`)))

	_, err := s.db.Find(s.ctx, "movies/up/plot", nil, domain.WithFindWorking(true))
	s.ErrorIs(err, domain.ErrPathConflict)

	_, err = s.db.Find(s.ctx, "movies/up", domain.M{"year": domain.M{"$bogus": 1}}, domain.WithFindWorking(true))
	s.ErrorIs(err, domain.ErrQuery)
}

func (s *DatabaseTestSuite) TestFindOne() {
	s.seed()

	doc, err := s.db.FindOne(s.ctx, "movies/up", nil, domain.WithFindWorking(true))
	s.NoError(err)
	s.Equal("Balloons.", doc.Body)

	_, err = s.db.FindOne(s.ctx, "/movies/nope/", nil, domain.WithFindWorking(true))
	s.ErrorIs(err, domain.ErrNotFound)
	var missing domain.ErrMissing
	s.Require().ErrorAs(err, &missing)
	s.Equal("movies/nope", missing.Path)
}

func (s *DatabaseTestSuite) TestScopes() {
	_, err := s.db.Root().Insert(s.ctx, "about", domain.M{"_body": "About us."})
	s.Require().NoError(err)

	_, err = s.db.FindOne(s.ctx, "about", nil)
	s.ErrorIs(err, domain.ErrNotFound)
	n, err := s.db.Root().Count(s.ctx, domain.M{"_name": "about"}, domain.WithFindWorking(true))
	s.NoError(err)
	s.Equal(1, n)

	_, err = s.db.Commit(s.ctx, "add about")
	s.NoError(err)

	doc, err := s.db.FindOne(s.ctx, "about", nil)
	s.NoError(err)
	s.Equal("About us.", doc.Body)
	n, err = s.db.Root().Count(s.ctx, domain.M{"_name": "about"}, domain.WithFindWorking(true))
	s.NoError(err)
	s.Equal(1, n)
}

func (s *DatabaseTestSuite) TestDrop() {
	s.seed()
	_, err := s.db.Commit(s.ctx, "seed")
	s.Require().NoError(err)

	s.ErrorIs(s.db.Root().Drop(s.ctx), domain.ErrProtected)
	s.NoError(s.movies().Drop(s.ctx))
	_, err = s.db.Commit(s.ctx, "drop")
	s.Require().NoError(err)

	for _, p := range []string{"movies/big", "movies/up"} {
		cur, err := s.db.Find(s.ctx, p, nil)
		s.NoError(err)
		s.Zero(cur.Count())
	}
}

func (s *DatabaseTestSuite) TestHistory() {
	_, err := s.db.Log(s.ctx, 0)
	s.ErrorIs(err, domain.ErrNoHistory)

	s.seed()
	first, err := s.db.Commit(s.ctx, "seed")
	s.Require().NoError(err)

	_, err = s.movies().Update(s.ctx, "up", domain.M{"$set": domain.M{"year": 2010}})
	s.Require().NoError(err)
	second, err := s.db.Commit(s.ctx, "fix year")
	s.Require().NoError(err)

	id, err := s.db.Log(s.ctx, 1)
	s.NoError(err)
	s.Equal(first, id)

	reverted, err := s.db.Revert(s.ctx, domain.CommitID(second))
	s.NoError(err)
	id, err = s.db.Log(s.ctx, 0)
	s.NoError(err)
	s.Equal(reverted, id)
	s.Equal([]string{"movies/up"}, s.find("movies", domain.M{"year": 2009}))

	_, err = s.movies().Remove(s.ctx, nil, domain.WithRemoveMulti(true))
	s.Require().NoError(err)
	s.Empty(s.find("movies", nil))

	s.NoError(s.db.Undo(s.ctx, domain.StepsBack(0)))
	s.Equal([]string{"movies/big", "movies/up"}, s.find("movies", nil))
}

func (s *DatabaseTestSuite) TestMetrics() {
	reg := prometheus.NewRegistry()
	s.db = NewDatabase(domain.WithDatabaseRecorder(metrics.NewRecorder(reg)))
	s.seed()
	_, err := s.movies().Remove(s.ctx, "up")
	s.Require().NoError(err)

	expected := `
# HELP treedb_mutations_total Total documents written or removed by operation
# TYPE treedb_mutations_total counter
treedb_mutations_total{op="insert"} 2
treedb_mutations_total{op="remove"} 1
`
	s.NoError(testutil.GatherAndCompare(reg, strings.NewReader(expected), "treedb_mutations_total"))
}

func (s *DatabaseTestSuite) TestInlineText() {
	repo := repository.NewRepository()
	s.db = NewDatabase(
		domain.WithDatabaseRepository(repo),
		domain.WithDatabaseInlineText(true),
	)
	s.seed()
	s.Require().NoError(repo.CreateFile(s.ctx, "movies/big/plot", []byte("A boy wishes to be big."), 0o644))
	s.Require().NoError(repo.Stage(s.ctx, "movies/big/plot"))
	_, err := s.db.Commit(s.ctx, "seed")
	s.Require().NoError(err)

	doc, err := s.db.FindOne(s.ctx, "movies/big", nil, domain.WithFindWorking(true))
	s.Require().NoError(err)
	plot, ok := doc.Get("plot")
	s.True(ok)
	s.Equal("A boy wishes to be big.", plot.Str())

	doc, err = s.db.FindOne(s.ctx, "movies/big", nil)
	s.Require().NoError(err)
	s.False(doc.Has("plot"))
	s.Equal(map[string]string{"plot": "movies/big/plot"}, doc.Attachments)

	_, err = s.movies().Update(s.ctx, "big", domain.M{"$set": domain.M{"plot": "Rewritten."}})
	s.Require().NoError(err)
	data, err := repo.Working().Read(s.ctx, "movies/big/plot")
	s.NoError(err)
	s.Equal("Rewritten.", string(data))
	attrs, err := repo.Working().Read(s.ctx, "movies/big/_attributes.yaml")
	s.NoError(err)
	s.NotContains(string(attrs), "plot")
}

func (s *DatabaseTestSuite) TestStorage() {
	root := s.T().TempDir()
	wt := storage.NewStorage(root, DefaultDirMode)
	s.db = NewDatabase(domain.WithDatabaseRepository(
		repository.NewRepository(domain.WithRepositoryWorkTree(wt)),
	))
	s.seed()

	data, err := os.ReadFile(filepath.Join(root, "movies", "up"))
	s.NoError(err)
	s.True(strings.HasSuffix(string(data), "\n\nBalloons."))

	_, err = os.Stat(filepath.Join(root, "movies", "big", "_attributes.yaml"))
	s.NoError(err)

	s.Require().NoError(os.WriteFile(filepath.Join(root, "movies", "big", "plot"), []byte("A boy wishes to be big."), 0o644))
	doc, err := s.db.FindOne(s.ctx, "movies/big", nil, domain.WithFindWorking(true))
	s.NoError(err)
	s.Equal(map[string]string{"plot": "movies/big/plot"}, doc.Attachments)
}

func TestDatabaseTestSuite(t *testing.T) {
	suite.Run(t, new(DatabaseTestSuite))
}
