package matcher

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/treedb/domain"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/data"
)

type M = domain.M

type A = domain.A

type comparerMock struct{ mock.Mock }

// Numeric implements domain.Comparer.
func (c *comparerMock) Numeric(v domain.Value) (float64, bool) {
	call := c.Called(v)
	return call.Get(0).(float64), call.Bool(1)
}

// Compare implements domain.Comparer.
func (c *comparerMock) Compare(a, b domain.Value) (int, bool) {
	call := c.Called(a, b)
	return call.Int(0), call.Bool(1)
}

// Equal implements domain.Comparer.
func (c *comparerMock) Equal(a, b domain.Value) bool {
	return c.Called(a, b).Bool(0)
}

// Order implements domain.Comparer.
func (c *comparerMock) Order(a, b domain.Value) int {
	return c.Called(a, b).Int(0)
}

type MatcherTestSuite struct {
	suite.Suite
	mtchr *Matcher
	movie *domain.Document
}

func (s *MatcherTestSuite) SetupTest() {
	s.mtchr = NewMatcher().(*Matcher)
	s.movie = s.doc("movies/zombieland", M{
		"title":    "Zombieland",
		"year":     2009,
		"score":    7.8,
		"starring": A{"Woody Harrelson", "Jesse Eisenberg", "Emma Stone"},
		"genre":    A{"comedy", "horror"},
		"budget":   "23600000",
		"director": M{"first": "Ruben", "last": "Fleischer"},
		"sequel":   nil,
		"released": "2009-10-02",
		"seen":     true,
	})
}

func (s *MatcherTestSuite) doc(p string, attrs M) *domain.Document {
	doc := domain.NewDocument(p)
	fields, err := data.MapOf(attrs)
	s.Require().NoError(err)
	doc.Attributes = fields
	return doc
}

func (s *MatcherTestSuite) query(q M) domain.Query {
	fields, err := data.MapOf(q)
	s.Require().NoError(err)
	return fields
}

func (s *MatcherTestSuite) match(q M) bool {
	res, err := s.mtchr.Match(s.movie, s.query(q))
	s.Require().NoError(err)
	return res
}

func (s *MatcherTestSuite) invalid(q M) {
	_, err := s.mtchr.Match(s.movie, s.query(q))
	s.ErrorIs(err, domain.ErrQuery)
	s.ErrorAs(err, &domain.ErrInvalidQuery{})
}

func (s *MatcherTestSuite) TestEmptyQuery() {
	s.True(s.match(nil))
	s.True(s.match(M{}))

	res, err := s.mtchr.Match(domain.NewDocument("x"), nil)
	s.NoError(err)
	s.True(res)
}

func (s *MatcherTestSuite) TestName() {
	s.True(s.match(M{"_name": "zombieland"}))
	s.False(s.match(M{"_name": "Zombieland"}))
	s.True(s.match(M{"_name": regexp.MustCompile("^zomb")}))
	s.True(s.match(M{"_name": M{"$in": A{"a", "zombieland"}}}))
	s.True(s.match(M{"_name": M{"$exists": true}}))
}

func (s *MatcherTestSuite) TestDottedField() {
	s.True(s.match(M{"director.first": "Ruben"}))
	s.True(s.match(M{"director.last": regexp.MustCompile("^Fle")}))
	s.True(s.match(M{"director.middle": M{"$exists": false}}))
	s.True(s.match(M{"starring.1": "Jesse Eisenberg"}))
	s.False(s.match(M{"starring.0": "Jesse Eisenberg"}))
	s.False(s.match(M{"title.first": "Zombieland"}))
}

func (s *MatcherTestSuite) TestLiteral() {
	s.True(s.match(M{"title": "Zombieland"}))
	s.False(s.match(M{"title": "zombieland"}))
	s.True(s.match(M{"year": 2009}))
	s.True(s.match(M{"year": "2009"}))
	s.True(s.match(M{"budget": 23600000}))
	s.True(s.match(M{"seen": true}))
	s.False(s.match(M{"missing": "x"}))
	s.True(s.match(M{"title": "Zombieland", "year": 2009}))
	s.False(s.match(M{"title": "Zombieland", "year": 2010}))
}

func (s *MatcherTestSuite) TestNull() {
	s.True(s.match(M{"sequel": nil}))
	s.False(s.match(M{"missing": nil}))
	s.False(s.match(M{"title": nil}))
}

func (s *MatcherTestSuite) TestArrayField() {
	s.True(s.match(M{"starring": "Emma Stone"}))
	s.False(s.match(M{"starring": "Bill Murray"}))
	s.True(s.match(M{"genre": A{"comedy", "horror"}}))
	s.False(s.match(M{"genre": A{"horror", "comedy"}}))
	s.False(s.match(M{"genre": A{"comedy"}}))
}

func (s *MatcherTestSuite) TestMapField() {
	s.True(s.match(M{"director": M{"first": "Ruben", "last": "Fleischer"}}))
	s.False(s.match(M{"director": M{"first": "Ruben"}}))
	s.False(s.match(M{"title": M{"first": "Ruben"}}))
	s.False(s.match(M{"director": "Ruben"}))
}

func (s *MatcherTestSuite) TestPattern() {
	s.True(s.match(M{"title": regexp.MustCompile("^Zomb")}))
	s.False(s.match(M{"title": regexp.MustCompile("^zomb")}))
	s.True(s.match(M{"starring": regexp.MustCompile("Stone$")}))
	s.True(s.match(M{"year": regexp.MustCompile(`^20\d\d$`)}))
	s.False(s.match(M{"director": regexp.MustCompile("Ruben")}))
	s.False(s.match(M{"missing": regexp.MustCompile(".*")}))
}

func (s *MatcherTestSuite) TestExists() {
	s.True(s.match(M{"title": M{"$exists": true}}))
	s.False(s.match(M{"title": M{"$exists": false}}))
	s.True(s.match(M{"missing": M{"$exists": false}}))
	s.False(s.match(M{"missing": M{"$exists": 1}}))
	s.True(s.match(M{"missing": M{"$exists": 0}}))
	s.True(s.match(M{"sequel": M{"$exists": "yes"}}))
}

func (s *MatcherTestSuite) TestComparison() {
	s.True(s.match(M{"score": M{"$gt": 7.5}}))
	s.False(s.match(M{"score": M{"$lt": 7.5}}))
	s.True(s.match(M{"score": M{"$gte": 7.8, "$lte": "7.8"}}))
	s.True(s.match(M{"title": M{"$gt": "Adventureland"}}))
	s.False(s.match(M{"title": M{"$lt": "Adventureland"}}))
	s.True(s.match(M{"budget": M{"$gt": 9000000}}))
	s.True(s.match(M{"released": M{"$gte": "2009-01-01", "$lt": "2010-01-01"}}))
	s.True(s.match(M{"starring": M{"$lt": "F"}}))
	s.False(s.match(M{"missing": M{"$lt": 100}}))
	s.False(s.match(M{"director": M{"$gt": 1}}))
}

func (s *MatcherTestSuite) TestNotEqual() {
	s.True(s.match(M{"title": M{"$ne": "Adventureland"}}))
	s.False(s.match(M{"title": M{"$ne": "Zombieland"}}))
	s.False(s.match(M{"year": M{"$ne": "2009"}}))
	s.False(s.match(M{"missing": M{"$ne": 1}}))
	s.False(s.match(M{"starring": M{"$ne": "Emma Stone"}}))
	s.True(s.match(M{"starring": M{"$ne": "Bill Murray"}}))
}

func (s *MatcherTestSuite) TestIn() {
	s.True(s.match(M{"year": M{"$in": A{2008, 2009}}}))
	s.False(s.match(M{"year": M{"$in": A{}}}))
	s.True(s.match(M{"genre": M{"$in": A{"drama", "horror"}}}))
	s.False(s.match(M{"missing": M{"$in": A{nil}}}))
	s.invalid(M{"year": M{"$in": 2009}})

	s.True(s.match(M{"year": M{"$nin": A{2008, 2010}}}))
	s.False(s.match(M{"genre": M{"$nin": A{"horror"}}}))
	s.True(s.match(M{"missing": M{"$nin": A{1}}}))
	s.invalid(M{"year": M{"$nin": "2009"}})
}

func (s *MatcherTestSuite) TestSize() {
	s.True(s.match(M{"starring": M{"$size": 3}}))
	s.False(s.match(M{"starring": M{"$size": 2}}))
	s.False(s.match(M{"title": M{"$size": 10}}))
	s.False(s.match(M{"missing": M{"$size": 0}}))
	s.invalid(M{"starring": M{"$size": 1.5}})
	s.invalid(M{"starring": M{"$size": "3"}})
}

func (s *MatcherTestSuite) TestAll() {
	s.True(s.match(M{"starring": M{"$all": A{"Emma Stone", "Woody Harrelson"}}}))
	s.False(s.match(M{"starring": M{"$all": A{"Emma Stone", "Bill Murray"}}}))
	s.True(s.match(M{"starring": M{"$all": A{}}}))
	s.False(s.match(M{"title": M{"$all": A{"Zombieland"}}}))
	s.invalid(M{"starring": M{"$all": "Emma Stone"}})
}

func (s *MatcherTestSuite) TestMod() {
	s.True(s.match(M{"year": M{"$mod": A{2, 1}}}))
	s.False(s.match(M{"year": M{"$mod": A{2, 0}}}))
	s.True(s.match(M{"budget": M{"$mod": A{100, 0}}}))
	s.True(s.match(M{"score": M{"$mod": A{7, 0}}}))
	s.False(s.match(M{"title": M{"$mod": A{2, 0}}}))
	s.invalid(M{"year": M{"$mod": A{0, 1}}})

	neg := s.doc("ledger/x", M{"delta": -7})
	for q, want := range map[int]bool{2: true, -1: false} {
		res, err := s.mtchr.Match(neg, s.query(M{"delta": M{"$mod": A{3, q}}}))
		s.NoError(err)
		s.Equal(want, res, q)
	}
	res, err := s.mtchr.Match(neg, s.query(M{"delta": M{"$mod": A{-3, -1}}}))
	s.NoError(err)
	s.True(res)
	s.invalid(M{"year": M{"$mod": A{2}}})
	s.invalid(M{"year": M{"$mod": 2}})
}

func (s *MatcherTestSuite) TestType() {
	testCases := []struct {
		field    string
		tag      string
		expected bool
	}{
		{"starring", "array", true},
		{"director", "object", true},
		{"title", "string", true},
		{"year", "number", true},
		{"budget", "double", true},
		{"title", "number", false},
		{"released", "date", true},
		{"title", "date", false},
		{"sequel", "null", true},
		{"missing", "null", false},
		{"missing", "bool", true},
		{"title", "Boolean", true},
		{"title", "regex", false},
	}
	for _, tc := range testCases {
		s.Equal(tc.expected, s.match(M{tc.field: M{"$type": tc.tag}}), tc.field+" "+tc.tag)
	}

	doc := s.doc("p", M{"re": regexp.MustCompile("x")})
	res, err := s.mtchr.Match(doc, s.query(M{"re": M{"$type": "pattern"}}))
	s.NoError(err)
	s.True(res)

	s.invalid(M{"title": M{"$type": "uuid"}})
	s.invalid(M{"title": M{"$type": 2}})
}

func (s *MatcherTestSuite) TestOr() {
	s.True(s.match(M{"$or": A{M{"year": 2010}, M{"title": "Zombieland"}}}))
	s.False(s.match(M{"$or": A{M{"year": 2010}, M{"title": "Adventureland"}}}))
	s.False(s.match(M{"$or": A{}}))
	s.False(s.match(M{"$or": A{M{"year": 2009}}, "title": "Adventureland"}))
	s.invalid(M{"$or": M{"year": 2009}})
	s.invalid(M{"$or": A{"year"}})
	s.invalid(M{"title": M{"$or": A{}}})
}

func (s *MatcherTestSuite) TestInvalidQueries() {
	s.invalid(M{"$and": A{M{"year": 2009}}})
	s.invalid(M{"year": M{"$gt": 2000, "other": 1}})
	s.invalid(M{"year": M{"$between": A{1, 2}}})
}

func (s *MatcherTestSuite) TestUsesComparer() {
	c := new(comparerMock)
	c.On("Equal", domain.String("Zombieland"), domain.String("anything")).Return(true).Once()
	m := NewMatcher(domain.WithMatcherComparer(c))

	res, err := m.Match(s.movie, s.query(M{"title": "anything"}))
	s.NoError(err)
	s.True(res)
	c.AssertExpectations(s.T())
}

func TestMatcherTestSuite(t *testing.T) {
	suite.Run(t, new(MatcherTestSuite))
}
