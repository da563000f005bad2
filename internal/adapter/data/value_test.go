package data

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/treedb/domain"
)

type ValueTestSuite struct {
	suite.Suite
}

func (s *ValueTestSuite) check(expected domain.Value, in any) {
	res, err := ValueOf(in)
	s.Require().NoError(err)
	s.True(expected.Equal(res), "%s != %s", expected, res)
}

func (s *ValueTestSuite) TestScalars() {
	s.check(domain.Null(), nil)
	s.check(domain.Bool(true), true)
	s.check(domain.Number(3), 3)
	s.check(domain.Number(3), int8(3))
	s.check(domain.Number(3), uint64(3))
	s.check(domain.Number(1.5), float32(1.5))
	s.check(domain.String("x"), "x")
	s.check(domain.String("raw"), []byte("raw"))
	s.check(domain.MustPattern("^a"), regexp.MustCompile("^a"))
}

func (s *ValueTestSuite) TestPointers() {
	n := 5
	p := &n
	s.check(domain.Number(5), p)
	s.check(domain.Number(5), &p)
	s.check(domain.Null(), (*int)(nil))
	var iface any = &n
	s.check(domain.Number(5), &iface)
}

func (s *ValueTestSuite) TestTime() {
	t := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s.check(domain.String("2024-03-01T10:00:00Z"), t)
	s.check(domain.String("2024-03-01T10:00:00Z"), &t)
}

func (s *ValueTestSuite) TestCollections() {
	s.check(
		domain.Array(domain.Number(1), domain.String("a"), domain.Null()),
		domain.A{1, "a", nil},
	)
	s.check(domain.Array(domain.Number(1), domain.Number(2)), [2]int{1, 2})
	s.check(domain.Null(), []string(nil))
	s.check(
		domain.Map(map[string]domain.Value{
			"1": domain.String("one"),
			"2": domain.String("two"),
		}),
		map[int]string{1: "one", 2: "two"},
	)
	s.check(
		domain.Map(map[string]domain.Value{
			"tags": domain.Array(domain.String("x")),
			"sub":  domain.Map(map[string]domain.Value{"n": domain.Number(1)}),
		}),
		domain.M{"tags": []string{"x"}, "sub": domain.M{"n": 1}},
	)
}

func (s *ValueTestSuite) TestStructTags() {
	type inner struct {
		N int
	}
	type doc struct {
		Title    string   `treedb:"title"`
		Skipped  string   `treedb:"-"`
		Tags     []string `treedb:"tags,omitempty"`
		Count    int      `treedb:",omitzero"`
		Inner    inner
		private  int
		Attached domain.Value `treedb:"attached"`
	}
	in := doc{Title: "T", Skipped: "s", Inner: inner{N: 2}, private: 1, Attached: domain.Bool(true)}
	s.check(domain.Map(map[string]domain.Value{
		"title":    domain.String("T"),
		"Inner":    domain.Map(map[string]domain.Value{"N": domain.Number(2)}),
		"attached": domain.Bool(true),
	}), in)

	in.Tags = []string{"a"}
	in.Count = 4
	s.check(domain.Map(map[string]domain.Value{
		"title":    domain.String("T"),
		"tags":     domain.Array(domain.String("a")),
		"Count":    domain.Number(4),
		"Inner":    domain.Map(map[string]domain.Value{"N": domain.Number(2)}),
		"attached": domain.Bool(true),
	}), in)
}

func (s *ValueTestSuite) TestUnsupported() {
	_, err := ValueOf(make(chan int))
	s.Error(err)
	_, err = ValueOf(domain.M{"f": func() {}})
	s.Error(err)
}

func (s *ValueTestSuite) TestMapOf() {
	m, err := MapOf(nil)
	s.NoError(err)
	s.Empty(m)

	m, err = MapOf(domain.M{"a": 1})
	s.NoError(err)
	s.Equal(domain.Number(1), m["a"])

	_, err = MapOf("x")
	s.Error(err)

	m, err = MapOf(domain.JSON(`{"year": {"$gt": 2000}, "title": {"$regex": "^Up"}}`))
	s.NoError(err)
	year, ok := m["year"].Get("$gt")
	s.True(ok)
	s.Equal(2000.0, year.Num())
	s.Equal(domain.KindPattern, m["title"].Kind())

	_, err = MapOf(domain.JSON(`[1, 2]`))
	s.Error(err)
	_, err = MapOf(domain.JSON(`{"a":`))
	s.Error(err)
}

func TestValueTestSuite(t *testing.T) {
	suite.Run(t, new(ValueTestSuite))
}
