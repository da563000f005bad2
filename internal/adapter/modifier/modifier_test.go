package modifier

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/treedb/domain"
	"github.com/vinicius-lino-figueiredo/treedb/internal/adapter/data"
)

type M = domain.M

type A = domain.A

var valueComparer = cmp.Comparer(func(a, b domain.Value) bool { return a.Equal(b) })

type ModifierTestSuite struct {
	suite.Suite
	mod domain.Modifier
	doc *domain.Document
}

func (s *ModifierTestSuite) SetupTest() {
	s.mod = NewModifier()
	s.doc = domain.NewDocument("posts/hello")
	s.doc.Attributes = s.values(M{
		"title": "Hello",
		"views": 10,
		"tags":  A{"go", "db"},
		"none":  nil,
	})
	s.doc.Body = "body"
}

func (s *ModifierTestSuite) values(in M) map[string]domain.Value {
	res, err := data.MapOf(in)
	s.Require().NoError(err)
	return res
}

func (s *ModifierTestSuite) modify(spec M) *domain.Document {
	res, err := s.mod.Modify(s.doc, s.values(spec))
	s.Require().NoError(err)
	return res
}

func (s *ModifierTestSuite) attr(doc *domain.Document, field string) domain.Value {
	v, ok := doc.Attributes[field]
	s.Require().True(ok, field)
	return v
}

func (s *ModifierTestSuite) assertValue(expected any, actual domain.Value) {
	v, err := data.ValueOf(expected)
	s.Require().NoError(err)
	s.Empty(cmp.Diff(v, actual, valueComparer))
}

func (s *ModifierTestSuite) invalid(spec M) {
	_, err := s.mod.Modify(s.doc, s.values(spec))
	s.ErrorIs(err, domain.ErrUpdate)
}

func (s *ModifierTestSuite) mismatch(spec M) {
	_, err := s.mod.Modify(s.doc, s.values(spec))
	s.ErrorIs(err, domain.ErrMismatch)
	s.ErrorAs(err, &domain.ErrTypeMismatch{})
}

func (s *ModifierTestSuite) TestDoesNotChangeInput() {
	res := s.modify(M{"$set": M{"title": "Bye"}, "$push": M{"tags": "new"}})
	s.Equal(domain.String("Hello"), s.doc.Attributes["title"])
	s.Equal(2, s.doc.Attributes["tags"].Len())
	s.Equal(domain.String("Bye"), res.Attributes["title"])
	s.Equal(3, res.Attributes["tags"].Len())
	s.Equal(s.doc.Path, res.Path)
	s.Equal(s.doc.Name, res.Name)
}

func (s *ModifierTestSuite) TestReplace() {
	res := s.modify(M{"title": "Other", "_name": "renamed"})
	s.Equal(map[string]domain.Value{"title": domain.String("Other")}, res.Attributes)
	s.Equal("hello", res.Name)
	s.Equal("body", res.Body)

	res = s.modify(M{"_body": "new body"})
	s.Empty(res.Attributes)
	s.Equal("new body", res.Body)

	res = s.modify(M{})
	s.Empty(res.Attributes)
}

func (s *ModifierTestSuite) TestMixedSpec() {
	s.invalid(M{"$set": M{"a": 1}, "title": "x"})
}

func (s *ModifierTestSuite) TestSet() {
	res := s.modify(M{"$set": M{"title": "Bye", "meta": M{"a": 1}, "_name": "nope"}})
	s.Equal(domain.String("Bye"), s.attr(res, "title"))
	s.assertValue(M{"a": 1}, s.attr(res, "meta"))
	s.Equal("hello", res.Name)
	s.NotContains(res.Attributes, "_name")

	res = s.modify(M{"$set": M{"_body": "changed"}})
	s.Equal("changed", res.Body)
	s.NotContains(res.Attributes, "_body")

	s.mismatch(M{"$set": M{"_body": 1}})
	s.invalid(M{"$set": "title"})
}

func (s *ModifierTestSuite) TestUnset() {
	res := s.modify(M{"$unset": M{"title": true, "missing": true, "_body": true}})
	s.NotContains(res.Attributes, "title")
	s.Equal("", res.Body)
	s.Contains(res.Attributes, "views")
}

func (s *ModifierTestSuite) TestBodyOnDirectoryDocument() {
	s.doc.Kind = domain.NodeDocumentDir
	s.doc.HasBody = false
	s.invalid(M{"$set": M{"_body": "x"}})
	s.invalid(M{"$unset": M{"_body": true}})
	s.invalid(M{"_body": "x"})
}

func (s *ModifierTestSuite) TestInc() {
	res := s.modify(M{"$inc": M{"views": 5, "likes": -2}})
	s.Equal(domain.Number(15), s.attr(res, "views"))
	s.Equal(domain.Number(-2), s.attr(res, "likes"))

	res = s.modify(M{"$inc": M{"views": 0.5}})
	s.Equal(domain.Number(10.5), s.attr(res, "views"))

	res = s.modify(M{"$inc": M{"none": 3}})
	s.Equal(domain.Number(3), s.attr(res, "none"))

	s.mismatch(M{"$inc": M{"title": 1}})
	s.mismatch(M{"$inc": M{"tags": 1}})
	s.invalid(M{"$inc": M{"views": "1"}})
}

func (s *ModifierTestSuite) TestIncNumericString() {
	s.doc.Attributes["count"] = domain.String(" 5 ")
	res := s.modify(M{"$inc": M{"count": 2}})
	s.Equal(domain.Number(7), s.attr(res, "count"))
}

func (s *ModifierTestSuite) TestPush() {
	res := s.modify(M{"$push": M{"tags": "yaml", "list": 1, "none": "x"}})
	s.assertValue(A{"go", "db", "yaml"}, s.attr(res, "tags"))
	s.assertValue(A{1}, s.attr(res, "list"))
	s.assertValue(A{"x"}, s.attr(res, "none"))

	res = s.modify(M{"$push": M{"tags": A{"a", "b"}}})
	s.assertValue(A{"go", "db", A{"a", "b"}}, s.attr(res, "tags"))

	res = s.modify(M{"$push": M{"tags": M{"$each": A{"a", "b"}}}})
	s.assertValue(A{"go", "db", "a", "b"}, s.attr(res, "tags"))

	res = s.modify(M{"$push": M{"tags": M{"$each": A{"a", "b"}, "$slice": -2}}})
	s.assertValue(A{"a", "b"}, s.attr(res, "tags"))

	res = s.modify(M{"$push": M{"tags": M{"$each": A{"a"}, "$slice": 10}}})
	s.assertValue(A{"go", "db", "a"}, s.attr(res, "tags"))

	s.mismatch(M{"$push": M{"title": "x"}})
	s.invalid(M{"$push": M{"tags": M{"$each": "a"}}})
	s.invalid(M{"$push": M{"tags": M{"$each": A{}, "$other": 1}}})
	s.invalid(M{"$push": M{"_body": "x"}})
}

func (s *ModifierTestSuite) TestPushAll() {
	res := s.modify(M{"$pushAll": M{"tags": A{"a", "go"}}})
	s.assertValue(A{"go", "db", "a", "go"}, s.attr(res, "tags"))
	s.invalid(M{"$pushAll": M{"tags": "a"}})
	s.mismatch(M{"$pushAll": M{"views": A{1}}})
}

func (s *ModifierTestSuite) TestAddToSet() {
	res := s.modify(M{"$addToSet": M{"tags": "go"}})
	s.assertValue(A{"go", "db"}, s.attr(res, "tags"))

	res = s.modify(M{"$addToSet": M{"tags": "yaml"}})
	s.assertValue(A{"go", "db", "yaml"}, s.attr(res, "tags"))

	again, err := s.mod.Modify(res, s.values(M{"$addToSet": M{"tags": "yaml"}}))
	s.NoError(err)
	s.Empty(cmp.Diff(res, again, valueComparer))

	res = s.modify(M{"$addToSet": M{"tags": M{"$each": A{"db", "x", "x"}}}})
	s.assertValue(A{"go", "db", "x"}, s.attr(res, "tags"))

	res = s.modify(M{"$addToSet": M{"nums": 1}})
	res, err = s.mod.Modify(res, s.values(M{"$addToSet": M{"nums": "1"}}))
	s.NoError(err)
	s.assertValue(A{1}, s.attr(res, "nums"))

	s.invalid(M{"$addToSet": M{"tags": M{"$each": A{"a"}, "$slice": 1}}})
	s.mismatch(M{"$addToSet": M{"title": "x"}})
}

func (s *ModifierTestSuite) TestPop() {
	s.doc.Attributes["list"] = s.values(M{"l": A{1, 2, 3, 4}})["l"]

	res := s.modify(M{"$pop": M{"list": 0}})
	s.assertValue(A{2, 3, 4}, s.attr(res, "list"))

	res = s.modify(M{"$pop": M{"list": -1}})
	s.assertValue(A{1, 2, 3}, s.attr(res, "list"))

	res = s.modify(M{"$pop": M{"list": 2}})
	s.assertValue(A{1, 2, 4}, s.attr(res, "list"))

	res = s.modify(M{"$pop": M{"list": 4, "missing": 0}})
	s.assertValue(A{1, 2, 3, 4}, s.attr(res, "list"))
	s.NotContains(res.Attributes, "missing")

	s.invalid(M{"$pop": M{"list": 0.5}})
	s.mismatch(M{"$pop": M{"title": 0}})
}

func (s *ModifierTestSuite) TestPull() {
	s.doc.Attributes["list"] = s.values(M{"l": A{"a", "b", "a", 1, "1", "ab"}})["l"]

	res := s.modify(M{"$pull": M{"list": "a"}})
	s.assertValue(A{"b", 1, "1", "ab"}, s.attr(res, "list"))

	res = s.modify(M{"$pull": M{"list": 1}})
	s.assertValue(A{"a", "b", "a", "ab"}, s.attr(res, "list"))

	res = s.modify(M{"$pull": M{"list": regexp.MustCompile("^a")}})
	s.assertValue(A{"b", 1, "1"}, s.attr(res, "list"))

	res = s.modify(M{"$pull": M{"missing": "a"}})
	s.NotContains(res.Attributes, "missing")

	s.mismatch(M{"$pull": M{"title": "H"}})
}

func (s *ModifierTestSuite) TestPullAll() {
	res := s.modify(M{"$pullAll": M{"tags": A{"go", "x"}}})
	s.assertValue(A{"db"}, s.attr(res, "tags"))
	s.invalid(M{"$pullAll": M{"tags": "go"}})
}

func (s *ModifierTestSuite) TestRename() {
	res := s.modify(M{"$rename": M{"title": "heading", "missing": "other"}})
	s.NotContains(res.Attributes, "title")
	s.Equal(domain.String("Hello"), s.attr(res, "heading"))
	s.NotContains(res.Attributes, "other")

	s.invalid(M{"$rename": M{"title": "_name"}})
	s.invalid(M{"$rename": M{"title": 1}})
	s.invalid(M{"$rename": M{"title": ""}})
}

func (s *ModifierTestSuite) TestUnknownOperatorsAreIgnored() {
	res := s.modify(M{"$max": M{"views": 100}, "$inc": M{"views": 1}})
	s.Equal(domain.Number(11), s.attr(res, "views"))
}

// Operators apply in a fixed order: $set runs before $inc and $rename.
func (s *ModifierTestSuite) TestOperatorOrder() {
	res := s.modify(M{
		"$rename": M{"counter": "total"},
		"$inc":    M{"counter": 1},
		"$set":    M{"counter": 41},
	})
	s.Equal(domain.Number(42), s.attr(res, "total"))
	s.NotContains(res.Attributes, "counter")
}

func TestModifierTestSuite(t *testing.T) {
	suite.Run(t, new(ModifierTestSuite))
}
