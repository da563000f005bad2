package timegetter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TimeGetterTestSuite struct {
	suite.Suite
	tg *TimeGetter
}

func (s *TimeGetterTestSuite) SetupTest() {
	s.tg = NewTimeGetter().(*TimeGetter)
}

func (s *TimeGetterTestSuite) TestGetTime() {
	before := time.Now()
	got := s.tg.GetTime()
	after := time.Now()

	s.Equal(time.UTC, got.Location())
	s.False(got.Before(before.Add(-time.Second)))
	s.False(got.After(after.Add(time.Second)))
}

func TestTimeGetterTestSuite(t *testing.T) {
	suite.Run(t, new(TimeGetterTestSuite))
}
