package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite
	reg *prometheus.Registry
	r   *Recorder
}

func (s *MetricsTestSuite) SetupTest() {
	s.reg = prometheus.NewRegistry()
	s.r = NewRecorder(s.reg).(*Recorder)
}

func (s *MetricsTestSuite) TestCounters() {
	s.r.DocumentLoaded()
	s.r.DocumentLoaded()
	s.r.LoadRecovered()
	s.r.Query(true)
	s.r.Query(false)
	s.r.Query(false)
	s.r.Mutation("insert", 3)
	s.r.Mutation("remove", 1)

	s.Equal(2.0, testutil.ToFloat64(s.r.documentsLoaded))
	s.Equal(1.0, testutil.ToFloat64(s.r.loadsRecovered))
	s.Equal(1.0, testutil.ToFloat64(s.r.queries.WithLabelValues(PathExpensive)))
	s.Equal(2.0, testutil.ToFloat64(s.r.queries.WithLabelValues(PathCheap)))
	s.Equal(3.0, testutil.ToFloat64(s.r.mutations.WithLabelValues("insert")))
	s.Equal(1.0, testutil.ToFloat64(s.r.mutations.WithLabelValues("remove")))
}

func (s *MetricsTestSuite) TestRegistered() {
	s.r.Mutation("update", 2)
	expected := `
# HELP treedb_mutations_total Total documents written or removed by operation
# TYPE treedb_mutations_total counter
treedb_mutations_total{op="update"} 2
`
	s.NoError(testutil.GatherAndCompare(s.reg, strings.NewReader(expected), "treedb_mutations_total"))
}

func (s *MetricsTestSuite) TestUnregistered() {
	r := NewRecorder(nil).(*Recorder)
	r.DocumentLoaded()
	s.Equal(1.0, testutil.ToFloat64(r.documentsLoaded))
}

func (s *MetricsTestSuite) TestNop() {
	n := NewNop()
	s.NotPanics(func() {
		n.DocumentLoaded()
		n.LoadRecovered()
		n.Query(true)
		n.Mutation("insert", 1)
	})
}

func TestMetricsTestSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}
