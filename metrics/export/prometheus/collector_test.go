package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/justincavery/yoga-app-sub000"
	"github.com/justincavery/yoga-app-sub000/metrics/export/internaldefs"
)

type fakeSource struct {
	snapshot auth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() auth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                  { return f.dropped }

func sampleSource() fakeSource {
	return fakeSource{
		snapshot: auth.MetricsSnapshot{
			Counters: map[auth.MetricID]uint64{
				auth.MetricLoginSuccess:  7,
				auth.MetricAccountLocked: 2,
			},
			Histograms: map[auth.MetricID][]uint64{
				auth.MetricAuthorizeLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	}
}

func TestCollectorGathersEveryDefinition(t *testing.T) {
	reg := prom.NewRegistry()
	require.NoError(t, reg.Register(NewCollectorFromSource(sampleSource())))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, len(internaldefs.CounterDefs)+len(internaldefs.HistogramDefs)+1)

	byName := make(map[string]int, len(families))
	for i, mf := range families {
		byName[mf.GetName()] = i
	}

	login := families[byName["auth_login_success_total"]]
	assert.Equal(t, float64(7), login.GetMetric()[0].GetCounter().GetValue())

	dropped := families[byName["auth_audit_dropped_total"]]
	assert.Equal(t, float64(2), dropped.GetMetric()[0].GetCounter().GetValue())

	hist := families[byName["auth_authorize_latency_seconds"]].GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(36), hist.GetSampleCount())
	require.Len(t, hist.GetBucket(), 7)
	assert.Equal(t, uint64(1), hist.GetBucket()[0].GetCumulativeCount())
	assert.Equal(t, uint64(28), hist.GetBucket()[6].GetCumulativeCount())
}

func TestCollectorWithEmptySnapshot(t *testing.T) {
	reg := prom.NewRegistry()
	require.NoError(t, reg.Register(NewCollectorFromSource(fakeSource{
		snapshot: auth.MetricsSnapshot{
			Counters:   map[auth.MetricID]uint64{},
			Histograms: map[auth.MetricID][]uint64{},
		},
	})))

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				assert.Zero(t, c.GetValue(), mf.GetName())
			}
		}
	}
}

func TestHandlerServesTextFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	NewCollectorFromSource(sampleSource()).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "auth_login_success_total 7")
	assert.Contains(t, string(body), `auth_authorize_latency_seconds_bucket{le="+Inf"} 36`)
}
