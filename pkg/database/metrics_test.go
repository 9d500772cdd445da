package database

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func describeAll(c prometheus.Collector) []string {
	ch := make(chan *prometheus.Desc, 32)
	c.Describe(ch)
	close(ch)

	var out []string
	for d := range ch {
		out = append(out, d.String())
	}
	return out
}

func TestPoolStatsCollector_Describe(t *testing.T) {
	var _ prometheus.Collector = (*PoolStatsCollector)(nil)

	descs := describeAll(NewPoolStatsCollector(nil, "souldiary"))
	require.Len(t, descs, 8)

	joined := ""
	for _, d := range descs {
		joined += d
	}
	for _, name := range []string{
		"db_pool_acquired_connections",
		"db_pool_idle_connections",
		"db_pool_max_connections",
		"db_pool_acquire_duration_seconds_total",
	} {
		assert.Contains(t, joined, name)
	}
}

func TestRegisterPoolMetrics_DuplicateRejected(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPoolMetrics(reg, nil, "souldiary"))
	assert.Error(t, RegisterPoolMetrics(reg, nil, "souldiary"))
}
