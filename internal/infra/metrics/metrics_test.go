//go:build !integration

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSweepCounters(t *testing.T) {
	before := testutil.ToFloat64(sweepFailuresTotal.WithLabelValues("expected"))
	AddSweepFailures("Expected ", 2)
	AddSweepFailures("expected", 0)
	if got := testutil.ToFloat64(sweepFailuresTotal.WithLabelValues("expected")); got != before+2 {
		t.Errorf("expected %v, got %v", before+2, got)
	}
}

func TestSubscriptionsActiveGauge(t *testing.T) {
	SetSubscriptionsActive(3)
	if got := testutil.ToFloat64(subscriptionsActive); got != 3 {
		t.Errorf("expected gauge 3, got %v", got)
	}
}

func TestMustRegisterIsIdempotent(t *testing.T) {
	MustRegister()
	MustRegister()
}

func TestRegisterOnFreshRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second Register must skip known collectors, got %v", err)
	}
}

type poolStats struct{ max, total, idle, inUse int32 }

func (p poolStats) MaxConns() int32      { return p.max }
func (p poolStats) TotalConns() int32    { return p.total }
func (p poolStats) IdleConns() int32     { return p.idle }
func (p poolStats) AcquiredConns() int32 { return p.inUse }

func TestStorePoolStats(t *testing.T) {
	SetStorePoolStats(poolStats{max: 10, total: 4, idle: 1, inUse: 3})
	if got := testutil.ToFloat64(storePoolConns.WithLabelValues("in_use")); got != 3 {
		t.Errorf("expected 3 in use, got %v", got)
	}
	if got := testutil.ToFloat64(storePoolConns.WithLabelValues("max")); got != 10 {
		t.Errorf("expected max 10, got %v", got)
	}
}

func TestChannelCacheCounter(t *testing.T) {
	before := testutil.ToFloat64(channelCacheTotal.WithLabelValues("invalidate"))
	IncChannelCache(" Invalidate")
	if got := testutil.ToFloat64(channelCacheTotal.WithLabelValues("invalidate")); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}
}

func TestBuildInfoKeepsOneSeries(t *testing.T) {
	SetBuildInfo("v1", "abc", "memory")
	SetBuildInfo("v2", "def", "Postgres")
	if n := testutil.CollectAndCount(buildInfo); n != 1 {
		t.Errorf("expected a single build_info series, got %d", n)
	}
	if got := testutil.ToFloat64(buildInfo.WithLabelValues("v2", "def", "postgres")); got != 1 {
		t.Errorf("expected current build labelled 1, got %v", got)
	}
}
