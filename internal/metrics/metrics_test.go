package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSeedMetrics(t *testing.T) {
	m := NewSeedMetrics()

	m.RowsInserted.WithLabelValues("items").Add(3)
	m.ObserveStep("reset", time.Now())
	m.RunFinished(nil)
	m.RunFinished(errors.New("boom"))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsInserted.WithLabelValues("items")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("error")))
	assert.Greater(t, testutil.ToFloat64(m.LastSuccess), 0.0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.StepDuration))
}

func TestSeedMetricsPush(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewSeedMetrics()
	m.RunFinished(nil)

	require.NoError(t, m.Push(context.Background(), srv.URL, "market_seed"))
	assert.Equal(t, "/metrics/job/market_seed", gotPath)
}

func TestStoreCollector(t *testing.T) {
	c := NewStoreCollector(func(context.Context) (int64, int64, int64, error) {
		return 1, 3, 1, nil
	}, zap.NewNop())

	expected := `
# HELP market_items Items in the store.
# TYPE market_items gauge
market_items 3
# HELP market_owned_items Items with an owner.
# TYPE market_owned_items gauge
market_owned_items 1
# HELP market_store_up Whether the last store query succeeded.
# TYPE market_store_up gauge
market_store_up 1
# HELP market_users Users in the store.
# TYPE market_users gauge
market_users 1
`
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
}

func TestStoreCollectorDown(t *testing.T) {
	c := NewStoreCollector(func(context.Context) (int64, int64, int64, error) {
		return 0, 0, 0, errors.New("database is closed")
	}, zap.NewNop())

	expected := `
# HELP market_store_up Whether the last store query succeeded.
# TYPE market_store_up gauge
market_store_up 0
`
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
}

func TestNewServeRegistry(t *testing.T) {
	c := NewStoreCollector(func(context.Context) (int64, int64, int64, error) {
		return 2, 5, 0, nil
	}, zap.NewNop())

	reg := NewServeRegistry(c)
	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["market_users"])
	assert.True(t, names["go_goroutines"])
}
