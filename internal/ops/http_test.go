package ops

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDB struct{ err error }

func (f fakeDB) Ping() error { return f.err }

type fakeBroker struct{ healthy bool }

func (f fakeBroker) IsHealthy() bool { return f.healthy }

func get(t *testing.T, h http.Handler, path string) (int, string) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestHealthz(t *testing.T) {
	h := NewHandler(fakeDB{}, fakeBroker{healthy: true}, prometheus.NewRegistry(), zap.NewNop())

	code, body := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body)

	code, _ = get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)
}

func TestHealthzWithoutBroker(t *testing.T) {
	h := NewHandler(fakeDB{}, nil, prometheus.NewRegistry(), zap.NewNop())

	code, _ := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, code)
}

func TestHealthzUnhealthy(t *testing.T) {
	h := NewHandler(fakeDB{err: errors.New("down")}, nil, prometheus.NewRegistry(), zap.NewNop())
	code, body := get(t, h, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "database")

	h = NewHandler(fakeDB{}, fakeBroker{healthy: false}, prometheus.NewRegistry(), zap.NewNop())
	code, body = get(t, h, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "rabbitmq")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "market_test_total", Help: "Test counter."})
	reg.MustRegister(counter)
	counter.Add(2)

	h := NewHandler(fakeDB{}, nil, reg, zap.NewNop())
	code, body := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "market_test_total 2")
}
