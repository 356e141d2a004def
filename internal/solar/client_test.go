package solar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gunes-backend/internal/cache"
	"gunes-backend/internal/testutil"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pvwattsServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		if q.Get("api_key") != "test-key" {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]any{"errors": []string{"API_KEY_INVALID"}})
			return
		}
		assert.Equal(t, "38.42", q.Get("lat"))
		assert.Equal(t, "10", q.Get("system_capacity"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors":   []string{},
			"warnings": []string{},
			"outputs": map[string]any{
				"ac_monthly":      []float64{720.4, 850.1, 1180.6, 1390.2, 1620.9, 1710.3, 1780.5, 1700.8, 1450.2, 1120.7, 800.4, 640.9},
				"ac_annual":       14966.0,
				"solrad_annual":   5.213,
				"capacity_factor": 17.084,
			},
		})
	}))
}

func TestEstimateCachesByRoundedInputs(t *testing.T) {
	var hits atomic.Int32
	srv := pvwattsServer(t, &hits)
	defer srv.Close()

	clk := testclock.NewClock(time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC))
	cl := NewClient(srv.URL, "test-key", cache.NewMemory(clk))
	ctx := context.Background()

	est, err := cl.Estimate(ctx, Input{Lat: 38.4189, Lon: 27.1287, CapacityKW: 10, Tilt: 30, Azimuth: 180})
	require.NoError(t, err)
	assert.False(t, est.Cached)
	assert.Equal(t, 14966.0, est.AnnualKWh)
	assert.Equal(t, 1496.6, est.SpecificYield)
	assert.Equal(t, 17.08, est.CapacityFactor)
	assert.Equal(t, 1780.5, est.MonthlyKWh[6])

	est, err = cl.Estimate(ctx, Input{Lat: 38.4201, Lon: 27.1311, CapacityKW: 10.02, Tilt: 30.2, Azimuth: 179.8})
	require.NoError(t, err)
	assert.True(t, est.Cached)
	assert.EqualValues(t, 1, hits.Load())

	clk.Advance(CacheTTL)
	est, err = cl.Estimate(ctx, Input{Lat: 38.42, Lon: 27.13, CapacityKW: 10, Tilt: 30, Azimuth: 180})
	require.NoError(t, err)
	assert.False(t, est.Cached)
	assert.EqualValues(t, 2, hits.Load())
}

func TestEstimateErrors(t *testing.T) {
	var hits atomic.Int32
	srv := pvwattsServer(t, &hits)
	defer srv.Close()
	clk := testclock.NewClock(time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC))

	cl := NewClient(srv.URL, "yanlis", cache.NewMemory(clk))
	_, err := cl.Estimate(context.Background(), Input{Lat: 38.42, Lon: 27.14, CapacityKW: 10, Tilt: 30, Azimuth: 180})
	assert.Error(t, err)

	_, err = cl.Estimate(context.Background(), Input{Lat: 95, Lon: 27.14, CapacityKW: 10})
	assert.Error(t, err)
	assert.EqualValues(t, 1, hits.Load())

	_, err = NewClient(srv.URL, "", cache.NewMemory(clk)).Estimate(context.Background(), Input{Lat: 38.42, Lon: 27.14, CapacityKW: 10})
	assert.Error(t, err)
}

func TestEstimateHandler(t *testing.T) {
	var hits atomic.Int32
	srv := pvwattsServer(t, &hits)
	defer srv.Close()
	clk := testclock.NewClock(time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC))

	app := testutil.NewApp()
	app.Get("/estimate", EstimateHandler(NewClient(srv.URL, "test-key", cache.NewMemory(clk))))

	status, body := testutil.Do(t, app, http.MethodGet, "/estimate?lat=38.42&lon=27.14&capacity_kw=10", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var est Estimate
	testutil.DecodeJSON(t, body, &est)
	assert.Equal(t, 14966.0, est.AnnualKWh)

	status, _ = testutil.Do(t, app, http.MethodGet, "/estimate?lat=38.42&lon=27.14", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = testutil.Do(t, app, http.MethodGet, "/estimate?lat=38.42&lon=27.14&capacity_kw=10&tilt=120", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
