package scheduler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gunes-backend/internal/exchange"
	"gunes-backend/internal/kvkk"
	"gunes-backend/internal/metrics"
	"gunes-backend/internal/models"
	"gunes-backend/internal/testutil"

	"github.com/juju/clock/testclock"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetcher []exchange.Quote

func (f fetcher) Fetch(context.Context) ([]exchange.Quote, error) { return f, nil }

func TestJobsRunAgainstDatabase(t *testing.T) {
	db := testutil.OpenDB(t)
	clk := testclock.NewClock(time.Date(2026, time.May, 20, 12, 0, 0, 0, time.UTC))
	company := testutil.CreateCompany(t, db, "Ege Solar")
	cu := testutil.CreateCustomer(t, db, company.ID)

	q := models.Quote{
		QuoteNumber: "TKL-1", PublicToken: "tok", CompanyID: company.ID, CustomerID: cu.ID,
		Status: models.QuoteSent, ValidUntil: time.Date(2026, time.May, 19, 23, 59, 59, 0, time.UTC),
	}
	require.NoError(t, db.Omit("Company", "Customer").Create(&q).Error)

	jobs := Jobs(db, clk, kvkk.NewChecker(db, clk), fetcher{
		{Currency: "USD", Rate: decimal.RequireFromString("41.5"), Date: testutil.Date(2026, time.May, 20)},
	}, Specs{KVKK: "0 9 * * *", QuoteExpiry: "@hourly", RateSync: "30 15 * * 1-5"})
	require.Len(t, jobs, 3)

	for _, job := range jobs {
		require.NoError(t, RunJob(context.Background(), job), job.Name)
	}

	var stored models.Quote
	require.NoError(t, db.First(&stored, q.ID).Error)
	assert.Equal(t, models.QuoteExpired, stored.Status)

	var rates int64
	db.Model(&models.ExchangeRate{}).Count(&rates)
	assert.EqualValues(t, 1, rates)
}

// captureLog global logger'ı test süresince tampona yönlendirir.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.InfoLevel)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func logMessages(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	var msgs []string
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var line struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		msgs = append(msgs, line.Message)
	}
	return msgs
}

func TestJobsLogSummaryOnce(t *testing.T) {
	db := testutil.OpenDB(t)
	clk := testclock.NewClock(time.Date(2026, time.May, 20, 12, 0, 0, 0, time.UTC))
	company := testutil.CreateCompany(t, db, "Ege Solar")
	cu := testutil.CreateCustomer(t, db, company.ID)
	require.NoError(t, db.Omit("Company", "Customer").Create(&models.Quote{
		QuoteNumber: "TKL-2", PublicToken: "tok-2", CompanyID: company.ID, CustomerID: cu.ID,
		Status: models.QuoteSent, ValidUntil: time.Date(2026, time.May, 19, 23, 59, 59, 0, time.UTC),
	}).Error)

	buf := captureLog(t)
	for _, job := range Jobs(db, clk, kvkk.NewChecker(db, clk), nil, Specs{KVKK: "0 9 * * *", QuoteExpiry: "@hourly"}) {
		require.NoError(t, RunJob(context.Background(), job), job.Name)
	}

	counts := map[string]int{}
	for _, m := range logMessages(t, buf) {
		counts[m]++
	}
	assert.Equal(t, 1, counts["KVKK süre kontrolü tamamlandı"], counts)
	assert.Equal(t, 1, counts["süresi dolan teklifler güncellendi"], counts)
	assert.Len(t, counts, 2, counts)
}

func TestJobsSkipsEmptySpecs(t *testing.T) {
	jobs := Jobs(nil, nil, nil, nil, Specs{QuoteExpiry: "@hourly", RateSync: "@daily"})
	require.Len(t, jobs, 1)
	assert.Equal(t, "quote_expiry", jobs[0].Name)
}

func TestRunJobCountsFailures(t *testing.T) {
	counter := metrics.SchedulerRuns.WithLabelValues("test_fail", "error")
	before := promtest.ToFloat64(counter)

	err := RunJob(context.Background(), Job{Name: "test_fail", Run: func(context.Context) error {
		return errors.New("bağlantı yok")
	}})
	assert.Error(t, err)
	assert.Equal(t, before+1, promtest.ToFloat64(counter))
}

func TestNewRejectsInvalidSpec(t *testing.T) {
	_, err := New(time.UTC, []Job{{Name: "bozuk", Spec: "her gün", Run: func(context.Context) error { return nil }}})
	assert.Error(t, err)

	s, err := New(time.UTC, []Job{{Name: "ok", Spec: "@every 1h", Run: func(context.Context) error { return nil }}})
	require.NoError(t, err)
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
