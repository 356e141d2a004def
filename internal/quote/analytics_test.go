package quote

import (
	"testing"
	"time"

	"gunes-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	sentAt := time.Date(2026, time.May, 10, 9, 0, 0, 0, time.UTC)
	answered := sentAt.Add(30 * time.Hour)
	answered2 := sentAt.Add(10 * time.Hour)

	quotes := []models.Quote{
		{Status: models.QuoteAccepted, Total: d("1000"), SentAt: &sentAt, RespondedAt: &answered, CreatedAt: sentAt},
		{Status: models.QuoteRejected, Total: d("500"), SentAt: &sentAt, RespondedAt: &answered2, CreatedAt: sentAt},
		{Status: models.QuoteExpired, Total: d("300"), CreatedAt: now.AddDate(0, -1, 0)},
		{Status: models.QuoteAccepted, Total: d("2000"), CreatedAt: now},
		{Status: models.QuoteDraft, Total: d("50"), CreatedAt: now.AddDate(-1, 0, 0)},
	}

	a := Summarize(quotes, now, 3)
	assert.Equal(t, 5, a.TotalQuotes)
	assert.Equal(t, 2, a.ByStatus[models.QuoteAccepted].Count)
	assert.True(t, d("3000").Equal(a.ByStatus[models.QuoteAccepted].Total))
	assert.Equal(t, 0, a.ByStatus[models.QuoteSent].Count)
	assert.Equal(t, 50.0, a.ConversionRate)
	assert.Equal(t, 20.0, a.AvgResponseHours)

	require.Len(t, a.Monthly, 3)
	assert.Equal(t, "2026-04", a.Monthly[0].Month)
	assert.Equal(t, "2026-05", a.Monthly[1].Month)
	assert.Equal(t, 3, a.Monthly[1].Created)
	assert.Equal(t, 1, a.Monthly[1].Accepted)
	assert.Equal(t, 1, a.Monthly[2].Created)
	assert.True(t, d("2000").Equal(a.Monthly[2].AcceptedTotal))
}

func TestSummarizeEmpty(t *testing.T) {
	a := Summarize(nil, time.Now(), 6)
	assert.Zero(t, a.ConversionRate)
	assert.Len(t, a.Monthly, 6)
}
