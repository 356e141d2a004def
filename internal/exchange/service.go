package exchange

import (
	"context"

	"gunes-backend/internal/apperr"
	"gunes-backend/internal/models"

	"github.com/juju/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Fetcher TCMB istemcisinin soyutlaması; testlerde sahte bülten verilir.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Quote, error)
}

// ActiveRates döviz başına geçerli kur: aktif manuel kur varsa o, yoksa en güncel TCMB kuru.
func ActiveRates(db *gorm.DB) (map[string]models.ExchangeRate, error) {
	var manual []models.ExchangeRate
	if err := db.Where("source = ? AND is_active = ?", models.RateSourceManual, true).
		Find(&manual).Error; err != nil {
		return nil, errors.Annotate(err, "manuel kurlar okunamadı")
	}
	var tcmb []models.ExchangeRate
	if err := db.Where("source = ? AND is_active = ?", models.RateSourceTCMB, true).
		Order("effective_date desc, id desc").
		Find(&tcmb).Error; err != nil {
		return nil, errors.Annotate(err, "TCMB kurları okunamadı")
	}

	out := map[string]models.ExchangeRate{}
	for _, r := range tcmb {
		if _, ok := out[r.Currency]; !ok {
			out[r.Currency] = r
		}
	}
	for _, r := range manual {
		out[r.Currency] = r
	}
	return out, nil
}

type SyncResult struct {
	Inserted int      `json:"inserted"`
	Skipped  int      `json:"skipped"`
	Rates    []string `json:"rates"`
}

// Sync bülteni çeker; aynı gün ve döviz için kayıt varsa tekrar yazmaz.
func Sync(ctx context.Context, db *gorm.DB, f Fetcher) (SyncResult, error) {
	var res SyncResult
	quotes, err := f.Fetch(ctx)
	if err != nil {
		return res, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, q := range quotes {
			var count int64
			if err := tx.Model(&models.ExchangeRate{}).
				Where("currency = ? AND source = ? AND effective_date = ?", q.Currency, models.RateSourceTCMB, q.Date).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				res.Skipped++
				continue
			}
			row := models.ExchangeRate{
				Currency:      q.Currency,
				Rate:          q.Rate,
				Source:        models.RateSourceTCMB,
				IsActive:      true,
				EffectiveDate: q.Date,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			res.Inserted++
			res.Rates = append(res.Rates, q.Currency+"="+q.Rate.String())
		}
		return nil
	})
	if err != nil {
		return res, errors.Annotate(err, "TCMB kurları kaydedilemedi")
	}

	log.Info().Int("inserted", res.Inserted).Int("skipped", res.Skipped).Msg("TCMB kurları senkronize edildi")
	return res, nil
}

// Convert TL karşılığı üzerinden iki döviz arasında çevirir; TRY her zaman 1 kabul edilir.
func Convert(rates map[string]models.ExchangeRate, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	rateOf := func(code string) (decimal.Decimal, error) {
		if code == "TRY" {
			return decimal.NewFromInt(1), nil
		}
		r, ok := rates[code]
		if !ok {
			return decimal.Zero, apperr.NotFound("%s için aktif kur yok", code)
		}
		return r.Rate, nil
	}
	fromRate, err := rateOf(from)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := rateOf(to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(fromRate).Div(toRate).Round(2), nil
}
