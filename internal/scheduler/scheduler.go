// Package scheduler KVKK süre kontrolü, teklif süresi ve TCMB kur senkronizasyonu için cron işleri.
package scheduler

import (
	"context"
	"time"

	"gunes-backend/internal/exchange"
	"gunes-backend/internal/kvkk"
	"gunes-backend/internal/metrics"
	"gunes-backend/internal/quote"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const jobTimeout = 5 * time.Minute

// Job tek bir zamanlanmış iş.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type Specs struct {
	KVKK        string
	QuoteExpiry string
	RateSync    string
}

// cronLogger cron kütüphanesinin loglarını zerolog'a aktarır.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

type Scheduler struct {
	cron *cron.Cron
	jobs []Job
}

// Jobs uygulamanın cron işlerini tanımlar; cron ifadesi boş olan iş atlanır.
func Jobs(db *gorm.DB, clk clock.Clock, checker *kvkk.Checker, rates exchange.Fetcher, specs Specs) []Job {
	var jobs []Job
	if specs.KVKK != "" {
		jobs = append(jobs, Job{Name: "kvkk_checks", Spec: specs.KVKK, Run: func(ctx context.Context) error {
			// özet satırını Checker loglar
			_, err := checker.RunChecks(ctx)
			return err
		}})
	}
	if specs.QuoteExpiry != "" {
		jobs = append(jobs, Job{Name: "quote_expiry", Spec: specs.QuoteExpiry, Run: func(ctx context.Context) error {
			_, err := quote.ExpireDue(db.WithContext(ctx), clk.Now())
			return err
		}})
	}
	if specs.RateSync != "" && rates != nil {
		jobs = append(jobs, Job{Name: "rate_sync", Spec: specs.RateSync, Run: func(ctx context.Context) error {
			_, err := exchange.Sync(ctx, db, rates)
			return err
		}})
	}
	return jobs
}

// New işleri cron'a kaydeder; geçersiz bir cron ifadesi hata döndürür.
// Bir iş hâlâ çalışıyorsa yeni tetikleme atlanır.
func New(loc *time.Location, jobs []Job) (*Scheduler, error) {
	logger := cronLogger{l: log.With().Str("component", "scheduler").Logger()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	s := &Scheduler{cron: c, jobs: jobs}
	for _, job := range jobs {
		job := job
		if _, err := c.AddFunc(job.Spec, func() { RunJob(context.Background(), job) }); err != nil {
			return nil, errors.Annotatef(err, "cron ifadesi geçersiz (%s: %q)", job.Name, job.Spec)
		}
	}
	return s, nil
}

// RunJob işi zaman aşımıyla çalıştırır, sonucu metriğe ve loga yazar.
func RunJob(ctx context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	metrics.SchedulerRuns.WithLabelValues(job.Name, metrics.Outcome(err)).Inc()
	if err != nil {
		log.Error().Err(err).Str("job", job.Name).Msg("zamanlanmış iş başarısız")
		return err
	}
	log.Debug().Str("job", job.Name).Dur("took", time.Since(start)).Msg("zamanlanmış iş tamamlandı")
	return nil
}

func (s *Scheduler) Start() {
	for _, job := range s.jobs {
		log.Info().Str("job", job.Name).Str("spec", job.Spec).Msg("zamanlanmış iş kaydedildi")
	}
	s.cron.Start()
}

// Stop yeni tetiklemeleri durdurur ve çalışan işlerin bitmesini ctx süresince bekler.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn().Msg("zamanlanmış işler beklenmeden kapatıldı")
	}
}
