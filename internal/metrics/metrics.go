package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeliveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gunes_delivery_attempts_total",
		Help: "Teklif gönderim denemeleri (kanal ve sonuç bazında).",
	}, []string{"channel", "outcome"})

	SchedulerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gunes_scheduler_runs_total",
		Help: "Zamanlanmış işlerin çalışma sayısı.",
	}, []string{"job", "outcome"})

	KVKKNotices = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gunes_kvkk_notices_total",
		Help: "KVKK gecikme uyarısı ve hatırlatma sayısı.",
	}, []string{"action"})

	QuotesExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gunes_quotes_expired_total",
		Help: "Süresi dolduğu için EXPIRED durumuna alınan teklifler.",
	})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gunes_rate_limited_total",
		Help: "Hız sınırına takılan istekler.",
	}, []string{"scope"})
)

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
