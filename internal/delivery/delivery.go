// Package delivery teklif ve bildirimleri e-posta, WhatsApp ve SMS kanallarından gönderir.
package delivery

import (
	"context"
	"time"

	"gunes-backend/internal/metrics"

	"github.com/juju/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrNotConfigured kimlik bilgisi tanımlanmamış kanal.
const ErrNotConfigured = errors.ConstError("kanal yapılandırılmamış")

const sendTimeout = 15 * time.Second

type Recipient struct {
	Name  string
	Email string
	Phone string
}

type Message struct {
	To      Recipient
	Subject string
	Text    string // WhatsApp ve e-posta düz metin gövdesi
	HTML    string
	Short   string // SMS; boşsa Text kullanılır
}

type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

type Result struct {
	Channel string `json:"channel"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type Report struct {
	Success bool     `json:"success"`
	Results []Result `json:"results"`
}

// Deliver her kanalı bir kez, eşzamanlı dener. Sonuçlar kanal sırasıyla döner;
// en az bir kanal başarılıysa gönderim başarılı sayılır.
func Deliver(ctx context.Context, channels []Channel, msg Message) Report {
	results := make([]Result, len(channels))

	// errgroup.WithContext kullanılmaz: bir kanalın hatası diğerlerini iptal etmemeli
	var g errgroup.Group
	for i, ch := range channels {
		i, ch := i, ch
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, sendTimeout)
			defer cancel()

			err := ch.Send(sctx, msg)
			results[i] = Result{Channel: ch.Name(), Success: err == nil}
			if err != nil {
				results[i].Error = err.Error()
				log.Warn().Err(err).Str("channel", ch.Name()).Msg("gönderim başarısız")
			}
			metrics.DeliveryAttempts.WithLabelValues(ch.Name(), metrics.Outcome(err)).Inc()
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Results: results}
	for _, r := range results {
		if r.Success {
			report.Success = true
			break
		}
	}
	return report
}
