package delivery

import (
	"gunes-backend/internal/apperr"
	"gunes-backend/internal/config"
)

// Registry isimle kanal seçimi; istekteki "channels" listesi buradan çözülür.
type Registry struct {
	channels map[string]Channel
}

func NewRegistry(channels ...Channel) *Registry {
	r := &Registry{channels: make(map[string]Channel, len(channels))}
	for _, ch := range channels {
		r.channels[ch.Name()] = ch
	}
	return r
}

func NewRegistryFromConfig(cfg *config.Config) *Registry {
	return NewRegistry(
		NewEmailChannel(cfg.SendgridAPIKey, cfg.MailFromAddress, cfg.MailFromName),
		NewWhatsAppChannel(cfg.WhatsAppAPIURL, cfg.WhatsAppToken, cfg.WhatsAppPhoneNumberID),
		NewSMSChannel(cfg.SMSAPIURL, cfg.SMSUsername, cfg.SMSPassword, cfg.SMSHeader),
	)
}

// Select isimleri istek sırasıyla kanallara çevirir; tekrar edenler atlanır.
func (r *Registry) Select(names []string) ([]Channel, error) {
	if len(names) == 0 {
		return nil, apperr.Invalid("en az bir gönderim kanalı seçilmeli")
	}
	seen := map[string]bool{}
	out := make([]Channel, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		ch, ok := r.channels[n]
		if !ok {
			return nil, apperr.Invalid("bilinmeyen kanal: %s", n)
		}
		seen[n] = true
		out = append(out, ch)
	}
	return out, nil
}
