package config

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=gunes port=5432 sslmode=disable"

type Config struct {
	AppEnv        string
	LogLevel      string
	HTTPPort      string
	DatabaseDSN   string
	JWTSecret     string
	CORSOrigins   string
	PublicBaseURL string
	UploadPath    string // Fotoğraf yüklemelerinin kaydedileceği klasör (MinIO yoksa)

	RedisURL string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	SendgridAPIKey  string
	MailFromAddress string
	MailFromName    string

	WhatsAppToken         string
	WhatsAppPhoneNumberID string
	WhatsAppAPIURL        string

	SMSAPIURL   string
	SMSUsername string
	SMSPassword string
	SMSHeader   string

	NRELAPIKey string
	NRELAPIURL string

	TCMBRatesURL string

	QuoteSendLimit  int
	QuoteSendWindow time.Duration

	SchedulerEnabled bool
	KVKKCron         string
	QuoteExpiryCron  string
	RateSyncCron     string
	KVKKResponseDays int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DATABASE_DSN", defaultDSN)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:3000")
	v.SetDefault("UPLOAD_PATH", "./uploads")
	v.SetDefault("MINIO_BUCKET", "gunes-photos")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MAIL_FROM_ADDRESS", "noreply@localhost")
	v.SetDefault("MAIL_FROM_NAME", "Güneş Enerji")
	v.SetDefault("WHATSAPP_API_URL", "https://graph.facebook.com/v19.0")
	v.SetDefault("SMS_API_URL", "")
	v.SetDefault("NREL_API_URL", "https://developer.nrel.gov/api/pvwatts/v8.json")
	v.SetDefault("TCMB_RATES_URL", "https://www.tcmb.gov.tr/kurlar/today.xml")
	v.SetDefault("QUOTE_SEND_LIMIT", 10)
	v.SetDefault("QUOTE_SEND_WINDOW", time.Hour)
	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("KVKK_CRON", "0 9 * * *")
	v.SetDefault("QUOTE_EXPIRY_CRON", "@hourly")
	v.SetDefault("RATE_SYNC_CRON", "30 15 * * 1-5")
	v.SetDefault("KVKK_RESPONSE_DAYS", 30)
}

func Load() *Config {
	// .env dosyası varsa yükle, yoksa sadece ortam değişkenleri
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Fatal().Err(err).Msg(".env dosyası okunamadı")
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		AppEnv:        v.GetString("APP_ENV"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		HTTPPort:      v.GetString("HTTP_PORT"),
		DatabaseDSN:   v.GetString("DATABASE_DSN"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		CORSOrigins:   v.GetString("CORS_ALLOWED_ORIGINS"),
		PublicBaseURL: strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		UploadPath:    v.GetString("UPLOAD_PATH"),

		RedisURL: v.GetString("REDIS_URL"),

		MinIOEndpoint:  v.GetString("MINIO_ENDPOINT"),
		MinIOAccessKey: v.GetString("MINIO_ACCESS_KEY"),
		MinIOSecretKey: v.GetString("MINIO_SECRET_KEY"),
		MinIOBucket:    v.GetString("MINIO_BUCKET"),
		MinIOUseSSL:    v.GetBool("MINIO_USE_SSL"),

		SendgridAPIKey:  v.GetString("SENDGRID_API_KEY"),
		MailFromAddress: v.GetString("MAIL_FROM_ADDRESS"),
		MailFromName:    v.GetString("MAIL_FROM_NAME"),

		WhatsAppToken:         v.GetString("WHATSAPP_TOKEN"),
		WhatsAppPhoneNumberID: v.GetString("WHATSAPP_PHONE_NUMBER_ID"),
		WhatsAppAPIURL:        strings.TrimRight(v.GetString("WHATSAPP_API_URL"), "/"),

		SMSAPIURL:   v.GetString("SMS_API_URL"),
		SMSUsername: v.GetString("SMS_USERNAME"),
		SMSPassword: v.GetString("SMS_PASSWORD"),
		SMSHeader:   v.GetString("SMS_HEADER"),

		NRELAPIKey: v.GetString("NREL_API_KEY"),
		NRELAPIURL: v.GetString("NREL_API_URL"),

		TCMBRatesURL: v.GetString("TCMB_RATES_URL"),

		QuoteSendLimit:  v.GetInt("QUOTE_SEND_LIMIT"),
		QuoteSendWindow: v.GetDuration("QUOTE_SEND_WINDOW"),

		SchedulerEnabled: v.GetBool("SCHEDULER_ENABLED"),
		KVKKCron:         v.GetString("KVKK_CRON"),
		QuoteExpiryCron:  v.GetString("QUOTE_EXPIRY_CRON"),
		RateSyncCron:     v.GetString("RATE_SYNC_CRON"),
		KVKKResponseDays: v.GetInt("KVKK_RESPONSE_DAYS"),
	}

	// Production güvenlik kontrolleri
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET environment değişkeni tanımlanmamış! Production için zorunludur.")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal().Msg("JWT_SECRET en az 32 karakter olmalıdır! Güvenlik riski.")
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Warn().Msg("DATABASE_DSN varsayılan değer kullanılıyor, production için kendi Postgres bağlantı bilgini tanımla.")
	}
	if cfg.CORSOrigins == "http://localhost:3000" {
		log.Warn().Msg("CORS_ALLOWED_ORIGINS varsayılan değer kullanılıyor, production için kendi domain'ini tanımla.")
	}
	if cfg.KVKKResponseDays <= 0 {
		cfg.KVKKResponseDays = 30
	}

	return cfg
}

// Location iş kurallarının (gün sonu, cron) çalıştığı saat dilimi.
// tzdata yoksa sabit UTC+3 kullanılır; Türkiye 2016'dan beri yaz saati uygulamıyor.
func Location() *time.Location {
	locOnce.Do(func() {
		loc, err := time.LoadLocation("Europe/Istanbul")
		if err != nil {
			loc = time.FixedZone("TRT", 3*60*60)
		}
		location = loc
	})
	return location
}

var (
	locOnce  sync.Once
	location *time.Location
)

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
