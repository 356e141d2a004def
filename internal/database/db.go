package database

import (
	"gunes-backend/internal/config"
	"gunes-backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.IsProduction() {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Veritabanına bağlanılamadı")
	}

	if err := Migrate(DB); err != nil {
		log.Fatal().Err(err).Msg("AutoMigrate hatası")
	}

	log.Info().Msg("Veritabanı bağlantısı başarılı. Migration tamamlandı.")
}

// Migrate tabloları oluşturur ve AutoMigrate'in ifade edemediği index'leri ekler.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.Customer{},
		&models.Project{},
		&models.ProjectRequest{},
		&models.Product{},
		&models.Package{},
		&models.PackageItem{},
		&models.Quote{},
		&models.QuoteItem{},
		&models.QuoteDelivery{},
		&models.Department{},
		&models.Employee{},
		&models.LeaveRequest{},
		&models.TimeEntry{},
		&models.KVKKApplication{},
		&models.KVKKAuditLog{},
		&models.Partner{},
		&models.PartnerQuoteRequest{},
		&models.Commission{},
		&models.PartnerReview{},
		&models.Notification{},
		&models.PhotoRequest{},
		&models.PhotoUpload{},
		&models.ExchangeRate{},
		&models.AuditLog{},
	)
	if err != nil {
		return err
	}

	// Döviz başına tek aktif manuel kur
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_exchange_rates_active_manual
		ON exchange_rates (currency)
		WHERE is_active AND source = 'MANUAL'
	`).Error; err != nil {
		return err
	}

	// Çalışan başına tek açık mesai kaydı
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_time_entries_open
		ON time_entries (employee_id)
		WHERE clock_out IS NULL
	`).Error; err != nil {
		return err
	}

	return nil
}
