package database

import (
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tickethub/internal/domain/billing"
	"tickethub/internal/domain/events"
	"tickethub/internal/domain/organizations"
	"tickethub/internal/domain/registrations"
	"tickethub/internal/domain/users"
)

// Models lists every table the API owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		// core
		&users.User{},
		&users.VerificationToken{},
		&organizations.Organization{},
		&organizations.Invitation{},

		// events
		&events.Event{},
		&registrations.Booking{},
		&registrations.RSVP{},

		// billing
		&billing.Payment{},
		&billing.WebhookEvent{},
	}
}

func InitDB(dsn string, log *zap.Logger) *gorm.DB {
	if dsn == "" {
		log.Fatal("DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		log.Fatal("automigrate failed", zap.Error(err))
	}

	log.Info("connected and migrated")
	return db
}
