package database

import (
	"context"
	"time"

	"playmatch/tags/internal/hub"
	"playmatch/tags/internal/logger"
	"playmatch/tags/internal/models"
	"playmatch/tags/internal/tagging"

	"github.com/cockroachdb/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TagEngine is the tagging engine specialised to the application's tag model.
type TagEngine = tagging.Engine[models.Tag, *models.Tag]

var (
	DB   *gorm.DB
	Tags *TagEngine
)

// Connect opens the Postgres database, wires the tagging engine and runs migrations.
func Connect(dsn, linkTable string) error {
	// Configure GORM logger
	customLogger := gormlogger.New(
		logger.GormWriter{},
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond, // Slow SQL threshold
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: customLogger,
	})
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	logger.Logger.Info("Database connection established.")

	if err := Init(db, linkTable); err != nil {
		return err
	}
	logger.Logger.Info("Database migrated successfully.")
	return nil
}

// Init installs db as the global handle, builds the tagging engine on top of
// it and migrates every table.
func Init(db *gorm.DB, linkTable string) error {
	DB = db
	Tags = tagging.New[models.Tag](db, tagging.Config{
		LinkTable: linkTable,
		Toucher:   hub.Toucher{Hub: hub.GlobalHub},
	})
	return Migrate(context.Background())
}

// Migrate creates or updates the schema.
func Migrate(ctx context.Context) error {
	if err := DB.WithContext(ctx).AutoMigrate(&models.User{}, &models.Game{}); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}
	return Tags.Migrate(ctx)
}
