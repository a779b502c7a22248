package trip

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/autocompanion/autocompanion/internal/apperr"
)

// GormDB implements the DB interface on Postgres through gorm.
type GormDB struct {
	db *gorm.DB
}

// NewGormDB connects to dsn and creates the trips table if needed.
func NewGormDB(dsn string) (*GormDB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := db.AutoMigrate(&Trip{}); err != nil {
		return nil, abandonGorm(db, fmt.Errorf("migrating trips table: %w", err))
	}

	return &GormDB{db: db}, nil
}

// CreateTrip inserts trip; Postgres assigns the ID.
func (g *GormDB) CreateTrip(ctx context.Context, trip *Trip) error {
	if err := g.db.WithContext(ctx).Create(trip).Error; err != nil {
		return fmt.Errorf("inserting trip: %w", err)
	}
	return nil
}

// GetTrip retrieves a trip by ID
func (g *GormDB) GetTrip(ctx context.Context, id uint64) (*Trip, error) {
	var trip Trip
	if err := g.db.WithContext(ctx).First(&trip, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("trip %d: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("loading trip %d: %w", id, err)
	}
	return &trip, nil
}

// Close closes the underlying connection pool
func (g *GormDB) Close() error {
	return closeGorm(g.db)
}

func closeGorm(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// abandonGorm closes db after a failed setup step, keeping both errors.
func abandonGorm(db *gorm.DB, cause error) error {
	if err := closeGorm(db); err != nil {
		return errors.Join(cause, fmt.Errorf("closing postgres: %w", err))
	}
	return cause
}
