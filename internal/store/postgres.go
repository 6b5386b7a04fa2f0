// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tomtom215/villasync/internal/config"
	"github.com/tomtom215/villasync/internal/logging"
	"github.com/tomtom215/villasync/internal/models"
)

// Postgres is the gorm-backed Store shared by every service instance.
type Postgres struct {
	db *gorm.DB
}

// OpenPostgres connects to PostgreSQL, optionally migrates the schema and
// makes sure the singleton sync state row exists.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, &models.ConfigurationError{Setting: "DATABASE_URL"}
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.New(gormWriter{}, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &Postgres{db: db}

	if cfg.AutoMigrate {
		if err := s.migrate(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	if err := s.ensureSyncState(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logging.Info().Bool("auto_migrate", cfg.AutoMigrate).Msg("Connected to PostgreSQL")
	return s, nil
}

func (s *Postgres) migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&models.Property{},
		&models.SyncState{},
		&models.BookingRequest{},
		&models.Reservation{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (s *Postgres) ensureSyncState(ctx context.Context) error {
	row := &models.SyncState{ID: models.SyncStateID, RateLimitRemaining: defaultRateLimitBudget}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
	if err != nil {
		return persistErr("ensure sync state", err)
	}
	return nil
}

func (s *Postgres) GetPropertyHash(ctx context.Context, id string) (string, bool, error) {
	var p models.Property
	res := s.db.WithContext(ctx).Select("data_hash").Where("id = ?", id).Limit(1).Find(&p)
	if res.Error != nil {
		return "", false, persistErr("read property hash", res.Error)
	}
	if res.RowsAffected == 0 {
		return "", false, nil
	}
	return p.DataHash, true, nil
}

func (s *Postgres) UpsertProperty(ctx context.Context, p *models.Property) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(p).Error
	if err != nil {
		return persistErr("upsert property", err)
	}
	return nil
}

func (s *Postgres) GetActiveProperty(ctx context.Context, id string) (*models.Property, error) {
	var p models.Property
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &models.NotFoundError{Resource: "property", ID: id}
	}
	if err != nil {
		return nil, persistErr("read property", err)
	}
	return &p, nil
}

func (s *Postgres) ListActiveProperties(ctx context.Context) ([]*models.Property, error) {
	var out []*models.Property
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("title, id").Find(&out).Error
	if err != nil {
		return nil, persistErr("list properties", err)
	}
	return out, nil
}

// TryAcquireSync is one conditional UPDATE; RowsAffected decides the winner.
func (s *Postgres) TryAcquireSync(ctx context.Context, now time.Time) (*models.SyncState, bool, error) {
	res := s.db.WithContext(ctx).Model(&models.SyncState{}).
		Where("id = ? AND running = ? AND (backoff_until IS NULL OR backoff_until < ?)", models.SyncStateID, false, now).
		Updates(map[string]interface{}{"running": true, "updated_at": now})
	if res.Error != nil {
		return nil, false, persistErr("acquire sync lock", res.Error)
	}

	state, err := s.GetSyncState(ctx)
	if err != nil {
		return nil, false, err
	}
	return state, res.RowsAffected == 1, nil
}

func (s *Postgres) ReleaseSync(ctx context.Context) error {
	return s.updateSyncState(ctx, "release sync lock", map[string]interface{}{
		"running":    false,
		"updated_at": time.Now(),
	})
}

func (s *Postgres) CompleteSync(ctx context.Context, at time.Time, rateLimitRemaining int) error {
	return s.updateSyncState(ctx, "complete sync", map[string]interface{}{
		"last_full_sync_at":    at,
		"running":              false,
		"backoff_until":        nil,
		"last_error":           nil,
		"rate_limit_remaining": rateLimitRemaining,
		"updated_at":           at,
	})
}

func (s *Postgres) FailSync(ctx context.Context, backoffUntil time.Time, lastError string) error {
	return s.updateSyncState(ctx, "record sync failure", map[string]interface{}{
		"running":       false,
		"backoff_until": backoffUntil,
		"last_error":    lastError,
		"updated_at":    time.Now(),
	})
}

func (s *Postgres) updateSyncState(ctx context.Context, op string, values map[string]interface{}) error {
	err := s.db.WithContext(ctx).Model(&models.SyncState{}).
		Where("id = ?", models.SyncStateID).
		Updates(values).Error
	if err != nil {
		return persistErr(op, err)
	}
	return nil
}

func (s *Postgres) GetSyncState(ctx context.Context) (*models.SyncState, error) {
	var state models.SyncState
	err := s.db.WithContext(ctx).Where("id = ?", models.SyncStateID).Take(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &models.NotFoundError{Resource: "sync state", ID: "1"}
	}
	if err != nil {
		return nil, persistErr("read sync state", err)
	}
	return &state, nil
}

func (s *Postgres) CreateBooking(ctx context.Context, b *models.BookingRequest) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return persistErr("insert booking request", err)
	}
	return nil
}

func (s *Postgres) MarkBookingSent(ctx context.Context, id, guestyBookingID string) error {
	return s.transitionBooking(ctx, id, map[string]interface{}{
		"status":            models.BookingSentToGuesty,
		"guesty_booking_id": guestyBookingID,
		"updated_at":        time.Now().UTC(),
	})
}

func (s *Postgres) MarkBookingFailed(ctx context.Context, id, specialRequests string) error {
	return s.transitionBooking(ctx, id, map[string]interface{}{
		"status":           models.BookingGuestyFailed,
		"special_requests": specialRequests,
		"updated_at":       time.Now().UTC(),
	})
}

// transitionBooking only updates rows that are still pending.
func (s *Postgres) transitionBooking(ctx context.Context, id string, values map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.BookingRequest{}).
		Where("id = ? AND status = ?", id, models.BookingPending).
		Updates(values)
	if res.Error != nil {
		return persistErr("update booking status", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.BookingRequest{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return persistErr("read booking request", err)
	}
	if count == 0 {
		return &models.NotFoundError{Resource: "booking request", ID: id}
	}
	return models.ErrInvalidTransition
}

func (s *Postgres) GetBooking(ctx context.Context, id string) (*models.BookingRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &models.NotFoundError{Resource: "booking request", ID: id}
	}

	var b models.BookingRequest
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &models.NotFoundError{Resource: "booking request", ID: id}
	}
	if err != nil {
		return nil, persistErr("read booking request", err)
	}
	return &b, nil
}

func (s *Postgres) UpsertReservation(ctx context.Context, r *models.Reservation) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Reservation
		res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("guesty_booking_id = ?", r.GuestyBookingID).
			Limit(1).Find(&existing)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			if r.ID == "" {
				r.ID = uuid.NewString()
			}
			created = true
			return tx.Create(r).Error
		}

		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
		return tx.Save(r).Error
	})
	if err != nil {
		return false, persistErr("upsert reservation", err)
	}
	return created, nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return persistErr("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return persistErr("ping", err)
	}
	return nil
}

func (s *Postgres) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// gormWriter routes gorm's slow-query and error lines through zerolog.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	l := logging.WithComponent("store")
	l.Warn().Msgf(format, args...)
}
