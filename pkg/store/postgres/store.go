package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pcmindustrial/pcm/pkg/config"
	"github.com/pcmindustrial/pcm/pkg/model"
	"github.com/pcmindustrial/pcm/pkg/scope"
)

// ErrVersionConflict means the call changed under a concurrent actor between
// read and write. The caller should re-read and retry the command.
var ErrVersionConflict = errors.New("call was modified concurrently")

type Store struct {
	db *gorm.DB
}

func NewStore(cfg *config.DatabaseConfig) (*Store, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	return &Store{db: db}, nil
}

func (s *Store) DB() *gorm.DB {
	if s == nil {
		return nil
	}
	return s.db
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&model.Company{},
		&model.Plant{},
		&model.Team{},
		&model.User{},
		&model.Equipment{},
		&model.FailureRecord{},
		&model.MaintenanceCall{},
		&model.CallEvent{},
		&model.AlertRule{},
		&model.Notification{},
		&model.PermissionGrant{},
	)
}

type CallRepository struct {
	db *gorm.DB
}

func NewCallRepository(db *gorm.DB) *CallRepository {
	return &CallRepository{db: db}
}

// Create persists a freshly opened call together with its seed event.
func (r *CallRepository) Create(ctx context.Context, call *model.MaintenanceCall) error {
	return r.db.WithContext(ctx).Create(call).Error
}

func (r *CallRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.MaintenanceCall, error) {
	var call model.MaintenanceCall
	err := r.db.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Responsible").
		Preload("Equipment").
		First(&call, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &call, nil
}

func (r *CallRepository) List(ctx context.Context, sc scope.Scope, status *model.CallStatus, limit, offset int) ([]model.MaintenanceCall, int64, error) {
	if sc.Empty() {
		return []model.MaintenanceCall{}, 0, nil
	}

	query := r.db.WithContext(ctx).Model(&model.MaintenanceCall{})
	if !sc.All {
		query = query.Where("plant_id IN ?", sc.PlantIDs)
	}
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var calls []model.MaintenanceCall
	err := query.
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Responsible").
		Order("opened_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&calls).Error

	return calls, total, err
}

// ListScoped loads every visible call with its responsible user and
// equipment, for the analytics snapshot and report export.
func (r *CallRepository) ListScoped(ctx context.Context, sc scope.Scope) ([]model.MaintenanceCall, error) {
	if sc.Empty() {
		return []model.MaintenanceCall{}, nil
	}
	query := r.db.WithContext(ctx).Model(&model.MaintenanceCall{})
	if !sc.All {
		query = query.Where("plant_id IN ?", sc.PlantIDs)
	}
	var calls []model.MaintenanceCall
	err := query.Preload("Responsible").Preload("Equipment").Order("opened_at DESC").Find(&calls).Error
	return calls, err
}

// SaveTransition writes the mutated lifecycle fields guarded by the version
// stamp the call was read at, and appends the new events in the same
// transaction. On success the in-memory version is bumped to match.
func (r *CallRepository) SaveTransition(ctx context.Context, call *model.MaintenanceCall, newEvents []model.CallEvent) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":         call.Status,
			"responsible_id": call.ResponsibleID,
			"assigned_at":    call.AssignedAt,
			"resolved_at":    call.ResolvedAt,
			"approved_at":    call.ApprovedAt,
			"closed_at":      call.ClosedAt,
			"version":        call.Version + 1,
			"updated_at":     time.Now().UTC(),
		}
		result := tx.Model(&model.MaintenanceCall{}).
			Where("id = ? AND version = ?", call.ID, call.Version).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrVersionConflict
		}
		if len(newEvents) > 0 {
			if err := tx.Create(&newEvents).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	call.Version++
	return nil
}

// CountAll reports whether the store has been seeded yet.
func (r *CallRepository) CountAll(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.MaintenanceCall{}).Count(&total).Error
	return total, err
}
