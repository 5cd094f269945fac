// Package setting stores named JSON documents in the settings table.
package setting

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spacehome/spacehome/internal/db/models"
)

const (
	nameQueryPattern = "name = ?"
)

var (
	// ErrSettingNotFound is returned when a setting is not found.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrSettingNameEmpty is returned when attempting to read or write a setting with an empty name.
	ErrSettingNameEmpty = errors.New("setting name cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a setting by its name.
func Get(ctx context.Context, db *gorm.DB, name string) (*models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	var setting models.Setting

	result := db.WithContext(ctx).Where(nameQueryPattern, name).First(&setting)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}

		return nil, result.Error
	}

	return &setting, nil
}

// Set creates or replaces a setting in one INSERT .. ON CONFLICT statement.
func Set(ctx context.Context, db *gorm.DB, name string, value []byte) error {
	return write(ctx, db, name, value, clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	})
}

// CreateIfAbsent inserts the setting unless a row with that name already exists.
// Concurrent callers race safely: the first insert wins, the others are no-ops.
func CreateIfAbsent(ctx context.Context, db *gorm.DB, name string, value []byte) error {
	return write(ctx, db, name, value, clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	})
}

func write(ctx context.Context, db *gorm.DB, name string, value []byte, onConflict clause.OnConflict) error {
	if db == nil {
		return ErrDBNil
	}

	if name == "" {
		return ErrSettingNameEmpty
	}

	setting := &models.Setting{
		Name:      name,
		Value:     value,
		UpdatedAt: time.Now(),
	}

	return db.WithContext(ctx).Clauses(onConflict).Create(setting).Error
}

// DeleteByName deletes a setting by name.
func DeleteByName(ctx context.Context, db *gorm.DB, name string) error {
	if db == nil {
		return ErrDBNil
	}

	if name == "" {
		return ErrSettingNameEmpty
	}

	result := db.WithContext(ctx).Where(nameQueryPattern, name).Delete(&models.Setting{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrSettingNotFound
	}

	return nil
}
