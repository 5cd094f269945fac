// Package comment provides the comment board queries.
package comment

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/spacehome/spacehome/internal/db/models"
)

// ListLimit bounds a listing.
const ListLimit = 100

var (
	// ErrCommentNotFound is returned when no comment has the given id.
	ErrCommentNotFound = errors.New("comment not found")
	// ErrCommentIDEmpty is returned for an empty id.
	ErrCommentIDEmpty = errors.New("comment id cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// List returns up to ListLimit comments, pinned first, newest first.
func List(ctx context.Context, db *gorm.DB) ([]models.Comment, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	comments := make([]models.Comment, 0)

	result := db.WithContext(ctx).
		Order("pinned DESC").
		Order("created_at DESC").
		Limit(ListLimit).
		Find(&comments)
	if result.Error != nil {
		return nil, result.Error
	}

	return comments, nil
}

// Create stores c and fills in its id and creation time.
func Create(ctx context.Context, db *gorm.DB, c *models.Comment) error {
	if db == nil {
		return ErrDBNil
	}

	return db.WithContext(ctx).Create(c).Error
}

// SetPinned updates the pinned flag and returns the updated comment.
func SetPinned(ctx context.Context, db *gorm.DB, id string, pinned bool) (*models.Comment, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if id == "" {
		return nil, ErrCommentIDEmpty
	}

	result := db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Update("pinned", pinned)
	if result.Error != nil {
		return nil, result.Error
	}

	// RowsAffected is 0 on MySQL when the value did not change, so look the row up
	var c models.Comment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}

		return nil, err
	}

	return &c, nil
}

// Delete removes the comment with id.
func Delete(ctx context.Context, db *gorm.DB, id string) error {
	if db == nil {
		return ErrDBNil
	}

	if id == "" {
		return ErrCommentIDEmpty
	}

	result := db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrCommentNotFound
	}

	return nil
}
