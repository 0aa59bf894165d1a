package repository

import (
	"context"
	"vkozyrev/photocaption/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PhotoRepository interface {
	Upsert(ctx context.Context, record *model.PhotoRecord) error
	Find(ctx context.Context, filters map[string]interface{}) ([]model.PhotoRecord, error)
}

type photoRepository struct {
	db *gorm.DB
}

func NewPhotoRepository(db *gorm.DB) PhotoRepository {
	return &photoRepository{db: db}
}

// Upsert writes one record per image name. Replaying the same write after
// a failure updates the existing row instead of inserting a duplicate.
func (r *photoRepository) Upsert(ctx context.Context, record *model.PhotoRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"url", "user", "timestamp", "title", "description"}),
	}).Create(record).Error
}

// Find runs a conjunctive equality query. Result order is whatever the
// store returns.
func (r *photoRepository) Find(ctx context.Context, filters map[string]interface{}) ([]model.PhotoRecord, error) {
	var records []model.PhotoRecord
	query := r.db.WithContext(ctx).Model(&model.PhotoRecord{})
	if len(filters) > 0 {
		query = query.Where(filters)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
