package repository

import (
	"context"
	"errors"

	"pcbuilder/internal/domain/model"
	repo "pcbuilder/internal/repository"

	"gorm.io/gorm"
)

type SavedBuildGormRepository struct {
	db *gorm.DB
}

var _ repo.SavedBuildRepository = (*SavedBuildGormRepository)(nil)

// DI
func NewSavedBuildGormRepository(db *gorm.DB) *SavedBuildGormRepository {
	return &SavedBuildGormRepository{db: db}
}

func (r *SavedBuildGormRepository) Create(ctx context.Context, b model.SavedBuild) error {
	return r.db.WithContext(ctx).Create(&b).Error
}

func (r *SavedBuildGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.SavedBuild, error) {
	builds := []model.SavedBuild{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&builds).Error
	if err != nil {
		return []model.SavedBuild{}, err
	}
	return builds, nil
}

func (r *SavedBuildGormRepository) FindOwned(ctx context.Context, buildID string, userID int64) (model.SavedBuild, error) {
	var b model.SavedBuild
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", buildID, userID).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.SavedBuild{}, repo.ErrNotFound
	}
	if err != nil {
		return model.SavedBuild{}, err
	}
	return b, nil
}

func (r *SavedBuildGormRepository) DeleteOwned(ctx context.Context, buildID string, userID int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", buildID, userID).
		Delete(&model.SavedBuild{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
