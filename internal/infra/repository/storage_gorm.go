package repository

import (
	"context"
	"errors"
	"time"

	"pcbuilder/internal/cart"
	"pcbuilder/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// storage_entriesテーブルをcart.Storageとして使う
type StorageGormRepository struct {
	db *gorm.DB
}

var _ cart.Storage = (*StorageGormRepository)(nil)

// DI
func NewStorageGormRepository(db *gorm.DB) *StorageGormRepository {
	return &StorageGormRepository{db: db}
}

func (r *StorageGormRepository) Load(ctx context.Context, key string) ([]byte, error) {
	var e model.StorageEntry
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cart.ErrNoData
	}
	if err != nil {
		return nil, err
	}
	return []byte(e.Value), nil
}

// 同じキーは上書き
func (r *StorageGormRepository) Save(ctx context.Context, key string, data []byte) error {
	e := model.StorageEntry{
		Key:       key,
		Value:     string(data),
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
}
