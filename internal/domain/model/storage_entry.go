package model

import "time"

// カートなどをJSONのまま保存するkey/value
type StorageEntry struct {
	Key       string    `gorm:"type:varchar(255);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
