package model

import "time"

// 保存した見積もり（PC構成）。部品は商品IDで持ち、未選択はnil
type SavedBuild struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CPUID     *int64    `gorm:"column:cpu_id" json:"cpu_id"`
	GPUID     *int64    `gorm:"column:gpu_id" json:"gpu_id"`
	MoboID    *int64    `gorm:"column:mobo_id" json:"mobo_id"`
	RAMID     *int64    `gorm:"column:ram_id" json:"ram_id"`
	StorageID *int64    `gorm:"column:storage_id" json:"storage_id"`
	PSUID     *int64    `gorm:"column:psu_id" json:"psu_id"`
	CaseID    *int64    `gorm:"column:case_id" json:"case_id"`
	Total     int64     `gorm:"not null" json:"total"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
