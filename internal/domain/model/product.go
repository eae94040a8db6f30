package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// 商品カテゴリ
type Category string

const (
	CategoryCPU         Category = "CPU"
	CategoryGPU         Category = "GPU"
	CategoryMotherboard Category = "Motherboard"
	CategoryRAM         Category = "RAM"
	CategoryStorage     Category = "Storage"
	CategoryPSU         Category = "PSU"
	CategoryCase        Category = "Case"
)

var Categories = []Category{
	CategoryCPU,
	CategoryGPU,
	CategoryMotherboard,
	CategoryRAM,
	CategoryStorage,
	CategoryPSU,
	CategoryCase,
}

// ParseCategory はURLの表記ゆれ（gpu, motherboard など）を吸収する
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

type Product struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Category    Category       `gorm:"type:varchar(30);not null;index" json:"category"`
	Price       int64          `gorm:"not null" json:"price"`
	Stock       int64          `gorm:"not null" json:"stock"`
	ImageURL    string         `gorm:"type:varchar(512)" json:"image_url"`
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
