package model

import (
	"strings"
	"time"
)

// 在庫更新、ロール変更など。
type AuditAction string

const (
	//在庫を更新した操作。
	AuditActionUpdateStock AuditAction = "UPDATE_STOCK"
	//商品の作成・更新・削除。
	AuditActionCreateProduct AuditAction = "CREATE_PRODUCT"
	AuditActionUpdateProduct AuditAction = "UPDATE_PRODUCT"
	AuditActionDeleteProduct AuditAction = "DELETE_PRODUCT"
	//ユーザーのロールを変えた操作。
	AuditActionChangeRole AuditAction = "CHANGE_ROLE"
)

// 何に対する操作か
type AuditResourceType string

const (
	//商品に対する操作。
	AuditResourceProduct AuditResourceType = "product"

	//ユーザーに対する操作。
	AuditResourceUser AuditResourceType = "user"
)

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザー（管理者・モデレーター）のID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`
	AfterJSON  string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

var auditActions = []AuditAction{
	AuditActionUpdateStock,
	AuditActionCreateProduct,
	AuditActionUpdateProduct,
	AuditActionDeleteProduct,
	AuditActionChangeRole,
}

// ParseAuditAction はクエリの表記（update_stock など）を読む
func ParseAuditAction(s string) (AuditAction, bool) {
	for _, a := range auditActions {
		if strings.EqualFold(string(a), strings.TrimSpace(s)) {
			return a, true
		}
	}
	return "", false
}

func ParseAuditResourceType(s string) (AuditResourceType, bool) {
	switch AuditResourceType(strings.ToLower(strings.TrimSpace(s))) {
	case AuditResourceProduct:
		return AuditResourceProduct, true
	case AuditResourceUser:
		return AuditResourceUser, true
	}
	return "", false
}
