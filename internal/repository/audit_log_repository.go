package repository

import (
	"context"

	"pcbuilder/internal/domain/model"
)

// 監査ログの一覧件数
const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 200
)

// 管理画面の監査ログ絞り込み。ゼロ値の項目は条件にしない
type AuditLogFilter struct {
	ActorUserID  int64
	Action       model.AuditAction
	ResourceType model.AuditResourceType
	ResourceID   int64
	Limit        int
	Offset       int
}

// 在庫変更・商品の作成/更新/削除・ロール変更の記録
type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	// 新しい順
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
