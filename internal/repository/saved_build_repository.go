package repository

import (
	"context"

	"pcbuilder/internal/domain/model"
)

// 保存した見積もりの窓口
type SavedBuildRepository interface {
	Create(ctx context.Context, b model.SavedBuild) error
	// 新しい順
	ListByUserID(ctx context.Context, userID int64) ([]model.SavedBuild, error)
	// 本人のものだけ取得（他人のものはErrNotFound）
	FindOwned(ctx context.Context, buildID string, userID int64) (model.SavedBuild, error)
	// 本人のものだけ削除（他人のもの・無いものはErrNotFound）
	DeleteOwned(ctx context.Context, buildID string, userID int64) error
}
