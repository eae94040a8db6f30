package repository

import (
	"context"
	"errors"

	"pcbuilder/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category model.Category
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	// 公開中の商品を全件（ビルダーの選択肢・AIの名前照合に使う）
	ListActive(ctx context.Context) ([]model.Product, error)
	// 管理画面用、非公開も含めてID順
	ListAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error

	// 在庫をdelta分増減する（0未満にはしない）。変更前後の在庫を返す
	AdjustStock(ctx context.Context, id int64, delta int64) (before int64, after int64, err error)
}
