package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pcbuilder/internal/advisor"
	"pcbuilder/internal/domain/model"
	repo "pcbuilder/internal/repository"

	"go.uber.org/zap"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

type ProductUsecase struct {
	productRepo repo.ProductRepository
	auditRepo   repo.AuditLogRepository
	advisor     advisor.Advisor
	log         *zap.Logger
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	auditRepo repo.AuditLogRepository,
	adv advisor.Advisor,
	log *zap.Logger,
) *ProductUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductUsecase{
		productRepo: productRepo,
		auditRepo:   auditRepo,
		advisor:     adv,
		log:         log,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	Category string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.MinPrice != nil && *in.MinPrice < 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be >= 0")
	}
	if in.MaxPrice != nil && *in.MaxPrice < 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	// "all"と空はカテゴリ指定なし
	var category model.Category
	if c := strings.TrimSpace(in.Category); c != "" && !strings.EqualFold(c, "all") {
		parsed, ok := model.ParseCategory(c)
		if !ok {
			return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid category")
		}
		category = parsed
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Q:        strings.TrimSpace(in.Q),
		Category: category,
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Sort:     in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if !p.IsActive {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return p, nil
}

type ProductDescriptionOutput struct {
	ProductID   int64  `json:"product_id"`
	Description string `json:"description"`
	Generated   bool   `json:"generated"`
}

// 登録済みの説明があればそれを、無ければAIに書かせる。
// AIが失敗しても説明が空になるだけでエラーにはしない
func (u *ProductUsecase) DescribeProduct(ctx context.Context, productID int64) (ProductDescriptionOutput, error) {
	p, err := u.GetProductDetail(ctx, productID)
	if err != nil {
		return ProductDescriptionOutput{}, err
	}

	out := ProductDescriptionOutput{ProductID: p.ID}
	if strings.TrimSpace(p.Description) != "" {
		out.Description = p.Description
		return out, nil
	}
	if u.advisor == nil {
		return out, nil
	}

	desc, err := u.advisor.Describe(ctx, p.Name, string(p.Category))
	if err != nil {
		u.log.Warn("describe product failed", zap.Int64("product_id", p.ID), zap.Error(err))
		return out, nil
	}
	out.Description = strings.TrimSpace(desc)
	out.Generated = out.Description != ""
	return out, nil
}

// 管理画面用（非公開も含む）
func (u *ProductUsecase) AdminListProducts(ctx context.Context) ([]model.Product, error) {
	items, err := u.productRepo.ListAll(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

type AdminProductInput struct {
	Name        string
	Description string
	Category    string
	Price       int64
	Stock       int64
	ImageURL    string
	IsActive    bool
}

func (in AdminProductInput) validate() (model.Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", NewHTTPError(http.StatusBadRequest, "name required")
	}
	cat, ok := model.ParseCategory(in.Category)
	if !ok {
		return "", NewHTTPError(http.StatusBadRequest, "invalid category")
	}
	if in.Price < 0 {
		return "", NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	if in.Stock < 0 {
		return "", NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	return cat, nil
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, actorUserID int64, in AdminProductInput) (int64, error) {
	if actorUserID <= 0 {
		return 0, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	cat, err := in.validate()
	if err != nil {
		return 0, err
	}

	p, err := u.productRepo.Create(ctx, model.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Category:    cat,
		Price:       in.Price,
		Stock:       in.Stock,
		ImageURL:    strings.TrimSpace(in.ImageURL),
		IsActive:    in.IsActive,
	})
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.audit(ctx, actorUserID, model.AuditActionCreateProduct, p.ID, nil, productSnapshot(p)); err != nil {
		return 0, err
	}
	return p.ID, nil
}

func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, actorUserID int64, productID int64, in AdminProductInput) error {
	if actorUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	cat, err := in.validate()
	if err != nil {
		return err
	}

	before, err := u.productRepo.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	after := model.Product{
		ID:          productID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Category:    cat,
		Price:       in.Price,
		Stock:       in.Stock,
		ImageURL:    strings.TrimSpace(in.ImageURL),
		IsActive:    in.IsActive,
	}
	err = u.productRepo.Update(ctx, after)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.audit(ctx, actorUserID, model.AuditActionUpdateProduct, productID, productSnapshot(before), productSnapshot(after))
}

func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, actorUserID int64, productID int64) error {
	if actorUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	err := u.productRepo.SoftDelete(ctx, productID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.audit(ctx, actorUserID, model.AuditActionDeleteProduct, productID, nil, nil)
}

type StockOutput struct {
	ProductID int64 `json:"product_id"`
	Before    int64 `json:"before"`
	After     int64 `json:"after"`
}

// 在庫をdelta分だけ増減する。結果が0未満なら0にそろえる
func (u *ProductUsecase) AdminAdjustStock(ctx context.Context, actorUserID int64, productID int64, delta int64) (StockOutput, error) {
	if actorUserID <= 0 {
		return StockOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return StockOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if delta == 0 {
		return StockOutput{}, NewHTTPError(http.StatusBadRequest, "delta must not be 0")
	}

	before, after, err := u.productRepo.AdjustStock(ctx, productID, delta)
	if err == repo.ErrNotFound {
		return StockOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return StockOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//監査ログを作成（在庫更新）
	if err := u.audit(ctx, actorUserID, model.AuditActionUpdateStock, productID,
		map[string]int64{"stock": before},
		map[string]int64{"stock": after, "delta": delta},
	); err != nil {
		return StockOutput{}, err
	}

	return StockOutput{ProductID: productID, Before: before, After: after}, nil
}

// 空・0の項目は絞り込まない
type ListAuditLogsInput struct {
	Action       string
	ResourceType string
	ResourceID   int64
	ActorUserID  int64
	Limit        int
	Offset       int
}

func (u *ProductUsecase) ListAuditLogs(ctx context.Context, in ListAuditLogsInput) ([]model.AuditLog, error) {
	if in.Limit < 0 || in.Limit > repo.MaxAuditLimit {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if in.Offset < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid offset")
	}
	if in.ResourceID < 0 || in.ActorUserID < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	f := repo.AuditLogFilter{
		ActorUserID: in.ActorUserID,
		ResourceID:  in.ResourceID,
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	if in.Action != "" {
		action, ok := model.ParseAuditAction(in.Action)
		if !ok {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid action")
		}
		f.Action = action
	}
	if in.ResourceType != "" {
		rt, ok := model.ParseAuditResourceType(in.ResourceType)
		if !ok {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid resource_type")
		}
		f.ResourceType = rt
	}

	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return logs, nil
}

// 「誰が」「何を」「どの対象に」「どう変えたか」を残す
func (u *ProductUsecase) audit(ctx context.Context, actorID int64, action model.AuditAction, productID int64, before, after interface{}) error {
	entry := model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   productID,
		BeforeJSON:   toJSON(before),
		AfterJSON:    toJSON(after),
		CreatedAt:    time.Now(),
	}
	if err := u.auditRepo.Create(ctx, entry); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func productSnapshot(p model.Product) map[string]interface{} {
	return map[string]interface{}{
		"name":      p.Name,
		"category":  p.Category,
		"price":     p.Price,
		"stock":     p.Stock,
		"is_active": p.IsActive,
	}
}

// nilは空文字
func toJSON(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
