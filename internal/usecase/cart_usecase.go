package usecase

import (
	"context"
	"errors"
	"net/http"

	"pcbuilder/internal/cart"
	"pcbuilder/internal/domain/model"
	repo "pcbuilder/internal/repository"

	"go.uber.org/zap"
)

// チェックアウト時の通知先（未設定なら何もしない）
type CheckoutNotifier interface {
	NotifyCheckout(ctx context.Context, sessionID string, state cart.State) error
}

// CartUsecase は /cart の業務ロジックです。
// カートの中身はセッションごとのcart.Storeが持ち、ここは商品の確認と入出力の整形だけ行う
type CartUsecase struct {
	carts       *cart.Registry
	productRepo repo.ProductRepository
	notifier    CheckoutNotifier
	log         *zap.Logger
}

// DI
func NewCartUsecase(
	carts *cart.Registry,
	productRepo repo.ProductRepository,
	notifier CheckoutNotifier,
	log *zap.Logger,
) *CartUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartUsecase{
		carts:       carts,
		productRepo: productRepo,
		notifier:    notifier,
		log:         log,
	}
}

type CheckoutOutput struct {
	Message string          `json:"message"`
	Items   []cart.LineItem `json:"items"`
	Total   int64           `json:"total"`
}

func (u *CartUsecase) GetCart(ctx context.Context, sessionID string) (cart.State, error) {
	if sessionID == "" {
		return cart.State{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}
	store, err := u.store(ctx, sessionID)
	if err != nil {
		return cart.State{}, err
	}
	return store.Snapshot(), nil
}

// AddToCart は公開中の商品を1個追加する（同一商品は数量+1）。
func (u *CartUsecase) AddToCart(ctx context.Context, sessionID string, productID int64) (cart.State, error) {
	if sessionID == "" {
		return cart.State{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}
	if productID <= 0 {
		return cart.State{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	// 商品チェック（公開のみ）
	p, err := u.productRepo.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return cart.State{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return cart.State{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive {
		return cart.State{}, NewHTTPError(http.StatusNotFound, "product not found")
	}

	store, err := u.store(ctx, sessionID)
	if err != nil {
		return cart.State{}, err
	}
	if err := u.add(ctx, sessionID, store, p); err != nil {
		return cart.State{}, err
	}
	return store.Snapshot(), nil
}

// まとめて追加する（ビルダー・保存した見積もりから使う）
func (u *CartUsecase) AddProducts(ctx context.Context, sessionID string, products []model.Product) (cart.State, error) {
	if sessionID == "" {
		return cart.State{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}

	store, err := u.store(ctx, sessionID)
	if err != nil {
		return cart.State{}, err
	}
	for _, p := range products {
		if err := u.add(ctx, sessionID, store, p); err != nil {
			return cart.State{}, err
		}
	}
	return store.Snapshot(), nil
}

func (u *CartUsecase) RemoveItem(ctx context.Context, sessionID string, productID int64) (cart.State, error) {
	if sessionID == "" {
		return cart.State{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}

	store, err := u.store(ctx, sessionID)
	if err != nil {
		return cart.State{}, err
	}
	if err := store.RemoveItem(ctx, productID); err != nil {
		u.logSaveError(sessionID, err)
	}
	return store.Snapshot(), nil
}

func (u *CartUsecase) Clear(ctx context.Context, sessionID string) (cart.State, error) {
	if sessionID == "" {
		return cart.State{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}

	store, err := u.store(ctx, sessionID)
	if err != nil {
		return cart.State{}, err
	}
	if err := store.Clear(ctx); err != nil {
		u.logSaveError(sessionID, err)
	}
	return store.Snapshot(), nil
}

// パネルの開閉（保存はしない）
func (u *CartUsecase) SetOpen(ctx context.Context, sessionID string, open bool) (cart.State, error) {
	if sessionID == "" {
		return cart.State{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}

	store, err := u.store(ctx, sessionID)
	if err != nil {
		return cart.State{}, err
	}
	store.SetOpen(open)
	return store.Snapshot(), nil
}

// Checkout は受付メッセージを返すだけ。注文・決済は作らず、カートも空にしない
func (u *CartUsecase) Checkout(ctx context.Context, sessionID string) (CheckoutOutput, error) {
	if sessionID == "" {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "missing cart session")
	}

	store, err := u.store(ctx, sessionID)
	if err != nil {
		return CheckoutOutput{}, err
	}
	state := store.Snapshot()
	if len(state.Items) == 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "cart is empty")
	}

	if u.notifier != nil {
		if err := u.notifier.NotifyCheckout(ctx, sessionID, state); err != nil {
			u.log.Warn("checkout notify failed", zap.String("cart_session", sessionID), zap.Error(err))
		}
	}

	return CheckoutOutput{
		Message: "Thank you for your purchase!",
		Items:   state.Items,
		Total:   state.Total,
	}, nil
}

// 保存先から読めないときは空のカートで上書きしないよう503で止める
func (u *CartUsecase) store(ctx context.Context, sessionID string) (*cart.Store, error) {
	s, err := u.carts.Get(ctx, sessionID)
	if err != nil {
		u.log.Error("cart load failed", zap.String("cart_session", sessionID), zap.Error(err))
		return nil, NewHTTPError(http.StatusServiceUnavailable, "cart unavailable")
	}
	return s, nil
}

func (u *CartUsecase) add(ctx context.Context, sessionID string, store *cart.Store, p model.Product) error {
	err := store.AddItem(ctx, cart.Product{ID: p.ID, Name: p.Name, Price: p.Price})
	if errors.Is(err, cart.ErrInvalidProduct) {
		return NewHTTPError(http.StatusBadRequest, "invalid product")
	}
	// 保存失敗はメモリ上の変更を残したままログだけ出す
	if err != nil {
		u.logSaveError(sessionID, err)
	}
	return nil
}

func (u *CartUsecase) logSaveError(sessionID string, err error) {
	u.log.Error("cart save failed", zap.String("cart_session", sessionID), zap.Error(err))
}
