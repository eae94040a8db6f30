package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pcbuilder/internal/advisor"
	"pcbuilder/internal/cart"
	"pcbuilder/internal/compat"
	"pcbuilder/internal/domain/model"
	repo "pcbuilder/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 構成のスロット
type Slot string

const (
	SlotCPU     Slot = "cpu"
	SlotMobo    Slot = "mobo"
	SlotRAM     Slot = "ram"
	SlotGPU     Slot = "gpu"
	SlotStorage Slot = "storage"
	SlotPSU     Slot = "psu"
	SlotCase    Slot = "case"
)

// 表示・カート投入の順番
var slotOrder = []Slot{SlotCPU, SlotMobo, SlotRAM, SlotGPU, SlotStorage, SlotPSU, SlotCase}

var slotCategory = map[Slot]model.Category{
	SlotCPU:     model.CategoryCPU,
	SlotMobo:    model.CategoryMotherboard,
	SlotRAM:     model.CategoryRAM,
	SlotGPU:     model.CategoryGPU,
	SlotStorage: model.CategoryStorage,
	SlotPSU:     model.CategoryPSU,
	SlotCase:    model.CategoryCase,
}

const defaultBuildName = "My AI PC"

// スロットごとの商品ID（未選択はnil）
type BuildSelection struct {
	CPU     *int64 `json:"cpu"`
	Mobo    *int64 `json:"mobo"`
	RAM     *int64 `json:"ram"`
	GPU     *int64 `json:"gpu"`
	Storage *int64 `json:"storage"`
	PSU     *int64 `json:"psu"`
	Case    *int64 `json:"case"`
}

func (s BuildSelection) get(slot Slot) *int64 {
	switch slot {
	case SlotCPU:
		return s.CPU
	case SlotMobo:
		return s.Mobo
	case SlotRAM:
		return s.RAM
	case SlotGPU:
		return s.GPU
	case SlotStorage:
		return s.Storage
	case SlotPSU:
		return s.PSU
	case SlotCase:
		return s.Case
	}
	return nil
}

func (s *BuildSelection) set(slot Slot, id *int64) {
	switch slot {
	case SlotCPU:
		s.CPU = id
	case SlotMobo:
		s.Mobo = id
	case SlotRAM:
		s.RAM = id
	case SlotGPU:
		s.GPU = id
	case SlotStorage:
		s.Storage = id
	case SlotPSU:
		s.PSU = id
	case SlotCase:
		s.Case = id
	}
}

func (s BuildSelection) ids() []int64 {
	ids := make([]int64, 0, len(slotOrder))
	for _, slot := range slotOrder {
		if id := s.get(slot); id != nil {
			ids = append(ids, *id)
		}
	}
	return ids
}

type BuildPart struct {
	Slot    Slot          `json:"slot"`
	Product model.Product `json:"product"`
}

type BuildCheckOutput struct {
	Parts         []BuildPart     `json:"parts"`
	Total         int64           `json:"total"`
	Compatibility *compat.Verdict `json:"compatibility"`
}

type BuildChatOutput struct {
	Reply     string          `json:"reply"`
	Selection BuildSelection  `json:"selection"`
	Parts     []BuildPart     `json:"parts"`
	Total     int64           `json:"total"`
	Compat    *compat.Verdict `json:"compatibility"`
}

type SaveBuildInput struct {
	Name      string
	Selection BuildSelection
}

type SavedBuildDTO struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Total     int64       `json:"total"`
	Parts     []BuildPart `json:"parts"`
	CreatedAt time.Time   `json:"created_at"`
}

type BuyBuildOutput struct {
	Added int        `json:"added"`
	Cart  cart.State `json:"cart"`
}

// BuilderUsecase はPCビルダー（構成チェック・AI相談・見積もり保存）の業務ロジック
type BuilderUsecase struct {
	productRepo repo.ProductRepository
	buildRepo   repo.SavedBuildRepository
	carts       *CartUsecase
	advisor     advisor.Advisor
	log         *zap.Logger

	newID func() string
	now   func() time.Time
}

// DI
func NewBuilderUsecase(
	productRepo repo.ProductRepository,
	buildRepo repo.SavedBuildRepository,
	carts *CartUsecase,
	adv advisor.Advisor,
	log *zap.Logger,
) *BuilderUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &BuilderUsecase{
		productRepo: productRepo,
		buildRepo:   buildRepo,
		carts:       carts,
		advisor:     adv,
		log:         log,
		newID:       uuid.NewString,
		now:         time.Now,
	}
}

// Check は合計金額と相性の判定を返す（相性は参考程度）
func (u *BuilderUsecase) Check(ctx context.Context, sel BuildSelection) (BuildCheckOutput, error) {
	parts, err := u.resolve(ctx, sel)
	if err != nil {
		return BuildCheckOutput{}, err
	}
	return BuildCheckOutput{
		Parts:         parts,
		Total:         sumParts(parts),
		Compatibility: compat.Check(compatParts(parts)),
	}, nil
}

// 構成の部品を全部カートに入れる
func (u *BuilderUsecase) AddBuildToCart(ctx context.Context, sessionID string, sel BuildSelection) (cart.State, error) {
	parts, err := u.resolve(ctx, sel)
	if err != nil {
		return cart.State{}, err
	}
	if len(parts) == 0 {
		return cart.State{}, NewHTTPError(http.StatusBadRequest, "build is empty")
	}
	return u.carts.AddProducts(ctx, sessionID, partProducts(parts))
}

// Chat はAIに相談し、提案された部品名を在庫の商品に当てはめる。
// 在庫に無い名前のスロットは空のまま
func (u *BuilderUsecase) Chat(ctx context.Context, message string) (BuildChatOutput, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return BuildChatOutput{}, NewHTTPError(http.StatusBadRequest, "message required")
	}
	if len(message) > 2000 {
		return BuildChatOutput{}, NewHTTPError(http.StatusBadRequest, "message too long")
	}
	if u.advisor == nil {
		return BuildChatOutput{}, NewHTTPError(http.StatusServiceUnavailable, "assistant unavailable")
	}

	inventory, err := u.productRepo.ListActive(ctx)
	if err != nil {
		return BuildChatOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	names := make([]string, 0, len(inventory))
	for _, p := range inventory {
		names = append(names, p.Name)
	}

	reply, err := u.advisor.Chat(ctx, message, names)
	if err != nil {
		u.log.Warn("assistant chat failed", zap.Error(err))
		return BuildChatOutput{}, NewHTTPError(http.StatusBadGateway, "assistant error")
	}

	out := BuildChatOutput{Reply: reply.Text, Parts: []BuildPart{}}
	if reply.Selection == nil {
		return out, nil
	}

	suggested := map[Slot]string{
		SlotCPU:     reply.Selection.CPU,
		SlotMobo:    reply.Selection.Motherboard,
		SlotRAM:     reply.Selection.RAM,
		SlotGPU:     reply.Selection.GPU,
		SlotStorage: reply.Selection.Storage,
		SlotPSU:     reply.Selection.PSU,
		SlotCase:    reply.Selection.Case,
	}
	for _, slot := range slotOrder {
		p, ok := findByName(inventory, suggested[slot])
		if !ok {
			continue
		}
		id := p.ID
		out.Selection.set(slot, &id)
		out.Parts = append(out.Parts, BuildPart{Slot: slot, Product: p})
	}
	out.Total = sumParts(out.Parts)
	out.Compat = compat.Check(compatParts(out.Parts))
	return out, nil
}

func (u *BuilderUsecase) SaveBuild(ctx context.Context, userID int64, in SaveBuildInput) (SavedBuildDTO, error) {
	if userID <= 0 {
		return SavedBuildDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = defaultBuildName
	}
	if len(name) > 100 {
		return SavedBuildDTO{}, NewHTTPError(http.StatusBadRequest, "name too long")
	}

	parts, err := u.resolve(ctx, in.Selection)
	if err != nil {
		return SavedBuildDTO{}, err
	}
	if len(parts) == 0 {
		return SavedBuildDTO{}, NewHTTPError(http.StatusBadRequest, "build is empty")
	}

	b := model.SavedBuild{
		ID:        u.newID(),
		UserID:    userID,
		Name:      name,
		CPUID:     in.Selection.CPU,
		MoboID:    in.Selection.Mobo,
		RAMID:     in.Selection.RAM,
		GPUID:     in.Selection.GPU,
		StorageID: in.Selection.Storage,
		PSUID:     in.Selection.PSU,
		CaseID:    in.Selection.Case,
		Total:     sumParts(parts),
		CreatedAt: u.now(),
	}
	if err := u.buildRepo.Create(ctx, b); err != nil {
		return SavedBuildDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return SavedBuildDTO{ID: b.ID, Name: b.Name, Total: b.Total, Parts: parts, CreatedAt: b.CreatedAt}, nil
}

// 新しい順。削除された商品のスロットは飛ばす
func (u *BuilderUsecase) ListBuilds(ctx context.Context, userID int64) ([]SavedBuildDTO, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	builds, err := u.buildRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	var ids []int64
	for _, b := range builds {
		ids = append(ids, selectionOf(b).ids()...)
	}
	byID, err := u.productsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]SavedBuildDTO, 0, len(builds))
	for _, b := range builds {
		out = append(out, SavedBuildDTO{
			ID:        b.ID,
			Name:      b.Name,
			Total:     b.Total,
			Parts:     partsOf(selectionOf(b), byID),
			CreatedAt: b.CreatedAt,
		})
	}
	return out, nil
}

func (u *BuilderUsecase) DeleteBuild(ctx context.Context, userID int64, buildID string) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if _, err := uuid.Parse(buildID); err != nil {
		return NewHTTPError(http.StatusBadRequest, "invalid build id")
	}

	err := u.buildRepo.DeleteOwned(ctx, buildID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// BuyBuild は保存した見積もりの部品を全部カートに入れる（販売終了の部品は飛ばす）
func (u *BuilderUsecase) BuyBuild(ctx context.Context, userID int64, sessionID string, buildID string) (BuyBuildOutput, error) {
	if userID <= 0 {
		return BuyBuildOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if _, err := uuid.Parse(buildID); err != nil {
		return BuyBuildOutput{}, NewHTTPError(http.StatusBadRequest, "invalid build id")
	}

	b, err := u.buildRepo.FindOwned(ctx, buildID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return BuyBuildOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return BuyBuildOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	sel := selectionOf(b)
	byID, err := u.productsByID(ctx, sel.ids())
	if err != nil {
		return BuyBuildOutput{}, err
	}

	var products []model.Product
	for _, part := range partsOf(sel, byID) {
		if part.Product.IsActive {
			products = append(products, part.Product)
		}
	}

	state, err := u.carts.AddProducts(ctx, sessionID, products)
	if err != nil {
		return BuyBuildOutput{}, err
	}
	return BuyBuildOutput{Added: len(products), Cart: state}, nil
}

// 選択されたIDを商品に解決する。無い・非公開・カテゴリ違いは400
func (u *BuilderUsecase) resolve(ctx context.Context, sel BuildSelection) ([]BuildPart, error) {
	byID, err := u.productsByID(ctx, sel.ids())
	if err != nil {
		return nil, err
	}

	parts := make([]BuildPart, 0, len(slotOrder))
	for _, slot := range slotOrder {
		id := sel.get(slot)
		if id == nil {
			continue
		}
		p, ok := byID[*id]
		if !ok || !p.IsActive {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s: product %d not found", slot, *id))
		}
		if p.Category != slotCategory[slot] {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s: product %d is not a %s", slot, *id, slotCategory[slot]))
		}
		parts = append(parts, BuildPart{Slot: slot, Product: p})
	}
	return parts, nil
}

func (u *BuilderUsecase) productsByID(ctx context.Context, ids []int64) (map[int64]model.Product, error) {
	byID := make(map[int64]model.Product, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	products, err := u.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

func selectionOf(b model.SavedBuild) BuildSelection {
	return BuildSelection{
		CPU:     b.CPUID,
		Mobo:    b.MoboID,
		RAM:     b.RAMID,
		GPU:     b.GPUID,
		Storage: b.StorageID,
		PSU:     b.PSUID,
		Case:    b.CaseID,
	}
}

func partsOf(sel BuildSelection, byID map[int64]model.Product) []BuildPart {
	parts := []BuildPart{}
	for _, slot := range slotOrder {
		id := sel.get(slot)
		if id == nil {
			continue
		}
		if p, ok := byID[*id]; ok {
			parts = append(parts, BuildPart{Slot: slot, Product: p})
		}
	}
	return parts
}

// 名前の完全一致（大文字小文字・前後の空白は無視）
func findByName(inventory []model.Product, name string) (model.Product, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Product{}, false
	}
	for _, p := range inventory {
		if strings.EqualFold(strings.TrimSpace(p.Name), name) {
			return p, true
		}
	}
	return model.Product{}, false
}

func sumParts(parts []BuildPart) int64 {
	var total int64
	for _, p := range parts {
		total += p.Product.Price
	}
	return total
}

func partProducts(parts []BuildPart) []model.Product {
	out := make([]model.Product, 0, len(parts))
	for _, p := range parts {
		out = append(out, p.Product)
	}
	return out
}

func compatParts(parts []BuildPart) compat.Parts {
	var c compat.Parts
	for _, p := range parts {
		switch p.Slot {
		case SlotCPU:
			c.CPU = p.Product.Name
		case SlotMobo:
			c.Mobo = p.Product.Name
		case SlotRAM:
			c.RAM = p.Product.Name
		case SlotGPU:
			c.GPU = p.Product.Name
		case SlotPSU:
			c.PSU = p.Product.Name
		}
	}
	return c
}
