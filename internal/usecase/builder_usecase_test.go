package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"pcbuilder/internal/advisor"
	"pcbuilder/internal/cart"
	"pcbuilder/internal/compat"
	"pcbuilder/internal/domain/model"
	repo "pcbuilder/internal/repository"
	"pcbuilder/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	intelCPU = model.Product{ID: 10, Name: "Intel Core i5-12400F", Category: model.CategoryCPU, Price: 180, IsActive: true}
	b550     = model.Product{ID: 11, Name: "MSI B550 Tomahawk", Category: model.CategoryMotherboard, Price: 160, IsActive: true}
	ram16    = model.Product{ID: 12, Name: "Corsair 16GB DDR4", Category: model.CategoryRAM, Price: 60, IsActive: true}
	rtx3060  = model.Product{ID: 13, Name: "RTX 3060", Category: model.CategoryGPU, Price: 300, IsActive: true}
)

type builderFixture struct {
	products *ProductRepoMock
	builds   *SavedBuildRepoMock
	adv      *AdvisorMock
	carts    *usecase.CartUsecase
	uc       *usecase.BuilderUsecase
}

func newBuilderFixture(t *testing.T) builderFixture {
	t.Helper()
	f := builderFixture{
		products: new(ProductRepoMock),
		builds:   new(SavedBuildRepoMock),
		adv:      new(AdvisorMock),
	}
	f.carts = usecase.NewCartUsecase(cart.NewRegistry(cart.NewMemoryStorage(), zap.NewNop()), f.products, nil, zap.NewNop())
	f.uc = usecase.NewBuilderUsecase(f.products, f.builds, f.carts, f.adv, zap.NewNop())
	return f
}

// =====================
// Check
// =====================

func TestBuilderUsecase_Check_TotalAndVerdict(t *testing.T) {
	f := newBuilderFixture(t)
	f.products.On("FindByIDs", mock.Anything, []int64{10, 11, 13}).Return([]model.Product{rtx3060, intelCPU, b550}, nil)

	out, err := f.uc.Check(context.Background(), usecase.BuildSelection{
		CPU:  int64p(10),
		Mobo: int64p(11),
		GPU:  int64p(13),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(640), out.Total)
	require.Len(t, out.Parts, 3)
	// スロット順（cpu, mobo, gpu）
	assert.Equal(t, usecase.SlotCPU, out.Parts[0].Slot)
	assert.Equal(t, usecase.SlotMobo, out.Parts[1].Slot)
	assert.Equal(t, usecase.SlotGPU, out.Parts[2].Slot)

	require.NotNil(t, out.Compatibility)
	assert.Equal(t, compat.LevelDanger, out.Compatibility.Level)
	assert.True(t, out.Compatibility.BestEffort)
}

// CPUかマザーボードが無ければ判定しない
func TestBuilderUsecase_Check_NoVerdictWithoutBoard(t *testing.T) {
	f := newBuilderFixture(t)
	f.products.On("FindByIDs", mock.Anything, []int64{10}).Return([]model.Product{intelCPU}, nil)

	out, err := f.uc.Check(context.Background(), usecase.BuildSelection{CPU: int64p(10)})
	require.NoError(t, err)
	assert.Equal(t, int64(180), out.Total)
	assert.Nil(t, out.Compatibility)
}

func TestBuilderUsecase_Check_EmptySelection(t *testing.T) {
	f := newBuilderFixture(t)

	out, err := f.uc.Check(context.Background(), usecase.BuildSelection{})
	require.NoError(t, err)
	assert.Empty(t, out.Parts)
	assert.Equal(t, int64(0), out.Total)
	f.products.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything)
}

func TestBuilderUsecase_Check_InvalidParts(t *testing.T) {
	tests := []struct {
		name  string
		sel   usecase.BuildSelection
		found []model.Product
		want  string
	}{
		{name: "missing", sel: usecase.BuildSelection{CPU: int64p(99)}, found: nil, want: "cpu: product 99 not found"},
		{name: "wrong slot", sel: usecase.BuildSelection{GPU: int64p(10)}, found: []model.Product{intelCPU}, want: "gpu: product 10 is not a GPU"},
		{name: "inactive", sel: usecase.BuildSelection{RAM: int64p(12)}, found: []model.Product{{ID: 12, Category: model.CategoryRAM}}, want: "ram: product 12 not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBuilderFixture(t)
			f.products.On("FindByIDs", mock.Anything, mock.Anything).Return(tt.found, nil)

			_, err := f.uc.Check(context.Background(), tt.sel)
			assertErrContains(t, err, tt.want)
			requireStatus(t, err, http.StatusBadRequest)
		})
	}
}

// =====================
// Cart
// =====================

func TestBuilderUsecase_AddBuildToCart(t *testing.T) {
	f := newBuilderFixture(t)
	f.products.On("FindByIDs", mock.Anything, []int64{10, 12}).Return([]model.Product{intelCPU, ram16}, nil)

	st, err := f.uc.AddBuildToCart(context.Background(), testSession, usecase.BuildSelection{CPU: int64p(10), RAM: int64p(12)})
	require.NoError(t, err)
	assert.Len(t, st.Items, 2)
	assert.Equal(t, int64(240), st.Total)

	_, err = f.uc.AddBuildToCart(context.Background(), testSession, usecase.BuildSelection{})
	assertErrContains(t, err, "build is empty")
}

// =====================
// Chat
// =====================

func TestBuilderUsecase_Chat_ResolvesSuggestedNames(t *testing.T) {
	f := newBuilderFixture(t)
	inventory := []model.Product{intelCPU, b550, ram16, rtx3060}
	f.products.On("ListActive", mock.Anything).Return(inventory, nil)
	f.adv.On("Chat", mock.Anything, "gaming pc", []string{
		"Intel Core i5-12400F", "MSI B550 Tomahawk", "Corsair 16GB DDR4", "RTX 3060",
	}).Return(advisor.Reply{
		Text: "Here is a build.",
		Selection: &advisor.Selection{
			CPU:         "  intel core i5-12400f ",
			Motherboard: "MSI B550 TOMAHAWK",
			GPU:         "RTX 4090", // 在庫に無い
			RAM:         "Corsair 16GB DDR4",
		},
	}, nil)

	out, err := f.uc.Chat(context.Background(), "  gaming pc ")
	require.NoError(t, err)
	assert.Equal(t, "Here is a build.", out.Reply)

	require.NotNil(t, out.Selection.CPU)
	assert.Equal(t, int64(10), *out.Selection.CPU)
	require.NotNil(t, out.Selection.Mobo)
	assert.Equal(t, int64(11), *out.Selection.Mobo)
	assert.Nil(t, out.Selection.GPU)
	assert.Len(t, out.Parts, 3)
	assert.Equal(t, int64(400), out.Total)
	require.NotNil(t, out.Compat)
	assert.Equal(t, compat.LevelDanger, out.Compat.Level)
}

func TestBuilderUsecase_Chat_TextOnly(t *testing.T) {
	f := newBuilderFixture(t)
	f.products.On("ListActive", mock.Anything).Return([]model.Product{}, nil)
	f.adv.On("Chat", mock.Anything, "hello", mock.Anything).Return(advisor.Reply{Text: "Hi!"}, nil)

	out, err := f.uc.Chat(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi!", out.Reply)
	assert.Empty(t, out.Parts)
	assert.Nil(t, out.Compat)
}

func TestBuilderUsecase_Chat_Errors(t *testing.T) {
	f := newBuilderFixture(t)

	_, err := f.uc.Chat(context.Background(), "   ")
	requireStatus(t, err, http.StatusBadRequest)

	f.products.On("ListActive", mock.Anything).Return([]model.Product{}, nil)
	f.adv.On("Chat", mock.Anything, "hello", mock.Anything).Return(advisor.Reply{}, advisor.ErrUnavailable)

	_, err = f.uc.Chat(context.Background(), "hello")
	requireStatus(t, err, http.StatusBadGateway)
}

// =====================
// Saved builds
// =====================

func TestBuilderUsecase_SaveBuild_DefaultName(t *testing.T) {
	f := newBuilderFixture(t)
	f.products.On("FindByIDs", mock.Anything, []int64{10, 13}).Return([]model.Product{intelCPU, rtx3060}, nil)

	var saved model.SavedBuild
	f.builds.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(model.SavedBuild)
	}).Return(nil)

	out, err := f.uc.SaveBuild(context.Background(), 5, usecase.SaveBuildInput{
		Name:      "  ",
		Selection: usecase.BuildSelection{CPU: int64p(10), GPU: int64p(13)},
	})
	require.NoError(t, err)

	assert.Equal(t, "My AI PC", out.Name)
	assert.Equal(t, int64(480), out.Total)
	_, perr := uuid.Parse(out.ID)
	assert.NoError(t, perr)

	assert.Equal(t, out.ID, saved.ID)
	assert.Equal(t, int64(5), saved.UserID)
	assert.Equal(t, int64(10), *saved.CPUID)
	assert.Equal(t, int64(13), *saved.GPUID)
	assert.Nil(t, saved.MoboID)
	assert.Equal(t, int64(480), saved.Total)
}

func TestBuilderUsecase_SaveBuild_Empty(t *testing.T) {
	f := newBuilderFixture(t)

	_, err := f.uc.SaveBuild(context.Background(), 5, usecase.SaveBuildInput{Name: "x"})
	assertErrContains(t, err, "build is empty")
	f.builds.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	_, err = f.uc.SaveBuild(context.Background(), 0, usecase.SaveBuildInput{})
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestBuilderUsecase_ListBuilds_ResolvesComponents(t *testing.T) {
	f := newBuilderFixture(t)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	f.builds.On("ListByUserID", mock.Anything, int64(5)).Return([]model.SavedBuild{
		{ID: "b2", Name: "Newer", CPUID: int64p(10), GPUID: int64p(99), Total: 480, CreatedAt: now},
		{ID: "b1", Name: "Older", RAMID: int64p(12), Total: 60, CreatedAt: now.Add(-time.Hour)},
	}, nil)
	// 99は削除済み
	f.products.On("FindByIDs", mock.Anything, []int64{10, 99, 12}).Return([]model.Product{intelCPU, ram16}, nil)

	out, err := f.uc.ListBuilds(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "Newer", out[0].Name)
	require.Len(t, out[0].Parts, 1)
	assert.Equal(t, "Intel Core i5-12400F", out[0].Parts[0].Product.Name)
	// 保存時の合計をそのまま返す
	assert.Equal(t, int64(480), out[0].Total)

	assert.Equal(t, "Older", out[1].Name)
	require.Len(t, out[1].Parts, 1)
	assert.Equal(t, usecase.SlotRAM, out[1].Parts[0].Slot)
}

func TestBuilderUsecase_DeleteBuild(t *testing.T) {
	f := newBuilderFixture(t)
	mine := uuid.NewString()
	theirs := uuid.NewString()

	f.builds.On("DeleteOwned", mock.Anything, mine, int64(5)).Return(nil)
	f.builds.On("DeleteOwned", mock.Anything, theirs, int64(5)).Return(repo.ErrNotFound)

	require.NoError(t, f.uc.DeleteBuild(context.Background(), 5, mine))
	requireStatus(t, f.uc.DeleteBuild(context.Background(), 5, theirs), http.StatusNotFound)
	requireStatus(t, f.uc.DeleteBuild(context.Background(), 5, "not-a-uuid"), http.StatusBadRequest)
}

func TestBuilderUsecase_BuyBuild(t *testing.T) {
	f := newBuilderFixture(t)
	id := uuid.NewString()

	f.builds.On("FindOwned", mock.Anything, id, int64(5)).Return(model.SavedBuild{
		ID: id, UserID: 5, CPUID: int64p(10), MoboID: int64p(11), GPUID: int64p(13),
	}, nil)
	discontinued := b550
	discontinued.IsActive = false
	f.products.On("FindByIDs", mock.Anything, []int64{10, 11, 13}).Return([]model.Product{intelCPU, discontinued, rtx3060}, nil)

	out, err := f.uc.BuyBuild(context.Background(), 5, testSession, id)
	require.NoError(t, err)
	// 販売終了の部品は入れない
	assert.Equal(t, 2, out.Added)
	assert.Equal(t, int64(480), out.Cart.Total)

	st, err := f.carts.GetCart(context.Background(), testSession)
	require.NoError(t, err)
	assert.Len(t, st.Items, 2)
}

func TestBuilderUsecase_BuyBuild_NotOwned(t *testing.T) {
	f := newBuilderFixture(t)
	id := uuid.NewString()
	f.builds.On("FindOwned", mock.Anything, id, int64(5)).Return(model.SavedBuild{}, repo.ErrNotFound)

	_, err := f.uc.BuyBuild(context.Background(), 5, testSession, id)
	requireStatus(t, err, http.StatusNotFound)
}

func TestBuilderUsecase_ListBuilds_DBError(t *testing.T) {
	f := newBuilderFixture(t)
	f.builds.On("ListByUserID", mock.Anything, int64(5)).Return(nil, errors.New("boom"))

	_, err := f.uc.ListBuilds(context.Background(), 5)
	requireStatus(t, err, http.StatusInternalServerError)
}
