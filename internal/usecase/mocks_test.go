package usecase_test

import (
	"context"
	"strings"
	"testing"

	"pcbuilder/internal/advisor"
	"pcbuilder/internal/cart"
	"pcbuilder/internal/domain/model"
	repo "pcbuilder/internal/repository"
	"pcbuilder/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// Mocks
// =====================

type ProductRepoMock struct{ mock.Mock }

var _ repo.ProductRepository = (*ProductRepoMock)(nil)

func (m *ProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *ProductRepoMock) ListActive(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) ListAll(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Product)
	return created, args.Error(1)
}

func (m *ProductRepoMock) Update(ctx context.Context, p model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProductRepoMock) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ProductRepoMock) AdjustStock(ctx context.Context, id int64, delta int64) (int64, int64, error) {
	args := m.Called(ctx, id, delta)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

type UserRepoMock struct{ mock.Mock }

var _ repo.UserRepository = (*UserRepoMock)(nil)

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) IncrementTokenVersion(ctx context.Context, id int64) error {
	panic("not used in usecase tests")
}

func (m *UserRepoMock) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]model.User)
	return users, args.Error(1)
}

func (m *UserRepoMock) UpdateRole(ctx context.Context, id int64, role model.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

type SavedBuildRepoMock struct{ mock.Mock }

var _ repo.SavedBuildRepository = (*SavedBuildRepoMock)(nil)

func (m *SavedBuildRepoMock) Create(ctx context.Context, b model.SavedBuild) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *SavedBuildRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.SavedBuild, error) {
	args := m.Called(ctx, userID)
	builds, _ := args.Get(0).([]model.SavedBuild)
	return builds, args.Error(1)
}

func (m *SavedBuildRepoMock) FindOwned(ctx context.Context, buildID string, userID int64) (model.SavedBuild, error) {
	args := m.Called(ctx, buildID, userID)
	b, _ := args.Get(0).(model.SavedBuild)
	return b, args.Error(1)
}

func (m *SavedBuildRepoMock) DeleteOwned(ctx context.Context, buildID string, userID int64) error {
	args := m.Called(ctx, buildID, userID)
	return args.Error(0)
}

type AuthValidatorMock struct{ mock.Mock }

var _ usecase.AuthValidator = (*AuthValidatorMock)(nil)

func (m *AuthValidatorMock) ValidateRegister(ctx context.Context, email string, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func (m *AuthValidatorMock) ValidateLogin(ctx context.Context, email string, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func (m *AuthValidatorMock) ValidateProfile(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *AuthValidatorMock) ValidateChangePassword(ctx context.Context, current string, next string) error {
	args := m.Called(ctx, current, next)
	return args.Error(0)
}

func (m *AuthValidatorMock) ValidateChangeRole(ctx context.Context, targetUserID int64, role string) error {
	args := m.Called(ctx, targetUserID, role)
	return args.Error(0)
}

type AdvisorMock struct{ mock.Mock }

var _ advisor.Advisor = (*AdvisorMock)(nil)

func (m *AdvisorMock) Chat(ctx context.Context, message string, catalog []string) (advisor.Reply, error) {
	args := m.Called(ctx, message, catalog)
	r, _ := args.Get(0).(advisor.Reply)
	return r, args.Error(1)
}

func (m *AdvisorMock) Describe(ctx context.Context, name string, category string) (string, error) {
	args := m.Called(ctx, name, category)
	return args.String(0), args.Error(1)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) NotifyCheckout(ctx context.Context, sessionID string, state cart.State) error {
	args := m.Called(ctx, sessionID, state)
	return args.Error(0)
}

// 保存が常に失敗するStorage
type failingStorage struct{}

func (failingStorage) Load(context.Context, string) ([]byte, error) {
	return nil, cart.ErrNoData
}

func (failingStorage) Save(context.Context, string, []byte) error {
	return assert.AnError
}

// =====================
// helper
// =====================

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

func requireStatus(t *testing.T, err error, want int) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "want HTTPError, got %v", err)
	assert.Equal(t, want, he.Status, he.Message)
}

func int64p(v int64) *int64 { return &v }

// 読み込みが失敗する保存先。Saveが呼ばれたら数える
type unreadableStorage struct {
	saves int
}

func (s *unreadableStorage) Load(context.Context, string) ([]byte, error) {
	return nil, context.DeadlineExceeded
}

func (s *unreadableStorage) Save(context.Context, string, []byte) error {
	s.saves++
	return nil
}
