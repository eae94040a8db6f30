package validator_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"pcbuilder/internal/domain/model"
	"pcbuilder/internal/repository"
	"pcbuilder/internal/usecase"
	"pcbuilder/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ValidatorUserRepoMock struct{ mock.Mock }

var _ repository.UserRepository = (*ValidatorUserRepoMock)(nil)

func (m *ValidatorUserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *ValidatorUserRepoMock) Create(ctx context.Context, user *model.User) error {
	panic("not used in validator tests")
}

func (m *ValidatorUserRepoMock) FindByID(ctx context.Context, id int64) (*model.User, error) {
	panic("not used in validator tests")
}

func (m *ValidatorUserRepoMock) Update(ctx context.Context, user *model.User) error {
	panic("not used in validator tests")
}

func (m *ValidatorUserRepoMock) IncrementTokenVersion(ctx context.Context, id int64) error {
	panic("not used in validator tests")
}

func (m *ValidatorUserRepoMock) List(ctx context.Context) ([]model.User, error) {
	panic("not used in validator tests")
}

func (m *ValidatorUserRepoMock) UpdateRole(ctx context.Context, id int64, role model.Role) error {
	panic("not used in validator tests")
}

func requireStatus(t *testing.T, err error, want int) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "want HTTPError, got %v", err)
	assert.Equal(t, want, he.Status, he.Message)
}

func TestAuthValidator_ValidateRegister(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     string
	}{
		{name: "empty", email: "", password: "", want: "email and password required"},
		{name: "bad email", email: "not-an-email", password: "s3cret-pass", want: "invalid email"},
		{name: "no tld", email: "a@localhost", password: "s3cret-pass", want: "invalid email"},
		{name: "display name", email: "Taro <a@test.com>", password: "s3cret-pass", want: "invalid email"},
		{name: "short", email: "a@test.com", password: "12345", want: "password too short"},
		{name: "too long", email: "a@test.com", password: strings.Repeat("x", 73), want: "password too long"},
		{name: "weak", email: "a@test.com", password: "Password123", want: "weak password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validator.NewAuthValidator(new(ValidatorUserRepoMock))

			err := v.ValidateRegister(context.Background(), tt.email, tt.password)
			requireStatus(t, err, http.StatusBadRequest)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAuthValidator_ValidateRegister_Duplicate(t *testing.T) {
	users := new(ValidatorUserRepoMock)
	v := validator.NewAuthValidator(users)

	users.On("FindByEmail", mock.Anything, "dup@test.com").Return(&model.User{ID: 1}, nil)
	users.On("FindByEmail", mock.Anything, "new@test.com").Return(nil, repository.ErrUserNotFound)

	requireStatus(t, v.ValidateRegister(context.Background(), "dup@test.com", "s3cret-pass"), http.StatusConflict)
	assert.NoError(t, v.ValidateRegister(context.Background(), "new@test.com", "s3cret-pass"))
}

func TestAuthValidator_ValidateLogin(t *testing.T) {
	v := validator.NewAuthValidator(new(ValidatorUserRepoMock))

	requireStatus(t, v.ValidateLogin(context.Background(), "", "x"), http.StatusBadRequest)
	requireStatus(t, v.ValidateLogin(context.Background(), "nope", "x"), http.StatusBadRequest)
	// ログイン時は長さを見ない
	assert.NoError(t, v.ValidateLogin(context.Background(), "a@test.com", "x"))
}

func TestAuthValidator_ValidateProfile(t *testing.T) {
	v := validator.NewAuthValidator(new(ValidatorUserRepoMock))

	requireStatus(t, v.ValidateProfile(context.Background(), "  "), http.StatusBadRequest)
	requireStatus(t, v.ValidateProfile(context.Background(), strings.Repeat("a", 51)), http.StatusBadRequest)
	// 文字数で数える
	assert.NoError(t, v.ValidateProfile(context.Background(), strings.Repeat("あ", 50)))
}

func TestAuthValidator_ValidateChangePassword(t *testing.T) {
	v := validator.NewAuthValidator(new(ValidatorUserRepoMock))

	requireStatus(t, v.ValidateChangePassword(context.Background(), "", "new-pass"), http.StatusBadRequest)
	requireStatus(t, v.ValidateChangePassword(context.Background(), "same-pass", "same-pass"), http.StatusBadRequest)
	requireStatus(t, v.ValidateChangePassword(context.Background(), "old-pass", "qwerty"), http.StatusBadRequest)
	assert.NoError(t, v.ValidateChangePassword(context.Background(), "old-pass", "new-pass"))
}

func TestAuthValidator_ValidateChangeRole(t *testing.T) {
	v := validator.NewAuthValidator(new(ValidatorUserRepoMock))

	assert.NoError(t, v.ValidateChangeRole(context.Background(), 2, "moderator"))
	assert.NoError(t, v.ValidateChangeRole(context.Background(), 2, "USER"))

	// ADMINへは変えられない
	requireStatus(t, v.ValidateChangeRole(context.Background(), 2, "ADMIN"), http.StatusBadRequest)
	requireStatus(t, v.ValidateChangeRole(context.Background(), 2, "root"), http.StatusBadRequest)
	requireStatus(t, v.ValidateChangeRole(context.Background(), 0, "USER"), http.StatusBadRequest)
}
