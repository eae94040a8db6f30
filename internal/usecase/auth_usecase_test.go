package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"pcbuilder/internal/authtoken"
	"pcbuilder/internal/config"
	"pcbuilder/internal/domain/model"
	repo "pcbuilder/internal/repository"
	"pcbuilder/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func newAuthUC(users *UserRepoMock, audit *AuditRepoMock, v *AuthValidatorMock) *usecase.AuthUsecase {
	return usecase.NewAuthUsecase(
		config.Config{JWTSecret: testSecret},
		users,
		audit,
		v,
		usecase.NewBcryptPasswordHasher(bcrypt.MinCost),
		zap.NewNop(),
	)
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// =====================
// Register
// =====================

func TestAuthUsecase_Register_Success(t *testing.T) {
	users := new(UserRepoMock)
	v := new(AuthValidatorMock)
	uc := newAuthUC(users, new(AuditRepoMock), v)

	v.On("ValidateRegister", mock.Anything, "new@test.com", "s3cret-pass").Return(nil)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		// 平文は保存しない
		return u.Email == "new@test.com" &&
			u.Role == model.RoleUser &&
			u.IsActive &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")) == nil
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).ID = 42
	}).Return(nil)

	out, err := uc.Register(context.Background(), usecase.AuthRegisterRequest{Email: "  New@Test.com ", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), out.User.ID)
	assert.Equal(t, "USER", out.User.Role)

	users.AssertExpectations(t)
	v.AssertExpectations(t)
}

func TestAuthUsecase_Register_ValidatorError(t *testing.T) {
	v := new(AuthValidatorMock)
	uc := newAuthUC(new(UserRepoMock), new(AuditRepoMock), v)

	v.On("ValidateRegister", mock.Anything, "dup@test.com", "s3cret-pass").
		Return(usecase.NewHTTPError(http.StatusConflict, "email already registered"))

	_, err := uc.Register(context.Background(), usecase.AuthRegisterRequest{Email: "dup@test.com", Password: "s3cret-pass"})
	requireStatus(t, err, http.StatusConflict)
}

// 検証後に同時登録された場合（unique制約）も409
func TestAuthUsecase_Register_CreateConflict(t *testing.T) {
	users := new(UserRepoMock)
	v := new(AuthValidatorMock)
	uc := newAuthUC(users, new(AuditRepoMock), v)

	v.On("ValidateRegister", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	users.On("Create", mock.Anything, mock.Anything).Return(errors.New("duplicate key"))

	_, err := uc.Register(context.Background(), usecase.AuthRegisterRequest{Email: "dup@test.com", Password: "s3cret-pass"})
	requireStatus(t, err, http.StatusConflict)
}

// =====================
// Login
// =====================

func TestAuthUsecase_Login_Success_IssuesJWT(t *testing.T) {
	users := new(UserRepoMock)
	v := new(AuthValidatorMock)
	uc := newAuthUC(users, new(AuditRepoMock), v)

	v.On("ValidateLogin", mock.Anything, "mod@test.com", "s3cret-pass").Return(nil)
	users.On("FindByEmail", mock.Anything, "mod@test.com").Return(&model.User{
		ID: 7, Email: "mod@test.com", PasswordHash: mustHash(t, "s3cret-pass"),
		Role: model.RoleModerator, TokenVersion: 3, IsActive: true,
	}, nil)
	users.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.LastLoginAt != nil
	})).Return(nil)

	out, err := uc.Login(context.Background(), usecase.AuthLoginRequest{Email: "mod@test.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, 900, out.Token.ExpiresIn)
	assert.Equal(t, 3, out.Token.TokenVersion)

	claims, err := authtoken.Parse(testSecret, out.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID())
	assert.Equal(t, model.RoleModerator, claims.Role)
	assert.Equal(t, 3, claims.TV)
	assert.Equal(t, claims.IssuedAt.Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix())
}

func TestAuthUsecase_Login_Failures(t *testing.T) {
	tests := []struct {
		name       string
		user       *model.User
		findErr    error
		password   string
		wantStatus int
	}{
		{name: "unknown email", findErr: repo.ErrUserNotFound, password: "s3cret-pass", wantStatus: http.StatusUnauthorized},
		{name: "wrong password", user: &model.User{ID: 1, IsActive: true}, password: "nope-nope", wantStatus: http.StatusUnauthorized},
		{name: "inactive", user: &model.User{ID: 1, IsActive: false}, password: "s3cret-pass", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UserRepoMock)
			v := new(AuthValidatorMock)
			uc := newAuthUC(users, new(AuditRepoMock), v)

			if tt.user != nil {
				tt.user.PasswordHash = mustHash(t, "s3cret-pass")
			}
			v.On("ValidateLogin", mock.Anything, mock.Anything, mock.Anything).Return(nil)
			users.On("FindByEmail", mock.Anything, "a@test.com").Return(tt.user, tt.findErr)

			_, err := uc.Login(context.Background(), usecase.AuthLoginRequest{Email: "a@test.com", Password: tt.password})
			requireStatus(t, err, tt.wantStatus)
			users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		})
	}
}

// last_loginの更新に失敗してもログインできる
func TestAuthUsecase_Login_LastLoginUpdateFailure(t *testing.T) {
	users := new(UserRepoMock)
	v := new(AuthValidatorMock)
	uc := newAuthUC(users, new(AuditRepoMock), v)

	v.On("ValidateLogin", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	users.On("FindByEmail", mock.Anything, "a@test.com").Return(&model.User{
		ID: 1, PasswordHash: mustHash(t, "s3cret-pass"), Role: model.RoleUser, IsActive: true,
	}, nil)
	users.On("Update", mock.Anything, mock.Anything).Return(errors.New("db down"))

	out, err := uc.Login(context.Background(), usecase.AuthLoginRequest{Email: "a@test.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Token.AccessToken)
}

// =====================
// Profile / Password
// =====================

func TestAuthUsecase_UpdateProfile(t *testing.T) {
	users := new(UserRepoMock)
	v := new(AuthValidatorMock)
	uc := newAuthUC(users, new(AuditRepoMock), v)

	v.On("ValidateProfile", mock.Anything, "Taro").Return(nil)
	users.On("FindByID", mock.Anything, int64(5)).Return(&model.User{ID: 5, Role: model.RoleUser, IsActive: true}, nil)
	users.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Username == "Taro"
	})).Return(nil)

	out, err := uc.UpdateProfile(context.Background(), 5, usecase.UpdateProfileRequest{Username: " Taro "})
	require.NoError(t, err)
	assert.Equal(t, "Taro", out.Username)

	users.AssertExpectations(t)
}

func TestAuthUsecase_ChangePassword(t *testing.T) {
	users := new(UserRepoMock)
	v := new(AuthValidatorMock)
	uc := newAuthUC(users, new(AuditRepoMock), v)

	v.On("ValidateChangePassword", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	users.On("FindByID", mock.Anything, int64(5)).Return(&model.User{
		ID: 5, PasswordHash: mustHash(t, "old-pass-1"), IsActive: true,
	}, nil)
	users.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("new-pass-2")) == nil
	})).Return(nil).Once()

	_, err := uc.ChangePassword(context.Background(), 5, usecase.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "new-pass-2"})
	requireStatus(t, err, http.StatusUnauthorized)

	out, err := uc.ChangePassword(context.Background(), 5, usecase.ChangePasswordRequest{CurrentPassword: "old-pass-1", NewPassword: "new-pass-2"})
	require.NoError(t, err)
	assert.Equal(t, "password changed", out.Message)

	users.AssertExpectations(t)
}

func TestAuthUsecase_Me_Unauthorized(t *testing.T) {
	users := new(UserRepoMock)
	uc := newAuthUC(users, new(AuditRepoMock), new(AuthValidatorMock))

	_, err := uc.Me(context.Background(), 0)
	requireStatus(t, err, http.StatusUnauthorized)

	users.On("FindByID", mock.Anything, int64(8)).Return(&model.User{ID: 8, IsActive: false}, nil)
	_, err = uc.Me(context.Background(), 8)
	requireStatus(t, err, http.StatusForbidden)
}

// =====================
// Roles
// =====================

func TestAuthUsecase_ChangeRole_Success(t *testing.T) {
	users := new(UserRepoMock)
	audit := new(AuditRepoMock)
	v := new(AuthValidatorMock)
	uc := newAuthUC(users, audit, v)

	v.On("ValidateChangeRole", mock.Anything, int64(5), "moderator").Return(nil)
	users.On("FindByID", mock.Anything, int64(5)).Return(&model.User{
		ID: 5, Email: "u@test.com", Role: model.RoleUser, TokenVersion: 2, IsActive: true,
	}, nil)
	users.On("UpdateRole", mock.Anything, int64(5), model.RoleModerator).Return(nil)
	audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionChangeRole &&
			l.ResourceType == model.AuditResourceUser &&
			l.ActorUserID == 1 &&
			l.BeforeJSON == `{"role":"USER"}` &&
			l.AfterJSON == `{"role":"MODERATOR"}`
	})).Return(nil)

	out, err := uc.ChangeRole(context.Background(), 1, 5, "moderator")
	require.NoError(t, err)
	assert.Equal(t, "MODERATOR", out.Role)
	// 古いトークンは使えなくなる
	assert.Equal(t, 3, out.TokenVersion)

	users.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestAuthUsecase_ChangeRole_AdminTargetForbidden(t *testing.T) {
	users := new(UserRepoMock)
	v := new(AuthValidatorMock)
	uc := newAuthUC(users, new(AuditRepoMock), v)

	v.On("ValidateChangeRole", mock.Anything, int64(2), "USER").Return(nil)
	users.On("FindByID", mock.Anything, int64(2)).Return(&model.User{ID: 2, Role: model.RoleAdmin, IsActive: true}, nil)

	_, err := uc.ChangeRole(context.Background(), 1, 2, "USER")
	requireStatus(t, err, http.StatusForbidden)
	users.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthUsecase_ChangeRole_NotFound(t *testing.T) {
	users := new(UserRepoMock)
	v := new(AuthValidatorMock)
	uc := newAuthUC(users, new(AuditRepoMock), v)

	v.On("ValidateChangeRole", mock.Anything, int64(9), "USER").Return(nil)
	users.On("FindByID", mock.Anything, int64(9)).Return(nil, repo.ErrUserNotFound)

	_, err := uc.ChangeRole(context.Background(), 1, 9, "USER")
	requireStatus(t, err, http.StatusNotFound)
}

func TestAuthUsecase_ListUsers(t *testing.T) {
	users := new(UserRepoMock)
	uc := newAuthUC(users, new(AuditRepoMock), new(AuthValidatorMock))

	users.On("List", mock.Anything).Return([]model.User{
		{ID: 1, Email: "a@test.com", Role: model.RoleAdmin, IsActive: true},
		{ID: 2, Email: "b@test.com", Role: model.RoleUser, IsActive: true},
	}, nil)

	out, err := uc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "ADMIN", out[0].Role)
	assert.Equal(t, "b@test.com", out[1].Email)
}
