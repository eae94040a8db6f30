package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"pcbuilder/internal/authtoken"
	"pcbuilder/internal/config"
	"pcbuilder/internal/domain/model"
	"pcbuilder/internal/repository"

	"go.uber.org/zap"
)

// accesstokenの有効期限
const accessTokenTTL = 15 * time.Minute

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
	ValidateProfile(ctx context.Context, username string) error
	ValidateChangePassword(ctx context.Context, current string, next string) error
	ValidateChangeRole(ctx context.Context, targetUserID int64, role string) error
}

type UserDTO struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
	IsActive     bool   `json:"is_active"`
}

type JwtAccessTokenDTO struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type AuthRegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthRegisterResponse struct {
	User UserDTO `json:"user"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginResponse struct {
	User  UserDTO           `json:"user"`
	Token JwtAccessTokenDTO `json:"token"`
}

type UpdateProfileRequest struct {
	Username string `json:"username"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

type AuthUsecase struct {
	cfg       config.Config
	users     repository.UserRepository
	auditRepo repository.AuditLogRepository
	validator AuthValidator
	hasher    PasswordHasher
	log       *zap.Logger
}

func NewAuthUsecase(
	cfg config.Config,
	users repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	validator AuthValidator,
	hasher PasswordHasher,
	log *zap.Logger,
) *AuthUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthUsecase{
		cfg:       cfg,
		users:     users,
		auditRepo: auditRepo,
		validator: validator,
		hasher:    hasher,
		log:       log,
	}
}

func (u *AuthUsecase) Register(ctx context.Context, req AuthRegisterRequest) (*AuthRegisterResponse, error) {
	email := normalizeEmail(req.Email)

	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateRegister(ctx, email, req.Password); err != nil {
		return nil, err
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := u.hasher.Hash(req.Password)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := &model.User{
		Email:        email,
		PasswordHash: pwHash,
		Role:         model.RoleUser,
		TokenVersion: 0,
		IsActive:     true,
	}

	// validatorの重複チェック後に同時登録された場合もここで409
	if err := u.users.Create(ctx, user); err != nil {
		return nil, NewHTTPError(http.StatusConflict, "email already registered")
	}

	return &AuthRegisterResponse{User: toUserDTO(user)}, nil
}

func (u *AuthUsecase) Login(ctx context.Context, req AuthLoginRequest) (*AuthLoginResponse, error) {
	email := normalizeEmail(req.Email)

	if err := u.validator.ValidateLogin(ctx, email, req.Password); err != nil {
		return nil, err
	}

	//ユーザー取得
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	//パスワード照合（bcrypt）
	if !verifyPassword(user.PasswordHash, req.Password) {
		return nil, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return nil, NewHTTPError(http.StatusForbidden, "user inactive")
	}

	//last_login更新（失敗してもログインは続ける）
	now := time.Now()
	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		u.log.Warn("update last_login failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	accessToken, expiresIn, err := u.issueAccessToken(user, now)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return &AuthLoginResponse{
		User: toUserDTO(user),
		Token: JwtAccessTokenDTO{
			AccessToken:  accessToken,
			ExpiresIn:    expiresIn,
			TokenVersion: user.TokenVersion,
		},
	}, nil
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (*UserDTO, error) {
	user, err := u.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	dto := toUserDTO(user)
	return &dto, nil
}

// 表示名の変更（プロフィール画面）
func (u *AuthUsecase) UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) (*UserDTO, error) {
	username := strings.TrimSpace(req.Username)
	if err := u.validator.ValidateProfile(ctx, username); err != nil {
		return nil, err
	}

	user, err := u.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Username = username
	if err := u.users.Update(ctx, user); err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	dto := toUserDTO(user)
	return &dto, nil
}

func (u *AuthUsecase) ChangePassword(ctx context.Context, userID int64, req ChangePasswordRequest) (*SuccessResponse, error) {
	if err := u.validator.ValidateChangePassword(ctx, req.CurrentPassword, req.NewPassword); err != nil {
		return nil, err
	}

	user, err := u.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !verifyPassword(user.PasswordHash, req.CurrentPassword) {
		return nil, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	pwHash, err := u.hasher.Hash(req.NewPassword)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	user.PasswordHash = pwHash
	if err := u.users.Update(ctx, user); err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return &SuccessResponse{Message: "password changed"}, nil
}

// 管理画面のユーザー一覧
func (u *AuthUsecase) ListUsers(ctx context.Context) ([]UserDTO, error) {
	users, err := u.users.List(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := make([]UserDTO, 0, len(users))
	for i := range users {
		out = append(out, toUserDTO(&users[i]))
	}
	return out, nil
}

// ロール変更。ADMINのユーザーは変えられない。
// token_versionが上がるので対象ユーザーの古いトークンは使えなくなる
func (u *AuthUsecase) ChangeRole(ctx context.Context, actorUserID int64, targetUserID int64, role string) (*UserDTO, error) {
	if actorUserID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := u.validator.ValidateChangeRole(ctx, targetUserID, role); err != nil {
		return nil, err
	}
	newRole, _ := model.ParseRole(role)

	target, err := u.users.FindByID(ctx, targetUserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil || target == nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if target.Role == model.RoleAdmin {
		return nil, NewHTTPError(http.StatusForbidden, "admin role cannot be changed")
	}

	before := target.Role
	if err := u.users.UpdateRole(ctx, targetUserID, newRole); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, NewHTTPError(http.StatusNotFound, "user not found")
		}
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       model.AuditActionChangeRole,
		ResourceType: model.AuditResourceUser,
		ResourceID:   targetUserID,
		BeforeJSON:   toJSON(map[string]model.Role{"role": before}),
		AfterJSON:    toJSON(map[string]model.Role{"role": newRole}),
		CreatedAt:    time.Now(),
	}); err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	target.Role = newRole
	target.TokenVersion++
	dto := toUserDTO(target)
	return &dto, nil
}

func (u *AuthUsecase) activeUser(ctx context.Context, userID int64) (*model.User, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !user.IsActive {
		return nil, NewHTTPError(http.StatusForbidden, "user inactive")
	}
	return user, nil
}

// jwt発行
func (u *AuthUsecase) issueAccessToken(user *model.User, now time.Time) (string, int, error) {
	signed, err := authtoken.Sign(u.cfg.JWTSecret, user, now, accessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return signed, int(accessTokenTTL.Seconds()), nil
}

// model.UserをAPI返却用DTOに変換。
func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		Role:         string(u.Role),
		TokenVersion: u.TokenVersion,
		IsActive:     u.IsActive,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
