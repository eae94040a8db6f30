package validator

import (
	"context"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"pcbuilder/internal/domain/model"
	"pcbuilder/internal/repository"
	"pcbuilder/internal/usecase"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 72 // bcryptの上限
	maxUsernameLen = 50
)

// よくある弱いパスワード
var weakPasswords = map[string]struct{}{
	"password":    {},
	"password123": {},
	"123456":      {},
	"1234567890":  {},
	"12345678":    {},
	"qwerty":      {},
	"qwertyuiop":  {},
	"letmein":     {},
	"admin":       {},
	"admin123":    {},
}

type authValidator struct {
	users repository.UserRepository
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	// 必須チェック
	if email == "" || password == "" {
		return invalid("email and password required")
	}

	// email形式
	if !isEmailLike(email) {
		return invalid("invalid email")
	}

	if err := checkPassword(password); err != nil {
		return err
	}

	// email重複チェック（DBが必要）
	u, err := v.users.FindByEmail(ctx, email)
	if err == nil && u != nil {
		return usecase.NewHTTPError(http.StatusConflict, "email already registered")
	}

	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	if email == "" || password == "" {
		return invalid("email and password required")
	}
	if !isEmailLike(email) {
		return invalid("invalid email")
	}
	return nil
}

func (v *authValidator) ValidateProfile(ctx context.Context, username string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(username))
	if n == 0 {
		return invalid("username required")
	}
	if n > maxUsernameLen {
		return invalid("username too long")
	}
	return nil
}

func (v *authValidator) ValidateChangePassword(ctx context.Context, current string, next string) error {
	if current == "" || next == "" {
		return invalid("current_password and new_password required")
	}
	if current == next {
		return invalid("new password must differ")
	}
	return checkPassword(next)
}

// ロール変更の入力を検証（ADMINへの昇格はさせない）
func (v *authValidator) ValidateChangeRole(ctx context.Context, targetUserID int64, role string) error {
	if targetUserID <= 0 {
		return invalid("invalid user id")
	}
	r, ok := model.ParseRole(role)
	if !ok || r == model.RoleAdmin {
		return invalid("role must be USER or MODERATOR")
	}
	return nil
}

func checkPassword(password string) error {
	if len(password) < minPasswordLen {
		return invalid("password too short")
	}
	if len(password) > maxPasswordLen {
		return invalid("password too long")
	}
	if _, ok := weakPasswords[strings.ToLower(strings.TrimSpace(password))]; ok {
		return invalid("weak password")
	}
	return nil
}

func invalid(msg string) error {
	return usecase.NewHTTPError(http.StatusBadRequest, msg)
}

// 簡易メール形式をチェック（表示名付きの形式は不可）
func isEmailLike(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return strings.Contains(s[at+1:], ".")
}
