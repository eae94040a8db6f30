// Package authtoken はアクセストークン（HS256のJWT）の発行と検証をまとめる。
// 発行側（AuthUsecase）と検証側（middleware）が同じClaimsを使う。
package authtoken

import (
	"errors"
	"strconv"
	"time"

	"pcbuilder/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

// subはユーザーID（10進の文字列）
type Claims struct {
	Role model.Role `json:"role"`
	TV   int        `json:"tv"`
	jwt.RegisteredClaims
}

// UserID はsubをint64で返す
func (c Claims) UserID() int64 {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func Sign(secret string, user *model.User, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		Role: user.Role,
		TV:   user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse は署名・期限を確かめ、sub/role/tvが正しい形のときだけClaimsを返す。
// roleは既知のロールに正規化される。
func Parse(secret string, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID() <= 0 || claims.TV < 0 {
		return nil, ErrInvalidToken
	}
	role, ok := model.ParseRole(string(claims.Role))
	if !ok {
		return nil, ErrInvalidToken
	}
	claims.Role = role

	return claims, nil
}
