package middleware

import (
	"net/http"

	"pcbuilder/internal/repository"

	"github.com/labstack/echo/v4"
)

// TokenVersionGuard はトークンのtv・ロールがDB上のユーザーと一致するか確かめる。
// ロール変更前に発行された古いトークンと停止ユーザーはここで401。
func TokenVersionGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get(CtxUserIDKey).(int64)
			tv, tvOK := c.Get(CtxTokenVersionKey).(int)
			role, roleOK := roleFromContext(c)
			if userID <= 0 || !tvOK || !roleOK {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			switch {
			case !user.IsActive, user.TokenVersion != tv, user.Role != role:
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			return next(c)
		}
	}
}
