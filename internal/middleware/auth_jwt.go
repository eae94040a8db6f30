package middleware

import (
	"net/http"
	"strings"

	"pcbuilder/internal/authtoken"
	"pcbuilder/internal/config"
	"pcbuilder/internal/domain/model"

	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // model.Role
	CtxTokenVersionKey = "token_version" // int
)

// Authorization: Bearer <access_token> を検証し、ユーザーID・ロール・tvをcontextへ入れる
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get("Authorization"))
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			claims, err := authtoken.Parse(cfg.JWTSecret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxUserIDKey, claims.UserID())
			c.Set(CtxUserRoleKey, claims.Role)
			c.Set(CtxTokenVersionKey, claims.TV)

			return next(c)
		}
	}
}

func bearerToken(authz string) (string, bool) {
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AuthJWTの後ろでだけ使う
func roleFromContext(c echo.Context) (model.Role, bool) {
	r, ok := c.Get(CtxUserRoleKey).(model.Role)
	return r, ok && r != ""
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
