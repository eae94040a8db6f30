package middleware

import (
	"net/http"

	"pcbuilder/internal/domain/model"

	"github.com/labstack/echo/v4"
)

//contextに入っているroleがADMINかどうかを確認します。

func AdminRoleGuard() echo.MiddlewareFunc {
	return roleGuard("admin only", func(r model.Role) bool {
		return r == model.RoleAdmin
	})
}

// 管理画面（商品・在庫・監査ログ）はADMINとMODERATORが使える
func StaffRoleGuard() echo.MiddlewareFunc {
	return roleGuard("staff only", model.Role.IsStaff)
}

func roleGuard(deny string, allow func(model.Role) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := roleFromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//USERは拒否
			if !allow(role) {
				return c.JSON(http.StatusForbidden, errorJSON(deny))
			}

			return next(c)
		}
	}
}
