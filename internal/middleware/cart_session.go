package middleware

import (
	"net/http"
	"time"

	"pcbuilder/internal/config"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	CartSessionCookie = "cart_session"
	CtxCartSessionKey = "cart_session" // string
)

const cartSessionMaxAge = 30 * 24 * time.Hour

// カートはログイン不要なので、cookieのセッションIDで持ち主を決める。
// cookieが無い・壊れている場合は新しいIDを発行する
func CartSession(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var sessionID string
			if ck, err := c.Cookie(CartSessionCookie); err == nil {
				if id, perr := uuid.Parse(ck.Value); perr == nil {
					sessionID = id.String()
				}
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     CartSessionCookie,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(cartSessionMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cfg.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			c.Set(CtxCartSessionKey, sessionID)
			return next(c)
		}
	}
}
