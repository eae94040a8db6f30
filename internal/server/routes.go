package server

import (
	"net/http"

	"pcbuilder/internal/config"
	"pcbuilder/internal/handler"
	"pcbuilder/internal/repository"

	"github.com/labstack/echo/v4"
)

// Handlers はルート登録に必要なhandlerをまとめたもの
type Handlers struct {
	Product      *handler.ProductHandler
	Cart         *handler.CartHandler
	Auth         *handler.AuthHandler
	Builder      *handler.BuilderHandler
	AdminProduct *handler.AdminProductHandler
	AdminUser    *handler.AdminUserHandler
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, handler.SuccessResponse{Message: "ok"})
	})

	h.Product.RegisterRoutes(e)
	h.Cart.RegisterRoutes(e, cfg)
	h.Auth.RegisterRoutes(e, cfg, userRepo)
	h.Builder.RegisterRoutes(e, cfg, userRepo)
	// /admin/users はADMINだけなので先に登録
	h.AdminUser.RegisterRoutes(e)
	h.AdminProduct.RegisterRoutes(e, cfg, userRepo)
}
