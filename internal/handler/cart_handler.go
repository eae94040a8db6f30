package handler

import (
	"net/http"

	"pcbuilder/internal/config"
	"pcbuilder/internal/middleware"
	"pcbuilder/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP（ログイン不要、cookieのセッション単位）
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type AddCartRequest struct {
	ProductID int64 `json:"product_id"`
}

type SetCartOpenRequest struct {
	Open bool `json:"open"`
}

// /cart 配下を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/cart")
	g.Use(middleware.CartSession(cfg))

	g.GET("", h.getCart)
	g.DELETE("", h.clear)
	g.POST("/items", h.addToCart)
	g.DELETE("/items/:id", h.deleteItem)
	g.PUT("/open", h.setOpen)
	g.POST("/checkout", h.checkout)
}

func (h *CartHandler) getCart(c echo.Context) error {
	sessionID, ok := getCartSession(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing cart session"})
	}

	out, err := h.uc.GetCart(c.Request().Context(), sessionID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addToCart(c echo.Context) error {
	sessionID, ok := getCartSession(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing cart session"})
	}

	var req AddCartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.AddToCart(c.Request().Context(), sessionID, req.ProductID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// 行ごと削除（数量に関係なく）
func (h *CartHandler) deleteItem(c echo.Context) error {
	sessionID, ok := getCartSession(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing cart session"})
	}

	productID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.RemoveItem(c.Request().Context(), sessionID, productID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) clear(c echo.Context) error {
	sessionID, ok := getCartSession(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing cart session"})
	}

	out, err := h.uc.Clear(c.Request().Context(), sessionID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) setOpen(c echo.Context) error {
	sessionID, ok := getCartSession(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing cart session"})
	}

	var req SetCartOpenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.SetOpen(c.Request().Context(), sessionID, req.Open)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) checkout(c echo.Context) error {
	sessionID, ok := getCartSession(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing cart session"})
	}

	out, err := h.uc.Checkout(c.Request().Context(), sessionID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
