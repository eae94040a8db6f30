package handler

import (
	"net/http"

	"pcbuilder/internal/config"
	"pcbuilder/internal/middleware"
	"pcbuilder/internal/repository"
	"pcbuilder/internal/usecase"

	"github.com/labstack/echo/v4"
)

type BuilderChatRequest struct {
	Message string `json:"message"`
}

type SaveBuildRequest struct {
	Name      string                 `json:"name"`
	Selection usecase.BuildSelection `json:"selection"`
}

// /builder（誰でも）と /builds（ログイン必須）のHTTP
type BuilderHandler struct {
	uc *usecase.BuilderUsecase
}

// DI
func NewBuilderHandler(uc *usecase.BuilderUsecase) *BuilderHandler {
	return &BuilderHandler{uc: uc}
}

func (h *BuilderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	b := e.Group("/builder")
	b.POST("/check", h.check)
	b.POST("/cart", h.addToCart, middleware.CartSession(cfg))
	b.POST("/chat", h.chat)

	builds := e.Group("/builds")
	builds.Use(middleware.AuthJWT(cfg))
	builds.Use(middleware.TokenVersionGuard(userRepo))

	builds.GET("", h.listBuilds)
	builds.POST("", h.saveBuild)
	builds.DELETE("/:id", h.deleteBuild)
	builds.POST("/:id/cart", h.buyBuild, middleware.CartSession(cfg))
}

func (h *BuilderHandler) check(c echo.Context) error {
	var sel usecase.BuildSelection
	if err := c.Bind(&sel); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Check(c.Request().Context(), sel)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *BuilderHandler) addToCart(c echo.Context) error {
	sessionID, ok := getCartSession(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing cart session"})
	}

	var sel usecase.BuildSelection
	if err := c.Bind(&sel); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.AddBuildToCart(c.Request().Context(), sessionID, sel)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *BuilderHandler) chat(c echo.Context) error {
	var req BuilderChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Chat(c.Request().Context(), req.Message)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *BuilderHandler) listBuilds(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.ListBuilds(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *BuilderHandler) saveBuild(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req SaveBuildRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.SaveBuild(c.Request().Context(), userID, usecase.SaveBuildInput{
		Name:      req.Name,
		Selection: req.Selection,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *BuilderHandler) deleteBuild(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if err := h.uc.DeleteBuild(c.Request().Context(), userID, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *BuilderHandler) buyBuild(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	sessionID, ok := getCartSession(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing cart session"})
	}

	out, err := h.uc.BuyBuild(c.Request().Context(), userID, sessionID, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
