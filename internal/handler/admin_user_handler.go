package handler

import (
	"net/http"

	"pcbuilder/internal/config"
	"pcbuilder/internal/middleware"
	"pcbuilder/internal/repository"
	"pcbuilder/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

type AdminUserHandler struct {
	cfg      config.Config
	userRepo repository.UserRepository
	uc       *usecase.AuthUsecase
}

func NewAdminUserHandler(cfg config.Config, userRepo repository.UserRepository, uc *usecase.AuthUsecase) *AdminUserHandler {
	return &AdminUserHandler{cfg: cfg, userRepo: userRepo, uc: uc}
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo) {
	// /admin/users は「JWT必須 + token_version一致 + ADMIN限定」
	admin := e.Group(
		"/admin/users",
		middleware.AuthJWT(h.cfg),
		middleware.TokenVersionGuard(h.userRepo),
		middleware.AdminRoleGuard(),
	)

	admin.GET("", h.ListUsers)
	admin.PUT("/:id/role", h.ChangeRole)
}

func (h *AdminUserHandler) ListUsers(c echo.Context) error {
	users, err := h.uc.ListUsers(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *AdminUserHandler) ChangeRole(c echo.Context) error {
	targetID, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user_id"})
	}

	var req ChangeRoleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	actorID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.ChangeRole(c.Request().Context(), actorID, targetID, req.Role)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
