package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/agri-marketplace/internal/service"
)

type UserHandler struct {
	users service.UserDirectory
}

func NewUserHandler(users service.UserDirectory) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) GetPublic(c echo.Context) error {
	uid := strings.TrimSpace(c.Param("uid"))
	if uid == "" {
		return badRequest(c, "invalid uid")
	}
	user, err := h.users.Lookup(c.Request().Context(), uid)
	if err != nil || user == nil {
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "user not found"))
	}
	return c.JSON(http.StatusOK, toUserSummaryResponse(user))
}
