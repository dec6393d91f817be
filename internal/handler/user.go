package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"prompt-storefront/internal/middleware"
	"prompt-storefront/internal/service"
)

type UserHandler struct {
	userService     service.UserService
	downloadService service.DownloadService
}

func NewUserHandler(userService service.UserService, downloadService service.DownloadService) *UserHandler {
	return &UserHandler{
		userService:     userService,
		downloadService: downloadService,
	}
}

func (h *UserHandler) GetEntitlements(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.Identity(c)
	if err != nil {
		return err
	}

	entitlements, err := h.userService.GetEntitlements(ctx, caller.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entitlements)
}

func (h *UserHandler) DownloadPack(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.Identity(c)
	if err != nil {
		return err
	}

	link, err := h.downloadService.PackDownload(ctx, caller.UserID, c.Param("id"))
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, link)
}
