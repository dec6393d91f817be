package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/skip2/go-qrcode"

	"prompt-storefront/internal/dto"
	"prompt-storefront/internal/middleware"
	"prompt-storefront/internal/service"
)

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

func (h *CatalogHandler) ListCategories(c echo.Context) error {
	categories, err := h.catalogService.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, categories)
}

func (h *CatalogHandler) ListPrompts(c echo.Context) error {
	var req dto.PromptListRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.catalogService.ListPrompts(c.Request().Context(), middleware.UserID(c), &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func (h *CatalogHandler) GetPrompt(c echo.Context) error {
	prompt, err := h.catalogService.GetPrompt(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, prompt)
}

func (h *CatalogHandler) ListPacks(c echo.Context) error {
	packs, err := h.catalogService.ListPacks(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, packs)
}

func (h *CatalogHandler) GetPack(c echo.Context) error {
	pack, err := h.catalogService.GetPack(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, pack)
}

// PromptQR renders a PNG QR code of the prompt's public page.
func (h *CatalogHandler) PromptQR(c echo.Context) error {
	size := defaultQRSize
	if raw := c.QueryParam("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minQRSize || n > maxQRSize {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("size must be between %d and %d", minQRSize, maxQRSize))
		}
		size = n
	}

	link, err := h.catalogService.PromptShareURL(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		return fmt.Errorf("encode qr code: %w", err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=86400")
	return c.Blob(http.StatusOK, "image/png", png)
}
