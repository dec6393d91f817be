package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"prompt-storefront/internal/dto"
	"prompt-storefront/internal/middleware"
	"prompt-storefront/internal/service"
)

// MarketingHandler serves the newsletter and contact forms.
type MarketingHandler struct {
	newsletterService service.NewsletterService
	contactService    service.ContactService
}

func NewMarketingHandler(newsletterService service.NewsletterService, contactService service.ContactService) *MarketingHandler {
	return &MarketingHandler{
		newsletterService: newsletterService,
		contactService:    contactService,
	}
}

func (h *MarketingHandler) Subscribe(c echo.Context) error {
	var req dto.NewsletterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.newsletterService.Subscribe(c.Request().Context(), &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func (h *MarketingHandler) Contact(c echo.Context) error {
	var req dto.ContactRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.contactService.Submit(c.Request().Context(), middleware.UserID(c), &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, result)
}
