package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"prompt-storefront/internal/dto"
	"prompt-storefront/internal/middleware"
	"prompt-storefront/internal/service"
)

const maxWebhookBytes = 64 << 10

type CheckoutHandler struct {
	checkoutService service.CheckoutService
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

func (h *CheckoutHandler) CreatePayment(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.Identity(c)
	if err != nil {
		return err
	}

	var req dto.CreatePaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.checkoutService.CreatePayment(ctx, caller, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func (h *CheckoutHandler) VerifyPayment(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.Identity(c)
	if err != nil {
		return err
	}

	var req dto.VerifyPaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.checkoutService.VerifyPayment(ctx, caller, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

func (h *CheckoutHandler) ReconcileOrders(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := middleware.Identity(c)
	if err != nil {
		return err
	}

	result, err := h.checkoutService.ReconcileOrders(ctx, caller)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// StripeWebhook needs the raw body for signature verification.
func (h *CheckoutHandler) StripeWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read body")
	}

	if err := h.checkoutService.HandleWebhook(ctx, body, c.Request().Header.Get("Stripe-Signature")); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
