package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prompt-storefront/internal/common"
	"prompt-storefront/internal/dto"
	"prompt-storefront/internal/logging"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{fmt.Errorf("%w: items is required", common.ErrValidation), http.StatusBadRequest, "validation error: items is required"},
		{fmt.Errorf("%w: token expired", common.ErrUnauthorized), http.StatusUnauthorized, "unauthorized"},
		{common.ErrOrderOwnership, http.StatusForbidden, "order does not belong to caller"},
		{fmt.Errorf("%w: amount", common.ErrSessionMismatch), http.StatusForbidden, "payment session does not match order"},
		{common.ErrCustomerMismatch, http.StatusForbidden, "payment customer does not match caller"},
		{common.ErrNotEntitled, http.StatusForbidden, "purchase required"},
		{fmt.Errorf("%w: payment status is \"unpaid\"", common.ErrPaymentNotCompleted), http.StatusPaymentRequired, "payment not completed: payment status is \"unpaid\""},
		{fmt.Errorf("get order: %w", common.ErrNotFound), http.StatusNotFound, "not found"},
		{common.ErrRateLimited, http.StatusTooManyRequests, "too many requests"},
		{fmt.Errorf("%w: stripe said no", common.ErrProvider), http.StatusBadGateway, "payment provider error"},
		{fmt.Errorf("%w: prompt assistant is not configured", common.ErrUnavailable), http.StatusServiceUnavailable, "service unavailable: prompt assistant is not configured"},
		{echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token"), http.StatusUnauthorized, "missing bearer token"},
		{echo.ErrInternalServerError, http.StatusInternalServerError, "Internal Server Error"},
		{errors.New("database is on fire"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			status, msg := statusFor(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.msg, msg)
		})
	}
}

func TestErrorHandler_WritesJSON(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(logging.Nop())
	e.GET("/", func(c echo.Context) error {
		return fmt.Errorf("wrap: %w", common.ErrOrderOwnership)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "order does not belong to caller", body["error"])
}

func TestRequestValidator(t *testing.T) {
	v := NewRequestValidator()

	err := v.Validate(&dto.NewsletterRequest{Email: "not-an-email"})
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "email must be a valid email address")

	err = v.Validate(&dto.CreatePaymentRequest{Items: []*dto.CheckoutItem{{Type: "coins"}}, Mode: "weekly"})
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "items[0].type must be one of")
	assert.Contains(t, err.Error(), "mode must be one of")

	assert.NoError(t, v.Validate(&dto.ContactRequest{Name: "Ada", Email: "ada@example.com", Message: "hi"}))
}

func TestBindAndValidate_MalformedBody(t *testing.T) {
	e := echo.New()
	e.Validator = NewRequestValidator()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var body dto.ContactRequest
	err := bindAndValidate(c, &body)
	assert.ErrorIs(t, err, common.ErrValidation)
}
