package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"prompt-storefront/internal/dto"
	"prompt-storefront/internal/service"
)

type AssistantHandler struct {
	assistantService service.AssistantService
}

func NewAssistantHandler(assistantService service.AssistantService) *AssistantHandler {
	return &AssistantHandler{
		assistantService: assistantService,
	}
}

func (h *AssistantHandler) EnhancePrompt(c echo.Context) error {
	var req dto.EnhancePromptRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.assistantService.EnhancePrompt(c.Request().Context(), &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
