package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/storytovideo/companion/internal/model"
	"github.com/storytovideo/companion/internal/orchestrator"
	"github.com/storytovideo/companion/pkg/response"
)

type ShotHandler struct {
	orch      *orchestrator.Orchestrator
	validator *validator.Validate
}

func NewShotHandler(orch *orchestrator.Orchestrator, v *validator.Validate) *ShotHandler {
	return &ShotHandler{
		orch:      orch,
		validator: v,
	}
}

// UpdateImage handles POST /api/projects/:projectId/shots/:shotId/image
func (h *ShotHandler) UpdateImage(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	shotID := c.Params("shotId")
	if shotID == "" {
		return response.ValidationError(c, "Missing shot id", nil)
	}

	var req model.ShotImageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.orch.GenerateShotImage(c.Context(), projectID, shotID, req.Prompt, req.Transition); err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, fiber.Map{"status": "accepted", "shotId": shotID})
}

// Refresh handles POST /api/projects/:projectId/shots/refresh
func (h *ShotHandler) Refresh(c *fiber.Ctx) error {
	projectID := c.Params("projectId")

	if err := h.orch.RefreshShots(c.Context(), projectID); err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, fiber.Map{"status": "accepted"})
}
