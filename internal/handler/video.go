package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/storytovideo/companion/internal/orchestrator"
	"github.com/storytovideo/companion/pkg/response"
)

type VideoHandler struct {
	orch *orchestrator.Orchestrator
}

func NewVideoHandler(orch *orchestrator.Orchestrator) *VideoHandler {
	return &VideoHandler{orch: orch}
}

// Compile handles POST /api/projects/:projectId/video
func (h *VideoHandler) Compile(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Missing project id", nil)
	}

	if err := h.orch.StartVideoCompilation(c.Context(), projectID); err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, fiber.Map{"status": "accepted", "projectId": projectID})
}
