package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/storytovideo/companion/internal/model"
	"github.com/storytovideo/companion/internal/orchestrator"
	"github.com/storytovideo/companion/internal/store"
	"github.com/storytovideo/companion/pkg/response"
)

type ProjectHandler struct {
	orch      *orchestrator.Orchestrator
	store     *store.Store
	validator *validator.Validate
}

func NewProjectHandler(orch *orchestrator.Orchestrator, st *store.Store, v *validator.Validate) *ProjectHandler {
	return &ProjectHandler{
		orch:      orch,
		store:     st,
		validator: v,
	}
}

// Generate handles POST /api/projects/generate
func (h *ProjectHandler) Generate(c *fiber.Ctx) error {
	var req model.GenerateStoryboardRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.orch.GenerateStoryboard(c.Context(), req.StoryText, req.Style, req.ProjectName); err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, fiber.Map{"status": "accepted"})
}

// Load handles POST /api/projects/load
func (h *ProjectHandler) Load(c *fiber.Ctx) error {
	var req model.LoadProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	folderPath := store.CleanFolderPath(req.Path)

	project, err := h.orch.LoadProject(c.Context(), folderPath)
	if err != nil {
		if errors.Is(err, orchestrator.ErrProjectNotFound) {
			return response.NotFound(c, "Project document not found or invalid")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, fiber.Map{"project": project, "title": h.store.ProjectTitle(folderPath)})
}

// VideoLocal handles GET /api/projects/:projectId/video/local
func (h *ProjectHandler) VideoLocal(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Missing project id", nil)
	}

	localPath := h.orch.VideoLocalPath(projectID)
	if localPath == "" {
		return response.NotFound(c, "No local video for this project")
	}

	return response.OK(c, fiber.Map{"projectId": projectID, "path": localPath})
}

// Generating handles GET /api/projects/:projectId/generating
func (h *ProjectHandler) Generating(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	if projectID == "" {
		return response.ValidationError(c, "Missing project id", nil)
	}

	inProgress, err := h.orch.IsGenerationInProgress(c.Context(), projectID)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, fiber.Map{"projectId": projectID, "generating": inProgress})
}
