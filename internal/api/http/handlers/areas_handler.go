package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/area-service/internal/api/dto"
	"github.com/spec-kit/area-service/internal/auth"
	"github.com/spec-kit/area-service/internal/domain"
	"github.com/spec-kit/area-service/internal/service"
	apperrors "github.com/spec-kit/area-service/pkg/util/errorutil"
)

// AreasHandler manages the caller's areas.
type AreasHandler struct {
	service *service.AreaService
}

// NewAreasHandler constructs handler.
func NewAreasHandler(areaService *service.AreaService) *AreasHandler {
	return &AreasHandler{service: areaService}
}

// Categories GET /api/areas/categories.
func (h *AreasHandler) Categories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": dto.AreaCategoriesResponse()})
}

// List GET /api/areas.
func (h *AreasHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	page, err := queryInt(c, "page", service.ErrPageInvalid)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", service.ErrLimitInvalid)
	if err != nil {
		return err
	}

	result, err := h.service.List(c.UserContext(), user, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// Create POST /api/areas.
func (h *AreasHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	in, err := parseAreaInput(c)
	if err != nil {
		return err
	}

	area, err := h.service.Add(c.UserContext(), user, in)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAreaResponse(area, user)})
}

// Get GET /api/areas/:id.
func (h *AreasHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	area, err := h.service.Get(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAreaResponse(area, user)})
}

// Update PATCH /api/areas/:id.
func (h *AreasHandler) Update(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	in, err := parseAreaInput(c)
	if err != nil {
		return err
	}

	area, err := h.service.Update(c.UserContext(), user, c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAreaResponse(area, user)})
}

// Delete DELETE /api/areas/:id.
func (h *AreasHandler) Delete(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	if _, err := h.service.Delete(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return nil, auth.ToHTTPError(auth.ErrTokenMissing)
	}
	return user, nil
}

func parseAreaInput(c *fiber.Ctx) (service.AreaInput, error) {
	var req dto.AreaWriteRequest
	if err := c.BodyParser(&req); err != nil {
		return service.AreaInput{}, apperrors.NewValidationError("invalid-payload", "invalid payload", nil)
	}

	in := service.AreaInput{
		Name:               req.Name,
		Location:           req.Location,
		LocationPoint:      req.LocationPoint,
		UpdatedAtTimestamp: req.UpdatedAtTimestamp,
	}
	if req.Category != nil {
		category := string(*req.Category)
		in.Category = &category
	}
	return in, nil
}

// queryInt returns 0 for an absent parameter.
func queryInt(c *fiber.Ctx, key string, invalid error) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid
	}
	return n, nil
}
