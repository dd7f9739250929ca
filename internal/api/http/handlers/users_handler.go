package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/area-service/internal/api/dto"
	"github.com/spec-kit/area-service/internal/auth"
	"github.com/spec-kit/area-service/internal/service"
	apperrors "github.com/spec-kit/area-service/pkg/util/errorutil"
)

// UsersHandler exposes account and token endpoints.
type UsersHandler struct {
	auth    *service.AuthService
	access  auth.Locations
	refresh auth.Locations
}

// NewUsersHandler constructs handler. The first header of each location list
// is used when returning tokens.
func NewUsersHandler(authService *service.AuthService, access, refresh auth.Locations) *UsersHandler {
	return &UsersHandler{auth: authService, access: access, refresh: refresh}
}

// Register handles POST /api/user/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid-payload", "invalid payload", nil)
	}

	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserProfile(user)})
}

// Login handles POST /api/user/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid-payload", "invalid payload", nil)
	}
	if req.Username == "" || req.Password == "" {
		return service.ErrUserLoginFailed
	}

	res, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	setHeader(c, h.access, res.AccessToken)
	setHeader(c, h.refresh, res.RefreshToken)
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		User:                  dto.NewUserProfile(res.User),
		AccessToken:           res.AccessToken,
		AccessTokenExpiresAt:  res.AccessExpiresAt,
		RefreshToken:          res.RefreshToken,
		RefreshTokenExpiresAt: res.RefreshExpiresAt,
	}})
}

// Refresh handles POST /api/user/refresh.
func (h *UsersHandler) Refresh(c *fiber.Ctx) error {
	raw, err := auth.Extract(auth.FiberSource(c), h.refresh)
	if err != nil {
		return auth.ToHTTPError(err)
	}

	token, exp, err := h.auth.Refresh(c.UserContext(), raw)
	if err != nil {
		return auth.ToHTTPError(err)
	}

	setHeader(c, h.access, token)
	return c.JSON(fiber.Map{"data": dto.RefreshResponse{
		AccessToken:          token,
		AccessTokenExpiresAt: exp,
	}})
}

// Logout handles POST /api/user/logout.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	raw, err := auth.Extract(auth.FiberSource(c), h.refresh)
	if err != nil {
		return auth.ToHTTPError(err)
	}
	if err := h.auth.Logout(c.UserContext(), raw); err != nil {
		return auth.ToHTTPError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me handles GET /api/user.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return auth.ToHTTPError(auth.ErrTokenMissing)
	}
	return c.JSON(fiber.Map{"data": dto.NewUserProfile(user)})
}

func setHeader(c *fiber.Ctx, loc auth.Locations, token string) {
	if len(loc.Headers) > 0 {
		c.Set(loc.Headers[0], token)
	}
}
