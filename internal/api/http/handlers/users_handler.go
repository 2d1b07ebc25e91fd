package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/job-tracker/internal/api/dto"
	"github.com/spec-kit/job-tracker/internal/service"
)

// UsersHandler exposes profile and account administration endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// Profile GET /api/users/me/profile.
func (h *UsersHandler) Profile(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	user, err := h.users.Profile(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// UpdateProfile PUT /api/users/me/profile.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	var in service.UpdateUserInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.users.UpdateProfile(c.UserContext(), identity, in)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// ChangePassword POST /api/users/:id/change-password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	var in service.ChangePasswordInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	if err := h.users.ChangePassword(c.UserContext(), identity, c.Params("id"), in); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "password changed successfully"})
}

// List GET /api/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	users, err := h.users.List(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponses(users))
}

// Get GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Update PUT /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	var in service.UpdateUserInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), identity, c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Delete DELETE /api/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.UserContext(), identity, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "user deleted"})
}
