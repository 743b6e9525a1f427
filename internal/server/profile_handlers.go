package server

import (
	"murmur/internal/middleware"
	"murmur/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UsernameResponse carries a username, null when the caller has none.
type UsernameResponse struct {
	Username *string `json:"username"`
}

// GetUsername handles GET /api/users/me/username
// @Summary Get my username
// @Description Returns null for anonymous callers and callers without a profile.
// @Tags profiles
// @Produce json
// @Success 200 {object} UsernameResponse
// @Router /users/me/username [get]
func (s *Server) GetUsername(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(UsernameResponse{})
	}

	username, err := s.profileService.GetUsername(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(UsernameResponse{Username: username})
}

// GenerateUsername handles POST /api/users/me/username/generate
// @Summary Generate a username
// @Description Draws random usernames until a free one is found and assigns it, creating the profile if needed.
// @Tags profiles
// @Produce json
// @Success 200 {object} UsernameResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/me/username/generate [post]
func (s *Server) GenerateUsername(c *fiber.Ctx) error {
	username, err := s.profileService.GenerateUsername(c.UserContext(), currentUser(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(UsernameResponse{Username: &username})
}

// UpdateUsername handles PUT /api/users/me/username
// @Summary Set my username
// @Tags profiles
// @Accept json
// @Produce json
// @Param request body object{username=string} true "New username"
// @Success 200 {object} UsernameResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/me/username [put]
func (s *Server) UpdateUsername(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	if err := s.profileService.SetUsername(c.UserContext(), currentUser(c), req.Username); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(UsernameResponse{Username: &req.Username})
}

// UpdateProfile handles PATCH /api/users/me/profile
// @Summary Update my profile
// @Description Partial update; omitted fields are unchanged. extended must be a JSON document.
// @Tags profiles
// @Accept json
// @Produce json
// @Param request body models.ProfileUpdate true "Profile fields"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/me/profile [patch]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req models.ProfileUpdate
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	profile, err := s.profileService.UpdateProfile(c.UserContext(), currentUser(c), req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(profile)
}

// GetMyProfile handles GET /api/users/me/profile
// @Summary Get my profile
// @Tags profiles
// @Produce json
// @Success 200 {object} models.Profile
// @Router /users/me/profile [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(nil)
	}
	return s.writeProfile(c, userID)
}

// GetUserProfile handles GET /api/users/:userId/profile
// @Summary Get a user's profile
// @Description Returns null for anonymous callers and users without a profile.
// @Tags profiles
// @Produce json
// @Param userId path int true "User ID"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Router /users/{userId}/profile [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	if _, ok := middleware.UserID(c); !ok {
		return c.JSON(nil)
	}
	return s.writeProfile(c, targetID)
}

func (s *Server) writeProfile(c *fiber.Ctx, userID uint) error {
	profile, err := s.profileService.GetProfile(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if profile == nil {
		return c.JSON(nil)
	}
	return c.JSON(profile)
}
