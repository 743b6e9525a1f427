package server

import (
	"murmur/internal/middleware"
	"murmur/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SendFriendRequest handles POST /api/friends/requests
// @Summary Send a friend request
// @Description Re-opens an existing declined or accepted request instead of creating a new one.
// @Tags friends
// @Accept json
// @Produce json
// @Param request body object{recipient_username=string} true "Recipient"
// @Success 201 {object} models.FriendRequest
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /friends/requests [post]
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	var req struct {
		RecipientUsername string `json:"recipient_username"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	if req.RecipientUsername == "" {
		return models.RespondWithAppError(c, models.NewValidationError("recipient_username is required"))
	}

	request, err := s.friendService.SendRequest(c.UserContext(), currentUser(c), req.RecipientUsername)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

// RespondToFriendRequest handles POST /api/friends/requests/:requestId/respond
// @Summary Accept or decline a friend request
// @Description Accepting opens a new DM between the two users.
// @Tags friends
// @Accept json
// @Produce json
// @Param requestId path int true "Request ID"
// @Param request body object{accept=bool} true "Decision"
// @Success 200 {object} service.RespondResult
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /friends/requests/{requestId}/respond [post]
func (s *Server) RespondToFriendRequest(c *fiber.Ctx) error {
	requestID, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}
	var req struct {
		Accept *bool `json:"accept"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	if req.Accept == nil {
		return models.RespondWithAppError(c, models.NewValidationError("accept is required"))
	}

	result, err := s.friendService.Respond(c.UserContext(), currentUser(c), requestID, *req.Accept)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}

// GetPendingRequests handles GET /api/friends/requests
// @Summary List pending friend requests addressed to me
// @Tags friends
// @Produce json
// @Success 200 {array} models.FriendRequest
// @Router /friends/requests [get]
func (s *Server) GetPendingRequests(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON([]models.FriendRequest{})
	}

	requests, err := s.friendService.PendingRequests(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(requests)
}

// GetFriends handles GET /api/friends
// @Summary List my friends
// @Tags friends
// @Produce json
// @Success 200 {array} models.Friend
// @Router /friends [get]
func (s *Server) GetFriends(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON([]models.Friend{})
	}

	friends, err := s.friendService.Friends(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(friends)
}

// RemoveFriend handles DELETE /api/friends/:friendId
// @Summary Remove a friend
// @Description Declines the friendship and deletes every DM between the pair with its messages.
// @Tags friends
// @Produce json
// @Param friendId path int true "Friend user ID"
// @Success 200 {object} service.RemoveResult
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /friends/{friendId} [delete]
func (s *Server) RemoveFriend(c *fiber.Ctx) error {
	friendID, err := s.parseID(c, "friendId")
	if err != nil {
		return nil
	}

	result, err := s.friendService.Remove(c.UserContext(), currentUser(c), friendID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}
