package server

import (
	"murmur/internal/middleware"
	"murmur/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetConversations handles GET /api/conversations
// @Summary List my conversations
// @Description Participants are resolved to usernames. Anonymous callers get an empty list.
// @Tags conversations
// @Produce json
// @Success 200 {array} models.ConversationView
// @Router /conversations [get]
func (s *Server) GetConversations(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON([]models.ConversationView{})
	}

	views, err := s.conversationService.List(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(views)
}

// CreateGroup handles POST /api/conversations/groups
// @Summary Create a group
// @Tags conversations
// @Produce json
// @Success 201 {object} object{id=int}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/groups [post]
func (s *Server) CreateGroup(c *fiber.Ctx) error {
	conv, err := s.conversationService.CreateGroup(c.UserContext(), currentUser(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": conv.ID})
}

// AddMembers handles POST /api/conversations/:id/members
// @Summary Add members to a group
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path int true "Conversation ID"
// @Param request body object{member_ids=[]int} true "Members to add"
// @Success 200 {object} object{added=[]int}
// @Failure 403 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/{id}/members [post]
func (s *Server) AddMembers(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		MemberIDs []uint `json:"member_ids"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	added, err := s.conversationService.AddMembers(c.UserContext(), currentUser(c), convID, req.MemberIDs)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"added": added})
}

// LeaveGroup handles POST /api/conversations/:id/leave
// @Summary Leave a group
// @Description The last member leaving deletes the group and its messages.
// @Tags conversations
// @Produce json
// @Param id path int true "Conversation ID"
// @Success 200 {object} service.LeaveResult
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/{id}/leave [post]
func (s *Server) LeaveGroup(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.conversationService.Leave(c.UserContext(), currentUser(c), convID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}

// UpdateGroup handles PATCH /api/conversations/:id
// @Summary Rename a group or change its icon
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path int true "Conversation ID"
// @Param request body models.ConversationUpdate true "Fields to change"
// @Success 200 {object} models.Conversation
// @Failure 403 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/{id} [patch]
func (s *Server) UpdateGroup(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req models.ConversationUpdate
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	conv, err := s.conversationService.UpdateGroup(c.UserContext(), currentUser(c), convID, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(conv)
}
