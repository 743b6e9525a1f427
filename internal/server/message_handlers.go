package server

import (
	"murmur/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMessages handles GET /api/conversations/:id/messages
// @Summary List messages, oldest first
// @Description Missing conversations and conversations the caller is not in both yield an empty list.
// @Tags messages
// @Produce json
// @Param id path int true "Conversation ID"
// @Success 200 {array} models.Message
// @Security BearerAuth
// @Router /conversations/{id}/messages [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	msgs, err := s.messageService.List(c.UserContext(), currentUser(c), convID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(msgs)
}

// SendMessage handles POST /api/conversations/:id/messages
// @Summary Send a message
// @Description Content is stored exactly as given.
// @Tags messages
// @Accept json
// @Produce json
// @Param id path int true "Conversation ID"
// @Param request body object{content=string} true "Message"
// @Success 201 {object} models.Message
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /conversations/{id}/messages [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	msg, err := s.messageService.Send(c.UserContext(), currentUser(c), convID, req.Content)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
