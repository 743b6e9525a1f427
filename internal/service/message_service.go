package service

import (
	"context"

	"murmur/internal/events"
	"murmur/internal/models"
	"murmur/internal/observability"
	"murmur/internal/repository"
)

// MessageService appends to and reads conversation message logs.
type MessageService struct {
	store  repository.Store
	events events.Publisher
}

// NewMessageService returns a new MessageService.
func NewMessageService(store repository.Store, publisher events.Publisher) *MessageService {
	return &MessageService{
		store:  store,
		events: publisher,
	}
}

// List returns the conversation's messages oldest first. A missing
// conversation or a caller who is not a participant yields an empty list, so
// the response does not reveal whether the conversation exists.
func (s *MessageService) List(ctx context.Context, userID, conversationID uint) ([]models.Message, error) {
	conv, err := s.store.Conversations().GetByID(ctx, conversationID)
	if models.IsCode(err, models.CodeNotFound) {
		return []models.Message{}, nil
	}
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return []models.Message{}, nil
	}
	return s.store.Messages().ListByConversation(ctx, conversationID)
}

// Send appends content, unmodified, as a message by userID.
func (s *MessageService) Send(ctx context.Context, userID, conversationID uint, content string) (msg *models.Message, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "MessageService", "Send", userAttr(userID), conversationAttr(conversationID))
	defer span.Finish(&err)

	var recipients []uint
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		conv, err := tx.Conversations().GetByIDForUpdate(ctx, conversationID)
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewUnauthorizedError("Not authorized")
		}
		if err != nil {
			return err
		}
		if !conv.HasParticipant(userID) {
			return models.NewUnauthorizedError("Not authorized")
		}

		msg = &models.Message{
			ConversationID: conversationID,
			AuthorID:       userID,
			Content:        content,
		}
		recipients = conv.ParticipantIDs()
		return tx.Messages().Create(ctx, msg)
	})
	if err != nil {
		return nil, err
	}

	observability.MessagesSentTotal.Inc()
	events.Emit(ctx, s.events, events.New(events.MessageSent, events.ConversationKey(conversationID), recipients, msg))
	return msg, nil
}
