package service

import (
	"context"
	"fmt"

	"murmur/internal/events"
	"murmur/internal/models"
	"murmur/internal/observability"
	"murmur/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// ConversationService manages DM and group conversations and their membership.
type ConversationService struct {
	store  repository.Store
	events events.Publisher
}

// NewConversationService returns a new ConversationService.
func NewConversationService(store repository.Store, publisher events.Publisher) *ConversationService {
	return &ConversationService{
		store:  store,
		events: publisher,
	}
}

// LeaveResult reports whether leaving emptied and deleted the group.
type LeaveResult struct {
	Deleted         bool  `json:"deleted"`
	DeletedMessages int64 `json:"deleted_messages"`
}

// List returns the conversations userID participates in, with participants
// resolved to usernames.
func (s *ConversationService) List(ctx context.Context, userID uint) ([]models.ConversationView, error) {
	convs, err := s.store.Conversations().ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var ids []uint
	for i := range convs {
		ids = append(ids, convs[i].ParticipantIDs()...)
	}
	profiles, err := lookupProfiles(ctx, s.store.Profiles(), ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(profiles))
	for id, p := range profiles {
		names[id] = p.Username
	}

	views := make([]models.ConversationView, 0, len(convs))
	for i := range convs {
		views = append(views, convs[i].View(names))
	}
	return views, nil
}

// CreateGroup creates a group named after the caller with the caller as its
// only member.
func (s *ConversationService) CreateGroup(ctx context.Context, userID uint) (conv *models.Conversation, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ConversationService", "CreateGroup", userAttr(userID))
	defer span.Finish(&err)

	profile, err := s.store.Profiles().GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, models.NewNotFoundError("Profile", userID)
	}

	name := fmt.Sprintf("%s's Group", profile.Username)
	conv = &models.Conversation{
		Type:        models.ConversationGroup,
		Name:        &name,
		InitiatorID: userID,
		Icon:        models.DefaultConversationIcon,
	}
	if err := s.store.Conversations().Create(ctx, conv, userID); err != nil {
		return nil, err
	}

	s.emit(ctx, events.ConversationCreated, conv.ID, conv.ParticipantIDs())
	return conv, nil
}

// AddMembers merges memberIDs into a group the caller belongs to and returns
// the ids that were newly added.
func (s *ConversationService) AddMembers(ctx context.Context, userID, conversationID uint, memberIDs []uint) (added []uint, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ConversationService", "AddMembers",
		userAttr(userID), conversationAttr(conversationID), attribute.Int("members.count", len(memberIDs)))
	defer span.Finish(&err)

	for _, id := range memberIDs {
		if id == 0 {
			return nil, models.NewValidationError("Invalid member id")
		}
	}

	var participants []uint
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		conv, err := memberGroup(ctx, tx, userID, conversationID)
		if err != nil {
			return err
		}
		added, err = tx.Conversations().AddParticipants(ctx, conv.ID, memberIDs)
		if err != nil {
			return err
		}
		participants = append(conv.ParticipantIDs(), added...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if added == nil {
		added = []uint{}
	}
	if len(added) > 0 {
		s.emit(ctx, events.ConversationUpdated, conversationID, participants)
	}
	return added, nil
}

// Leave removes the caller from a group. The last member leaving deletes the
// group and all of its messages.
func (s *ConversationService) Leave(ctx context.Context, userID, conversationID uint) (result *LeaveResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ConversationService", "Leave", userAttr(userID), conversationAttr(conversationID))
	defer span.Finish(&err)

	result = &LeaveResult{}
	var remaining []uint
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		conv, err := memberGroup(ctx, tx, userID, conversationID)
		if err != nil {
			return err
		}
		left, err := tx.Conversations().RemoveParticipant(ctx, conv.ID, userID)
		if err != nil {
			return err
		}
		if left > 0 {
			for _, id := range conv.ParticipantIDs() {
				if id != userID {
					remaining = append(remaining, id)
				}
			}
			return nil
		}

		n, err := tx.Messages().DeleteByConversation(ctx, conv.ID)
		if err != nil {
			return err
		}
		if err := tx.Conversations().Delete(ctx, conv.ID); err != nil {
			return err
		}
		result.Deleted = true
		result.DeletedMessages = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Deleted {
		observability.ConversationsDeletedTotal.WithLabelValues("empty_group").Inc()
		s.emit(ctx, events.ConversationDeleted, conversationID, []uint{userID})
	} else {
		s.emit(ctx, events.ConversationUpdated, conversationID, append(remaining, userID))
	}
	return result, nil
}

// UpdateGroup changes the provided name and/or icon of a group the caller belongs to.
func (s *ConversationService) UpdateGroup(ctx context.Context, userID, conversationID uint, update models.ConversationUpdate) (conv *models.Conversation, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ConversationService", "UpdateGroup", userAttr(userID), conversationAttr(conversationID))
	defer span.Finish(&err)

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		conv, err = memberGroup(ctx, tx, userID, conversationID)
		if err != nil {
			return err
		}
		if update.Empty() {
			return nil
		}
		if err := tx.Conversations().Update(ctx, conv.ID, update.Columns()); err != nil {
			return err
		}
		conv, err = tx.Conversations().GetByID(ctx, conv.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !update.Empty() {
		s.emit(ctx, events.ConversationUpdated, conv.ID, conv.ParticipantIDs())
	}
	return conv, nil
}

func (s *ConversationService) emit(ctx context.Context, t events.Type, conversationID uint, recipients []uint) {
	events.Emit(ctx, s.events, events.New(t, events.ConversationKey(conversationID), recipients,
		map[string]uint{"conversation_id": conversationID}))
}

// memberGroup locks and loads a conversation for a group mutation by userID,
// checking existence, membership and type in that order.
func memberGroup(ctx context.Context, tx repository.Store, userID, conversationID uint) (*models.Conversation, error) {
	conv, err := tx.Conversations().GetByIDForUpdate(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, models.NewUnauthorizedError("Not a member of this conversation")
	}
	if !conv.IsGroup() {
		return nil, models.NewInvalidStateError("Conversation is not a group")
	}
	return conv, nil
}

func conversationAttr(conversationID uint) attribute.KeyValue {
	return attribute.Int64("conversation.id", int64(conversationID))
}
