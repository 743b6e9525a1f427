package service

import (
	"context"

	"murmur/internal/events"
	"murmur/internal/models"
	"murmur/internal/observability"
	"murmur/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FriendService provides friend-request and friendship business logic.
type FriendService struct {
	store  repository.Store
	events events.Publisher
}

// NewFriendService returns a new FriendService.
func NewFriendService(store repository.Store, publisher events.Publisher) *FriendService {
	return &FriendService{
		store:  store,
		events: publisher,
	}
}

// RespondResult is the outcome of answering a friend request.
type RespondResult struct {
	Request *models.FriendRequest `json:"request"`
	// Conversation is the DM opened by an acceptance.
	Conversation *models.Conversation `json:"conversation,omitempty"`
}

// RemoveResult is the outcome of removing a friend.
type RemoveResult struct {
	Declined             int64  `json:"declined"`
	DeletedConversations []uint `json:"deleted_conversations"`
	DeletedMessages      int64  `json:"deleted_messages"`
}

// SendRequest sends a friend request from senderID to the profile named
// recipientUsername. An existing declined or accepted request is re-opened
// to pending in place; conversations between the pair are left alone.
func (s *FriendService) SendRequest(ctx context.Context, senderID uint, recipientUsername string) (request *models.FriendRequest, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "FriendService", "SendRequest", userAttr(senderID))
	defer span.Finish(&err)

	outcome := "sent"
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		sender, err := tx.Profiles().GetByUserID(ctx, senderID)
		if err != nil {
			return err
		}
		if sender == nil {
			return models.NewNotFoundError("Profile", senderID)
		}

		recipient, err := tx.Profiles().GetByUsername(ctx, recipientUsername)
		if err != nil {
			return err
		}
		if recipient == nil {
			return models.NewNotFoundError("User", recipientUsername)
		}
		if recipient.UserID == senderID {
			return models.NewInvalidStateError("Cannot send a friend request to yourself")
		}

		existing, err := tx.Friends().GetByPair(ctx, senderID, recipient.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Status == models.FriendRequestPending {
				return models.NewConflictError("Friend request already sent")
			}
			if err := tx.Friends().UpdateStatus(ctx, existing.ID, models.FriendRequestPending); err != nil {
				return err
			}
			existing.Status = models.FriendRequestPending
			request = existing
			outcome = "reactivated"
			return nil
		}

		request = &models.FriendRequest{
			SenderID:          senderID,
			SenderUsername:    sender.Username,
			RecipientID:       recipient.UserID,
			RecipientUsername: recipient.Username,
			Status:            models.FriendRequestPending,
		}
		return tx.Friends().Create(ctx, request)
	})
	if models.IsUniqueViolation(err) {
		err = models.NewConflictError("Friend request already sent")
	}
	if err != nil {
		return nil, err
	}

	observability.FriendRequestsTotal.WithLabelValues(outcome).Inc()
	events.Emit(ctx, s.events, events.New(events.FriendRequestSent, events.UserKey(request.RecipientID),
		[]uint{request.RecipientID, request.SenderID}, request))
	return request, nil
}

// Respond accepts or declines a request addressed to userID. Accepting opens
// a new DM between the two users.
func (s *FriendService) Respond(ctx context.Context, userID, requestID uint, accept bool) (result *RespondResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "FriendService", "Respond",
		userAttr(userID), attribute.Int64("friend_request.id", int64(requestID)), attribute.Bool("accept", accept))
	defer span.Finish(&err)

	result = &RespondResult{}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		request, err := tx.Friends().GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if request.RecipientID != userID {
			return models.NewUnauthorizedError("Not authorized to respond to this request")
		}

		status := models.FriendRequestDeclined
		if accept {
			status = models.FriendRequestAccepted
		}
		if err := tx.Friends().UpdateStatus(ctx, request.ID, status); err != nil {
			return err
		}
		request.Status = status
		result.Request = request

		if !accept {
			return nil
		}
		pairKey := models.DMPairKey(userID, request.SenderID)
		conv := &models.Conversation{
			Type:        models.ConversationDM,
			InitiatorID: userID,
			Icon:        models.DefaultConversationIcon,
			DMPairKey:   &pairKey,
		}
		if err := tx.Conversations().Create(ctx, conv, userID, request.SenderID); err != nil {
			return err
		}
		result.Conversation = conv
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.FriendRequestsTotal.WithLabelValues(string(result.Request.Status)).Inc()
	parties := []uint{result.Request.SenderID, result.Request.RecipientID}
	events.Emit(ctx, s.events, events.New(events.FriendRequestResponded, events.UserKey(result.Request.SenderID), parties, result.Request))
	if result.Conversation != nil {
		events.Emit(ctx, s.events, events.New(events.ConversationCreated, events.ConversationKey(result.Conversation.ID), parties,
			map[string]interface{}{"conversation_id": result.Conversation.ID, "type": result.Conversation.Type}))
	}
	return result, nil
}

// Remove ends the friendship between userID and friendID in one transaction:
// accepted requests in both directions become declined, and every DM between
// the pair is deleted together with its messages. The DM cleanup runs even
// when no accepted request existed.
func (s *FriendService) Remove(ctx context.Context, userID, friendID uint) (result *RemoveResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "FriendService", "Remove",
		userAttr(userID), attribute.Int64("friend.id", int64(friendID)))
	defer span.Finish(&err)

	if friendID == 0 {
		return nil, models.NewValidationError("Invalid friend id")
	}

	result = &RemoveResult{DeletedConversations: []uint{}}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		declined, err := tx.Friends().DeclineAccepted(ctx, userID, friendID)
		if err != nil {
			return err
		}
		result.Declined = declined

		dms, err := tx.Conversations().ListDMsByPair(ctx, userID, friendID)
		if err != nil {
			return err
		}
		for i := range dms {
			dm, err := tx.Conversations().GetByIDForUpdate(ctx, dms[i].ID)
			if models.IsCode(err, models.CodeNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !dm.HasParticipant(userID) || !dm.HasParticipant(friendID) {
				continue
			}
			n, err := tx.Messages().DeleteByConversation(ctx, dm.ID)
			if err != nil {
				return err
			}
			if err := tx.Conversations().Delete(ctx, dm.ID); err != nil {
				return err
			}
			result.DeletedMessages += n
			result.DeletedConversations = append(result.DeletedConversations, dm.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	parties := []uint{userID, friendID}
	observability.ConversationsDeletedTotal.WithLabelValues("unfriended").Add(float64(len(result.DeletedConversations)))
	events.Emit(ctx, s.events, events.New(events.FriendRemoved, events.UserKey(userID), parties,
		map[string]uint{"user_id": userID, "friend_id": friendID}))
	for _, id := range result.DeletedConversations {
		events.Emit(ctx, s.events, events.New(events.ConversationDeleted, events.ConversationKey(id), parties,
			map[string]uint{"conversation_id": id}))
	}
	return result, nil
}

// PendingRequests returns pending requests addressed to userID.
func (s *FriendService) PendingRequests(ctx context.Context, userID uint) ([]models.FriendRequest, error) {
	requests, err := s.store.Friends().ListPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []models.FriendRequest{}
	}
	return requests, nil
}

// Friends returns everyone with an accepted request to or from userID, once
// per person, using the usernames captured on the request.
func (s *FriendService) Friends(ctx context.Context, userID uint) ([]models.Friend, error) {
	accepted, err := s.store.Friends().ListAccepted(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]struct{}, len(accepted))
	friends := make([]models.Friend, 0, len(accepted))
	for i := range accepted {
		otherID, username := accepted[i].Other(userID)
		if _, ok := seen[otherID]; ok {
			continue
		}
		seen[otherID] = struct{}{}
		friends = append(friends, models.Friend{UserID: otherID, Username: username})
	}
	return friends, nil
}
