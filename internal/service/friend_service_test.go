package service

import (
	"context"
	"testing"

	"murmur/internal/events"
	"murmur/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFriendFlow_RequestAcceptMessage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.createProfile(t, 1, "A")
	env.createProfile(t, 2, "bob")

	_, err := env.friends.SendRequest(ctx, 1, "bob")
	require.NoError(t, err)

	pending, err := env.friends.PendingRequests(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "A", pending[0].SenderUsername)

	_, err = env.friends.Respond(ctx, 2, pending[0].ID, true)
	require.NoError(t, err)

	convs, err := env.conversations.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, models.ConversationDM, convs[0].Type)
	assert.Equal(t, uint(2), convs[0].InitiatorID)
	assert.ElementsMatch(t, []models.ParticipantSummary{{ID: 1, Username: "A"}, {ID: 2, Username: "bob"}}, convs[0].Participants)

	_, err = env.messages.Send(ctx, 1, convs[0].ID, "hello")
	require.NoError(t, err)

	msgs, err := env.messages.List(ctx, 2, convs[0].ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, uint(1), msgs[0].AuthorID)
	assert.Equal(t, "hello", msgs[0].Content)

	friendsOfA, err := env.friends.Friends(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.Friend{{UserID: 2, Username: "bob"}}, friendsOfA)

	assert.Equal(t, []events.Type{
		events.FriendRequestSent,
		events.FriendRequestResponded,
		events.ConversationCreated,
		events.MessageSent,
	}, env.pub.types())
}

func TestFriendService_SendRequest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.createProfile(t, 1, "alice")
	env.createProfile(t, 2, "bob")

	_, err := env.friends.SendRequest(ctx, 1, "nobody")
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	_, err = env.friends.SendRequest(ctx, 9, "bob")
	assert.True(t, models.IsCode(err, models.CodeNotFound), "sender without a profile")

	_, err = env.friends.SendRequest(ctx, 1, "alice")
	assert.True(t, models.IsCode(err, models.CodeInvalidState))

	first, err := env.friends.SendRequest(ctx, 1, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestPending, first.Status)
	assert.Equal(t, "alice", first.SenderUsername)
	assert.Equal(t, "bob", first.RecipientUsername)

	_, err = env.friends.SendRequest(ctx, 1, "bob")
	assert.True(t, models.IsCode(err, models.CodeConflict))

	_, err = env.friends.Respond(ctx, 2, first.ID, false)
	require.NoError(t, err)

	again, err := env.friends.SendRequest(ctx, 1, "bob")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "declined request is re-opened, not duplicated")
	assert.Equal(t, models.FriendRequestPending, again.Status)

	pending, err := env.friends.PendingRequests(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

}

func TestFriendService_SendRequestReopensAccepted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.createProfile(t, 1, "alice")
	env.createProfile(t, 2, "bob")
	dm := env.befriend(t, 1, 2, "bob")
	_, err := env.messages.Send(ctx, 1, dm.ID, "hi")
	require.NoError(t, err)

	again, err := env.friends.SendRequest(ctx, 1, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestPending, again.Status)

	pending, err := env.friends.PendingRequests(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, again.ID, pending[0].ID)

	friends, err := env.friends.Friends(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, friends)

	convs, err := env.conversations.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, convs, 1, "existing DM is kept")
	msgs, err := env.messages.List(ctx, 2, dm.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	_, err = env.friends.SendRequest(ctx, 1, "bob")
	assert.True(t, models.IsCode(err, models.CodeConflict), "re-opened request is pending again")

	res, err := env.friends.Respond(ctx, 2, again.ID, true)
	require.NoError(t, err)
	require.NotNil(t, res.Conversation)
	convs, err = env.conversations.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, convs, 2)
}

func TestFriendService_Respond(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.createProfile(t, 1, "alice")
	env.createProfile(t, 2, "bob")

	_, err := env.friends.Respond(ctx, 2, 404, true)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	req, err := env.friends.SendRequest(ctx, 1, "bob")
	require.NoError(t, err)

	_, err = env.friends.Respond(ctx, 1, req.ID, true)
	assert.True(t, models.IsCode(err, models.CodeUnauthorized), "sender cannot answer their own request")

	res, err := env.friends.Respond(ctx, 2, req.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.FriendRequestDeclined, res.Request.Status)
	assert.Nil(t, res.Conversation)

	convs, err := env.conversations.List(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, convs)

	pending, err := env.friends.PendingRequests(ctx, 2)
	require.NoError(t, err)
	assert.NotNil(t, pending)
	assert.Empty(t, pending)
}

func TestFriendService_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("declines and tears down the DM", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.createProfile(t, 1, "alice")
		env.createProfile(t, 2, "bob")
		dm := env.befriend(t, 1, 2, "bob")
		_, err := env.messages.Send(ctx, 2, dm.ID, "hey")
		require.NoError(t, err)

		res, err := env.friends.Remove(ctx, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Declined)
		assert.Equal(t, []uint{dm.ID}, res.DeletedConversations)
		assert.Equal(t, int64(1), res.DeletedMessages)

		dms, err := env.store.Conversations().ListDMsByPair(ctx, 1, 2)
		require.NoError(t, err)
		assert.Empty(t, dms)
		msgs, err := env.store.Messages().ListByConversation(ctx, dm.ID)
		require.NoError(t, err)
		assert.Empty(t, msgs)

		friends, err := env.friends.Friends(ctx, 2)
		require.NoError(t, err)
		assert.Empty(t, friends)

		req, err := env.store.Friends().GetByPair(ctx, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, models.FriendRequestDeclined, req.Status, "request rows are kept")
	})

	t.Run("re-befriending opens a fresh DM", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.createProfile(t, 1, "alice")
		env.createProfile(t, 2, "bob")
		first := env.befriend(t, 1, 2, "bob")
		_, err := env.messages.Send(ctx, 1, first.ID, "before")
		require.NoError(t, err)
		_, err = env.friends.Remove(ctx, 2, 1)
		require.NoError(t, err)

		second := env.befriend(t, 1, 2, "bob")
		assert.ElementsMatch(t, []uint{1, 2}, second.ParticipantIDs())

		dms, err := env.store.Conversations().ListDMsByPair(ctx, 1, 2)
		require.NoError(t, err)
		require.Len(t, dms, 1)
		assert.Equal(t, second.ID, dms[0].ID)
		assert.Equal(t, uint(2), first.InitiatorID)
		msgs, err := env.messages.List(ctx, 1, second.ID)
		require.NoError(t, err)
		assert.Empty(t, msgs, "history does not carry over")
	})

	t.Run("runs the DM cleanup without a friendship", func(t *testing.T) {
		env := newTestEnv(t, nil)
		key := models.DMPairKey(1, 3)
		orphan := &models.Conversation{Type: models.ConversationDM, InitiatorID: 1, Icon: models.DefaultConversationIcon, DMPairKey: &key}
		require.NoError(t, env.store.Conversations().Create(ctx, orphan, 1, 3))

		res, err := env.friends.Remove(ctx, 3, 1)
		require.NoError(t, err)
		assert.Zero(t, res.Declined)
		assert.Equal(t, []uint{orphan.ID}, res.DeletedConversations)
	})

	t.Run("rejects a zero friend id", func(t *testing.T) {
		env := newTestEnv(t, nil)
		_, err := env.friends.Remove(ctx, 1, 0)
		assert.True(t, models.IsCode(err, models.CodeValidation))
	})
}

func TestFriendService_FriendsDedupesBothDirections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.createProfile(t, 1, "alice")
	env.createProfile(t, 2, "bob")

	env.befriend(t, 1, 2, "bob")
	env.befriend(t, 2, 1, "alice")

	friends, err := env.friends.Friends(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.Friend{{UserID: 2, Username: "bob"}}, friends)

	dms, err := env.store.Conversations().ListDMsByPair(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, dms, 2, "each acceptance opens its own DM")

	res, err := env.friends.Remove(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Declined)
	assert.Len(t, res.DeletedConversations, 2)
}
