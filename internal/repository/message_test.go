package repository

import (
	"context"
	"testing"
	"time"

	"murmur/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	convs := NewConversationRepository(db)
	ctx := context.Background()

	general, other, quiet := newGroup(1, "general"), newGroup(1, "other"), newGroup(1, "quiet")
	for _, c := range []*models.Conversation{general, other, quiet} {
		require.NoError(t, convs.Create(ctx, c, 1, 2))
	}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msgs := []*models.Message{
		{ConversationID: general.ID, AuthorID: 1, Content: "second", CreatedAt: at.Add(time.Second)},
		{ConversationID: general.ID, AuthorID: 2, Content: "first", CreatedAt: at},
		{ConversationID: general.ID, AuthorID: 1, Content: "third", CreatedAt: at.Add(time.Second)},
		{ConversationID: other.ID, AuthorID: 1, Content: "elsewhere", CreatedAt: at},
	}
	for _, m := range msgs {
		require.NoError(t, repo.Create(ctx, m))
	}

	t.Run("ListByConversation is oldest first", func(t *testing.T) {
		got, err := repo.ListByConversation(ctx, general.ID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "first", got[0].Content)
		assert.Equal(t, "second", got[1].Content)
		assert.Equal(t, "third", got[2].Content)
	})

	t.Run("empty content is stored", func(t *testing.T) {
		blank := &models.Message{ConversationID: quiet.ID, AuthorID: 1, Content: "  "}
		require.NoError(t, repo.Create(ctx, blank))

		got, err := repo.ListByConversation(ctx, quiet.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "  ", got[0].Content)
	})

	t.Run("DeleteByConversation", func(t *testing.T) {
		n, err := repo.DeleteByConversation(ctx, general.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		got, err := repo.ListByConversation(ctx, general.ID)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)

		rest, err := repo.ListByConversation(ctx, other.ID)
		require.NoError(t, err)
		assert.Len(t, rest, 1)
	})

	t.Run("a message needs an existing conversation", func(t *testing.T) {
		err := repo.Create(ctx, &models.Message{ConversationID: 424242, AuthorID: 1, Content: "lost"})
		assert.True(t, models.IsCode(err, models.CodeInternal))
	})

	t.Run("deleting a conversation removes its messages", func(t *testing.T) {
		require.NoError(t, convs.Delete(ctx, other.ID))

		var left int64
		require.NoError(t, db.Model(&models.Message{}).Where("conversation_id = ?", other.ID).Count(&left).Error)
		assert.Zero(t, left)
	})
}
