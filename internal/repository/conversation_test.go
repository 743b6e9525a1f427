package repository

import (
	"context"
	"errors"
	"testing"

	"murmur/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newDM(a, b uint) *models.Conversation {
	key := models.DMPairKey(a, b)
	return &models.Conversation{
		Type:        models.ConversationDM,
		InitiatorID: a,
		Icon:        models.DefaultConversationIcon,
		DMPairKey:   &key,
	}
}

func newGroup(owner uint, name string) *models.Conversation {
	return &models.Conversation{
		Type:        models.ConversationGroup,
		Name:        &name,
		InitiatorID: owner,
		Icon:        models.DefaultConversationIcon,
	}
}

func TestConversationRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()

	dm := newDM(2, 1)
	require.NoError(t, repo.Create(ctx, dm, 2, 1))
	group := newGroup(1, "alice's Group")
	require.NoError(t, repo.Create(ctx, group, 1))

	t.Run("GetByID loads participants in join order", func(t *testing.T) {
		got, err := repo.GetByID(ctx, dm.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{2, 1}, got.ParticipantIDs())
		assert.Equal(t, "1:2", *got.DMPairKey)

		_, err = repo.GetByID(ctx, 12345)
		assert.True(t, models.IsCode(err, models.CodeNotFound))
	})

	t.Run("ListForUser", func(t *testing.T) {
		forOne, err := repo.ListForUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, forOne, 2)
		assert.Equal(t, dm.ID, forOne[0].ID)
		assert.Equal(t, group.ID, forOne[1].ID)
		assert.Len(t, forOne[0].Participants, 2)

		forTwo, err := repo.ListForUser(ctx, 2)
		require.NoError(t, err)
		require.Len(t, forTwo, 1)
		assert.Equal(t, models.ConversationDM, forTwo[0].Type)

		forNobody, err := repo.ListForUser(ctx, 3)
		require.NoError(t, err)
		assert.Empty(t, forNobody)
	})

	t.Run("AddParticipants is a set union", func(t *testing.T) {
		added, err := repo.AddParticipants(ctx, group.ID, []uint{3, 1, 3, 4})
		require.NoError(t, err)
		assert.Equal(t, []uint{3, 4}, added)

		again, err := repo.AddParticipants(ctx, group.ID, []uint{3, 4})
		require.NoError(t, err)
		assert.Empty(t, again)

		got, err := repo.GetByID(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{1, 3, 4}, got.ParticipantIDs())
	})

	t.Run("RemoveParticipant counts remaining", func(t *testing.T) {
		remaining, err := repo.RemoveParticipant(ctx, group.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(2), remaining)

		got, err := repo.GetByID(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, []uint{1, 4}, got.ParticipantIDs())
	})

	t.Run("Update", func(t *testing.T) {
		require.NoError(t, repo.Update(ctx, group.ID, map[string]interface{}{"icon": "img-7"}))

		got, err := repo.GetByID(ctx, group.ID)
		require.NoError(t, err)
		assert.Equal(t, "img-7", got.Icon)
		assert.Equal(t, "alice's Group", *got.Name)
	})

	t.Run("GetByIDForUpdate inside a transaction", func(t *testing.T) {
		err := db.Transaction(func(tx *gorm.DB) error {
			got, err := NewConversationRepository(tx).GetByIDForUpdate(ctx, dm.ID)
			if err != nil {
				return err
			}
			assert.Equal(t, []uint{2, 1}, got.ParticipantIDs())

			_, err = NewConversationRepository(tx).GetByIDForUpdate(ctx, 12345)
			assert.True(t, models.IsCode(err, models.CodeNotFound))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("ListDMsByPair ignores argument order", func(t *testing.T) {
		second := newDM(1, 2)
		require.NoError(t, repo.Create(ctx, second, 1, 2))

		dms, err := repo.ListDMsByPair(ctx, 1, 2)
		require.NoError(t, err)
		assert.Len(t, dms, 2)

		other, err := repo.ListDMsByPair(ctx, 1, 3)
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("Delete removes participants", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, dm.ID))

		_, err := repo.GetByID(ctx, dm.ID)
		assert.True(t, models.IsCode(err, models.CodeNotFound))

		var count int64
		require.NoError(t, db.Model(&models.ConversationParticipant{}).Where("conversation_id = ?", dm.ID).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestConversationRepository_GetByIDForUpdateLocksRow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewConversationRepository(db)

	mock.ExpectQuery(`SELECT "id" FROM "conversations" WHERE "conversations"."id" = \$1 .*FOR UPDATE`).
		WillReturnError(errors.New("lock timeout"))

	conv, err := repo.GetByIDForUpdate(context.Background(), 7)
	assert.Nil(t, conv)
	assert.True(t, models.IsCode(err, models.CodeInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}
