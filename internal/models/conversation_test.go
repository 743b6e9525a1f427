package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDMPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, "3:7", DMPairKey(3, 7))
	assert.Equal(t, "3:7", DMPairKey(7, 3))
}

func TestConversationParticipantIDsKeepsInsertionOrder(t *testing.T) {
	conv := Conversation{Participants: []ConversationParticipant{
		{UserID: 9, Position: 2},
		{UserID: 4, Position: 0},
		{UserID: 7, Position: 1},
	}}
	assert.Equal(t, []uint{4, 7, 9}, conv.ParticipantIDs())
	assert.True(t, conv.HasParticipant(7))
	assert.False(t, conv.HasParticipant(1))
}

func TestConversationViewResolvesUnknown(t *testing.T) {
	name := "g"
	conv := Conversation{ID: 3, Type: ConversationGroup, Name: &name, Icon: DefaultConversationIcon, Participants: []ConversationParticipant{
		{UserID: 1, Position: 0},
		{UserID: 2, Position: 1},
	}}
	view := conv.View(map[uint]string{1: "alice"})
	assert.Equal(t, []ParticipantSummary{{ID: 1, Username: "alice"}, {ID: 2, Username: UnknownUsername}}, view.Participants)
	assert.Equal(t, &name, view.Name)
}
