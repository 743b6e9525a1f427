package models

import (
	"fmt"
	"sort"
	"time"
)

// ConversationType distinguishes two-party DMs from groups.
type ConversationType string

const (
	// ConversationDM has exactly two fixed participants.
	ConversationDM ConversationType = "dm"
	// ConversationGroup has one or more participants and a mutable name/icon.
	ConversationGroup ConversationType = "group"
)

// DefaultConversationIcon is the icon sentinel for new conversations.
const DefaultConversationIcon = "default"

// Conversation represents a DM or group chat.
type Conversation struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Type        ConversationType `gorm:"type:varchar(10);not null" json:"type"`
	Name        *string          `gorm:"size:255" json:"name,omitempty"`
	InitiatorID uint             `gorm:"not null" json:"initiator_id"`
	Icon        string           `gorm:"size:512;not null;default:'default'" json:"icon"`
	// DMPairKey is set for dm rows only and indexes the sorted participant pair.
	DMPairKey *string   `gorm:"size:64;index:idx_conversations_dm_pair_key" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"-"`
	Messages     []Message                 `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Conversation) TableName() string {
	return "conversations"
}

// IsGroup reports whether the conversation is a group.
func (c *Conversation) IsGroup() bool {
	return c.Type == ConversationGroup
}

// ParticipantIDs returns member ids in insertion order.
func (c *Conversation) ParticipantIDs() []uint {
	members := make([]ConversationParticipant, len(c.Participants))
	copy(members, c.Participants)
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Position < members[j].Position
	})
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// HasParticipant reports whether userID is a member.
func (c *Conversation) HasParticipant(userID uint) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// ConversationParticipant is the user->conversation membership row.
type ConversationParticipant struct {
	ConversationID uint      `gorm:"primaryKey;autoIncrement:false" json:"conversation_id"`
	UserID         uint      `gorm:"primaryKey;autoIncrement:false;index:idx_conversation_participants_user_id" json:"user_id"`
	Position       int       `gorm:"not null;default:0" json:"position"`
	JoinedAt       time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// TableName specifies the table name for GORM
func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}

// DMPairKey returns the order-independent key for a pair of identities.
func DMPairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// ParticipantSummary is a participant id resolved to its current username.
type ParticipantSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// ConversationView is a conversation as listed to one of its members.
type ConversationView struct {
	ID           uint                 `json:"id"`
	Type         ConversationType     `json:"type"`
	Name         *string              `json:"name,omitempty"`
	InitiatorID  uint                 `json:"initiator_id"`
	Icon         string               `json:"icon"`
	Participants []ParticipantSummary `json:"participants"`
	CreatedAt    time.Time            `json:"created_at"`
}

// ConversationUpdate carries a partial group metadata update.
type ConversationUpdate struct {
	Name *string `json:"name,omitempty"`
	Icon *string `json:"icon,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ConversationUpdate) Empty() bool {
	return u.Name == nil && u.Icon == nil
}

// Columns returns the column/value pairs the update writes.
func (u ConversationUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 2)
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Icon != nil {
		cols["icon"] = *u.Icon
	}
	return cols
}

// View resolves participants through usernames; unknown ids render as UnknownUsername.
func (c *Conversation) View(usernames map[uint]string) ConversationView {
	ids := c.ParticipantIDs()
	view := ConversationView{
		ID:           c.ID,
		Type:         c.Type,
		Name:         c.Name,
		InitiatorID:  c.InitiatorID,
		Icon:         c.Icon,
		Participants: make([]ParticipantSummary, 0, len(ids)),
		CreatedAt:    c.CreatedAt,
	}
	for _, id := range ids {
		name, ok := usernames[id]
		if !ok {
			name = UnknownUsername
		}
		view.Participants = append(view.Participants, ParticipantSummary{ID: id, Username: name})
	}
	return view
}
