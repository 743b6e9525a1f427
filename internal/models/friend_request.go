package models

import "time"

// FriendRequestStatus represents the state of a directed friend request.
type FriendRequestStatus string

const (
	// FriendRequestPending is awaiting the recipient's answer.
	FriendRequestPending FriendRequestStatus = "pending"
	// FriendRequestAccepted makes the two parties friends.
	FriendRequestAccepted FriendRequestStatus = "accepted"
	// FriendRequestDeclined was refused, or was accepted and later removed.
	FriendRequestDeclined FriendRequestStatus = "declined"
)

// FriendRequest is the single record kept per ordered (sender, recipient) pair.
// Usernames are snapshots taken when the request was sent and are never refreshed.
type FriendRequest struct {
	ID                uint                `gorm:"primaryKey" json:"id"`
	SenderID          uint                `gorm:"not null;uniqueIndex:idx_friend_requests_pair,priority:1;index:idx_friend_requests_sender_status,priority:1" json:"sender_id"`
	SenderUsername    string              `gorm:"size:64;not null" json:"sender_username"`
	RecipientID       uint                `gorm:"not null;uniqueIndex:idx_friend_requests_pair,priority:2;index:idx_friend_requests_recipient_status,priority:1" json:"recipient_id"`
	RecipientUsername string              `gorm:"size:64;not null" json:"recipient_username"`
	Status            FriendRequestStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_friend_requests_sender_status,priority:2;index:idx_friend_requests_recipient_status,priority:2" json:"status"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (FriendRequest) TableName() string {
	return "friend_requests"
}

// Other returns the party of the request that is not userID.
func (r *FriendRequest) Other(userID uint) (uint, string) {
	if r.SenderID == userID {
		return r.RecipientID, r.RecipientUsername
	}
	return r.SenderID, r.SenderUsername
}

// Friend is the derived view of an accepted request from one party's side.
type Friend struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}
