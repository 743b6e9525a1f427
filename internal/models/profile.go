// Package models contains data structures for the application's domain models.
package models

import "time"

const (
	// DefaultProfileImage is the sentinel used when no image has been chosen.
	DefaultProfileImage = "default"
	// DefaultExtended is the empty JSON document stored for new profiles.
	DefaultExtended = "{}"
	// UnknownUsername is rendered for identities that have no profile yet.
	UnknownUsername = "Unknown"
)

// Profile maps an authenticated identity to its display username and attributes.
type Profile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_profiles_user_id" json:"user_id"`
	Username     string    `gorm:"size:64;not null;uniqueIndex:idx_profiles_username" json:"username"`
	ProfileImage string    `gorm:"size:512;not null;default:'default'" json:"profile_image"`
	Description  string    `gorm:"type:text;not null;default:''" json:"description"`
	Extended     string    `gorm:"type:text;not null;default:'{}'" json:"extended"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Profile) TableName() string {
	return "profiles"
}

// NewProfile returns a profile for userID carrying the default attributes.
func NewProfile(userID uint, username string) *Profile {
	return &Profile{
		UserID:       userID,
		Username:     username,
		ProfileImage: DefaultProfileImage,
		Extended:     DefaultExtended,
	}
}

// PlaceholderProfile is returned by internal lookups when userID has no profile.
func PlaceholderProfile(userID uint) *Profile {
	p := NewProfile(userID, UnknownUsername)
	return p
}

// ProfileUpdate carries a partial profile update; nil fields are left untouched.
type ProfileUpdate struct {
	ProfileImage *string `json:"profile_image,omitempty"`
	Description  *string `json:"description,omitempty"`
	Extended     *string `json:"extended,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.ProfileImage == nil && u.Description == nil && u.Extended == nil
}

// Columns returns the column/value pairs the update writes.
func (u ProfileUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 3)
	if u.ProfileImage != nil {
		cols["profile_image"] = *u.ProfileImage
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if u.Extended != nil {
		cols["extended"] = *u.Extended
	}
	return cols
}

// Apply copies the provided fields onto p.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.ProfileImage != nil {
		p.ProfileImage = *u.ProfileImage
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Extended != nil {
		p.Extended = *u.Extended
	}
}
