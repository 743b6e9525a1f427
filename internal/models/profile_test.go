package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileUpdateColumns(t *testing.T) {
	desc := ""
	u := ProfileUpdate{Description: &desc}
	assert.False(t, u.Empty())
	assert.Equal(t, map[string]interface{}{"description": ""}, u.Columns())
	assert.True(t, ProfileUpdate{}.Empty())
}

func TestProfileUpdateApply(t *testing.T) {
	img := "img-1"
	p := NewProfile(1, "x")
	ProfileUpdate{ProfileImage: &img}.Apply(p)
	assert.Equal(t, "img-1", p.ProfileImage)
	assert.Equal(t, DefaultExtended, p.Extended)
}

func TestPlaceholderProfile(t *testing.T) {
	p := PlaceholderProfile(4)
	assert.Equal(t, uint(4), p.UserID)
	assert.Equal(t, UnknownUsername, p.Username)
	assert.Equal(t, DefaultProfileImage, p.ProfileImage)
	assert.Equal(t, "{}", p.Extended)
}
