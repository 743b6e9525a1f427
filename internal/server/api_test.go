package server

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"murmur/internal/models"
	"murmur/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPI_FriendRequestToFirstMessage(t *testing.T) {
	api := newAPIClient(t)
	api.setUsername(1, "A")
	api.setUsername(2, "bob")

	var sent models.FriendRequest
	api.decode(http.MethodPost, "/api/friends/requests", 1,
		map[string]string{"recipient_username": "bob"}, http.StatusCreated, &sent)
	assert.Equal(t, models.FriendRequestPending, sent.Status)

	var pending []models.FriendRequest
	api.decode(http.MethodGet, "/api/friends/requests", 2, nil, http.StatusOK, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, "A", pending[0].SenderUsername)

	var responded service.RespondResult
	api.decode(http.MethodPost, fmt.Sprintf("/api/friends/requests/%d/respond", pending[0].ID), 2,
		map[string]bool{"accept": true}, http.StatusOK, &responded)
	require.NotNil(t, responded.Conversation)

	var convs []models.ConversationView
	api.decode(http.MethodGet, "/api/conversations", 1, nil, http.StatusOK, &convs)
	require.Len(t, convs, 1)
	assert.Equal(t, models.ConversationDM, convs[0].Type)
	assert.ElementsMatch(t, []models.ParticipantSummary{{ID: 1, Username: "A"}, {ID: 2, Username: "bob"}}, convs[0].Participants)

	msgPath := fmt.Sprintf("/api/conversations/%d/messages", convs[0].ID)
	api.decode(http.MethodPost, msgPath, 1, map[string]string{"content": "hello"}, http.StatusCreated, nil)

	var msgs []models.Message
	api.decode(http.MethodGet, msgPath, 2, nil, http.StatusOK, &msgs)
	require.Len(t, msgs, 1)
	assert.Equal(t, uint(1), msgs[0].AuthorID)
	assert.Equal(t, "hello", msgs[0].Content)

	var friends []models.Friend
	api.decode(http.MethodGet, "/api/friends", 2, nil, http.StatusOK, &friends)
	assert.Equal(t, []models.Friend{{UserID: 1, Username: "A"}}, friends)

	var removed service.RemoveResult
	api.decode(http.MethodDelete, "/api/friends/1", 2, nil, http.StatusOK, &removed)
	assert.Equal(t, []uint{convs[0].ID}, removed.DeletedConversations)
	assert.Equal(t, int64(1), removed.DeletedMessages)

	api.decode(http.MethodGet, msgPath, 2, nil, http.StatusOK, &msgs)
	assert.Empty(t, msgs)
}

func TestAPI_AnonymousReads(t *testing.T) {
	api := newAPIClient(t)
	api.setUsername(1, "alice")

	tests := []struct {
		path string
		body string
	}{
		{"/api/users/me/username", `{"username":null}`},
		{"/api/users/me/profile", `null`},
		{"/api/users/1/profile", `null`},
		{"/api/friends", `[]`},
		{"/api/friends/requests", `[]`},
		{"/api/conversations", `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			status, raw := api.do(http.MethodGet, tt.path, 0, nil)
			assert.Equal(t, http.StatusOK, status)
			assert.JSONEq(t, tt.body, string(raw))
		})
	}
}

func TestAPI_WritesRequireAuthentication(t *testing.T) {
	api := newAPIClient(t)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/users/me/username/generate"},
		{http.MethodPut, "/api/users/me/username"},
		{http.MethodPatch, "/api/users/me/profile"},
		{http.MethodPost, "/api/friends/requests"},
		{http.MethodPost, "/api/friends/requests/1/respond"},
		{http.MethodDelete, "/api/friends/1"},
		{http.MethodPost, "/api/conversations/groups"},
		{http.MethodPost, "/api/conversations/1/members"},
		{http.MethodPost, "/api/conversations/1/leave"},
		{http.MethodPatch, "/api/conversations/1"},
		{http.MethodGet, "/api/conversations/1/messages"},
		{http.MethodPost, "/api/conversations/1/messages"},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			var body models.ErrorResponse
			api.decode(r.method, r.path, 0, nil, http.StatusUnauthorized, &body)
			assert.Equal(t, models.CodeUnauthenticated, body.Code)
		})
	}
}

func TestAPI_Profiles(t *testing.T) {
	api := newAPIClient(t)

	var generated UsernameResponse
	api.decode(http.MethodPost, "/api/users/me/username/generate", 1, nil, http.StatusOK, &generated)
	require.NotNil(t, generated.Username)
	assert.NotEmpty(t, *generated.Username)

	var got UsernameResponse
	api.decode(http.MethodGet, "/api/users/me/username", 1, nil, http.StatusOK, &got)
	assert.Equal(t, generated.Username, got.Username)

	api.setUsername(2, "taken")
	var conflict models.ErrorResponse
	api.decode(http.MethodPut, "/api/users/me/username", 1, map[string]string{"username": "taken"}, http.StatusConflict, &conflict)
	assert.Equal(t, "Username already taken", conflict.Error)

	api.decode(http.MethodPut, "/api/users/me/username", 1, map[string]string{"username": "   "}, http.StatusBadRequest, nil)

	var profile models.Profile
	api.decode(http.MethodPatch, "/api/users/me/profile", 1,
		map[string]string{"description": "hi", "extended": `{"theme":"dark"}`}, http.StatusOK, &profile)
	assert.Equal(t, "hi", profile.Description)
	assert.Equal(t, models.DefaultProfileImage, profile.ProfileImage)

	var badFormat models.ErrorResponse
	api.decode(http.MethodPatch, "/api/users/me/profile", 1,
		map[string]string{"extended": "{nope"}, http.StatusBadRequest, &badFormat)
	assert.Equal(t, models.CodeInvalidFormat, badFormat.Code)

	var other models.Profile
	api.decode(http.MethodGet, "/api/users/2/profile", 1, nil, http.StatusOK, &other)
	assert.Equal(t, "taken", other.Username)

	status, raw := api.do(http.MethodGet, "/api/users/99/profile", 1, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "null", strings.TrimSpace(string(raw)))
}

func TestAPI_FriendRequestErrors(t *testing.T) {
	api := newAPIClient(t)
	api.setUsername(1, "alice")
	api.setUsername(2, "bob")

	api.decode(http.MethodPost, "/api/friends/requests", 1,
		map[string]string{"recipient_username": "ghost"}, http.StatusNotFound, nil)
	api.decode(http.MethodPost, "/api/friends/requests", 1,
		map[string]string{}, http.StatusBadRequest, nil)

	var sent models.FriendRequest
	api.decode(http.MethodPost, "/api/friends/requests", 1,
		map[string]string{"recipient_username": "bob"}, http.StatusCreated, &sent)
	api.decode(http.MethodPost, "/api/friends/requests", 1,
		map[string]string{"recipient_username": "bob"}, http.StatusConflict, nil)

	respondPath := fmt.Sprintf("/api/friends/requests/%d/respond", sent.ID)
	api.decode(http.MethodPost, respondPath, 1, map[string]bool{"accept": true}, http.StatusForbidden, nil)
	api.decode(http.MethodPost, respondPath, 2, map[string]string{}, http.StatusBadRequest, nil)
	api.decode(http.MethodPost, "/api/friends/requests/999/respond", 2, map[string]bool{"accept": true}, http.StatusNotFound, nil)
	api.decode(http.MethodDelete, "/api/friends/abc", 2, nil, http.StatusBadRequest, nil)
}

func TestAPI_Groups(t *testing.T) {
	api := newAPIClient(t)
	api.setUsername(1, "alice")
	api.setUsername(2, "bob")

	var created struct {
		ID uint `json:"id"`
	}
	api.decode(http.MethodPost, "/api/conversations/groups", 1, nil, http.StatusCreated, &created)
	require.NotZero(t, created.ID)
	base := fmt.Sprintf("/api/conversations/%d", created.ID)

	var added struct {
		Added []uint `json:"added"`
	}
	api.decode(http.MethodPost, base+"/members", 1, map[string][]uint{"member_ids": {2, 2}}, http.StatusOK, &added)
	assert.Equal(t, []uint{2}, added.Added)
	api.decode(http.MethodPost, base+"/members", 1, map[string][]uint{"member_ids": {2}}, http.StatusOK, &added)
	assert.Empty(t, added.Added)
	api.decode(http.MethodPost, base+"/members", 3, map[string][]uint{"member_ids": {3}}, http.StatusForbidden, nil)

	var renamed models.Conversation
	api.decode(http.MethodPatch, base, 2, map[string]string{"name": "Book club"}, http.StatusOK, &renamed)
	require.NotNil(t, renamed.Name)
	assert.Equal(t, "Book club", *renamed.Name)

	var left service.LeaveResult
	api.decode(http.MethodPost, base+"/leave", 1, nil, http.StatusOK, &left)
	assert.False(t, left.Deleted)
	api.decode(http.MethodPost, base+"/leave", 2, nil, http.StatusOK, &left)
	assert.True(t, left.Deleted)

	api.decode(http.MethodPatch, base, 2, map[string]string{"name": "gone"}, http.StatusNotFound, nil)
	api.decode(http.MethodPost, base+"/messages", 2, map[string]string{"content": "anyone?"}, http.StatusForbidden, nil)
}

func TestAPI_DMIsNotAGroup(t *testing.T) {
	api := newAPIClient(t)
	api.setUsername(1, "alice")
	api.setUsername(2, "bob")

	var sent models.FriendRequest
	api.decode(http.MethodPost, "/api/friends/requests", 1,
		map[string]string{"recipient_username": "bob"}, http.StatusCreated, &sent)
	var responded service.RespondResult
	api.decode(http.MethodPost, fmt.Sprintf("/api/friends/requests/%d/respond", sent.ID), 2,
		map[string]bool{"accept": true}, http.StatusOK, &responded)
	require.NotNil(t, responded.Conversation)

	base := fmt.Sprintf("/api/conversations/%d", responded.Conversation.ID)
	var body models.ErrorResponse
	api.decode(http.MethodPost, base+"/members", 1, map[string][]uint{"member_ids": {3}}, http.StatusUnprocessableEntity, &body)
	assert.Equal(t, models.CodeInvalidState, body.Code)
	api.decode(http.MethodPost, base+"/leave", 1, nil, http.StatusUnprocessableEntity, nil)
	api.decode(http.MethodPatch, base, 1, map[string]string{"name": "x"}, http.StatusUnprocessableEntity, nil)
}

func TestHealthChecks(t *testing.T) {
	api := newAPIClient(t)

	status, _ := api.do(http.MethodGet, "/health/live", 0, nil)
	assert.Equal(t, http.StatusOK, status)

	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	api.decode(http.MethodGet, "/health/ready", 0, nil, http.StatusOK, &ready)
	assert.Equal(t, "healthy", ready.Status)
	assert.Equal(t, "healthy", ready.Checks["database"])
	assert.Equal(t, "unavailable", ready.Checks["redis"])
	assert.Equal(t, "none", ready.Checks["events"])
}
