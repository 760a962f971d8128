package handlers

import (
	"net/http"
	"testing"

	m "eventconnect_services/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFriendRequestRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.putUser(ada)
	f.putUser(grace)

	rec := f.do(t, ada, http.MethodPost, "/friend-requests?email=grace@example.com", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "U1_U2", decode[m.FriendRequest](t, rec).RequestID)

	rec = f.do(t, ada, http.MethodPost, "/friend-requests?email=grace@example.com", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "You already sent a request to this user", errorMessage(t, rec))

	rec = f.do(t, grace, http.MethodGet, "/friend-requests", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	requests := decode[[]m.FriendRequest](t, rec)
	require.Len(t, requests, 1)
	assert.Equal(t, "U1", requests[0].SenderID)

	rec = f.do(t, grace, http.MethodPut, "/friend-requests?sender_id=U1&sender_email=ada@example.com", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, ok := f.store.Data("users/U1/friends/U2")
	assert.True(t, ok)
	_, ok = f.store.Data("users/U2/friends/U1")
	assert.True(t, ok)
	stored, _ := f.store.Data("friendRequests/U1_U2")
	assert.Equal(t, "accepted", stored["status"])

	rec = f.do(t, grace, http.MethodGet, "/friends/check?user_id=U1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[m.FriendshipState](t, rec)
	assert.True(t, state.AHasB)
	assert.True(t, state.BHasA)
}

func TestSendFriendRequestToUnknownEmail(t *testing.T) {
	f := newFixture(t)
	f.putUser(ada)

	rec := f.do(t, ada, http.MethodPost, "/friend-requests?email=nobody@example.com", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User with email nobody@example.com not found", errorMessage(t, rec))

	rec = f.do(t, ada, http.MethodPost, "/friend-requests", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Receiver email cannot be empty", errorMessage(t, rec))
}

func TestDeclineFriendRequest(t *testing.T) {
	f := newFixture(t)
	f.putUser(ada)
	f.putUser(grace)
	require.Equal(t, http.StatusCreated, f.do(t, ada, http.MethodPost, "/friend-requests?email=grace@example.com", nil, "").Code)

	rec := f.do(t, grace, http.MethodDelete, "/friend-requests?sender_id=U1&sender_email=ada@example.com", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stored, _ := f.store.Data("friendRequests/U1_U2")
	assert.Equal(t, "declined", stored["status"])

	rec = f.do(t, grace, http.MethodDelete, "/friend-requests?sender_id=U9", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnswerFriendRequestRequiresPending(t *testing.T) {
	f := newFixture(t)
	f.putUser(ada)
	f.putUser(grace)

	rec := f.do(t, grace, http.MethodPut, "/friend-requests?sender_id=U1&sender_email=ada@example.com", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assertNoFriendEdges(t, f)

	require.Equal(t, http.StatusCreated, f.do(t, ada, http.MethodPost, "/friend-requests?email=grace@example.com", nil, "").Code)
	require.Equal(t, http.StatusOK, f.do(t, grace, http.MethodDelete, "/friend-requests?sender_id=U1", nil, "").Code)

	rec = f.do(t, grace, http.MethodPut, "/friend-requests?sender_id=U1&sender_email=ada@example.com", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "This request is no longer pending", errorMessage(t, rec))
	assertNoFriendEdges(t, f)
	stored, _ := f.store.Data("friendRequests/U1_U2")
	assert.Equal(t, "declined", stored["status"])
}

func TestDeclineAcceptedFriendRequest(t *testing.T) {
	f := newFixture(t)
	f.putUser(ada)
	f.putUser(grace)
	require.Equal(t, http.StatusCreated, f.do(t, ada, http.MethodPost, "/friend-requests?email=grace@example.com", nil, "").Code)
	require.Equal(t, http.StatusOK, f.do(t, grace, http.MethodPut, "/friend-requests?sender_id=U1", nil, "").Code)

	rec := f.do(t, grace, http.MethodDelete, "/friend-requests?sender_id=U1", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	stored, _ := f.store.Data("friendRequests/U1_U2")
	assert.Equal(t, "accepted", stored["status"])
	_, ok := f.store.Data("users/U2/friends/U1")
	assert.True(t, ok)
}

func assertNoFriendEdges(t *testing.T, f *fixture) {
	t.Helper()
	_, ok := f.store.Data("users/U1/friends/U2")
	assert.False(t, ok)
	_, ok = f.store.Data("users/U2/friends/U1")
	assert.False(t, ok)
}

func TestAddFriendEndpoint(t *testing.T) {
	f := newFixture(t)
	f.putUser(ada)
	f.putUser(grace)

	rec := f.doJSON(t, ada, http.MethodPost, "/friends", addFriendRequest{Email: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please enter an email", errorMessage(t, rec))

	rec = f.doJSON(t, ada, http.MethodPost, "/friends", addFriendRequest{Email: "grace@example.com"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	_, ok := f.store.Data("friendRequests/U1_U2")
	assert.True(t, ok)

	id := "U2"
	rec = f.doJSON(t, ada, http.MethodPost, "/friends", addFriendRequest{Email: "grace@example.com", UserID: &id})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "U2", decode[m.Friend](t, rec).UserID)

	rec = f.doJSON(t, ada, http.MethodPost, "/friends", addFriendRequest{Email: "grace@example.com", UserID: &id})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User is already your friend", errorMessage(t, rec))
}

func TestListAndDeleteFriends(t *testing.T) {
	f := newFixture(t)
	f.putUser(ada)
	f.putUser(grace)
	f.store.Put("users/U1/friends/U2", map[string]any{"userId": "U2", "name": "Grace Hopper", "email": "grace@example.com"})
	f.store.Put("users/U2/friends/U1", map[string]any{"userId": "U1", "name": "Ada Lovelace", "email": "ada@example.com"})

	rec := f.do(t, ada, http.MethodGet, "/friends?lookup=GRACE", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]m.Friend](t, rec), 1)

	rec = f.do(t, ada, http.MethodGet, "/friends?lookup=linus", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]m.Friend](t, rec))

	rec = f.do(t, ada, http.MethodDelete, "/friends", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email cannot be empty", errorMessage(t, rec))

	rec = f.do(t, ada, http.MethodDelete, "/friends?email=grace@example.com", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Friend removed successfully", decode[messageResponse](t, rec).Message)
	_, ok := f.store.Data("users/U1/friends/U2")
	assert.False(t, ok)
	_, ok = f.store.Data("users/U2/friends/U1")
	assert.False(t, ok)
}

func TestUserFriendsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.putUser(grace)
	f.store.Put("users/U1/friends/U2", map[string]any{"userId": "U2", "name": "Grace Hopper", "email": "grace@example.com"})

	rec := f.do(t, ada, http.MethodGet, "/users/U1/friends", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	friends := decode[[]m.UserSimple](t, rec)
	require.Len(t, friends, 1)
	assert.Equal(t, "Grace Hopper", friends[0].Name)
}
