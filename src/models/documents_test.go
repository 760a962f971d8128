package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFriendDocumentCarriesPhotoOnlyWhenKnown(t *testing.T) {
	plain := Friend{UserID: "U2", Name: "Grace Hopper", Email: "grace@example.com"}
	assert.Equal(t, map[string]any{"userId": "U2", "name": "Grace Hopper", "email": "grace@example.com"}, plain.Document())

	pictured := plain
	pictured.PhotoURL = "https://photos.example.com/grace.png"
	doc := pictured.Document()
	assert.Equal(t, pictured.PhotoURL, doc["imageUrl"])

	back, err := FriendFromDocument("U2", doc)
	require.NoError(t, err)
	assert.Equal(t, pictured, back)
}

func TestFromDocumentUsesStoredFieldNames(t *testing.T) {
	user, err := UserFromDocument("U1", map[string]any{
		"displayName": "Ada Lovelace",
		"email":       "ada@example.com",
		"photoUrl":    "https://photos.example.com/ada.png",
	})
	require.NoError(t, err)
	assert.Equal(t, User{UID: "U1", DisplayName: "Ada Lovelace", Email: "ada@example.com", PhotoURL: "https://photos.example.com/ada.png"}, user)

	request, err := FriendRequestFromDocument("U1_U2", map[string]any{
		"senderId":    "U1",
		"senderEmail": "ada@example.com",
		"receiverId":  "U2",
		"status":      "declined",
	})
	require.NoError(t, err)
	assert.Equal(t, FriendRequestDeclined, request.Status)
	assert.Equal(t, "ada@example.com", request.SenderEmail)

	_, err = FriendFromDocument("U2", map[string]any{"name": 42})
	assert.Error(t, err)
}
