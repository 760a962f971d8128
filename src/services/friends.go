package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eventconnect_services/src/models"
	"eventconnect_services/src/store"
)

// Steps of AcceptRequest, in the order they are written.
const (
	StepSenderEdge    = "sender_edge"
	StepReceiverEdge  = "receiver_edge"
	StepRequestStatus = "request_status"
)

type FriendService struct {
	deps    Deps
	current models.UserSimple
}

func NewFriendService(deps Deps, current models.UserSimple) *FriendService {
	return &FriendService{deps: deps.withDefaults(), current: current}
}

func (s *FriendService) requests() store.Collection {
	return s.deps.Store.Collection(models.FriendRequestsCollection)
}

// profile maps a users document keyed by its document id.
func profile(doc *store.DocumentSnapshot) (models.User, bool) {
	user, err := models.UserFromDocument(doc.ID, doc.Data)
	if err != nil {
		return models.User{}, false
	}
	user.UID = doc.ID
	return user, true
}

func matchesUser(user models.User, lowered string) bool {
	return strings.Contains(strings.ToLower(user.DisplayName), lowered) ||
		strings.Contains(strings.ToLower(user.Email), lowered)
}

// SearchUsers matches query against display names and emails, ignoring case,
// and never returns the current user. The search index is consulted first
// when one is configured; its hits are filtered the same way.
func (s *FriendService) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	if strings.TrimSpace(query) == "" {
		return []models.User{}, nil
	}
	lowered := strings.ToLower(strings.TrimSpace(query))
	logger := s.deps.logger(ctx, "friends", "search_users")

	if s.deps.Searcher != nil {
		hits, err := s.deps.Searcher.SearchUsers(ctx, lowered)
		if err == nil {
			users := make([]models.User, 0, len(hits))
			for _, user := range hits {
				if user.UID != s.current.UserID && matchesUser(user, lowered) {
					users = append(users, user)
				}
			}
			return users, nil
		}
		logger.WarnContext(ctx, "search index unavailable, scanning users", "error", err)
	}

	snapshot, err := s.deps.users().Get(ctx)
	if err != nil {
		return nil, remote("search users", err)
	}
	users := make([]models.User, 0)
	for _, doc := range snapshot.Documents {
		user, ok := profile(doc)
		if !ok || user.UID == s.current.UserID || !matchesUser(user, lowered) {
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

// FetchAllUsers lists every profile except the current user by display name.
func (s *FriendService) FetchAllUsers(ctx context.Context) ([]models.User, error) {
	snapshot, err := s.deps.users().OrderBy("displayName").Get(ctx)
	if err != nil {
		return nil, remote("load users", err)
	}
	users := make([]models.User, 0, snapshot.Size())
	for _, doc := range snapshot.Documents {
		user, ok := profile(doc)
		if !ok || user.UID == s.current.UserID {
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *FriendService) FetchFriends(ctx context.Context) ([]models.Friend, error) {
	friends, err := s.friendsOf(ctx, s.current.UserID)
	if err != nil {
		return nil, remote("load friends", err)
	}
	return friends, nil
}

func (s *FriendService) friendsOf(ctx context.Context, userID string) ([]models.Friend, error) {
	snapshot, err := s.deps.friendsOf(userID).Get(ctx)
	if err != nil {
		return nil, err
	}
	friends := make([]models.Friend, 0, snapshot.Size())
	for _, doc := range snapshot.Documents {
		friend, err := models.FriendFromDocument(doc.ID, doc.Data)
		if err != nil {
			continue
		}
		friends = append(friends, friend)
	}
	return friends, nil
}

// FilterFriends narrows an already fetched list by name or email. A blank
// query returns the list unchanged.
func (s *FriendService) FilterFriends(friends []models.Friend, query string) []models.Friend {
	if strings.TrimSpace(query) == "" {
		return friends
	}
	lowered := strings.ToLower(strings.TrimSpace(query))
	filtered := make([]models.Friend, 0, len(friends))
	for _, friend := range friends {
		if strings.Contains(strings.ToLower(friend.Name), lowered) ||
			strings.Contains(strings.ToLower(friend.Email), lowered) {
			filtered = append(filtered, friend)
		}
	}
	return filtered
}

// FetchFriendRequests lists pending requests addressed to the current user.
func (s *FriendService) FetchFriendRequests(ctx context.Context) ([]models.FriendRequest, error) {
	snapshot, err := s.requests().
		WhereEqualTo("receiverEmail", s.current.Email).
		WhereEqualTo("status", string(models.FriendRequestPending)).
		Get(ctx)
	if err != nil {
		return nil, remote("load invitations", err)
	}
	requests := make([]models.FriendRequest, 0, snapshot.Size())
	for _, doc := range snapshot.Documents {
		request, err := models.FriendRequestFromDocument(doc.ID, doc.Data)
		if err != nil {
			continue
		}
		requests = append(requests, request)
	}
	return requests, nil
}

func (s *FriendService) SendFriendRequest(ctx context.Context, receiverEmail string) (models.FriendRequest, error) {
	if receiverEmail == "" {
		return models.FriendRequest{}, invalid("email", "Receiver email cannot be empty")
	}
	logger := s.deps.logger(ctx, "friends", "send_request")

	existing, err := s.requests().
		WhereEqualTo("senderEmail", s.current.Email).
		WhereEqualTo("receiverEmail", receiverEmail).
		WhereEqualTo("status", string(models.FriendRequestPending)).
		Get(ctx)
	if err != nil {
		return models.FriendRequest{}, remote("check existing requests", err)
	}
	if !existing.Empty() {
		return models.FriendRequest{}, ErrDuplicateRequest
	}

	receiver, found, err := s.deps.userByEmail(ctx, receiverEmail)
	if err != nil {
		return models.FriendRequest{}, remote("find user", err)
	}
	if !found {
		return models.FriendRequest{}, &UserNotFoundError{Email: receiverEmail}
	}

	request := models.FriendRequest{
		RequestID:     models.FriendRequestID(s.current.UserID, receiver.UID),
		SenderID:      s.current.UserID,
		SenderEmail:   s.current.Email,
		ReceiverID:    receiver.UID,
		ReceiverEmail: receiverEmail,
		Status:        models.FriendRequestPending,
		Timestamp:     s.deps.Now().UTC(),
	}
	err = s.requests().Document(request.RequestID).Set(ctx, map[string]any{
		"senderId":      request.SenderID,
		"senderEmail":   request.SenderEmail,
		"receiverId":    request.ReceiverID,
		"receiverEmail": request.ReceiverEmail,
		"status":        string(request.Status),
		"timestamp":     store.ServerTimestamp,
	})
	if err != nil {
		return models.FriendRequest{}, remote("send request", err)
	}

	logger.InfoContext(ctx, "friend request sent", "request_id", request.RequestID)
	s.deps.notify(ctx, logger, models.Notification{
		Operation: models.OperationRequest,
		Type:      models.NotificationFriendRequest,
		UserID:    request.ReceiverID,
		Payload:   s.requestNotification(request, s.current.Name),
	})
	return request, nil
}

func (s *FriendService) requestNotification(request models.FriendRequest, senderName string) models.FriendRequestNotification {
	return models.FriendRequestNotification{
		RequestID:   request.RequestID,
		SenderID:    request.SenderID,
		SenderName:  senderName,
		SenderEmail: request.SenderEmail,
		ReceiverID:  request.ReceiverID,
		Status:      string(request.Status),
		ReceivedAt:  request.Timestamp,
	}
}

func (s *FriendService) checkAddressedToMe(request models.FriendRequest) error {
	if request.SenderID == "" {
		return invalid("sender_id", "Sender id cannot be empty")
	}
	if request.ReceiverID != "" && request.ReceiverID != s.current.UserID {
		return invalid("receiver_id", "This request is not addressed to you")
	}
	return nil
}

// pendingRequest loads the request senderID sent to the current user. It
// fails with ErrNotFound when there is none and ErrRequestNotPending once the
// request has been answered.
func (s *FriendService) pendingRequest(ctx context.Context, senderID, op string) (models.FriendRequest, error) {
	requestID := models.FriendRequestID(senderID, s.current.UserID)
	snapshot, err := s.requests().Document(requestID).Get(ctx)
	if err != nil {
		return models.FriendRequest{}, remote(op, err)
	}
	if !snapshot.Exists {
		return models.FriendRequest{}, fmt.Errorf("friend request %s: %w", requestID, ErrNotFound)
	}
	request, err := models.FriendRequestFromDocument(snapshot.ID, snapshot.Data)
	if err != nil {
		return models.FriendRequest{}, remote(op, err)
	}
	if request.Status != models.FriendRequestPending {
		s.deps.logger(ctx, "friends", "answer_request").InfoContext(ctx, "friend request already answered",
			"request_id", requestID, "status", request.Status)
		return models.FriendRequest{}, ErrRequestNotPending
	}
	request.RequestID = requestID
	request.SenderID = senderID
	request.ReceiverID = s.current.UserID
	return request, nil
}

// AcceptRequest makes the current user and the sender friends. Only a pending
// request can be accepted; the sender's email comes from the stored request.
// The three writes are independent, each idempotent; a failure part way
// returns a *PartialWriteError and leaves the completed writes in place.
func (s *FriendService) AcceptRequest(ctx context.Context, incoming models.FriendRequest) error {
	if err := s.checkAddressedToMe(incoming); err != nil {
		return err
	}
	logger := s.deps.logger(ctx, "friends", "accept_request", "sender_id", incoming.SenderID)

	request, err := s.pendingRequest(ctx, incoming.SenderID, "accept request")
	if err != nil {
		return err
	}
	if request.SenderEmail == "" {
		request.SenderEmail = incoming.SenderEmail
	}

	var completed []string
	fail := func(step string, err error) error {
		partial := &PartialWriteError{Op: "accept request", Failed: step, Completed: completed, Err: err}
		logger.ErrorContext(ctx, "friend request acceptance stopped", "failed_step", step, "completed", completed, "error", err)
		return partial
	}

	me := models.Friend{
		UserID:   s.current.UserID,
		Name:     s.current.Name,
		Email:    s.current.Email,
		PhotoURL: s.current.PhotoURL,
	}
	if err := s.deps.friendsOf(request.SenderID).Document(me.UserID).Set(ctx, me.Document()); err != nil {
		return fail(StepSenderEdge, err)
	}
	completed = append(completed, StepSenderEdge)

	sender := models.Friend{
		UserID: request.SenderID,
		Name:   s.senderName(ctx, request),
		Email:  request.SenderEmail,
	}
	if err := s.deps.friendsOf(s.current.UserID).Document(sender.UserID).Set(ctx, sender.Document()); err != nil {
		return fail(StepReceiverEdge, err)
	}
	completed = append(completed, StepReceiverEdge)

	err = s.requests().Document(request.RequestID).Update(ctx,
		store.Update{Field: "status", Value: string(models.FriendRequestAccepted)})
	if err != nil {
		return fail(StepRequestStatus, err)
	}

	logger.InfoContext(ctx, "friend request accepted", "request_id", request.RequestID)
	request.Status = models.FriendRequestAccepted
	s.deps.notify(ctx, logger, models.Notification{
		Operation: models.OperationAccepted,
		Type:      models.NotificationFriendRequest,
		UserID:    request.SenderID,
		Payload:   s.requestNotification(request, s.current.Name),
	})
	return nil
}

// senderName reads the sender's display name, falling back to their email.
func (s *FriendService) senderName(ctx context.Context, request models.FriendRequest) string {
	snapshot, err := s.deps.users().Document(request.SenderID).Get(ctx)
	if err != nil {
		s.deps.logger(ctx, "friends", "accept_request").WarnContext(ctx,
			"failed to read sender profile", "sender_id", request.SenderID, "error", err)
		return request.SenderEmail
	}
	if !snapshot.Exists {
		return request.SenderEmail
	}
	user, err := models.UserFromDocument(snapshot.ID, snapshot.Data)
	if err != nil || user.DisplayName == "" {
		return request.SenderEmail
	}
	return user.DisplayName
}

// DeclineRequest marks a pending request addressed to the current user as
// declined. No friend edges are touched.
func (s *FriendService) DeclineRequest(ctx context.Context, incoming models.FriendRequest) error {
	if err := s.checkAddressedToMe(incoming); err != nil {
		return err
	}
	request, err := s.pendingRequest(ctx, incoming.SenderID, "decline")
	if err != nil {
		return err
	}
	err = s.requests().Document(request.RequestID).Update(ctx,
		store.Update{Field: "status", Value: string(models.FriendRequestDeclined)})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("friend request %s: %w", request.RequestID, ErrNotFound)
		}
		return remote("decline", err)
	}
	s.deps.logger(ctx, "friends", "decline_request").InfoContext(ctx, "friend request declined", "request_id", request.RequestID)
	return nil
}

func (s *FriendService) hasFriendWithEmail(ctx context.Context, email string) (bool, error) {
	snapshot, err := s.deps.friendsOf(s.current.UserID).WhereEqualTo("email", email).Get(ctx)
	if err != nil {
		return false, err
	}
	return !snapshot.Empty(), nil
}

// AddFriendByEmail sends a friend request to a known user who is not yet a
// friend.
func (s *FriendService) AddFriendByEmail(ctx context.Context, email string) (models.FriendRequest, error) {
	if email == "" {
		return models.FriendRequest{}, invalid("email", "Please enter an email")
	}

	_, found, err := s.deps.userByEmail(ctx, email)
	if err != nil {
		return models.FriendRequest{}, remote("search", err)
	}
	if !found {
		return models.FriendRequest{}, &UserNotFoundError{Email: email, Message: "User not found"}
	}

	already, err := s.hasFriendWithEmail(ctx, email)
	if err != nil {
		return models.FriendRequest{}, remote("check existing friends", err)
	}
	if already {
		return models.FriendRequest{}, &AlreadyFriendError{Message: "This user is already your friend"}
	}

	return s.SendFriendRequest(ctx, email)
}

// AddFriend writes a one-sided edge under the current user.
func (s *FriendService) AddFriend(ctx context.Context, userID, email string) (models.Friend, error) {
	if userID == "" {
		return models.Friend{}, invalid("user_id", "Id cannot be empty")
	}
	if email == "" {
		return models.Friend{}, invalid("email", "Email cannot be empty")
	}

	already, err := s.hasFriendWithEmail(ctx, email)
	if err != nil {
		return models.Friend{}, remote("check existing friends", err)
	}
	if already {
		return models.Friend{}, &AlreadyFriendError{Message: "User is already your friend"}
	}

	user, found, err := s.deps.userByEmail(ctx, email)
	if err != nil {
		return models.Friend{}, remote(fmt.Sprintf("find user with email %s", email), err)
	}
	if !found {
		return models.Friend{}, &UserNotFoundError{Email: email, Message: "User with this email not found"}
	}

	friend := models.Friend{UserID: userID, Name: user.DisplayName, Email: user.Email, PhotoURL: user.PhotoURL}
	if err := s.deps.friendsOf(s.current.UserID).Document(userID).Set(ctx, friend.Document()); err != nil {
		return models.Friend{}, remote("add friend", err)
	}
	s.deps.logger(ctx, "friends", "add_friend").InfoContext(ctx, "friend added", "friend_id", userID)
	return friend, nil
}

// DeleteFriend removes the friendship with email from both sides in one
// batch and returns the message to show. When the other user cannot be found
// only the local edges are removed.
func (s *FriendService) DeleteFriend(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", invalid("email", "Email cannot be empty")
	}
	logger := s.deps.logger(ctx, "friends", "delete_friend")

	local, err := s.deps.friendsOf(s.current.UserID).WhereEqualTo("email", email).Get(ctx)
	if err != nil {
		return "", remote("remove friend", err)
	}
	batch := s.deps.Store.Batch()
	writes := 0
	for _, doc := range local.Documents {
		batch.Delete(doc.Ref)
		writes++
	}

	other, found, err := s.deps.userByEmail(ctx, email)
	if err != nil {
		return "", remote("remove friend", err)
	}

	message := "Friend removed from your list"
	if found {
		back, err := s.deps.friendsOf(other.UID).WhereEqualTo("email", s.current.Email).Get(ctx)
		if err != nil {
			return "", remote("remove friend", err)
		}
		for _, doc := range back.Documents {
			batch.Delete(doc.Ref)
			writes++
		}
		message = "Friend removed successfully"
	}

	if writes > 0 {
		if err := batch.Commit(ctx); err != nil {
			return "", remote("remove friend", err)
		}
	}
	logger.InfoContext(ctx, "friend removed", "edges", writes, "reciprocal_user_found", found)
	return message, nil
}

// CheckFriendship reports which directions of the a/b friendship exist.
func (s *FriendService) CheckFriendship(ctx context.Context, a, b string) (models.FriendshipState, error) {
	if a == "" || b == "" {
		return models.FriendshipState{}, invalid("user_id", "Id cannot be empty")
	}
	state := models.FriendshipState{UserA: a, UserB: b}

	aSide, err := s.deps.friendsOf(a).Document(b).Get(ctx)
	if err != nil {
		return state, remote("check friendship", err)
	}
	bSide, err := s.deps.friendsOf(b).Document(a).Get(ctx)
	if err != nil {
		return state, remote("check friendship", err)
	}
	state.AHasB = aSide.Exists
	state.BHasA = bSide.Exists
	return state, nil
}
