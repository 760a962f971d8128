package services

import (
	"context"
	"fmt"
	"strings"

	"eventconnect_services/src/models"
	"eventconnect_services/src/store"
)

// UserService provisions and reads user profiles. It acts on behalf of
// whoever is signing in, so it carries no current user.
type UserService struct {
	deps Deps
}

func NewUserService(deps Deps) *UserService {
	return &UserService{deps: deps.withDefaults()}
}

// CreateUser adds a profile for someone who has not signed in yet.
func (s *UserService) CreateUser(ctx context.Context, name, email string) (models.User, error) {
	if name == "" || email == "" {
		return models.User{}, invalid("fields", "Please fill all fields")
	}

	_, found, err := s.deps.userByEmail(ctx, email)
	if err != nil {
		return models.User{}, remote("check existing users", err)
	}
	if found {
		return models.User{}, ErrUserExists
	}

	user := models.User{DisplayName: name, Email: email}
	doc, err := s.deps.users().Add(ctx, map[string]any{
		"displayName": user.DisplayName,
		"email":       user.Email,
		"photoUrl":    "",
	})
	if err != nil {
		return models.User{}, remote("create user", err)
	}
	user.UID = doc.ID()

	s.deps.logger(ctx, "users", "create").InfoContext(ctx, "user created", "user_id", user.UID)
	s.index(ctx, user)
	return user, nil
}

// RecordLogin stores the signed-in profile. The first login writes the whole
// profile; later logins only touch lastLogin.
func (s *UserService) RecordLogin(ctx context.Context, user models.User) (models.User, error) {
	if strings.TrimSpace(user.UID) == "" {
		return models.User{}, invalid("uid", "Id cannot be empty")
	}
	logger := s.deps.logger(ctx, "users", "record_login", "user_id", user.UID)

	doc := s.deps.users().Document(user.UID)
	snapshot, err := doc.Get(ctx)
	if err != nil {
		return models.User{}, remote("load user", err)
	}

	if !snapshot.Exists {
		data := user.Document()
		data["lastLogin"] = store.ServerTimestamp
		if err := doc.Set(ctx, data); err != nil {
			return models.User{}, remote("save user", err)
		}
		logger.InfoContext(ctx, "first login recorded")
	} else {
		if err := doc.Update(ctx, store.Update{Field: "lastLogin", Value: store.ServerTimestamp}); err != nil {
			return models.User{}, remote("save user", err)
		}
		stored, err := models.UserFromDocument(snapshot.ID, snapshot.Data)
		if err == nil {
			user = stored
		}
	}

	user.LastLogin = s.deps.Now().UTC()
	s.index(ctx, user)
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, uid string) (models.User, error) {
	if strings.TrimSpace(uid) == "" {
		return models.User{}, invalid("uid", "Id cannot be empty")
	}
	snapshot, err := s.deps.users().Document(uid).Get(ctx)
	if err != nil {
		return models.User{}, remote("load user", err)
	}
	if !snapshot.Exists {
		return models.User{}, fmt.Errorf("user %s: %w", uid, ErrNotFound)
	}
	user, err := models.UserFromDocument(snapshot.ID, snapshot.Data)
	if err != nil {
		return models.User{}, remote("load user", err)
	}
	return user, nil
}

func (s *UserService) index(ctx context.Context, user models.User) {
	if s.deps.Indexer == nil {
		return
	}
	if err := s.deps.Indexer.IndexUser(ctx, user); err != nil {
		s.deps.logger(ctx, "users", "index", "user_id", user.UID).WarnContext(ctx, "failed to index user", "error", err)
	}
}
