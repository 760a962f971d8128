package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eventconnect_services/src/models"
	"eventconnect_services/src/store"
)

// Photo is an image supplied with an event write.
type Photo struct {
	Data        []byte
	ContentType string
}

func (p *Photo) contentType() string {
	if p.ContentType == "" {
		return "image/jpeg"
	}
	return p.ContentType
}

type EventService struct {
	deps    Deps
	current models.UserSimple
}

func NewEventService(deps Deps, current models.UserSimple) *EventService {
	return &EventService{deps: deps.withDefaults(), current: current}
}

func (s *EventService) events() store.Collection {
	return s.deps.Store.Collection(models.EventsCollection)
}

// ListEvents never fails. A remote failure is logged and yields an empty
// list; documents that do not map are skipped.
func (s *EventService) ListEvents(ctx context.Context, filter models.EventFilter) []models.Event {
	logger := s.deps.logger(ctx, "events", "list", "filter", string(filter))

	var query store.Query = s.events()
	if filter == models.EventsHostedByCurrentUser {
		query = query.WhereEqualTo("host", s.current.UserID)
	}

	snapshot, err := query.Get(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list events", "error", err)
		return []models.Event{}
	}

	events := make([]models.Event, 0, snapshot.Size())
	for _, doc := range snapshot.Documents {
		event, err := models.EventFromDocument(doc.ID, doc.Data)
		if err != nil {
			logger.WarnContext(ctx, "skipping malformed event", "event_id", doc.ID, "error", err)
			continue
		}
		// Participant membership is not expressible as a store query.
		if filter == models.EventsCurrentUserAttends && !event.HasParticipant(s.current.UserID) {
			continue
		}
		events = append(events, event)
	}
	return events
}

func (s *EventService) LoadEvent(ctx context.Context, id string) (models.Event, error) {
	if strings.TrimSpace(id) == "" {
		return models.Event{}, invalid("id", "Event id cannot be empty")
	}

	snapshot, err := s.events().Document(id).Get(ctx)
	if err != nil {
		return models.Event{}, remote("load event", err)
	}
	if !snapshot.Exists {
		return models.Event{}, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	event, err := models.EventFromDocument(snapshot.ID, snapshot.Data)
	if err != nil {
		return models.Event{}, remote("load event", err)
	}
	return event, nil
}

func validateEventFields(fields models.EventFields) error {
	if strings.TrimSpace(fields.Name) == "" {
		return invalid("name", "Please enter event name")
	}
	if strings.TrimSpace(fields.Location) == "" {
		return invalid("location", "Please enter location")
	}
	return nil
}

// CreateEvent writes a new event hosted by the current user. A photo is
// uploaded before the document is written; if the write then fails the
// uploaded object is removed again.
func (s *EventService) CreateEvent(ctx context.Context, fields models.EventFields, photo *Photo) (models.Event, error) {
	if err := validateEventFields(fields); err != nil {
		return models.Event{}, err
	}

	id := s.deps.NewID()
	logger := s.deps.logger(ctx, "events", "create", "event_id", id)

	var imageURL, imagePath string
	if photo != nil {
		imagePath = "event_images/" + id
		url, err := s.deps.Objects.Upload(ctx, imagePath, photo.Data, photo.contentType())
		if err != nil {
			return models.Event{}, remote("upload image", err)
		}
		imageURL = url
	}

	event := models.Event{
		ID:           id,
		Name:         fields.Name,
		Location:     fields.Location,
		Description:  fields.Description,
		Date:         fields.Date,
		Time:         fields.Time,
		ImageURL:     imageURL,
		Host:         s.current.UserID,
		Participants: []models.UserSimple{s.current},
		PhotoURLs:    []string{},
	}

	if err := s.events().Document(id).Set(ctx, event.Document()); err != nil {
		if imagePath != "" {
			s.discardObject(ctx, imagePath)
		}
		return models.Event{}, remote("create event", err)
	}

	logger.InfoContext(ctx, "event created", "host", event.Host, "with_image", imageURL != "")
	return event, nil
}

// UpdateEvent rewrites the host-editable fields and the participant list.
// A nil participants slice keeps the stored list.
func (s *EventService) UpdateEvent(ctx context.Context, id string, fields models.EventFields, photo *Photo, participants []models.UserSimple) (models.Event, error) {
	existing, err := s.LoadEvent(ctx, id)
	if err != nil {
		return models.Event{}, err
	}
	if existing.Host != s.current.UserID {
		return models.Event{}, ErrNotHost
	}
	if err := validateEventFields(fields); err != nil {
		return models.Event{}, err
	}

	logger := s.deps.logger(ctx, "events", "update", "event_id", id)

	updated := existing
	updated.Name = fields.Name
	updated.Location = fields.Location
	updated.Description = fields.Description
	updated.Date = fields.Date
	updated.Time = fields.Time
	if participants != nil {
		updated.Participants = participants
	}

	var imagePath string
	if photo != nil {
		imagePath = "event_images/" + s.deps.NewID()
		url, err := s.deps.Objects.Upload(ctx, imagePath, photo.Data, photo.contentType())
		if err != nil {
			return models.Event{}, remote("upload image", err)
		}
		updated.ImageURL = url
	}

	err = s.events().Document(id).Update(ctx,
		store.Update{Field: "name", Value: updated.Name},
		store.Update{Field: "location", Value: updated.Location},
		store.Update{Field: "description", Value: updated.Description},
		store.Update{Field: "date", Value: updated.Date},
		store.Update{Field: "time", Value: updated.Time},
		store.Update{Field: "imageUrl", Value: updated.ImageURL},
		store.Update{Field: "participants", Value: models.ParticipantsDocument(updated.Participants)},
	)
	if err != nil {
		if imagePath != "" {
			s.discardObject(ctx, imagePath)
		}
		if errors.Is(err, store.ErrNotFound) {
			return models.Event{}, fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return models.Event{}, remote("update event", err)
	}

	for _, participant := range updated.Participants {
		if participant.UserID == "" || existing.HasParticipant(participant.UserID) {
			continue
		}
		s.deps.notify(ctx, logger, models.Notification{
			Operation: models.OperationInsert,
			Type:      models.NotificationEventInvite,
			UserID:    participant.UserID,
			Payload: models.EventInviteNotification{
				EventID:   updated.ID,
				EventName: updated.Name,
				HostID:    s.current.UserID,
				HostName:  s.current.Name,
				GuestID:   participant.UserID,
			},
		})
	}

	logger.InfoContext(ctx, "event updated", "participants", len(updated.Participants))
	return updated, nil
}

// AddPhoto uploads a photo into the event's gallery. Any user may add photos.
func (s *EventService) AddPhoto(ctx context.Context, id string, photo Photo) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", invalid("id", "Event id cannot be empty")
	}
	if len(photo.Data) == 0 {
		return "", invalid("photo", "Please select a photo")
	}

	logger := s.deps.logger(ctx, "events", "add_photo", "event_id", id)
	path := fmt.Sprintf("event_photos/%s/%s.jpg", id, s.deps.NewID())

	url, err := s.deps.Objects.Upload(ctx, path, photo.Data, photo.contentType())
	if err != nil {
		return "", remote("upload photo", err)
	}

	err = s.events().Document(id).Update(ctx, store.Update{Field: "photoUrls", Value: store.ArrayUnion(url)})
	if err != nil {
		s.discardObject(ctx, path)
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return "", remote("add photo", err)
	}

	s.deps.notify(ctx, logger, models.Notification{
		Operation: models.OperationInsert,
		Type:      models.NotificationPhoto,
		EventID:   id,
		Payload:   models.PhotoNotification{EventID: id, PhotoURL: url, UserID: s.current.UserID},
	})
	return url, nil
}

// RemovePhoto drops url from the gallery. Removing a url that is not there
// leaves the list unchanged.
func (s *EventService) RemovePhoto(ctx context.Context, id, url string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("id", "Event id cannot be empty")
	}
	if strings.TrimSpace(url) == "" {
		return invalid("url", "Photo url cannot be empty")
	}

	logger := s.deps.logger(ctx, "events", "remove_photo", "event_id", id)

	err := s.events().Document(id).Update(ctx, store.Update{Field: "photoUrls", Value: store.ArrayRemove(url)})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return remote("remove photo", err)
	}

	s.deps.notify(ctx, logger, models.Notification{
		Operation: models.OperationRemove,
		Type:      models.NotificationPhoto,
		EventID:   id,
		Payload:   models.PhotoNotification{EventID: id, PhotoURL: url, UserID: s.current.UserID},
	})
	return nil
}

func (s *EventService) LoadEventParticipants(ctx context.Context, ids []string) ([]models.UserSimple, error) {
	if len(ids) == 0 {
		return []models.UserSimple{}, nil
	}
	users, err := s.deps.resolveUsers(ctx, ids)
	if err != nil {
		return nil, remote("load participants", err)
	}
	return users, nil
}

// LoadUserFriends resolves the profiles of everyone in userID's friend list.
func (s *EventService) LoadUserFriends(ctx context.Context, userID string) ([]models.UserSimple, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, invalid("id", "Id cannot be empty")
	}

	snapshot, err := s.deps.friendsOf(userID).Get(ctx)
	if err != nil {
		return nil, remote("load friends", err)
	}
	ids := make([]string, 0, snapshot.Size())
	for _, doc := range snapshot.Documents {
		friend, err := models.FriendFromDocument(doc.ID, doc.Data)
		if err != nil {
			continue
		}
		ids = append(ids, friend.UserID)
	}
	if len(ids) == 0 {
		return []models.UserSimple{}, nil
	}

	users, err := s.deps.resolveUsers(ctx, ids)
	if err != nil {
		return nil, remote("load friends", err)
	}
	return users, nil
}

func (s *EventService) discardObject(ctx context.Context, path string) {
	logger := s.deps.logger(ctx, "events", "compensate", "path", path)
	if err := s.deps.Objects.Delete(ctx, path); err != nil {
		logger.ErrorContext(ctx, "failed to delete orphaned object", "error", err)
		return
	}
	logger.WarnContext(ctx, "deleted orphaned object after failed write")
}
