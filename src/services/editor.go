package services

import (
	"context"
	"sync"

	"eventconnect_services/src/models"
)

type EditorState int

const (
	EditorIdle EditorState = iota
	EditorLoading
	EditorLoaded
	EditorLoadFailed
	EditorSaving
	EditorSaved
	EditorSaveFailed
)

func (s EditorState) String() string {
	switch s {
	case EditorIdle:
		return "idle"
	case EditorLoading:
		return "loading"
	case EditorLoaded:
		return "loaded"
	case EditorLoadFailed:
		return "load_failed"
	case EditorSaving:
		return "saving"
	case EditorSaved:
		return "saved"
	case EditorSaveFailed:
		return "save_failed"
	}
	return "unknown"
}

// EventEditor tracks one edit session of an event: load, then save. Nothing
// is retried; a failed save keeps the copy that was loaded.
type EventEditor struct {
	events *EventService

	mu    sync.Mutex
	state EditorState
	event models.Event
	err   error
}

func NewEventEditor(events *EventService) *EventEditor {
	return &EventEditor{events: events}
}

func (e *EventEditor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Event returns the held copy, if one was loaded or saved.
func (e *EventEditor) Event() (models.Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.event, e.hasCopy()
}

// Err is the error of the last failed load or save.
func (e *EventEditor) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// hasCopy must be called with e.mu held.
func (e *EventEditor) hasCopy() bool {
	switch e.state {
	case EditorLoaded, EditorSaved, EditorSaveFailed, EditorSaving:
		return true
	}
	return false
}

// Load fetches the event. It may be called again after a load or save
// completes, but not while one is in flight.
func (e *EventEditor) Load(ctx context.Context, id string) (models.Event, error) {
	e.mu.Lock()
	if e.state == EditorLoading || e.state == EditorSaving {
		e.mu.Unlock()
		return models.Event{}, ErrInvalidState
	}
	e.state = EditorLoading
	e.mu.Unlock()

	event, err := e.events.LoadEvent(ctx, id)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state = EditorLoadFailed
		e.event = models.Event{}
		e.err = err
		return models.Event{}, err
	}
	e.state = EditorLoaded
	e.event = event
	e.err = nil
	return event, nil
}

// Save writes the edited fields of the held event. It is only allowed once
// a copy is held.
func (e *EventEditor) Save(ctx context.Context, fields models.EventFields, photo *Photo, participants []models.UserSimple) (models.Event, error) {
	e.mu.Lock()
	switch e.state {
	case EditorLoaded, EditorSaved, EditorSaveFailed:
	default:
		e.mu.Unlock()
		return models.Event{}, ErrInvalidState
	}
	id := e.event.ID
	e.state = EditorSaving
	e.mu.Unlock()

	saved, err := e.events.UpdateEvent(ctx, id, fields, photo, participants)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state = EditorSaveFailed
		e.err = err
		return models.Event{}, err
	}
	e.state = EditorSaved
	e.event = saved
	e.err = nil
	return saved, nil
}
