package services

import (
	"context"
	"testing"

	"eventconnect_services/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditorRejectsSaveBeforeLoad(t *testing.T) {
	f := newFixture(t)
	editor := NewEventEditor(NewEventService(f.deps, ada))

	_, err := editor.Save(context.Background(), launchParty, nil, nil)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, EditorIdle, editor.State())
	assert.Zero(t, f.store.Calls())
}

func TestEditorLoadFailure(t *testing.T) {
	f := newFixture(t)
	editor := NewEventEditor(NewEventService(f.deps, ada))
	ctx := context.Background()

	_, err := editor.Load(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, EditorLoadFailed, editor.State())
	assert.ErrorIs(t, editor.Err(), ErrNotFound)

	_, held := editor.Event()
	assert.False(t, held)

	_, err = editor.Save(ctx, launchParty, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestEditorSaveFailureKeepsLoadedCopy(t *testing.T) {
	f := newFixture(t)
	f.putEvent(models.Event{ID: "e1", Name: "Mine", Location: "HQ", Host: ada.UserID, Participants: []models.UserSimple{ada}})
	editor := NewEventEditor(NewEventService(f.deps, ada))
	ctx := context.Background()

	loaded, err := editor.Load(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, EditorLoaded, editor.State())

	f.failOn("update", "events/e1")
	_, err = editor.Save(ctx, models.EventFields{Name: "Renamed", Location: "HQ"}, nil, nil)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, EditorSaveFailed, editor.State())

	held, ok := editor.Event()
	require.True(t, ok)
	assert.Equal(t, loaded, held)

	// Nothing retries on its own; a second save is the caller's choice.
	f.store.FailWith(nil)
	saved, err := editor.Save(ctx, models.EventFields{Name: "Renamed", Location: "HQ"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, EditorSaved, editor.State())
	held, _ = editor.Event()
	assert.Equal(t, saved, held)
	assert.Equal(t, "Renamed", held.Name)
}

func TestEditorNonHostSaveFails(t *testing.T) {
	f := newFixture(t)
	f.putEvent(models.Event{ID: "e1", Name: "Mine", Location: "HQ", Host: ada.UserID})
	editor := NewEventEditor(NewEventService(f.deps, grace))
	ctx := context.Background()

	_, err := editor.Load(ctx, "e1")
	require.NoError(t, err)

	_, err = editor.Save(ctx, models.EventFields{Name: "Mine", Location: "HQ"}, nil, nil)
	require.ErrorIs(t, err, ErrNotHost)
	assert.Equal(t, EditorSaveFailed, editor.State())
}

func TestEditorStateNames(t *testing.T) {
	assert.Equal(t, "idle", EditorIdle.String())
	assert.Equal(t, "save_failed", EditorSaveFailed.String())
	assert.Equal(t, "unknown", EditorState(99).String())
}
