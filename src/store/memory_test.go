package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestArrayUnionSkipsValuesAlreadyPresent(t *testing.T) {
	mem := NewMemory()
	mem.Put("events/e1", map[string]any{"photoUrls": []string{"a"}})
	ctx := context.Background()
	doc := mem.Collection("events").Document("e1")

	require.NoError(t, doc.Update(ctx, Update{Field: "photoUrls", Value: ArrayUnion("a", "b", "b")}))
	data, _ := mem.Data("events/e1")
	assert.Equal(t, []any{"a", "b"}, data["photoUrls"])

	require.NoError(t, doc.Update(ctx, Update{Field: "tags", Value: ArrayUnion("x")}))
	data, _ = mem.Data("events/e1")
	assert.Equal(t, []any{"x"}, data["tags"])
}

func TestArrayRemoveOfAbsentValueIsNoOp(t *testing.T) {
	mem := NewMemory()
	mem.Put("events/e1", map[string]any{"photoUrls": []string{"a", "b"}})
	ctx := context.Background()
	doc := mem.Collection("events").Document("e1")

	require.NoError(t, doc.Update(ctx, Update{Field: "photoUrls", Value: ArrayRemove("zzz")}))
	data, _ := mem.Data("events/e1")
	assert.Equal(t, []any{"a", "b"}, data["photoUrls"])

	require.NoError(t, doc.Update(ctx, Update{Field: "photoUrls", Value: ArrayRemove("a")}))
	data, _ = mem.Data("events/e1")
	assert.Equal(t, []any{"b"}, data["photoUrls"])
}

func TestUpdateMissingDocument(t *testing.T) {
	mem := NewMemory()

	err := mem.Collection("events").Document("nope").Update(context.Background(), Update{Field: "name", Value: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok := mem.Data("events/nope")
	assert.False(t, ok)
}

func TestServerTimestampUsesClock(t *testing.T) {
	mem := NewMemory()
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	mem.SetClock(func() time.Time { return now })

	require.NoError(t, mem.Collection("users").Document("U1").Set(context.Background(),
		map[string]any{"lastLogin": ServerTimestamp}))
	data, _ := mem.Data("users/U1")
	assert.Equal(t, now, data["lastLogin"])
}

func TestBatchAppliesNothingWhenAnyWriteFails(t *testing.T) {
	tests := []struct {
		name string
		fail func(Op) error
		want error
	}{
		{
			name: "hook rejects a staged write",
			fail: func(op Op) error {
				if op.Kind == "delete" && op.Path == "users/U2/friends/U1" {
					return errBoom
				}
				return nil
			},
			want: errBoom,
		},
		{
			name: "hook rejects the commit",
			fail: func(op Op) error {
				if op.Kind == "commit" {
					return errBoom
				}
				return nil
			},
			want: errBoom,
		},
		{name: "update of a missing document", want: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := NewMemory()
			mem.Put("users/U1/friends/U2", map[string]any{"userId": "U2"})
			mem.Put("users/U2/friends/U1", map[string]any{"userId": "U1"})
			mem.FailWith(tt.fail)

			users := mem.Collection("users")
			err := mem.Batch().
				Set(users.Document("U3"), map[string]any{"uid": "U3"}).
				Delete(users.Document("U1").Collection("friends").Document("U2")).
				Delete(users.Document("U2").Collection("friends").Document("U1")).
				Update(users.Document("ghost"), Update{Field: "email", Value: "g@example.com"}).
				Commit(context.Background())
			require.ErrorIs(t, err, tt.want)

			_, ok := mem.Data("users/U3")
			assert.False(t, ok)
			_, ok = mem.Data("users/U1/friends/U2")
			assert.True(t, ok)
			_, ok = mem.Data("users/U2/friends/U1")
			assert.True(t, ok)
		})
	}
}

func TestBatchCommitsEveryWrite(t *testing.T) {
	mem := NewMemory()
	mem.Put("users/U1/friends/U2", map[string]any{"userId": "U2"})
	users := mem.Collection("users")

	err := mem.Batch().
		Set(users.Document("U3"), map[string]any{"uid": "U3"}).
		Delete(users.Document("U1").Collection("friends").Document("U2")).
		Commit(context.Background())
	require.NoError(t, err)

	_, ok := mem.Data("users/U3")
	assert.True(t, ok)
	_, ok = mem.Data("users/U1/friends/U2")
	assert.False(t, ok)
	assert.Equal(t, []Op{{Kind: "commit"}}, mem.Ops())
}

func TestOrderByDropsDocumentsWithoutTheField(t *testing.T) {
	mem := NewMemory()
	mem.Put("users/U1", map[string]any{"displayName": "Linus"})
	mem.Put("users/U2", map[string]any{"displayName": "Ada"})
	mem.Put("users/U3", map[string]any{"email": "no-name@example.com"})
	mem.Put("users/U1/friends/U2", map[string]any{"displayName": "Nested"})

	snapshot, err := mem.Collection("users").OrderBy("displayName").Get(context.Background())
	require.NoError(t, err)
	var ids []string
	for _, doc := range snapshot.Documents {
		ids = append(ids, doc.ID)
	}
	assert.Equal(t, []string{"U2", "U1"}, ids)

	snapshot, err = mem.Collection("users").Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, snapshot.Size())
}

func TestWhereInCapsValueCount(t *testing.T) {
	mem := NewMemory()
	values := make([]any, 0, MaxInValues+1)
	for i := 0; i < MaxInValues; i++ {
		id := fmt.Sprintf("U%d", i)
		mem.Put("users/"+id, map[string]any{"uid": id})
		values = append(values, id)
	}
	ctx := context.Background()

	snapshot, err := mem.Collection("users").WhereIn("uid", values).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, MaxInValues, snapshot.Size())

	values = append(values, "U99")
	_, err = mem.Collection("users").WhereIn("uid", values).Get(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit is 30")
	assert.Equal(t, 1, mem.Calls(), "an oversized filter is rejected before it reaches the store")
}

func TestFailWithRecordsTheRejectedCall(t *testing.T) {
	mem := NewMemory()
	mem.FailWith(func(op Op) error {
		if op.Kind == "set" {
			return errBoom
		}
		return nil
	})
	ctx := context.Background()

	err := mem.Collection("events").Document("e1").Set(ctx, map[string]any{"name": "x"})
	assert.ErrorIs(t, err, errBoom)
	_, ok := mem.Data("events/e1")
	assert.False(t, ok)

	snapshot, err := mem.Collection("events").Document("e1").Get(ctx)
	require.NoError(t, err)
	assert.False(t, snapshot.Exists)
	assert.Equal(t, []Op{{Kind: "set", Path: "events/e1"}, {Kind: "get", Path: "events/e1"}}, mem.Ops())
}
