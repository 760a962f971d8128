package notify

import (
	"context"
	"os"
	"testing"

	"eventconnect_services/src/inits"
	"eventconnect_services/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGTokenStore(t *testing.T) {
	url := os.Getenv("EVENTCONNECT_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("EVENTCONNECT_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()

	pool, err := inits.CreatePostgresPool(url, ctx)
	require.NoError(t, err)
	defer pool.Pool.Close()
	require.NoError(t, inits.MigrateTokens(ctx, pool))
	_, err = pool.Pool.Exec(ctx, `DELETE FROM firebase_tokens WHERE user_id = $1`, "token-test-user")
	require.NoError(t, err)

	tokens := NewPGTokenStore(pool)
	require.NoError(t, tokens.Register(ctx, models.DeviceToken{UserID: "token-test-user", Token: "t1", DeviceID: "phone"}))
	require.NoError(t, tokens.Register(ctx, models.DeviceToken{UserID: "token-test-user", Token: "t2", DeviceID: "phone"}))
	require.NoError(t, tokens.Register(ctx, models.DeviceToken{UserID: "token-test-user", Token: "t3", DeviceID: "tablet"}))

	got, err := tokens.Tokens(ctx, "token-test-user")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t2", "t3"}, got)
}

func TestPGTokenStoreRejectsIncompleteToken(t *testing.T) {
	err := NewPGTokenStore(nil).Register(context.Background(), models.DeviceToken{UserID: "U1"})
	assert.Error(t, err)
}
