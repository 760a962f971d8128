package notify

import (
	"context"
	"fmt"

	"eventconnect_services/src/models"

	"github.com/jackc/pgx/v5"
)

const (
	upsertTokenQuery = `INSERT INTO firebase_tokens (user_id, token, device_id)
				VALUES ($1, $2, $3)
				ON CONFLICT (user_id, device_id)
				DO UPDATE SET token = EXCLUDED.token, updated_at = (now() AT TIME ZONE 'utc'::text)`

	selectTokensQuery = `SELECT token FROM firebase_tokens WHERE user_id = $1`
)

// PGTokenStore keeps device tokens in the firebase_tokens table.
type PGTokenStore struct {
	pool *models.PGPool
}

func NewPGTokenStore(pool *models.PGPool) *PGTokenStore {
	return &PGTokenStore{pool: pool}
}

// Register stores the token for a device, replacing the previous token of
// the same device.
func (s *PGTokenStore) Register(ctx context.Context, token models.DeviceToken) error {
	if token.UserID == "" || token.Token == "" || token.DeviceID == "" {
		return fmt.Errorf("register token: user, token and device id are required")
	}
	if _, err := s.pool.Pool.Exec(ctx, upsertTokenQuery, token.UserID, token.Token, token.DeviceID); err != nil {
		return fmt.Errorf("register token: %w", err)
	}
	return nil
}

func (s *PGTokenStore) Tokens(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Pool.Query(ctx, selectTokensQuery, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
