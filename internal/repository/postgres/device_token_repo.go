package postgres

import (
	"context"
	"database/sql"

	"conduit/internal/domain"
)

type deviceTokenRepository struct {
	DB *sql.DB
}

func NewDeviceTokenRepository(db *sql.DB) domain.DeviceTokenRepository {
	return &deviceTokenRepository{
		DB: db,
	}
}

// Upsert registers a token. A token already known (possibly for another user)
// is reassigned to t.UserID and reactivated.
func (r *deviceTokenRepository) Upsert(ctx context.Context, t *domain.DeviceToken) error {
	query := `
		INSERT INTO device_tokens (user_id, token, device_type, device_name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5)
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			device_type = EXCLUDED.device_type,
			device_name = EXCLUDED.device_name,
			is_active = TRUE,
			updated_at = EXCLUDED.updated_at
		RETURNING id, is_active, created_at
	`
	err := r.DB.QueryRowContext(ctx, query,
		t.UserID, t.Token, t.DeviceType, t.DeviceName, t.UpdatedAt,
	).Scan(&t.ID, &t.IsActive, &t.CreatedAt)
	if err != nil {
		return mapPQError(err, nil)
	}
	return nil
}

func (r *deviceTokenRepository) Deactivate(ctx context.Context, userID, token string) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE device_tokens SET is_active = FALSE, updated_at = NOW() WHERE user_id = $1 AND token = $2 AND is_active`,
		userID, token,
	)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *deviceTokenRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.DeviceToken, error) {
	query := `
		SELECT id, user_id, token, device_type, device_name, is_active, created_at, updated_at
		FROM device_tokens
		WHERE user_id = $1 AND is_active
		ORDER BY updated_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tokens := make([]*domain.DeviceToken, 0)
	for rows.Next() {
		t := &domain.DeviceToken{}
		var name sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.DeviceType, &name, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.DeviceName = stringPtr(name)
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
