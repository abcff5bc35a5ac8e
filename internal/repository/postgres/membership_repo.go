package postgres

import (
	"context"
	"database/sql"
	"errors"

	"conduit/internal/domain"
)

type membershipRepository struct {
	DB *sql.DB
}

func NewMembershipRepository(db *sql.DB) domain.MembershipRepository {
	return &membershipRepository{
		DB: db,
	}
}

func (r *membershipRepository) Join(ctx context.Context, eventID, userID string, role domain.MembershipRole) (*domain.Membership, error) {
	var m *domain.Membership
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		prev, err := lockMembership(ctx, tx, eventID, userID)
		if err != nil {
			return err
		}
		if prev != nil && *prev {
			return domain.ErrAlreadyMember
		}
		m, err = applyMembership(ctx, tx, eventID, userID, role, prev, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *membershipRepository) Leave(ctx context.Context, eventID, userID string) (*domain.Membership, error) {
	var m *domain.Membership
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		prev, err := lockMembership(ctx, tx, eventID, userID)
		if err != nil {
			return err
		}
		if prev == nil || !*prev {
			return domain.ErrNotMember
		}
		m, err = applyMembership(ctx, tx, eventID, userID, "", prev, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *membershipRepository) Get(ctx context.Context, eventID, userID string) (*domain.Membership, error) {
	query := `
		SELECT user_id, event_id, role, joined_at, is_active
		FROM user_events
		WHERE event_id = $1 AND user_id = $2
	`
	m := &domain.Membership{}
	err := r.DB.QueryRowContext(ctx, query, eventID, userID).Scan(&m.UserID, &m.EventID, &m.Role, &m.JoinedAt, &m.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *membershipRepository) ActiveEventIDs(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT event_id FROM user_events WHERE user_id = $1 AND is_active ORDER BY event_id`
	return r.queryIDs(ctx, query, userID)
}

func (r *membershipRepository) ListActiveUserIDs(ctx context.Context, eventID string) ([]string, error) {
	query := `SELECT user_id FROM user_events WHERE event_id = $1 AND is_active ORDER BY user_id`
	return r.queryIDs(ctx, query, eventID)
}

func (r *membershipRepository) queryIDs(ctx context.Context, query string, arg string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *membershipRepository) ListParticipants(ctx context.Context, eventID string) ([]*domain.Participant, error) {
	query := `
		SELECT ue.user_id, ue.role, ue.joined_at, p.full_name, p.email, p.avatar_url
		FROM user_events ue
		JOIN profiles p ON p.id = ue.user_id
		WHERE ue.event_id = $1 AND ue.is_active
		ORDER BY ue.joined_at
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	participants := make([]*domain.Participant, 0)
	for rows.Next() {
		p := &domain.Participant{}
		var avatar sql.NullString
		if err := rows.Scan(&p.UserID, &p.Role, &p.JoinedAt, &p.FullName, &p.Email, &avatar); err != nil {
			return nil, err
		}
		p.AvatarURL = stringPtr(avatar)
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// lockMembership returns the current is_active of the membership row, locking it
// for the rest of the transaction. It returns nil when no row exists.
func lockMembership(ctx context.Context, tx *sql.Tx, eventID, userID string) (*bool, error) {
	var active bool
	err := tx.QueryRowContext(ctx,
		`SELECT is_active FROM user_events WHERE event_id = $1 AND user_id = $2 FOR UPDATE`,
		eventID, userID,
	).Scan(&active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &active, nil
}

// applyMembership writes the membership transition prev -> active and applies the
// resulting participant_count delta to the event inside the same transaction.
// role is only used when the row is inserted.
func applyMembership(ctx context.Context, tx *sql.Tx, eventID, userID string, role domain.MembershipRole, prev *bool, active bool) (*domain.Membership, error) {
	m := &domain.Membership{}
	var err error
	if prev == nil {
		if role == "" {
			role = domain.MembershipRoleParticipant
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO user_events (user_id, event_id, role, is_active)
			VALUES ($1, $2, $3, $4)
			RETURNING user_id, event_id, role, joined_at, is_active
		`, userID, eventID, role, active).Scan(&m.UserID, &m.EventID, &m.Role, &m.JoinedAt, &m.IsActive)
	} else {
		err = tx.QueryRowContext(ctx, `
			UPDATE user_events SET is_active = $3
			WHERE event_id = $1 AND user_id = $2
			RETURNING user_id, event_id, role, joined_at, is_active
		`, eventID, userID, active).Scan(&m.UserID, &m.EventID, &m.Role, &m.JoinedAt, &m.IsActive)
	}
	if err != nil {
		return nil, mapPQError(err, domain.ErrAlreadyMember)
	}

	delta := domain.ParticipantDelta(prev, active)
	if delta == 0 {
		return m, nil
	}
	result, err := tx.ExecContext(ctx,
		`UPDATE events SET participant_count = participant_count + $1, updated_at = NOW() WHERE id = $2`,
		delta, eventID,
	)
	if err != nil {
		return nil, err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, domain.ErrNotFound
	}
	return m, nil
}
