package postgres

import (
	"context"
	"database/sql"
	"errors"

	"conduit/internal/domain"
)

const invitationColumns = `id, event_id, inviter_id, invitee_id, message, status, created_at, responded_at`

type eventInvitationRepository struct {
	DB *sql.DB
}

func NewEventInvitationRepository(db *sql.DB) domain.EventInvitationRepository {
	return &eventInvitationRepository{
		DB: db,
	}
}

func scanInvitation(s rowScanner) (*domain.EventInvitation, error) {
	inv := &domain.EventInvitation{}
	var message sql.NullString
	var respondedAt sql.NullTime
	if err := s.Scan(&inv.ID, &inv.EventID, &inv.InviterID, &inv.InviteeID, &message, &inv.Status, &inv.CreatedAt, &respondedAt); err != nil {
		return nil, err
	}
	inv.Message = stringPtr(message)
	inv.RespondedAt = timePtr(respondedAt)
	return inv, nil
}

func (r *eventInvitationRepository) Create(ctx context.Context, inv *domain.EventInvitation) error {
	query := `
		INSERT INTO event_invitations (event_id, inviter_id, invitee_id, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		inv.EventID, inv.InviterID, inv.InviteeID, inv.Message, inv.Status, inv.CreatedAt,
	).Scan(&inv.ID)
	if err != nil {
		return mapPQError(err, domain.ErrDuplicateInvitation)
	}
	return nil
}

func (r *eventInvitationRepository) GetByID(ctx context.Context, id string) (*domain.EventInvitation, error) {
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM event_invitations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (r *eventInvitationRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.EventInvitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM event_invitations
		WHERE event_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, eventID)
}

func (r *eventInvitationRepository) ListPendingForInvitee(ctx context.Context, inviteeID string) ([]*domain.EventInvitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM event_invitations
		WHERE invitee_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, inviteeID)
}

func (r *eventInvitationRepository) list(ctx context.Context, query string, arg string) ([]*domain.EventInvitation, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invs := make([]*domain.EventInvitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invs, nil
}

func (r *eventInvitationRepository) SaveResponse(ctx context.Context, inv *domain.EventInvitation) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE event_invitations
			SET status = $2, responded_at = $3
			WHERE id = $1 AND status = 'pending'
		`, inv.ID, inv.Status, inv.RespondedAt)
		if err != nil {
			return mapPQError(err, nil)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM event_invitations WHERE id = $1)`, inv.ID).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return domain.ErrInvitationResponded
			}
			return domain.ErrNotFound
		}

		if inv.Status != domain.InvitationAccepted {
			return nil
		}
		prev, err := lockMembership(ctx, tx, inv.EventID, inv.InviteeID)
		if err != nil {
			return err
		}
		if prev != nil && *prev {
			return nil
		}
		_, err = applyMembership(ctx, tx, inv.EventID, inv.InviteeID, domain.MembershipRoleParticipant, prev, true)
		return err
	})
}
