package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"conduit/internal/domain"
)

const videoCallColumns = `id, event_id, creator_id, participants, is_group_call, is_active, started_at, ended_at`

type videoCallRepository struct {
	DB *sql.DB
}

func NewVideoCallRepository(db *sql.DB) domain.VideoCallRepository {
	return &videoCallRepository{
		DB: db,
	}
}

func scanVideoCall(s rowScanner) (*domain.VideoCall, error) {
	c := &domain.VideoCall{}
	var eventID sql.NullString
	var participants pq.StringArray
	var endedAt sql.NullTime
	if err := s.Scan(&c.ID, &eventID, &c.CreatorID, &participants, &c.IsGroupCall, &c.IsActive, &c.StartedAt, &endedAt); err != nil {
		return nil, err
	}
	c.EventID = stringPtr(eventID)
	c.Participants = []string(participants)
	if c.Participants == nil {
		c.Participants = []string{}
	}
	c.EndedAt = timePtr(endedAt)
	return c, nil
}

func (r *videoCallRepository) Create(ctx context.Context, c *domain.VideoCall) error {
	query := `
		INSERT INTO video_calls (event_id, creator_id, participants, is_group_call, is_active, started_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		RETURNING id, is_active
	`
	err := r.DB.QueryRowContext(ctx, query,
		c.EventID, c.CreatorID, pq.Array(c.Participants), c.IsGroupCall, c.StartedAt,
	).Scan(&c.ID, &c.IsActive)
	if err != nil {
		return mapPQError(err, nil)
	}
	return nil
}

func (r *videoCallRepository) GetByID(ctx context.Context, id string) (*domain.VideoCall, error) {
	return r.getOne(ctx, `SELECT `+videoCallColumns+` FROM video_calls WHERE id = $1`, id)
}

func (r *videoCallRepository) GetActiveByEvent(ctx context.Context, eventID string) (*domain.VideoCall, error) {
	query := `
		SELECT ` + videoCallColumns + `
		FROM video_calls
		WHERE event_id = $1 AND is_active
		ORDER BY started_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, eventID)
}

func (r *videoCallRepository) getOne(ctx context.Context, query string, args ...any) (*domain.VideoCall, error) {
	c, err := scanVideoCall(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *videoCallRepository) ListActiveForUser(ctx context.Context, userID string) ([]*domain.VideoCall, error) {
	query := `
		SELECT ` + videoCallColumns + `
		FROM video_calls
		WHERE is_active AND (creator_id = $1 OR $2 = ANY(participants))
		ORDER BY started_at DESC
	`
	return r.list(ctx, query, userID, userID)
}

func (r *videoCallRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.VideoCall, error) {
	query := `SELECT ` + videoCallColumns + ` FROM video_calls WHERE event_id = $1 ORDER BY started_at DESC`
	return r.list(ctx, query, eventID)
}

func (r *videoCallRepository) list(ctx context.Context, query string, args ...any) ([]*domain.VideoCall, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	calls := make([]*domain.VideoCall, 0)
	for rows.Next() {
		c, err := scanVideoCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// AddParticipant adds userID to an active call. Adding an existing participant is a no-op.
func (r *videoCallRepository) AddParticipant(ctx context.Context, id, userID string) (*domain.VideoCall, error) {
	query := `
		UPDATE video_calls
		SET participants = CASE WHEN $2 = ANY(participants) THEN participants ELSE array_append(participants, $2) END
		WHERE id = $1 AND is_active
		RETURNING ` + videoCallColumns
	return r.mutateActive(ctx, query, id, userID)
}

func (r *videoCallRepository) RemoveParticipant(ctx context.Context, id, userID string) (*domain.VideoCall, error) {
	query := `
		UPDATE video_calls
		SET participants = array_remove(participants, $2)
		WHERE id = $1 AND is_active
		RETURNING ` + videoCallColumns
	return r.mutateActive(ctx, query, id, userID)
}

// End marks the call inactive and stamps ended_at. Ending an ended call returns ErrCallEnded.
func (r *videoCallRepository) End(ctx context.Context, id string, at time.Time) (*domain.VideoCall, error) {
	query := `
		UPDATE video_calls
		SET is_active = FALSE, ended_at = $2
		WHERE id = $1 AND ended_at IS NULL
		RETURNING ` + videoCallColumns
	return r.mutateActive(ctx, query, id, at)
}

// mutateActive runs an update guarded on the call still being live and tells a
// missing call apart from an ended one.
func (r *videoCallRepository) mutateActive(ctx context.Context, query string, id string, arg any) (*domain.VideoCall, error) {
	c, err := scanVideoCall(r.DB.QueryRowContext(ctx, query, id, arg))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM video_calls WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrCallEnded
	}
	return nil, domain.ErrNotFound
}
